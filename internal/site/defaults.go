package site

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed defaults.yaml
var defaultsYAML []byte

var (
	defaultsOnce sync.Once
	defaultsCfg  Config
)

// Defaults returns a copy of the built-in section defaults.
func Defaults() Config {
	defaultsOnce.Do(func() {
		if err := yaml.Unmarshal(defaultsYAML, &defaultsCfg); err != nil {
			panic(fmt.Sprintf("site: parse embedded defaults: %v", err))
		}
	})
	return defaultsCfg
}

// SampleProject is seeded into the projects collection on first run.
func SampleProject() Project {
	return Project{
		Title: "Portfolio Website",
		Description: "A modern, responsive portfolio website built with Go and a realtime " +
			"key-value store. Features dynamic content management and chunked file storage.",
		Tags:        []string{"Go", "TypeScript", "Tailwind CSS"},
		GitHub:      "https://github.com/yourusername/portfolio",
		Demo:        "https://yourportfolio.com",
		Featured:    true,
		Category:    "Web Development",
		SearchIndex: "Portfolio Website modern responsive Go realtime key-value store Tailwind CSS",
	}
}
