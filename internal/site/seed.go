package site

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/blumotif/folio/internal/kvstore"
)

// Seed writes the default content for every section that does not exist
// yet. Existing sections are left untouched, so it is safe to run on every
// startup. Returns the number of sections written.
func Seed(ctx context.Context, kv *kvstore.Store) (int, error) {
	defaults := Defaults()
	written := 0

	for _, name := range Sections {
		path := SectionPath(name)

		current, err := kv.Get(ctx, path)
		if err != nil {
			return written, fmt.Errorf("seed %s: %w", name, err)
		}
		if current != nil {
			continue
		}

		value, ok := defaults.Section(name)
		if !ok {
			return written, fmt.Errorf("seed %s: no default", name)
		}
		raw, err := json.Marshal(value)
		if err != nil {
			return written, fmt.Errorf("seed %s: %w", name, err)
		}
		if err := kv.Set(ctx, path, raw); err != nil {
			return written, fmt.Errorf("seed %s: %w", name, err)
		}
		written++
		slog.InfoContext(ctx, "seeded section", "section", name)
	}

	// One sample project so the page is not empty on first run.
	projects, err := kv.Get(ctx, ProjectsPath)
	if err != nil {
		return written, fmt.Errorf("seed projects: %w", err)
	}
	if projects == nil {
		raw, err := json.Marshal(SampleProject())
		if err != nil {
			return written, fmt.Errorf("seed projects: %w", err)
		}
		if _, err := kv.Push(ctx, ProjectsPath, raw); err != nil {
			return written, fmt.Errorf("seed projects: %w", err)
		}
		written++
		slog.InfoContext(ctx, "seeded sample project")
	}

	return written, nil
}
