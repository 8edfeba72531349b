// Package site defines the portfolio content tree: the fixed set of
// configuration sections, their canonical defaults, seeding, and the visitor
// message collection.
package site

import (
	"encoding/json"
	"fmt"
)

// Root is the path prefix for all configuration sections.
const Root = "siteConfig"

// MessagesPath is the collection visitor messages are pushed under.
const MessagesPath = "messages"

// ProjectsPath is the collection portfolio projects live under.
const ProjectsPath = "projects"

// Sections is the fixed list of section names under Root, in display order.
// Saving walks this list sequentially.
var Sections = []string{
	"navigation",
	"hero",
	"about",
	"skills",
	"services",
	"projects",
	"testimonials",
	"resume",
	"socials",
	"contact",
	"footer",
	"seo",
	"theme",
	"analytics",
}

// SectionPath returns the full store path for a section name.
func SectionPath(section string) string {
	return Root + "/" + section
}

// IsSection reports whether name is a known section.
func IsSection(name string) bool {
	for _, s := range Sections {
		if s == name {
			return true
		}
	}
	return false
}

type MenuItem struct {
	Label string `json:"label" yaml:"label"`
	Href  string `json:"href" yaml:"href"`
}

type Navigation struct {
	SiteTitle    string     `json:"siteTitle" yaml:"siteTitle"`
	SiteSubtitle string     `json:"siteSubtitle" yaml:"siteSubtitle"`
	Logo         string     `json:"logo" yaml:"logo"`
	MenuItems    []MenuItem `json:"menuItems" yaml:"menuItems"`
}

type Hero struct {
	Title           string `json:"title" yaml:"title"`
	Subtitle        string `json:"subtitle" yaml:"subtitle"`
	Description     string `json:"description" yaml:"description"`
	CTA             string `json:"cta" yaml:"cta"`
	BackgroundImage string `json:"backgroundImage" yaml:"backgroundImage"`
	ProfileImage    string `json:"profileImage" yaml:"profileImage"`
}

type Detail struct {
	Title       string `json:"title" yaml:"title"`
	Description string `json:"description" yaml:"description"`
}

type About struct {
	Name         string   `json:"name" yaml:"name"`
	Description  string   `json:"description" yaml:"description"`
	Image        string   `json:"image" yaml:"image"`
	Location     string   `json:"location" yaml:"location"`
	Experience   string   `json:"experience" yaml:"experience"`
	Availability string   `json:"availability" yaml:"availability"`
	Education    string   `json:"education" yaml:"education"`
	Details      []Detail `json:"details" yaml:"details"`
}

type SkillCategory struct {
	Title  string   `json:"title" yaml:"title"`
	Skills []string `json:"skills" yaml:"skills"`
	Icon   string   `json:"icon" yaml:"icon"`
}

type Skills struct {
	Categories []SkillCategory `json:"categories" yaml:"categories"`
}

type Service struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Icon        string   `json:"icon" yaml:"icon"`
	Features    []string `json:"features" yaml:"features"`
}

type Services struct {
	Title    string    `json:"title" yaml:"title"`
	Subtitle string    `json:"subtitle" yaml:"subtitle"`
	Services []Service `json:"services" yaml:"services"`
}

type ProjectsSection struct {
	Title        string `json:"title" yaml:"title"`
	Subtitle     string `json:"subtitle" yaml:"subtitle"`
	ShowFilters  bool   `json:"showFilters" yaml:"showFilters"`
	ItemsPerPage int    `json:"itemsPerPage" yaml:"itemsPerPage"`
}

type Testimonial struct {
	Name   string `json:"name" yaml:"name"`
	Role   string `json:"role" yaml:"role"`
	Quote  string `json:"quote" yaml:"quote"`
	Avatar string `json:"avatar" yaml:"avatar"`
}

type Testimonials struct {
	Title        string        `json:"title" yaml:"title"`
	Subtitle     string        `json:"subtitle" yaml:"subtitle"`
	Testimonials []Testimonial `json:"testimonials" yaml:"testimonials"`
}

type Resume struct {
	Title       string `json:"title" yaml:"title"`
	Subtitle    string `json:"subtitle" yaml:"subtitle"`
	Description string `json:"description" yaml:"description"`
	CVURL       string `json:"cvUrl" yaml:"cvUrl"`
	FileName    string `json:"fileName" yaml:"fileName"`
	ButtonText  string `json:"buttonText" yaml:"buttonText"`
}

type SocialLink struct {
	URL   string `json:"url" yaml:"url"`
	Label string `json:"label" yaml:"label"`
}

type Socials struct {
	GitHub   SocialLink `json:"github" yaml:"github"`
	LinkedIn SocialLink `json:"linkedin" yaml:"linkedin"`
	Twitter  SocialLink `json:"twitter" yaml:"twitter"`
}

type Contact struct {
	Title       string `json:"title" yaml:"title"`
	Subtitle    string `json:"subtitle" yaml:"subtitle"`
	Email       string `json:"email" yaml:"email"`
	Phone       string `json:"phone" yaml:"phone"`
	Address     string `json:"address" yaml:"address"`
	FormEnabled bool   `json:"formEnabled" yaml:"formEnabled"`
	ShowMap     bool   `json:"showMap" yaml:"showMap"`
}

type FooterLink struct {
	Label string `json:"label" yaml:"label"`
	URL   string `json:"url" yaml:"url"`
}

type Footer struct {
	Copyright       string       `json:"copyright" yaml:"copyright"`
	Description     string       `json:"description" yaml:"description"`
	ShowSocialLinks bool         `json:"showSocialLinks" yaml:"showSocialLinks"`
	AdditionalLinks []FooterLink `json:"additionalLinks" yaml:"additionalLinks"`
}

type SEO struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Keywords    []string `json:"keywords" yaml:"keywords"`
	OGImage     string   `json:"ogImage" yaml:"ogImage"`
	TwitterCard string   `json:"twitterCard" yaml:"twitterCard"`
}

type Theme struct {
	PrimaryColor     string `json:"primaryColor" yaml:"primaryColor"`
	SecondaryColor   string `json:"secondaryColor" yaml:"secondaryColor"`
	AccentColor      string `json:"accentColor" yaml:"accentColor"`
	BackgroundColor  string `json:"backgroundColor" yaml:"backgroundColor"`
	TextColor        string `json:"textColor" yaml:"textColor"`
	FontFamily       string `json:"fontFamily" yaml:"fontFamily"`
	BorderRadius     string `json:"borderRadius" yaml:"borderRadius"`
	EnableAnimations bool   `json:"enableAnimations" yaml:"enableAnimations"`
	DarkMode         bool   `json:"darkMode" yaml:"darkMode"`
}

type Analytics struct {
	GoogleAnalyticsID string `json:"googleAnalyticsId" yaml:"googleAnalyticsId"`
	EnableTracking    bool   `json:"enableTracking" yaml:"enableTracking"`
	TrackPageViews    bool   `json:"trackPageViews" yaml:"trackPageViews"`
	TrackEvents       bool   `json:"trackEvents" yaml:"trackEvents"`
}

// Project is one entry in the projects collection.
type Project struct {
	Title       string   `json:"title" yaml:"title"`
	Description string   `json:"description" yaml:"description"`
	Image       string   `json:"image" yaml:"image"`
	Tags        []string `json:"tags" yaml:"tags"`
	SearchIndex string   `json:"searchIndex" yaml:"searchIndex"`
	GitHub      string   `json:"github" yaml:"github"`
	Demo        string   `json:"demo" yaml:"demo"`
	Featured    bool     `json:"featured" yaml:"featured"`
	Category    string   `json:"category" yaml:"category"`
}

// Config is the full typed view of the section tree.
type Config struct {
	Navigation   Navigation      `json:"navigation" yaml:"navigation"`
	Hero         Hero            `json:"hero" yaml:"hero"`
	About        About           `json:"about" yaml:"about"`
	Skills       Skills          `json:"skills" yaml:"skills"`
	Services     Services        `json:"services" yaml:"services"`
	Projects     ProjectsSection `json:"projects" yaml:"projects"`
	Testimonials Testimonials    `json:"testimonials" yaml:"testimonials"`
	Resume       Resume          `json:"resume" yaml:"resume"`
	Socials      Socials         `json:"socials" yaml:"socials"`
	Contact      Contact         `json:"contact" yaml:"contact"`
	Footer       Footer          `json:"footer" yaml:"footer"`
	SEO          SEO             `json:"seo" yaml:"seo"`
	Theme        Theme           `json:"theme" yaml:"theme"`
	Analytics    Analytics       `json:"analytics" yaml:"analytics"`
}

// sectionField returns a pointer to the Config field for a section name.
func (c *Config) sectionField(name string) (any, bool) {
	switch name {
	case "navigation":
		return &c.Navigation, true
	case "hero":
		return &c.Hero, true
	case "about":
		return &c.About, true
	case "skills":
		return &c.Skills, true
	case "services":
		return &c.Services, true
	case "projects":
		return &c.Projects, true
	case "testimonials":
		return &c.Testimonials, true
	case "resume":
		return &c.Resume, true
	case "socials":
		return &c.Socials, true
	case "contact":
		return &c.Contact, true
	case "footer":
		return &c.Footer, true
	case "seo":
		return &c.SEO, true
	case "theme":
		return &c.Theme, true
	case "analytics":
		return &c.Analytics, true
	}
	return nil, false
}

// Apply overlays a stored section value onto c. Fields absent from raw keep
// their current (default) values. A nil raw leaves the section untouched.
func (c *Config) Apply(section string, raw json.RawMessage) error {
	field, ok := c.sectionField(section)
	if !ok {
		return fmt.Errorf("unknown section %q", section)
	}
	if raw == nil {
		return nil
	}
	if err := json.Unmarshal(raw, field); err != nil {
		return fmt.Errorf("section %s: %w", section, err)
	}
	return nil
}

// Section returns the current typed value of a section.
func (c *Config) Section(name string) (any, bool) {
	field, ok := c.sectionField(name)
	if !ok {
		return nil, false
	}
	switch v := field.(type) {
	case *Navigation:
		return *v, true
	case *Hero:
		return *v, true
	case *About:
		return *v, true
	case *Skills:
		return *v, true
	case *Services:
		return *v, true
	case *ProjectsSection:
		return *v, true
	case *Testimonials:
		return *v, true
	case *Resume:
		return *v, true
	case *Socials:
		return *v, true
	case *Contact:
		return *v, true
	case *Footer:
		return *v, true
	case *SEO:
		return *v, true
	case *Theme:
		return *v, true
	case *Analytics:
		return *v, true
	}
	return nil, false
}

// Canonical builds a complete Config from stored section values, filling
// every missing section or field from the defaults. Readers get a fully
// populated view regardless of what has been saved.
func Canonical(raw map[string]json.RawMessage) (Config, error) {
	cfg := Defaults()
	for _, name := range Sections {
		if err := cfg.Apply(name, raw[name]); err != nil {
			return Config{}, err
		}
	}
	return cfg, nil
}
