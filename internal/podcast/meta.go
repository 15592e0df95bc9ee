package podcast

import (
	"regexp"
	"strings"
)

// Meta is the static directory metadata of one project's show.
type Meta struct {
	Title        string `yaml:"title"`
	Description  string `yaml:"description"`
	CategoryMain string `yaml:"categoryMain"`
	CategorySub  string `yaml:"categorySub"`
	Language     string `yaml:"language"`
	OwnerName    string `yaml:"ownerName"`
	OwnerEmail   string `yaml:"ownerEmail"`
	Author       string `yaml:"author"`
	Explicit     bool   `yaml:"explicit"`
	SiteURL      string `yaml:"siteUrl"`
}

const (
	networkName = "OnePlace"
	footer      = "OnePlace is a daily network of short, focused shows across entertainment, TV, " +
		"sports, human-interest, and nostalgia.\n" +
		"If you like this feed, follow the other OnePlace shows for the full picture."
)

// Catalogue maps project display names to show metadata.
type Catalogue map[string]Meta

// DefaultCatalogue returns the built-in network shows.
func DefaultCatalogue(ownerEmail string) Catalogue {
	show := func(title, blurb, main, sub string) Meta {
		return Meta{
			Title:        title,
			Description:  blurb + "\n" + footer,
			CategoryMain: main,
			CategorySub:  sub,
			Language:     "en-US",
			OwnerName:    networkName,
			OwnerEmail:   ownerEmail,
			Author:       networkName,
		}
	}

	return Catalogue{
		"Celebrities / Entertainment": show("Red Carpet Scoop OP",
			"Your daily hit of celebrity headlines, relationships, and the stories behind the red carpet. "+
				"Quick, punchy, and designed to keep you in the loop.",
			"News", "Entertainment News"),
		"TV & Streaming Recaps": show("Binge Brief OP",
			"Daily recaps and highlights from the shows everyone is watching - plus what to stream next. "+
				"Fast summaries with just enough context to keep you caught up.",
			"TV & Film", ""),
		"Sports (results + storylines)": show("Game Day Wire OP",
			"Daily sports results, storylines, and the moments that sparked debate. "+
				"Scores, context, and the why behind the headlines.",
			"Sports", "Sports News"),
		"Viral / Human-interest": show("Feel-Good Daily OP",
			"A daily dose of human-interest stories, viral wins, and small moments of hope. "+
				"The feel-good feed that resets your day.",
			"Society & Culture", ""),
		"Nostalgia / Pop-culture history": show("Retro Recall OP",
			"Daily nostalgia hits from pop culture, music, and throwback moments that shaped us. "+
				"Short, story-driven blasts from the past.",
			"History", ""),
	}
}

// Merge returns a copy of c with extra entries added or replaced.
func (c Catalogue) Merge(extra map[string]Meta) Catalogue {
	out := make(Catalogue, len(c)+len(extra))
	for name, meta := range c {
		out[name] = meta
	}
	for name, meta := range extra {
		out[name] = meta
	}
	return out
}

// Lookup resolves metadata by exact project display name.
func (c Catalogue) Lookup(projectName string) (Meta, bool) {
	meta, ok := c[projectName]
	return meta, ok
}

var (
	slugInvalid = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)
	slugDashes  = regexp.MustCompile(`-+`)
)

// Slugify derives the stable object-key prefix for a show.
func Slugify(value string) string {
	s := slugInvalid.ReplaceAllString(strings.TrimSpace(value), "-")
	s = slugDashes.ReplaceAllString(s, "-")
	s = strings.ToLower(strings.Trim(s, "-"))
	if s == "" {
		return "podcast"
	}
	return s
}
