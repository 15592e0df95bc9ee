package podcast

import (
	"encoding/xml"
	"fmt"
	"sort"
	"time"
)

const (
	itunesNS = "http://www.itunes.com/dtds/podcast-1.0.dtd"
	atomNS   = "http://www.w3.org/2005/Atom"
)

// Episode is one published roundup.
type Episode struct {
	Title           string
	Description     string
	GUID            string
	AudioURL        string
	AudioLength     int64
	DurationSeconds int
	PublishedAt     time.Time
}

// Channel carries the per-feed values not found in Meta.
type Channel struct {
	FeedURL  string
	ImageURL string
}

type rssDocument struct {
	XMLName xml.Name   `xml:"rss"`
	Version string     `xml:"version,attr"`
	ITunes  string     `xml:"xmlns:itunes,attr"`
	Atom    string     `xml:"xmlns:atom,attr"`
	Channel rssChannel `xml:"channel"`
}

type rssChannel struct {
	Title       string      `xml:"title"`
	Link        string      `xml:"link"`
	Language    string      `xml:"language"`
	Description string      `xml:"description"`
	Author      string      `xml:"itunes:author"`
	Explicit    string      `xml:"itunes:explicit"`
	AtomLink    rssAtomLink `xml:"atom:link"`
	Owner       rssOwner    `xml:"itunes:owner"`
	Image       rssImage    `xml:"itunes:image"`
	Category    rssCategory `xml:"itunes:category"`
	Items       []rssItem   `xml:"item"`
}

type rssAtomLink struct {
	Href string `xml:"href,attr"`
	Rel  string `xml:"rel,attr"`
	Type string `xml:"type,attr"`
}

type rssOwner struct {
	Name  string `xml:"itunes:name"`
	Email string `xml:"itunes:email"`
}

type rssImage struct {
	Href string `xml:"href,attr"`
}

type rssCategory struct {
	Text string       `xml:"text,attr"`
	Sub  *rssCategory `xml:"itunes:category,omitempty"`
}

type rssGUID struct {
	IsPermaLink string `xml:"isPermaLink,attr"`
	Value       string `xml:",chardata"`
}

type rssEnclosure struct {
	URL    string `xml:"url,attr"`
	Length int64  `xml:"length,attr"`
	Type   string `xml:"type,attr"`
}

type rssItem struct {
	Title       string       `xml:"title"`
	Description string       `xml:"description"`
	GUID        rssGUID      `xml:"guid"`
	PubDate     string       `xml:"pubDate"`
	Enclosure   rssEnclosure `xml:"enclosure"`
	Duration    string       `xml:"itunes:duration"`
	Explicit    string       `xml:"itunes:explicit"`
}

// BuildRSS renders an RSS 2.0 document with iTunes and Atom extensions.
// Episodes are written newest first.
func BuildRSS(meta Meta, ch Channel, episodes []Episode) ([]byte, error) {
	sorted := make([]Episode, len(episodes))
	copy(sorted, episodes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PublishedAt.After(sorted[j].PublishedAt)
	})

	explicit := explicitValue(meta.Explicit)
	link := meta.SiteURL
	if link == "" {
		link = ch.FeedURL
	}

	category := rssCategory{Text: meta.CategoryMain}
	if meta.CategorySub != "" {
		category.Sub = &rssCategory{Text: meta.CategorySub}
	}

	doc := rssDocument{
		Version: "2.0",
		ITunes:  itunesNS,
		Atom:    atomNS,
		Channel: rssChannel{
			Title:       meta.Title,
			Link:        link,
			Language:    meta.Language,
			Description: meta.Description,
			Author:      meta.Author,
			Explicit:    explicit,
			AtomLink:    rssAtomLink{Href: ch.FeedURL, Rel: "self", Type: "application/rss+xml"},
			Owner:       rssOwner{Name: meta.OwnerName, Email: meta.OwnerEmail},
			Image:       rssImage{Href: ch.ImageURL},
			Category:    category,
		},
	}

	for _, ep := range sorted {
		doc.Channel.Items = append(doc.Channel.Items, rssItem{
			Title:       ep.Title,
			Description: ep.Description,
			GUID:        rssGUID{IsPermaLink: "false", Value: ep.GUID},
			PubDate:     ep.PublishedAt.UTC().Format(time.RFC1123Z),
			Enclosure:   rssEnclosure{URL: ep.AudioURL, Length: ep.AudioLength, Type: "audio/mpeg"},
			Duration:    FormatDuration(ep.DurationSeconds),
			Explicit:    explicit,
		})
	}

	body, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal rss: %w", err)
	}
	out := make([]byte, 0, len(xml.Header)+len(body)+1)
	out = append(out, xml.Header...)
	out = append(out, body...)
	out = append(out, '\n')
	return out, nil
}

// FormatDuration renders seconds as HH:MM:SS, or MM:SS under an hour.
func FormatDuration(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
	}
	return fmt.Sprintf("%02d:%02d", m, s)
}

func explicitValue(explicit bool) string {
	if explicit {
		return "yes"
	}
	return "no"
}
