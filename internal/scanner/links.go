package scanner

import (
	"fmt"
	"html"
	"net/url"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/mmcdole/gofeed"
)

// ExtractLinks returns the sorted, deduplicated set of article URLs found in
// raw that survive the rule's filters.
func ExtractLinks(rule *Rule, raw string) ([]string, error) {
	if rule == nil || strings.TrimSpace(raw) == "" {
		return nil, nil
	}

	var candidates []string
	if rule.Feed {
		links, err := feedLinks(raw)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, links...)
	} else {
		hrefs, err := hrefLinks(raw)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, hrefs...)
	}

	if !rule.HrefOnly {
		for _, re := range rule.extract {
			candidates = append(candidates, re.FindAllString(raw, -1)...)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	for _, candidate := range candidates {
		norm, ok := Normalize(candidate, rule.BaseURL)
		if !ok || !rule.Keep(norm) {
			continue
		}
		seen[norm] = struct{}{}
	}

	out := make([]string, 0, len(seen))
	for u := range seen {
		out = append(out, u)
	}
	sort.Strings(out)
	return out, nil
}

func hrefLinks(raw string) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(raw))
	if err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	var hrefs []string
	doc.Find("[href]").Each(func(_ int, s *goquery.Selection) {
		if href, ok := s.Attr("href"); ok {
			hrefs = append(hrefs, href)
		}
	})
	return hrefs, nil
}

func feedLinks(raw string) ([]string, error) {
	feed, err := gofeed.NewParser().ParseString(raw)
	if err != nil {
		return nil, fmt.Errorf("parse feed: %w", err)
	}
	links := make([]string, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item.Link != "" {
			links = append(links, item.Link)
		}
		for _, link := range item.Links {
			if link != item.Link {
				links = append(links, link)
			}
		}
	}
	return links, nil
}

// Normalize unescapes, absolutises and strips query and fragment from a raw link.
// Root-relative links need a base; other relative or non-http links are dropped.
func Normalize(raw, base string) (string, bool) {
	s := strings.TrimSpace(html.UnescapeString(strings.TrimSpace(raw)))
	if s == "" {
		return "", false
	}

	switch {
	case strings.HasPrefix(s, "//"):
		s = "https:" + s
	case strings.HasPrefix(s, "/"):
		if base == "" {
			return "", false
		}
		baseURL, err := url.Parse(base)
		if err != nil {
			return "", false
		}
		ref, err := url.Parse(s)
		if err != nil {
			return "", false
		}
		s = baseURL.ResolveReference(ref).String()
	case !strings.HasPrefix(strings.ToLower(s), "http"):
		return "", false
	}

	if i := strings.IndexByte(s, '#'); i >= 0 {
		s = s[:i]
	}
	if i := strings.IndexByte(s, '?'); i >= 0 {
		s = s[:i]
	}

	parsed, err := url.Parse(s)
	if err != nil || parsed.Host == "" {
		return "", false
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return "", false
	}
	return s, true
}
