package site

import (
	"encoding/xml"
	"fmt"
	"io"
	"strings"
	"time"
)

// SitemapURL is one <url> entry.
type SitemapURL struct {
	Loc        string  `xml:"loc"`
	LastMod    string  `xml:"lastmod,omitempty"`
	ChangeFreq string  `xml:"changefreq,omitempty"`
	Priority   float64 `xml:"priority"`
}

type urlset struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []SitemapURL `xml:"url"`
}

var staticPages = []struct {
	path     string
	freq     string
	priority float64
}{
	{"", "monthly", 1},
	{"/work", "monthly", 0.8},
	{"/gallery", "weekly", 0.8},
	{"/writing", "weekly", 0.8},
	{"/about", "yearly", 0.5},
}

// Sitemap lists the static pages followed by every project and post.
// Entries without a parseable date use now as their modification time.
func (s *Site) Sitemap(baseURL string, now time.Time) ([]SitemapURL, error) {
	baseURL = strings.TrimRight(baseURL, "/")
	today := now.Format(time.DateOnly)

	urls := make([]SitemapURL, 0, len(staticPages))
	for _, p := range staticPages {
		urls = append(urls, SitemapURL{Loc: baseURL + p.path, LastMod: today, ChangeFreq: p.freq, Priority: p.priority})
	}

	projects, err := s.WorkProjects()
	if err != nil {
		return nil, fmt.Errorf("sitemap projects: %w", err)
	}
	for _, p := range projects {
		urls = append(urls, SitemapURL{
			Loc:        baseURL + "/work/" + p.Slug,
			LastMod:    lastMod(p.Date, today),
			ChangeFreq: "monthly",
			Priority:   0.7,
		})
	}

	posts, err := s.WritingPosts()
	if err != nil {
		return nil, fmt.Errorf("sitemap posts: %w", err)
	}
	for _, p := range posts {
		urls = append(urls, SitemapURL{
			Loc:        baseURL + "/writing/" + p.Slug,
			LastMod:    lastMod(p.Date, today),
			ChangeFreq: "monthly",
			Priority:   0.6,
		})
	}

	return urls, nil
}

func lastMod(date, fallback string) string {
	if t, ok := ParseDate(date); ok {
		return t.Format(time.DateOnly)
	}
	return fallback
}

// WriteSitemap encodes urls as a sitemaps.org XML document.
func WriteSitemap(w io.Writer, urls []SitemapURL) error {
	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(urlset{Xmlns: "http://www.sitemaps.org/schemas/sitemap/0.9", URLs: urls}); err != nil {
		return fmt.Errorf("encode sitemap: %w", err)
	}
	return enc.Flush()
}
