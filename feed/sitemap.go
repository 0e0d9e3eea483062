package feed

import (
	"encoding/xml"
	"fmt"
	"strconv"
	"time"

	"github.com/buildinginthecloud/site/content"
)

const sitemapNamespace = "http://www.sitemaps.org/schemas/sitemap/0.9"

// ChangeFrequency is the changefreq of a sitemap entry.
type ChangeFrequency string

// Change frequencies used by the site.
const (
	Daily   ChangeFrequency = "daily"
	Weekly  ChangeFrequency = "weekly"
	Monthly ChangeFrequency = "monthly"
)

// Page is a static page of the site.
type Page struct {
	Path       string
	ChangeFreq ChangeFrequency
	Priority   float64
}

// StaticPages are the pages listed in the sitemap besides the posts.
var StaticPages = []Page{
	{Path: "", ChangeFreq: Daily, Priority: 1.0},
	{Path: "/blog", ChangeFreq: Daily, Priority: 0.9},
	{Path: "/about", ChangeFreq: Monthly, Priority: 0.7},
	{Path: "/cv", ChangeFreq: Monthly, Priority: 0.6},
}

// PostPriority and PostChangeFreq apply to every blog post.
const (
	PostPriority   = 0.8
	PostChangeFreq = Weekly
)

type urlSet struct {
	XMLName xml.Name     `xml:"urlset"`
	Xmlns   string       `xml:"xmlns,attr"`
	URLs    []sitemapURL `xml:"url"`
}

type sitemapURL struct {
	Loc        string          `xml:"loc"`
	LastMod    string          `xml:"lastmod,omitempty"`
	ChangeFreq ChangeFrequency `xml:"changefreq,omitempty"`
	Priority   string          `xml:"priority,omitempty"`
}

func newSitemapURL(loc string, lastMod time.Time, freq ChangeFrequency, priority float64) sitemapURL {
	u := sitemapURL{
		Loc:        loc,
		ChangeFreq: freq,
		Priority:   strconv.FormatFloat(priority, 'f', 1, 64),
	}
	if !lastMod.IsZero() {
		u.LastMod = lastMod.UTC().Format(time.DateOnly)
	}
	return u
}

// Sitemap renders sitemap.xml for the static pages and posts. Static pages
// are stamped with now, posts with their last modification date.
func Sitemap(site Site, posts []content.Post, now time.Time) (string, error) {
	set := urlSet{Xmlns: sitemapNamespace}
	for _, page := range StaticPages {
		set.URLs = append(set.URLs, newSitemapURL(site.URL+page.Path, now, page.ChangeFreq, page.Priority))
	}
	for _, p := range posts {
		set.URLs = append(set.URLs, newSitemapURL(site.PostURL(p.Slug), p.LastModified(), PostChangeFreq, PostPriority))
	}

	out, err := xml.MarshalIndent(set, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encoding sitemap: %w", err)
	}
	return xml.Header + string(out) + "\n", nil
}
