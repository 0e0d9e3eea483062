// Package feed generates the RSS feed, sitemap and robots.txt of the website
// from its blog posts.
package feed

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/buildinginthecloud/site/content"
)

// File names written by WriteAll.
const (
	FeedFile    = "feed.xml"
	SitemapFile = "sitemap.xml"
	RobotsFile  = "robots.txt"
)

// Site describes the website the files are generated for.
type Site struct {
	Title       string
	Description string
	URL         string
	AuthorName  string
	AuthorEmail string
	Language    string
}

// DefaultSite returns the metadata of buildinginthecloud.com.
func DefaultSite() Site {
	return Site{
		Title:       "Building in the Cloud",
		Description: "AWS insights, CDK best practices, and cloud infrastructure tips from Yvo van Zee.",
		URL:         "https://buildinginthecloud.com",
		AuthorName:  "Yvo van Zee",
		AuthorEmail: "yvo@buildinginthecloud.com",
		Language:    "en",
	}
}

// WithURL returns a copy of s served from url.
func (s Site) WithURL(url string) Site {
	if url != "" {
		s.URL = strings.TrimRight(url, "/")
	}
	return s
}

// PostURL returns the absolute URL of the post with slug.
func (s Site) PostURL(slug string) string {
	return s.URL + "/blog/" + slug
}

// RSS renders posts as an RSS 2.0 document. Posts should be published posts
// in display order; now is used for the copyright year and as the build date.
func RSS(site Site, posts []content.Post, now time.Time) (string, error) {
	author := &feeds.Author{Name: site.AuthorName, Email: site.AuthorEmail}

	f := &feeds.Feed{
		Title:       site.Title,
		Link:        &feeds.Link{Href: site.URL},
		Description: site.Description,
		Author:      author,
		Id:          site.URL,
		Updated:     now,
		Copyright:   fmt.Sprintf("All rights reserved %d, %s", now.Year(), site.AuthorName),
		Image: &feeds.Image{
			Url:   site.URL + "/og-image.png",
			Title: site.Title,
			Link:  site.URL,
		},
	}
	if len(posts) > 0 {
		f.Created = posts[0].Date
	}

	for _, p := range posts {
		body, err := p.HTML()
		if err != nil {
			return "", fmt.Errorf("rendering post %s: %w", p.Slug, err)
		}
		link := site.PostURL(p.Slug)
		f.Items = append(f.Items, &feeds.Item{
			Title:       p.Title,
			Link:        &feeds.Link{Href: link},
			Id:          link,
			Description: p.Description,
			Content:     body,
			Author:      author,
			Created:     p.Date,
			Updated:     p.Updated,
		})
	}

	rss := (&feeds.Rss{Feed: f}).RssFeed()
	rss.Language = site.Language
	for i, p := range posts {
		if len(p.Tags) > 0 {
			rss.Items[i].Category = p.Tags[0]
		}
	}

	out, err := feeds.ToXML(rss)
	if err != nil {
		return "", fmt.Errorf("encoding RSS feed: %w", err)
	}
	return out, nil
}

// Robots renders robots.txt.
func Robots(site Site) string {
	var b strings.Builder
	b.WriteString("User-agent: *\n")
	b.WriteString("Allow: /\n")
	b.WriteString("Disallow: /api/\n")
	b.WriteString("Disallow: /admin/\n")
	b.WriteString("\n")
	fmt.Fprintf(&b, "Sitemap: %s/%s\n", site.URL, SitemapFile)
	return b.String()
}

// WriteAll writes the feed, sitemap and robots.txt for the published posts
// of store into dir.
func WriteAll(dir string, site Site, store *content.Store, now time.Time) error {
	posts := store.AllPosts()

	rss, err := RSS(site, posts, now)
	if err != nil {
		return err
	}
	sitemap, err := Sitemap(site, posts, now)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating %s: %w", dir, err)
	}
	files := map[string]string{
		FeedFile:    rss,
		SitemapFile: sitemap,
		RobotsFile:  Robots(site),
	}
	for name, data := range files {
		if err := os.WriteFile(filepath.Join(dir, name), []byte(data), 0o644); err != nil {
			return fmt.Errorf("writing %s: %w", name, err)
		}
	}
	return nil
}
