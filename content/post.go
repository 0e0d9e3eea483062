// Package content loads the blog posts of the website and provides the
// listing, tag, search and table of contents helpers the pages are built from.
package content

import (
	"bytes"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"
	"unicode"

	"gopkg.in/yaml.v3"
)

// WordsPerMinute is the reading speed used for ReadingTime.
const WordsPerMinute = 200

// ErrPostNotFound is returned when no post exists for a slug.
var ErrPostNotFound = errors.New("post not found")

// PostMeta is a post without its body.
type PostMeta struct {
	Slug        string
	Title       string
	Description string
	Date        time.Time
	Updated     time.Time
	Tags        []string
	Featured    bool
	Draft       bool
	CoverImage  string
	ReadingTime string
}

// LastModified returns Updated when set, otherwise Date.
func (m PostMeta) LastModified() time.Time {
	if !m.Updated.IsZero() {
		return m.Updated
	}
	return m.Date
}

// Post is a blog post with its markdown body.
type Post struct {
	PostMeta
	Content string
}

type frontMatter struct {
	Title       string   `yaml:"title"`
	Description string   `yaml:"description"`
	Date        string   `yaml:"date"`
	Updated     string   `yaml:"updated"`
	Tags        []string `yaml:"tags"`
	Featured    bool     `yaml:"featured"`
	Draft       bool     `yaml:"draft"`
	CoverImage  string   `yaml:"coverImage"`
}

var dateLayouts = []string{
	"2006-01-02",
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
}

func parseDate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	for _, layout := range dateLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognised date %q", s)
}

var fence = []byte("---")

// splitFrontMatter separates a leading YAML block delimited by --- lines
// from the body. Sources without front matter return a nil header.
func splitFrontMatter(src []byte) (header, body []byte) {
	src = bytes.TrimPrefix(src, []byte("\xef\xbb\xbf"))
	first, rest, ok := bytes.Cut(src, []byte("\n"))
	if !ok || !bytes.Equal(bytes.TrimRight(first, " \t\r"), fence) {
		return nil, src
	}

	offset := 0
	for offset <= len(rest) {
		line, next, found := bytes.Cut(rest[offset:], []byte("\n"))
		if bytes.Equal(bytes.TrimRight(line, " \t\r"), fence) {
			header = rest[:offset]
			if found {
				body = next
			}
			return header, body
		}
		if !found {
			break
		}
		offset += len(line) + 1
	}
	return nil, src
}

// ParsePost parses a post source with YAML front matter.
func ParsePost(slug string, src []byte) (Post, error) {
	header, body := splitFrontMatter(src)

	var fm frontMatter
	if len(header) > 0 {
		if err := yaml.Unmarshal(header, &fm); err != nil {
			return Post{}, fmt.Errorf("parsing front matter of %s: %w", slug, err)
		}
	}

	date, err := parseDate(fm.Date)
	if err != nil {
		return Post{}, fmt.Errorf("post %s: date: %w", slug, err)
	}
	updated, err := parseDate(fm.Updated)
	if err != nil {
		return Post{}, fmt.Errorf("post %s: updated: %w", slug, err)
	}

	tags := fm.Tags
	if tags == nil {
		tags = []string{}
	}

	content := string(body)
	return Post{
		PostMeta: PostMeta{
			Slug:        slug,
			Title:       fm.Title,
			Description: fm.Description,
			Date:        date,
			Updated:     updated,
			Tags:        tags,
			Featured:    fm.Featured,
			Draft:       fm.Draft,
			CoverImage:  fm.CoverImage,
			ReadingTime: ReadingTime(content),
		},
		Content: content,
	}, nil
}

// CountWords counts whitespace separated words.
func CountWords(text string) int {
	return len(strings.FieldsFunc(text, unicode.IsSpace))
}

// ReadingTime formats the estimated reading time of text, e.g. "3 min read".
func ReadingTime(text string) string {
	minutes := int(math.Ceil(float64(CountWords(text)) / WordsPerMinute))
	if minutes < 1 {
		minutes = 1
	}
	return fmt.Sprintf("%d min read", minutes)
}
