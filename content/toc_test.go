package content

import (
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"
)

func TestSlugify(t *testing.T) {
	tests := map[string]string{
		"Getting Started":           "getting-started",
		"What's new in CDK v2?":     "whats-new-in-cdk-v2",
		"  Padded  ":                "-padded-",
		"snake_case & kebab-case":   "snake_case-kebab-case",
		"Route 53: A, AAAA & CNAME": "route-53-a-aaaa-cname",
	}
	for in, want := range tests {
		assert.Equal(t, want, Slugify(in), in)
	}
}

var slugAlphabet = regexp.MustCompile(`^[a-z0-9_-]*$`)

func TestSlugifyProperties(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		text := rapid.String().Draw(t, "text")
		slug := Slugify(text)

		if !slugAlphabet.MatchString(slug) {
			t.Fatalf("slug %q of %q has characters outside [a-z0-9_-]", slug, text)
		}
		if again := Slugify(slug); again != slug {
			t.Fatalf("Slugify not idempotent: %q -> %q", slug, again)
		}
	})
}

func TestTableOfContents(t *testing.T) {
	doc := strings.Join([]string{
		"# Title is skipped",
		"",
		"## Introduction",
		"text",
		"### Setting up CDK",
		"```bash",
		"## not a heading",
		"```",
		"#### Deep dive!",
		"##### Too deep",
		"##No space",
		"~~~~",
		"### fenced too",
		"```",
		"still fenced",
		"~~~~",
		"## Introduction",
		"## Wrap up  ",
	}, "\n")

	assert.Equal(t, []TOCItem{
		{ID: "introduction", Text: "Introduction", Level: 2},
		{ID: "setting-up-cdk", Text: "Setting up CDK", Level: 3},
		{ID: "deep-dive", Text: "Deep dive!", Level: 4},
		{ID: "introduction-1", Text: "Introduction", Level: 2},
		{ID: "wrap-up", Text: "Wrap up", Level: 2},
	}, TableOfContents(doc))
}

func TestTableOfContentsEmpty(t *testing.T) {
	assert.Empty(t, TableOfContents(""))
	assert.Empty(t, TableOfContents("plain text\n# only h1\n"))
}

func TestTableOfContentsLevels(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		level := rapid.IntRange(2, 4).Draw(t, "level")
		word := rapid.StringMatching(`[A-Za-z][A-Za-z0-9]{0,15}`).Draw(t, "word")

		toc := TableOfContents(strings.Repeat("#", level) + " " + word + "\n")
		if len(toc) != 1 {
			t.Fatalf("expected one heading, got %v", toc)
		}
		if toc[0].Level != level || toc[0].ID != strings.ToLower(word) {
			t.Fatalf("unexpected item %+v for level %d word %q", toc[0], level, word)
		}
	})
}

func TestRenderHTML(t *testing.T) {
	html, err := RenderHTML("## Hello World!\n\nSome *text*.\n\n## Hello World!\n\n| a | b |\n|---|---|\n| 1 | 2 |\n\n<script>alert(1)</script>\n")
	require.NoError(t, err)

	assert.Contains(t, html, `<h2 id="hello-world">Hello World!</h2>`)
	assert.Contains(t, html, `<h2 id="hello-world-1">Hello World!</h2>`)
	assert.Contains(t, html, "<em>text</em>")
	assert.Contains(t, html, "<table>")
	assert.NotContains(t, html, "<script>")
}

func TestRenderMatchesTableOfContents(t *testing.T) {
	p, err := ParsePost("toc", []byte("---\ntitle: toc\n---\n## Why CDK?\n\n### Step 1: bootstrap\n"))
	require.NoError(t, err)

	html, err := p.HTML()
	require.NoError(t, err)
	for _, item := range TableOfContents(p.Content) {
		assert.Contains(t, html, `id="`+item.ID+`"`)
	}
}
