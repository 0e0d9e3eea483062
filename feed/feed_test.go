package feed

import (
	"encoding/xml"
	"os"
	"path/filepath"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/buildinginthecloud/site/content"
)

var now = time.Date(2025, 2, 3, 10, 0, 0, 0, time.UTC)

func testStore(t *testing.T) *content.Store {
	t.Helper()
	store, err := content.NewStore(fstest.MapFS{
		"first.mdx": {Data: []byte("---\ntitle: First\ndescription: One\ndate: 2024-01-01\ntags: [CDK, AWS]\n---\n## Hi\n")},
		"second.mdx": {Data: []byte("---\ntitle: Second & more\ndescription: Two\ndate: 2024-02-01\n" +
			"updated: 2024-03-15\n---\nbody\n")},
		"hidden.mdx": {Data: []byte("---\ntitle: Hidden\ndate: 2024-04-01\ndraft: true\n---\n")},
	})
	require.NoError(t, err)
	return store
}

func TestRSS(t *testing.T) {
	site := DefaultSite()
	out, err := RSS(site, testStore(t).AllPosts(), now)
	require.NoError(t, err)

	assert.Contains(t, out, `<rss version="2.0"`)
	assert.Contains(t, out, "<title>Building in the Cloud</title>")
	assert.Contains(t, out, "<language>en</language>")
	assert.Contains(t, out, "All rights reserved 2025, Yvo van Zee")
	assert.Contains(t, out, "<link>https://buildinginthecloud.com/blog/first</link>")
	assert.Contains(t, out, "<category>CDK</category>")
	assert.Contains(t, out, "Second &amp; more")
	assert.NotContains(t, out, "Hidden")

	var doc struct {
		Channel struct {
			Items []struct {
				Title string `xml:"title"`
				Link  string `xml:"link"`
				GUID  string `xml:"guid"`
			} `xml:"item"`
		} `xml:"channel"`
	}
	require.NoError(t, xml.Unmarshal([]byte(out), &doc))
	require.Len(t, doc.Channel.Items, 2)
	assert.Equal(t, "Second & more", doc.Channel.Items[0].Title)
	assert.Equal(t, doc.Channel.Items[0].Link, doc.Channel.Items[0].GUID)
}

func TestSitemap(t *testing.T) {
	out, err := Sitemap(DefaultSite(), testStore(t).AllPosts(), now)
	require.NoError(t, err)

	var set urlSet
	require.NoError(t, xml.Unmarshal([]byte(out), &set))
	require.Len(t, set.URLs, 6)

	assert.Equal(t, sitemapURL{
		Loc:        "https://buildinginthecloud.com",
		LastMod:    "2025-02-03",
		ChangeFreq: Daily,
		Priority:   "1.0",
	}, set.URLs[0])
	assert.Equal(t, "https://buildinginthecloud.com/cv", set.URLs[3].Loc)
	assert.Equal(t, "0.6", set.URLs[3].Priority)

	assert.Equal(t, sitemapURL{
		Loc:        "https://buildinginthecloud.com/blog/second",
		LastMod:    "2024-03-15",
		ChangeFreq: Weekly,
		Priority:   "0.8",
	}, set.URLs[4])
	assert.Equal(t, "2024-01-01", set.URLs[5].LastMod)
	assert.Contains(t, out, `xmlns="http://www.sitemaps.org/schemas/sitemap/0.9"`)
}

func TestRobots(t *testing.T) {
	site := DefaultSite().WithURL("https://staging.example.com/")
	assert.Equal(t, "User-agent: *\nAllow: /\nDisallow: /api/\nDisallow: /admin/\n\n"+
		"Sitemap: https://staging.example.com/sitemap.xml\n", Robots(site))
}

func TestWithURL(t *testing.T) {
	assert.Equal(t, DefaultSite(), DefaultSite().WithURL(""))
	assert.Equal(t, "http://localhost:3000/blog/x", DefaultSite().WithURL("http://localhost:3000").PostURL("x"))
}

func TestWriteAll(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "public")
	require.NoError(t, WriteAll(dir, DefaultSite(), testStore(t), now))

	for _, name := range []string{FeedFile, SitemapFile, RobotsFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.NotEmpty(t, data, name)
	}
}
