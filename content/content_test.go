package content

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func post(frontMatter, body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("---\n" + frontMatter + "---\n" + body)}
}

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"cdk-pipelines.mdx": post(`title: CDK Pipelines
description: Self mutating pipelines
date: 2024-03-01
tags: [CDK, DevOps]
featured: true
`, "## Setup\n\nSome words here.\n"),
		"route53.md": post(`title: Route 53 tips
description: DNS things
date: "2024-05-10"
updated: 2024-06-01
tags: [AWS, DNS]
`, "Body\n"),
		"draft.mdx": post(`title: Work in progress
date: 2024-07-01
draft: true
tags: [secret]
`, "tbd\n"),
		"amplify.mdx": post(`title: Amplify hosting
description: Next.js on Amplify
date: 2024-05-10T08:00:00Z
tags: [aws, Amplify]
featured: true
`, "Body\n"),
		"notes.txt":      &fstest.MapFile{Data: []byte("ignored")},
		"drafts/old.mdx": post("title: nested\n", ""),
		"s3-basics.mdx":  post("title: S3 basics\ndate: 2023-01-01\nfeatured: true\n", "x\n"),
		"iam-policy.mdx": post("title: IAM\ndate: 2023-02-01\nfeatured: true\n", "x\n"),
		"cloudfront.mdx": post("title: CloudFront\ndate: 2023-03-01\nfeatured: true\n", "x\n"),
		"no-front.md":    &fstest.MapFile{Data: []byte("# Just a body\n")},
	}
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewStore(testFS())
	require.NoError(t, err)
	return s
}

func slugs(posts []PostMeta) []string {
	out := make([]string, len(posts))
	for i, p := range posts {
		out[i] = p.Slug
	}
	return out
}

func TestNewStore(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, 8, s.Len())

	p, err := s.PostBySlug("route53")
	require.NoError(t, err)
	assert.Equal(t, "Route 53 tips", p.Title)
	assert.Equal(t, time.Date(2024, 5, 10, 0, 0, 0, 0, time.UTC), p.Date)
	assert.Equal(t, time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC), p.LastModified())
	assert.Equal(t, []string{"AWS", "DNS"}, p.Tags)
	assert.Equal(t, "Body\n", p.Content)

	bare, err := s.PostBySlug("no-front")
	require.NoError(t, err)
	assert.Equal(t, "", bare.Title)
	assert.Equal(t, []string{}, bare.Tags)
	assert.True(t, bare.Date.IsZero())
	assert.Equal(t, "# Just a body\n", bare.Content)
}

func TestAllPostsOrder(t *testing.T) {
	s := newTestStore(t)

	got := slugs(s.AllPostsMeta())
	assert.Equal(t, []string{
		"amplify",
		"route53",
		"cdk-pipelines",
		"cloudfront",
		"iam-policy",
		"s3-basics",
		"no-front",
	}, got)
	assert.NotContains(t, got, "draft")
}

func TestPostBySlug(t *testing.T) {
	s := newTestStore(t)

	draft, err := s.PostBySlug("draft")
	require.NoError(t, err)
	assert.True(t, draft.Draft)

	_, err = s.PostBySlug("missing")
	assert.True(t, errors.Is(err, ErrPostNotFound))
}

func TestFeaturedPosts(t *testing.T) {
	s := newTestStore(t)
	assert.Equal(t, []string{"amplify", "cdk-pipelines", "cloudfront", "iam-policy"}, slugs(s.FeaturedPosts()))
}

func TestLatestPosts(t *testing.T) {
	s := newTestStore(t)
	assert.Len(t, s.LatestPosts(0), DefaultPostCount)
	assert.Equal(t, []string{"amplify", "route53"}, slugs(s.LatestPosts(2)))
	assert.Len(t, s.LatestPosts(100), 7)
}

func TestTags(t *testing.T) {
	s := newTestStore(t)

	assert.Equal(t, []string{"AWS", "Amplify", "CDK", "DNS", "DevOps", "aws"}, s.AllTags())
	assert.Equal(t, []string{"amplify", "route53"}, slugs(s.PostsByTag("AWS")))
	assert.Empty(t, s.PostsByTag("secret"))
}

func TestSearch(t *testing.T) {
	all := newTestStore(t).AllPostsMeta()

	assert.Equal(t, all, Search(all, ""))
	assert.Equal(t, all, Search(all, "   "))
	assert.Equal(t, []string{"cdk-pipelines"}, slugs(Search(all, "MUTATING")))
	assert.Equal(t, []string{"route53"}, slugs(Search(all, "dns")))
	assert.Equal(t, []string{"amplify"}, slugs(Search(all, "amp")))
	assert.Empty(t, Search(all, "kubernetes"))
}

func TestNewStoreErrors(t *testing.T) {
	_, err := NewStore(fstest.MapFS{
		"a.md":  post("title: a\n", ""),
		"a.mdx": post("title: b\n", ""),
	})
	assert.ErrorContains(t, err, `duplicate post slug "a"`)

	_, err = NewStore(fstest.MapFS{"bad.mdx": post("date: yesterday\n", "")})
	assert.ErrorContains(t, err, "unrecognised date")

	_, err = NewStore(fstest.MapFS{"bad.mdx": post("tags: [unclosed\n", "")})
	assert.ErrorContains(t, err, "parsing front matter of bad")
}

func TestOpen(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "hello.mdx"),
		[]byte("---\ntitle: Hello\ndate: 2024-01-02\n---\nhi\n"), 0o600))

	s, err := Open(dir)
	require.NoError(t, err)
	assert.Equal(t, []string{"hello"}, slugs(s.AllPostsMeta()))

	_, err = Open(filepath.Join(dir, "hello.mdx"))
	assert.ErrorContains(t, err, "not a directory")

	_, err = Open(filepath.Join(dir, "missing"))
	assert.Error(t, err)
}

func TestSplitFrontMatter(t *testing.T) {
	header, body := splitFrontMatter([]byte("---\r\ntitle: x\r\n---\r\nbody"))
	assert.Equal(t, "title: x\r\n", string(header))
	assert.Equal(t, "body", string(body))

	header, body = splitFrontMatter([]byte("---\ntitle: x\n"))
	assert.Nil(t, header)
	assert.Equal(t, "---\ntitle: x\n", string(body))

	header, body = splitFrontMatter([]byte("---\n---"))
	assert.Equal(t, "", string(header))
	assert.Nil(t, body)
}

func TestReadingTime(t *testing.T) {
	assert.Equal(t, "1 min read", ReadingTime(""))
	assert.Equal(t, "1 min read", ReadingTime("one two three"))
	assert.Equal(t, "1 min read", ReadingTime(strings.Repeat("word ", 200)))
	assert.Equal(t, "2 min read", ReadingTime(strings.Repeat("word ", 201)))
	assert.Equal(t, "5 min read", ReadingTime(strings.Repeat("word\n", 1000)))
}
