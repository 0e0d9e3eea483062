package content

import (
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"
)

// DefaultPostCount is the number of posts returned by FeaturedPosts and by
// LatestPosts when no count is given.
const DefaultPostCount = 4

// PostExtensions are the file extensions read as posts.
var PostExtensions = []string{".mdx", ".md"}

// Store holds the blog posts of a content directory.
type Store struct {
	posts  []Post
	bySlug map[string]int
}

// Open loads the posts in dir.
func Open(dir string) (*Store, error) {
	info, err := os.Stat(dir)
	if err != nil {
		return nil, fmt.Errorf("opening content directory: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("opening content directory: %s is not a directory", dir)
	}
	return NewStore(os.DirFS(dir))
}

// NewStore loads the posts at the root of fsys. Subdirectories are ignored.
func NewStore(fsys fs.FS) (*Store, error) {
	entries, err := fs.ReadDir(fsys, ".")
	if err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}

	s := &Store{bySlug: make(map[string]int)}
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		slug, ok := postSlug(entry.Name())
		if !ok {
			continue
		}
		if _, dup := s.bySlug[slug]; dup {
			return nil, fmt.Errorf("duplicate post slug %q", slug)
		}

		src, err := fs.ReadFile(fsys, entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", entry.Name(), err)
		}
		post, err := ParsePost(slug, src)
		if err != nil {
			return nil, err
		}

		s.bySlug[slug] = len(s.posts)
		s.posts = append(s.posts, post)
	}
	return s, nil
}

func postSlug(name string) (string, bool) {
	ext := path.Ext(name)
	for _, e := range PostExtensions {
		if strings.EqualFold(ext, e) {
			return strings.TrimSuffix(name, ext), true
		}
	}
	return "", false
}

// Len returns the number of posts, drafts included.
func (s *Store) Len() int {
	return len(s.posts)
}

// AllPosts returns the published posts, newest first.
func (s *Store) AllPosts() []Post {
	posts := make([]Post, 0, len(s.posts))
	for _, p := range s.posts {
		if !p.Draft {
			posts = append(posts, p)
		}
	}
	sort.SliceStable(posts, func(i, j int) bool {
		a, b := posts[i], posts[j]
		if !a.Date.Equal(b.Date) {
			return a.Date.After(b.Date)
		}
		return a.Slug < b.Slug
	})
	return posts
}

// AllPostsMeta returns AllPosts without their bodies.
func (s *Store) AllPostsMeta() []PostMeta {
	return metas(s.AllPosts())
}

// PostBySlug returns the post with slug. Drafts are returned too.
func (s *Store) PostBySlug(slug string) (Post, error) {
	i, ok := s.bySlug[slug]
	if !ok {
		return Post{}, fmt.Errorf("%w: %s", ErrPostNotFound, slug)
	}
	return s.posts[i], nil
}

// FeaturedPosts returns up to DefaultPostCount featured posts, newest first.
func (s *Store) FeaturedPosts() []PostMeta {
	var featured []PostMeta
	for _, p := range s.AllPosts() {
		if !p.Featured {
			continue
		}
		featured = append(featured, p.PostMeta)
		if len(featured) == DefaultPostCount {
			break
		}
	}
	return featured
}

// LatestPosts returns the n newest posts. n <= 0 means DefaultPostCount.
func (s *Store) LatestPosts(n int) []PostMeta {
	if n <= 0 {
		n = DefaultPostCount
	}
	all := s.AllPostsMeta()
	if len(all) > n {
		all = all[:n]
	}
	return all
}

// AllTags returns the distinct tags of the published posts, sorted.
func (s *Store) AllTags() []string {
	seen := make(map[string]struct{})
	for _, p := range s.AllPosts() {
		for _, tag := range p.Tags {
			seen[tag] = struct{}{}
		}
	}
	tags := make([]string, 0, len(seen))
	for tag := range seen {
		tags = append(tags, tag)
	}
	sort.Strings(tags)
	return tags
}

// PostsByTag returns the published posts tagged with tag, ignoring case.
func (s *Store) PostsByTag(tag string) []PostMeta {
	var tagged []PostMeta
	for _, p := range s.AllPosts() {
		if hasTag(p.Tags, tag) {
			tagged = append(tagged, p.PostMeta)
		}
	}
	return tagged
}

func hasTag(tags []string, tag string) bool {
	for _, t := range tags {
		if strings.EqualFold(t, tag) {
			return true
		}
	}
	return false
}

func metas(posts []Post) []PostMeta {
	out := make([]PostMeta, len(posts))
	for i, p := range posts {
		out[i] = p.PostMeta
	}
	return out
}
