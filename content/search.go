package content

import "strings"

// Search returns the posts whose title, description or one of whose tags
// contains query, ignoring case. An empty query matches every post.
func Search(posts []PostMeta, query string) []PostMeta {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return posts
	}

	var matches []PostMeta
	for _, p := range posts {
		if matchesQuery(p, q) {
			matches = append(matches, p)
		}
	}
	return matches
}

func matchesQuery(p PostMeta, q string) bool {
	if strings.Contains(strings.ToLower(p.Title), q) ||
		strings.Contains(strings.ToLower(p.Description), q) {
		return true
	}
	for _, tag := range p.Tags {
		if strings.Contains(strings.ToLower(tag), q) {
			return true
		}
	}
	return false
}
