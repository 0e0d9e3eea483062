package content

import (
	"bufio"
	"regexp"
	"strconv"
	"strings"
)

// TOCItem is a heading of a post.
type TOCItem struct {
	ID    string `json:"id"`
	Text  string `json:"text"`
	Level int    `json:"level"`
}

var (
	headingPattern = regexp.MustCompile(`^(#{2,4})\s+(.+)$`)
	slugStrip      = regexp.MustCompile(`[^\w\s-]`)
	slugSpace      = regexp.MustCompile(`\s+`)
)

// Slugify turns heading text into an anchor id: lowercased, characters
// other than letters, digits, underscores, hyphens and whitespace removed,
// and whitespace runs replaced by a hyphen.
func Slugify(text string) string {
	s := strings.ToLower(text)
	s = slugStrip.ReplaceAllString(s, "")
	return slugSpace.ReplaceAllString(s, "-")
}

// slugger hands out unique heading ids within one document.
type slugger struct {
	seen map[string]int
}

func newSlugger() *slugger {
	return &slugger{seen: make(map[string]int)}
}

func (s *slugger) slug(text string) string {
	id := Slugify(strings.TrimSpace(text))
	if id == "" {
		id = "heading"
	}
	n, dup := s.seen[id]
	s.seen[id] = n + 1
	if !dup {
		return id
	}
	for {
		candidate := id + "-" + strconv.Itoa(n)
		if _, taken := s.seen[candidate]; !taken {
			s.seen[candidate] = 1
			return candidate
		}
		n++
	}
}

// TableOfContents returns the level 2 to 4 ATX headings of a markdown
// document in order. Headings inside fenced code blocks are skipped.
func TableOfContents(markdown string) []TOCItem {
	var (
		toc     []TOCItem
		fenceCh string
		ids     = newSlugger()
	)

	scanner := bufio.NewScanner(strings.NewReader(markdown))
	scanner.Buffer(make([]byte, 0, 64*1024), len(markdown)+1)
	for scanner.Scan() {
		line := strings.TrimRight(scanner.Text(), "\r")

		if marker := fenceMarker(line); marker != "" {
			switch {
			case fenceCh == "":
				fenceCh = marker
			case strings.HasPrefix(marker, fenceCh[:1]) && len(marker) >= len(fenceCh):
				fenceCh = ""
			}
			continue
		}
		if fenceCh != "" {
			continue
		}

		m := headingPattern.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		text := strings.TrimSpace(m[2])
		toc = append(toc, TOCItem{
			ID:    ids.slug(text),
			Text:  text,
			Level: len(m[1]),
		})
	}
	return toc
}

// fenceMarker returns the run of ``` or ~~~ opening line, or "".
func fenceMarker(line string) string {
	trimmed := strings.TrimLeft(line, " ")
	if len(line)-len(trimmed) > 3 || len(trimmed) < 3 {
		return ""
	}
	ch := trimmed[0]
	if ch != '`' && ch != '~' {
		return ""
	}
	n := 0
	for n < len(trimmed) && trimmed[n] == ch {
		n++
	}
	if n < 3 {
		return ""
	}
	return trimmed[:n]
}
