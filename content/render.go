package content

import (
	"bytes"
	"fmt"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
)

var markdown = goldmark.New(
	goldmark.WithExtensions(extension.GFM),
	goldmark.WithParserOptions(parser.WithAutoHeadingID()),
)

// headingIDs makes goldmark use the same ids as TableOfContents.
type headingIDs struct {
	*slugger
}

func (h headingIDs) Generate(value []byte, _ ast.NodeKind) []byte {
	return []byte(h.slug(string(value)))
}

func (h headingIDs) Put(value []byte) {
	h.seen[string(value)]++
}

// RenderHTML renders a markdown post body to HTML. Raw HTML and JSX in the
// source are omitted from the output.
func RenderHTML(src string) (string, error) {
	ctx := parser.NewContext(parser.WithIDs(headingIDs{newSlugger()}))

	var buf bytes.Buffer
	if err := markdown.Convert([]byte(src), &buf, parser.WithContext(ctx)); err != nil {
		return "", fmt.Errorf("rendering markdown: %w", err)
	}
	return buf.String(), nil
}

// HTML renders the body of p.
func (p Post) HTML() (string, error) {
	return RenderHTML(p.Content)
}
