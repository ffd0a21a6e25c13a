package loader

import (
	"os"
	"strings"

	"docqa/internal/domain"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// MarkdownLoader strips markdown syntax and keeps headings, paragraphs,
// list items and code blocks as plain text.
type MarkdownLoader struct{}

func (MarkdownLoader) Name() string { return "markdown" }

func (m MarkdownLoader) Load(path string) ([]domain.Page, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return []domain.Page{{Number: 0, Text: PlainText(data)}}, nil
}

// PlainText renders markdown source to plain text, one block per paragraph.
func PlainText(content []byte) string {
	md := goldmark.New()
	doc := md.Parser().Parse(text.NewReader(content))

	var buf strings.Builder
	ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if entering {
			switch node := n.(type) {
			case *ast.Text:
				buf.Write(node.Segment.Value(content))
				if node.SoftLineBreak() || node.HardLineBreak() {
					buf.WriteString("\n")
				}
			case *ast.String:
				buf.Write(node.Value)
			case *ast.CodeBlock, *ast.FencedCodeBlock:
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					buf.Write(seg.Value(content))
				}
				buf.WriteString("\n")
				return ast.WalkSkipChildren, nil
			}
			return ast.WalkContinue, nil
		}

		switch n.(type) {
		case *ast.Heading, *ast.Paragraph, *ast.TextBlock:
			buf.WriteString("\n\n")
		}
		return ast.WalkContinue, nil
	})

	return strings.TrimSpace(buf.String())
}
