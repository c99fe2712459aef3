package application

import (
	"bytes"
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

const (
	maxLength     = 200
	postIndexFile = "index.markdown"
)

var slugContextKey = parser.NewContextKey()

// MarkdownProcessingResult contains the results of rendering a post body
type MarkdownProcessingResult struct {
	Snippet     string
	HTMLContent []byte
}

// relativeLinkTransformer points relative destinations at the public URLs of
// the post being rendered: files become /post/<slug>/media/<file> and post
// directories become /post/<slug>/.
type relativeLinkTransformer struct{}

func (t *relativeLinkTransformer) Transform(node *ast.Document, reader text.Reader, pc parser.Context) {
	slug, _ := pc.Get(slugContextKey).(string)
	if slug == "" {
		return
	}

	ast.Walk(node, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch v := n.(type) {
		case *ast.Link:
			if dest, ok := rewriteDestination(slug, string(v.Destination)); ok {
				v.Destination = []byte(dest)
			}
		case *ast.Image:
			if dest, ok := rewriteDestination(slug, string(v.Destination)); ok {
				v.Destination = []byte(dest)
			}
		}

		return ast.WalkContinue, nil
	})
}

// rewriteDestination resolves dest against the directory of post slug.
// ok is false when dest is not relative or escapes the posts directory.
func rewriteDestination(slug string, dest string) (string, bool) {
	if !isRelativeLink(dest) {
		return "", false
	}

	suffix := ""
	if idx := strings.IndexAny(dest, "?#"); idx >= 0 {
		dest, suffix = dest[:idx], dest[idx:]
	}

	resolved := path.Clean(path.Join(slug, dest))
	if resolved == "." || resolved == ".." || strings.HasPrefix(resolved, "../") {
		return "", false
	}

	post, file, _ := strings.Cut(resolved, "/")
	if file == "" || file == postIndexFile {
		return "/post/" + post + "/" + suffix, true
	}
	return "/post/" + post + "/media/" + file + suffix, true
}

func isRelativeLink(dest string) bool {
	if dest == "" || strings.HasPrefix(dest, "#") {
		return false
	}

	// site absolute and protocol relative
	if strings.HasPrefix(dest, "/") {
		return false
	}

	if strings.HasPrefix(dest, "./") || strings.HasPrefix(dest, "../") {
		return true
	}

	if strings.Contains(dest, ":") {
		return false
	}

	return true
}

// MarkdownRenderer defines the interface for converting markdown to HTML.
type MarkdownRenderer interface {
	Render(slug string, markdown []byte) (*MarkdownProcessingResult, error)
}

type goldmarkRenderer struct {
	renderer goldmark.Markdown
}

func NewMarkdownRenderer() MarkdownRenderer {
	renderer := goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Table,
			extension.Strikethrough,
			extension.TaskList,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(
				util.Prioritized(&relativeLinkTransformer{}, 100),
			),
		),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
			html.WithUnsafe(),
		),
	)

	return &goldmarkRenderer{
		renderer: renderer,
	}
}

// Render converts markdown to HTML, resolving relative links against the post slug
func (r *goldmarkRenderer) Render(slug string, markdown []byte) (*MarkdownProcessingResult, error) {
	pc := parser.NewContext()
	pc.Set(slugContextKey, slug)

	var buf bytes.Buffer
	err := r.renderer.Convert(markdown, &buf, parser.WithContext(pc))
	if err != nil {
		return nil, fmt.Errorf("failed to convert markdown to HTML: %w", err)
	}

	return &MarkdownProcessingResult{
		Snippet:     extractSnippet(markdown),
		HTMLContent: buf.Bytes(),
	}, nil
}

// blockPrefixes start lines that never belong to a teaser paragraph
var blockPrefixes = []string{"```", "---", "***", "- ", "* ", "+ ", "|", "!["}

func startsBlock(line string) bool {
	for _, prefix := range blockPrefixes {
		if strings.HasPrefix(line, prefix) {
			return true
		}
	}
	return false
}

// extractSnippet returns the first prose paragraph of a post as one line,
// cut at a word boundary when it is longer than maxLength
func extractSnippet(markdown []byte) string {
	var paragraph []string

	for line := range strings.SplitSeq(string(markdown), "\n") {
		line = strings.TrimSpace(line)
		skip := line == "" || strings.HasPrefix(line, "#") || startsBlock(line)
		if skip {
			if len(paragraph) > 0 {
				break
			}
			continue
		}
		paragraph = append(paragraph, line)
	}

	snippet := strings.Join(paragraph, " ")
	if len(snippet) <= maxLength {
		return snippet
	}

	end := maxLength
	for end > 0 && !utf8.RuneStart(snippet[end]) {
		end--
	}
	snippet = snippet[:end]
	if cut := strings.LastIndexAny(snippet, " \t"); cut > 0 {
		snippet = snippet[:cut]
	}
	return snippet + "..."
}
