// Package markdown renders post bodies to HTML and inspects their links.
package markdown

import (
	"bytes"
	"context"
	"fmt"
	"html"
	"io"
	"net/url"
	"strings"
	"unicode/utf8"

	"github.com/a-h/templ"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/renderer"
	ghtml "github.com/yuin/goldmark/renderer/html"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"
)

// Options tunes a Renderer.
type Options struct {
	// Unsafe passes raw HTML in the body through instead of omitting it.
	Unsafe bool
	// HardWraps renders soft line breaks as <br>.
	HardWraps bool
}

// Renderer converts Markdown bodies to HTML. It is safe for concurrent use.
type Renderer struct {
	md goldmark.Markdown
}

// New builds a Renderer with GFM, linkify, task lists and footnotes enabled.
func New(opts Options) *Renderer {
	rendererOptions := []renderer.Option{ghtml.WithXHTML()}
	if opts.Unsafe {
		rendererOptions = append(rendererOptions, ghtml.WithUnsafe())
	}
	if opts.HardWraps {
		rendererOptions = append(rendererOptions, ghtml.WithHardWraps())
	}
	return &Renderer{md: goldmark.New(
		goldmark.WithExtensions(
			extension.GFM,
			extension.Linkify,
			extension.TaskList,
			extension.Footnote,
		),
		goldmark.WithParserOptions(
			parser.WithAutoHeadingID(),
			parser.WithASTTransformers(util.Prioritized(imageBaseTransformer{}, 500)),
		),
		goldmark.WithRendererOptions(rendererOptions...),
	)}
}

var defaultRenderer = New(Options{})

// Render converts source to HTML.
func (r *Renderer) Render(source []byte) ([]byte, error) {
	return r.RenderAt(source, "")
}

// RenderAt converts source to HTML, pointing images that name a file next
// to the entry (cover.png, ./cover.png) at imageBase + file. An empty
// imageBase leaves image destinations as written.
func (r *Renderer) RenderAt(source []byte, imageBase string) ([]byte, error) {
	pc := parser.NewContext()
	pc.Set(imageBaseKey, imageBase)
	var buf bytes.Buffer
	if err := r.md.Convert(source, &buf, parser.WithContext(pc)); err != nil {
		return nil, fmt.Errorf("markdown render: %w", err)
	}
	return buf.Bytes(), nil
}

// Render converts source to HTML with the default renderer.
func Render(source []byte) ([]byte, error) {
	return defaultRenderer.Render(source)
}

// Markdown returns a templ.Component that renders content as HTML.
func Markdown(content string) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		out, err := Render([]byte(content))
		if err != nil {
			return err
		}
		_, err = w.Write(out)
		return err
	})
}

var imageBaseKey = parser.NewContextKey()

type imageBaseTransformer struct{}

func (imageBaseTransformer) Transform(doc *ast.Document, _ text.Reader, pc parser.Context) {
	base, _ := pc.Get(imageBaseKey).(string)
	if base == "" {
		return
	}
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if img, ok := n.(*ast.Image); ok && entering {
			if file, ok := LocalFile(string(img.Destination)); ok {
				img.Destination = []byte(base + file)
			}
		}
		return ast.WalkContinue, nil
	})
}

// LocalFile returns the file name ref points at when ref names a file in the
// entry's own directory, with or without a leading "./". URLs, absolute
// paths, anchors and paths into subdirectories are not local files.
func LocalFile(ref string) (string, bool) {
	ref = strings.TrimSpace(ref)
	if ref == "" || strings.ContainsAny(ref, ":#?") || strings.HasPrefix(ref, "/") {
		return "", false
	}
	ref = strings.TrimPrefix(ref, "./")
	if ref == "" || strings.HasPrefix(ref, ".") || strings.ContainsAny(ref, `/\`) {
		return "", false
	}
	return ref, true
}

// Ref is a link or image destination found in a body.
type Ref struct {
	Destination string
	Image       bool
}

// References returns every link, autolink and image destination in source,
// in document order.
func References(source []byte) []Ref {
	doc := defaultRenderer.md.Parser().Parse(text.NewReader(source))
	var refs []Ref
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}
		switch v := n.(type) {
		case *ast.Link:
			refs = append(refs, Ref{Destination: string(v.Destination)})
		case *ast.Image:
			refs = append(refs, Ref{Destination: string(v.Destination), Image: true})
		case *ast.AutoLink:
			if v.AutoLinkType == ast.AutoLinkURL {
				refs = append(refs, Ref{Destination: string(v.URL(source))})
			}
		}
		return ast.WalkContinue, nil
	})
	return refs
}

// Excerpt returns up to n runes of the body's prose, cut at a word boundary.
// Code blocks and raw HTML are skipped.
func Excerpt(source []byte, n int) string {
	doc := defaultRenderer.md.Parser().Parse(text.NewReader(source))
	var b strings.Builder
	_ = ast.Walk(doc, func(node ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node.Kind() {
		case ast.KindFencedCodeBlock, ast.KindCodeBlock, ast.KindHTMLBlock, ast.KindRawHTML:
			return ast.WalkSkipChildren, nil
		}
		if !entering {
			if node.Type() == ast.TypeBlock {
				b.WriteByte(' ')
			}
			return ast.WalkContinue, nil
		}
		switch v := node.(type) {
		case *ast.Text:
			b.Write(v.Segment.Value(source))
			if v.SoftLineBreak() || v.HardLineBreak() {
				b.WriteByte(' ')
			}
		case *ast.String:
			b.Write(v.Value)
		}
		return ast.WalkContinue, nil
	})

	prose := strings.Join(strings.Fields(b.String()), " ")
	if n <= 0 || utf8.RuneCountInString(prose) <= n {
		return prose
	}
	runes := []rune(prose)
	cut := string(runes[:n])
	if i := strings.LastIndexByte(cut, ' '); i > 0 {
		cut = cut[:i]
	}
	return strings.TrimRight(cut, " ,.;:") + "…"
}

// SafeURL validates and sanitizes a URL for use in HTML attributes.
func SafeURL(raw string) string {
	val := strings.TrimSpace(html.UnescapeString(raw))
	if val == "" {
		return ""
	}
	if strings.HasPrefix(val, "/") || strings.HasPrefix(val, "#") {
		return html.EscapeString(val)
	}
	parsed, err := url.Parse(val)
	if err != nil || parsed.Scheme == "" {
		return ""
	}
	switch strings.ToLower(parsed.Scheme) {
	case "http", "https", "mailto", "tel":
		return html.EscapeString(val)
	default:
		return ""
	}
}
