package markdown

import (
	"bytes"
	"context"
	"strings"
	"testing"
)

func render(t *testing.T, src string) string {
	t.Helper()
	out, err := Render([]byte(src))
	if err != nil {
		t.Fatalf("Render(%q): %v", src, err)
	}
	return string(out)
}

func TestRenderInline(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"**bold**", "<strong>bold</strong>"},
		{"__bold__", "<strong>bold</strong>"},
		{"*italic*", "<em>italic</em>"},
		{"_italic_", "<em>italic</em>"},
		{"**bold *italic* text**", "<strong>bold <em>italic</em> text</strong>"},
		{"use `len(xs)` here", "<code>len(xs)</code>"},
		{"~~gone~~", "<del>gone</del>"},
	}
	for _, tt := range tests {
		got := render(t, tt.input)
		if !strings.Contains(got, tt.expected) {
			t.Errorf("Render(%q) = %q, want it to contain %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderCodeBlockWithLanguage(t *testing.T) {
	got := render(t, "```python\nprint(\"<hi>\")\n```")
	if !strings.Contains(got, `<code class="language-python">`) {
		t.Errorf("missing language class: %q", got)
	}
	if !strings.Contains(got, "&lt;hi&gt;") {
		t.Errorf("code content must be escaped: %q", got)
	}
}

func TestRenderHeadingIDs(t *testing.T) {
	got := render(t, "## Why Generators")
	if !strings.Contains(got, `<h2 id="why-generators">Why Generators</h2>`) {
		t.Errorf("Render heading = %q", got)
	}
}

func TestRenderTable(t *testing.T) {
	got := render(t, "| a | b |\n|---|---|\n| 1 | 2 |\n")
	for _, want := range []string{"<table>", "<th>a</th>", "<td>2</td>"} {
		if !strings.Contains(got, want) {
			t.Errorf("table output missing %q: %q", want, got)
		}
	}
}

func TestRenderRawHTMLOmittedByDefault(t *testing.T) {
	got := render(t, "<script>alert(1)</script>\n\ntext")
	if strings.Contains(got, "<script>") {
		t.Errorf("raw HTML passed through: %q", got)
	}

	unsafe, err := New(Options{Unsafe: true}).Render([]byte("<div class=\"note\">hi</div>\n"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(unsafe), `<div class="note">`) {
		t.Errorf("Unsafe renderer dropped HTML: %q", unsafe)
	}
}

func TestRenderHardWraps(t *testing.T) {
	out, err := New(Options{HardWraps: true}).Render([]byte("line one\nline two"))
	if err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(string(out), "line one<br />") {
		t.Errorf("expected hard wraps, got %q", out)
	}
}

func TestMarkdownComponent(t *testing.T) {
	var buf bytes.Buffer
	if err := Markdown("# Title").Render(context.Background(), &buf); err != nil {
		t.Fatalf("Render: %v", err)
	}
	if !strings.Contains(buf.String(), "Title</h1>") {
		t.Errorf("component output = %q", buf.String())
	}
}

func TestReferences(t *testing.T) {
	src := "See [the docs](https://docs.python.org/3/) and [part two](../generators-part-2/).\n\n" +
		"![diagram](diagram.png)\n\nAlso https://peps.python.org/pep-0008/ inline.\n\n" +
		"```\n[not a link](nowhere)\n```\n"

	refs := References([]byte(src))
	want := []Ref{
		{Destination: "https://docs.python.org/3/"},
		{Destination: "../generators-part-2/"},
		{Destination: "diagram.png", Image: true},
		{Destination: "https://peps.python.org/pep-0008/"},
	}
	if len(refs) != len(want) {
		t.Fatalf("References = %+v, want %+v", refs, want)
	}
	for i := range want {
		if refs[i] != want[i] {
			t.Errorf("refs[%d] = %+v, want %+v", i, refs[i], want[i])
		}
	}
}

func TestExcerpt(t *testing.T) {
	src := "# Heading\n\nGenerators are **lazy** iterators.\nThey yield values.\n\n```python\nyield 1\n```\n\nDone."

	got := Excerpt([]byte(src), 0)
	if got != "Heading Generators are lazy iterators. They yield values. Done." {
		t.Errorf("Excerpt = %q", got)
	}

	short := Excerpt([]byte(src), 20)
	if short != "Heading Generators…" {
		t.Errorf("Excerpt(20) = %q", short)
	}
}

func TestSafeURL(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"https://example.com", "https://example.com"},
		{"http://example.com", "http://example.com"},
		{"mailto:test@example.com", "mailto:test@example.com"},
		{"/blog/post", "/blog/post"},
		{"#anchor", "#anchor"},
		{"javascript:alert(1)", ""},
		{"data:text/html,<script>", ""},
		{"", ""},
		{"relative/path", ""},
	}
	for _, tt := range tests {
		got := SafeURL(tt.input)
		if got != tt.expected {
			t.Errorf("SafeURL(%q) = %q, want %q", tt.input, got, tt.expected)
		}
	}
}

func TestRenderAtRewritesLocalImages(t *testing.T) {
	src := "![diagram](cover.png) ![dot](./dot.svg) ![remote](https://cdn.example.com/a.png) ![abs](/static/a.png) ![nested](img/a.png)"
	out, err := New(Options{}).RenderAt([]byte(src), "/media/decorators/")
	if err != nil {
		t.Fatal(err)
	}
	got := string(out)
	for _, want := range []string{
		`src="/media/decorators/cover.png"`,
		`src="/media/decorators/dot.svg"`,
		`src="https://cdn.example.com/a.png"`,
		`src="/static/a.png"`,
		`src="img/a.png"`,
	} {
		if !strings.Contains(got, want) {
			t.Errorf("RenderAt output missing %s: %s", want, got)
		}
	}

	plain := render(t, "![diagram](cover.png)")
	if !strings.Contains(plain, `src="cover.png"`) {
		t.Errorf("Render without base rewrote the image: %s", plain)
	}
	if refs := References([]byte("![diagram](cover.png)")); len(refs) != 1 || refs[0].Destination != "cover.png" {
		t.Errorf("References = %v", refs)
	}
}

func TestLocalFile(t *testing.T) {
	tests := []struct {
		ref  string
		want string
		ok   bool
	}{
		{"cover.png", "cover.png", true},
		{"./cover.png", "cover.png", true},
		{"", "", false},
		{"../other/cover.png", "", false},
		{".hidden.png", "", false},
		{"img/a.png", "", false},
		{"/a.png", "", false},
		{"data:image/png;base64,AAAA", "", false},
		{"#top", "", false},
	}
	for _, tt := range tests {
		got, ok := LocalFile(tt.ref)
		if got != tt.want || ok != tt.ok {
			t.Errorf("LocalFile(%q) = %q, %v, want %q, %v", tt.ref, got, ok, tt.want, tt.ok)
		}
	}
}
