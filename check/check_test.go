package check

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"strings"
	"testing"
	"testing/fstest"
	"time"

	"github.com/eringen/pubcorpus/content"
)

var fixedNow = func() time.Time { return time.Date(2021, 6, 1, 0, 0, 0, 0, time.UTC) }

func post(header, body string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte("---\n" + header + "---\n\n" + body)}
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 4, 3))
	img.Set(1, 1, color.RGBA{R: 255, A: 255})
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func run(t *testing.T, fsys fstest.MapFS, opts Options) *Report {
	t.Helper()
	corpus, err := content.NewLoader(fsys, content.LoaderConfig{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if opts.FS == nil {
		opts.FS = fsys
	}
	if opts.Now == nil {
		opts.Now = fixedNow
	}
	if opts.PostPrefix == "" {
		opts.PostPrefix = "blog"
	}
	report, err := New(opts).Run(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return report
}

func rulesOf(issues []content.Issue) map[string]int {
	out := map[string]int{}
	for _, i := range issues {
		out[i.Rule]++
	}
	return out
}

func TestCleanCorpus(t *testing.T) {
	fsys := fstest.MapFS{
		"generators/index.md": post(
			"title: Generators\ndescription: Lazy iteration.\ndate: 2021-01-10\ntags: [iterators]\nimage: cover.png\n",
			"See [context managers](../context-managers/) and [the post](/blog/context-managers/).\n\n![chart](chart.png)\n"),
		"generators/cover.png":      {Data: pngBytes(t)},
		"generators/chart.png":      {Data: pngBytes(t)},
		"context-managers/index.md": post("title: Context Managers\ndescription: with blocks.\ndate: 2021-02-01\n", "Back to [generators](../generators/).\n"),
	}

	report := run(t, fsys, Options{})
	if !report.OK() || len(report.Issues) != 0 {
		t.Fatalf("issues = %v", report.Issues)
	}
	if report.Posts != 2 {
		t.Errorf("Posts = %d, want 2", report.Posts)
	}
	if report.RunID == "" {
		t.Errorf("RunID not set")
	}
	if err := report.Err(); err != nil {
		t.Errorf("Err = %v", err)
	}
}

func TestDuplicateSlugs(t *testing.T) {
	fsys := fstest.MapFS{
		"one/index.md":   post("title: One\ndescription: d\ndate: 2021-01-01\nslug: same\n", "one"),
		"two/index.md":   post("title: Two\ndescription: d\ndate: 2021-01-02\nslug: same\n", "two"),
		"three/index.md": post("title: Three\ndescription: d\ndate: 2021-01-03\nslug: Same\n", "three"),
	}

	report := run(t, fsys, Options{})
	var dups []content.Issue
	for _, i := range report.Errors() {
		if i.Rule == RuleSlugUnique {
			dups = append(dups, i)
		}
	}
	if len(dups) != 3 {
		t.Fatalf("slug-unique issues = %v, want 3", dups)
	}
	if dups[0].Path != "one/index.md" || !strings.Contains(dups[0].Message, "three/index.md, two/index.md") {
		t.Errorf("first duplicate = %+v", dups[0])
	}

	err := report.Err()
	if !errors.Is(err, ErrCorpusInvalid) {
		t.Fatalf("Err = %v, want ErrCorpusInvalid", err)
	}
	var cerr *Error
	if !errors.As(err, &cerr) || len(cerr.Issues) == 0 {
		t.Fatalf("Err is not *Error: %T", err)
	}
}

func TestFrontMatterAndDates(t *testing.T) {
	fsys := fstest.MapFS{
		"no-header/index.md": {Data: []byte("just prose\n")},
		"bad-date/index.md":  post("title: Bad\ndescription: d\ndate: 2021-13-45\n", "x"),
		"no-date/index.md":   post("title: None\ndescription: d\n", "x"),
		"future/index.md":    post("title: Future\ndescription: d\ndate: 2031-01-01\n", "x"),
	}

	report := run(t, fsys, Options{})
	errs := rulesOf(report.Errors())
	if errs[content.RuleFrontMatter] != 1 {
		t.Errorf("frontmatter errors = %d, want 1 (%v)", errs[content.RuleFrontMatter], report.Issues)
	}
	if errs[content.RuleDate] != 2 {
		t.Errorf("date errors = %d, want 2 (%v)", errs[content.RuleDate], report.Issues)
	}
	warns := report.Warnings()
	if len(warns) != 1 || warns[0].Path != "future/index.md" || warns[0].Rule != content.RuleDate {
		t.Fatalf("warnings = %v", warns)
	}

	strict := run(t, fsys, Options{Strict: true})
	if len(strict.Warnings()) != 0 {
		t.Errorf("strict mode kept warnings: %v", strict.Warnings())
	}
	if len(strict.Errors()) != len(report.Issues) {
		t.Errorf("strict errors = %d, want %d", len(strict.Errors()), len(report.Issues))
	}
}

func TestSlugFormat(t *testing.T) {
	fsys := fstest.MapFS{
		"ok/index.md":  post("title: OK\ndescription: d\ndate: 2021-01-01\nslug: list-comprehensions\n", "x"),
		"bad/index.md": post("title: Bad\ndescription: d\ndate: 2021-01-01\nslug: \"Hello World!\"\n", "x"),
	}
	report := run(t, fsys, Options{})
	var got []content.Issue
	for _, i := range report.Issues {
		if i.Rule == RuleSlugFormat {
			got = append(got, i)
		}
	}
	if len(got) != 1 || got[0].Path != "bad/index.md" {
		t.Fatalf("slug-format issues = %v", got)
	}
}

func TestFields(t *testing.T) {
	fsys := fstest.MapFS{
		"untitled/index.md": post("date: 2021-01-01\nlinks:\n  - ftp://example.com/file\n  - /blog/untitled/\n", "x"),
		"long/index.md":     post("title: "+strings.Repeat("a", 201)+"\ndescription: d\ndate: 2021-01-01\n", "x"),
	}
	report := run(t, fsys, Options{})

	byPath := map[string][]string{}
	for _, i := range report.Issues {
		if i.Rule == RuleFields {
			byPath[i.Path] = append(byPath[i.Path], string(i.Severity)+" "+i.Message)
		}
	}
	untitled := strings.Join(byPath["untitled/index.md"], "\n")
	for _, want := range []string{"error links:", "error title:", "warning description:"} {
		if !strings.Contains(untitled, want) {
			t.Errorf("untitled issues missing %q:\n%s", want, untitled)
		}
	}
	if len(byPath["long/index.md"]) != 1 || !strings.Contains(byPath["long/index.md"][0], "title:") {
		t.Errorf("long title issues = %v", byPath["long/index.md"])
	}
}

func TestTaxonomyComma(t *testing.T) {
	fsys := fstest.MapFS{
		"cpp/index.md": post("title: C\ndescription: d\ndate: 2021-01-01\ntags: [\"c, c++\"]\ncategories: [languages]\n", "x"),
	}
	report := run(t, fsys, Options{})
	if report.OK() {
		t.Fatalf("comma in tag accepted: %v", report.Issues)
	}
	errs := report.Errors()
	if len(errs) != 1 || errs[0].Rule != RuleFields || !strings.Contains(errs[0].Message, "tags:") || !strings.Contains(errs[0].Message, "comma") {
		t.Errorf("issues = %v", errs)
	}
}

func TestImages(t *testing.T) {
	fsys := fstest.MapFS{
		"gallery/index.md": post(
			"title: Gallery\ndescription: d\ndate: 2021-01-01\nimage: missing.png\n",
			"![ok](ok.png) ![broken](broken.jpg) ![remote](https://example.com/a.png) ![vector](logo.svg)\n"),
		"gallery/ok.png":     {Data: pngBytes(t)},
		"gallery/broken.jpg": {Data: []byte("not an image")},
		"gallery/logo.svg":   {Data: []byte("<svg/>")},
	}
	report := run(t, fsys, Options{})

	var msgs []string
	for _, i := range report.Issues {
		if i.Rule == RuleImage {
			msgs = append(msgs, i.Message)
		}
	}
	if len(msgs) != 2 {
		t.Fatalf("image issues = %v, want 2", msgs)
	}
	joined := strings.Join(msgs, "\n")
	if !strings.Contains(joined, "missing.png: not found") || !strings.Contains(joined, "broken.jpg: cannot decode") {
		t.Errorf("image issues = %v", msgs)
	}
}

func TestInternalLinks(t *testing.T) {
	fsys := fstest.MapFS{
		"decorators/index.md": post("title: Decorators\ndescription: d\ndate: 2021-01-01\n",
			"[a](/blog/closures/) [b](/blog/missing/#top) [c](../gone/) [d](notes.txt) [e](data.csv) [f](/about/) [g](#section)\n"),
		"decorators/notes.txt": {Data: []byte("notes")},
		"closures/index.md":    post("title: Closures\ndescription: d\ndate: 2021-01-01\n", "x"),
	}
	report := run(t, fsys, Options{})

	var msgs []string
	for _, i := range report.Issues {
		if i.Rule == RuleLinks {
			msgs = append(msgs, i.Message)
		}
	}
	want := []string{
		"link ../gone/: no post or file named gone",
		"link /blog/missing/#top: no post with slug missing",
		"link data.csv: file decorators/data.csv not found",
	}
	if len(msgs) != len(want) {
		t.Fatalf("link issues = %v, want %v", msgs, want)
	}
	for i := range want {
		if msgs[i] != want[i] {
			t.Errorf("issue[%d] = %q, want %q", i, msgs[i], want[i])
		}
	}
}

func TestSchema(t *testing.T) {
	schema, err := CompileSchema([]byte(`{
		"type": "object",
		"required": ["title", "date", "tags"],
		"properties": {
			"title": {"type": "string"},
			"tags": {"type": "array", "items": {"type": "string"}, "minItems": 1}
		}
	}`))
	if err != nil {
		t.Fatalf("CompileSchema: %v", err)
	}
	fsys := fstest.MapFS{
		"good/index.md": post("title: Good\ndescription: d\ndate: 2021-01-01\ntags: [a]\n", "x"),
		"bad/index.md":  post("title: Bad\ndescription: d\ndate: 2021-01-01\n", "x"),
	}
	report := run(t, fsys, Options{Schema: schema})

	var got []content.Issue
	for _, i := range report.Issues {
		if i.Rule == RuleSchema {
			got = append(got, i)
		}
	}
	if len(got) != 1 || got[0].Path != "bad/index.md" || !strings.Contains(got[0].Message, "tags") {
		t.Fatalf("schema issues = %v", got)
	}

	if _, err := CompileSchema([]byte(`{"type": 12}`)); err == nil {
		t.Errorf("CompileSchema accepted an invalid schema")
	}
}

func TestCustomRuleAndCancel(t *testing.T) {
	fsys := fstest.MapFS{
		"only/index.md": post("title: Only\ndescription: d\ndate: 2021-01-01\n", "x"),
	}
	corpus, err := content.NewLoader(fsys, content.LoaderConfig{}).Load(context.Background())
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	custom := RuleFunc{RuleName: "no-only", Fn: func(_ context.Context, c *content.Corpus) []content.Issue {
		p, _ := c.Get("only")
		return []content.Issue{{Severity: content.SeverityWarning, Rule: "no-only", Path: p.File, Message: "lonely"}}
	}}
	checker := New(Options{FS: fsys, Now: fixedNow}, custom)
	names := checker.Rules()
	if names[len(names)-1] != "no-only" {
		t.Errorf("Rules = %v", names)
	}

	report, err := checker.Run(context.Background(), corpus)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if len(report.Warnings()) != 1 || !report.OK() {
		t.Errorf("report = %+v", report.Issues)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := checker.Run(ctx, corpus); !errors.Is(err, context.Canceled) {
		t.Errorf("Run(canceled) err = %v", err)
	}
}
