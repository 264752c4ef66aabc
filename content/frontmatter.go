package content

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"path"
	"sort"
	"strings"
	"time"
	"unicode"

	"github.com/adrg/frontmatter"
	"github.com/araddon/dateparse"
)

var (
	// ErrNoFrontMatter is returned when an entry file has no metadata header.
	ErrNoFrontMatter = errors.New("front matter missing")
	// ErrMalformedFrontMatter is returned when the header does not decode.
	ErrMalformedFrontMatter = errors.New("front matter malformed")
)

// Header is the decoded metadata block of an entry file. Keys are kept as
// written; nested mappings are normalized to map[string]any.
type Header map[string]any

// known header keys, consumed by NewPost and excluded from Post.Extra.
var knownKeys = map[string]struct{}{
	"slug": {}, "title": {}, "description": {}, "summary": {}, "date": {},
	"categories": {}, "category": {}, "tags": {}, "links": {}, "image": {}, "cover": {},
}

// ParseEntry splits source into its front-matter header and Markdown body.
// YAML (---), TOML (+++) and JSON (;;;) headers are accepted.
func ParseEntry(source []byte) (Header, []byte, error) {
	var raw map[string]any
	body, err := frontmatter.MustParse(bytes.NewReader(source), &raw)
	if err != nil {
		if errors.Is(err, frontmatter.ErrNotFound) {
			if opensHeader(source) {
				return nil, nil, fmt.Errorf("%w: header is never closed", ErrMalformedFrontMatter)
			}
			return nil, nil, ErrNoFrontMatter
		}
		return nil, nil, fmt.Errorf("%w: %v", ErrMalformedFrontMatter, err)
	}
	hdr := make(Header, len(raw))
	for k, v := range raw {
		hdr[k] = normalizeValue(v)
	}
	return hdr, body, nil
}

// opensHeader reports whether the first non-blank line of source is a
// front-matter delimiter.
func opensHeader(source []byte) bool {
	source = bytes.TrimPrefix(source, []byte("\ufeff"))
	for _, line := range bytes.Split(source, []byte("\n")) {
		line = bytes.TrimSpace(line)
		if len(line) == 0 {
			continue
		}
		switch string(line) {
		case "---", "+++", ";;;":
			return true
		}
		return false
	}
	return false
}

// NewPost builds a Post from the entry file at file inside the post
// directory dir. A header that cannot be parsed is returned as an error;
// field-level problems are returned as issues alongside a usable Post.
func NewPost(dir, file string, source []byte, modTime time.Time) (Post, []Issue, error) {
	hdr, body, err := ParseEntry(source)
	if err != nil {
		return Post{}, nil, err
	}

	sum := sha256.Sum256(source)
	p := Post{
		Slug:     strings.TrimSpace(hdr.String("slug")),
		Title:    strings.TrimSpace(hdr.String("title")),
		Body:     string(body),
		Dir:      dir,
		File:     file,
		Checksum: hex.EncodeToString(sum[:]),
		ModTime:  modTime,
		Raw:      map[string]any(hdr),
		Extra:    map[string]any{},
	}
	if p.Slug == "" {
		p.Slug = path.Base(dir)
	}
	p.Description = strings.TrimSpace(hdr.String("description"))
	if p.Description == "" {
		p.Description = strings.TrimSpace(hdr.String("summary"))
	}
	p.Image = strings.TrimSpace(hdr.String("image"))
	if p.Image == "" {
		p.Image = strings.TrimSpace(hdr.String("cover"))
	}
	for k, v := range hdr {
		if _, ok := knownKeys[strings.ToLower(k)]; !ok {
			p.Extra[k] = v
		}
	}

	var issues []Issue
	report := func(rule, format string, args ...any) {
		issues = append(issues, Issue{
			Severity: SeverityError,
			Rule:     rule,
			Path:     file,
			Slug:     p.Slug,
			Message:  fmt.Sprintf(format, args...),
		})
	}

	date, text, err := ParseDate(hdr["date"])
	p.Date, p.DateText = date, text
	if err != nil {
		report(RuleDate, "%v", err)
	}

	categories := hdr["categories"]
	if categories == nil {
		categories = hdr["category"]
	}
	if p.Categories, err = StringSet(categories); err != nil {
		report(RuleTaxonomy, "categories: %v", err)
	}
	if p.Tags, err = StringSet(hdr["tags"]); err != nil {
		report(RuleTaxonomy, "tags: %v", err)
	}
	if p.Links, err = ParseLinks(hdr["links"]); err != nil {
		report(RuleLinks, "%v", err)
	}
	return p, issues, nil
}

// String returns the header value for key when it is a scalar.
func (h Header) String(key string) string {
	switch v := h[key].(type) {
	case nil:
		return ""
	case string:
		return v
	case time.Time:
		return v.Format(time.RFC3339)
	case map[string]any, []any:
		return ""
	default:
		return fmt.Sprint(v)
	}
}

// ParseDate normalizes a header date value. Native YAML/TOML timestamps are
// used as is; strings go through dateparse. Results are in UTC.
func ParseDate(v any) (time.Time, string, error) {
	switch d := v.(type) {
	case nil:
		return time.Time{}, "", errors.New("date is missing")
	case time.Time:
		if d.IsZero() {
			return time.Time{}, "", errors.New("date is zero")
		}
		return d.UTC(), d.Format(time.RFC3339), nil
	case string:
		text := strings.TrimSpace(d)
		if text == "" {
			return time.Time{}, "", errors.New("date is empty")
		}
		if !dateShaped(text) {
			return time.Time{}, text, fmt.Errorf("date %q is not a well-formed timestamp", text)
		}
		t, err := dateparse.ParseIn(text, time.UTC)
		if err != nil || t.Year() < minDateYear {
			return time.Time{}, text, fmt.Errorf("date %q is not a well-formed timestamp", text)
		}
		return t.UTC(), text, nil
	case map[string]any, []any, bool:
		return time.Time{}, "", fmt.Errorf("date has unsupported type %T", v)
	default:
		text := fmt.Sprint(d)
		return time.Time{}, text, fmt.Errorf("date %q is not a well-formed timestamp", text)
	}
}

// minDateYear rejects lenient parses of numbers such as "3.14" (year 0).
const minDateYear = 1000

// dateShaped reports whether text carries more than a bare number: either
// several digit groups, a month name, or a compact form like 20210304.
func dateShaped(text string) bool {
	groups, digits := 0, 0
	inGroup, letters := false, false
	for _, r := range text {
		switch {
		case unicode.IsDigit(r):
			digits++
			if !inGroup {
				groups++
			}
			inGroup = true
		default:
			inGroup = false
			if unicode.IsLetter(r) {
				letters = true
			}
		}
	}
	switch {
	case groups == 0:
		return false
	case groups == 1 && !letters:
		return digits >= 8
	}
	return true
}

// StringSet turns a list or comma-separated string into a set of trimmed,
// non-empty values. Duplicates are dropped case-insensitively; the first
// spelling wins and order is preserved.
func StringSet(v any) ([]string, error) {
	var vals []string
	switch s := v.(type) {
	case nil:
		return nil, nil
	case string:
		vals = strings.Split(s, ",")
	case []any:
		for i, item := range s {
			switch item.(type) {
			case map[string]any, []any, nil:
				return nil, fmt.Errorf("item %d is not a scalar", i)
			}
			vals = append(vals, fmt.Sprint(item))
		}
	case []string:
		vals = s
	default:
		return nil, fmt.Errorf("expected a list or string, got %T", v)
	}

	seen := make(map[string]struct{}, len(vals))
	var out []string
	for _, val := range vals {
		val = strings.TrimSpace(val)
		if val == "" {
			continue
		}
		key := strings.ToLower(val)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, val)
	}
	return out, nil
}

// ParseLinks accepts a single URL, a list of URLs or {title, url} mappings,
// or a mapping of title to URL.
func ParseLinks(v any) ([]Link, error) {
	switch l := v.(type) {
	case nil:
		return nil, nil
	case string:
		if strings.TrimSpace(l) == "" {
			return nil, nil
		}
		return []Link{{URL: strings.TrimSpace(l)}}, nil
	case []any:
		links := make([]Link, 0, len(l))
		for i, item := range l {
			switch it := item.(type) {
			case string:
				links = append(links, Link{URL: strings.TrimSpace(it)})
			case map[string]any:
				link, ok := linkFromMap(it)
				if !ok {
					return nil, fmt.Errorf("link %d has no url", i)
				}
				links = append(links, link)
			default:
				return nil, fmt.Errorf("link %d has unsupported type %T", i, item)
			}
		}
		return links, nil
	case map[string]any:
		if link, ok := linkFromMap(l); ok {
			return []Link{link}, nil
		}
		titles := make([]string, 0, len(l))
		for k := range l {
			titles = append(titles, k)
		}
		sort.Strings(titles)
		links := make([]Link, 0, len(l))
		for _, title := range titles {
			u, ok := l[title].(string)
			if !ok {
				return nil, fmt.Errorf("link %q has no url", title)
			}
			links = append(links, Link{Title: title, URL: strings.TrimSpace(u)})
		}
		return links, nil
	default:
		return nil, fmt.Errorf("links has unsupported type %T", v)
	}
}

func linkFromMap(m map[string]any) (Link, bool) {
	h := Header(m)
	u := h.String("url")
	if u == "" {
		u = h.String("href")
	}
	if strings.TrimSpace(u) == "" {
		return Link{}, false
	}
	title := h.String("title")
	if title == "" {
		title = h.String("name")
	}
	return Link{Title: strings.TrimSpace(title), URL: strings.TrimSpace(u)}, true
}

// normalizeValue converts the map[interface{}]interface{} values produced by
// the YAML decoder into map[string]any so headers can be re-encoded as JSON.
func normalizeValue(v any) any {
	switch t := v.(type) {
	case map[any]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[fmt.Sprint(k)] = normalizeValue(val)
		}
		return out
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = normalizeValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	case []map[string]any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = normalizeValue(val)
		}
		return out
	default:
		return v
	}
}
