// Package check runs corpus-wide invariants (unique slugs, well-formed front
// matter and dates, resolvable references) over a loaded content.Corpus.
package check

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/eringen/pubcorpus/content"
)

// ErrCorpusInvalid is wrapped by *Error when a report holds error issues.
var ErrCorpusInvalid = errors.New("corpus invalid")

// Rule inspects a corpus and returns the issues it finds.
type Rule interface {
	Name() string
	Check(ctx context.Context, c *content.Corpus) []content.Issue
}

// RuleFunc adapts a function to the Rule interface.
type RuleFunc struct {
	RuleName string
	Fn       func(ctx context.Context, c *content.Corpus) []content.Issue
}

func (r RuleFunc) Name() string { return r.RuleName }

func (r RuleFunc) Check(ctx context.Context, c *content.Corpus) []content.Issue {
	return r.Fn(ctx, c)
}

// Options configures the default rule set.
type Options struct {
	// FS is the corpus root; image and relative-link rules need it.
	FS fs.FS
	// PostPrefix is the URL segment posts are published under (e.g. "blog").
	PostPrefix string
	// Schema, when set, is applied to every post header.
	Schema *jsonschema.Schema
	// Strict promotes warnings to errors.
	Strict bool
	// Now overrides the clock used for future-date warnings.
	Now func() time.Time
}

// Checker runs a fixed list of rules.
type Checker struct {
	rules  []Rule
	strict bool
}

// New returns a Checker with the default rules followed by extra.
func New(opts Options, extra ...Rule) *Checker {
	if opts.Now == nil {
		opts.Now = time.Now
	}
	rules := []Rule{
		loadRule{},
		slugUniqueRule{},
		slugFormatRule{},
		dateRule{now: opts.Now},
		fieldsRule{},
	}
	if opts.FS != nil {
		rules = append(rules, imageRule{fs: opts.FS})
	}
	rules = append(rules, linksRule{fs: opts.FS, prefix: strings.Trim(opts.PostPrefix, "/")})
	if opts.Schema != nil {
		rules = append(rules, schemaRule{schema: opts.Schema})
	}
	rules = append(rules, extra...)
	return &Checker{rules: rules, strict: opts.Strict}
}

// Rules returns the names of the configured rules in run order.
func (c *Checker) Rules() []string {
	names := make([]string, len(c.rules))
	for i, r := range c.rules {
		names[i] = r.Name()
	}
	return names
}

// Run applies every rule to corpus. The only error is context cancellation.
func (c *Checker) Run(ctx context.Context, corpus *content.Corpus) (*Report, error) {
	report := &Report{
		RunID:   uuid.NewString(),
		Started: time.Now().UTC(),
		Posts:   corpus.Len(),
	}
	for _, rule := range c.rules {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		report.Issues = append(report.Issues, rule.Check(ctx, corpus)...)
	}
	if c.strict {
		for i := range report.Issues {
			report.Issues[i].Severity = content.SeverityError
		}
	}
	sort.SliceStable(report.Issues, func(i, j int) bool {
		a, b := report.Issues[i], report.Issues[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		if a.Rule != b.Rule {
			return a.Rule < b.Rule
		}
		return a.Message < b.Message
	})
	report.Duration = time.Since(report.Started)
	return report, nil
}

// Report is the outcome of a Checker run.
type Report struct {
	RunID    string          `json:"run_id"`
	Started  time.Time       `json:"started"`
	Duration time.Duration   `json:"duration"`
	Posts    int             `json:"posts"`
	Issues   []content.Issue `json:"issues"`
}

// Errors returns the error-severity issues.
func (r *Report) Errors() []content.Issue {
	return r.filter(content.SeverityError)
}

// Warnings returns the warning-severity issues.
func (r *Report) Warnings() []content.Issue {
	return r.filter(content.SeverityWarning)
}

// OK reports whether the corpus has no error issues.
func (r *Report) OK() bool {
	return len(r.Errors()) == 0
}

// Err returns a *Error when the report has error issues, nil otherwise.
func (r *Report) Err() error {
	errs := r.Errors()
	if len(errs) == 0 {
		return nil
	}
	return &Error{Issues: errs}
}

func (r *Report) filter(sev content.Severity) []content.Issue {
	var out []content.Issue
	for _, i := range r.Issues {
		if i.Severity == sev {
			out = append(out, i)
		}
	}
	return out
}

// Error lists the error issues of a failed run.
type Error struct {
	Issues []content.Issue
}

func (e *Error) Error() string {
	if len(e.Issues) == 0 {
		return ErrCorpusInvalid.Error()
	}
	parts := make([]string, 0, len(e.Issues))
	for _, issue := range e.Issues {
		parts = append(parts, fmt.Sprintf("%s: %s", issue.Path, issue.Message))
	}
	return fmt.Sprintf("%s: %d error(s): %s", ErrCorpusInvalid, len(e.Issues), strings.Join(parts, "; "))
}

func (e *Error) Unwrap() error {
	return ErrCorpusInvalid
}

func issue(sev content.Severity, rule string, p content.Post, format string, args ...any) content.Issue {
	return content.Issue{
		Severity: sev,
		Rule:     rule,
		Path:     p.File,
		Slug:     p.Slug,
		Message:  fmt.Sprintf(format, args...),
	}
}
