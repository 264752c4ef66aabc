package check

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/goliatone/go-slug"

	"github.com/eringen/pubcorpus/content"
)

// Rule names reported by the built-in rules.
const (
	RuleSlugUnique = "slug-unique"
	RuleSlugFormat = "slug-format"
	RuleFields     = "fields"
	RuleImage      = "image"
	RuleLinks      = "internal-links"
	RuleSchema     = "schema"
)

// loadRule surfaces the problems raised while loading: missing or malformed
// front matter, ambiguous entries, bad dates and taxonomy.
type loadRule struct{}

func (loadRule) Name() string { return content.RuleFrontMatter }

func (loadRule) Check(_ context.Context, c *content.Corpus) []content.Issue {
	return append([]content.Issue(nil), c.Issues()...)
}

// slugUniqueRule reports every post whose slug collides with another one.
// Slugs are compared case-insensitively since they become URL paths.
type slugUniqueRule struct{}

func (slugUniqueRule) Name() string { return RuleSlugUnique }

func (slugUniqueRule) Check(_ context.Context, c *content.Corpus) []content.Issue {
	groups := map[string][]content.Post{}
	for _, p := range c.Posts() {
		key := strings.ToLower(p.Slug)
		groups[key] = append(groups[key], p)
	}
	var issues []content.Issue
	for _, posts := range groups {
		if len(posts) < 2 {
			continue
		}
		for _, p := range posts {
			var others []string
			for _, o := range posts {
				if o.File != p.File {
					others = append(others, o.File)
				}
			}
			sort.Strings(others)
			issues = append(issues, issue(content.SeverityError, RuleSlugUnique, p,
				"slug %q is also used by %s", p.Slug, strings.Join(others, ", ")))
		}
	}
	return issues
}

type slugFormatRule struct{}

func (slugFormatRule) Name() string { return RuleSlugFormat }

func (slugFormatRule) Check(_ context.Context, c *content.Corpus) []content.Issue {
	var issues []content.Issue
	for _, p := range c.Posts() {
		if slug.IsValid(p.Slug) {
			continue
		}
		msg := fmt.Sprintf("slug %q is not URL safe", p.Slug)
		if normalized, err := slug.Normalize(p.Slug); err == nil && normalized != "" {
			msg += fmt.Sprintf(" (try %q)", normalized)
		}
		issues = append(issues, issue(content.SeverityError, RuleSlugFormat, p, "%s", msg))
	}
	return issues
}

// dateRule warns about dates in the future. Missing and malformed dates are
// raised by the loader.
type dateRule struct {
	now func() time.Time
}

func (dateRule) Name() string { return content.RuleDate }

func (r dateRule) Check(_ context.Context, c *content.Corpus) []content.Issue {
	now := r.now()
	var issues []content.Issue
	for _, p := range c.Posts() {
		if p.Date.IsZero() || !p.Date.After(now) {
			continue
		}
		issues = append(issues, issue(content.SeverityWarning, content.RuleDate, p,
			"date %s is in the future", p.Date.Format("2006-01-02")))
	}
	return issues
}

const (
	maxTitleLen       = 200
	maxDescriptionLen = 500
	maxTermLen        = 64
)

type fieldsRule struct{}

func (fieldsRule) Name() string { return RuleFields }

func (fieldsRule) Check(_ context.Context, c *content.Corpus) []content.Issue {
	var issues []content.Issue
	for _, p := range c.Posts() {
		if err := validatePost(p); err != nil {
			issues = append(issues, fieldIssues(p, err)...)
		}
		if strings.TrimSpace(p.Description) == "" {
			issues = append(issues, issue(content.SeverityWarning, RuleFields, p, "description: should not be empty"))
		}
	}
	return issues
}

func validatePost(p content.Post) error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, maxTitleLen)),
		validation.Field(&p.Description, validation.Length(0, maxDescriptionLen)),
		validation.Field(&p.Categories, validation.Each(validation.Length(1, maxTermLen), validation.By(validateTerm))),
		validation.Field(&p.Tags, validation.Each(validation.Length(1, maxTermLen), validation.By(validateTerm))),
		validation.Field(&p.Links, validation.Each(validation.By(validateLink))),
	)
}

// validateTerm rejects commas, which the index uses as the term separator.
func validateTerm(value any) error {
	term, _ := value.(string)
	if strings.Contains(term, ",") {
		return validation.NewError("validation_term_comma", "must not contain a comma")
	}
	return nil
}

func validateLink(value any) error {
	link, ok := value.(content.Link)
	if !ok {
		return validation.NewError("validation_link_type", "must be a link")
	}
	if isSiteRelative(link.URL) || isRemote(link.URL) {
		return nil
	}
	return validation.NewError("validation_link_url", "must be an absolute http(s) URL or a site-relative path")
}

func fieldIssues(p content.Post, err error) []content.Issue {
	errs, ok := err.(validation.Errors)
	if !ok {
		return []content.Issue{issue(content.SeverityError, RuleFields, p, "%v", err)}
	}
	keys := make([]string, 0, len(errs))
	for k := range errs {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	issues := make([]content.Issue, 0, len(keys))
	for _, k := range keys {
		issues = append(issues, issue(content.SeverityError, RuleFields, p, "%s: %v", k, errs[k]))
	}
	return issues
}
