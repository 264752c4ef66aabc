package check

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/eringen/pubcorpus/content"
)

const schemaResource = "post.schema.json"

// CompileSchema compiles a Draft 2020-12 JSON Schema used to validate
// post headers.
func CompileSchema(raw []byte) (*jsonschema.Schema, error) {
	compiler := jsonschema.NewCompiler()
	compiler.Draft = jsonschema.Draft2020
	if err := compiler.AddResource(schemaResource, bytes.NewReader(raw)); err != nil {
		return nil, fmt.Errorf("add schema: %w", err)
	}
	schema, err := compiler.Compile(schemaResource)
	if err != nil {
		return nil, fmt.Errorf("compile schema: %w", err)
	}
	return schema, nil
}

// LoadSchema reads and compiles the schema file at path.
func LoadSchema(path string) (*jsonschema.Schema, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema: %w", err)
	}
	return CompileSchema(raw)
}

type schemaRule struct {
	schema *jsonschema.Schema
}

func (schemaRule) Name() string { return RuleSchema }

func (r schemaRule) Check(ctx context.Context, c *content.Corpus) []content.Issue {
	var issues []content.Issue
	for _, p := range c.Posts() {
		if ctx.Err() != nil {
			return issues
		}
		doc, err := headerDocument(p.Raw)
		if err != nil {
			issues = append(issues, issue(content.SeverityError, RuleSchema, p, "header: %v", err))
			continue
		}
		err = r.schema.Validate(doc)
		if err == nil {
			continue
		}
		var verr *jsonschema.ValidationError
		if !errors.As(err, &verr) {
			issues = append(issues, issue(content.SeverityError, RuleSchema, p, "%v", err))
			continue
		}
		for _, cause := range leafCauses(verr) {
			loc := strings.TrimSpace(cause.InstanceLocation)
			if loc == "" {
				loc = "/"
			}
			issues = append(issues, issue(content.SeverityError, RuleSchema, p, "%s: %s", loc, strings.TrimSpace(cause.Message)))
		}
	}
	return issues
}

// headerDocument round-trips the header through JSON so timestamps become
// strings and numbers become json.Number, the shapes the validator expects.
func headerDocument(raw map[string]any) (any, error) {
	if raw == nil {
		raw = map[string]any{}
	}
	encoded, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	dec := json.NewDecoder(bytes.NewReader(encoded))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	return doc, nil
}

func leafCauses(err *jsonschema.ValidationError) []*jsonschema.ValidationError {
	if len(err.Causes) == 0 {
		return []*jsonschema.ValidationError{err}
	}
	var out []*jsonschema.ValidationError
	for _, cause := range err.Causes {
		out = append(out, leafCauses(cause)...)
	}
	return out
}
