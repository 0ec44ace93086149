package engine

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/tidwall/gjson"
)

// FieldOp selects how a field filter compares the field value.
type FieldOp string

const (
	FieldOpEquals   FieldOp = "equals"
	FieldOpContains FieldOp = "contains"
	FieldOpRegex    FieldOp = "regex"
)

// FieldFilterConfig describes one field filter. Exactly one of Field or
// Path must be set: Field names a well-known access-log field and is
// resolved against the common key spellings, Path addresses one exact
// location as slash-separated segments (so keys containing dots stay
// addressable, e.g. "labels/app.name").
type FieldFilterConfig struct {
	Name  string
	Field string
	Path  string
	Op    FieldOp // defaults to FieldOpEquals
	Value string
	Keep  bool // invert: drop records whose field does NOT match
}

// fieldAliases maps well-known field names to the key spellings used by
// the usual JSON access-log producers. First existing path wins.
var fieldAliases = map[string][]string{
	"status":  {"status", "status_code", "response.status", "response_code"},
	"method":  {"method", "verb", "request.method"},
	"host":    {"host", "vhost", "server_name", "request.host"},
	"path":    {"path", "uri", "request_uri", "request.uri"},
	"agent":   {"agent", "user_agent", "http_user_agent"},
	"referer": {"referer", "referrer", "http_referer"},
	"user":    {"user", "remote_user", "authuser", "request.user"},
}

// genericFieldPaths is the fallback search order for field names that
// have no alias entry.
var genericFieldPaths = []string{"%s", "request.%s", "response.%s"}

// FieldFilterProcessor drops or keeps JSON records by one field of the
// record body. Lines that are not JSON, and records where the field is
// absent, always pass in both modes: the filter only judges records it
// can actually read.
type FieldFilterProcessor struct {
	name  string
	paths []string
	op    FieldOp
	value string
	re    *regexp.Regexp
	keep  bool
}

func NewFieldFilterProcessor(cfg FieldFilterConfig) (*FieldFilterProcessor, error) {
	if cfg.Field == "" && cfg.Path == "" {
		return nil, fmt.Errorf("field filter %q: field or path required", cfg.Name)
	}
	if cfg.Field != "" && cfg.Path != "" {
		return nil, fmt.Errorf("field filter %q: field and path are mutually exclusive", cfg.Name)
	}

	f := &FieldFilterProcessor{
		name:  cfg.Name,
		op:    cfg.Op,
		value: cfg.Value,
		keep:  cfg.Keep,
	}
	if f.op == "" {
		f.op = FieldOpEquals
	}

	if cfg.Path != "" {
		f.paths = []string{gjsonPath(cfg.Path)}
	} else if known, ok := fieldAliases[cfg.Field]; ok {
		f.paths = known
	} else {
		escaped := strings.ReplaceAll(cfg.Field, ".", `\.`)
		for _, tmpl := range genericFieldPaths {
			f.paths = append(f.paths, fmt.Sprintf(tmpl, escaped))
		}
	}

	switch f.op {
	case FieldOpEquals, FieldOpContains:
	case FieldOpRegex:
		re, err := regexp.Compile(cfg.Value)
		if err != nil {
			return nil, fmt.Errorf("field filter %q: compile %q: %w", cfg.Name, cfg.Value, err)
		}
		f.re = re
	default:
		return nil, fmt.Errorf("field filter %q: unknown op %q", cfg.Name, f.op)
	}
	return f, nil
}

// Process resolves the first existing search path and compares its value.
// Numbers compare by their literal form, so a filter on field "status"
// with value "404" matches both 404 and "404".
func (f *FieldFilterProcessor) Process(ctx *ProcessingContext, line []byte) ([]byte, bool, error) {
	if !gjson.ValidBytes(line) {
		return line, false, nil
	}
	for _, path := range f.paths {
		res := gjson.GetBytes(line, path)
		if !res.Exists() {
			continue
		}
		matched := f.matches(res.String())
		if f.keep {
			return line, !matched, nil
		}
		return line, matched, nil
	}
	return line, false, nil
}

func (f *FieldFilterProcessor) Name() string {
	return f.name
}

func (f *FieldFilterProcessor) matches(v string) bool {
	switch f.op {
	case FieldOpContains:
		return strings.Contains(v, f.value)
	case FieldOpRegex:
		return f.re.MatchString(v)
	default:
		return v == f.value
	}
}

// gjsonPath converts a slash-separated path to gjson syntax, escaping
// dots inside segments so they address literal keys rather than nesting.
func gjsonPath(slash string) string {
	parts := strings.Split(slash, "/")
	for i, p := range parts {
		parts[i] = strings.ReplaceAll(p, ".", `\.`)
	}
	return strings.Join(parts, ".")
}
