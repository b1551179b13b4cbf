// Package validation checks inbound JSON payloads against declarative,
// per-field schemas.
//
// A Schema is an ordered list of Fields. Each Field is a chain of Rules that
// runs until the first failure, so every field reports at most one message.
// Validate walks ALL fields (it never stops at the first bad field) and
// returns the messages in schema order.
//
// The message wording is part of the public API: existing consumers match on
// strings such as `"firstName" is not allowed to be empty`, so rules must not
// rephrase them.
package validation

import (
	"fmt"
)

// Rule checks a single present value. label is the field name as it appears
// in messages. It returns "" when the value passes.
type Rule func(label string, value any) string

// Field describes one key of the payload.
type Field struct {
	Name     string
	Required bool
	Rules    []Rule
}

// Schema is an ordered set of fields. Keys not listed are stripped.
type Schema struct {
	Fields []Field
}

// Result is the outcome of validating one payload.
type Result struct {
	// Value holds only the known, present fields. It is nil when the
	// payload was not an object.
	Value  map[string]any
	Errors []string
}

// OK reports whether validation passed.
func (r Result) OK() bool { return len(r.Errors) == 0 }

// Message formats the standard "<label>" prefix used by every rule.
func Message(label, text string) string {
	return fmt.Sprintf("%q %s", label, text)
}

// Validate checks the raw decoded JSON body (the result of json.Unmarshal
// into an `any`) against the schema.
func (s Schema) Validate(body any) Result {
	obj, ok := body.(map[string]any)
	if !ok {
		return Result{Errors: []string{Message("value", "must be of type object")}}
	}

	res := Result{Value: make(map[string]any, len(s.Fields))}
	for _, f := range s.Fields {
		v, present := obj[f.Name]
		if !present {
			if f.Required {
				res.Errors = append(res.Errors, Message(f.Name, "is required"))
			}
			continue
		}

		if msg := f.check(v); msg != "" {
			res.Errors = append(res.Errors, msg)
			continue
		}
		res.Value[f.Name] = v
	}

	return res
}

func (f Field) check(v any) string {
	for _, rule := range f.Rules {
		if msg := rule(f.Name, v); msg != "" {
			return msg
		}
	}
	return ""
}
