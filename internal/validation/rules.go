package validation

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

// validate is safe for concurrent use and caches parsed tags, so one
// instance serves the whole process.
var validate = validator.New(validator.WithRequiredStructEnabled())

// String requires the value to be a JSON string. null is not a string.
func String(label string, value any) string {
	if _, ok := value.(string); !ok {
		return Message(label, "must be a string")
	}
	return ""
}

// NotEmpty rejects "". Whitespace-only strings are allowed.
func NotEmpty(label string, value any) string {
	if s, _ := value.(string); s == "" {
		return Message(label, "is not allowed to be empty")
	}
	return ""
}

// Email checks address syntax. On top of the validator "email" tag it
// requires a domain with at least two labels ("x.com", not "localhost").
func Email(label string, value any) string {
	s, _ := value.(string)
	if validate.Var(s, "required,email") != nil || !hasDottedDomain(s) {
		return Message(label, "must be a valid email")
	}
	return ""
}

func hasDottedDomain(addr string) bool {
	at := strings.LastIndexByte(addr, '@')
	if at < 0 {
		return false
	}
	labels := strings.Split(addr[at+1:], ".")
	if len(labels) < 2 {
		return false
	}
	for _, l := range labels {
		if l == "" {
			return false
		}
	}
	return true
}
