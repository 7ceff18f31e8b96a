// Package sanitize strips markup from user-entered free text before it is stored
package sanitize

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

var policy = bluemonday.StrictPolicy()

// Text removes every HTML element and trims surrounding space. Entities
// produced by the policy are decoded back so "a & b" survives unchanged.
func Text(s string) string {
	if s == "" {
		return s
	}
	return strings.TrimSpace(html.UnescapeString(policy.Sanitize(s)))
}

// Ptr sanitizes an optional value; nil stays nil
func Ptr(s *string) *string {
	if s == nil {
		return nil
	}
	v := Text(*s)
	return &v
}
