//revive:disable-next-line:var-naming // legacy package name widely used across the project
package model

import (
	"html"
	"strings"

	"github.com/microcosm-cc/bluemonday"
)

// TextSanitizer strips markup from free-text fields before they are stored.
type TextSanitizer struct {
	policy *bluemonday.Policy
}

// NewTextSanitizer returns a sanitizer backed by bluemonday's strict policy.
func NewTextSanitizer() *TextSanitizer {
	return &TextSanitizer{policy: bluemonday.StrictPolicy()}
}

// Clean removes all HTML and collapses whitespace.
func (s *TextSanitizer) Clean(v string) string {
	if v == "" {
		return ""
	}
	out := s.policy.Sanitize(v)
	// StrictPolicy escapes entities; stored values are plain text.
	out = html.UnescapeString(out)
	return strings.Join(strings.Fields(out), " ")
}

// CleanRecord sanitizes the text fields of a record request in place.
func (s *TextSanitizer) CleanRecord(r *CreateRecordRequest) {
	r.Location = s.Clean(r.Location)
	r.ProductCode = s.Clean(r.ProductCode)
	r.ProductName = s.Clean(r.ProductName)
}
