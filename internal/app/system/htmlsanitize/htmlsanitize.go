// Package htmlsanitize cleans user-supplied text before it is stored.
// Record notes may carry light formatting and go through a UGC policy;
// single-line fields such as the source document are reduced to plain text.
package htmlsanitize

import (
	"html"
	"strings"
	"sync"

	"github.com/microcosm-cc/bluemonday"
)

var (
	// policy is the shared bluemonday policy for sanitizing notes.
	policy     *bluemonday.Policy
	policyOnce sync.Once

	strict     *bluemonday.Policy
	strictOnce sync.Once
)

// getPolicy returns the shared notes policy, creating it on first use.
func getPolicy() *bluemonday.Policy {
	policyOnce.Do(func() {
		// Start with UGC (User Generated Content) policy as base
		policy = bluemonday.UGCPolicy()

		// Footnote-style formatting common in statistical notes
		policy.AllowElements("u", "s", "sub", "sup", "mark")
	})
	return policy
}

func getStrict() *bluemonday.Policy {
	strictOnce.Do(func() {
		strict = bluemonday.StrictPolicy()
	})
	return strict
}

// Sanitize cleans HTML input, removing potentially dangerous elements and
// attributes while keeping safe formatting like bold, italic, lists and links.
func Sanitize(s string) string {
	if s == "" {
		return ""
	}
	return getPolicy().Sanitize(s)
}

// PlainText strips every tag and returns unescaped, trimmed text.
func PlainText(s string) string {
	if s == "" {
		return ""
	}
	return strings.TrimSpace(html.UnescapeString(getStrict().Sanitize(s)))
}

// IsPlainText checks if content appears to be plain text (no HTML tags).
func IsPlainText(content string) bool {
	if content == "" {
		return true
	}
	return !strings.Contains(content, "<") || !strings.Contains(content, ">")
}

// Notes prepares a notes field for storage. Plain text is kept as typed;
// anything that looks like HTML is sanitized.
func Notes(s string) string {
	s = strings.TrimSpace(s)
	if IsPlainText(s) {
		return s
	}
	return strings.TrimSpace(Sanitize(s))
}
