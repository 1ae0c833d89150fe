// Package sanitize cleans user input before it is persisted. Stored
// documents are re-rendered with no server-side validation, so markup and
// control characters are stripped at the write boundary as defense in
// depth against stored-markup injection.
package sanitize

import (
	"regexp"
	"strings"
)

// DefaultMaxLen bounds string fields unless a call site overrides it.
// Short fields (names, titles) conventionally use ShortMaxLen.
const (
	DefaultMaxLen = 1000
	ShortMaxLen   = 250
)

var (
	tagPattern     = regexp.MustCompile(`<[^>]*>`)
	controlPattern = regexp.MustCompile(`[\x00-\x1f\x7f]`)
	phonePattern   = regexp.MustCompile(`^\+?[0-9]{7,15}$`)
	nonPhoneChars  = regexp.MustCompile(`[^\d+]`)
)

// Text strips markup tags and control characters, trims surrounding
// whitespace and truncates to maxLen. maxLen <= 0 means DefaultMaxLen.
func Text(value string, maxLen int) string {
	if maxLen <= 0 {
		maxLen = DefaultMaxLen
	}
	cleaned := tagPattern.ReplaceAllString(value, "")
	cleaned = controlPattern.ReplaceAllString(cleaned, "")
	cleaned = strings.TrimSpace(cleaned)
	// Truncate by runes so Arabic and other multi-byte text is never
	// split mid-character.
	if runes := []rune(cleaned); len(runes) > maxLen {
		cleaned = string(runes[:maxLen])
	}
	return cleaned
}

// Deep walks maps and slices recursively, passing every string leaf
// through Text. Non-string leaves are returned unchanged.
func Deep(value any, maxLen int) any {
	switch v := value.(type) {
	case string:
		return Text(v, maxLen)
	case map[string]any:
		cleaned := make(map[string]any, len(v))
		for key, entry := range v {
			cleaned[key] = Deep(entry, maxLen)
		}
		return cleaned
	case []any:
		cleaned := make([]any, len(v))
		for i, entry := range v {
			cleaned[i] = Deep(entry, maxLen)
		}
		return cleaned
	case []string:
		cleaned := make([]string, len(v))
		for i, entry := range v {
			cleaned[i] = Text(entry, maxLen)
		}
		return cleaned
	default:
		return v
	}
}

// Email returns a normalized form of an email address suitable for
// storage and comparisons: trimmed and lower-cased.
func Email(value string) string {
	return strings.ToLower(strings.TrimSpace(value))
}

// NormalizePhone keeps digits and a leading plus, capped at 16 characters.
func NormalizePhone(value string) string {
	cleaned := nonPhoneChars.ReplaceAllString(value, "")
	if len(cleaned) > 16 {
		cleaned = cleaned[:16]
	}
	return cleaned
}

// ValidPhone reports whether value normalizes to 7-15 digits with an
// optional leading plus.
func ValidPhone(value string) bool {
	return phonePattern.MatchString(NormalizePhone(value))
}

// ValidRegion reports whether value is a plausible region name after
// sanitization.
func ValidRegion(value string) bool {
	return len(Text(value, 80)) >= 2
}
