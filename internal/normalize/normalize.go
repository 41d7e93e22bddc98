// Package normalize contains the pure field normalizers applied by the merge
// stage. None of them return errors: unusable input degrades to a documented
// default.
package normalize

import (
	"regexp"
	"strconv"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"catalogloader/internal/catalog"
)

// noteSentinels are values that mean "no data" in the note columns.
var noteSentinels = map[string]struct{}{
	"":        {},
	"unknown": {},
	"n/a":     {},
	"none":    {},
}

var quotedName = regexp.MustCompile(`'([^']*)'`)

// TitleCase replaces hyphens with spaces, capitalizes every word and trims.
// The rest of each word is left untouched, so "EDP" stays "EDP".
func TitleCase(s string) string {
	s = strings.ReplaceAll(s, "-", " ")
	// A Caser carries state; one per call keeps this safe for concurrent use.
	return strings.TrimSpace(cases.Title(language.Und, cases.NoLower).String(s))
}

// SplitNotes splits a comma separated note list. Sentinel values, either as
// the whole field or as a single token, and empty tokens are dropped. The
// result is never nil.
func SplitNotes(raw string) []string {
	if isSentinel(raw) {
		return []string{}
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if isSentinel(p) {
			continue
		}
		if n := TitleCase(p); n != "" {
			out = append(out, n)
		}
	}
	return out
}

func isSentinel(s string) bool {
	_, ok := noteSentinels[strings.ToLower(strings.TrimSpace(s))]
	return ok
}

// MapGender maps the source gender column to a display label. Unrecognized
// values pass through trimmed; blank input maps to the unisex label.
func MapGender(raw string) string {
	v := strings.TrimSpace(raw)
	switch strings.ToLower(v) {
	case "women":
		return catalog.GenderWomen
	case "men":
		return catalog.GenderMen
	case "unisex", "":
		return catalog.GenderUnisex
	default:
		return v
	}
}

// FlattenCreators turns a bracketed list literal such as ['A', 'B'] into
// "A, B". It returns "" when no quoted names are present.
func FlattenCreators(raw string) string {
	m := quotedName.FindAllStringSubmatch(raw, -1)
	if len(m) == 0 {
		return ""
	}
	names := make([]string, 0, len(m))
	for _, g := range m {
		if n := strings.TrimSpace(g[1]); n != "" {
			names = append(names, n)
		}
	}
	return strings.Join(names, ", ")
}

// ParseYear reads the leading digits of raw as a year, so "2019" and
// "2019.0" both give 2019. It returns nil when raw has no leading digits.
func ParseYear(raw string) *int {
	s := strings.TrimSpace(raw)
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	if end == 0 {
		return nil
	}
	y, err := strconv.Atoi(s[:end])
	if err != nil {
		return nil
	}
	return &y
}

// OrDefault returns s, or def when s is blank.
func OrDefault(s, def string) string {
	if strings.TrimSpace(s) == "" {
		return def
	}
	return s
}
