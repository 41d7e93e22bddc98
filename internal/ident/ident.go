// Package ident derives the stable identifiers of a catalog record from its
// source URL: the numeric catalog ID, the image URL and the slug.
package ident

import (
	"fmt"
	"math/rand/v2"
	"regexp"
	"strconv"
	"strings"
)

const (
	imageTemplate       = "https://fimgs.net/mdimg/perfume/375x500.%s.jpg"
	placeholderTemplate = "https://picsum.photos/seed/%s/375/500"

	seedLen     = 10
	defaultSeed = "fragrance"
)

var (
	trailingID  = regexp.MustCompile(`(\d+)\.html$`)
	nonAlnumRun = regexp.MustCompile(`[^a-z0-9]+`)
)

// Rand is the randomness used for slug suffixes when a URL carries no ID.
// *rand.Rand from math/rand/v2 satisfies it.
type Rand interface {
	IntN(n int) int
}

// ExtractID returns the digits of a trailing "<digits>.html" segment.
func ExtractID(url string) (string, bool) {
	m := trailingID.FindStringSubmatch(strings.TrimSpace(url))
	if m == nil {
		return "", false
	}
	return m[1], true
}

// ImageURL returns the CDN image for the URL's catalog ID, or a placeholder
// seeded from the URL itself when no ID is present. Both are deterministic
// per URL.
func ImageURL(url string) string {
	if id, ok := ExtractID(url); ok {
		return fmt.Sprintf(imageTemplate, id)
	}
	return fmt.Sprintf(placeholderTemplate, PlaceholderSeed(url))
}

// PlaceholderSeed returns the last ten ASCII alphanumerics of url.
func PlaceholderSeed(url string) string {
	var b strings.Builder
	for i := 0; i < len(url); i++ {
		c := url[i]
		if ('a' <= c && c <= 'z') || ('A' <= c && c <= 'Z') || ('0' <= c && c <= '9') {
			b.WriteByte(c)
		}
	}
	s := b.String()
	if s == "" {
		return defaultSeed
	}
	if len(s) > seedLen {
		s = s[len(s)-seedLen:]
	}
	return s
}

// Slug builds "name-brand-suffix". The suffix is id when non-empty, else a
// random five digit number drawn from rng (the global source when nil), so
// rows without an ID get a different slug on every run.
func Slug(name, brand, id string, rng Rand) string {
	suffix := id
	if suffix == "" {
		n := 0
		if rng != nil {
			n = rng.IntN(90000)
		} else {
			n = rand.IntN(90000)
		}
		suffix = strconv.Itoa(10000 + n)
	}

	parts := make([]string, 0, 3)
	for _, p := range []string{slugify(name), slugify(brand), suffix} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, "-")
}

func slugify(s string) string {
	s = nonAlnumRun.ReplaceAllString(strings.ToLower(s), "-")
	return strings.Trim(s, "-")
}
