package services

import (
	"context"
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/unicode/norm"
)

// Slugify decomposes accents (NFKD), lower-cases s, drops everything except ASCII letters,
// digits, underscores, hyphens and whitespace, then collapses whitespace and hyphen runs
// into one hyphen.
func Slugify(s string) string {
	var b strings.Builder
	pendingDash := false

	for _, r := range strings.ToLower(norm.NFKD.String(s)) {
		switch {
		case r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_'):
			if pendingDash && b.Len() > 0 {
				b.WriteByte('-')
			}
			pendingDash = false
			b.WriteRune(r)
		case r == '-' || unicode.IsSpace(r):
			pendingDash = true
		}
	}

	return strings.Trim(b.String(), "-_")
}

// SlugLookup returns the id of the newest row already using slug, or found=false
type SlugLookup func(ctx context.Context, slug string) (id uint, found bool, err error)

// UniqueSlug slugifies base and, while the slug is taken, appends "-<id>" of the
// newest colliding row. "intro-to-go" taken by row 7 becomes "intro-to-go-7".
func UniqueSlug(ctx context.Context, base string, lookup SlugLookup) (string, error) {
	slug := Slugify(base)
	if slug == "" {
		slug = "course"
	}

	// Each step strictly extends the slug, so the loop ends once a free one is found
	for i := 0; i < 32; i++ {
		id, found, err := lookup(ctx, slug)
		if err != nil {
			return "", err
		}
		if !found {
			return slug, nil
		}
		slug = fmt.Sprintf("%s-%d", slug, id)
	}

	return "", fmt.Errorf("could not derive a unique slug for %q: %w", base, ErrConflict)
}
