package services

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Intro to Python":          "intro-to-python",
		"  Go (Part 1), v2.0  ":    "go-part-1-v20",
		"Already-slugged -- title": "already-slugged-title",
		"Asha_Rao":                 "asha_rao",
		"Café crème":               "cafe-creme",
		"":                         "",
		"---":                      "",
		"_-abc":                    "abc",
		"abc _":                    "abc",
	}

	for in, want := range cases {
		assert.Equal(t, want, Slugify(in), "input %q", in)
	}
}

func TestUniqueSlugAppendsNewestCollidingID(t *testing.T) {
	taken := map[string]uint{
		"intro-to-python":   7,
		"intro-to-python-7": 12,
	}
	lookup := func(_ context.Context, slug string) (uint, bool, error) {
		id, ok := taken[slug]
		return id, ok, nil
	}

	slug, err := UniqueSlug(context.Background(), "Intro to Python", lookup)
	require.NoError(t, err)
	assert.Equal(t, "intro-to-python-7-12", slug)

	slug, err = UniqueSlug(context.Background(), "Advanced Python", lookup)
	require.NoError(t, err)
	assert.Equal(t, "advanced-python", slug)
}

func TestUniqueSlugPropagatesLookupError(t *testing.T) {
	boom := errors.New("db down")
	_, err := UniqueSlug(context.Background(), "x", func(context.Context, string) (uint, bool, error) {
		return 0, false, boom
	})
	assert.ErrorIs(t, err, boom)
}
