// internal/utils/slug_test.go
package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSlugify(t *testing.T) {
	cases := map[string]string{
		"Urban Denim Jacket":       "urban-denim-jacket",
		"  Wool Coat  ":            "wool-coat",
		"Tee (Limited!) Edition":   "tee-limited-edition",
		"Multi   Space -- Name":    "multi-space-name",
		"ALL CAPS":                 "all-caps",
		"already-a-slug":           "already-a-slug",
		"Trailing Punctuation!!!":  "trailing-punctuation",
		"123 Numeric Start":        "123-numeric-start",
	}

	for input, expected := range cases {
		assert.Equal(t, expected, Slugify(input), "input: %q", input)
	}
}

func TestSlugValidationRule(t *testing.T) {
	type payload struct {
		Slug string `validate:"slug"`
	}

	assert.NoError(t, ValidateStruct(&payload{Slug: "valid-slug-123"}))
	assert.Error(t, ValidateStruct(&payload{Slug: "Invalid Slug"}))
	assert.Error(t, ValidateStruct(&payload{Slug: "-leading-dash"}))
	assert.Error(t, ValidateStruct(&payload{Slug: ""}))
}
