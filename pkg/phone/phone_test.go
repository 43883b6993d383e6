package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalize(t *testing.T) {
	n := NewNormalizer("373")

	tests := []struct {
		name     string
		input    string
		expected string
		ok       bool
	}{
		{
			name:     "bare subscriber number",
			input:    "68977378",
			expected: "+37368977378",
			ok:       true,
		},
		{
			name:     "national form with leading zero",
			input:    "068977378",
			expected: "+37368977378",
			ok:       true,
		},
		{
			name:     "international form",
			input:    "37368977378",
			expected: "+37368977378",
			ok:       true,
		},
		{
			name:     "international form with plus and spaces",
			input:    "+373 68 97 73 78",
			expected: "+37368977378",
			ok:       true,
		},
		{
			name:     "truncated country code",
			input:    "7368977378",
			expected: "+37368977378",
			ok:       true,
		},
		{
			name:     "dashes and parentheses",
			input:    "(068) 977-378",
			expected: "+37368977378",
			ok:       true,
		},
		{
			name:  "landline digit rejected",
			input: "22345678",
			ok:    false,
		},
		{
			name:  "too short",
			input: "6897737",
			ok:    false,
		},
		{
			name:  "too long",
			input: "373689773789",
			ok:    false,
		},
		{
			name:  "wrong country code",
			input: "40768977378",
			ok:    false,
		},
		{
			name:  "no digits",
			input: "call me",
			ok:    false,
		},
		{
			name:  "empty",
			input: "",
			ok:    false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, ok := n.Normalize(tt.input)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestNormalizeDefaultCountryCode(t *testing.T) {
	n := NewNormalizer("")
	result, ok := n.Normalize("68977378")
	assert.True(t, ok)
	assert.Equal(t, "+37368977378", result)
}
