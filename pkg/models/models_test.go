package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanonicalURL(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{
			name:     "fragment stripped",
			raw:      "https://boards.greenhouse.io/acme/jobs/123#app",
			expected: "https://boards.greenhouse.io/acme/jobs/123",
		},
		{
			name:     "query stripped",
			raw:      "https://jobs.lever.co/acme/abc?ref=remoteok&utm_source=x",
			expected: "https://jobs.lever.co/acme/abc",
		},
		{
			name:     "trailing slash removed",
			raw:      "https://example.com/careers/",
			expected: "https://example.com/careers",
		},
		{
			name:     "host lowercased",
			raw:      "https://Example.COM/jobs/1",
			expected: "https://example.com/jobs/1",
		},
		{
			name:     "unparseable returned trimmed",
			raw:      "  not a url/ ",
			expected: "not a url",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, CanonicalURL(tt.raw))
		})
	}
}

func TestURLHashStableAcrossVariants(t *testing.T) {
	a := URLHash("https://boards.greenhouse.io/acme/jobs/123?gh_src=abc#apply")
	b := URLHash("https://boards.greenhouse.io/acme/jobs/123")
	assert.Equal(t, a, b)
	assert.Len(t, a, 64)

	other := URLHash("https://boards.greenhouse.io/acme/jobs/124")
	assert.NotEqual(t, a, other)
}

func TestCandidateProfileNameSplit(t *testing.T) {
	p := &CandidateProfile{User: &User{Name: "Ada Mary Lovelace"}}
	assert.Equal(t, "Ada", p.FirstName())
	assert.Equal(t, "Lovelace", p.LastName())

	single := &CandidateProfile{User: &User{Name: "Ada"}}
	assert.Equal(t, "Ada", single.FirstName())
	assert.Equal(t, "", single.LastName())
}
