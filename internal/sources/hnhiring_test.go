package sources

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/pkg/models"
)

func TestParseHiringCommentPipeFormat(t *testing.T) {
	item := hnItem{
		ID: 42,
		Text: `Acme Corp | Toronto, ON (Remote) | Senior Backend Engineer | $140k-$180k | https://acme.example/jobs/42<p>` +
			`We build infrastructure for payments. Looking for Go experience.`,
	}

	job, ok := parseHiringComment(item)
	require.True(t, ok)
	assert.Equal(t, "Acme Corp", job.Company)
	assert.Equal(t, "Toronto, ON (Remote)", job.Location)
	assert.Equal(t, "Senior Backend Engineer", job.Title)
	assert.Equal(t, "https://acme.example/jobs/42", job.CanonicalURL)
	assert.Contains(t, job.Description, "payments")
	require.NotNil(t, job.SalaryMin)
	require.NotNil(t, job.SalaryMax)
	assert.Equal(t, 140000.0, *job.SalaryMin)
	assert.Equal(t, 180000.0, *job.SalaryMax)
	assert.Equal(t, "42", job.ExternalID)
}

func TestParseHiringCommentFallbacks(t *testing.T) {
	t.Run("no url falls back to comment permalink", func(t *testing.T) {
		job, ok := parseHiringComment(hnItem{
			ID:   7,
			Text: "Widgets Inc | Remote | Platform Engineer<p>Join our team building the platform.",
		})
		require.True(t, ok)
		assert.Equal(t, "https://news.ycombinator.com/item/7", job.CanonicalURL)

		// A second URL-less posting must not share the first one's dedup key.
		other, ok := parseHiringComment(hnItem{
			ID:   11,
			Text: "Gadgets Ltd | Remote | Data Engineer<p>Come build our warehouse pipelines.",
		})
		require.True(t, ok)
		assert.NotEqual(t, job.CanonicalURL, other.CanonicalURL)
		assert.NotEqual(t, models.URLHash(job.CanonicalURL), models.URLHash(other.CanonicalURL))
	})

	t.Run("url embedded in company segment", func(t *testing.T) {
		job, ok := parseHiringComment(hnItem{
			ID:   8,
			Text: "Widgets Inc (https://widgets.example) | Remote | Platform Engineer<p>More detail about the role here.",
		})
		require.True(t, ok)
		assert.Equal(t, "Widgets Inc", job.Company)
		assert.Equal(t, "https://widgets.example", job.CanonicalURL)
	})

	t.Run("missing title uses placeholder", func(t *testing.T) {
		job, ok := parseHiringComment(hnItem{
			ID:   9,
			Text: "Widgets Inc | Remote<p>Long description of several roles we are hiring for this month.",
		})
		require.True(t, ok)
		assert.Equal(t, "See Description", job.Title)
	})
}

func TestParseHiringCommentNoise(t *testing.T) {
	// Too short to be a posting.
	_, ok := parseHiringComment(hnItem{ID: 1, Text: "Me too!"})
	assert.False(t, ok)

	// No company, no content.
	_, ok = parseHiringComment(hnItem{ID: 2, Text: ""})
	assert.False(t, ok)
}

func TestParseSalaryRange(t *testing.T) {
	tests := []struct {
		in       string
		min, max float64
	}{
		{"$120k-$180k", 120000, 180000},
		{"$120,000 - $180,000", 120000, 180000},
		{"$90K to $130K", 90000, 130000},
	}
	for _, tt := range tests {
		min, max := parseSalaryRange(tt.in)
		require.NotNil(t, min, tt.in)
		require.NotNil(t, max, tt.in)
		assert.Equal(t, tt.min, *min, tt.in)
		assert.Equal(t, tt.max, *max, tt.in)
	}

	min, max := parseSalaryRange("competitive compensation")
	assert.Nil(t, min)
	assert.Nil(t, max)
}

func TestStripHTMLLines(t *testing.T) {
	text := stripHTMLLines("Acme | Remote<p>First paragraph.<p>Second &amp; third.")
	lines := []string{"Acme | Remote", "First paragraph.", "Second & third."}
	assert.Equal(t, lines, strings.Split(text, "\n"))
}
