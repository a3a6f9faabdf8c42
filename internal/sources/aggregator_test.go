package sources

import (
	"context"
	"sync/atomic"
	"testing"

	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/pkg/models"
)

type stubSource struct {
	name  string
	jobs  []models.NormalizedJob
	err   error
	calls int32
}

func (s *stubSource) Name() string { return s.name }

func (s *stubSource) Search(ctx context.Context, term, location string, limit int) ([]models.NormalizedJob, error) {
	atomic.AddInt32(&s.calls, 1)
	return s.jobs, s.err
}

func TestAggregatorCollectsPartialFailures(t *testing.T) {
	healthy := &stubSource{name: "healthy", jobs: []models.NormalizedJob{
		{Title: "Go Engineer", SourceName: "healthy"},
	}}
	broken := &stubSource{name: "broken", err: errors.New("rate limited")}

	agg := NewAggregator([]Source{healthy, broken}, 0)
	jobs, errs := agg.SearchAll(context.Background(), []string{"golang"}, "", 10)

	require.Len(t, jobs, 1)
	assert.Equal(t, "Go Engineer", jobs[0].Title)

	require.Len(t, errs, 1)
	assert.Equal(t, "broken", errs[0].Source)
	assert.Contains(t, errs[0].Error(), "rate limited")
}

func TestAggregatorFansOutTermsAcrossSources(t *testing.T) {
	a := &stubSource{name: "a"}
	b := &stubSource{name: "b"}

	agg := NewAggregator([]Source{a, b}, 0)
	_, errs := agg.SearchAll(context.Background(), []string{"golang", "backend", "infra"}, "", 10)

	assert.Empty(t, errs)
	assert.Equal(t, int32(3), atomic.LoadInt32(&a.calls))
	assert.Equal(t, int32(3), atomic.LoadInt32(&b.calls))
}

func TestAggregatorContextCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	src := &stubSource{name: "slow"}
	// With a limiter in place a cancelled context surfaces as a source error
	// instead of hanging the pool.
	agg := NewAggregator([]Source{src}, 1)
	_, errs := agg.SearchAll(ctx, []string{"golang"}, "", 10)
	require.Len(t, errs, 1)
	assert.Equal(t, "slow", errs[0].Source)
}
