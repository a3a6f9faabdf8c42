package sources

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/browser"
)

type fakeBrowser struct {
	snap    *browser.Snapshot
	started bool
	stopped bool
}

func (f *fakeBrowser) Start(ctx context.Context) error { f.started = true; return nil }
func (f *fakeBrowser) Stop() error                     { f.stopped = true; return nil }
func (f *fakeBrowser) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return nil
}
func (f *fakeBrowser) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (f *fakeBrowser) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	return f.snap, nil
}
func (f *fakeBrowser) PageText(ctx context.Context) (string, error)     { return f.snap.Text, nil }
func (f *fakeBrowser) Click(ctx context.Context, ref string) error      { return nil }
func (f *fakeBrowser) Type(ctx context.Context, ref, text string) error { return nil }
func (f *fakeBrowser) SelectOption(ctx context.Context, ref, opt string) error {
	return nil
}
func (f *fakeBrowser) Upload(ctx context.Context, ref, path string) error { return nil }

func TestStartupJobsSearch(t *testing.T) {
	sess := &fakeBrowser{snap: &browser.Snapshot{
		Text: "Startup jobs search results",
		Elements: []browser.Element{
			{Ref: "e1", Role: "button", Label: "Backend Engineer at Acme - Remote"},
			{Ref: "e2", Role: "button", Label: "Backend Engineer at Acme - Remote"}, // duplicate card
			{Ref: "e3", Role: "button", Label: "Designer at Beta Studio"},
			{Ref: "e4", Role: "button", Label: "Sign in"},
		},
	}}

	src := NewStartupJobs(sess)
	jobs, err := src.Search(context.Background(), "backend engineer", "", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)

	assert.Equal(t, "Backend Engineer", jobs[0].Title)
	assert.Equal(t, "Acme", jobs[0].Company)
	assert.Equal(t, "Remote", jobs[0].Location)
	assert.Equal(t, "https://startup.jobs/backend-engineer-acme", jobs[0].CanonicalURL)
	assert.True(t, sess.started)
	assert.True(t, sess.stopped)
}

func TestStartupJobsBotCheck(t *testing.T) {
	sess := &fakeBrowser{snap: &browser.Snapshot{
		Text: "Checking your browser before accessing startup.jobs",
	}}

	src := NewStartupJobs(sess)
	_, err := src.Search(context.Background(), "backend", "", 10)
	assert.Error(t, err)
}
