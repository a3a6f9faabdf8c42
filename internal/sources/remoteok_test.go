package sources

import (
	"context"
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockHTTPClient struct {
	mock.Mock
}

func (m *mockHTTPClient) Do(req *http.Request) (*http.Response, error) {
	args := m.Called(req)
	return args.Get(0).(*http.Response), args.Error(1)
}

func jsonResponse(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

const remoteokDump = `[
  {"legal": "API terms of use notice"},
  {"id": 101, "position": "Senior Go Engineer", "company": "Acme", "location": "Worldwide",
   "apply_url": "https://acme.example/apply?utm_source=remoteok",
   "description": "<p>Build <b>Go</b> services</p>", "tags": ["golang", "backend"],
   "salary_min": 120000, "salary_max": 160000},
  {"id": 102, "position": "React Designer", "company": "Pixels", "location": "",
   "url": "https://remoteok.io/remote-jobs/102",
   "description": "Design things", "tags": ["design"]}
]`

func TestRemoteOKSearch(t *testing.T) {
	client := new(mockHTTPClient)
	client.On("Do", mock.Anything).Return(jsonResponse(200, remoteokDump), nil).Once()

	src := NewRemoteOK(client)
	jobs, err := src.Search(context.Background(), "golang backend", "", 10)

	require.NoError(t, err)
	require.Len(t, jobs, 1)
	job := jobs[0]
	assert.Equal(t, "Senior Go Engineer", job.Title)
	assert.Equal(t, "Acme", job.Company)
	assert.Equal(t, "Worldwide", job.Location)
	// Tracking query params are stripped by canonicalization.
	assert.Equal(t, "https://acme.example/apply", job.CanonicalURL)
	assert.Equal(t, "Build Go services", job.Description)
	require.NotNil(t, job.SalaryMin)
	assert.Equal(t, 120000.0, *job.SalaryMin)
	assert.Equal(t, "remoteok", job.SourceName)
	assert.Equal(t, "101", job.ExternalID)

	client.AssertExpectations(t)
}

func TestRemoteOKCachesDump(t *testing.T) {
	client := new(mockHTTPClient)
	client.On("Do", mock.Anything).Return(jsonResponse(200, remoteokDump), nil).Once()

	src := NewRemoteOK(client)
	_, err := src.Search(context.Background(), "golang", "", 10)
	require.NoError(t, err)

	// Second keyword reuses the cached dump. A second HTTP call would trip
	// the Once expectation.
	jobs, err := src.Search(context.Background(), "design", "", 10)
	require.NoError(t, err)
	require.Len(t, jobs, 1)
	assert.Equal(t, "React Designer", jobs[0].Title)
	assert.Equal(t, "Remote", jobs[0].Location)

	client.AssertExpectations(t)
}

func TestRemoteOKUpstreamError(t *testing.T) {
	client := new(mockHTTPClient)
	client.On("Do", mock.Anything).Return(jsonResponse(429, ``), nil)

	src := NewRemoteOK(client)
	_, err := src.Search(context.Background(), "golang", "", 10)
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}
