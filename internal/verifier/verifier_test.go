package verifier

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/internal/mailbox"
)

func TestExtractCode(t *testing.T) {
	tests := []struct {
		name string
		body string
		want string
	}{
		{"security code", "Your security code: A1B2C3", "A1B2C3"},
		{"verification code", "verification code: XY12345678", "XY12345678"},
		{"generic code", "Use code: 998877 to continue", "998877"},
		{"paste this code", "Copy and paste this code: QWERTY12", "QWERTY12"},
		{"standalone line", "Hello,\n\n  hBVad3px  \n\nThanks", "hBVad3px"},
		{"too short", "code: AB1", ""},
		{"nothing", "Thanks for applying!", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractCode(tt.body))
		})
	}
}

// scriptedMailbox returns no code for the first n Search calls, then a
// message whose body contains the code.
type scriptedMailbox struct {
	emptyPolls int
	searches   int
	body       string
	date       time.Time
	lastQuery  string
}

func (m *scriptedMailbox) Search(ctx context.Context, user, query string, max int) ([]mailbox.Message, error) {
	m.searches++
	m.lastQuery = query
	if m.searches <= m.emptyPolls {
		return nil, nil
	}
	return []mailbox.Message{{
		ID: "m1", From: "no-reply@greenhouse.io", Subject: "Your security code", Date: m.date,
	}}, nil
}

func (m *scriptedMailbox) GetBody(ctx context.Context, id string) (string, error) {
	return m.body, nil
}

// pageSession is the minimal Session for verification: one code input, one
// verify button, then a thank-you page.
type pageSession struct {
	typed   map[string]string
	clicked []string
}

func (s *pageSession) Start(ctx context.Context) error { return nil }
func (s *pageSession) Stop() error                     { return nil }
func (s *pageSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	return nil
}
func (s *pageSession) CurrentURL(ctx context.Context) (string, error) { return "", nil }
func (s *pageSession) PageText(ctx context.Context) (string, error) {
	if len(s.clicked) > 0 {
		return "Thank you! Application received.", nil
	}
	return "Enter your security code", nil
}
func (s *pageSession) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	return &browser.Snapshot{Elements: []browser.Element{
		{Ref: "c1", Role: "textbox", Label: "Security code", Required: true},
		{Ref: "b1", Role: "button", Label: "Verify"},
	}}, nil
}
func (s *pageSession) Click(ctx context.Context, ref string) error {
	s.clicked = append(s.clicked, ref)
	return nil
}
func (s *pageSession) Type(ctx context.Context, ref, text string) error {
	if s.typed == nil {
		s.typed = map[string]string{}
	}
	s.typed[ref] = text
	return nil
}
func (s *pageSession) SelectOption(ctx context.Context, ref, option string) error { return nil }
func (s *pageSession) Upload(ctx context.Context, ref, filePath string) error     { return nil }

func fastVerifier(mb mailbox.Mailbox, attempts int) *Verifier {
	v := New(mb)
	v.attempts = attempts
	v.interval = time.Millisecond
	return v
}

func TestResolveEntersCode(t *testing.T) {
	mb := &scriptedMailbox{emptyPolls: 2, body: "Your security code: ZZ99AA11"}
	sess := &pageSession{}

	v := fastVerifier(mb, 10)
	note, err := v.Resolve(context.Background(), sess, "ada@example.com")

	require.NoError(t, err)
	assert.Equal(t, "application verified", note)
	assert.Equal(t, "ZZ99AA11", sess.typed["c1"])
	assert.Equal(t, []string{"b1"}, sess.clicked)
	// Two empty polls before the code arrived.
	assert.Equal(t, 3, mb.searches)
}

func TestSearchScopesSenderAndAge(t *testing.T) {
	mb := &scriptedMailbox{body: "Your security code: ZZ99AA11"}
	v := fastVerifier(mb, 2)

	_, err := v.Resolve(context.Background(), &pageSession{}, "ada@example.com")

	require.NoError(t, err)
	assert.Contains(t, mb.lastQuery, "from:(greenhouse.io")
	assert.Contains(t, mb.lastQuery, "subject:(security code OR verification)")
	assert.Contains(t, mb.lastQuery, "after:")
}

func TestResolveSkipsStaleCode(t *testing.T) {
	// A code from a previous application must not be entered even when the
	// mailbox ignores the query's after term and returns it anyway.
	mb := &scriptedMailbox{
		body: "Your security code: ZZ99AA11",
		date: time.Now().Add(-time.Hour),
	}
	sess := &pageSession{}
	v := fastVerifier(mb, 3)

	_, err := v.Resolve(context.Background(), sess, "ada@example.com")

	var timeout *app.VerificationTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Empty(t, sess.typed)
}

func TestResolveTimeout(t *testing.T) {
	mb := &scriptedMailbox{emptyPolls: 1000}
	v := fastVerifier(mb, 4)

	_, err := v.Resolve(context.Background(), &pageSession{}, "ada@example.com")

	var timeout *app.VerificationTimeoutError
	require.ErrorAs(t, err, &timeout)
	assert.Equal(t, 4, mb.searches)
}

func TestResolveContextCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	mb := &scriptedMailbox{emptyPolls: 1000}
	v := fastVerifier(mb, 24)

	_, err := v.Resolve(ctx, &pageSession{}, "ada@example.com")
	require.ErrorIs(t, err, context.Canceled)
	// At most one poll happened before cancellation was observed.
	assert.LessOrEqual(t, mb.searches, 1)
}
