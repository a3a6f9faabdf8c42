package ats

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	lrtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/pkg/models"
)

// fakeSession scripts a form page in memory. Fill state mutates like a real
// page so the engine's snapshot/fill/submit loop can be exercised without a
// browser.
type fakeSession struct {
	url      string
	elements []browser.Element
	// redirectOnClick maps a button ref to the URL the page lands on after
	// clicking it.
	redirectOnClick map[string]string

	submitCount int
	// pageTextFor returns the post-submit body for the Nth submit.
	pageTextFor func(submits int, elements []browser.Element) string

	typed    map[string]string
	selected map[string]string
	uploads  []string
}

func newFakeSession(url string, elements []browser.Element) *fakeSession {
	return &fakeSession{
		url:      url,
		elements: elements,
		typed:    map[string]string{},
		selected: map[string]string{},
	}
}

func (f *fakeSession) Start(ctx context.Context) error { return nil }
func (f *fakeSession) Stop() error                     { return nil }

func (f *fakeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	f.url = url
	return nil
}

func (f *fakeSession) CurrentURL(ctx context.Context) (string, error) { return f.url, nil }

func (f *fakeSession) Snapshot(ctx context.Context) (*browser.Snapshot, error) {
	els := make([]browser.Element, len(f.elements))
	copy(els, f.elements)
	return &browser.Snapshot{Text: f.pageText(), Elements: els}, nil
}

func (f *fakeSession) PageText(ctx context.Context) (string, error) { return f.pageText(), nil }

func (f *fakeSession) pageText() string {
	if f.pageTextFor != nil {
		return f.pageTextFor(f.submitCount, f.elements)
	}
	return ""
}

func (f *fakeSession) Click(ctx context.Context, ref string) error {
	if u, ok := f.redirectOnClick[ref]; ok {
		f.url = u
		return nil
	}
	for _, el := range f.elements {
		if el.Ref == ref && el.Role == "button" {
			for _, label := range submitLabels {
				if strings.EqualFold(el.Label, label) {
					f.submitCount++
					return nil
				}
			}
		}
	}
	return nil
}

func (f *fakeSession) setValue(ref, value string) {
	for i := range f.elements {
		if f.elements[i].Ref == ref {
			f.elements[i].Value = value
		}
	}
}

func (f *fakeSession) Type(ctx context.Context, ref, text string) error {
	f.typed[ref] = text
	f.setValue(ref, text)
	return nil
}

func (f *fakeSession) SelectOption(ctx context.Context, ref, option string) error {
	if option == "" {
		option = "first option"
	}
	f.selected[ref] = option
	f.setValue(ref, option)
	return nil
}

func (f *fakeSession) Upload(ctx context.Context, ref, filePath string) error {
	f.uploads = append(f.uploads, filePath)
	return nil
}

func testProfile() *models.CandidateProfile {
	return &models.CandidateProfile{
		User: &models.User{
			Name:     "Ada Lovelace",
			Email:    "ada@example.com",
			Phone:    "+1 416 555 0100",
			Location: "Toronto, Ontario",
		},
		Experiences: []*models.Experience{{Title: "Software Developer", Company: "Analytical Engines"}},
	}
}

func greenhouseForm() []browser.Element {
	return []browser.Element{
		{Ref: "e1", Role: "textbox", Label: "First Name", Required: true},
		{Ref: "e2", Role: "textbox", Label: "Last Name", Required: true},
		{Ref: "e3", Role: "textbox", Label: "Email", Required: true},
		{Ref: "e4", Role: "combobox", Label: "Do you require visa sponsorship?", Required: true},
		{Ref: "e5", Role: "combobox", Label: "Gender identity"},
		{Ref: "e9", Role: "file", Label: "Attach resume"},
		{Ref: "e10", Role: "button", Label: "Submit Application"},
	}
}

func TestApplyGreenhouseHappyPath(t *testing.T) {
	sess := newFakeSession("", greenhouseForm())
	sess.pageTextFor = func(submits int, _ []browser.Element) string {
		if submits > 0 {
			return "Thank you for applying to Acme!"
		}
		return "Apply for this position"
	}

	engine := NewEngine(sess, NewRules(nil), nil)
	res, err := engine.Apply(context.Background(), Request{
		JobURL:     "https://boards.greenhouse.io/acme/jobs/123",
		Profile:    testProfile(),
		ResumePath: "/tmp/resume.pdf",
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "greenhouse", res.Method)

	assert.Equal(t, "Ada", sess.typed["e1"])
	assert.Equal(t, "Lovelace", sess.typed["e2"])
	assert.Equal(t, "ada@example.com", sess.typed["e3"])
	assert.Equal(t, "No", sess.selected["e4"])
	// Demographic dropdown untouched.
	assert.NotContains(t, sess.selected, "e5")
	assert.Equal(t, []string{"/tmp/resume.pdf"}, sess.uploads)
	assert.Equal(t, 1, sess.submitCount)
	assert.NotEmpty(t, res.Log)
}

func TestApplyRepairPassResubmitsOnce(t *testing.T) {
	form := append(greenhouseForm(),
		browser.Element{Ref: "e6", Role: "combobox", Label: "Office preference question", Required: true})
	sess := newFakeSession("", form)
	sess.pageTextFor = func(submits int, els []browser.Element) string {
		if submits == 0 {
			return ""
		}
		for _, el := range els {
			if el.Role == "combobox" && el.Required && el.Value == "" {
				return "This field is required"
			}
		}
		return "Your application has been submitted"
	}
	// Office question answers "Yes" on first fill; un-answer it to force
	// the validation failure path.
	engine := NewEngine(sess, NewRules(nil), nil)

	// Make e6 unanswerable on the first pass by giving it a label no rule
	// matches and marking it optional, then required after first submit.
	sess.elements[len(sess.elements)-1].Label = "Which team interests you?"
	sess.elements[len(sess.elements)-1].Required = false
	first := true
	base := sess.pageTextFor
	sess.pageTextFor = func(submits int, els []browser.Element) string {
		if submits >= 1 && first {
			first = false
			sess.elements[len(sess.elements)-1].Required = true
			return "This field is required"
		}
		return base(submits, els)
	}

	res, err := engine.Apply(context.Background(), Request{
		JobURL:  "https://boards.greenhouse.io/acme/jobs/123",
		Profile: testProfile(),
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, sess.submitCount)
	assert.Equal(t, "first option", sess.selected["e6"])
}

func TestApplyValidationRetryExhausted(t *testing.T) {
	sess := newFakeSession("", greenhouseForm())
	sess.pageTextFor = func(submits int, _ []browser.Element) string {
		if submits > 0 {
			return "Email is required\nPhone is required"
		}
		return ""
	}

	engine := NewEngine(sess, NewRules(nil), nil)
	res, err := engine.Apply(context.Background(), Request{
		JobURL:  "https://boards.greenhouse.io/acme/jobs/123",
		Profile: testProfile(),
	})

	require.Error(t, err)
	var exhausted *app.ValidationRetryExhausted
	require.ErrorAs(t, err, &exhausted)
	assert.False(t, res.Success)
	assert.Equal(t, 2, sess.submitCount)
}

func TestApplyRequiresLoginOnJobBoard(t *testing.T) {
	// A LinkedIn page with no company-site link cannot be applied to.
	sess := newFakeSession("", []browser.Element{
		{Ref: "e1", Role: "button", Label: "Sign in"},
	})

	engine := NewEngine(sess, NewRules(nil), nil)
	res, err := engine.Apply(context.Background(), Request{
		JobURL:  "https://www.linkedin.com/jobs/view/123",
		Profile: testProfile(),
	})

	require.ErrorIs(t, err, app.ErrRequiresLogin)
	assert.False(t, res.Success)
	assert.Equal(t, "manual_apply", res.Method)
}

func TestApplyFollowsCompanySiteLink(t *testing.T) {
	sess := newFakeSession("", []browser.Element{
		{Ref: "e1", Role: "button", Label: "Apply on company site"},
		{Ref: "e2", Role: "textbox", Label: "First Name"},
		{Ref: "e3", Role: "textbox", Label: "Email"},
		{Ref: "e4", Role: "button", Label: "Submit Application"},
	})
	sess.redirectOnClick = map[string]string{"e1": "https://jobs.lever.co/acme/role-1"}
	sess.pageTextFor = func(submits int, _ []browser.Element) string {
		if submits > 0 {
			return "application received"
		}
		return ""
	}

	engine := NewEngine(sess, NewRules(nil), nil)
	res, err := engine.Apply(context.Background(), Request{
		JobURL:  "https://ca.indeed.com/viewjob?jk=abc",
		Profile: testProfile(),
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "lever", res.Method)
	assert.Equal(t, "Ada", sess.typed["e2"])
}

func TestApplyTooFewFields(t *testing.T) {
	sess := newFakeSession("", []browser.Element{
		{Ref: "e1", Role: "button", Label: "Learn more"},
	})

	engine := NewEngine(sess, NewRules(nil), nil)
	res, err := engine.Apply(context.Background(), Request{
		JobURL:  "https://careers.acme.example/jobs/1",
		Profile: testProfile(),
	})

	require.Error(t, err)
	var unsupported *app.UnsupportedATSError
	require.ErrorAs(t, err, &unsupported)
	assert.False(t, res.Success)
}

func TestApplyVerificationTimeoutIsSoftSuccess(t *testing.T) {
	sess := newFakeSession("", greenhouseForm())
	sess.pageTextFor = func(submits int, _ []browser.Element) string {
		if submits > 0 {
			return "Enter the security code we emailed you"
		}
		return ""
	}

	engine := NewEngine(sess, NewRules(nil), timeoutVerifier{})
	res, err := engine.Apply(context.Background(), Request{
		JobURL:  "https://boards.greenhouse.io/acme/jobs/123",
		Profile: testProfile(),
	})

	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, "greenhouse_pending_verification", res.Method)
	assert.Contains(t, res.Notes, "check email")
}

func TestLogStepTagsFailedActions(t *testing.T) {
	hook := lrtest.NewGlobal()
	defer hook.Reset()
	prev := logrus.GetLevel()
	logrus.SetLevel(logrus.DebugLevel)
	defer logrus.SetLevel(prev)

	r := &run{engine: NewEngine(newFakeSession("", nil), NewRules(nil), nil)}
	r.logStep("fill", "type", "filled Email", "e1")
	r.logStep("fill", "type_error", "element not found", "e2")

	entries := hook.AllEntries()
	require.Len(t, entries, 2)
	assert.NotContains(t, entries[0].Data, logger.ErrorTypeField)
	assert.Equal(t, logger.ErrorTypeATS, entries[1].Data[logger.ErrorTypeField])
	assert.Len(t, r.steps, 2)
}

type timeoutVerifier struct{}

func (timeoutVerifier) Resolve(ctx context.Context, sess browser.Session, userEmail string) (string, error) {
	return "", &app.VerificationTimeoutError{Waited: 2 * time.Minute}
}
