package ats

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/pkg/models"
)

// maxSubmitAttempts bounds the submit-repair loop: one initial submit, one
// repair pass over missed required dropdowns, then give up.
const maxSubmitAttempts = 2

// minFieldsToSubmit is the sanity gate before clicking submit. Fewer filled
// fields means the form was not really found.
const minFieldsToSubmit = 2

// submitLabels is the preferred order of submit button texts.
var submitLabels = []string{
	"Submit Application",
	"Submit application",
	"Submit",
	"Apply",
	"Apply Now",
	"Send Application",
	"Complete Application",
}

// successPhrases confirm a submission on the post-submit page.
var successPhrases = []string{
	"application submitted",
	"thank you for applying",
	"thanks for applying",
	"application received",
	"successfully submitted",
	"we received your application",
	"application has been submitted",
	"you have applied",
}

// coverLetterLabels identify the free-text field a cover letter belongs in.
var coverLetterLabels = []string{"cover", "letter", "message", "additional", "comment"}

// Verifier resolves an email verification challenge after submission. It
// returns a note for the application record; a timeout is reported as
// *app.VerificationTimeoutError.
type Verifier interface {
	Resolve(ctx context.Context, sess browser.Session, userEmail string) (string, error)
}

// Request carries everything one application attempt needs.
type Request struct {
	JobURL      string
	Profile     *models.CandidateProfile
	CoverLetter string
	ResumePath  string
}

// Result is the outcome of an attempt. Log preserves every browser action
// so a person can pick up where the automation stopped.
type Result struct {
	Success bool
	Method  string
	Notes   string
	Log     []models.AutomationStep
}

// Engine applies to jobs through a browser session. One Engine handles one
// attempt at a time; the orchestrator serializes calls.
type Engine struct {
	session  browser.Session
	rules    *Rules
	verifier Verifier
	log      *logrus.Entry
}

func NewEngine(session browser.Session, rules *Rules, verifier Verifier) *Engine {
	return &Engine{
		session:  session,
		rules:    rules,
		verifier: verifier,
		log:      logrus.WithField("component", "ats"),
	}
}

// run is the per-attempt state: the action log plus fill counters.
type run struct {
	engine *Engine
	req    Request
	steps  []models.AutomationStep
	filled int
}

func (r *run) logStep(step, action, result, ref string) {
	r.steps = append(r.steps, models.AutomationStep{
		Step: step, Action: action, Ref: ref, Result: result, Timestamp: time.Now(),
	})
	fields := logrus.Fields{"step": step, "action": action}
	if stepFailed(action) {
		fields[logger.ErrorTypeField] = logger.ErrorTypeATS
	}
	r.engine.log.WithFields(fields).Debug(result)
}

// stepFailed reports whether an action name denotes a failed browser step,
// so the log line carries the shared error taxonomy field.
func stepFailed(action string) bool {
	switch action {
	case "error", "not_found", "insufficient", "no_input", "still_errors", "timeout":
		return true
	}
	return strings.HasSuffix(action, "_error")
}

// Apply navigates to the job URL, resolves the real career page, fills the
// vendor's form, submits, and verifies the outcome. The returned Result is
// valid even when err is non-nil; its Log explains how far the attempt got.
func (e *Engine) Apply(ctx context.Context, req Request) (*Result, error) {
	r := &run{engine: e, req: req}

	if err := e.session.Start(ctx); err != nil {
		return r.result(false, "none", "could not start browser"), err
	}
	defer e.session.Stop()

	r.logStep("navigate", "open_url", "navigating to "+req.JobURL, "")
	if err := e.session.Navigate(ctx, req.JobURL, 30*time.Second); err != nil {
		return r.result(false, "none", "could not load page"), err
	}
	browser.Settle(3*time.Second, 6*time.Second)

	destination, err := r.resolveDestination(ctx)
	if err != nil {
		return r.result(false, "manual_apply", "requires login on "+BoardName(destination)), err
	}

	vendor := Detect(destination)
	r.logStep("detect", "ats", "detected ATS: "+string(vendor), "")

	return r.applyVendor(ctx, vendor)
}

// resolveDestination follows aggregator pages to the company career page.
// Returns the final URL, or ErrRequiresLogin if stuck on a login-walled
// board.
func (r *run) resolveDestination(ctx context.Context) (string, error) {
	sess := r.engine.session

	current, err := sess.CurrentURL(ctx)
	if err != nil {
		current = r.req.JobURL
	}

	if IsJobBoard(current) {
		r.logStep("redirect", "career_page", "on "+BoardName(current)+", looking for company apply link", "")
		snap, err := sess.Snapshot(ctx)
		if err == nil {
			ref := snap.Buttons(
				"Apply on company site",
				"Apply on company",
				"Careers Site",
				"Apply on",
			)
			if ref != "" {
				r.logStep("redirect", "click", "following company apply link", ref)
				if err := sess.Click(ctx, ref); err == nil {
					browser.Settle(3*time.Second, 5*time.Second)
					if u, err := sess.CurrentURL(ctx); err == nil {
						current = u
					}
				}
			}
		}
	}

	if IsJobBoard(current) {
		r.logStep("skip", "job_board", "still on "+BoardName(current)+", cannot apply without login", "")
		return current, app.ErrRequiresLogin
	}
	return current, nil
}

func (r *run) applyVendor(ctx context.Context, vendor Vendor) (*Result, error) {
	sess := r.engine.session

	// Vendor-specific entry steps before the form is reachable.
	switch vendor {
	case VendorLever:
		r.clickIfPresent(ctx, "lever", "Apply for this job")
	case VendorWorkday:
		r.clickIfPresent(ctx, "workday", "Apply")
		r.clickIfPresent(ctx, "workday", "Apply Manually", "Apply Without")
	case VendorSmartRecruiters:
		r.clickIfPresent(ctx, "smartrecruiters", "Apply Now", "Apply")
	case VendorGreenhouse, VendorAshby:
		// Form lives on the landing page.
	default:
		r.clickIfPresent(ctx, "generic", "Apply Now", "Apply for this", "Apply")
	}

	// Workday parses an uploaded resume into the form, so upload first and
	// give it time to run.
	uploaded := false
	if vendor == VendorWorkday && r.req.ResumePath != "" {
		if r.uploadResume(ctx) {
			uploaded = true
			browser.Settle(4*time.Second, 6*time.Second)
		}
	}

	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return r.result(false, string(vendor), "could not read form"), err
	}

	r.fillForm(ctx, snap)
	if !uploaded && r.req.ResumePath != "" {
		r.uploadResume(ctx)
	}

	if r.filled < minFieldsToSubmit && !uploaded {
		r.logStep(string(vendor), "insufficient", "form not found or too few fields filled", "")
		return r.result(false, string(vendor), "application form not found"),
			&app.UnsupportedATSError{URL: r.req.JobURL, Filled: r.filled}
	}

	return r.submit(ctx, vendor)
}

// clickIfPresent clicks the first matching button if one exists. Silence on
// absence is intentional: these are optional entry steps.
func (r *run) clickIfPresent(ctx context.Context, step string, labels ...string) {
	snap, err := r.engine.session.Snapshot(ctx)
	if err != nil {
		return
	}
	ref := snap.Buttons(labels...)
	if ref == "" {
		return
	}
	r.logStep(step, "click", "clicking "+labels[0], ref)
	if err := r.engine.session.Click(ctx, ref); err == nil {
		browser.Settle(2*time.Second, 4*time.Second)
	}
}

func (r *run) uploadResume(ctx context.Context) bool {
	snap, err := r.engine.session.Snapshot(ctx)
	if err != nil {
		return false
	}
	for _, el := range snap.Fields() {
		if el.Role != "file" {
			continue
		}
		if err := r.engine.session.Upload(ctx, el.Ref, r.req.ResumePath); err != nil {
			r.logStep("upload", "error", err.Error(), el.Ref)
			continue
		}
		r.logStep("upload", "success", "uploaded resume", el.Ref)
		browser.Settle(2*time.Second, 3*time.Second)
		return true
	}
	r.logStep("upload", "no_input", "no file upload input found", "")
	return false
}

// fillForm walks the snapshot's fillable elements: profile values into
// textboxes, screening answers into dropdowns, the cover letter into the
// first matching free-text field. Demographic survey fields are skipped.
func (r *run) fillForm(ctx context.Context, snap *browser.Snapshot) {
	sess := r.engine.session
	coverDone := false

	for _, el := range snap.Fields() {
		if SkipLabel(el.Label) {
			continue
		}
		if el.Value != "" {
			continue
		}

		switch el.Role {
		case "combobox":
			answer := r.engine.rules.Answer(el.Label)
			if answer == "" && !el.Required {
				continue
			}
			if err := sess.SelectOption(ctx, el.Ref, answer); err != nil {
				r.logStep("fill", "select_error", err.Error(), el.Ref)
				continue
			}
			r.filled++
			if answer == "" {
				r.logStep("fill", "select_default", "picked default for required dropdown: "+el.Label, el.Ref)
			} else {
				r.logStep("fill", "select", "answered "+el.Label, el.Ref)
			}
			browser.Settle(300*time.Millisecond, 800*time.Millisecond)

		case "textbox":
			value := FieldValue(el.Label, r.req.Profile)
			if value == "" && !coverDone && r.req.CoverLetter != "" && matchesCoverLabel(el.Label) {
				value = r.req.CoverLetter
				coverDone = true
			}
			if value == "" {
				continue
			}
			if err := sess.Type(ctx, el.Ref, value); err != nil {
				r.logStep("fill", "type_error", err.Error(), el.Ref)
				continue
			}
			r.filled++
			r.logStep("fill", "type", "filled "+el.Label, el.Ref)
			browser.Settle(300*time.Millisecond, 800*time.Millisecond)
		}
	}
}

func matchesCoverLabel(label string) bool {
	lowered := strings.ToLower(label)
	for _, kw := range coverLetterLabels {
		if strings.Contains(lowered, kw) {
			return true
		}
	}
	return false
}

// submit clicks the submit button and inspects the resulting page. A
// validation failure triggers one repair pass over missed required
// dropdowns before resubmitting.
func (r *run) submit(ctx context.Context, vendor Vendor) (*Result, error) {
	sess := r.engine.session

	for attempt := 1; attempt <= maxSubmitAttempts; attempt++ {
		snap, err := sess.Snapshot(ctx)
		if err != nil {
			return r.result(false, string(vendor), "could not read page before submit"), err
		}

		ref := snap.Buttons(submitLabels...)
		if ref == "" {
			r.logStep("submit", "not_found", "no submit button found", "")
			return r.result(false, string(vendor), "no submit button found"),
				&app.UnsupportedATSError{URL: r.req.JobURL, Filled: r.filled}
		}

		r.logStep("submit", "click", "clicking submit", ref)
		if err := sess.Click(ctx, ref); err != nil {
			return r.result(false, string(vendor), "submit click failed"), err
		}
		browser.Settle(3*time.Second, 5*time.Second)

		text, err := sess.PageText(ctx)
		if err != nil {
			// Submit went through but the page is unreadable; treat as
			// submitted rather than retrying into a double application.
			r.logStep("submit", "clicked", "submitted, outcome unreadable", "")
			return r.result(true, string(vendor), ""), nil
		}
		lowered := strings.ToLower(text)

		for _, phrase := range successPhrases {
			if strings.Contains(lowered, phrase) {
				r.logStep("submit", "confirmed", "success confirmed on page", "")
				return r.result(true, string(vendor), ""), nil
			}
		}

		if strings.Contains(lowered, "security code") || strings.Contains(lowered, "verification code") {
			return r.handleVerification(ctx, vendor)
		}

		if attempt < maxSubmitAttempts && strings.Contains(lowered, "required") {
			r.logStep("submit", "validation_errors", "required fields flagged, repairing", "")
			r.repairDropdowns(ctx)
			continue
		}

		if strings.Contains(lowered, "required") {
			r.logStep("submit", "still_errors", "required fields still unfilled after repair", "")
			return r.result(false, string(vendor), "form has unfilled required fields"),
				&app.ValidationRetryExhausted{MissingFields: missingRequired(lowered)}
		}

		// No confirmation and no errors. The click landed; assume success.
		r.logStep("submit", "clicked", "submit clicked, no explicit confirmation", "")
		return r.result(true, string(vendor), ""), nil
	}

	return r.result(false, string(vendor), "submit attempts exhausted"),
		&app.ValidationRetryExhausted{}
}

// repairDropdowns fills any still-empty required dropdown with its default
// option. This is the one retry the engine allows itself.
func (r *run) repairDropdowns(ctx context.Context) {
	snap, err := r.engine.session.Snapshot(ctx)
	if err != nil {
		return
	}
	for _, el := range snap.Fields() {
		if el.Role != "combobox" || el.Value != "" || SkipLabel(el.Label) {
			continue
		}
		if err := r.engine.session.SelectOption(ctx, el.Ref, ""); err != nil {
			continue
		}
		r.filled++
		r.logStep("repair", "select_default", "filled missed dropdown: "+el.Label, el.Ref)
		browser.Settle(200*time.Millisecond, 400*time.Millisecond)
	}
}

// missingRequired extracts a short description of flagged fields from the
// post-submit page text for the error record.
func missingRequired(lowered string) []string {
	var out []string
	for _, line := range strings.Split(lowered, "\n") {
		line = strings.TrimSpace(line)
		if strings.Contains(line, "required") && len(line) < 80 {
			out = append(out, line)
			if len(out) == 3 {
				break
			}
		}
	}
	return out
}

// handleVerification hands the post-submit email challenge to the verifier.
// A verification timeout still counts as submitted: the form went through,
// only the confirmation is pending.
func (r *run) handleVerification(ctx context.Context, vendor Vendor) (*Result, error) {
	if r.engine.verifier == nil {
		r.logStep("verify", "skipped", "email verification required but no mailbox configured", "")
		return r.result(true, string(vendor)+"_pending_verification",
			"submitted, check email for the verification code"), nil
	}

	r.logStep("verify", "waiting", "waiting for verification code email", "")
	note, err := r.engine.verifier.Resolve(ctx, r.engine.session, r.req.Profile.User.Email)
	if err != nil {
		var timeout *app.VerificationTimeoutError
		if errors.As(err, &timeout) {
			r.logStep("verify", "timeout", "code did not arrive in time", "")
			return r.result(true, string(vendor)+"_pending_verification",
				"submitted, verification code not received, check email manually"), nil
		}
		r.logStep("verify", "error", err.Error(), "")
		return r.result(true, string(vendor)+"_pending_verification",
			"submitted, verification failed: "+err.Error()), nil
	}

	r.logStep("verify", "verified", "application verified", "")
	return r.result(true, string(vendor)+"_verified", note), nil
}

func (r *run) result(success bool, method, notes string) *Result {
	return &Result{Success: success, Method: method, Notes: notes, Log: r.steps}
}
