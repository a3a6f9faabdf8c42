// Package verifier resolves post-submission email challenges. Some ATS
// vendors gate submitted applications behind a security code sent to the
// candidate's inbox; the verifier polls the mailbox, extracts the code, and
// enters it into the waiting form.
package verifier

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/applypilot/applypilot/internal/app"
	"github.com/applypilot/applypilot/internal/browser"
	"github.com/applypilot/applypilot/internal/logger"
	"github.com/applypilot/applypilot/internal/mailbox"
)

const (
	// 24 polls at 5s spacing, roughly two minutes end to end.
	pollAttempts = 24
	pollInterval = 5 * time.Second

	maxMessages = 5

	// codeMaxAge bounds how old a challenge email may be. Anything older
	// belongs to a previous application and its code must not be reused.
	codeMaxAge = 10 * time.Minute
)

// senderDomains are the ATS mail domains challenge codes arrive from.
var senderDomains = []string{
	"greenhouse.io",
	"lever.co",
	"myworkday.com",
	"ashbyhq.com",
	"smartrecruiters.com",
}

// searchQuery restricts the mailbox search to ATS senders, challenge
// subjects, and messages newer than since.
func searchQuery(since time.Time) string {
	return fmt.Sprintf("from:(%s) subject:(security code OR verification) after:%d",
		strings.Join(senderDomains, " OR "), since.Unix())
}

// codePatterns are tried in order against the email body. Group 1 is the
// candidate code; validity is checked separately.
var codePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)security\s*code[:\s]+([A-Za-z0-9]{6,10})`),
	regexp.MustCompile(`(?i)verification\s*code[:\s]+([A-Za-z0-9]{6,10})`),
	regexp.MustCompile(`(?i)code[:\s]+([A-Za-z0-9]{6,10})`),
	regexp.MustCompile(`(?i)paste\s+this\s+code[:\s]+([A-Za-z0-9]{6,10})`),
	regexp.MustCompile(`(?i)(?:is|code)[:\s]+([A-Za-z0-9]{6,10})`),
	// Bare 8-character code on its own line, the common Greenhouse format.
	regexp.MustCompile(`\n\s*([A-Za-z0-9]{8})\s*\n`),
}

var alnumRe = regexp.MustCompile(`^[A-Za-z0-9]+$`)

// verifyButtons orders the button labels that confirm an entered code.
var verifyButtons = []string{"Verify", "Submit", "Continue"}

// codeFieldLabels identify the input that takes the code.
var codeFieldLabels = []string{"security code", "verification code", "code"}

// Verifier polls a mailbox for challenge codes and completes the
// verification form through the browser session.
type Verifier struct {
	mailbox  mailbox.Mailbox
	attempts int
	interval time.Duration
	log      *logrus.Entry
}

func New(mb mailbox.Mailbox) *Verifier {
	return &Verifier{
		mailbox:  mb,
		attempts: pollAttempts,
		interval: pollInterval,
		log:      logrus.WithField("component", "verifier"),
	}
}

// ExtractCode pulls a verification code out of an email body, or "" when
// none of the known formats match.
func ExtractCode(body string) string {
	for _, re := range codePatterns {
		m := re.FindStringSubmatch(body)
		if m == nil {
			continue
		}
		code := strings.TrimSpace(m[1])
		if len(code) >= 6 && len(code) <= 10 && alnumRe.MatchString(code) {
			return code
		}
	}
	return ""
}

// Resolve waits for the challenge email, enters the code, and clicks
// through the verification form. It honors ctx cancellation between polls
// and returns *app.VerificationTimeoutError when the deadline passes with
// no code; the caller decides whether that is fatal.
func (v *Verifier) Resolve(ctx context.Context, sess browser.Session, userEmail string) (string, error) {
	since := time.Now().Add(-codeMaxAge)
	for attempt := 1; attempt <= v.attempts; attempt++ {
		code, err := v.fetchCode(ctx, userEmail, since)
		if err != nil {
			v.log.WithField(logger.ErrorTypeField, logger.ErrorTypeMailbox).
				WithError(err).Warn("mailbox poll failed")
		}
		if code != "" {
			v.log.WithField("attempt", attempt).Info("verification code received")
			return v.enterCode(ctx, sess, code)
		}

		select {
		case <-ctx.Done():
			return "", ctx.Err()
		case <-time.After(v.interval):
		}
	}
	return "", &app.VerificationTimeoutError{Waited: time.Duration(v.attempts) * v.interval}
}

// fetchCode searches the newest challenge emails for an extractable code.
// Messages dated before since are skipped even if the mailbox ignores the
// query's after term.
func (v *Verifier) fetchCode(ctx context.Context, userEmail string, since time.Time) (string, error) {
	msgs, err := v.mailbox.Search(ctx, userEmail, searchQuery(since), maxMessages)
	if err != nil {
		return "", err
	}
	for _, msg := range msgs {
		if !msg.Date.IsZero() && msg.Date.Before(since) {
			continue
		}
		body, err := v.mailbox.GetBody(ctx, msg.ID)
		if err != nil {
			continue
		}
		if code := ExtractCode(body); code != "" {
			return code, nil
		}
	}
	return "", nil
}

// enterCode types the code into the verification input and clicks the
// confirm button, then reads the page to see whether verification landed.
func (v *Verifier) enterCode(ctx context.Context, sess browser.Session, code string) (string, error) {
	snap, err := sess.Snapshot(ctx)
	if err != nil {
		return "", err
	}

	ref := snap.FindByLabel([]string{"textbox"}, codeFieldLabels...)
	if ref == "" {
		return "code received but no input field found, enter it manually: " + code, nil
	}
	if err := sess.Type(ctx, ref, code); err != nil {
		return "", err
	}
	browser.Settle(300*time.Millisecond, 700*time.Millisecond)

	if btn := snap.Buttons(verifyButtons...); btn != "" {
		if err := sess.Click(ctx, btn); err != nil {
			return "", err
		}
		browser.Settle(2*time.Second, 4*time.Second)
	}

	text, err := sess.PageText(ctx)
	if err == nil {
		lowered := strings.ToLower(text)
		for _, phrase := range []string{"thank", "received", "submitted", "success"} {
			if strings.Contains(lowered, phrase) {
				return "application verified", nil
			}
		}
	}
	return "code entered, confirm the application was received", nil
}
