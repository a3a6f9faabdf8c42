// Package browser provides a uniform capability interface over
// interchangeable browser automation backends: a local headless Chrome
// driver and a remote browser-control gateway. Nothing above this package
// knows which backend is active.
package browser

import (
	"context"
	"math/rand"
	"strings"
	"time"
)

// Element is one interactive element from a page snapshot. Ref is an opaque
// backend-specific handle valid until the next navigation.
type Element struct {
	Ref      string
	Role     string // textbox, combobox, file, button, option
	Label    string
	Value    string
	Required bool
}

// Snapshot is a structured page representation: readable text plus the
// interactive elements discovered on the page.
type Snapshot struct {
	Text     string
	Elements []Element
}

// FindByLabel returns the ref of the first element whose label contains one
// of the given labels, tried in order. Matching is case-insensitive; the
// caller's ordering expresses preference.
func (s *Snapshot) FindByLabel(roles []string, labels ...string) string {
	for _, want := range labels {
		want = strings.ToLower(want)
		for _, el := range s.Elements {
			if len(roles) > 0 && !containsRole(roles, el.Role) {
				continue
			}
			if strings.Contains(strings.ToLower(el.Label), want) {
				return el.Ref
			}
		}
	}
	return ""
}

// Buttons returns the ref of the first button-like element matching one of
// the labels, in label order.
func (s *Snapshot) Buttons(labels ...string) string {
	return s.FindByLabel([]string{"button"}, labels...)
}

// Fields returns the fillable elements (text inputs, dropdowns, uploads).
func (s *Snapshot) Fields() []Element {
	var out []Element
	for _, el := range s.Elements {
		switch el.Role {
		case "textbox", "combobox", "file":
			out = append(out, el)
		}
	}
	return out
}

func containsRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// Session drives one browser end-to-end for one application attempt.
// Sessions are stateful (cookies and navigation persist across calls) and
// must be explicitly started and stopped; leaking one is a defect. Callers
// must not assume synchronous completion of page transitions: insert a
// Settle after every navigation and click.
type Session interface {
	Start(ctx context.Context) error
	Stop() error

	Navigate(ctx context.Context, url string, timeout time.Duration) error
	CurrentURL(ctx context.Context) (string, error)
	Snapshot(ctx context.Context) (*Snapshot, error)
	PageText(ctx context.Context) (string, error)

	Click(ctx context.Context, ref string) error
	Type(ctx context.Context, ref, text string) error
	// SelectOption picks the option whose text contains option. An empty
	// option string picks the first real choice, skipping placeholders.
	SelectOption(ctx context.Context, ref, option string) error
	Upload(ctx context.Context, ref, filePath string) error
}

// Settle sleeps a random, human-like interval. Required after navigations
// and clicks: asynchronous page rendering means premature field access
// silently fails, and uniform delays are an automation signature.
func Settle(min, max time.Duration) {
	if max <= min {
		time.Sleep(min)
		return
	}
	time.Sleep(min + time.Duration(rand.Int63n(int64(max-min))))
}
