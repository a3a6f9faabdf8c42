package browser

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/chromedp/chromedp"
	"github.com/pkg/errors"

	"github.com/applypilot/applypilot/internal/app"
)

const defaultNavigateTimeout = 30 * time.Second

// snapshotJS tags every interactive element with a stable ref attribute and
// returns the element inventory. Refs survive until the next navigation, so
// Click and Type can address elements by attribute selector.
const snapshotJS = `(() => {
	const out = [];
	let n = 0;
	const label = (el) => {
		if (el.getAttribute('aria-label')) return el.getAttribute('aria-label');
		if (el.id) {
			const l = document.querySelector('label[for="' + CSS.escape(el.id) + '"]');
			if (l) return l.innerText.trim();
		}
		const wrap = el.closest('label');
		if (wrap) return wrap.innerText.trim();
		if (el.placeholder) return el.placeholder;
		if (el.tagName === 'BUTTON' || el.tagName === 'A') return (el.innerText || el.value || '').trim();
		return el.name || '';
	};
	const visible = (el) => {
		const r = el.getBoundingClientRect();
		return r.width > 0 && r.height > 0;
	};
	const sel = 'input, textarea, select, button, a[href], [role="option"], [role="button"], [role="combobox"]';
	for (const el of document.querySelectorAll(sel)) {
		if (!visible(el) || el.disabled) continue;
		if (el.type === 'hidden') continue;
		let role;
		if (el.tagName === 'SELECT' || el.getAttribute('role') === 'combobox') role = 'combobox';
		else if (el.type === 'file') role = 'file';
		else if (el.tagName === 'INPUT' || el.tagName === 'TEXTAREA') role = 'textbox';
		else if (el.getAttribute('role') === 'option') role = 'option';
		else role = 'button';
		n++;
		el.setAttribute('data-ap-ref', String(n));
		let value = el.value || '';
		if (el.tagName === 'SELECT' && el.selectedIndex >= 0) {
			const opt = el.options[el.selectedIndex];
			value = opt && opt.value !== '' ? opt.text : '';
		}
		out.push({
			ref: String(n),
			role: role,
			label: label(el).slice(0, 200),
			value: value,
			required: el.required || el.getAttribute('aria-required') === 'true',
		});
	}
	return out;
})()`

// selectJS picks the option whose visible text contains the given answer on
// a native select element, then fires a change event so framework listeners
// see the update.
const selectJS = `(() => {
	const el = document.querySelector('[data-ap-ref=%q]');
	if (!el || el.tagName !== 'SELECT') return false;
	const want = %q.toLowerCase();
	for (const opt of el.options) {
		if (want === '' && opt.value === '') continue;
		if (want !== '' && !opt.text.toLowerCase().includes(want)) continue;
		el.value = opt.value;
		el.dispatchEvent(new Event('change', { bubbles: true }));
		return true;
	}
	return false;
})()`

// ChromeSession drives a locally launched headless Chrome via the DevTools
// protocol.
type ChromeSession struct {
	ctx    context.Context
	cancel context.CancelFunc
}

var _ Session = (*ChromeSession)(nil)

func NewChromeSession() *ChromeSession { return &ChromeSession{} }

func (s *ChromeSession) Start(ctx context.Context) error {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("no-sandbox", true),
		chromedp.Flag("disable-background-timer-throttling", true),
		chromedp.Flag("disable-renderer-backgrounding", true),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("excludeSwitches", "enable-automation"),
		chromedp.Flag("useAutomationExtension", false),
		chromedp.UserAgent("Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(ctx, opts...)
	// chromedp logs unmarshal warnings for CDP events it does not know;
	// they are harmless and drown out real errors.
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx, chromedp.WithLogf(func(format string, v ...interface{}) {
		msg := fmt.Sprintf(format, v...)
		if strings.Contains(msg, "could not unmarshal event") ||
			strings.Contains(msg, "unknown PrivateNetworkRequestPolicy") ||
			strings.Contains(msg, "unknown ClientNavigationReason") {
			return
		}
		log.Printf(format, v...)
	}))

	if err := chromedp.Run(browserCtx); err != nil {
		cancelBrowser()
		cancelAlloc()
		return &app.SessionError{Op: "start", Reason: "launching chrome", Err: err}
	}

	s.ctx = browserCtx
	s.cancel = func() {
		cancelBrowser()
		cancelAlloc()
	}
	return nil
}

func (s *ChromeSession) Stop() error {
	if s.cancel == nil {
		return nil
	}
	s.cancel()
	s.ctx, s.cancel = nil, nil
	return nil
}

func (s *ChromeSession) active() error {
	if s.ctx == nil {
		return app.ErrSessionNotActive
	}
	return nil
}

func (s *ChromeSession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if err := s.active(); err != nil {
		return err
	}
	if timeout <= 0 {
		timeout = defaultNavigateTimeout
	}
	runCtx, cancel := context.WithTimeout(s.ctx, timeout)
	defer cancel()

	err := chromedp.Run(runCtx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body"),
	)
	if err != nil {
		return &app.SessionError{Op: "navigate", Reason: url, Err: err}
	}
	return nil
}

func (s *ChromeSession) CurrentURL(ctx context.Context) (string, error) {
	if err := s.active(); err != nil {
		return "", err
	}
	var url string
	if err := chromedp.Run(s.ctx, chromedp.Location(&url)); err != nil {
		return "", &app.SessionError{Op: "current_url", Err: err}
	}
	return url, nil
}

func (s *ChromeSession) Snapshot(ctx context.Context) (*Snapshot, error) {
	if err := s.active(); err != nil {
		return nil, err
	}
	var elements []Element
	var text string
	err := chromedp.Run(s.ctx,
		chromedp.Evaluate(snapshotJS, &elements),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return nil, &app.SessionError{Op: "snapshot", Err: err}
	}
	return &Snapshot{Text: text, Elements: elements}, nil
}

func (s *ChromeSession) PageText(ctx context.Context) (string, error) {
	if err := s.active(); err != nil {
		return "", err
	}
	var text string
	if err := chromedp.Run(s.ctx, chromedp.Text("body", &text, chromedp.ByQuery)); err != nil {
		return "", &app.SessionError{Op: "page_text", Err: err}
	}
	return text, nil
}

func refSelector(ref string) string {
	return fmt.Sprintf(`[data-ap-ref=%q]`, ref)
}

func (s *ChromeSession) Click(ctx context.Context, ref string) error {
	if err := s.active(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, 10*time.Second)
	defer cancel()
	if err := chromedp.Run(runCtx, chromedp.Click(refSelector(ref), chromedp.ByQuery)); err != nil {
		return &app.SessionError{Op: "click", Reason: ref, Err: err}
	}
	return nil
}

func (s *ChromeSession) Type(ctx context.Context, ref, text string) error {
	if err := s.active(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, 15*time.Second)
	defer cancel()
	err := chromedp.Run(runCtx,
		chromedp.Clear(refSelector(ref), chromedp.ByQuery),
		chromedp.SendKeys(refSelector(ref), text, chromedp.ByQuery),
	)
	if err != nil {
		return &app.SessionError{Op: "type", Reason: ref, Err: err}
	}
	return nil
}

func (s *ChromeSession) SelectOption(ctx context.Context, ref, option string) error {
	if err := s.active(); err != nil {
		return err
	}
	var ok bool
	expr := fmt.Sprintf(selectJS, ref, option)
	if err := chromedp.Run(s.ctx, chromedp.Evaluate(expr, &ok)); err != nil {
		return &app.SessionError{Op: "select", Reason: ref, Err: err}
	}
	if !ok {
		return &app.SessionError{Op: "select", Reason: ref, Err: errors.Errorf("no option matching %q", option)}
	}
	return nil
}

func (s *ChromeSession) Upload(ctx context.Context, ref, filePath string) error {
	if err := s.active(); err != nil {
		return err
	}
	runCtx, cancel := context.WithTimeout(s.ctx, 30*time.Second)
	defer cancel()
	err := chromedp.Run(runCtx,
		chromedp.SetUploadFiles(refSelector(ref), []string{filePath}, chromedp.ByQuery),
	)
	if err != nil {
		return &app.SessionError{Op: "upload", Reason: ref, Err: err}
	}
	return nil
}
