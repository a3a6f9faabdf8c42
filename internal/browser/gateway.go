package browser

import (
	"context"
	"encoding/json"
	"net"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/gobwas/ws"
	"github.com/gobwas/ws/wsutil"
	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/applypilot/applypilot/internal/app"
)

const (
	gatewayProtocolVersion = 3
	gatewayProfile         = "applypilot"
	gatewayRequestTimeout  = 30 * time.Second
)

// GatewaySession drives a browser hosted behind a remote control gateway.
// The gateway speaks a JSON request/response protocol over a websocket:
// requests carry {"type":"req","id":...,"method":...,"params":...} and the
// matching response echoes the id with {"type":"res","ok":...}. Event
// frames arrive interleaved and are skipped while waiting for a response.
type GatewaySession struct {
	url   string
	token string

	mu      sync.Mutex
	conn    net.Conn
	lastURL string
}

var _ Session = (*GatewaySession)(nil)

func NewGatewaySession(url, token string) *GatewaySession {
	return &GatewaySession{url: url, token: token}
}

type gatewayFrame struct {
	Type    string          `json:"type"`
	ID      string          `json:"id,omitempty"`
	Event   string          `json:"event,omitempty"`
	Method  string          `json:"method,omitempty"`
	Params  interface{}     `json:"params,omitempty"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   *gatewayError   `json:"error,omitempty"`
}

type gatewayError struct {
	Message string `json:"message"`
}

func (s *GatewaySession) Start(ctx context.Context) error {
	conn, _, _, err := ws.Dial(ctx, s.url)
	if err != nil {
		return &app.SessionError{Op: "start", Reason: "dialing gateway", Err: err}
	}
	s.conn = conn

	// The gateway opens with a connect.challenge event and expects a
	// connect request before it will serve anything else.
	if err := s.handshake(ctx); err != nil {
		conn.Close()
		s.conn = nil
		return &app.SessionError{Op: "start", Reason: "gateway handshake", Err: err}
	}

	// A stale browser from a previous run holds the profile's port.
	_, _ = s.browserRequest(ctx, "POST", "/stop", nil)
	time.Sleep(time.Second)

	if _, err := s.browserRequest(ctx, "POST", "/start", nil); err != nil {
		return &app.SessionError{Op: "start", Reason: "starting remote browser", Err: err}
	}
	return nil
}

func (s *GatewaySession) handshake(ctx context.Context) error {
	frame, err := s.readFrame()
	if err != nil {
		return err
	}
	if frame.Type != "event" || frame.Event != "connect.challenge" {
		return errors.Errorf("expected connect.challenge, got %s %s", frame.Type, frame.Event)
	}

	params := map[string]interface{}{
		"minProtocol": gatewayProtocolVersion,
		"maxProtocol": gatewayProtocolVersion,
		"client": map[string]string{
			"id":          "gateway-client",
			"displayName": "applypilot",
			"version":     "1.0.0",
			"platform":    "linux",
			"mode":        "backend",
		},
		"caps":   []string{},
		"role":   "operator",
		"scopes": []string{"operator.admin"},
	}
	if s.token != "" {
		params["auth"] = map[string]string{"token": s.token}
	}

	res, err := s.request(ctx, "connect", params)
	if err != nil {
		return err
	}
	if !res.OK && res.Error != nil {
		return errors.Errorf("gateway rejected connect: %s", res.Error.Message)
	}
	return nil
}

func (s *GatewaySession) Stop() error {
	if s.conn == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_, _ = s.browserRequest(ctx, "POST", "/stop", nil)
	err := s.conn.Close()
	s.conn = nil
	return err
}

func (s *GatewaySession) readFrame() (*gatewayFrame, error) {
	data, err := wsutil.ReadServerText(s.conn)
	if err != nil {
		return nil, errors.Wrap(err, "reading gateway frame")
	}
	var frame gatewayFrame
	if err := json.Unmarshal(data, &frame); err != nil {
		return nil, errors.Wrap(err, "decoding gateway frame")
	}
	return &frame, nil
}

// request sends one request and blocks until the response with the matching
// id arrives, discarding interleaved event frames. Calls are serialized; the
// protocol is strictly one outstanding request per client.
func (s *GatewaySession) request(ctx context.Context, method string, params interface{}) (*gatewayFrame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.conn == nil {
		return nil, app.ErrSessionNotActive
	}

	id := uuid.NewString()
	req := gatewayFrame{Type: "req", ID: id, Method: method, Params: params}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, errors.Wrap(err, "encoding gateway request")
	}

	deadline := time.Now().Add(gatewayRequestTimeout)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := s.conn.SetDeadline(deadline); err != nil {
		return nil, errors.Wrap(err, "setting gateway deadline")
	}

	if err := wsutil.WriteClientText(s.conn, data); err != nil {
		return nil, errors.Wrap(err, "writing gateway request")
	}

	for {
		frame, err := s.readFrame()
		if err != nil {
			return nil, err
		}
		if frame.Type == "res" && frame.ID == id {
			return frame, nil
		}
		// Event frames (agent output, lifecycle notices) are not ours.
	}
}

// browserRequest wraps the browser.request gateway method, which exposes the
// browser control surface as method+path pairs.
func (s *GatewaySession) browserRequest(ctx context.Context, method, path string, body map[string]interface{}) (json.RawMessage, error) {
	params := map[string]interface{}{
		"method": method,
		"path":   path,
		"query":  map[string]string{"profile": gatewayProfile},
	}
	if body != nil {
		params["body"] = body
	}
	res, err := s.request(ctx, "browser.request", params)
	if err != nil {
		return nil, err
	}
	if !res.OK {
		msg := "gateway request failed"
		if res.Error != nil {
			msg = res.Error.Message
		}
		return nil, errors.Errorf("%s %s: %s", method, path, msg)
	}
	return res.Payload, nil
}

func (s *GatewaySession) Navigate(ctx context.Context, url string, timeout time.Duration) error {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}
	_, err := s.browserRequest(ctx, "POST", "/navigate", map[string]interface{}{"url": url})
	if err != nil {
		return &app.SessionError{Op: "navigate", Reason: url, Err: err}
	}
	s.lastURL = url
	return nil
}

type gatewaySnapshotPayload struct {
	Snapshot string `json:"snapshot"`
	URL      string `json:"url"`
}

func (s *GatewaySession) fetchSnapshot(ctx context.Context) (*gatewaySnapshotPayload, error) {
	raw, err := s.browserRequest(ctx, "GET", "/snapshot", nil)
	if err != nil {
		return nil, &app.SessionError{Op: "snapshot", Err: err}
	}
	var payload gatewaySnapshotPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, &app.SessionError{Op: "snapshot", Reason: "decoding payload", Err: err}
	}
	if payload.URL != "" {
		s.lastURL = payload.URL
	}
	return &payload, nil
}

func (s *GatewaySession) CurrentURL(ctx context.Context) (string, error) {
	payload, err := s.fetchSnapshot(ctx)
	if err != nil {
		return "", err
	}
	if payload.URL != "" {
		return payload.URL, nil
	}
	return s.lastURL, nil
}

func (s *GatewaySession) Snapshot(ctx context.Context) (*Snapshot, error) {
	payload, err := s.fetchSnapshot(ctx)
	if err != nil {
		return nil, err
	}
	return parseAccessibilityTree(payload.Snapshot), nil
}

func (s *GatewaySession) PageText(ctx context.Context) (string, error) {
	payload, err := s.fetchSnapshot(ctx)
	if err != nil {
		return "", err
	}
	return payload.Snapshot, nil
}

func (s *GatewaySession) act(ctx context.Context, body map[string]interface{}, op, ref string) error {
	if _, err := s.browserRequest(ctx, "POST", "/act", body); err != nil {
		return &app.SessionError{Op: op, Reason: ref, Err: err}
	}
	return nil
}

func (s *GatewaySession) Click(ctx context.Context, ref string) error {
	return s.act(ctx, map[string]interface{}{"action": "click", "ref": ref}, "click", ref)
}

func (s *GatewaySession) Type(ctx context.Context, ref, text string) error {
	return s.act(ctx, map[string]interface{}{"action": "type", "ref": ref, "text": text}, "type", ref)
}

func (s *GatewaySession) SelectOption(ctx context.Context, ref, option string) error {
	return s.act(ctx, map[string]interface{}{"action": "select", "ref": ref, "option": option}, "select", ref)
}

func (s *GatewaySession) Upload(ctx context.Context, ref, filePath string) error {
	return s.act(ctx, map[string]interface{}{"action": "upload", "ref": ref, "path": filePath}, "upload", ref)
}

// Accessibility tree lines look like:
//
//  - textbox "First Name" [ref=e12] required: "Ada"
//  - button "Submit Application" [ref=e40]
//  - combobox "Are you authorized to work?" [ref=e31]
var treeLineRe = regexp.MustCompile(`(textbox|searchbox|combobox|listbox|button|link|option|checkbox|radio|file)\s+"([^"]*)"\s*\[ref=(\w+)\]( required)?(?::\s*"([^"]*)")?`)

// parseAccessibilityTree turns a gateway accessibility snapshot into the
// uniform element inventory. Unknown roles are dropped; role names are
// collapsed to the ones the form engine understands.
func parseAccessibilityTree(tree string) *Snapshot {
	snap := &Snapshot{Text: tree}
	for _, line := range strings.Split(tree, "\n") {
		m := treeLineRe.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		role := m[1]
		switch role {
		case "searchbox":
			role = "textbox"
		case "listbox":
			role = "combobox"
		case "link":
			role = "button"
		case "checkbox", "radio":
			role = "option"
		}
		label := m[2]
		// File inputs often surface as buttons labelled for upload.
		if role == "button" && strings.Contains(strings.ToLower(label), "attach") {
			role = "file"
		}
		snap.Elements = append(snap.Elements, Element{
			Ref:      m[3],
			Role:     role,
			Label:    label,
			Value:    m[5],
			Required: m[4] != "",
		})
	}
	return snap
}
