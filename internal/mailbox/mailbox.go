// Package mailbox reads a user's hosted inbox over its REST API. The
// verifier searches it for confirmation emails sent by applicant tracking
// systems during submission.
package mailbox

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

// Message is one inbox entry from a search result. Body is not populated by
// Search; fetch it separately with GetBody.
type Message struct {
	ID      string    `json:"id"`
	From    string    `json:"from"`
	Subject string    `json:"subject"`
	Date    time.Time `json:"date"`
}

// Mailbox is the read surface the verifier polls against.
type Mailbox interface {
	Search(ctx context.Context, user string, query string, max int) ([]Message, error)
	GetBody(ctx context.Context, id string) (string, error)
}

// HTTPClient lets tests substitute the transport.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Client talks to the mailbox HTTP API. Requests are rate limited so a tight
// verification poll cannot hammer the mail host.
type Client struct {
	baseURL string
	token   string
	http    HTTPClient
	limiter *rate.Limiter
}

var _ Mailbox = (*Client)(nil)

func NewClient(baseURL, token string, httpClient HTTPClient) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{
		baseURL: baseURL,
		token:   token,
		http:    httpClient,
		limiter: rate.NewLimiter(rate.Every(time.Second), 2),
	}
}

func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}

	u := c.baseURL + path
	if len(params) > 0 {
		u += "?" + params.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return errors.Wrap(err, "building mailbox request")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "mailbox request")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return errors.Errorf("mailbox returned %d: %s", resp.StatusCode, body)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return errors.Wrap(err, "decoding mailbox response")
	}
	return nil
}

func (c *Client) Search(ctx context.Context, user string, query string, max int) ([]Message, error) {
	params := url.Values{}
	params.Set("user", user)
	params.Set("q", query)
	params.Set("limit", strconv.Itoa(max))

	var result struct {
		Messages []Message `json:"messages"`
	}
	if err := c.get(ctx, "/api/messages/search", params, &result); err != nil {
		return nil, err
	}
	return result.Messages, nil
}

func (c *Client) GetBody(ctx context.Context, id string) (string, error) {
	var result struct {
		Body string `json:"body"`
	}
	path := fmt.Sprintf("/api/messages/%s/body", url.PathEscape(id))
	if err := c.get(ctx, path, nil, &result); err != nil {
		return "", err
	}
	return result.Body, nil
}
