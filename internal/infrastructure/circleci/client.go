package circleci

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/avast/retry-go/v4"

	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/errors"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/domain/ports"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/infrastructure/httpclient"
	"github.com/nwb-extensions/nwb-extensions-webservices/internal/logger"
)

const DefaultBaseURL = "https://circleci.com/api/v1.1"

var _ ports.CIKeyRefresher = (*Client)(nil)

type CheckoutKey struct {
	PublicKey   string `json:"public_key"`
	Type        string `json:"type"`
	Fingerprint string `json:"fingerprint"`
	Preferred   bool   `json:"preferred"`
}

type Client struct {
	baseURL    string
	token      string
	httpClient httpclient.HTTPClient
	attempts   uint
	delay      time.Duration
}

type Option func(*Client)

func WithBaseURL(u string) Option {
	return func(c *Client) { c.baseURL = u }
}

func WithHTTPClient(hc httpclient.HTTPClient) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how often server errors are retried.
func WithRetry(attempts uint, delay time.Duration) Option {
	return func(c *Client) {
		c.attempts = attempts
		c.delay = delay
	}
}

func NewClient(token string, opts ...Option) *Client {
	c := &Client{
		baseURL:    DefaultBaseURL,
		token:      token,
		httpClient: httpclient.New(30 * time.Second),
		attempts:   3,
		delay:      time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UpdateCircle follows the project, drops every existing deploy key and
// asks CircleCI for a fresh one.
func (c *Client) UpdateCircle(ctx context.Context, org, repo string) error {
	log := logger.FromContext(ctx)

	if c.token == "" {
		return errors.ErrCircleTokenMissing
	}

	if err := c.do(ctx, http.MethodPost, c.projectURL(org, repo, "follow"), nil, nil); err != nil {
		return err
	}

	var keys []CheckoutKey
	if err := c.do(ctx, http.MethodGet, c.projectURL(org, repo, "checkout-key"), nil, &keys); err != nil {
		return err
	}

	for _, key := range keys {
		if key.Type != "deploy-key" {
			continue
		}
		if err := c.do(ctx, http.MethodDelete, c.projectURL(org, repo, "checkout-key", key.Fingerprint), nil, nil); err != nil {
			return err
		}
		log.Debug("deleted deploy key", "repo", org+"/"+repo, "fingerprint", key.Fingerprint)
	}

	if err := c.do(ctx, http.MethodPost, c.projectURL(org, repo, "checkout-key"), map[string]string{"type": "deploy-key"}, nil); err != nil {
		return err
	}

	log.Info("circle-ci deploy key refreshed", "repo", org+"/"+repo)
	return nil
}

func (c *Client) projectURL(org, repo string, parts ...string) string {
	u := fmt.Sprintf("%s/project/github/%s/%s", c.baseURL, url.PathEscape(org), url.PathEscape(repo))
	for _, p := range parts {
		u += "/" + url.PathEscape(p)
	}
	return u + "?" + url.Values{"circle-token": {c.token}}.Encode()
}

type statusError struct {
	code int
	body string
}

func (e *statusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.code, e.body)
}

func (c *Client) do(ctx context.Context, method, rawURL string, payload, out interface{}) error {
	err := retry.Do(
		func() error {
			return c.once(ctx, method, rawURL, payload, out)
		},
		retry.Context(ctx),
		retry.Attempts(c.attempts),
		retry.Delay(c.delay),
		retry.DelayType(retry.FixedDelay),
		retry.LastErrorOnly(true),
		retry.RetryIf(func(err error) bool {
			se, ok := err.(*statusError)
			return !ok || se.code >= http.StatusInternalServerError
		}),
	)
	if err != nil {
		return errors.ErrCIKeyRefresh.
			WithError(err).
			WithContext("method", method)
	}
	return nil
}

func (c *Client) once(ctx context.Context, method, rawURL string, payload, out interface{}) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return retry.Unrecoverable(err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, rawURL, body)
	if err != nil {
		return retry.Unrecoverable(err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &statusError{code: resp.StatusCode, body: string(data)}
	}

	if out != nil && len(data) > 0 {
		if err := json.Unmarshal(data, out); err != nil {
			return retry.Unrecoverable(err)
		}
	}
	return nil
}
