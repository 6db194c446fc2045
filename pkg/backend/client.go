// Package backend is the REST collaborator the order pipeline drives:
// product-page fetch, PIN verification, and multipart order submission over
// bearer-token auth.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goliatone/go-orderflow/pkg/order"
	"github.com/goliatone/go-orderflow/pkg/payload"
)

const defaultTimeout = 30 * time.Second

// TokenSource supplies the bearer token attached to every request. Tokens are
// opaque here; an auth collaborator owns refresh and storage.
type TokenSource func() (string, error)

// StaticToken wraps a fixed token in a TokenSource.
func StaticToken(token string) TokenSource {
	return func() (string, error) {
		return token, nil
	}
}

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient swaps the underlying HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithTokenSource installs the bearer token supplier.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		c.token = source
	}
}

// WithTimeout overrides the per-request timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.timeout = timeout
		}
	}
}

// Client calls the financial-services backend. All methods honour context
// cancellation and return *APIError for structured backend failures.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	timeout    time.Duration
}

// New constructs a Client for the given API origin.
func New(baseURL string, options ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errors.New("backend: base url is required")
	}
	c := &Client{
		baseURL:    trimmed,
		httpClient: http.DefaultClient,
		timeout:    defaultTimeout,
	}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c, nil
}

// ProductPage fetches the order page for a product: product metadata, rate,
// fee schedule, limits, and the dynamic form fields.
func (c *Client) ProductPage(ctx context.Context, productID string) (*ProductPage, error) {
	if strings.TrimSpace(productID) == "" {
		return nil, errors.New("backend: product id is required")
	}
	query := url.Values{"product_id": []string{productID}}
	body, err := c.get(ctx, "/orders/product-page", query)
	if err != nil {
		return nil, err
	}

	var page struct {
		Data ProductPage `json:"data"`
	}
	if err := json.Unmarshal(body, &page); err != nil {
		return nil, fmt.Errorf("backend: decode product page: %w", err)
	}
	return &page.Data, nil
}

// VerifyPIN asks the backend whether the transaction PIN is valid. It
// satisfies authorize.Verifier.
func (c *Client) VerifyPIN(ctx context.Context, pin string) (bool, error) {
	query := url.Values{"pin": []string{pin}}
	body, err := c.get(ctx, "/verify-pin", query)
	if err != nil {
		return false, err
	}

	var verified pinVerifyResponse
	if err := json.Unmarshal(body, &verified); err != nil {
		return false, fmt.Errorf("backend: decode pin response: %w", err)
	}
	return verified.Valid, nil
}

// Submit posts an encoded order and reports the backend's verdict. It
// satisfies order.Submitter.
func (c *Client) Submit(ctx context.Context, p *payload.Payload) (order.Result, error) {
	if p == nil {
		return order.Result{}, errors.New("backend: payload is required")
	}

	req, err := c.newRequest(ctx, http.MethodPost, "/orders/submit", nil, bytes.NewReader(p.Body))
	if err != nil {
		return order.Result{}, err
	}
	req.Header.Set("Content-Type", p.ContentType)

	body, err := c.do(req)
	if err != nil {
		return order.Result{}, err
	}

	var resp submitResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return order.Result{}, fmt.Errorf("backend: decode submit response: %w", err)
	}
	if resp.Status != "success" {
		message := SanitizeMessage(resp.Message)
		if message == "" {
			message = genericFailureMessage
		}
		return order.Result{}, &APIError{StatusCode: http.StatusOK, Message: message}
	}
	return order.Result{
		Reference: resp.Data.Reference,
		Message:   SanitizeMessage(resp.Message),
	}, nil
}

func (c *Client) get(ctx context.Context, path string, query url.Values) ([]byte, error) {
	req, err := c.newRequest(ctx, http.MethodGet, path, query, nil)
	if err != nil {
		return nil, err
	}
	return c.do(req)
}

func (c *Client) newRequest(ctx context.Context, method, path string, query url.Values, body io.Reader) (*http.Request, error) {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("backend: build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != nil {
		token, err := c.token()
		if err != nil {
			return nil, fmt.Errorf("backend: token source: %w", err)
		}
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

func (c *Client) do(req *http.Request) ([]byte, error) {
	ctx := req.Context()
	var cancel context.CancelFunc
	if c.timeout > 0 {
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
		req = req.WithContext(ctx)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("backend: %s %s: %w", req.Method, req.URL.Path, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("backend: read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, resp.Status, body)
	}
	return body, nil
}
