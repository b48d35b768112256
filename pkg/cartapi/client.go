package cartapi

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/angelmondragon/grocerycart/pkg/config"
	pkgerrors "github.com/angelmondragon/grocerycart/pkg/errors"
	"github.com/go-playground/validator/v10"
)

const (
	defaultTimeout             = 10 * time.Second
	defaultBodyReadLimit int64 = 1 << 20
	errorBodyReadLimit   int64 = 4096
)

var errBaseURLRequired = errors.New("cart api base url is required")

// Client talks to the remote commerce API. Every response is checked against
// an explicit schema before it is handed to callers.
type Client struct {
	httpClient *http.Client
	baseURL    string
	bodyLimit  int64
	validate   *validator.Validate
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithTimeout sets the transport timeout on the default HTTP client.
func WithTimeout(timeout time.Duration) Option {
	return func(c *Client) {
		if timeout > 0 {
			c.httpClient = &http.Client{Timeout: timeout}
		}
	}
}

// WithBodyReadLimit caps how many bytes of a success body are read.
func WithBodyReadLimit(limit int64) Option {
	return func(c *Client) {
		if limit > 0 {
			c.bodyLimit = limit
		}
	}
}

// NewClient builds a client rooted at baseURL.
func NewClient(baseURL string, opts ...Option) (*Client, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if trimmed == "" {
		return nil, errBaseURLRequired
	}

	client := &Client{
		baseURL:    trimmed,
		httpClient: &http.Client{Timeout: defaultTimeout},
		bodyLimit:  defaultBodyReadLimit,
		validate:   validator.New(validator.WithRequiredStructEnabled()),
	}
	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}
	return client, nil
}

// NewFromConfig builds a client from the API section of the config.
func NewFromConfig(cfg config.APIConfig, opts ...Option) (*Client, error) {
	base := []Option{WithTimeout(cfg.Timeout), WithBodyReadLimit(cfg.BodyReadLimit)}
	return NewClient(cfg.BaseURL, append(base, opts...)...)
}

// BaseURL reports the API root.
func (c *Client) BaseURL() string {
	return c.baseURL
}

type call struct {
	method string
	path   string
	token  string
	body   any
	what   string
}

// do performs one round trip and decodes the body into out, then validates it.
func (c *Client) do(ctx context.Context, req call, out any) error {
	if c == nil {
		return pkgerrors.New(pkgerrors.CodeInternal, "cart api client not configured")
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "marshal "+req.what+" request")
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, c.baseURL+req.path, body)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "build "+req.what+" request")
	}
	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.token != "" {
		httpReq.Header.Set("Authorization", "Bearer "+req.token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, req.what+" request failed")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode == http.StatusUnauthorized {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		return pkgerrors.New(pkgerrors.CodeUnauthorized, firstNonEmpty(serverMessage(msg), "session expired, please log in again"))
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, errorBodyReadLimit))
		message := firstNonEmpty(serverMessage(msg), fmt.Sprintf("%s failed with status %d", req.what, resp.StatusCode))
		return pkgerrors.New(pkgerrors.CodeServerRejected, message).WithDetails(map[string]any{
			"status": resp.StatusCode,
		})
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, c.bodyLimit))
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeNetwork, err, "read "+req.what+" response")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeServerRejected, err, "malformed "+req.what+" response")
	}
	if err := c.validate.Struct(out); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeServerRejected, err, "unexpected "+req.what+" response")
	}
	return nil
}

// serverMessage pulls a human-readable message out of an error body. Both
// {"message": "..."} and {"error": {"message": "..."}} shapes are understood.
func serverMessage(body []byte) string {
	var parsed struct {
		Message string `json:"message"`
		Error   *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &parsed); err != nil {
		return ""
	}
	if parsed.Error != nil && strings.TrimSpace(parsed.Error.Message) != "" {
		return strings.TrimSpace(parsed.Error.Message)
	}
	return strings.TrimSpace(parsed.Message)
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
