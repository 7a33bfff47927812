// Package wordpress is the publishing client for the WordPress REST API.
package wordpress

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"autodraft/internal/domain"
)

const (
	defaultTimeout = 60 * time.Second
	defaultStatus  = "draft"
	userAgent      = "autodraft/1.0"
	postsPath      = "/wp-json/wp/v2/posts"
	categoriesPath = "/wp-json/wp/v2/categories"
)

// Defaults are applied to drafts when the caller leaves a field unset.
type Defaults struct {
	Status     string
	AuthorID   int
	CategoryID int
}

// Settings identify the WordPress site and the application-password user.
type Settings struct {
	BaseURL  string
	Username string
	Password string
	Defaults Defaults
}

// HTTPStatusError captures non-2xx responses from the REST API.
type HTTPStatusError struct {
	StatusCode int
	Method     string
	Path       string
	Message    string
}

func (e *HTTPStatusError) Error() string {
	return fmt.Sprintf("wordpress: %s %s: status %d: %s", e.Method, e.Path, e.StatusCode, e.Message)
}

func (e *HTTPStatusError) HTTPStatusCode() int {
	return e.StatusCode
}

// Client talks to one WordPress site with basic auth.
type Client struct {
	baseURL    string
	username   string
	password   string
	defaults   Defaults
	httpClient *http.Client
	logger     *slog.Logger
	now        func() time.Time
}

type Option func(*Client)

func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithClock overrides the time source used for generation_timestamp.
func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		if now != nil {
			c.now = now
		}
	}
}

// New validates settings and returns a Client. Missing credentials or base
// URL are reported as a configuration error.
func New(s Settings, opts ...Option) (*Client, error) {
	base := strings.TrimRight(strings.TrimSpace(s.BaseURL), "/")
	if base == "" {
		return nil, domain.ConfigurationError("wordpress_base_url_missing", errors.New("wordpress: base URL must not be empty"))
	}
	if strings.TrimSpace(s.Username) == "" || s.Password == "" {
		return nil, domain.ConfigurationError("wordpress_credentials_missing", errors.New("wordpress: credentials are required"))
	}
	if s.Defaults.Status == "" {
		s.Defaults.Status = defaultStatus
	}
	c := &Client{
		baseURL:    base,
		username:   s.Username,
		password:   s.Password,
		defaults:   s.Defaults,
		httpClient: &http.Client{Timeout: defaultTimeout},
		logger:     slog.Default(),
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// EditURL returns the admin edit link for a post.
func (c *Client) EditURL(id int) string {
	return fmt.Sprintf("%s/wp-admin/post.php?post=%d&action=edit", c.baseURL, id)
}

// do sends one request and decodes a 2xx JSON body into out. Every failure is
// returned as an UPSTREAM_ERROR.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, out any) error {
	endpoint := c.baseURL + path
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return domain.NewError(domain.ErrorInternal, "wordpress_encode_error", fmt.Errorf("wordpress: marshal request: %w", err))
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return domain.NewError(domain.ErrorInternal, "wordpress_request_error", fmt.Errorf("wordpress: create request: %w", err))
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	res, err := c.httpClient.Do(req)
	if err != nil {
		reason := "wordpress_unreachable"
		if isTimeout(err) {
			reason = "publishing_timeout"
		}
		return domain.UpstreamError(reason, fmt.Errorf("wordpress: %s %s: %w", method, path, err))
	}
	defer func() { _ = res.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(res.Body, 8<<20))
	if err != nil {
		return domain.UpstreamError("wordpress_read_error", fmt.Errorf("wordpress: read response body: %w", err))
	}

	if res.StatusCode < 200 || res.StatusCode >= 300 {
		statusErr := &HTTPStatusError{
			StatusCode: res.StatusCode,
			Method:     method,
			Path:       path,
			Message:    errorMessage(res.StatusCode, raw),
		}
		reason := "wordpress_error"
		if res.StatusCode == http.StatusNotFound {
			reason = "not_found"
		}
		return domain.UpstreamError(reason, statusErr)
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return domain.UpstreamError("wordpress_malformed_response", fmt.Errorf("wordpress: decode response: %w", err))
	}
	return nil
}

// errorMessage prefers the REST API's "message" field.
func errorMessage(status int, body []byte) string {
	var env struct {
		Code    string `json:"code"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(body, &env); err == nil && strings.TrimSpace(env.Message) != "" {
		return env.Message
	}
	return fmt.Sprintf("HTTP %d error", status)
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
