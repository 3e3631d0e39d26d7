// Package gateway is the HTTP client for the product desk API.
package gateway

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/xenking/product-desk/internal/domain/auth"
	"github.com/xenking/product-desk/internal/domain/product"
	"github.com/xenking/product-desk/internal/reconcile"
	"github.com/xenking/product-desk/internal/wire"
)

const (
	defaultUserAgent = "product-desk/0.1"
	requestTimeout   = 10 * time.Second
	maxBodyBytes     = 4 << 20
)

// Ensure Client implements reconcile.Gateway at compile time.
var _ reconcile.Gateway = (*Client)(nil)

// StatusError is a non-2xx API response.
type StatusError struct {
	Method  string
	Path    string
	Code    int
	Message string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("api %s %s returned status %d", e.Method, e.Path, e.Code)
	}
	return fmt.Sprintf("api %s %s returned status %d: %s", e.Method, e.Path, e.Code, e.Message)
}

// IsStatus reports whether err is a *StatusError with the given code.
func IsStatus(err error, code int) bool {
	var se *StatusError
	return errors.As(err, &se) && se.Code == code
}

// Client talks to the product desk HTTP API. The session cookie set by Login
// is kept in a cookie jar and sent with every later request.
type Client struct {
	baseURL   *url.URL
	http      *http.Client
	userAgent string
}

// Option configures a Client.
type Option func(c *Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithTransport replaces the underlying round tripper. It is still wrapped
// with tracing.
func WithTransport(rt http.RoundTripper) Option {
	return func(c *Client) { c.http.Transport = otelhttp.NewTransport(rt) }
}

// NewClient builds a Client for the server at serverURL, e.g.
// "http://127.0.0.1:8080".
func NewClient(serverURL string, opts ...Option) (*Client, error) {
	base, err := parseBaseURL(serverURL)
	if err != nil {
		return nil, err
	}
	jar, err := cookiejar.New(nil)
	if err != nil {
		return nil, errors.Wrap(err, "create cookie jar")
	}
	c := &Client{
		baseURL: base,
		http: &http.Client{
			Jar:       jar,
			Timeout:   requestTimeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
		userAgent: defaultUserAgent,
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func parseBaseURL(raw string) (*url.URL, error) {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return nil, errors.New("server url is empty")
	}
	if !strings.Contains(trimmed, "://") {
		trimmed = "http://" + trimmed
	}
	u, err := url.Parse(trimmed)
	if err != nil {
		return nil, errors.Wrap(err, "parse server url")
	}
	if u.Host == "" {
		return nil, errors.Errorf("server url %q has no host", raw)
	}
	u.Path = strings.TrimSuffix(u.Path, "/")
	return u, nil
}

// Login exchanges a shared password for a session and returns its role.
func (c *Client) Login(ctx context.Context, password string) (auth.Role, error) {
	body := wire.Encode(func(e *jx.Encoder) { wire.EncodePassword(e, password) })

	var role auth.Role
	err := c.do(ctx, http.MethodPost, "/api/login", body, func(d *jx.Decoder) error {
		var err error
		role, err = wire.DecodeRole(d)
		return err
	})
	if err != nil {
		return "", err
	}
	return role, nil
}

// Session returns the role of the current session.
func (c *Client) Session(ctx context.Context) (auth.Role, error) {
	var role auth.Role
	err := c.do(ctx, http.MethodGet, "/api/session", nil, func(d *jx.Decoder) error {
		var err error
		role, err = wire.DecodeRole(d)
		return err
	})
	if err != nil {
		return "", err
	}
	return role, nil
}

// Logout ends the session.
func (c *Client) Logout(ctx context.Context) error {
	return c.do(ctx, http.MethodPost, "/api/logout", nil, nil)
}

// List returns every product, newest first.
func (c *Client) List(ctx context.Context) ([]product.Product, error) {
	var ps []product.Product
	err := c.do(ctx, http.MethodGet, "/api/products", nil, func(d *jx.Decoder) error {
		var err error
		ps, err = wire.DecodeProducts(d)
		return err
	})
	if err != nil {
		return nil, err
	}
	return ps, nil
}

// Create submits a new product and returns the stored record.
func (c *Client) Create(ctx context.Context, in product.Input) (product.Product, error) {
	body := wire.Encode(func(e *jx.Encoder) { wire.EncodeInput(e, in) })
	return c.doProduct(ctx, http.MethodPost, "/api/products", body)
}

// UpdateStatus sets the status of product id and returns the stored record.
func (c *Client) UpdateStatus(ctx context.Context, id string, status product.Status) (product.Product, error) {
	body := wire.Encode(func(e *jx.Encoder) { wire.EncodeStatus(e, status) })
	return c.doProduct(ctx, http.MethodPatch, "/api/products/"+url.PathEscape(id)+"/status", body)
}

// Delete removes product id.
func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/products/"+url.PathEscape(id), nil, nil)
}

func (c *Client) doProduct(ctx context.Context, method, path string, body []byte) (product.Product, error) {
	var p product.Product
	err := c.do(ctx, method, path, body, func(d *jx.Decoder) error {
		var err error
		p, err = wire.DecodeProduct(d)
		return err
	})
	if err != nil {
		return product.Product{}, err
	}
	return p, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte, decode func(d *jx.Decoder) error) error {
	// path is already escaped; the base URL carries no trailing slash.
	reqURL := c.baseURL.String() + path

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return errors.Wrap(err, "create request")
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, "execute request")
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return errors.Wrap(err, "read response")
	}

	if resp.StatusCode >= 300 {
		return &StatusError{
			Method:  method,
			Path:    path,
			Code:    resp.StatusCode,
			Message: wire.DecodeError(data),
		}
	}
	if decode == nil {
		return nil
	}
	if err := decode(jx.DecodeBytes(data)); err != nil {
		return errors.Wrap(err, "decode response")
	}
	return nil
}
