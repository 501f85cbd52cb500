// Package clients talks to the remote POS REST API on behalf of the cashier
// whose token is in the request context.
package clients

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/auth"
	"github.com/andreasstove999/ecommerce-system/pos-terminal-go/internal/middleware"
)

// The cashier endpoints live under the POS blueprint; cash register sessions
// live at the API root.
const posPrefix = "/pos"

type Options struct {
	Timeout time.Duration
	Retries int
}

type Client struct {
	Name string
	http *resty.Client
}

// NewClient builds a client for baseURL. Only GET requests are retried, and
// only on transport errors or 5xx responses.
func NewClient(name, baseURL string, opts Options) *Client {
	rc := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Accept", "application/json").
		SetRetryCount(opts.Retries).
		SetRetryWaitTime(200 * time.Millisecond).
		SetRetryMaxWaitTime(2 * time.Second).
		AddRetryCondition(retryIdempotent)
	if opts.Timeout > 0 {
		rc.SetTimeout(opts.Timeout)
	}
	return &Client{Name: name, http: rc}
}

func retryIdempotent(r *resty.Response, err error) bool {
	if r == nil || r.Request == nil || r.Request.Method != http.MethodGet {
		return false
	}
	return err != nil || r.StatusCode() >= http.StatusInternalServerError
}

// APIError is a failed call to the remote API. Message carries the remote
// {"error": ...} text when present. Status is 0 when no answer arrived and
// Err holds the transport error.
type APIError struct {
	Client  string
	Method  string
	Path    string
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status == 0 && e.Err != nil {
		return fmt.Sprintf("%s %s %s: %v", e.Client, e.Method, e.Path, e.Err)
	}
	return fmt.Sprintf("%s %s %s: %d %s", e.Client, e.Method, e.Path, e.Status, e.Message)
}

func (e *APIError) Unwrap() error { return e.Err }

func StatusOf(err error) (int, bool) {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Status, true
	}
	return 0, false
}

// IsUnavailable reports whether the remote API could not be reached at all.
func IsUnavailable(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == 0
}

func IsNotFound(err error) bool {
	status, ok := StatusOf(err)
	return ok && status == http.StatusNotFound
}

type errorBody struct {
	Error string `json:"error"`
}

func (c *Client) request(ctx context.Context) *resty.Request {
	req := c.http.R().SetContext(ctx)
	if tok := auth.TokenFrom(ctx); tok != "" {
		req.SetAuthToken(tok)
	}
	if cid := middleware.GetCorrelationID(ctx); cid != "" {
		req.SetHeader(middleware.HeaderCorrelationID, cid)
	}
	return req
}

// do sends body as JSON and decodes a 2xx answer into out when out is not nil.
func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	req := c.request(ctx).SetError(&errorBody{})
	if body != nil {
		req.SetHeader("Content-Type", "application/json").SetBody(body)
	}
	if out != nil {
		req.SetResult(out)
	}

	resp, err := req.Execute(method, path)
	if err != nil {
		return &APIError{Client: c.Name, Method: method, Path: path, Message: c.Name + " unavailable", Err: err}
	}
	if resp.IsError() {
		msg := resp.Status()
		if eb, ok := resp.Error().(*errorBody); ok && eb.Error != "" {
			msg = eb.Error
		}
		return &APIError{Client: c.Name, Method: method, Path: path, Status: resp.StatusCode(), Message: msg}
	}
	return nil
}
