// Package datadog is a small client for the Datadog v1 timeseries query API.
package datadog

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"syscall"
	"time"

	"github.com/rileyhilliard/ddmatrix/internal/errors"
	"github.com/rileyhilliard/ddmatrix/internal/logger"
)

const (
	DefaultBaseURL = "https://api.datadoghq.com"
	DefaultTimeout = 30 * time.Second
	queryPath      = "/api/v1/query"

	// maxBody caps how much of a reply is read; query replies for a handful
	// of series are a few KB.
	maxBody = 4 << 20
)

// Client issues metric queries. All requests share one keep-alive connection.
type Client struct {
	apiKey  string
	appKey  string
	baseURL string
	client  *http.Client
	log     logger.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithBaseURL points the client at another site, e.g. https://api.datadoghq.eu.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		if u != "" {
			c.baseURL = u
		}
	}
}

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets the client's logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a client authenticated with the given API and
// application keys.
func NewClient(apiKey, appKey string, opts ...Option) *Client {
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        1,
		MaxIdleConnsPerHost: 1,
		MaxConnsPerHost:     1,
		IdleConnTimeout:     5 * time.Minute,
		TLSHandshakeTimeout: 10 * time.Second,
	}
	c := &Client{
		apiKey:  apiKey,
		appKey:  appKey,
		baseURL: DefaultBaseURL,
		client:  &http.Client{Timeout: DefaultTimeout, Transport: transport},
		log:     logger.Noop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Close drops the idle connection.
func (c *Client) Close() {
	c.client.CloseIdleConnections()
}

// Query runs query over [from, to]. When the server answered, the returned
// Response is non-nil even if err is set, so callers can still honour its
// rate-limit headers.
func (c *Client) Query(ctx context.Context, query string, from, to time.Time) (*Response, error) {
	params := url.Values{}
	params.Set("api_key", c.apiKey)
	params.Set("application_key", c.appKey)
	params.Set("from", strconv.FormatInt(from.Unix(), 10))
	params.Set("to", strconv.FormatInt(to.Unix(), 10))
	params.Set("query", query)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+queryPath+"?"+params.Encode(), nil)
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrQuery,
			"Failed to build query request", "Check api.base_url")
	}
	req.Header.Set("Accept", "application/json")

	c.log.Debug("query %q from %d to %d", query, from.Unix(), to.Unix())

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, classify(err, "Query request failed")
	}
	defer resp.Body.Close()

	out := &Response{RateLimit: ParseRateLimit(resp.Header)}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return out, classify(err, "Failed to read query response")
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return out, mapAPIError(resp.StatusCode, body)
	}

	if err := json.Unmarshal(body, out); err != nil {
		return out, errors.WrapWithCode(err, errors.ErrQuery,
			"Failed to decode query response", "")
	}

	if out.Status == "error" {
		return out, errors.New(errors.ErrQuery,
			"Query rejected: "+out.Error,
			"Check the query syntax in metrics.json")
	}

	return out, nil
}

// apiError is the error body the API sends with non-2xx replies.
type apiError struct {
	Errors []string `json:"errors"`
}

func mapAPIError(status int, body []byte) error {
	var ae apiError
	msg := http.StatusText(status)
	if json.Unmarshal(body, &ae) == nil && len(ae.Errors) > 0 {
		msg = ae.Errors[0]
	}

	suggestion := ""
	switch status {
	case http.StatusForbidden, http.StatusUnauthorized:
		suggestion = "Check dd_api and dd_app in secrets.yaml"
	case http.StatusTooManyRequests:
		suggestion = "Increase polling.delay to query less often"
	}

	return errors.New(errors.ErrQuery,
		fmt.Sprintf("Query failed with HTTP %d: %s", status, msg),
		suggestion)
}

// socketFaults are transport failures that tend to mean the connection is
// wedged rather than that the request was bad.
var socketFaults = []error{
	syscall.ECONNRESET,
	syscall.ECONNABORTED,
	syscall.EPIPE,
	io.ErrUnexpectedEOF,
	io.EOF,
}

// IsSocketFault reports whether err was caused by a broken connection.
func IsSocketFault(err error) bool {
	for _, target := range socketFaults {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}

func classify(err error, message string) error {
	if IsSocketFault(err) {
		return errors.WrapWithCode(err, errors.ErrSocket, message, "")
	}
	return errors.WrapWithCode(err, errors.ErrQuery, message, "")
}
