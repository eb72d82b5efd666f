// Package client is the HTTP client of the relief API. Read endpoints are
// retried on transport failures; signed writes are sent once, since the
// server rejects a replayed signature.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"slices"
	"time"

	"github.com/vocdoni/aadhaar-relief/api"
	"github.com/vocdoni/aadhaar-relief/log"
)

const (
	errCodeNot200 = "API error"

	// DefaultRetries is the number of attempts of a read request.
	DefaultRetries = 3
	// DefaultRetryDelay is the pause between attempts.
	DefaultRetryDelay = 500 * time.Millisecond
	// DefaultTimeout is the default timeout for the HTTP client.
	DefaultTimeout = 10 * time.Second

	maxLoggedBody = 512
)

// retryStatus are the gateway statuses a read request is retried on.
var retryStatus = []int{http.StatusBadGateway, http.StatusServiceUnavailable, http.StatusGatewayTimeout}

// HTTPclient is the relief API HTTP client.
type HTTPclient struct {
	c          *http.Client
	host       *url.URL
	retries    int
	retryDelay time.Duration
}

// New connects to the API host, checks it answers the ping endpoint and
// returns the handle.
func New(host string) (*HTTPclient, error) {
	hostURL, err := url.Parse(host)
	if err != nil {
		return nil, err
	}
	c := &HTTPclient{
		c: &http.Client{
			Transport: &http.Transport{IdleConnTimeout: DefaultTimeout},
			Timeout:   DefaultTimeout,
		},
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
	}
	if err := c.SetHostAddr(hostURL); err != nil {
		return nil, err
	}
	log.Debugw("relief api client created", "host", hostURL.String())
	return c, nil
}

// SetHostAddr configures the host address of the API server and pings it.
func (c *HTTPclient) SetHostAddr(host *url.URL) error {
	c.host = host
	data, status, err := c.Request(http.MethodGet, nil, nil, api.PingEndpoint)
	if err != nil {
		return err
	}
	if status != http.StatusOK {
		return fmt.Errorf("%s: %d (%s)", errCodeNot200, status, data)
	}
	return nil
}

// SetRetries configures the attempts of a read request. At least one
// attempt is always made.
func (c *HTTPclient) SetRetries(n int) {
	c.retries = max(n, 1)
}

// SetTimeout configures the timeout of every HTTP request.
func (c *HTTPclient) SetTimeout(d time.Duration) {
	c.c.Timeout = d
	if tr, ok := c.c.Transport.(*http.Transport); ok {
		tr.ResponseHeaderTimeout = d
	}
}

// Request sends a request to the endpoint joined from urlPath and returns
// the response body and status code. If jsonBody is not nil it is sent
// JSON encoded. GET requests are retried on transport errors and gateway
// statuses, any other method is attempted once.
func (c *HTTPclient) Request(method string, jsonBody any, query url.Values, urlPath ...string) ([]byte, int, error) {
	var body []byte
	if jsonBody != nil {
		var err error
		if body, err = json.Marshal(jsonBody); err != nil {
			return nil, 0, fmt.Errorf("failed to marshal JSON: %w", err)
		}
	}
	u := *c.host
	u.Path = path.Join(u.Path, path.Join(urlPath...))
	u.RawQuery = query.Encode()

	log.Debugw("relief api request", "method", method, "url", u.String(), "body", truncate(body))

	attempts := 1
	if method == http.MethodGet {
		attempts = max(c.retries, 1)
	}
	var (
		data   []byte
		status int
		err    error
	)
	for i := 1; i <= attempts; i++ {
		if i > 1 {
			time.Sleep(c.retryDelay)
		}
		data, status, err = c.do(method, u.String(), body)
		if err == nil && !slices.Contains(retryStatus, status) {
			return data, status, nil
		}
		log.Warnw("relief api request failed", "url", u.String(), "status", status,
			"error", fmt.Sprint(err), "attempt", i, "attempts", attempts)
	}
	if err != nil {
		return nil, 0, fmt.Errorf("request failed after %d attempts: %w", attempts, err)
	}
	return data, status, nil
}

func (c *HTTPclient) do(method, u string, body []byte) ([]byte, int, error) {
	var reqBody io.Reader
	if body != nil {
		reqBody = bytes.NewReader(body)
	}
	req, err := http.NewRequest(method, u, reqBody)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	resp, err := c.c.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, resp.StatusCode, nil
}

func truncate(body []byte) string {
	if len(body) > maxLoggedBody {
		return string(body[:maxLoggedBody]) + "..."
	}
	return string(body)
}
