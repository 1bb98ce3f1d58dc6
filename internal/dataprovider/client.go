package dataprovider

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"

	apimw "github.com/hamed0406/urlchecker/internal/httpapi/middleware"
)

const totalCountHeader = "X-Total-Count"

// Client talks to a json-server style REST backend. Each resource lives at
// <base>/<name>; list totals come back in the X-Total-Count header.
type Client struct {
	base *url.URL
	http *http.Client
}

func New(base string, hc *http.Client) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(base, "/") + "/")
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("base url must be http or https: %q", base)
	}
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	return &Client{base: u, http: hc}, nil
}

// Base returns the backend root this client talks to.
func (c *Client) Base() string { return strings.TrimRight(c.base.String(), "/") }

// WithBase returns a client for another backend sharing the same HTTP client.
func (c *Client) WithBase(base string) (*Client, error) {
	return New(base, c.http)
}

func (c *Client) endpoint(resource string, id *int64, query url.Values) string {
	p := resource
	if id != nil {
		p += "/" + strconv.FormatInt(*id, 10)
	}
	u := c.base.ResolveReference(&url.URL{Path: p})
	if len(query) > 0 {
		u.RawQuery = query.Encode()
	}
	return u.String()
}

// do performs one round trip and decodes a 2xx JSON body into out (if non-nil).
func (c *Client) do(ctx context.Context, method, target string, body any, out any) (http.Header, error) {
	var rd io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		rd = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, target, rd)
	if err != nil {
		return nil, communicate(err, "failed to build request")
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if id := apimw.GetRequestID(ctx); id != "" {
		req.Header.Set(apimw.RequestIDHeader, id)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, communicate(err, "failed to fetch")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, communicate(err, "failed to read response")
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Message: errorMessage(resp.StatusCode, raw)}
	}
	if out != nil && resp.StatusCode != http.StatusNoContent && len(bytes.TrimSpace(raw)) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return nil, communicate(err, "failed to parse response")
		}
	}
	return resp.Header, nil
}

// errorMessage prefers the backend's "message" (or FastAPI style "detail").
func errorMessage(status int, raw []byte) string {
	var body struct {
		Message string `json:"message"`
		Detail  any    `json:"detail"`
	}
	if json.Unmarshal(raw, &body) == nil {
		if body.Message != "" {
			return body.Message
		}
		switch d := body.Detail.(type) {
		case string:
			if d != "" {
				return d
			}
		case nil:
		default:
			if b, err := json.Marshal(d); err == nil {
				return string(b)
			}
		}
	}
	if s := strings.TrimSpace(string(raw)); s != "" && len(s) < 200 && !strings.HasPrefix(s, "<") {
		return s
	}
	return http.StatusText(status)
}
