// Package httpfetch performs cookie-authenticated HTTP GETs against the
// dashboard, outside the browser.
package httpfetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 60 * time.Second

// DefaultUserAgent is the user agent string for HTTP requests.
const DefaultUserAgent = "Mozilla/5.0 (compatible; ulogscraper/1.0)"

// Response holds the metadata of a fetched URL. URL is the final URL after
// redirects. Body is nil for responses streamed by Download; Size counts the
// body bytes read either way.
type Response struct {
	URL         string
	StatusCode  int
	ContentType string
	Body        []byte
	Size        int64
}

// Error represents an error during URL fetching.
type Error struct {
	URL     string
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("fetch error for %s: %s: %v", e.URL, e.Message, e.Cause)
	}
	return fmt.Sprintf("fetch error for %s: %s", e.URL, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// ClientConfig configures a Client.
type ClientConfig struct {
	Timeout   time.Duration
	UserAgent string
	// AllowedHosts lists the hosts requests may go to. A host also admits its
	// subdomains. Empty allows any host.
	AllowedHosts []string
	// HTTPClient overrides the underlying client. Timeout is ignored when set.
	HTTPClient *http.Client
}

// Client fetches URLs with a fixed set of session cookies.
type Client struct {
	http      *http.Client
	userAgent string
	allowed   []string
}

// maxRedirects matches the net/http default.
const maxRedirects = 10

// NewClient creates a Client from cfg. Redirects are followed only to
// allowed hosts, including for an injected HTTPClient.
func NewClient(cfg ClientConfig) *Client {
	var hc *http.Client
	if cfg.HTTPClient != nil {
		copied := *cfg.HTTPClient
		hc = &copied
	} else {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = DefaultTimeout
		}
		hc = &http.Client{Timeout: timeout}
	}

	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}

	allowed := make([]string, 0, len(cfg.AllowedHosts))
	for _, h := range cfg.AllowedHosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed = append(allowed, h)
		}
	}

	c := &Client{http: hc, userAgent: ua, allowed: allowed}
	hc.CheckRedirect = c.checkRedirect(hc.CheckRedirect)
	return c
}

func (c *Client) checkRedirect(next func(*http.Request, []*http.Request) error) func(*http.Request, []*http.Request) error {
	return func(req *http.Request, via []*http.Request) error {
		if !c.Allowed(req.URL.String()) {
			return &Error{URL: req.URL.String(), Message: fmt.Sprintf("redirect to host %q not allowed", req.URL.Hostname())}
		}
		if next != nil {
			return next(req, via)
		}
		if len(via) >= maxRedirects {
			return fmt.Errorf("stopped after %d redirects", maxRedirects)
		}
		return nil
	}
}

// Allowed reports whether rawURL may be fetched by this client.
func (c *Client) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	if len(c.allowed) == 0 {
		return true
	}

	host := strings.ToLower(u.Hostname())
	for _, a := range c.allowed {
		if host == a || strings.HasSuffix(host, "."+a) {
			return true
		}
	}
	return false
}

// Get retrieves rawURL into memory, sending cookies as a Cookie header.
// A non-200 status returns the response together with an *Error.
func (c *Client) Get(ctx context.Context, rawURL string, cookies map[string]string) (*Response, error) {
	resp, err := c.do(ctx, rawURL, cookies)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}

	result := responseOf(resp)
	result.Body = body
	result.Size = int64(len(body))

	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}
	return result, nil
}

// Download streams the body of rawURL into w without buffering it.
// Nothing is written unless the status is 200.
func (c *Client) Download(ctx context.Context, rawURL string, cookies map[string]string, w io.Writer) (*Response, error) {
	resp, err := c.do(ctx, rawURL, cookies)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	result := responseOf(resp)
	if resp.StatusCode != http.StatusOK {
		return result, &Error{URL: rawURL, Message: fmt.Sprintf("HTTP status %d", resp.StatusCode)}
	}

	n, err := io.Copy(w, resp.Body)
	result.Size = n
	if err != nil {
		return result, &Error{URL: rawURL, Message: "failed to read response body", Cause: err}
	}
	return result, nil
}

func (c *Client) do(ctx context.Context, rawURL string, cookies map[string]string) (*http.Response, error) {
	u, err := url.Parse(rawURL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return nil, &Error{URL: rawURL, Message: "invalid URL", Cause: err}
	}
	if !c.Allowed(rawURL) {
		return nil, &Error{URL: rawURL, Message: fmt.Sprintf("host %q not allowed", u.Hostname())}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "failed to create request", Cause: err}
	}

	req.Header.Set("User-Agent", c.userAgent)
	if header := cookieHeader(cookies); header != "" {
		req.Header.Set("Cookie", header)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &Error{URL: rawURL, Message: "HTTP request failed", Cause: err}
	}
	return resp, nil
}

func responseOf(resp *http.Response) *Response {
	return &Response{
		URL:         resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
		ContentType: resp.Header.Get("Content-Type"),
	}
}

// cookieHeader renders cookies in name order so requests are reproducible.
func cookieHeader(cookies map[string]string) string {
	if len(cookies) == 0 {
		return ""
	}
	names := make([]string, 0, len(cookies))
	for name := range cookies {
		names = append(names, name)
	}
	sort.Strings(names)

	parts := make([]string, 0, len(names))
	for _, name := range names {
		parts = append(parts, (&http.Cookie{Name: name, Value: cookies[name]}).String())
	}
	return strings.Join(parts, "; ")
}
