// Package attributes fetches catalog attributes for an ASIN from the item
// attributes service and reduces them to the fields the verifier keeps.
package attributes

import (
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/cornjacket/sortable-verifier/internal/shared/domain/sortable"
)

const (
	defaultTimeout   = 30 * time.Second
	defaultUserAgent = "sortcheck/1.0"
	maxBodyBytes     = 8 << 20

	// SessionCookieName is the cookie that carries the caller's session.
	SessionCookieName = "session"
)

var (
	// ErrNoAttributes is returned when the response carries no attributes object.
	ErrNoAttributes = errors.New("no attributes in response")

	// ErrUnexpectedStatus is returned for any non-2xx response.
	ErrUnexpectedStatus = errors.New("unexpected status")
)

// Config configures a Client.
type Config struct {
	BaseURL            string
	FC                 string
	SessionCookie      string
	UserAgent          string
	Timeout            time.Duration
	InsecureSkipVerify bool

	// HTTPClient overrides the client built from Timeout and InsecureSkipVerify.
	HTTPClient *http.Client
}

// Client queries the attributes endpoint. It is safe for concurrent use.
type Client struct {
	baseURL   string
	fc        string
	cookie    string
	userAgent string
	http      *http.Client
}

// New validates cfg and builds a client.
func New(cfg Config) (*Client, error) {
	base := strings.TrimSpace(cfg.BaseURL)
	if base == "" {
		return nil, errors.New("base URL is required")
	}
	u, err := url.Parse(base)
	if err != nil {
		return nil, fmt.Errorf("invalid base URL: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid base URL scheme %q", u.Scheme)
	}

	fc := strings.TrimSpace(cfg.FC)
	if fc == "" {
		return nil, errors.New("fulfillment center is required")
	}

	ua := strings.TrimSpace(cfg.UserAgent)
	if ua == "" {
		ua = defaultUserAgent
	}

	hc := cfg.HTTPClient
	if hc == nil {
		timeout := cfg.Timeout
		if timeout <= 0 {
			timeout = defaultTimeout
		}
		transport := http.DefaultTransport.(*http.Transport).Clone()
		if cfg.InsecureSkipVerify {
			transport.TLSClientConfig = &tls.Config{InsecureSkipVerify: true} //nolint:gosec // internal hosts with private CAs
		}
		hc = &http.Client{Timeout: timeout, Transport: transport}
	}

	return &Client{
		baseURL:   strings.TrimRight(base, "/"),
		fc:        fc,
		cookie:    cfg.SessionCookie,
		userAgent: ua,
		http:      hc,
	}, nil
}

// Fetch retrieves and extracts the attributes of asin.
func (c *Client) Fetch(ctx context.Context, asin string) (sortable.Attributes, error) {
	u := fmt.Sprintf("%s/api/attributes/%s/%s", c.baseURL, url.PathEscape(c.fc), url.PathEscape(asin))

	body, err := c.doGET(ctx, u)
	if err != nil {
		return sortable.Attributes{}, fmt.Errorf("failed to fetch attributes for %s: %w", asin, err)
	}

	var doc any
	if err := json.Unmarshal(body, &doc); err != nil {
		return sortable.Attributes{}, fmt.Errorf("failed to decode attributes for %s: %w", asin, err)
	}

	attrs, err := Extract(asin, DecodeFields(doc))
	if err != nil {
		return sortable.Attributes{}, fmt.Errorf("failed to extract attributes for %s: %w", asin, err)
	}
	return attrs, nil
}

func (c *Client) doGET(ctx context.Context, u string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.userAgent)
	if c.cookie != "" {
		req.AddCookie(&http.Cookie{Name: SessionCookieName, Value: c.cookie})
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: %d", ErrUnexpectedStatus, resp.StatusCode)
	}
	return b, nil
}
