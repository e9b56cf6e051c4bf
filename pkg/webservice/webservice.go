// Package webservice performs the HTTP calls behind the access client. A
// WebService is bound to one target URL and one token and exposes GET and
// POST against it.
package webservice

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/weppos/publicsuffix-go/publicsuffix"
)

const userAgent = "sigtrail/1.0"

var (
	// ErrTokenMissing is returned when a token is required but none is set.
	ErrTokenMissing = errors.New("webservice: token required but not set")
	// ErrUntrustedTarget is returned when a required token would be sent to a
	// host outside the trusted registrable domain.
	ErrUntrustedTarget = errors.New("webservice: refusing to send token to untrusted host")
)

// Config describes one target. It mirrors what the access client knows at
// call time.
type Config struct {
	TargetPath    string
	Token         string
	TokenRequired bool

	// TrustedHost, when set, restricts the Authorization header to targets
	// sharing its registrable domain.
	TrustedHost string

	// Client overrides the shared retrying client.
	Client *retryablehttp.Client
}

// Response is a fully read HTTP response.
type Response struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

// StatusError is returned for any non-2xx response.
type StatusError struct {
	StatusCode int
	Status     string
	Header     http.Header
	Body       []byte
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("webservice: unexpected status %d", e.StatusCode)
}

type WebService struct {
	cfg    Config
	client *retryablehttp.Client
}

var defaultClient = NewClient(30 * time.Second)

// NewClient builds the retrying client used by WebService. Only connection
// errors, 429 and 5xx responses are retried; the last response is passed
// through once retries are exhausted.
func NewClient(timeout time.Duration) *retryablehttp.Client {
	retryClient := retryablehttp.NewClient()
	retryClient.Logger = log.New(io.Discard, "", 0)
	retryClient.RetryMax = 3
	retryClient.RetryWaitMin = 200 * time.Millisecond
	retryClient.RetryWaitMax = 2 * time.Second
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler
	retryClient.HTTPClient.Timeout = timeout
	return retryClient
}

func New(cfg Config) *WebService {
	client := cfg.Client
	if client == nil {
		client = defaultClient
	}
	return &WebService{cfg: cfg, client: client}
}

func (w *WebService) Get(ctx context.Context) (*Response, error) {
	return w.send(ctx, http.MethodGet, "")
}

func (w *WebService) Post(ctx context.Context, body string) (*Response, error) {
	return w.send(ctx, http.MethodPost, body)
}

func (w *WebService) send(ctx context.Context, method, body string) (*Response, error) {
	attach, err := w.shouldAttachToken()
	if err != nil {
		return nil, err
	}

	var reqBody interface{}
	if method != http.MethodGet {
		reqBody = []byte(body)
	}
	req, err := retryablehttp.NewRequestWithContext(ctx, method, w.cfg.TargetPath, reqBody)
	if err != nil {
		return nil, fmt.Errorf("webservice: build request: %w", err)
	}

	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")
	if method != http.MethodGet {
		req.Header.Set("Content-Type", "application/json")
	}
	if attach {
		req.Header.Set("Authorization", w.cfg.Token)
	}

	resp, err := w.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("webservice: read body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			StatusCode: resp.StatusCode,
			Status:     resp.Status,
			Header:     resp.Header,
			Body:       bodyBytes,
		}
	}

	return &Response{
		StatusCode: resp.StatusCode,
		Status:     resp.Status,
		Header:     resp.Header,
		Body:       bodyBytes,
	}, nil
}

func (w *WebService) shouldAttachToken() (bool, error) {
	if w.cfg.Token == "" {
		if w.cfg.TokenRequired {
			return false, ErrTokenMissing
		}
		return false, nil
	}
	if w.cfg.TrustedHost == "" {
		return true, nil
	}

	target, err := url.Parse(w.cfg.TargetPath)
	if err != nil {
		return false, fmt.Errorf("webservice: parse target: %w", err)
	}
	if SameSite(target.Hostname(), hostOf(w.cfg.TrustedHost)) {
		return true, nil
	}
	if w.cfg.TokenRequired {
		return false, ErrUntrustedTarget
	}
	return false, nil
}

// SameSite reports whether two hosts share a registrable domain. Hosts that
// have no registrable domain (IPs, localhost) must match exactly.
func SameSite(a, b string) bool {
	a = strings.ToLower(strings.TrimSuffix(a, "."))
	b = strings.ToLower(strings.TrimSuffix(b, "."))
	if a == "" || b == "" {
		return false
	}
	if a == b {
		return true
	}
	if net.ParseIP(a) != nil || net.ParseIP(b) != nil {
		return false
	}
	da, err := publicsuffix.Domain(a)
	if err != nil {
		return false
	}
	db, err := publicsuffix.Domain(b)
	if err != nil {
		return false
	}
	return da == db
}

// hostOf accepts either a bare host or a full address.
func hostOf(address string) string {
	if strings.Contains(address, "://") {
		if u, err := url.Parse(address); err == nil {
			return u.Hostname()
		}
	}
	if h, _, err := net.SplitHostPort(address); err == nil {
		return h
	}
	return address
}
