package api

import (
	"bytes"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/sigtrail/sigtrail/pkg/webservice"
	"github.com/tidwall/gjson"
)

// UnauthorizedError is a 401 response. It triggers the session-expiry
// protocol.
type UnauthorizedError struct {
	Status int
	Body   string
}

func (e *UnauthorizedError) Error() string {
	return fmt.Sprintf("api: unauthorized (status %d)", e.Status)
}

// HTTPError is any other non-2xx response.
type HTTPError struct {
	Status     int
	StatusText string
	Body       string
	// Message is the backend's own error text when one could be extracted.
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api: status %d", e.Status)
}

// TransportError covers network failures, timeouts and encode/decode errors.
type TransportError struct {
	Op    string
	Cause error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("api: %s: %v", e.Op, e.Cause)
}

func (e *TransportError) Unwrap() error { return e.Cause }

// Error kinds, also used as metric outcome labels.
const (
	KindNone         = "ok"
	KindUnauthorized = "unauthorized"
	KindHTTP         = "http_error"
	KindTransport    = "transport_error"
)

// IsUnauthorized reports whether err is an UnauthorizedError.
func IsUnauthorized(err error) bool {
	var ue *UnauthorizedError
	return errors.As(err, &ue)
}

// KindOf names the taxonomy branch of err.
func KindOf(err error) string {
	if err == nil {
		return KindNone
	}
	var (
		ue *UnauthorizedError
		he *HTTPError
	)
	switch {
	case errors.As(err, &ue):
		return KindUnauthorized
	case errors.As(err, &he):
		return KindHTTP
	default:
		return KindTransport
	}
}

// classify maps a transport failure onto the error taxonomy.
func classify(op string, err error) error {
	var se *webservice.StatusError
	if errors.As(err, &se) {
		if se.StatusCode == http.StatusUnauthorized {
			return &UnauthorizedError{Status: se.StatusCode, Body: string(se.Body)}
		}
		return &HTTPError{
			Status:     se.StatusCode,
			StatusText: se.Status,
			Body:       string(se.Body),
			Message:    errorMessage(se.Header.Get("Content-Type"), se.Body),
		}
	}
	return &TransportError{Op: op, Cause: err}
}

// errorMessage pulls a human readable message out of an error body: the
// message/error/detail field of a JSON body, or the title of an HTML page.
func errorMessage(contentType string, body []byte) string {
	if len(body) == 0 {
		return ""
	}
	if gjson.ValidBytes(body) {
		for _, r := range gjson.GetManyBytes(body, "message", "error", "detail") {
			if r.Type == gjson.String && r.Str != "" {
				return r.Str
			}
		}
		return ""
	}
	if strings.Contains(contentType, "html") || bytes.Contains(bytes.ToLower(body), []byte("<html")) {
		doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
		if err != nil {
			return ""
		}
		return strings.TrimSpace(doc.Find("title").First().Text())
	}
	return ""
}
