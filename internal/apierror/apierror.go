package apierror

import (
	"errors"
	"fmt"
	"time"
)

// Type is the coarse category of a failure shown to the user.
type Type string

const (
	Authentication Type = "authentication"
	Authorization  Type = "authorization"
	Network        Type = "network"
	Server         Type = "server"
	Validation     Type = "validation"
	Unknown        Type = "unknown"
	Payment        Type = "payment"
	FileUpload     Type = "file_upload"
	RateLimit      Type = "rate_limit"
	Maintenance    Type = "maintenance"
)

// Response is the normalized, user-presentable form of any failure. Values are
// produced by Classify and are not modified afterwards.
type Response struct {
	Type    Type   `json:"type"`
	Message string `json:"message"`
	Code    string `json:"code,omitempty"`
	Retry   bool   `json:"retry"`
	Details any    `json:"details,omitempty"`
}

func (r *Response) Error() string {
	if r.Code == "" {
		return r.Message
	}
	return fmt.Sprintf("%s (%s)", r.Message, r.Code)
}

// As reports whether err carries a classified response and returns it.
func As(err error) (*Response, bool) {
	var resp *Response
	if errors.As(err, &resp) {
		return resp, true
	}
	return nil, false
}

// StatusError is returned by the transport when the server answered with a
// non-2xx status. Data holds the parsed JSON body when there was one.
type StatusError struct {
	Status     int
	StatusText string
	Data       any
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("bad status: %d %s", e.Status, e.StatusText)
	}
	return fmt.Sprintf("bad status: %d %s: %s", e.Status, e.StatusText, e.Message)
}

// TimeoutError is the cancellation cause of a request whose deadline expired.
type TimeoutError struct {
	URL   string
	After time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("request to %s timed out after %s", e.URL, e.After)
}

func (e *TimeoutError) Timeout() bool { return true }
