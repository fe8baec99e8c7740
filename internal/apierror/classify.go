package apierror

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"strings"
	"time"
)

const (
	msgNetwork      = "Unable to connect to the server. Please check your internet connection."
	msgSession      = "Your session has expired. Please sign in again."
	msgPermission   = "You do not have permission to perform this action."
	msgNotFound     = "The requested resource was not found."
	msgInvalidData  = "The provided data is invalid."
	msgRateLimited  = "Too many requests. Please try again later."
	msgServer       = "A server error occurred. Our team has been notified."
	msgUnexpected   = "An unexpected error occurred. Please try again."
	msgFileUpload   = "There was a problem with the file upload. Please try again with a different file."
	msgFallback     = "An unexpected error occurred."
	msgAuthFallback = "An authentication error occurred. Please try again."
)

var authMessages = map[string]string{
	"auth/invalid-email":          "The email address is not valid.",
	"auth/user-disabled":          "This user account has been disabled.",
	"auth/user-not-found":         "No account found with this email address.",
	"auth/wrong-password":         "Incorrect password. Please try again.",
	"auth/email-already-in-use":   "This email is already in use. Please use a different email or sign in.",
	"auth/weak-password":          "The password is too weak. Please use a stronger password.",
	"auth/network-request-failed": "Network error. Please check your internet connection.",
	"auth/too-many-requests":      "Too many unsuccessful login attempts. Please try again later.",
	"auth/requires-recent-login":  "This operation requires a recent login. Please sign in again.",
}

// Failure is a raw failure waiting to be classified. The set of variants is
// closed: Connectivity, Timeout, HTTPStatus, ProviderAuth and Generic.
type Failure interface {
	failure()
}

// Connectivity means no response was obtained at all.
type Connectivity struct {
	Err error
}

// Timeout means the request was aborted by its deadline.
type Timeout struct {
	After time.Duration
	Err   error
}

// HTTPStatus means the server answered with a non-success status.
type HTTPStatus struct {
	Status     int
	StatusText string
	Data       any
}

// ProviderAuth is a failure reported by the session provider, identified by a
// namespaced code such as "auth/wrong-password".
type ProviderAuth struct {
	Code string
}

// Generic is anything else that carries a message.
type Generic struct {
	Message string
	Err     error
}

func (Connectivity) failure() {}
func (Timeout) failure()      {}
func (HTTPStatus) failure()   {}
func (ProviderAuth) failure() {}
func (Generic) failure()      {}

// Classify maps a raw failure to its Response. It is total: every input,
// including nil, yields a non-nil Response.
func Classify(f Failure) *Response {
	switch f := f.(type) {
	case Connectivity:
		return &Response{Type: Network, Message: msgNetwork, Code: "NETWORK_ERROR", Retry: true}
	case Timeout:
		return &Response{Type: Network, Message: msgNetwork, Code: "TIMEOUT", Retry: true}
	case HTTPStatus:
		return classifyStatus(f)
	case ProviderAuth:
		msg, ok := authMessages[f.Code]
		if !ok {
			msg = msgAuthFallback
		}
		return &Response{Type: Authentication, Message: msg, Code: f.Code}
	case Generic:
		return classifyGeneric(f)
	default:
		return &Response{Type: Unknown, Message: msgFallback}
	}
}

func classifyStatus(f HTTPStatus) *Response {
	switch f.Status {
	case http.StatusUnauthorized:
		return &Response{Type: Authentication, Message: msgSession, Code: "SESSION_EXPIRED"}
	case http.StatusForbidden:
		return &Response{Type: Authorization, Message: msgPermission, Code: "PERMISSION_DENIED"}
	case http.StatusNotFound:
		return &Response{Type: Server, Message: msgNotFound, Code: "RESOURCE_NOT_FOUND"}
	case http.StatusUnprocessableEntity:
		return &Response{Type: Validation, Message: msgInvalidData, Code: "VALIDATION_ERROR", Details: f.Data}
	case http.StatusTooManyRequests:
		return &Response{Type: RateLimit, Message: msgRateLimited, Code: "RATE_LIMITED", Retry: true}
	case http.StatusInternalServerError, http.StatusBadGateway,
		http.StatusServiceUnavailable, http.StatusGatewayTimeout:
		return &Response{Type: Server, Message: msgServer, Code: "SERVER_ERROR", Retry: true}
	default:
		return &Response{Type: Unknown, Message: msgUnexpected, Code: fmt.Sprintf("HTTP_%d", f.Status)}
	}
}

func classifyGeneric(f Generic) *Response {
	msg := strings.TrimSpace(f.Message)
	if msg == "" && f.Err != nil {
		msg = strings.TrimSpace(f.Err.Error())
	}

	if strings.Contains(strings.ToLower(msg), "file") {
		return &Response{Type: FileUpload, Message: msgFileUpload, Details: msg}
	}

	var details any = msg
	if f.Err != nil {
		details = f.Err
	}
	if msg == "" {
		msg = msgFallback
	}

	return &Response{Type: Unknown, Message: msg, Details: details}
}

const authNamespace = "auth/"

type authCoder interface {
	AuthCode() string
}

// FromError wraps a Go error into the matching Failure variant.
func FromError(err error) Failure {
	if err == nil {
		return Generic{}
	}

	var timeout *TimeoutError
	if errors.As(err, &timeout) {
		return Timeout{After: timeout.After, Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return Timeout{Err: err}
	}

	var status *StatusError
	if errors.As(err, &status) {
		return HTTPStatus{Status: status.Status, StatusText: status.StatusText, Data: status.Data}
	}

	var auth authCoder
	if errors.As(err, &auth) && strings.HasPrefix(auth.AuthCode(), authNamespace) {
		return ProviderAuth{Code: auth.AuthCode()}
	}

	if errors.Is(err, context.Canceled) {
		return Connectivity{Err: err}
	}

	// *url.Error satisfies net.Error.
	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Timeout{Err: err}
		}
		return Connectivity{Err: err}
	}

	return Generic{Message: err.Error(), Err: err}
}

// Normalize returns the Response already carried by err, or classifies it.
// A nil error yields nil.
func Normalize(err error) *Response {
	if err == nil {
		return nil
	}
	if resp, ok := As(err); ok {
		return resp
	}
	return Classify(FromError(err))
}
