package rpc

import (
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"
)

// ErrorKind classifies a failed RPC attempt.
type ErrorKind uint8

const (
	ErrKindUnknown ErrorKind = iota
	ErrKindTransport
	ErrKindRateLimit
	ErrKindServer
	ErrKindClient
	ErrKindInvalidParams
	ErrKindRPC
	ErrKindInvalidResponse
)

func (k ErrorKind) String() string {
	switch k {
	case ErrKindTransport:
		return "transport"
	case ErrKindRateLimit:
		return "rate_limit"
	case ErrKindServer:
		return "server"
	case ErrKindClient:
		return "client"
	case ErrKindInvalidParams:
		return "invalid_params"
	case ErrKindRPC:
		return "rpc"
	case ErrKindInvalidResponse:
		return "invalid_response"
	}
	return "unknown"
}

// Retryable reports whether another attempt may succeed.
func (k ErrorKind) Retryable() bool {
	return k != ErrKindClient && k != ErrKindInvalidParams
}

// JSON-RPC error codes.
const (
	rpcCodeInvalidParams = -32602
	rpcCodeInternal      = -32603
	rpcCodeServerMin     = -32099
	rpcCodeServerMax     = -32000
)

// CallError describes a single failed request against one endpoint.
type CallError struct {
	Kind       ErrorKind
	Endpoint   string
	Method     string
	StatusCode int
	RPCCode    int
	Message    string
	RetryAfter time.Duration
	Err        error
}

func (e *CallError) Error() string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "%v error calling %v on %v", e.Kind, e.Method, e.Endpoint)
	if e.StatusCode != 0 {
		fmt.Fprintf(&sb, " (http %d)", e.StatusCode)
	}
	if e.RPCCode != 0 {
		fmt.Fprintf(&sb, " (rpc code %d)", e.RPCCode)
	}
	if e.Message != "" {
		fmt.Fprintf(&sb, ": %v", e.Message)
	}
	if e.Err != nil {
		fmt.Fprintf(&sb, ": %v", e.Err)
	}
	return sb.String()
}

func (e *CallError) Unwrap() error {
	return e.Err
}

// ExhaustedError is returned once every endpoint ran out of attempts.
type ExhaustedError struct {
	Endpoints int
	Attempts  int
	Last      error
}

func (e *ExhaustedError) Error() string {
	return fmt.Sprintf("all %d endpoints failed after %d attempts, last error: %v", e.Endpoints, e.Attempts, e.Last)
}

func (e *ExhaustedError) Unwrap() error {
	return e.Last
}

// KindOf returns the classification of err, or ErrKindUnknown.
func KindOf(err error) ErrorKind {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind
	}
	return ErrKindUnknown
}

// IsRetryable reports whether err may succeed on another attempt.
func IsRetryable(err error) bool {
	var callErr *CallError
	if errors.As(err, &callErr) {
		return callErr.Kind.Retryable()
	}
	return true
}

// classifyRPCError maps a JSON-RPC error object to an error kind.
func classifyRPCError(code int, message string) ErrorKind {
	msg := strings.ToLower(message)
	switch {
	case code == rpcCodeInvalidParams:
		return ErrKindInvalidParams
	case strings.Contains(msg, "rate") && strings.Contains(msg, "limit"),
		strings.Contains(msg, "too many requests"):
		return ErrKindRateLimit
	case code == rpcCodeInternal, code >= rpcCodeServerMin && code <= rpcCodeServerMax:
		return ErrKindServer
	}
	return ErrKindRPC
}

// classifyHTTPStatus maps a non-2xx status code to an error kind.
func classifyHTTPStatus(status int) ErrorKind {
	switch {
	case status == http.StatusTooManyRequests:
		return ErrKindRateLimit
	case status >= 500:
		return ErrKindServer
	case status >= 400:
		return ErrKindClient
	}
	return ErrKindInvalidResponse
}

// parseRetryAfter reads a Retry-After header given as seconds or an HTTP date.
func parseRetryAfter(value string, now time.Time) time.Duration {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs < 0 {
			return 0
		}
		return time.Duration(secs) * time.Second
	}
	if at, err := http.ParseTime(value); err == nil {
		if d := at.Sub(now); d > 0 {
			return d
		}
	}
	return 0
}
