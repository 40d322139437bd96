package rpc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/ethpandaops/lendingscope/utils"
)

const maxResponseSize = 32 * 1024 * 1024

// Transport issues a single JSON-RPC request against one endpoint.
type Transport interface {
	Call(ctx context.Context, endpoint string, method string, params []any) (json.RawMessage, error)
}

// BatchTransport is implemented by transports that can send JSON-RPC batches.
type BatchTransport interface {
	Transport
	BatchCall(ctx context.Context, endpoint string, requests []BatchRequest) ([]BatchResult, error)
}

type HTTPTransportConfig struct {
	Timeout   time.Duration
	Headers   map[string]string
	RateLimit float64 // requests per second per endpoint, 0 disables
	RateBurst int
	Client    *http.Client
}

// HTTPTransport posts JSON-RPC requests over HTTP(S).
type HTTPTransport struct {
	client    *http.Client
	timeout   time.Duration
	headers   map[string]string
	rateLimit rate.Limit
	rateBurst int
	requestID atomic.Uint64

	limiterMutex sync.Mutex
	limiters     map[string]*rate.Limiter
}

type jsonRPCRequest struct {
	JSONRPC string `json:"jsonrpc"`
	Method  string `json:"method"`
	Params  []any  `json:"params"`
	ID      uint64 `json:"id"`
}

type jsonRPCResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result"`
	Error   *jsonRPCError   `json:"error"`
}

type jsonRPCError struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data,omitempty"`
}

func NewHTTPTransport(config HTTPTransportConfig) *HTTPTransport {
	client := config.Client
	if client == nil {
		client = &http.Client{}
	}
	burst := config.RateBurst
	if burst <= 0 {
		burst = 1
	}

	t := &HTTPTransport{
		client:    client,
		timeout:   config.Timeout,
		headers:   config.Headers,
		rateLimit: rate.Inf,
		rateBurst: burst,
		limiters:  map[string]*rate.Limiter{},
	}
	if config.RateLimit > 0 {
		t.rateLimit = rate.Limit(config.RateLimit)
	}
	return t
}

// Call sends one JSON-RPC request and returns the raw result.
func (t *HTTPTransport) Call(ctx context.Context, endpoint string, method string, params []any) (json.RawMessage, error) {
	if params == nil {
		params = []any{}
	}
	body, err := json.Marshal(&jsonRPCRequest{
		JSONRPC: "2.0",
		Method:  method,
		Params:  params,
		ID:      t.requestID.Add(1),
	})
	if err != nil {
		return nil, fmt.Errorf("could not encode %v request: %w", method, err)
	}

	respBody, err := t.post(ctx, endpoint, method, body)
	if err != nil {
		return nil, err
	}

	var resp jsonRPCResponse
	if err := json.Unmarshal(respBody, &resp); err != nil {
		return nil, &CallError{
			Kind:     ErrKindInvalidResponse,
			Endpoint: utils.GetRedactedUrl(endpoint),
			Method:   method,
			Err:      fmt.Errorf("could not parse response: %w", err),
		}
	}
	return responseResult(endpoint, method, &resp)
}

func responseResult(endpoint string, method string, resp *jsonRPCResponse) (json.RawMessage, error) {
	if resp.Error != nil {
		return nil, &CallError{
			Kind:     classifyRPCError(resp.Error.Code, resp.Error.Message),
			Endpoint: utils.GetRedactedUrl(endpoint),
			Method:   method,
			RPCCode:  resp.Error.Code,
			Message:  resp.Error.Message,
		}
	}
	if len(resp.Result) == 0 || string(resp.Result) == "null" {
		return nil, &CallError{
			Kind:     ErrKindInvalidResponse,
			Endpoint: utils.GetRedactedUrl(endpoint),
			Method:   method,
			Message:  "response carries neither result nor error",
		}
	}
	return resp.Result, nil
}

func (t *HTTPTransport) limiter(endpoint string) *rate.Limiter {
	t.limiterMutex.Lock()
	defer t.limiterMutex.Unlock()

	limiter := t.limiters[endpoint]
	if limiter == nil {
		limiter = rate.NewLimiter(t.rateLimit, t.rateBurst)
		t.limiters[endpoint] = limiter
	}
	return limiter
}

func (t *HTTPTransport) post(ctx context.Context, endpoint string, method string, body []byte) ([]byte, error) {
	if t.rateLimit != rate.Inf {
		if err := t.limiter(endpoint).Wait(ctx); err != nil {
			return nil, &CallError{
				Kind:     ErrKindTransport,
				Endpoint: utils.GetRedactedUrl(endpoint),
				Method:   method,
				Err:      err,
			}
		}
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, &CallError{
			Kind:     ErrKindClient,
			Endpoint: utils.GetRedactedUrl(endpoint),
			Method:   method,
			Err:      err,
		}
	}
	req.Header.Set("Content-Type", "application/json")
	for hKey, hVal := range t.headers {
		req.Header.Set(hKey, hVal)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, &CallError{
			Kind:     ErrKindTransport,
			Endpoint: utils.GetRedactedUrl(endpoint),
			Method:   method,
			Err:      err,
		}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, &CallError{
			Kind:       ErrKindTransport,
			Endpoint:   utils.GetRedactedUrl(endpoint),
			Method:     method,
			StatusCode: resp.StatusCode,
			Err:        fmt.Errorf("could not read response body: %w", err),
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		callErr := &CallError{
			Kind:       classifyHTTPStatus(resp.StatusCode),
			Endpoint:   utils.GetRedactedUrl(endpoint),
			Method:     method,
			StatusCode: resp.StatusCode,
			Message:    truncateBody(data),
		}
		if callErr.Kind == ErrKindRateLimit {
			callErr.RetryAfter = parseRetryAfter(resp.Header.Get("Retry-After"), time.Now())
		}
		return nil, callErr
	}

	return data, nil
}

func truncateBody(data []byte) string {
	data = bytes.TrimSpace(data)
	if len(data) > 200 {
		return string(data[:200]) + "..."
	}
	return string(data)
}
