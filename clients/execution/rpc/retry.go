package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lendingscope/utils"
)

// ErrNoEndpoints is returned when a call is made without any endpoint.
var ErrNoEndpoints = errors.New("no rpc endpoints configured")

// EndpointSet is the primary url of a network plus its ordered fallbacks.
type EndpointSet struct {
	Primary   string
	Fallbacks []string
}

// URLs returns the endpoints in the order they are tried. A negative
// maxFallbacks keeps all fallbacks.
func (s EndpointSet) URLs(maxFallbacks int) []string {
	urls := make([]string, 0, 1+len(s.Fallbacks))
	if s.Primary != "" {
		urls = append(urls, s.Primary)
	}
	for i, fallback := range s.Fallbacks {
		if maxFallbacks >= 0 && i >= maxFallbacks {
			break
		}
		if fallback != "" && fallback != s.Primary {
			urls = append(urls, fallback)
		}
	}
	return urls
}

// RetryPolicy controls the attempts made per endpoint.
type RetryPolicy struct {
	MaxRetries    int           // attempts per endpoint
	BaseDelay     time.Duration // first backoff delay, doubled per attempt
	MaxDelay      time.Duration
	Jitter        time.Duration
	MaxRetryAfter time.Duration
	MaxFallbacks  int // -1 for all configured fallbacks
}

func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     1 * time.Second,
		MaxDelay:      30 * time.Second,
		Jitter:        500 * time.Millisecond,
		MaxRetryAfter: 60 * time.Second,
		MaxFallbacks:  -1,
	}
}

func (p RetryPolicy) backoff() retry.Backoff {
	var b retry.Backoff
	if p.BaseDelay > 0 {
		b = retry.NewExponential(p.BaseDelay)
		if p.Jitter > 0 {
			b = retry.WithJitter(p.Jitter, b)
		}
		if p.MaxDelay > 0 {
			b = retry.WithCappedDuration(p.MaxDelay, b)
		}
	} else {
		b = retry.BackoffFunc(func() (time.Duration, bool) {
			return 0, false
		})
	}

	maxRetries := p.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}
	return retry.WithMaxRetries(uint64(maxRetries-1), b)
}

// Coordinator wraps a transport with per endpoint retries and ordered failover.
// It keeps no state between calls and is safe for concurrent use.
type Coordinator struct {
	transport Transport
	policy    RetryPolicy
	logger    logrus.FieldLogger
}

func NewCoordinator(transport Transport, policy RetryPolicy, logger logrus.FieldLogger) *Coordinator {
	return &Coordinator{
		transport: transport,
		policy:    policy,
		logger:    logger,
	}
}

func (c *Coordinator) Policy() RetryPolicy {
	return c.policy
}

// CallWithRetry runs one JSON-RPC method against the endpoint set and returns
// the raw result of the first successful attempt.
func (c *Coordinator) CallWithRetry(ctx context.Context, endpoints EndpointSet, method string, params []any) (json.RawMessage, error) {
	var result json.RawMessage
	err := c.withRetry(ctx, endpoints, method, func(ctx context.Context, endpoint string) error {
		res, err := c.transport.Call(ctx, endpoint, method, params)
		if err != nil {
			return err
		}
		result = res
		return nil
	})
	return result, err
}

type callArgs struct {
	To   string `json:"to"`
	Data string `json:"data"`
}

// EthCallParams builds the eth_call params for a call against the latest block.
func EthCallParams(to common.Address, data string) []any {
	return []any{callArgs{To: to.Hex(), Data: data}, "latest"}
}

// EthCall executes eth_call against the latest block and returns the hex result.
func (c *Coordinator) EthCall(ctx context.Context, endpoints EndpointSet, to common.Address, data string) (string, error) {
	var result string
	params := EthCallParams(to, data)
	err := c.withRetry(ctx, endpoints, "eth_call", func(ctx context.Context, endpoint string) error {
		res, err := c.transport.Call(ctx, endpoint, "eth_call", params)
		if err != nil {
			return err
		}
		if err := json.Unmarshal(res, &result); err != nil {
			return &CallError{
				Kind:     ErrKindInvalidResponse,
				Endpoint: utils.GetRedactedUrl(endpoint),
				Method:   "eth_call",
				Err:      fmt.Errorf("result is not a hex string: %w", err),
			}
		}
		return nil
	})
	return result, err
}

// BatchCallWithRetry sends the requests as one batch with the same retry and
// failover rules as a single call. Per entry errors are returned in the
// results and do not trigger a retry. Transports without batch support get
// the requests one by one.
func (c *Coordinator) BatchCallWithRetry(ctx context.Context, endpoints EndpointSet, requests []BatchRequest) ([]BatchResult, error) {
	batchTransport, ok := c.transport.(BatchTransport)
	if !ok {
		results := make([]BatchResult, len(requests))
		for i, req := range requests {
			results[i].Result, results[i].Err = c.CallWithRetry(ctx, endpoints, req.Method, req.Params)
			if results[i].Err != nil && ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}
		return results, nil
	}

	var results []BatchResult
	err := c.withRetry(ctx, endpoints, "batch", func(ctx context.Context, endpoint string) error {
		res, err := batchTransport.BatchCall(ctx, endpoint, requests)
		if err != nil {
			return err
		}
		results = res
		return nil
	})
	return results, err
}

func (c *Coordinator) withRetry(ctx context.Context, endpoints EndpointSet, method string, fn func(ctx context.Context, endpoint string) error) error {
	urls := endpoints.URLs(c.policy.MaxFallbacks)
	if len(urls) == 0 {
		return ErrNoEndpoints
	}

	attempts := 0
	var lastErr error

	for idx, endpoint := range urls {
		endpointHost := utils.GetUrlHost(endpoint)
		logger := c.logger.WithFields(logrus.Fields{
			"endpoint": utils.GetRedactedUrl(endpoint),
			"method":   method,
		})
		if idx > 0 {
			rpcFallbacksTotal.Inc()
			logger.Infof("switching to fallback endpoint %v/%v: %v", idx, len(urls)-1, lastErr)
		}

		var retryAfter time.Duration
		base := c.policy.backoff()
		backoff := retry.BackoffFunc(func() (time.Duration, bool) {
			next, stop := base.Next()
			if stop {
				return 0, true
			}
			if retryAfter > 0 {
				next = retryAfter
				if c.policy.MaxRetryAfter > 0 && next > c.policy.MaxRetryAfter {
					next = c.policy.MaxRetryAfter
				}
				retryAfter = 0
			}
			rpcRetriesTotal.WithLabelValues(endpointHost).Inc()
			return next, false
		})

		err := retry.Do(ctx, backoff, func(ctx context.Context) error {
			attempts++
			start := time.Now()
			err := fn(ctx, endpoint)
			rpcCallDuration.WithLabelValues(endpointHost).Observe(time.Since(start).Seconds())
			if err == nil {
				rpcCallsTotal.WithLabelValues(endpointHost, "success").Inc()
				return nil
			}

			lastErr = err
			kind := KindOf(err)
			rpcCallsTotal.WithLabelValues(endpointHost, kind.String()).Inc()
			if !kind.Retryable() {
				return err
			}

			var callErr *CallError
			if errors.As(err, &callErr) && callErr.RetryAfter > 0 {
				retryAfter = callErr.RetryAfter
			}
			logger.WithField("attempt", attempts).Debugf("rpc attempt failed: %v", err)
			return retry.RetryableError(err)
		})
		if err == nil {
			return nil
		}
		if !IsRetryable(err) {
			logger.Warnf("rpc call aborted on non-retryable error: %v", err)
			return err
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			if lastErr == nil {
				return ctxErr
			}
			return fmt.Errorf("%w (last error: %v)", ctxErr, lastErr)
		}
	}

	return &ExhaustedError{
		Endpoints: len(urls),
		Attempts:  attempts,
		Last:      lastErr,
	}
}
