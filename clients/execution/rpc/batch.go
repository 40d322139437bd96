package rpc

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"

	"github.com/ethpandaops/lendingscope/utils"
)

type BatchRequest struct {
	Method string
	Params []any
}

// BatchResult holds the outcome of one request inside a batch. Err is set
// when the endpoint answered this entry with an error object.
type BatchResult struct {
	Result json.RawMessage
	Err    error
}

// BatchCall sends all requests as one JSON-RPC batch and matches the
// responses back to their requests by id.
func (t *HTTPTransport) BatchCall(ctx context.Context, endpoint string, requests []BatchRequest) ([]BatchResult, error) {
	if len(requests) == 0 {
		return []BatchResult{}, nil
	}

	ids := make(map[uint64]int, len(requests))
	batch := make([]*jsonRPCRequest, len(requests))
	for i, req := range requests {
		params := req.Params
		if params == nil {
			params = []any{}
		}
		id := t.requestID.Add(1)
		ids[id] = i
		batch[i] = &jsonRPCRequest{
			JSONRPC: "2.0",
			Method:  req.Method,
			Params:  params,
			ID:      id,
		}
	}

	body, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("could not encode batch request: %w", err)
	}

	respBody, err := t.post(ctx, endpoint, "batch", body)
	if err != nil {
		return nil, err
	}

	var responses []*jsonRPCResponse
	if err := json.Unmarshal(respBody, &responses); err != nil {
		// some providers answer a rejected batch with a single error object
		var single jsonRPCResponse
		if json.Unmarshal(respBody, &single) == nil && single.Error != nil {
			_, callErr := responseResult(endpoint, "batch", &single)
			return nil, callErr
		}
		return nil, &CallError{
			Kind:     ErrKindInvalidResponse,
			Endpoint: utils.GetRedactedUrl(endpoint),
			Method:   "batch",
			Err:      fmt.Errorf("could not parse batch response: %w", err),
		}
	}

	results := make([]BatchResult, len(requests))
	seen := make([]bool, len(requests))
	for _, resp := range responses {
		if resp == nil {
			continue
		}
		id, err := strconv.ParseUint(string(resp.ID), 10, 64)
		if err != nil {
			continue
		}
		idx, ok := ids[id]
		if !ok {
			continue
		}
		seen[idx] = true
		results[idx].Result, results[idx].Err = responseResult(endpoint, requests[idx].Method, resp)
	}
	for idx := range results {
		if !seen[idx] {
			results[idx].Err = &CallError{
				Kind:     ErrKindInvalidResponse,
				Endpoint: utils.GetRedactedUrl(endpoint),
				Method:   requests[idx].Method,
				Message:  "missing from batch response",
			}
		}
	}

	return results, nil
}
