package fetcher

import (
	"bytes"
	"encoding/json"
	"io"
	"math/big"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/common/hexutil"
	"github.com/sirupsen/logrus"

	"github.com/ethpandaops/lendingscope/clients/execution/rpc"
	"github.com/ethpandaops/lendingscope/ethabi"
)

type fakeRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     json.RawMessage   `json:"id"`
}

// fakeChain is a JSON-RPC node answering eth_call from a fixed table. Calls
// without an entry answer "0x" like a reverted call.
type fakeChain struct {
	server  *httptest.Server
	chainID uint64

	mutex     sync.Mutex
	results   map[string]string
	calls     map[string]int
	methods   map[string]int
	code      map[common.Address]string
	multicall *common.Address
	batches   int
}

func newFakeChain(t *testing.T, chainID uint64) *fakeChain {
	t.Helper()
	chain := &fakeChain{
		chainID: chainID,
		results: map[string]string{},
		calls:   map[string]int{},
		methods: map[string]int{},
		code:    map[common.Address]string{},
	}
	chain.server = httptest.NewServer(http.HandlerFunc(chain.serveHTTP))
	t.Cleanup(chain.server.Close)
	return chain
}

func callKey(to common.Address, data string) string {
	return strings.ToLower(to.Hex()) + "|" + strings.ToLower(data)
}

func (c *fakeChain) set(to common.Address, data string, result string) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.results[callKey(to, data)] = result
}

func (c *fakeChain) callCount(to common.Address, data string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.calls[callKey(to, data)]
}

// deployMulticall serves aggregate3 at the address, answering each inner call
// from the eth_call table. Calls without an entry fail.
func (c *fakeChain) deployMulticall(address common.Address) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.multicall = &address
	c.code[address] = "0x6080604052"
}

func (c *fakeChain) methodCount(method string) int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.methods[method]
}

func (c *fakeChain) aggregate3(data string) (string, bool) {
	calls, err := ethabi.DecodeAggregate3Call(data)
	if err != nil {
		return "", false
	}
	results := make([]ethabi.Call3Result, len(calls))
	for i, call := range calls {
		result, ok := c.results[callKey(call.Target, hexutil.Encode(call.CallData))]
		if !ok || ethabi.IsEmptyResult(result) {
			results[i] = ethabi.Call3Result{Success: false, ReturnData: []byte{}}
			continue
		}
		results[i] = ethabi.Call3Result{Success: true, ReturnData: hexutil.MustDecode(result)}
	}
	return ethabi.EncodeAggregate3Result(results), true
}

func (c *fakeChain) batchCount() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	return c.batches
}

func (c *fakeChain) answer(req *fakeRequest) map[string]any {
	resp := map[string]any{"jsonrpc": "2.0", "id": req.ID}
	c.mutex.Lock()
	c.methods[req.Method]++
	c.mutex.Unlock()

	switch req.Method {
	case "eth_chainId":
		resp["result"] = "0x" + new(big.Int).SetUint64(c.chainID).Text(16)
	case "eth_call":
		var args struct {
			To   string `json:"to"`
			Data string `json:"data"`
		}
		if len(req.Params) == 0 || json.Unmarshal(req.Params[0], &args) != nil {
			resp["error"] = map[string]any{"code": -32602, "message": "invalid params"}
			return resp
		}
		to := common.HexToAddress(args.To)
		key := callKey(to, args.Data)
		c.mutex.Lock()
		defer c.mutex.Unlock()
		c.calls[key]++
		if c.multicall != nil && *c.multicall == to {
			if result, ok := c.aggregate3(args.Data); ok {
				resp["result"] = result
				return resp
			}
		}
		result, ok := c.results[key]
		if !ok {
			result = "0x"
		}
		resp["result"] = result
	case "eth_getCode":
		var address string
		if len(req.Params) == 0 || json.Unmarshal(req.Params[0], &address) != nil {
			resp["error"] = map[string]any{"code": -32602, "message": "invalid params"}
			return resp
		}
		c.mutex.Lock()
		code, ok := c.code[common.HexToAddress(address)]
		c.mutex.Unlock()
		if !ok {
			code = "0x"
		}
		resp["result"] = code
	default:
		resp["error"] = map[string]any{"code": -32601, "message": "method not found"}
	}
	return resp
}

func (c *fakeChain) serveHTTP(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	w.Header().Set("Content-Type", "application/json")

	if trimmed := bytes.TrimSpace(body); len(trimmed) > 0 && trimmed[0] == '[' {
		var reqs []*fakeRequest
		if err := json.Unmarshal(trimmed, &reqs); err != nil {
			http.Error(w, "bad request", http.StatusBadRequest)
			return
		}
		c.mutex.Lock()
		c.batches++
		c.mutex.Unlock()
		responses := make([]map[string]any, 0, len(reqs))
		for _, req := range reqs {
			responses = append(responses, c.answer(req))
		}
		json.NewEncoder(w).Encode(responses)
		return
	}

	var req fakeRequest
	if err := json.Unmarshal(body, &req); err != nil {
		http.Error(w, "bad request", http.StatusBadRequest)
		return
	}
	json.NewEncoder(w).Encode(c.answer(&req))
}

func (c *fakeChain) endpoints() rpc.EndpointSet {
	return rpc.EndpointSet{Primary: c.server.URL}
}

func testLogger() logrus.FieldLogger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestFetcher(cache ResponseCache) *Fetcher {
	policy := rpc.RetryPolicy{
		MaxRetries:    3,
		BaseDelay:     time.Millisecond,
		MaxDelay:      5 * time.Millisecond,
		MaxRetryAfter: 10 * time.Millisecond,
		MaxFallbacks:  -1,
	}
	transport := rpc.NewHTTPTransport(rpc.HTTPTransportConfig{Timeout: 5 * time.Second})
	return NewFetcher(rpc.NewCoordinator(transport, policy, testLogger()), cache, testLogger())
}

var rayUnit = new(big.Int).Exp(big.NewInt(10), big.NewInt(27), nil)

// rayWord encodes num/den as a ray scaled word.
func rayWord(num, den int64) string {
	v := new(big.Int).Mul(rayUnit, big.NewInt(num))
	return ethabi.EncodeUintWord(v.Quo(v, big.NewInt(den)))
}

func uintWord(v uint64) string {
	return ethabi.EncodeUintWord(new(big.Int).SetUint64(v))
}

func poolReservePayload(cfg ethabi.ReserveConfiguration, id uint64) string {
	return ethabi.EncodeWords(
		ethabi.EncodeUintWord(cfg.Bitmap().ToBig()),
		rayWord(1, 1),     // liquidity index
		rayWord(3, 100),   // liquidity rate
		rayWord(11, 10),   // variable borrow index
		rayWord(5, 100),   // variable borrow rate
		rayWord(0, 1),     // stable borrow rate
		uintWord(1700000000),
		uintWord(id),
		ethabi.EncodeAddressWord(common.HexToAddress("0x00000000000000000000000000000000000000a1")),
		ethabi.EncodeAddressWord(common.HexToAddress("0x00000000000000000000000000000000000000a2")),
		ethabi.EncodeAddressWord(common.HexToAddress("0x00000000000000000000000000000000000000a3")),
		ethabi.EncodeAddressWord(common.HexToAddress("0x00000000000000000000000000000000000000a4")),
		uintWord(12345),
		uintWord(0),
		uintWord(0),
	)
}

func usdcConfiguration() ethabi.ReserveConfiguration {
	return ethabi.ReserveConfiguration{
		LoanToValue:          0.75,
		LiquidationThreshold: 0.78,
		LiquidationBonus:     1.045,
		Decimals:             6,
		Active:               true,
		BorrowingEnabled:     true,
		FlashLoanEnabled:     true,
		ReserveFactor:        0.10,
		BorrowCap:            1400000000,
		SupplyCap:            1500000000,
	}
}
