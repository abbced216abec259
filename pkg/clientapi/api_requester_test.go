package clientapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type rpcRequest struct {
	ID     json.RawMessage `json:"id"`
	Method string          `json:"method"`
	Params json.RawMessage `json:"params"`
}

// nodeServer answers both the execution JSON-RPC and the CometBFT JSON-RPC on one endpoint.
type nodeServer struct {
	*httptest.Server
	mu    sync.Mutex
	calls map[string]int
}

func newNodeServer(t *testing.T, handle func(method string, params json.RawMessage) interface{}) *nodeServer {
	s := &nodeServer{calls: make(map[string]int)}
	s.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		if !assert.NoError(t, json.NewDecoder(r.Body).Decode(&req)) {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		s.mu.Lock()
		s.calls[req.Method]++
		s.mu.Unlock()

		result, err := json.Marshal(handle(req.Method, req.Params))
		assert.NoError(t, err)
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprintf(w, `{"jsonrpc":"2.0","id":%s,"result":%s}`, req.ID, result)
	}))
	t.Cleanup(s.Close)
	return s
}

func (s *nodeServer) Calls(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[method]
}

func newTestAPIClient(t *testing.T, srv *nodeServer) *APIClient {
	cli, err := NewAPIClient(context.Background(), srv.URL, srv.URL,
		WithTimeout(2*time.Second),
		WithMaxRetries(1),
		WithRetryInterval(time.Millisecond))
	require.NoError(t, err)
	t.Cleanup(cli.Close)
	return cli
}

// namedParam reads an integer CometBFT param, sent either quoted or as a number.
func namedParam(params json.RawMessage, key string) int64 {
	var m map[string]json.RawMessage
	if err := json.Unmarshal(params, &m); err != nil {
		return -1
	}
	v, err := strconv.ParseInt(strings.Trim(string(m[key]), `"`), 10, 64)
	if err != nil {
		return -1
	}
	return v
}

func blsValidator(i int) map[string]interface{} {
	return map[string]interface{}{
		"address": fmt.Sprintf("%040X", i+1),
		"pub_key": map[string]string{
			"type":  "cometbft/PubKeyBls12_381",
			"value": "qgAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA",
		},
		"voting_power":      strconv.Itoa((i + 1) * 1_000_000_000),
		"proposer_priority": "0",
	}
}

func TestValidatorSetPagesBLSKeys(t *testing.T) {
	const total = 150
	var heights sync.Map
	srv := newNodeServer(t, func(method string, params json.RawMessage) interface{} {
		assert.Equal(t, "validators", method)
		heights.Store(namedParam(params, "height"), true)
		page := int(namedParam(params, "page"))
		perPage := int(namedParam(params, "per_page"))
		vals := make([]map[string]interface{}, 0, perPage)
		for i := (page - 1) * perPage; i < page*perPage && i < total; i++ {
			vals = append(vals, blsValidator(i))
		}
		return map[string]interface{}{
			"block_height": "10",
			"validators":   vals,
			"count":        strconv.Itoa(len(vals)),
			"total":        strconv.Itoa(total),
		}
	})

	set, err := newTestAPIClient(t, srv).ValidatorSet(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, set, total)
	require.Equal(t, 2, srv.Calls("validators"))
	_, ok := heights.Load(int64(10))
	require.True(t, ok)

	require.Equal(t, fmt.Sprintf("%040X", 1), set[0].Address)
	require.Equal(t, int64(1_000_000_000), set[0].VotingPower)
	require.Equal(t, fmt.Sprintf("%040X", total), set[total-1].Address)
	require.Equal(t, int64(total)*1_000_000_000, set[total-1].VotingPower)
}

func TestValidatorSetStopsAtTotal(t *testing.T) {
	srv := newNodeServer(t, func(method string, params json.RawMessage) interface{} {
		return map[string]interface{}{
			"block_height": "5",
			"validators":   []map[string]interface{}{blsValidator(0), blsValidator(1)},
			"count":        "2",
			"total":        "2",
		}
	})

	set, err := newTestAPIClient(t, srv).ValidatorSet(context.Background(), 5)
	require.NoError(t, err)
	require.Len(t, set, 2)
	require.Equal(t, 1, srv.Calls("validators"))
}

func TestBlockProposerNormalized(t *testing.T) {
	srv := newNodeServer(t, func(method string, params json.RawMessage) interface{} {
		assert.Equal(t, "header", method)
		assert.Equal(t, int64(42), namedParam(params, "height"))
		return map[string]interface{}{
			"header": map[string]interface{}{
				"height":           "42",
				"proposer_address": "0xab12cd34ef",
			},
		}
	})

	proposer, err := newTestAPIClient(t, srv).BlockProposer(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, "AB12CD34EF", proposer)
}

func TestBlockTxCount(t *testing.T) {
	srv := newNodeServer(t, func(method string, params json.RawMessage) interface{} {
		assert.Equal(t, "eth_getBlockTransactionCountByNumber", method)
		var args []string
		assert.NoError(t, json.Unmarshal(params, &args))
		if len(args) == 1 && args[0] == "0x2a" {
			return "0x7"
		}
		return nil
	})
	cli := newTestAPIClient(t, srv)

	count, err := cli.BlockTxCount(context.Background(), 42)
	require.NoError(t, err)
	require.Equal(t, uint64(7), count)

	_, err = cli.BlockTxCount(context.Background(), 43)
	require.ErrorContains(t, err, "block 43 not found")
	require.Equal(t, 2, srv.Calls("eth_getBlockTransactionCountByNumber"))
}
