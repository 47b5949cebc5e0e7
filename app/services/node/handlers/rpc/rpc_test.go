package rpc_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"

	"github.com/chainforge/ledger/app/services/node/handlers/rpc"
	"github.com/chainforge/ledger/business/web/errs"
	"github.com/chainforge/ledger/foundation/blockchain/genesis"
	"github.com/chainforge/ledger/foundation/blockchain/peer"
	"github.com/chainforge/ledger/foundation/blockchain/state"
)

const (
	success = "✓"
	failed  = "✗"
)

func newTestHandlers(t *testing.T) rpc.Handlers {
	t.Helper()

	s, err := state.New(state.Config{
		NodeID:     "node-a",
		Genesis:    genesis.Default(),
		KnownPeers: peer.NewSet(),
		Log:        zap.NewNop().Sugar(),
	})
	if err != nil {
		t.Fatalf("\t%s\tShould be able to construct state: %s", failed, err)
	}

	return rpc.Handlers{
		Log:  zap.NewNop().Sugar(),
		Node: s,
	}
}

type rpcEnvelope struct {
	JSONRPC string          `json:"jsonrpc"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *errs.RPCError  `json:"error,omitempty"`
	ID      json.RawMessage `json:"id"`
}

func dispatch(t *testing.T, h rpc.Handlers, body string) rpcEnvelope {
	t.Helper()

	req := httptest.NewRequest(http.MethodPost, "/v1/rpc", bytes.NewBufferString(body))
	w := httptest.NewRecorder()

	if err := h.Dispatch(context.Background(), w, req); err != nil {
		t.Fatalf("\t%s\tShould be able to dispatch without a transport error: %s", failed, err)
	}

	var env rpcEnvelope
	if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
		t.Fatalf("\t%s\tShould write a well-formed JSON-RPC envelope: %s", failed, err)
	}

	return env
}

func TestDispatchMalformedEnvelope(t *testing.T) {
	t.Log("Given the need to reject a request that is not valid JSON.")
	{
		t.Logf("\tTest 0:\tWhen the request body is not valid JSON.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, "{not json")

			if env.Error == nil || env.Error.Code != errs.CodeParseError {
				t.Fatalf("\t%s\tTest 0:\tShould report CodeParseError, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 0:\tShould report CodeParseError.", success)
		}
	}
}

func TestDispatchNotWellFormedRequest(t *testing.T) {
	t.Log("Given the need to reject a request missing jsonrpc or method.")
	{
		t.Logf("\tTest 0:\tWhen jsonrpc is not \"2.0\".")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"1.0","method":"eth_blockNumber","id":1}`)

			if env.Error == nil || env.Error.Code != errs.CodeInvalidRequest {
				t.Fatalf("\t%s\tTest 0:\tShould report CodeInvalidRequest, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 0:\tShould report CodeInvalidRequest.", success)
		}

		t.Logf("\tTest 1:\tWhen method is empty.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"2.0","method":"","id":1}`)

			if env.Error == nil || env.Error.Code != errs.CodeInvalidRequest {
				t.Fatalf("\t%s\tTest 1:\tShould report CodeInvalidRequest, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 1:\tShould report CodeInvalidRequest.", success)
		}
	}
}

func TestDispatchUnknownMethod(t *testing.T) {
	t.Log("Given the need to reject a method name not in the dispatch table.")
	{
		t.Logf("\tTest 0:\tWhen the method name is not registered.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"2.0","method":"eth_doesNotExist","id":1}`)

			if env.Error == nil || env.Error.Code != errs.CodeMethodNotFound {
				t.Fatalf("\t%s\tTest 0:\tShould report CodeMethodNotFound, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 0:\tShould report CodeMethodNotFound.", success)
		}
	}
}

func TestDispatchBlockNumber(t *testing.T) {
	t.Log("Given the need to successfully dispatch a well-formed request.")
	{
		t.Logf("\tTest 0:\tWhen calling eth_blockNumber on a freshly constructed node.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"2.0","method":"eth_blockNumber","id":1}`)

			if env.Error != nil {
				t.Fatalf("\t%s\tTest 0:\tShould succeed, got error %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 0:\tShould succeed.", success)

			var result struct {
				Height uint64 `json:"height"`
			}
			if err := json.Unmarshal(env.Result, &result); err != nil {
				t.Fatalf("\t%s\tTest 0:\tShould decode a height result: %s", failed, err)
			}
			if result.Height != 1 {
				t.Fatalf("\t%s\tTest 0:\tShould report the genesis-only chain height of 1, got %d.", failed, result.Height)
			}
			t.Logf("\t%s\tTest 0:\tShould report the chain height.", success)
		}
	}
}

func TestDispatchGetBalanceInvalidParams(t *testing.T) {
	t.Log("Given the need to reject malformed params before reaching the core call.")
	{
		t.Logf("\tTest 0:\tWhen eth_getBalance is called with no params.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"2.0","method":"eth_getBalance","id":1}`)

			if env.Error == nil || env.Error.Code != errs.CodeInvalidParams {
				t.Fatalf("\t%s\tTest 0:\tShould report CodeInvalidParams, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 0:\tShould report CodeInvalidParams.", success)
		}

		t.Logf("\tTest 1:\tWhen eth_getBalance is called with a malformed address.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"2.0","method":"eth_getBalance","params":{"address":"not-an-address"},"id":1}`)

			if env.Error == nil || env.Error.Code != errs.CodeInvalidParams {
				t.Fatalf("\t%s\tTest 1:\tShould report CodeInvalidParams, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 1:\tShould report CodeInvalidParams for a malformed address.", success)
		}
	}
}

func TestDispatchGetContractNotFound(t *testing.T) {
	t.Log("Given the need to report a server error for a contract lookup that fails.")
	{
		t.Logf("\tTest 0:\tWhen eth_getContract is called with an address nothing was deployed at.")
		{
			h := newTestHandlers(t)
			env := dispatch(t, h, `{"jsonrpc":"2.0","method":"eth_getContract","params":{"address":"0xdeaddeaddeaddeaddeaddeaddeaddeaddeaddead"},"id":1}`)

			if env.Error == nil || env.Error.Code != errs.CodeServerError {
				t.Fatalf("\t%s\tTest 0:\tShould report CodeServerError, got %+v.", failed, env.Error)
			}
			t.Logf("\t%s\tTest 0:\tShould report CodeServerError for a contract lookup that fails.", success)
		}
	}
}
