package errs_test

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/chainforge/ledger/business/web/errs"
)

const (
	success = "✓"
	failed  = "✗"
)

func TestRPCErrorRoundTrip(t *testing.T) {
	t.Log("Given the need to carry a JSON-RPC error code through the error chain.")
	{
		t.Logf("\tTest 0:\tWhen wrapping an RPCError inside another error.")
		{
			rpcErr := errs.NewRPCErrorWithData(errs.CodeInvalidParams, "bad address", "address")
			wrapped := fmt.Errorf("rpc: dispatch: %w", rpcErr)

			if !errs.IsRPCError(wrapped) {
				t.Fatalf("\t%s\tTest 0:\tShould detect a wrapped RPCError.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould detect a wrapped RPCError.", success)

			got := errs.GetRPCError(wrapped)
			if got == nil || got.Code != errs.CodeInvalidParams || got.Data != "address" {
				t.Fatalf("\t%s\tTest 0:\tShould recover the original code and data, got %+v.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the original code and data.", success)
		}

		t.Logf("\tTest 1:\tWhen an error is not an RPCError.")
		{
			if errs.IsRPCError(fmt.Errorf("plain error")) {
				t.Fatalf("\t%s\tTest 1:\tShould not misidentify a plain error as an RPCError.", failed)
			}
			t.Logf("\t%s\tTest 1:\tShould not misidentify a plain error as an RPCError.", success)
		}
	}
}

func TestTrustedRoundTrip(t *testing.T) {
	t.Log("Given the need to carry an HTTP status through the error chain.")
	{
		t.Logf("\tTest 0:\tWhen wrapping a Trusted error with a status code.")
		{
			trusted := errs.NewTrusted(fmt.Errorf("not found"), http.StatusNotFound)
			wrapped := fmt.Errorf("handler: %w", trusted)

			if !errs.IsTrusted(wrapped) {
				t.Fatalf("\t%s\tTest 0:\tShould detect a wrapped Trusted error.", failed)
			}
			t.Logf("\t%s\tTest 0:\tShould detect a wrapped Trusted error.", success)

			got := errs.GetTrusted(wrapped)
			if got == nil || got.Status != http.StatusNotFound {
				t.Fatalf("\t%s\tTest 0:\tShould recover the original status code, got %+v.", failed, got)
			}
			t.Logf("\t%s\tTest 0:\tShould recover the original status code.", success)
		}
	}
}
