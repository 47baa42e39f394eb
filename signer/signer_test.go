package signer

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

type rpcRequest struct {
	Method string            `json:"method"`
	Params []json.RawMessage `json:"params"`
	ID     int               `json:"id"`
}

func newSignerServer(t *testing.T, handle func(req *rpcRequest) interface{}) *httptest.Server {
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req rpcRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"jsonrpc": "2.0",
			"id":      req.ID,
			"result":  handle(&req),
		})
	}))
}

func TestBuildEscrowTx(t *testing.T) {
	var got BuildArgs
	srv := newSignerServer(t, func(req *rpcRequest) interface{} {
		assert.Equal(t, methodBuildEscrowTx, req.Method)
		require.Len(t, req.Params, 1)
		require.NoError(t, json.Unmarshal(req.Params[0], &got))
		return &BuildResult{Status: statusSuccess, RawTx: "0xf86b01"}
	})
	defer srv.Close()

	swap := &types.SwapRecord{OrderID: "order-1", SrcChain: "ethereum", DstChain: "cardano"}
	tx, err := NewClient(srv.URL).BuildEscrowTx("ethereum", tokens.ActionDeploy, swap)
	require.NoError(t, err)
	assert.Equal(t, []byte{0xf8, 0x6b, 0x01}, tx.Raw)
	assert.Equal(t, "order-1", tx.OrderID)
	assert.Equal(t, tokens.ActionDeploy, tx.Action)
	assert.Equal(t, "ethereum", got.Chain)
	assert.Equal(t, "order-1", got.Swap.OrderID)
}

func TestBuildEscrowTxFailure(t *testing.T) {
	srv := newSignerServer(t, func(req *rpcRequest) interface{} {
		return &BuildResult{Status: "Failure", Error: "insufficient balance"}
	})
	defer srv.Close()

	_, err := NewClient(srv.URL).BuildEscrowTx("cardano", tokens.ActionWithdraw, &types.SwapRecord{OrderID: "order-2"})
	assert.ErrorIs(t, err, ErrWrongStatus)

	srv2 := newSignerServer(t, func(req *rpcRequest) interface{} {
		return &BuildResult{Status: statusSuccess, RawTx: "zz"}
	})
	defer srv2.Close()
	_, err = NewClient(srv2.URL).BuildEscrowTx("cardano", tokens.ActionWithdraw, &types.SwapRecord{OrderID: "order-2"})
	assert.ErrorIs(t, err, tokens.ErrWrongRawTx)
}

func TestGetAddress(t *testing.T) {
	srv := newSignerServer(t, func(req *rpcRequest) interface{} {
		assert.Equal(t, methodGetAddress, req.Method)
		return &AddressResult{Status: statusSuccess, Address: "0x2222222222222222222222222222222222222222"}
	})
	defer srv.Close()

	addr, err := NewClient(srv.URL).GetAddress("ethereum")
	require.NoError(t, err)
	assert.Equal(t, "0x2222222222222222222222222222222222222222", addr)
}
