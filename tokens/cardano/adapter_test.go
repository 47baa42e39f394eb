package cardano

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const testScript = "addr_test1wzscript"

func newTestServer(t *testing.T) *httptest.Server {
	mux := http.NewServeMux()
	mux.HandleFunc("/blocks/latest", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-project", r.Header.Get("project_id"))
		_, _ = w.Write([]byte(`{"height": 4321}`))
	})
	mux.HandleFunc("/addresses/"+testScript+"/transactions", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "100", r.URL.Query().Get("from"))
		assert.Equal(t, "200", r.URL.Query().Get("to"))
		_, _ = w.Write([]byte(`[
			{"tx_hash":"tx1","tx_index":0,"block_height":150,"block_time":1700000000},
			{"tx_hash":"tx2","tx_index":1,"block_height":160,"block_time":1700000100},
			{"tx_hash":"tx3","tx_index":0,"block_height":170,"block_time":1700000200}]`))
	})
	mux.HandleFunc("/txs/tx1/metadata", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"1984","json_metadata":{"orderId":"0xorder","action":"created","escrow":"addr_test1wzescrow","amount":"2000000"}}]`))
	})
	mux.HandleFunc("/txs/tx2/metadata", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"label":"674","json_metadata":{"msg":["hello"]}},
			{"label":"1984","json_metadata":{"orderId":"0xorder","action":"withdrawn","secret":"0x0909","recipient":"addr_test1qrecipient","amount":"2000000"}}]`))
	})
	mux.HandleFunc("/txs/tx3/metadata", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})
	mux.HandleFunc("/tx/submit", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "application/cbor", r.Header.Get("Content-Type"))
		body, _ := io.ReadAll(r.Body)
		assert.Equal(t, []byte{0x84, 0xa4}, body)
		_ = json.NewEncoder(w).Encode("submittedhash")
	})
	mux.HandleFunc("/addresses/addr_test1wzescrow/utxos", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"tx_hash":"tx1","amount":[{"unit":"lovelace","quantity":"1500000"},{"unit":"abc","quantity":"1"}]},
			{"tx_hash":"tx4","amount":[{"unit":"lovelace","quantity":"500000"}]}]`))
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func newTestAdapter(t *testing.T) *Adapter {
	server := newTestServer(t)
	return NewAdapter(&params.ChainConfig{
		Name:          "cardano",
		Family:        "utxo",
		RPCAddress:    server.URL,
		ProjectID:     "test-project",
		ScriptAddress: testScript,
		MetadataLabel: "1984",
	})
}

func TestGetCurrentHeight(t *testing.T) {
	height, err := newTestAdapter(t).GetCurrentHeight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, uint64(4321), height)
}

func TestGetEventsInRange(t *testing.T) {
	evs, err := newTestAdapter(t).GetEventsInRange(context.Background(), 100, 200)
	require.NoError(t, err)
	require.Len(t, evs, 3)

	assert.Equal(t, types.EscrowCreated, evs[0].Kind)
	assert.Equal(t, "0xorder", evs[0].OrderID)
	assert.Equal(t, "addr_test1wzescrow", evs[0].Escrow)
	assert.Equal(t, uint64(150), evs[0].Height)
	assert.Equal(t, "cardano", evs[0].Chain)

	assert.Equal(t, types.EscrowSecretRevealed, evs[1].Kind)
	assert.Equal(t, "0x0909", evs[1].Secret)
	assert.Equal(t, types.EscrowWithdrawn, evs[2].Kind)
	assert.Equal(t, "addr_test1qrecipient", evs[2].Recipient)
}

func TestParseMetadataErrors(t *testing.T) {
	adapter := NewAdapter(&params.ChainConfig{Name: "cardano"})
	_, err := adapter.ParseMetadata(&EscrowMetadata{Action: "created"}, "tx", 0, 1)
	assert.ErrorIs(t, err, tokens.ErrWrongEscrowData)
	_, err = adapter.ParseMetadata(&EscrowMetadata{OrderID: "o", Action: "withdrawn"}, "tx", 0, 1)
	assert.ErrorIs(t, err, tokens.ErrWrongEscrowData)
	_, err = adapter.ParseMetadata(&EscrowMetadata{OrderID: "o", Action: "burned"}, "tx", 0, 1)
	assert.ErrorIs(t, err, tokens.ErrUnknownEscrowLog)
}

func TestSubmitAndQueryEscrow(t *testing.T) {
	adapter := newTestAdapter(t)
	txHash, err := adapter.Submit(context.Background(), &tokens.EscrowTx{Action: tokens.ActionCancel, OrderID: "o", Raw: []byte{0x84, 0xa4}})
	require.NoError(t, err)
	assert.Equal(t, "submittedhash", txHash)

	state, err := adapter.QueryEscrow(context.Background(), "addr_test1wzescrow")
	require.NoError(t, err)
	assert.True(t, state.Deployed)
	assert.Equal(t, "2000000", state.Balance)

	state, err = adapter.QueryEscrow(context.Background(), "addr_test1unknown")
	require.NoError(t, err)
	assert.False(t, state.Deployed)
}
