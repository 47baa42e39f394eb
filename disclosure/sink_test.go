package disclosure

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/types"
)

func testPayload() *types.DisclosurePayload {
	return &types.DisclosurePayload{
		OrderID:      "order-1",
		Secret:       "0x01",
		Hashlock:     "0x02",
		SrcChain:     "ethereum",
		DstChain:     "cardano",
		Reason:       types.ReasonGracePeriodExpired,
		RewardPolicy: types.RewardPolicyFirstPublicActor,
	}
}

func TestMemorySinkIsContentAddressed(t *testing.T) {
	sink := NewMemorySink()
	ref1, err := sink.Publish(testPayload())
	require.NoError(t, err)
	ref2, err := sink.Publish(testPayload())
	require.NoError(t, err)
	assert.Equal(t, ref1, ref2)
	assert.Equal(t, 1, sink.Len())
	assert.Equal(t, 2, sink.Calls())

	payload, ok := sink.Get(ref1)
	require.True(t, ok)
	assert.Equal(t, "order-1", payload.OrderID)

	sink.FailNext(1)
	_, err = sink.Publish(testPayload())
	assert.ErrorIs(t, err, ErrPublishFailed)
}

func TestIPFSSinkPublish(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v0/add", r.URL.Path)
		assert.Equal(t, "true", r.URL.Query().Get("pin"))
		file, _, err := r.FormFile("file")
		require.NoError(t, err)
		body, _ := io.ReadAll(file)
		assert.Contains(t, string(body), `"orderId":"order-1"`)
		_, _ = w.Write([]byte(`{"Name":"order-1.json","Hash":"bafytestcid","Size":"120"}`))
	}))
	defer server.Close()

	sink := NewIPFSSink(&params.DisclosureConfig{IPFSAPI: server.URL, Timeout: 5})
	ref, err := sink.Publish(testPayload())
	require.NoError(t, err)
	assert.Equal(t, "ipfs://bafytestcid", ref)
}

func TestIPFSSinkError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	sink := NewIPFSSink(&params.DisclosureConfig{IPFSAPI: server.URL, Timeout: 5})
	sink.client.SetRetryCount(0)
	_, err := sink.Publish(testPayload())
	assert.ErrorIs(t, err, ErrPublishFailed)
}
