// Package registrytest runs the behaviour every registry backend shares.
package registrytest

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// NewRecord pending record with the given deadlines
func NewRecord(orderID string, userDeadline, cancelAfter int64) *types.SwapRecord {
	return &types.SwapRecord{
		ID:           "id-" + orderID,
		OrderID:      orderID,
		SrcChain:     "ethereum",
		DstChain:     "cardano",
		Hashlock:     "0x00",
		UserDeadline: userDeadline,
		CancelAfter:  cancelAfter,
		Status:       types.StatusPending,
		CreatedAt:    1000,
		UpdatedAt:    1000,
	}
}

// OrderIDs order ids of swaps
func OrderIDs(swaps []*types.SwapRecord) []string {
	ids := make([]string, 0, len(swaps))
	for _, swap := range swaps {
		ids = append(ids, swap.OrderID)
	}
	return ids
}

// Run run the shared cases, newRegistry must return an empty registry
func Run(t *testing.T, newRegistry func(t *testing.T) registry.Registry) {
	t.Run("CreateAndGet", func(t *testing.T) { testCreateAndGet(t, newRegistry(t)) })
	t.Run("StatusGuardedUpdate", func(t *testing.T) { testStatusGuardedUpdate(t, newRegistry(t)) })
	t.Run("RangeQueries", func(t *testing.T) { testRangeQueries(t, newRegistry(t)) })
	t.Run("GraceExpired", func(t *testing.T) { testGraceExpired(t, newRegistry(t)) })
	t.Run("EscrowAndCursor", func(t *testing.T) { testEscrowAndCursor(t, newRegistry(t)) })
}

func testCreateAndGet(t *testing.T, reg registry.Registry) {
	require.NoError(t, reg.CreateSwap(NewRecord("o1", 5000, 8000)))
	assert.ErrorIs(t, reg.CreateSwap(NewRecord("o1", 5000, 8000)), registry.ErrItemIsDup)

	rec, err := reg.GetSwap("o1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusPending, rec.Status)
	assert.Equal(t, int64(5000), rec.UserDeadline)
	assert.Equal(t, int64(8000), rec.CancelAfter)

	_, err = reg.GetSwap("missing")
	assert.True(t, registry.IsNotFound(err))
}

func testStatusGuardedUpdate(t *testing.T, reg registry.Registry) {
	require.NoError(t, reg.CreateSwap(NewRecord("o1", 5000, 8000)))
	require.NoError(t, registry.UpdateStatus(reg, "o1", types.StatusPending, types.StatusAwaitingSecret, "", 1100))

	err := registry.UpdateStatus(reg, "o1", types.StatusPending, types.StatusExpired, types.ResolutionExpiredUnfunded, 1200)
	assert.True(t, registry.IsStatusMismatch(err))

	rec, err := reg.GetSwap("o1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusAwaitingSecret, rec.Status)
	assert.Empty(t, rec.Resolution)
	assert.Equal(t, int64(1100), rec.UpdatedAt)

	require.NoError(t, registry.SetSecret(reg, "o1", "0xsecret", "0xresolver", 1300))
	rec, err = reg.GetSwap("o1")
	require.NoError(t, err)
	assert.Equal(t, types.StatusSecretShared, rec.Status)
	assert.Equal(t, "0xsecret", rec.Secret)
	assert.Equal(t, int64(1300), rec.SecretSharedAt)
	assert.Equal(t, "0xresolver", rec.Resolver)

	err = registry.UpdateStatus(reg, "missing", types.StatusPending, types.StatusExpired, "", 1400)
	assert.True(t, registry.IsNotFound(err))
}

func testRangeQueries(t *testing.T, reg registry.Registry) {
	require.NoError(t, reg.CreateSwap(NewRecord("a", 2000, 4000)))
	require.NoError(t, reg.CreateSwap(NewRecord("b", 3000, 5000)))
	require.NoError(t, reg.CreateSwap(NewRecord("c", 6000, 9000)))

	past, err := registry.FindPastUserDeadline(reg, 3000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a", "b"}, OrderIDs(past))

	past, err = registry.FindPastCancelDeadline(reg, 4999)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, OrderIDs(past))

	window, err := reg.FindByUserDeadline(3000, 6000)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, OrderIDs(window))

	require.NoError(t, registry.UpdateStatus(reg, "a", types.StatusPending, types.StatusExpired, types.ResolutionExpiredUnfunded, 4100))
	past, err = registry.FindPastCancelDeadline(reg, 10000)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, OrderIDs(past), "terminal swaps leave the deadline queries")

	active, err := reg.FindActiveSwaps()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"b", "c"}, OrderIDs(active))

	expired, err := reg.FindSwapsByStatus(types.StatusExpired)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, OrderIDs(expired))
}

func testGraceExpired(t *testing.T, reg registry.Registry) {
	require.NoError(t, reg.CreateSwap(NewRecord("a", 9000, 12000)))
	require.NoError(t, registry.UpdateStatus(reg, "a", types.StatusPending, types.StatusAwaitingSecret, "", 1000))
	require.NoError(t, registry.SetSecret(reg, "a", "0x01", "r", 1000))

	expired, err := registry.FindGraceExpired(reg, 1299, 300)
	require.NoError(t, err)
	assert.Empty(t, expired)

	expired, err = registry.FindGraceExpired(reg, 1300, 300)
	require.NoError(t, err)
	assert.Equal(t, []string{"a"}, OrderIDs(expired))

	require.NoError(t, registry.UpdateStatus(reg, "a", types.StatusSecretShared, types.StatusCompleted, types.ResolutionPublicDisclosure, 1400))
	expired, err = registry.FindGraceExpired(reg, 2000, 300)
	require.NoError(t, err)
	assert.Empty(t, expired)
}

func testEscrowAndCursor(t *testing.T, reg registry.Registry) {
	require.NoError(t, reg.CreateSwap(NewRecord("o1", 5000, 8000)))
	require.NoError(t, reg.SetEscrow("o1", types.LegSource, "0xsrc", 1100))
	require.NoError(t, reg.SetEscrow("o1", types.LegDestination, "addr_dst", 1200))
	assert.True(t, registry.IsNotFound(reg.SetEscrow("missing", types.LegSource, "0x", 1200)))

	rec, err := reg.GetSwap("o1")
	require.NoError(t, err)
	assert.Equal(t, "0xsrc", rec.SrcEscrow)
	assert.Equal(t, "addr_dst", rec.DstEscrow)
	assert.Equal(t, int64(1200), rec.UpdatedAt)

	cursor, err := reg.GetCursor("ethereum")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	require.NoError(t, reg.SetCursor(&types.ChainCursor{Chain: "ethereum", Height: 100, Timestamp: 1000}))
	require.NoError(t, reg.SetCursor(&types.ChainCursor{Chain: "ethereum", Height: 120, Timestamp: 1100}))
	cursor, err = reg.GetCursor("ethereum")
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Equal(t, uint64(120), cursor.Height)
	assert.Equal(t, int64(1100), cursor.Timestamp)
}
