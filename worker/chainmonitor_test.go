package worker

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

func TestOnChainSecretRevealedBeforeOffChain(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createSwap(t, "o1")
	f.createSwap(t, "o2")

	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowSecretRevealed, OrderID: "o1", Secret: f.secret})
	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowSecretRevealed, OrderID: "o2", Secret: "0x" + f.secret[4:] + "ff"})
	f.eth.Mine(testConfirms)

	require.NoError(t, f.monitor.ScanChain(ctx, "ethereum"))

	// valid on-chain secret is taken exactly like one provided by the maker
	assert.Equal(t, types.StatusAwaitingSecret, f.get(t, "o1").Status)
	held, ok := f.mediator.HeldSecret("o1")
	require.True(t, ok)
	assert.Equal(t, f.secret, held)
	assert.Empty(t, f.get(t, "o1").Secret)

	// a secret not matching the hashlock is ignored
	assert.Equal(t, types.StatusPending, f.get(t, "o2").Status)
	_, ok = f.mediator.HeldSecret("o2")
	assert.False(t, ok)

	secret, err := f.mediator.HandleResolverReady("o1", testResolver)
	require.NoError(t, err)
	assert.Equal(t, f.secret, secret)
	assert.Equal(t, types.StatusSecretShared, f.get(t, "o1").Status)

	cursor, err := f.reg.GetCursor("ethereum")
	require.NoError(t, err)
	assert.Equal(t, uint64(2), cursor.Height)
}

func TestChainMonitorWaitsForConfirmations(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createSwap(t, "o1")

	f.ada.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: "o1", Escrow: "addr_test1escrow"})
	f.ada.Mine(testConfirms - 1)
	require.NoError(t, f.monitor.ScanChain(ctx, "cardano"))
	assert.Empty(t, f.get(t, "o1").DstEscrow)

	f.ada.Mine(1)
	require.NoError(t, f.monitor.ScanChain(ctx, "cardano"))
	assert.Equal(t, "addr_test1escrow", f.get(t, "o1").DstEscrow)
}

func TestChainMonitorSettlesAndDropsDuplicates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	observed := f.bus.Subscribe(16, events.TopicEscrowObserved)
	f.createSwap(t, "o1")
	f.createSwap(t, "o2")

	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: "o1", Escrow: "0xescrow1"})
	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowWithdrawn, OrderID: "o1", Escrow: "0xescrow1", Secret: f.secret})
	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowCancelled, OrderID: "o2", Escrow: "0xescrow2"})
	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: "unknown", Escrow: "0xescrow3"})
	f.eth.Mine(testConfirms)

	require.NoError(t, f.monitor.ScanChain(ctx, "ethereum"))
	assert.Len(t, drain(observed), 4)

	rec := f.get(t, "o1")
	assert.Equal(t, "0xescrow1", rec.SrcEscrow)
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.Equal(t, types.ResolutionResolverWithdrawal, rec.Resolution)
	assert.Equal(t, f.secret, rec.Secret)

	rec = f.get(t, "o2")
	assert.Equal(t, types.StatusCancelled, rec.Status)
	assert.Equal(t, types.ResolutionOnChainCancel, rec.Resolution)

	// rescanning the same range is idempotent
	require.NoError(t, f.reg.SetCursor(&types.ChainCursor{Chain: "ethereum", Height: 0}))
	require.NoError(t, f.monitor.ScanChain(ctx, "ethereum"))
	assert.Empty(t, drain(observed))
	assert.Equal(t, types.StatusCompleted, f.get(t, "o1").Status)
}

func TestChainMonitorKeepsCursorOnFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createSwap(t, "o1")
	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: "o1", Escrow: "0xescrow1"})
	f.eth.Mine(testConfirms)

	f.eth.SetDown(true)
	assert.Error(t, f.monitor.ScanChain(ctx, "ethereum"))
	cursor, err := f.reg.GetCursor("ethereum")
	require.NoError(t, err)
	assert.Nil(t, cursor)

	f.eth.SetDown(false)
	require.NoError(t, f.monitor.ScanChain(ctx, "ethereum"))
	assert.Equal(t, "0xescrow1", f.get(t, "o1").SrcEscrow)

	assert.Error(t, f.monitor.ScanChain(ctx, "bitcoin"))
}

var errStoreDown = errors.New("store unavailable")

type failingRegistry struct {
	registry.Registry
	failEscrowOf string
	failCursor   bool
}

func (r *failingRegistry) SetEscrow(orderID string, leg types.SwapLeg, escrow string, timestamp int64) error {
	if orderID == r.failEscrowOf {
		return errStoreDown
	}
	return r.Registry.SetEscrow(orderID, leg, escrow, timestamp)
}

func (r *failingRegistry) SetCursor(cursor *types.ChainCursor) error {
	if r.failCursor && cursor.Height > 0 {
		return errStoreDown
	}
	return r.Registry.SetCursor(cursor)
}

func TestChainMonitorCursorSaveFailureRescans(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createSwap(t, "o1")
	f.createSwap(t, "o2")

	reg := &failingRegistry{Registry: f.reg, failEscrowOf: "o2", failCursor: true}
	monitor := NewChainMonitor(reg, f.bus, f.mediator, common.HashKeccak256)
	monitor.SetClock(f.clock.now)
	monitor.AddChain(f.eth, ScanOptions{Confirmations: testConfirms, MaxScanRange: 100, StartHeight: 1})

	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: "o1", Escrow: "0xescrow1"})
	f.eth.Mine(3)
	f.eth.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: "o2", Escrow: "0xescrow2"})
	f.eth.Mine(testConfirms)

	err := monitor.ScanChain(ctx, "ethereum")
	require.Error(t, err)
	assert.ErrorIs(t, err, errStoreDown)
	assert.Equal(t, "0xescrow1", f.get(t, "o1").SrcEscrow)
	cursor, err := f.reg.GetCursor("ethereum")
	require.NoError(t, err)
	require.NotNil(t, cursor)
	assert.Zero(t, cursor.Height, "failed cursor save leaves the previous cursor")

	reg.failEscrowOf, reg.failCursor = "", false
	require.NoError(t, monitor.ScanChain(ctx, "ethereum"))
	assert.Equal(t, "0xescrow1", f.get(t, "o1").SrcEscrow)
	assert.Equal(t, "0xescrow2", f.get(t, "o2").SrcEscrow)
}
