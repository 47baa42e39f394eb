package orchestrator

import (
	"context"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/leveldb"
	"github.com/anyswap/CrossChain-HTLC/params"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/tokens/memchain"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	testResolver = "0x2222222222222222222222222222222222222222"
	testSecret   = "0x1111111111111111111111111111111111111111111111111111111111111111"
	srcEscrow    = "0xaaaa000000000000000000000000000000000001"
	dstEscrow    = "addr_test1escrowdst"
)

type fakeBuilder struct {
	mu    sync.Mutex
	built []*types.SwapRecord
}

func (b *fakeBuilder) BuildEscrowTx(chain string, action tokens.EscrowAction, swap *types.SwapRecord) (*tokens.EscrowTx, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.built = append(b.built, swap)
	return &tokens.EscrowTx{Action: action, OrderID: swap.OrderID, Raw: []byte(chain + ":" + string(action))}, nil
}

type fakeNotifier struct {
	calls  int
	secret string
}

func (n *fakeNotifier) HandleResolverReady(orderID, resolver string) (string, error) {
	n.calls++
	return n.secret, nil
}

type fixture struct {
	reg      registry.Registry
	src, dst *memchain.Chain
	builder  *fakeBuilder
	notifier *fakeNotifier
	orch     *Orchestrator
	now      int64
}

func newFixture(t *testing.T) *fixture {
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	f := &fixture{
		reg:      leveldb.NewRegistry(db),
		src:      memchain.New("ethereum", types.FamilyEVM),
		dst:      memchain.New("cardano", types.FamilyUTXO),
		builder:  &fakeBuilder{},
		notifier: &fakeNotifier{secret: testSecret},
		now:      1700000000,
	}
	t.Cleanup(func() { _ = f.reg.Close() })
	f.orch = New(f.reg, tokens.NewAdapters(f.src, f.dst), f.builder, f.notifier, &params.ResolverConfig{
		Enable:       true,
		Address:      testResolver,
		MinProfitBps: 50,
		QuoteRates:   map[string]string{"ethereum/cardano": "2"},
	})
	f.orch.SetClock(func() int64 { return f.now })
	return f
}

func (f *fixture) createSwap(t *testing.T, orderID, dstAmount string) {
	rec := &types.SwapRecord{
		ID:           "id-" + orderID,
		OrderID:      orderID,
		SrcChain:     "ethereum",
		DstChain:     "cardano",
		SrcAmount:    "100",
		DstAmount:    dstAmount,
		Hashlock:     "0xhash",
		UserDeadline: f.now + 7200,
		CancelAfter:  f.now + 10800,
		Status:       types.StatusAwaitingSecret,
		CreatedAt:    f.now,
		UpdatedAt:    f.now,
	}
	require.NoError(t, f.reg.CreateSwap(rec))
}

func (f *fixture) observeEscrow(t *testing.T, chain *memchain.Chain, orderID string, leg types.SwapLeg, escrow string) {
	chain.AddEvent(&types.EscrowEvent{Kind: types.EscrowCreated, OrderID: orderID, Escrow: escrow, Amount: "100"})
	require.NoError(t, f.reg.SetEscrow(orderID, leg, escrow, f.now))
}

func TestProfitBps(t *testing.T) {
	bps, err := ProfitBps("100", "190", "2")
	require.NoError(t, err)
	assert.Equal(t, "526.32", bps.StringFixed(2))

	bps, err = ProfitBps("100", "200", "2")
	require.NoError(t, err)
	assert.True(t, bps.IsZero())

	_, err = ProfitBps("100", "0", "2")
	assert.ErrorIs(t, err, types.ErrInvalidArgument)
	_, err = ProfitBps("abc", "1", "2")
	assert.Error(t, err)
}

func TestUnprofitableSwapIsSkipped(t *testing.T) {
	f := newFixture(t)
	f.createSwap(t, "order-cheap", "199.5")

	require.NoError(t, f.orch.Step(context.Background()))
	_, planned := f.orch.GetPlan("order-cheap")
	assert.False(t, planned)
	assert.Empty(t, f.src.Submitted())
}

func TestDeployThenWithdrawBothLegs(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.createSwap(t, "order-1", "190")

	require.NoError(t, f.orch.Step(ctx))
	plan, ok := f.orch.GetPlan("order-1")
	require.True(t, ok)
	assert.Equal(t, LegDeploying, plan.Src.Status)
	assert.Equal(t, LegIdle, plan.Dst.Status)
	require.Len(t, f.src.Submitted(), 1)
	assert.Empty(t, f.dst.Submitted())

	f.observeEscrow(t, f.src, "order-1", types.LegSource, srcEscrow)
	require.NoError(t, f.orch.Step(ctx))
	plan, _ = f.orch.GetPlan("order-1")
	assert.Equal(t, LegDeployed, plan.Src.Status)
	assert.Equal(t, LegDeploying, plan.Dst.Status)
	assert.Zero(t, f.notifier.calls)

	f.observeEscrow(t, f.dst, "order-1", types.LegDestination, dstEscrow)
	require.NoError(t, f.orch.Step(ctx))
	plan, _ = f.orch.GetPlan("order-1")
	assert.True(t, plan.Ready)
	assert.Equal(t, 1, f.notifier.calls)

	require.NoError(t, f.orch.Step(ctx))
	plan, _ = f.orch.GetPlan("order-1")
	assert.Equal(t, LegWithdrawing, plan.Src.Status)
	assert.Equal(t, LegWithdrawing, plan.Dst.Status)
	require.Len(t, f.src.Submitted(), 2)
	assert.Equal(t, tokens.ActionWithdraw, f.src.Submitted()[1].Action)
	last := f.builder.built[len(f.builder.built)-1]
	assert.Equal(t, testSecret, last.Secret)

	// legs settle in either order
	f.dst.AddEvent(&types.EscrowEvent{Kind: types.EscrowWithdrawn, OrderID: "order-1", Escrow: dstEscrow})
	require.NoError(t, f.orch.Step(ctx))
	plan, ok = f.orch.GetPlan("order-1")
	require.True(t, ok)
	assert.Equal(t, LegWithdrawn, plan.Dst.Status)
	assert.False(t, plan.IsResolved())

	f.src.AddEvent(&types.EscrowEvent{Kind: types.EscrowWithdrawn, OrderID: "order-1", Escrow: srcEscrow})
	require.NoError(t, f.orch.Step(ctx))
	_, ok = f.orch.GetPlan("order-1")
	assert.False(t, ok)
	assert.Equal(t, 1, f.notifier.calls)
}

func TestRefundOnlyDeployedLeg(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.secret = ""
	f.createSwap(t, "order-2", "190")

	require.NoError(t, f.orch.Step(ctx))
	f.observeEscrow(t, f.src, "order-2", types.LegSource, srcEscrow)

	// destination deploy fails, the swap then runs out of time
	f.dst.SetDown(true)
	assert.Error(t, f.orch.Step(ctx))
	f.dst.SetDown(false)

	f.now += 10800
	require.NoError(t, registry.UpdateStatus(f.reg, "order-2", types.StatusAwaitingSecret, types.StatusExpired, types.ResolutionExpiredUnfunded, f.now))

	submittedDst := len(f.dst.Submitted())
	require.NoError(t, f.orch.Step(ctx))
	plan, ok := f.orch.GetPlan("order-2")
	require.True(t, ok)
	assert.Equal(t, LegRefunding, plan.Src.Status)
	assert.Equal(t, LegSkipped, plan.Dst.Status)
	src := f.src.Submitted()
	assert.Equal(t, tokens.ActionCancel, src[len(src)-1].Action)
	assert.Equal(t, submittedDst, len(f.dst.Submitted()))

	f.src.AddEvent(&types.EscrowEvent{Kind: types.EscrowCancelled, OrderID: "order-2", Escrow: srcEscrow})
	require.NoError(t, f.orch.Step(ctx))
	_, ok = f.orch.GetPlan("order-2")
	assert.False(t, ok)
}

func TestRecoverSharedSwap(t *testing.T) {
	f := newFixture(t)
	f.createSwap(t, "order-3", "190")
	require.NoError(t, registry.SetSecret(f.reg, "order-3", testSecret, testResolver, f.now))

	f.orch.rejected.Add("order-3")
	require.NoError(t, f.orch.discover())
	plan, ok := f.orch.GetPlan("order-3")
	require.True(t, ok)
	assert.True(t, plan.Ready)
	assert.Equal(t, testSecret, plan.Secret)
}

func TestRefundDeployInFlightAtCancelAfter(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.notifier.secret = ""
	f.createSwap(t, "order-4", "190")

	require.NoError(t, f.orch.Step(ctx))
	plan, ok := f.orch.GetPlan("order-4")
	require.True(t, ok)
	require.Equal(t, LegDeploying, plan.Src.Status)

	// the source deploy is still unconfirmed when cancelAfter passes
	f.now += 10800
	require.NoError(t, f.orch.Step(ctx))
	plan, ok = f.orch.GetPlan("order-4")
	require.True(t, ok, "a leg with a deploy in flight keeps the plan open")
	assert.Equal(t, LegDeploying, plan.Src.Status)
	assert.Equal(t, LegSkipped, plan.Dst.Status)
	require.Len(t, f.src.Submitted(), 1)

	f.observeEscrow(t, f.src, "order-4", types.LegSource, srcEscrow)
	require.NoError(t, f.orch.Step(ctx))
	plan, ok = f.orch.GetPlan("order-4")
	require.True(t, ok)
	assert.Equal(t, LegRefunding, plan.Src.Status)
	src := f.src.Submitted()
	require.Len(t, src, 2)
	assert.Equal(t, tokens.ActionCancel, src[1].Action)
	assert.Empty(t, f.dst.Submitted())

	f.src.AddEvent(&types.EscrowEvent{Kind: types.EscrowCancelled, OrderID: "order-4", Escrow: srcEscrow})
	require.NoError(t, f.orch.Step(ctx))
	_, ok = f.orch.GetPlan("order-4")
	assert.False(t, ok)
}
