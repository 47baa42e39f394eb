package worker

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/leveldb"
	"github.com/anyswap/CrossChain-HTLC/liveness"
	"github.com/anyswap/CrossChain-HTLC/mediator"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/tokens/memchain"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	testStart       = int64(1700000000)
	testHoldTime    = int64(300)
	testAlertWindow = int64(300)
	testResolver    = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
	testConfirms    = uint64(2)
)

type clock struct{ t int64 }

func (c *clock) now() int64 { return c.t }

type fixture struct {
	clock    *clock
	reg      registry.Registry
	bus      *events.Bus
	sink     *disclosure.MemorySink
	enforcer *liveness.Enforcer
	mediator *mediator.Mediator
	timeout  *TimeoutMonitor
	monitor  *ChainMonitor
	eth      *memchain.Chain
	ada      *memchain.Chain
	secret   string
	hashlock string
}

func newFixture(t *testing.T) *fixture {
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	reg := leveldb.NewRegistry(db)
	t.Cleanup(func() { _ = reg.Close() })

	secret := make([]byte, common.HashLength)
	secret[0], secret[31] = 0x12, 0x34

	f := &fixture{
		clock:    &clock{t: testStart},
		reg:      reg,
		bus:      events.NewBus(),
		sink:     disclosure.NewMemorySink(),
		eth:      memchain.New("ethereum", types.FamilyEVM),
		ada:      memchain.New("cardano", types.FamilyUTXO),
		secret:   common.ToHex(secret),
		hashlock: common.ToHex(common.Keccak256(secret)),
	}

	f.enforcer = liveness.NewEnforcer(reg, f.sink, f.bus, testHoldTime, common.HashKeccak256)
	f.enforcer.SetClock(f.clock.now)
	f.mediator = mediator.New(reg, f.bus, testHoldTime, common.HashKeccak256)
	f.mediator.SetClock(f.clock.now)
	f.mediator.SetDiscloser(f.enforcer)
	f.enforcer.SetRevealer(f.mediator)

	f.timeout = NewTimeoutMonitor(reg, f.bus, f.mediator, testAlertWindow)
	f.timeout.SetClock(f.clock.now)

	f.monitor = NewChainMonitor(reg, f.bus, f.mediator, common.HashKeccak256)
	f.monitor.SetClock(f.clock.now)
	opts := ScanOptions{Confirmations: testConfirms, MaxScanRange: 10, StartHeight: 1}
	f.monitor.AddChain(f.eth, opts)
	f.monitor.AddChain(f.ada, opts)
	return f
}

func (f *fixture) createSwap(t *testing.T, orderID string) {
	p := &types.SwapParams{
		OrderID:      orderID,
		SrcChain:     "ethereum",
		DstChain:     "cardano",
		SrcAmount:    "1000",
		DstAmount:    "2000",
		Hashlock:     f.hashlock,
		UserDeadline: f.clock.t + 7200,
		CancelAfter:  f.clock.t + 10800,
	}
	require.NoError(t, f.reg.CreateSwap(p.ToRecord("id-"+orderID, f.clock.t)))
}

func (f *fixture) get(t *testing.T, orderID string) *types.SwapRecord {
	rec, err := f.reg.GetSwap(orderID)
	require.NoError(t, err)
	return rec
}

func drain(ch <-chan events.Event) []events.Event {
	var evs []events.Event
	for {
		select {
		case ev := <-ch:
			evs = append(evs, ev)
		default:
			return evs
		}
	}
}
