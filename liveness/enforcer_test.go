package liveness_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/common"
	"github.com/anyswap/CrossChain-HTLC/disclosure"
	"github.com/anyswap/CrossChain-HTLC/events"
	"github.com/anyswap/CrossChain-HTLC/leveldb"
	"github.com/anyswap/CrossChain-HTLC/liveness"
	"github.com/anyswap/CrossChain-HTLC/mediator"
	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/types"
)

const (
	start    = int64(1700000000)
	holdTime = int64(300)
	resolver = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"
)

type env struct {
	now       int64
	reg       registry.Registry
	bus       *events.Bus
	sink      *disclosure.MemorySink
	enforcer  *liveness.Enforcer
	mediator  *mediator.Mediator
	secret    string
	hashlock  string
	published <-chan events.Event
}

func newEnv(t *testing.T) *env {
	db, err := leveldb.NewMemory()
	require.NoError(t, err)
	reg := leveldb.NewRegistry(db)
	t.Cleanup(func() { _ = reg.Close() })

	secret := make([]byte, common.HashLength)
	secret[7] = 7
	e := &env{
		now:      start,
		reg:      reg,
		bus:      events.NewBus(),
		sink:     disclosure.NewMemorySink(),
		secret:   common.ToHex(secret),
		hashlock: common.ToHex(common.Keccak256(secret)),
	}
	clock := func() int64 { return e.now }
	e.published = e.bus.Subscribe(16, events.TopicSecretPublished)
	e.enforcer = liveness.NewEnforcer(reg, e.sink, e.bus, holdTime, common.HashKeccak256)
	e.enforcer.SetClock(clock)
	e.mediator = mediator.New(reg, e.bus, holdTime, common.HashKeccak256)
	e.mediator.SetClock(clock)
	e.mediator.SetDiscloser(e.enforcer)
	e.enforcer.SetRevealer(e.mediator)
	return e
}

// createSwap with the user deadline userDeadlineIn seconds from now
func (e *env) createSwap(t *testing.T, orderID string, userDeadlineIn int64) {
	rec := &types.SwapRecord{
		ID:           "id-" + orderID,
		OrderID:      orderID,
		SrcChain:     "ethereum",
		DstChain:     "cardano",
		Hashlock:     e.hashlock,
		UserDeadline: e.now + userDeadlineIn,
		CancelAfter:  e.now + userDeadlineIn + 1800,
		Status:       types.StatusPending,
		CreatedAt:    e.now,
		UpdatedAt:    e.now,
	}
	require.NoError(t, e.reg.CreateSwap(rec))
	require.NoError(t, e.mediator.RequestSecret(orderID))
	require.NoError(t, e.mediator.ProvideSecret(orderID, e.secret))
}

func (e *env) share(t *testing.T, orderID string) {
	_, err := e.mediator.HandleResolverReady(orderID, resolver)
	require.NoError(t, err)
}

func (e *env) get(t *testing.T, orderID string) *types.SwapRecord {
	rec, err := e.reg.GetSwap(orderID)
	require.NoError(t, err)
	return rec
}

func (e *env) nextPublished(t *testing.T) *events.SecretPublished {
	require.Len(t, e.published, 1)
	return (<-e.published).Payload.(*events.SecretPublished)
}

func TestScanRevealsGraceExpired(t *testing.T) {
	e := newEnv(t)
	e.createSwap(t, "o1", 7200)
	e.share(t, "o1")

	e.now += holdTime - 1
	require.NoError(t, e.enforcer.Scan())
	assert.Equal(t, types.StatusSecretShared, e.get(t, "o1").Status)

	e.now++
	require.NoError(t, e.enforcer.Scan())
	rec := e.get(t, "o1")
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.Equal(t, types.ResolutionPublicDisclosure, rec.Resolution)
	assert.Equal(t, types.ReasonGracePeriodExpired, e.nextPublished(t).Payload.Reason)

	// the mediator timer firing afterwards is a no-op
	e.mediator.FireDueTimers()
	require.NoError(t, e.enforcer.Scan())
	assert.Len(t, e.published, 0)
}

func TestUserDeadlineTakesPriority(t *testing.T) {
	e := newEnv(t)
	e.createSwap(t, "o1", 100)
	e.share(t, "o1")

	// grace expiry and user deadline both due in the same scan
	e.now += holdTime
	require.NoError(t, e.enforcer.Scan())

	ev := e.nextPublished(t)
	assert.Equal(t, types.ReasonUserDeadlinePassed, ev.Payload.Reason)
	assert.Equal(t, "o1", ev.Payload.OrderID)
	assert.Equal(t, e.hashlock, ev.Payload.Hashlock)
	assert.Equal(t, types.StatusCompleted, e.get(t, "o1").Status)
}

func TestHeldSecretRevealedAtUserDeadline(t *testing.T) {
	e := newEnv(t)
	// secret held but no resolver ever showed up
	e.createSwap(t, "o1", 600)

	e.now += 600
	require.NoError(t, e.enforcer.Scan())

	rec := e.get(t, "o1")
	assert.Equal(t, types.StatusCompleted, rec.Status)
	assert.Equal(t, e.secret, rec.Secret)
	assert.Equal(t, types.ReasonUserDeadlinePassed, e.nextPublished(t).Payload.Reason)
}

func TestNoRevealWithoutSecret(t *testing.T) {
	e := newEnv(t)
	rec := &types.SwapRecord{
		OrderID:      "o2",
		Hashlock:     e.hashlock,
		UserDeadline: e.now + 10,
		CancelAfter:  e.now + 1810,
		Status:       types.StatusPending,
	}
	require.NoError(t, e.reg.CreateSwap(rec))

	e.now += 100
	require.NoError(t, e.enforcer.Scan())
	assert.Equal(t, types.StatusPending, e.get(t, "o2").Status)
	assert.Equal(t, 0, e.sink.Calls())
}

func TestSinkFailureIsRetried(t *testing.T) {
	e := newEnv(t)
	e.createSwap(t, "o1", 7200)
	e.share(t, "o1")

	e.now += holdTime
	e.sink.FailNext(1)
	assert.Error(t, e.enforcer.Scan())
	assert.Equal(t, types.StatusSecretShared, e.get(t, "o1").Status)
	assert.Len(t, e.published, 0)

	e.now++
	require.NoError(t, e.enforcer.Scan())
	assert.Equal(t, types.StatusCompleted, e.get(t, "o1").Status)
	e.nextPublished(t)
}

func TestPublishIsIdempotent(t *testing.T) {
	e := newEnv(t)
	e.createSwap(t, "o1", 7200)
	e.share(t, "o1")

	require.NoError(t, e.enforcer.PublishSecretPublicly("o1", e.secret, types.ReasonManual))
	ref := e.get(t, "o1").DisclosureRef
	require.NoError(t, e.enforcer.PublishSecretPublicly("o1", e.secret, types.ReasonManual))
	require.NoError(t, e.mediator.ForceRevealSecret("o1", types.ReasonManual))

	e.nextPublished(t)
	assert.Equal(t, ref, e.get(t, "o1").DisclosureRef)
	assert.Equal(t, 1, e.sink.Len())
}

func TestPublishRejectsWrongSecret(t *testing.T) {
	e := newEnv(t)
	e.createSwap(t, "o1", 7200)
	e.share(t, "o1")

	err := e.enforcer.PublishSecretPublicly("o1", common.ToHex(make([]byte, 32)), types.ReasonManual)
	assert.ErrorIs(t, err, types.ErrSecretMismatch)
	assert.Equal(t, 0, e.sink.Calls())
}

func TestConcurrentRevealAndCancelStayTerminal(t *testing.T) {
	for i := 0; i < 20; i++ {
		e := newEnv(t)
		e.createSwap(t, "o1", 7200)
		e.share(t, "o1")

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			_ = e.mediator.ForceRevealSecret("o1", types.ReasonManual)
		}()
		go func() {
			defer wg.Done()
			_ = registry.UpdateStatus(e.reg, "o1", types.StatusSecretShared, types.StatusCancelled, types.ResolutionPublicCancel, e.now)
		}()
		wg.Wait()

		rec := e.get(t, "o1")
		require.True(t, rec.Status.IsTerminal())
		for _, status := range types.ActiveStatuses {
			err := registry.UpdateStatus(e.reg, "o1", status, types.StatusSecretShared, "", e.now)
			assert.Error(t, err)
			assert.Error(t, types.CheckTransition(rec.Status, status))
		}
		assert.Equal(t, rec.Status, e.get(t, "o1").Status)
		if rec.Status == types.StatusCompleted {
			assert.Len(t, e.published, 1)
		} else {
			assert.Len(t, e.published, 0)
		}
	}
}

func TestHandleRevealRequired(t *testing.T) {
	e := newEnv(t)
	e.createSwap(t, "o1", 7200)
	e.share(t, "o1")

	require.NoError(t, e.enforcer.HandleRevealRequired(&events.SecretRevealRequired{
		OrderID: "o1", Urgency: types.UrgencyNormal, Reason: types.ReasonUserDeadlinePassed,
	}))
	assert.Equal(t, types.StatusSecretShared, e.get(t, "o1").Status)

	require.NoError(t, e.enforcer.HandleRevealRequired(&events.SecretRevealRequired{
		OrderID: "o1", Urgency: types.UrgencyHigh, Reason: types.ReasonUserDeadlinePassed,
	}))
	assert.Equal(t, types.StatusCompleted, e.get(t, "o1").Status)
}
