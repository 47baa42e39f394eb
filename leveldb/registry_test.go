package leveldb

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anyswap/CrossChain-HTLC/registry"
	"github.com/anyswap/CrossChain-HTLC/registry/registrytest"
	"github.com/anyswap/CrossChain-HTLC/types"
)

func newTestRegistry(t *testing.T) *Registry {
	db, err := NewMemory()
	require.NoError(t, err)
	reg := NewRegistry(db)
	t.Cleanup(func() { _ = reg.Close() })
	return reg
}

func TestRegistryContract(t *testing.T) {
	registrytest.Run(t, func(t *testing.T) registry.Registry {
		return newTestRegistry(t)
	})
}

func TestIndexKeepsWholeOrderID(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.CreateSwap(registrytest.NewRecord("a/b", 5000, 8000)))
	require.NoError(t, reg.CreateSwap(registrytest.NewRecord("b", 5100, 8100)))

	active, err := reg.FindActiveSwaps()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/b", "b"}, registrytest.OrderIDs(active))

	pending, err := reg.FindSwapsByStatus(types.StatusPending)
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a/b", "b"}, registrytest.OrderIDs(pending))

	cancellable, err := reg.FindByCancelAfter(0, 8001)
	require.NoError(t, err)
	assert.Equal(t, []string{"a/b"}, registrytest.OrderIDs(cancellable))

	userDue, err := reg.FindByUserDeadline(5050, 6000)
	require.NoError(t, err)
	assert.Equal(t, []string{"b"}, registrytest.OrderIDs(userDue))
}

func TestRangeQueriesAreOrderedByDeadline(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.CreateSwap(registrytest.NewRecord("z", 2000, 4000)))
	require.NoError(t, reg.CreateSwap(registrytest.NewRecord("a", 3000, 5000)))

	past, err := registry.FindPastUserDeadline(reg, 3000)
	require.NoError(t, err)
	assert.Equal(t, []string{"z", "a"}, registrytest.OrderIDs(past))
}

func TestStatusIndexFollowsUpdates(t *testing.T) {
	reg := newTestRegistry(t)
	require.NoError(t, reg.CreateSwap(registrytest.NewRecord("o1", 5000, 8000)))
	require.NoError(t, registry.UpdateStatus(reg, "o1", types.StatusPending, types.StatusAwaitingSecret, "", 1100))

	pending, err := reg.FindSwapsByStatus(types.StatusPending)
	require.NoError(t, err)
	assert.Empty(t, pending)

	awaiting, err := registry.FindAwaitingSecret(reg)
	require.NoError(t, err)
	assert.Equal(t, []string{"o1"}, registrytest.OrderIDs(awaiting))
}
