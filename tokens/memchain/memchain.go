// Package memchain is an in-memory chain adapter for tests and dry runs.
package memchain

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/anyswap/CrossChain-HTLC/tokens"
	"github.com/anyswap/CrossChain-HTLC/types"
)

// ErrUnavailable simulated rpc failure
var ErrUnavailable = errors.New("memchain unavailable")

var _ tokens.ChainAdapter = (*Chain)(nil)

// Chain in-memory ledger
type Chain struct {
	name   string
	family types.ChainFamily

	mu        sync.Mutex
	height    uint64
	events    []*types.EscrowEvent
	escrows   map[string]*tokens.EscrowState
	submitted []*tokens.EscrowTx
	down      bool
}

// New new chain
func New(name string, family types.ChainFamily) *Chain {
	return &Chain{
		name:    name,
		family:  family,
		escrows: make(map[string]*tokens.EscrowState),
	}
}

// ChainName chain name
func (c *Chain) ChainName() string { return c.name }

// Family chain family
func (c *Chain) Family() types.ChainFamily { return c.family }

// SetDown make every call fail
func (c *Chain) SetDown(down bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.down = down
}

// Mine advance height by n blocks
func (c *Chain) Mine(n uint64) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height += n
	return c.height
}

// AddEvent record event at the next block and return its height
func (c *Chain) AddEvent(ev *types.EscrowEvent) uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.height++
	cpy := *ev
	cpy.Chain = c.name
	cpy.Height = c.height
	if cpy.TxHash == "" {
		cpy.TxHash = fmt.Sprintf("%v-tx-%d", c.name, c.height)
	}
	c.events = append(c.events, &cpy)

	if cpy.Escrow != "" {
		state, exist := c.escrows[cpy.Escrow]
		if !exist {
			state = &tokens.EscrowState{Address: cpy.Escrow}
			c.escrows[cpy.Escrow] = state
		}
		switch cpy.Kind {
		case types.EscrowCreated:
			state.Deployed = true
			state.Balance = cpy.Amount
		case types.EscrowWithdrawn:
			state.Withdrawn = true
		case types.EscrowCancelled:
			state.Cancelled = true
		}
	}
	return c.height
}

// Submitted submitted transactions
func (c *Chain) Submitted() []*tokens.EscrowTx {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]*tokens.EscrowTx(nil), c.submitted...)
}

// GetCurrentHeight implements tokens.ChainAdapter
func (c *Chain) GetCurrentHeight(ctx context.Context) (uint64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return 0, ErrUnavailable
	}
	return c.height, nil
}

// GetEventsInRange implements tokens.ChainAdapter
func (c *Chain) GetEventsInRange(ctx context.Context, from, to uint64) ([]*types.EscrowEvent, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, ErrUnavailable
	}
	var result []*types.EscrowEvent
	for _, ev := range c.events {
		if ev.Height >= from && ev.Height <= to {
			cpy := *ev
			result = append(result, &cpy)
		}
	}
	return result, nil
}

// Submit implements tokens.ChainAdapter
func (c *Chain) Submit(ctx context.Context, tx *tokens.EscrowTx) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return "", ErrUnavailable
	}
	c.submitted = append(c.submitted, tx)
	return fmt.Sprintf("%v-submit-%d", c.name, len(c.submitted)), nil
}

// QueryEscrow implements tokens.ChainAdapter
func (c *Chain) QueryEscrow(ctx context.Context, address string) (*tokens.EscrowState, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.down {
		return nil, ErrUnavailable
	}
	state, exist := c.escrows[address]
	if !exist {
		return &tokens.EscrowState{Address: address}, nil
	}
	cpy := *state
	return &cpy, nil
}
