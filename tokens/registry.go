package tokens

import (
	"fmt"
	"sort"
	"sync"
)

// Adapters chain name to adapter
type Adapters struct {
	mu       sync.RWMutex
	adapters map[string]ChainAdapter
}

// NewAdapters new adapter set
func NewAdapters(adapters ...ChainAdapter) *Adapters {
	a := &Adapters{adapters: make(map[string]ChainAdapter)}
	for _, adapter := range adapters {
		a.Add(adapter)
	}
	return a
}

// Add add adapter
func (a *Adapters) Add(adapter ChainAdapter) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.adapters[adapter.ChainName()] = adapter
}

// Get adapter of chain
func (a *Adapters) Get(chain string) (ChainAdapter, error) {
	a.mu.RLock()
	defer a.mu.RUnlock()
	adapter, exist := a.adapters[chain]
	if !exist {
		return nil, fmt.Errorf("%w: %v", ErrNoAdapterForChain, chain)
	}
	return adapter, nil
}

// Chains sorted chain names
func (a *Adapters) Chains() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	chains := make([]string, 0, len(a.adapters))
	for chain := range a.adapters {
		chains = append(chains, chain)
	}
	sort.Strings(chains)
	return chains
}
