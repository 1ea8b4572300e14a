package asset

import (
	"fmt"
	"sync"

	"github.com/ethereum/go-ethereum/common"
)

// Registry is a thread-safe directory of known tokens.
type Registry struct {
	byAddress map[common.Address]*Asset
	mu        sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byAddress: make(map[common.Address]*Asset),
	}
}

// Register adds a token. It panics if the address is already registered.
func (r *Registry) Register(a *Asset) {
	if a == nil {
		panic("asset: cannot register nil asset")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.byAddress[a.Address()]; exists {
		panic(fmt.Sprintf("asset: %s already registered", a.Address().Hex()))
	}
	r.byAddress[a.Address()] = a
}

// Get looks a token up by address.
func (r *Registry) Get(address common.Address) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byAddress[address]
	return a, ok
}

// Label is the token symbol, or an abbreviated address for unknown tokens.
func (r *Registry) Label(address common.Address) string {
	if a, ok := r.Get(address); ok {
		return a.Symbol()
	}
	return ShortAddress(address)
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byAddress)
}

// ShortAddress renders 0x1234…abcd.
func ShortAddress(address common.Address) string {
	h := address.Hex()
	return h[:6] + "…" + h[len(h)-4:]
}
