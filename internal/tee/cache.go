package tee

import (
	"sync"

	"github.com/btcsuite/btcd/btcec/v2"
)

// PublicKeyCache memoizes per-epoch public keys. It is an explicit object
// handed to the service, not package state, so tests run isolated.
type PublicKeyCache struct {
	mu   sync.RWMutex
	keys map[uint64]*btcec.PublicKey
}

func NewPublicKeyCache() *PublicKeyCache {
	return &PublicKeyCache{keys: make(map[uint64]*btcec.PublicKey)}
}

func (c *PublicKeyCache) Get(epoch uint64) (*btcec.PublicKey, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pub, ok := c.keys[epoch]
	return pub, ok
}

func (c *PublicKeyCache) Put(epoch uint64, pub *btcec.PublicKey) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.keys[epoch] = pub
}
