package walletauth

import "sync"

// Session is one cached sign-in proof, keyed by wallet address.
type Session struct {
	Signature string `json:"signature"`
	Nonce     string `json:"nonce"`
	IssuedAt  string `json:"issuedAt"`
}

// SessionCache stores proofs across connect cycles.
type SessionCache interface {
	Get(walletAddress string) (Session, bool)
	Put(walletAddress string, s Session)
	Remove(walletAddress string)
}

// MemoryCache is the default in-process SessionCache.
type MemoryCache struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

// NewMemoryCache returns an empty cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{sessions: make(map[string]Session)}
}

func (c *MemoryCache) Get(walletAddress string) (Session, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.sessions[walletAddress]
	return s, ok
}

func (c *MemoryCache) Put(walletAddress string, s Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sessions[walletAddress] = s
}

func (c *MemoryCache) Remove(walletAddress string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.sessions, walletAddress)
}
