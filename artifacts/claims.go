package artifacts

import "sync"

// Claims marks tokens that someone is working on. The download handler and
// the sweeper share one Claims so an artifact is never served and reclaimed
// at the same time.
type Claims struct {
	mu   sync.Mutex
	busy map[string]struct{}
}

// NewClaims returns an empty claim set.
func NewClaims() *Claims {
	return &Claims{busy: make(map[string]struct{})}
}

// Claim marks token busy. It reports false when token is already claimed.
func (c *Claims) Claim(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, held := c.busy[token]; held {
		return false
	}
	c.busy[token] = struct{}{}
	return true
}

// Release clears a claim taken with Claim.
func (c *Claims) Release(token string) {
	c.mu.Lock()
	delete(c.busy, token)
	c.mu.Unlock()
}
