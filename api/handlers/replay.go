package handlers

import (
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common/lru"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/interfaces"
)

// replayCacheSize bounds the number of remembered nonces.
const replayCacheSize = 1 << 16

type nonceKey struct {
	signer interfaces.OwnerID
	nonce  string
}

// replayGuard remembers the (signer, nonce) pairs of authenticated requests
// for as long as their timestamps could still pass the skew check.
type replayGuard struct {
	mu   sync.Mutex
	seen lru.BasicLRU[nonceKey, time.Time]
}

func newReplayGuard() *replayGuard {
	return &replayGuard{seen: lru.NewBasicLRU[nonceKey, time.Time](replayCacheSize)}
}

// check records the pair and reports api.ErrReplayedRequest if it was
// already used.
func (g *replayGuard) check(signer interfaces.OwnerID, nonce string, now time.Time) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.expire(now)

	key := nonceKey{signer: signer, nonce: nonce}
	if g.seen.Contains(key) {
		return api.ErrReplayedRequest
	}
	g.seen.Add(key, now)
	return nil
}

// expire drops entries older than twice the allowed skew. Insertion order
// follows arrival, so the oldest entry is checked first.
func (g *replayGuard) expire(now time.Time) {
	for {
		_, seenAt, ok := g.seen.GetOldest()
		if !ok || now.Sub(seenAt) <= 2*api.MaxClockSkew {
			return
		}
		g.seen.RemoveOldest()
	}
}

func (g *replayGuard) size() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.seen.Len()
}
