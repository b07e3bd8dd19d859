package registry

import (
	"sync"

	"github.com/ruteri/audit-registry/interfaces"
)

// addressLocks hands out one mutex per record address. Entries are dropped
// once no goroutine holds or waits on them.
type addressLocks struct {
	mu    sync.Mutex
	locks map[interfaces.RecordAddress]*addressLock
}

type addressLock struct {
	mu   sync.Mutex
	refs int
}

func newAddressLocks() *addressLocks {
	return &addressLocks{locks: make(map[interfaces.RecordAddress]*addressLock)}
}

// lock blocks until addr is exclusively held and returns the release func.
func (l *addressLocks) lock(addr interfaces.RecordAddress) func() {
	l.mu.Lock()
	entry, ok := l.locks[addr]
	if !ok {
		entry = &addressLock{}
		l.locks[addr] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, addr)
		}
		l.mu.Unlock()
	}
}

func (l *addressLocks) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}
