package booking

import "sync"

// showLocks hands out one mutex per show id so that check-and-claim
// runs serialized for a given show while different shows never contend
// with each other. Entries are created on first use and kept for the
// process lifetime; show cardinality is small enough that eviction is
// not worth the bookkeeping.
type showLocks struct {
    mu sync.Mutex
    m  map[uint64]*sync.Mutex
}

func newShowLocks() *showLocks {
    return &showLocks{m: make(map[uint64]*sync.Mutex)}
}

// get returns the mutex for a show, creating it if needed. The caller
// is responsible for locking and unlocking it.
func (l *showLocks) get(showID uint64) *sync.Mutex {
    l.mu.Lock()
    defer l.mu.Unlock()
    m, ok := l.m[showID]
    if !ok {
        m = &sync.Mutex{}
        l.m[showID] = m
    }
    return m
}
