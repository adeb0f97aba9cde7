package service

import "sync"

// ScopeLocks serializes graph-mutating writes per scope. The cycle check and
// the insert it protects span multiple keys, so single-row locking in the
// store is not enough; every mutation of a scope's graph runs under that
// scope's mutex. Reads never touch these locks, and writes to different
// scopes proceed in parallel since the graphs are disjoint.
type ScopeLocks struct {
	locks sync.Map // scope id -> *sync.Mutex
}

func NewScopeLocks() *ScopeLocks {
	return &ScopeLocks{}
}

// Lock acquires the scope's mutex and returns the unlock function.
func (l *ScopeLocks) Lock(scopeID string) func() {
	v, _ := l.locks.LoadOrStore(scopeID, &sync.Mutex{})
	mu := v.(*sync.Mutex)
	mu.Lock()
	return mu.Unlock
}
