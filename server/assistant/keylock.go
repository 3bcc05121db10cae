package assistant

import (
	"sync"
)

// keyedLocks serializes work per session key. Entries are reference
// counted so the map does not grow with the lifetime union of all keys.
type keyedLocks struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	mu   sync.Mutex
	refs int
}

func newKeyedLocks() *keyedLocks {
	return &keyedLocks{
		locks: make(map[string]*keyLock),
	}
}

// acquire blocks until the key's lock is held and returns the release func.
func (k *keyedLocks) acquire(key string) func() {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	l.mu.Lock()
	return func() { k.release(key, l) }
}

// tryAcquire attempts the key's lock without blocking. It returns the
// release func and whether the lock was taken. The sweeper uses this so
// expiry never interrupts an in-flight turn.
func (k *keyedLocks) tryAcquire(key string) (func(), bool) {
	k.mu.Lock()
	l, ok := k.locks[key]
	if !ok {
		l = &keyLock{}
		k.locks[key] = l
	}
	l.refs++
	k.mu.Unlock()

	if !l.mu.TryLock() {
		k.mu.Lock()
		l.refs--
		if l.refs == 0 {
			delete(k.locks, key)
		}
		k.mu.Unlock()
		return nil, false
	}
	return func() { k.release(key, l) }, true
}

func (k *keyedLocks) release(key string, l *keyLock) {
	l.mu.Unlock()

	k.mu.Lock()
	l.refs--
	if l.refs == 0 {
		delete(k.locks, key)
	}
	k.mu.Unlock()
}
