package locking

import "sync"

var _ Registry = (*Local)(nil)

// Local is an in-process [Registry]. Any number of shared locks may be held
// on a path, or a single exclusive lock, never both.
type Local struct {
	mu    sync.Mutex
	locks map[string]map[*Lock]struct{}
}

// NewLocal returns a pointer to a new, empty [Local] registry.
func NewLocal() *Local {
	return &Local{
		locks: make(map[string]map[*Lock]struct{}),
	}
}

func (r *Local) Acquire(lock *Lock) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.acquire(lock)
}

// Convert trades held for next in one step. When next is denied, held stays
// in place and no other session can observe the path without it.
func (r *Local) Convert(held, next *Lock) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	_, ok := r.locks[held.path][held]
	if ok {
		r.release(held)
	}

	if r.acquire(next) {
		return true
	}

	if ok {
		r.locks[held.path] = setWith(r.locks[held.path], held)
	}

	return false
}

func setWith(set map[*Lock]struct{}, lock *Lock) map[*Lock]struct{} {
	if set == nil {
		set = make(map[*Lock]struct{})
	}
	set[lock] = struct{}{}

	return set
}

func (r *Local) acquire(lock *Lock) bool {
	held := r.locks[lock.path]

	if lock.IsExclusive() && len(held) > 0 {
		return false
	}
	for l := range held {
		if l.IsExclusive() {
			return false
		}
	}

	r.locks[lock.path] = setWith(held, lock)

	return true
}

// Release removes lock from its path. Releasing a lock that is not held
// succeeds.
func (r *Local) Release(lock *Lock) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.release(lock)

	return true
}

func (r *Local) release(lock *Lock) {
	if held, ok := r.locks[lock.path]; ok {
		delete(held, lock)
		if len(held) == 0 {
			delete(r.locks, lock.path)
		}
	}
}

// Held returns the number of locks currently held on path.
func (r *Local) Held(path string) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	return len(r.locks[path])
}
