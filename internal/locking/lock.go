// Package locking arbitrates advisory shared and exclusive locks on logical
// paths between the sessions of a single process.
package locking

// Kind is the kind of a [Lock].
type Kind int

const (
	KindShared Kind = iota + 1
	KindExclusive
)

func (k Kind) String() string {
	switch k {
	case KindShared:
		return "shared"
	case KindExclusive:
		return "exclusive"
	default:
		return "unknown"
	}
}

// Lock is a request for, or the grant of, a lock on a logical path. Two
// locks are distinct values even when path and kind are equal.
type Lock struct {
	path string
	kind Kind
}

// NewLock returns a pointer to a new [Lock].
func NewLock(path string, kind Kind) *Lock {
	return &Lock{
		path: path,
		kind: kind,
	}
}

func (l *Lock) Path() string {
	return l.path
}

func (l *Lock) Kind() Kind {
	return l.kind
}

func (l *Lock) IsShared() bool {
	return l.kind == KindShared
}

func (l *Lock) IsExclusive() bool {
	return l.kind == KindExclusive
}

// Registry grants and releases locks. Acquire reports whether the lock was
// granted and never blocks. Convert atomically replaces held with next,
// leaving held in place when next is denied.
type Registry interface {
	Acquire(lock *Lock) bool
	Release(lock *Lock) bool
	Convert(held, next *Lock) bool
}
