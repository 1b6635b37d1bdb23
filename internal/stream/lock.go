package stream

import (
	"fmt"

	"github.com/elazar/flystream/internal/locking"
	"golang.org/x/sys/unix"
)

// Lock applies an advisory lock operation to the session path. op is one of
// [unix.LOCK_SH], [unix.LOCK_EX] or [unix.LOCK_UN], optionally combined
// with [unix.LOCK_NB], which is ignored since acquisition never waits.
//
// A denied lock is reported as false with a nil error. Asking for the kind
// already held succeeds. Asking for the other kind trades the held lock
// for it, keeping the held lock when the trade is denied. Unlocking
// without a held lock succeeds.
func (s *Session) Lock(op int) (bool, error) {
	if err := s.checkOpen("lock"); err != nil {
		return false, err
	}

	var kind locking.Kind

	switch op &^ unix.LOCK_NB {
	case unix.LOCK_SH:
		kind = locking.KindShared
	case unix.LOCK_EX:
		kind = locking.KindExclusive
	case unix.LOCK_UN:
		return s.unlock(), nil
	default:
		return false, s.fail("lock", fmt.Errorf("(stream) lock: %w: %d", ErrInvalidLockOperation, op))
	}

	t, err := s.handler.resolve(s.path)
	if err != nil {
		return false, s.fail("lock", err)
	}

	if s.lock != nil && s.lock.Kind() == kind {
		return true, nil
	}

	lock := locking.NewLock(t.key(), kind)

	var granted bool
	if s.lock != nil {
		granted = s.handler.locks.Convert(s.lock, lock)
	} else {
		granted = s.handler.locks.Acquire(lock)
	}

	if !granted {
		s.handler.logger.Debug("Lock denied", "path", s.path, "kind", kind)

		return false, nil
	}

	s.lock = lock

	return true, nil
}

func (s *Session) unlock() bool {
	if s.lock == nil {
		return true
	}

	released := s.handler.locks.Release(s.lock)
	s.lock = nil

	return released
}
