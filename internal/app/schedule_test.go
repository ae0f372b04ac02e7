package app

import (
	"context"
	"errors"
	"testing"
)

type stubLocker struct {
	acquired bool
	err      error
	released bool
}

func (s *stubLocker) TryAdvisoryLock(ctx context.Context, key int64) (func(), bool, error) {
	if s.err != nil {
		return nil, false, s.err
	}
	if !s.acquired {
		return nil, false, nil
	}
	return func() { s.released = true }, true, nil
}

func TestAcquireLockDisabledWithoutKey(t *testing.T) {
	a := newTestApp()

	unlock, proceed, err := a.acquireLock(context.Background(), &stubLocker{})
	if err != nil {
		t.Fatalf("acquireLock returned error: %v", err)
	}
	if !proceed || unlock != nil {
		t.Fatalf("zero lock key must proceed without locking: proceed=%v unlock=%p", proceed, unlock)
	}
}

func TestAcquireLockNilLockerProceeds(t *testing.T) {
	a := newTestApp()
	a.Config.Scheduler.AdvisoryLockKey = 42

	unlock, proceed, err := a.acquireLock(context.Background(), nil)
	if err != nil {
		t.Fatalf("acquireLock returned error: %v", err)
	}
	if !proceed || unlock != nil {
		t.Fatalf("nil locker must proceed without locking: proceed=%v unlock=%p", proceed, unlock)
	}
}

func TestAcquireLockHeldElsewhere(t *testing.T) {
	a := newTestApp()
	a.Config.Scheduler.AdvisoryLockKey = 42

	_, proceed, err := a.acquireLock(context.Background(), &stubLocker{acquired: false})
	if err != nil {
		t.Fatalf("acquireLock returned error: %v", err)
	}
	if proceed {
		t.Fatal("must not proceed while the lock is held elsewhere")
	}
}

func TestAcquireLockReleasesOnUnlock(t *testing.T) {
	a := newTestApp()
	a.Config.Scheduler.AdvisoryLockKey = 42
	locker := &stubLocker{acquired: true}

	unlock, proceed, err := a.acquireLock(context.Background(), locker)
	if err != nil {
		t.Fatalf("acquireLock returned error: %v", err)
	}
	if !proceed || unlock == nil {
		t.Fatalf("expected acquired lock: proceed=%v unlock=%p", proceed, unlock)
	}

	unlock()
	if !locker.released {
		t.Fatal("unlock did not release the lock")
	}
}

func TestAcquireLockError(t *testing.T) {
	a := newTestApp()
	a.Config.Scheduler.AdvisoryLockKey = 42

	_, proceed, err := a.acquireLock(context.Background(), &stubLocker{err: errors.New("connection refused")})
	if err == nil {
		t.Fatal("expected error from locker")
	}
	if proceed {
		t.Fatal("must not proceed on lock error")
	}
}
