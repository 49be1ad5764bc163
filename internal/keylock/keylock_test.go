package keylock

import (
	"testing"
	"time"
)

func TestTryAcquireFailsWhileHeld(t *testing.T) {
	m := New()
	g := m.Acquire(1)
	defer g.Release()

	if got := m.TryAcquire(1); got != nil {
		t.Fatalf("TryAcquire(1) while held = %v, want nil", got)
	}
	if got := m.TryAcquire(2); got == nil {
		t.Fatalf("TryAcquire(2) = nil, want a guard for an unrelated id")
	} else {
		got.Release()
	}
}

func TestAcquireBlocksUntilRelease(t *testing.T) {
	m := New()
	g := m.Acquire(1)

	acquired := make(chan *Guard, 1)
	go func() { acquired <- m.Acquire(1) }()

	select {
	case <-acquired:
		t.Fatalf("Acquire(1) returned before the held guard was released")
	case <-time.After(50 * time.Millisecond):
	}

	g.Release()

	select {
	case g2 := <-acquired:
		g2.Release()
	case <-time.After(time.Second):
		t.Fatalf("Acquire(1) did not unblock within 1s of release")
	}
}

func TestReleaseIsIdempotent(t *testing.T) {
	m := New()
	g := m.Acquire(5)
	g.Release()
	g.Release() // must not double-broadcast or panic

	g2 := m.TryAcquire(5)
	if g2 == nil {
		t.Fatalf("TryAcquire(5) after release = nil, want a guard")
	}
	g2.Release()
}
