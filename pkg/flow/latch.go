package flow

import "sync"

type latchState int

const (
	latchIdle latchState = iota
	latchInFlight
	latchDone
)

// claimLatch enforces the at-most-once claim guarantee. The state moves
// idle → in-flight when a claim begins, in-flight → done on success, and
// in-flight → idle on failure (releasing exactly one retry). The transition
// happens under a mutex before the claim call is issued, so concurrent
// re-evaluations can never both win.
type claimLatch struct {
	mu    sync.Mutex
	state latchState
}

// Begin attempts to acquire the latch. It returns true for exactly one caller
// while the latch is idle; everyone else sees false until Fail releases it.
func (l *claimLatch) Begin() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state != latchIdle {
		return false
	}
	l.state = latchInFlight
	return true
}

// Fail releases the latch after a failed claim, permitting one more attempt
func (l *claimLatch) Fail() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == latchInFlight {
		l.state = latchIdle
	}
}

// Succeed locks the latch permanently; success never releases it
func (l *claimLatch) Succeed() {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.state == latchInFlight {
		l.state = latchDone
	}
}

// Locked reports whether the latch has been permanently locked by a success
func (l *claimLatch) Locked() bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	return l.state == latchDone
}
