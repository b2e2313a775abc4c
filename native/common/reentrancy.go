package common

import "errors"

var ErrReentrantCall = errors.New("reentrant call")

// ReentrancyGuard rejects nested entry into an engine while one of its
// mutating operations is still executing. It is a flag rather than a lock:
// the nested caller fails immediately instead of blocking.
type ReentrancyGuard struct {
	entered bool
}

// Enter marks the guard as held and returns the function that releases it.
// Callers defer the release so that the flag is cleared on every exit path,
// including panics.
func (g *ReentrancyGuard) Enter() (func(), error) {
	if g.entered {
		return nil, ErrReentrantCall
	}
	g.entered = true
	return func() { g.entered = false }, nil
}

// Entered reports whether an operation is currently executing.
func (g *ReentrancyGuard) Entered() bool {
	return g.entered
}
