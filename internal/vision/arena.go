package vision

import (
	"sync"

	"gocv.io/x/gocv"
)

// Arena owns the intermediate Mats of one grading call. Every Mat created
// through or handed to the arena is released by Close, so a single
// deferred Close covers every exit path.
type Arena struct {
	mu     sync.Mutex
	mats   []gocv.Mat
	closed bool
}

// NewArena creates an empty arena.
func NewArena() *Arena {
	return &Arena{}
}

// NewMat allocates an empty Mat owned by the arena.
func (a *Arena) NewMat() gocv.Mat {
	return a.Track(gocv.NewMat())
}

// Track transfers ownership of m to the arena and returns it.
func (a *Arena) Track(m gocv.Mat) gocv.Mat {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.closed {
		m.Close()
		return m
	}
	a.mats = append(a.mats, m)
	return m
}

// Len returns the number of live Mats.
func (a *Arena) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return len(a.mats)
}

// Close releases every tracked Mat in reverse order of creation.
func (a *Arena) Close() {
	a.mu.Lock()
	defer a.mu.Unlock()
	for i := len(a.mats) - 1; i >= 0; i-- {
		a.mats[i].Close()
	}
	a.mats = nil
	a.closed = true
}
