// Package util holds small helpers shared by the other packages.
package util

// A Gate bounds concurrency. It admits at most n goroutines at a time;
// the rest block in Enter until someone calls Leave.
type Gate chan struct{}

// NewGate returns a Gate which accepts at most n entries at a time.
func NewGate(n int) Gate {
	return Gate(make(chan struct{}, n))
}

// Enter marks the start of a protected section. It blocks while the
// gate is full. Safe to call from multiple goroutines.
func (g Gate) Enter() {
	g <- struct{}{}
}

// Leave marks the end of a protected section. Every Enter must be
// balanced by a Leave, though not necessarily from the same goroutine.
func (g Gate) Leave() {
	<-g
}
