// Package util holds small helpers with no better home.
package util

// A Gate limits concurrency. At most n goroutines may be between Enter and
// Leave at a time; further callers of Enter block until someone leaves.
type Gate struct {
	c chan struct{}
}

// NewGate returns a Gate admitting at most n goroutines at a time.
func NewGate(n int) *Gate {
	return &Gate{c: make(chan struct{}, n)}
}

// Enter blocks until there is room inside the gate. Every call to Enter
// must be balanced by a call to Leave, though not necessarily from the
// same goroutine.
func (g *Gate) Enter() {
	g.c <- struct{}{}
}

// Leave releases one slot inside the gate.
func (g *Gate) Leave() {
	<-g.c
}
