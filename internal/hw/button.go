// Package hw models the front panel: pushbuttons and the LED bank.
//
// Both are safe for concurrent use. Nothing here blocks: edge and pattern
// notifications are dropped when the reader falls behind, the same way a
// missed interrupt flag is lost on real hardware.
package hw

import (
	"go.uber.org/atomic"
)

const edgeBuffer = 8

// Button is an active-low momentary pushbutton. Pressing it pulls the line
// low and raises a falling-edge notification.
type Button struct {
	name  string
	down  atomic.Bool
	edges chan struct{}
}

func NewButton(name string) *Button {
	return &Button{
		name:  name,
		edges: make(chan struct{}, edgeBuffer),
	}
}

func (b *Button) Name() string { return b.name }

// Press drives the line low. Only a released->pressed change produces an edge.
func (b *Button) Press() {
	if b.down.CAS(false, true) {
		select {
		case b.edges <- struct{}{}:
		default:
		}
	}
}

// Release lets the line float back high.
func (b *Button) Release() {
	b.down.Store(false)
}

// Bounce simulates contact chatter: n extra release/press cycles after the
// initial press, each producing its own falling edge.
func (b *Button) Bounce(n int) {
	b.Press()
	for i := 0; i < n; i++ {
		b.Release()
		b.Press()
	}
}

// Pressed reports whether the button is currently held down.
func (b *Button) Pressed() bool {
	return b.down.Load()
}

// Edges delivers one value per falling edge.
func (b *Button) Edges() <-chan struct{} {
	return b.edges
}
