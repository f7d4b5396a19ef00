// Package game is the reaction-time tester: a four-mode timing machine fed
// by a 1 ms tick and the START button's falling edge, and the cooperative
// controller loop that renders and persists on its behalf.
//
// OnTick and OnStartEdge are the two handlers. They may run on different
// goroutines and preempt the controller at any point. Each holds the game
// lock only for its own short body and never renders, persists or logs.
package game

import (
	"context"
	"math"
	"sync"

	"go.uber.org/atomic"

	"github.com/comalice/reflex/internal/fsm"
	"github.com/comalice/reflex/internal/hw"
)

// Mode is the machine's operating state.
type Mode int

const (
	Flashing Mode = iota
	Waiting
	Armed
	Finished
)

func (m Mode) String() string {
	switch m {
	case Flashing:
		return "flashing"
	case Waiting:
		return "waiting"
	case Armed:
		return "armed"
	case Finished:
		return "finished"
	}
	return "unknown"
}

// Display is a pending request for the controller to draw a message.
type Display int

const (
	None Display = iota
	Greeting
	Cheater
	Result
	Timeout
)

func (d Display) String() string {
	switch d {
	case None:
		return "none"
	case Greeting:
		return "greeting"
	case Cheater:
		return "cheater"
	case Result:
		return "result"
	case Timeout:
		return "timeout"
	}
	return "unknown"
}

const (
	BlinkPeriod uint16 = 500  // ms per LED toggle while flashing
	MinDelay    uint16 = 1500 // shortest dark period
	DelaySpread uint32 = 1000 // dark period is MinDelay + entropy%DelaySpread
	BounceGuard uint16 = 30   // edges this soon after going dark are chatter

	// NoBestTime is the stored best before any round has been won.
	NoBestTime uint16 = math.MaxUint16
	// maxElapsed is where the reaction clock gives up.
	maxElapsed uint16 = math.MaxUint16
)

const (
	evTick fsm.EventID = iota + 1
	evStartEdge
	evRestart
)

// EventNames labels the machine's events for DOT output.
var EventNames = map[fsm.EventID]string{
	evTick:      "tick",
	evStartEdge: "start edge",
	evRestart:   "restart",
}

// Indicator is the LED output port.
type Indicator interface {
	SetPattern(p uint8)
}

// Input is a polled pushbutton line.
type Input interface {
	Pressed() bool
}

// Game owns all round state. Use New.
type Game struct {
	mu      sync.Mutex
	machine *fsm.Machine

	leds    Indicator
	start   Input
	restart Input

	entropy atomic.Uint32

	elapsed    uint16
	delay      uint16
	reaction   uint16
	best       uint16
	pattern    uint8
	display    Display
	restartReq bool
	saveReq    bool
}

// Snapshot is a consistent copy of the game's fields.
type Snapshot struct {
	Mode             Mode
	Elapsed          uint16
	Delay            uint16
	Reaction         uint16
	Best             uint16
	Pattern          uint8
	Display          Display
	RestartRequested bool
	SavePending      bool
	Entropy          uint32
}

// Option configures a Game.
type Option func(*Game)

// WithBestTime seeds the best time, normally from the store.
func WithBestTime(best uint16) Option {
	return func(g *Game) {
		g.best = best
	}
}

// WithEntropy seeds the pseudo-random counter.
func WithEntropy(seed uint32) Option {
	return func(g *Game) {
		g.entropy.Store(seed)
	}
}

// New builds the machine and enters Flashing with a Greeting pending.
func New(leds Indicator, start, restart Input, opts ...Option) (*Game, error) {
	g := &Game{
		leds:    leds,
		start:   start,
		restart: restart,
		best:    NoBestTime,
	}
	for _, opt := range opts {
		opt(g)
	}

	m, err := g.buildMachine()
	if err != nil {
		return nil, err
	}
	g.machine = m

	g.mu.Lock()
	defer g.mu.Unlock()
	if err := g.machine.Start(context.Background()); err != nil {
		return nil, err
	}
	return g, nil
}

// OnTick is the 1 ms timer handler.
func (g *Game) OnTick() {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.mode() != Finished {
		g.elapsed++
	}
	_ = g.machine.Send(context.Background(), fsm.Event{ID: evTick})
}

// OnStartEdge is the START button falling-edge handler.
func (g *Game) OnStartEdge() {
	g.mu.Lock()
	defer g.mu.Unlock()

	_ = g.machine.Send(context.Background(), fsm.Event{ID: evStartEdge})
}

// Spin advances the entropy counter. The controller calls it once per
// iteration; it is never reset.
func (g *Game) Spin() uint32 {
	return g.entropy.Inc()
}

func (g *Game) Entropy() uint32 {
	return g.entropy.Load()
}

// RestartRequested reports whether the restart button was seen in Finished.
func (g *Game) RestartRequested() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.restartReq
}

// Restart begins a new round. It only has an effect from Finished.
func (g *Game) Restart() {
	g.mu.Lock()
	defer g.mu.Unlock()

	_ = g.machine.Send(context.Background(), fsm.Event{ID: evRestart})
}

// TakeDisplay consumes the pending display request along with the value it
// shows: the best time for Greeting, the reaction time for Result.
func (g *Game) TakeDisplay() (Display, uint16) {
	g.mu.Lock()
	defer g.mu.Unlock()

	d := g.display
	g.display = None
	switch d {
	case Greeting:
		return d, g.best
	case Result:
		return d, g.reaction
	}
	return d, 0
}

// TakeSave consumes a pending best-time save.
func (g *Game) TakeSave() (uint16, bool) {
	g.mu.Lock()
	defer g.mu.Unlock()

	pending := g.saveReq
	g.saveReq = false
	return g.best, pending
}

func (g *Game) Snapshot() Snapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	return Snapshot{
		Mode:             g.mode(),
		Elapsed:          g.elapsed,
		Delay:            g.delay,
		Reaction:         g.reaction,
		Best:             g.best,
		Pattern:          g.pattern,
		Display:          g.display,
		RestartRequested: g.restartReq,
		SavePending:      g.saveReq,
		Entropy:          g.entropy.Load(),
	}
}

// DOT renders the game chart for Graphviz.
func (g *Game) DOT() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.machine.DOT(EventNames)
}

func (g *Game) mode() Mode {
	return Mode(g.machine.Current())
}

func (g *Game) setPattern(p uint8) {
	g.pattern = p
	g.leds.SetPattern(p)
}

// PendingDelay maps an entropy sample onto the dark period.
func PendingDelay(entropy uint32) uint16 {
	return MinDelay + uint16(entropy%DelaySpread)
}

var _ Indicator = (*hw.LEDBank)(nil)
var _ Input = (*hw.Button)(nil)
