package game

import (
	"context"

	"github.com/comalice/reflex/internal/fsm"
	"github.com/comalice/reflex/internal/hw"
)

// buildMachine wires the four modes. Every transition into a mode restarts
// the elapsed counter; the Tick handler has already counted the current tick
// by the time guards run.
func (g *Game) buildMachine() (*fsm.Machine, error) {
	flashing := &fsm.State{ID: fsm.StateID(Flashing), Name: Flashing.String(), Initial: true}
	waiting := &fsm.State{ID: fsm.StateID(Waiting), Name: Waiting.String()}
	armed := &fsm.State{ID: fsm.StateID(Armed), Name: Armed.String()}
	finished := &fsm.State{ID: fsm.StateID(Finished), Name: Finished.String()}

	flashing.OnEntry(g.beginRound)
	waiting.OnEntry(g.resetElapsed)
	armed.OnEntry(g.resetElapsed)
	finished.OnEntry(g.resetElapsed)

	flashing.
		On(evTick, nil, g.blinkDue, g.blink).
		On(evStartEdge, waiting, nil, g.goDark)

	waiting.
		On(evTick, armed, g.delayOverReleased, g.showCue).
		On(evTick, finished, g.delayOver, g.flag(Cheater)).
		On(evStartEdge, finished, g.pastBounceGuard, g.flag(Cheater))

	armed.
		On(evTick, finished, g.clockSaturated, g.flag(Timeout)).
		On(evStartEdge, finished, nil, g.recordReaction)

	finished.
		On(evTick, nil, g.restartHeld, g.requestRestart).
		On(evRestart, flashing, nil, nil)

	return fsm.NewMachine(flashing, waiting, armed, finished)
}

// beginRound is the Flashing entry: all LEDs lit, greeting queued.
func (g *Game) beginRound(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.elapsed = 0
	g.restartReq = false
	g.display = Greeting
	g.setPattern(hw.AllOn)
	return nil
}

func (g *Game) resetElapsed(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.elapsed = 0
	return nil
}

func (g *Game) blinkDue(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
	return g.elapsed >= BlinkPeriod, nil
}

func (g *Game) blink(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.setPattern(^g.pattern)
	g.elapsed = 0
	return nil
}

func (g *Game) goDark(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.setPattern(hw.AllOff)
	g.delay = PendingDelay(g.entropy.Load())
	return nil
}

func (g *Game) delayOver(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
	return g.elapsed > g.delay, nil
}

func (g *Game) delayOverReleased(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
	return g.elapsed > g.delay && !g.start.Pressed(), nil
}

func (g *Game) showCue(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.setPattern(hw.AllOn)
	return nil
}

// pastBounceGuard separates contact chatter from a deliberate early press.
// It is a plain threshold; a slow bounce can still be called a cheat.
func (g *Game) pastBounceGuard(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
	return g.elapsed > BounceGuard, nil
}

func (g *Game) clockSaturated(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
	return g.elapsed == maxElapsed, nil
}

func (g *Game) recordReaction(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.reaction = g.elapsed
	if g.reaction < g.best {
		g.best = g.reaction
		g.saveReq = true
	}
	g.display = Result
	return nil
}

func (g *Game) restartHeld(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) (bool, error) {
	return g.restart.Pressed(), nil
}

func (g *Game) requestRestart(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
	g.restartReq = true
	return nil
}

func (g *Game) flag(d Display) fsm.Action {
	return func(ctx context.Context, evt *fsm.Event, from, to fsm.StateID) error {
		g.display = d
		return nil
	}
}
