package game

import (
	"math"
	"strings"
	"testing"

	"github.com/comalice/reflex/internal/hw"
)

type rig struct {
	g       *Game
	leds    *hw.LEDBank
	start   *hw.Button
	restart *hw.Button
}

func newRig(t *testing.T, opts ...Option) *rig {
	t.Helper()
	r := &rig{
		leds:    hw.NewLEDBank(),
		start:   hw.NewButton("start"),
		restart: hw.NewButton("restart"),
	}
	g, err := New(r.leds, r.start, r.restart, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	r.g = g
	return r
}

func (r *rig) ticks(n int) {
	for i := 0; i < n; i++ {
		r.g.OnTick()
	}
}

// arm walks a fresh round from Flashing to Armed.
func (r *rig) arm(t *testing.T) {
	t.Helper()
	r.g.OnStartEdge()
	s := r.g.Snapshot()
	if s.Mode != Waiting {
		t.Fatalf("expected Waiting after start edge, got %v", s.Mode)
	}
	r.ticks(int(s.Delay) + 1)
	if m := r.g.Snapshot().Mode; m != Armed {
		t.Fatalf("expected Armed after delay, got %v", m)
	}
}

// restartRound presses restart for one tick and lets the controller side restart.
func (r *rig) restartRound(t *testing.T) {
	t.Helper()
	r.restart.Press()
	r.g.OnTick()
	r.restart.Release()
	if !r.g.RestartRequested() {
		t.Fatal("expected restart request")
	}
	r.g.Restart()
}

func TestPendingDelayRange(t *testing.T) {
	samples := []uint32{0, 1, 499, 999, 1000, 1001, 65535, 65536, math.MaxUint32 - 1, math.MaxUint32}
	for e := uint32(0); e < 5000; e += 7 {
		samples = append(samples, e)
	}
	for _, e := range samples {
		d := PendingDelay(e)
		if d < 1500 || d > 2499 {
			t.Errorf("PendingDelay(%d) = %d, outside [1500, 2499]", e, d)
		}
	}
}

func TestInitialState(t *testing.T) {
	r := newRig(t)
	s := r.g.Snapshot()

	if s.Mode != Flashing {
		t.Errorf("mode = %v, want flashing", s.Mode)
	}
	if s.Display != Greeting {
		t.Errorf("display = %v, want greeting", s.Display)
	}
	if s.Best != NoBestTime {
		t.Errorf("best = %d, want %d", s.Best, NoBestTime)
	}
	if r.leds.Pattern() != hw.AllOn {
		t.Errorf("LEDs = %s, want all on", r.leds)
	}
}

func TestFlashingBlinksAtOneHertz(t *testing.T) {
	r := newRig(t)

	r.ticks(int(BlinkPeriod) - 1)
	if r.leds.Pattern() != hw.AllOn {
		t.Fatalf("toggled early at %d ms", BlinkPeriod-1)
	}
	r.ticks(1)
	if r.leds.Pattern() != hw.AllOff {
		t.Fatalf("expected toggle at %d ms", BlinkPeriod)
	}
	if e := r.g.Snapshot().Elapsed; e != 0 {
		t.Errorf("elapsed after toggle = %d, want 0", e)
	}
	r.ticks(int(BlinkPeriod))
	if r.leds.Pattern() != hw.AllOn {
		t.Fatal("expected second toggle back on")
	}
}

func TestReactionRound(t *testing.T) {
	r := newRig(t, WithEntropy(1234))

	r.g.OnStartEdge()
	s := r.g.Snapshot()
	if s.Mode != Waiting {
		t.Fatalf("mode = %v, want waiting", s.Mode)
	}
	if s.Delay != 1734 {
		t.Fatalf("delay = %d, want 1734", s.Delay)
	}
	if r.leds.Pattern() != hw.AllOff {
		t.Fatalf("LEDs = %s, want dark", r.leds)
	}

	r.ticks(int(s.Delay))
	if m := r.g.Snapshot().Mode; m != Waiting {
		t.Fatalf("left Waiting at elapsed == delay: %v", m)
	}
	r.ticks(1)
	if m := r.g.Snapshot().Mode; m != Armed {
		t.Fatalf("mode = %v, want armed", m)
	}
	if r.leds.Pattern() != hw.AllOn {
		t.Fatalf("cue not shown: %s", r.leds)
	}

	r.ticks(300)
	r.g.OnStartEdge()
	s = r.g.Snapshot()
	if s.Mode != Finished {
		t.Errorf("mode = %v, want finished", s.Mode)
	}
	if s.Reaction != 300 {
		t.Errorf("reaction = %d, want 300", s.Reaction)
	}
	if s.Display != Result {
		t.Errorf("display = %v, want result", s.Display)
	}
	if s.Best != 300 || !s.SavePending {
		t.Errorf("best = %d savePending = %v, want 300 true", s.Best, s.SavePending)
	}
}

func TestSlowerRoundKeepsBest(t *testing.T) {
	r := newRig(t, WithBestTime(200))
	r.arm(t)
	r.ticks(300)
	r.g.OnStartEdge()

	s := r.g.Snapshot()
	if s.Best != 200 || s.SavePending {
		t.Errorf("best = %d savePending = %v, want 200 false", s.Best, s.SavePending)
	}
	if s.Display != Result || s.Reaction != 300 {
		t.Errorf("display = %v reaction = %d", s.Display, s.Reaction)
	}
}

func TestBounceWithinGuardIgnored(t *testing.T) {
	r := newRig(t)
	r.g.OnStartEdge()

	r.ticks(5)
	r.g.OnStartEdge()
	if m := r.g.Snapshot().Mode; m != Waiting {
		t.Fatalf("edge at 5 ms changed mode to %v", m)
	}

	r.ticks(int(BounceGuard) - 5)
	before := r.g.Snapshot()
	r.g.OnStartEdge()
	after := r.g.Snapshot()
	if after.Mode != Waiting || after.Elapsed != before.Elapsed || after.Display != before.Display {
		t.Errorf("edge at %d ms was not a no-op: before %+v after %+v", BounceGuard, before, after)
	}
}

func TestEarlyPressIsCheat(t *testing.T) {
	r := newRig(t)
	r.g.OnStartEdge()
	r.ticks(40)
	r.g.OnStartEdge()

	s := r.g.Snapshot()
	if s.Mode != Finished || s.Display != Cheater {
		t.Errorf("mode = %v display = %v, want finished cheater", s.Mode, s.Display)
	}
	if s.SavePending {
		t.Error("cheat must not save")
	}
}

func TestHoldingStartThroughDelayIsCheat(t *testing.T) {
	r := newRig(t)
	r.start.Press()
	r.g.OnStartEdge()
	delay := r.g.Snapshot().Delay

	r.ticks(5)
	if m := r.g.Snapshot().Mode; m != Waiting {
		t.Fatalf("mode = %v, want waiting", m)
	}
	r.ticks(int(delay) - 5 + 1)

	s := r.g.Snapshot()
	if s.Mode != Finished || s.Display != Cheater {
		t.Errorf("mode = %v display = %v, want finished cheater", s.Mode, s.Display)
	}
	if r.leds.Pattern() != hw.AllOff {
		t.Errorf("cue shown to a cheater: %s", r.leds)
	}
}

func TestArmedTimesOutAtSaturation(t *testing.T) {
	r := newRig(t)
	r.arm(t)

	r.ticks(math.MaxUint16 - 1)
	s := r.g.Snapshot()
	if s.Mode != Armed || s.Elapsed != math.MaxUint16-1 {
		t.Fatalf("mode = %v elapsed = %d, want armed %d", s.Mode, s.Elapsed, math.MaxUint16-1)
	}

	r.ticks(1)
	s = r.g.Snapshot()
	if s.Mode != Finished || s.Display != Timeout {
		t.Errorf("mode = %v display = %v, want finished timeout", s.Mode, s.Display)
	}
	if s.Reaction != 0 || s.Best != NoBestTime || s.SavePending {
		t.Errorf("timeout touched reaction state: %+v", s)
	}
}

func TestBestTimeNeverIncreases(t *testing.T) {
	r := newRig(t)
	reactions := []int{400, 250, 300, 100, 100, 180}
	prev := NoBestTime

	for i, rt := range reactions {
		if i > 0 {
			r.restartRound(t)
		}
		r.arm(t)
		r.ticks(rt)
		r.g.OnStartEdge()

		best, saved := r.g.TakeSave()
		if best > prev {
			t.Fatalf("round %d: best rose from %d to %d", i, prev, best)
		}
		if saved != (best < prev) {
			t.Errorf("round %d: save pending = %v for best %d -> %d", i, saved, prev, best)
		}
		prev = best
	}
	if prev != 100 {
		t.Errorf("final best = %d, want 100", prev)
	}
}

func TestFinishedIgnoresStartEdge(t *testing.T) {
	r := newRig(t)
	r.g.OnStartEdge()
	r.ticks(40)
	r.g.OnStartEdge()

	r.g.TakeDisplay()
	r.g.OnStartEdge()
	r.ticks(10)
	s := r.g.Snapshot()
	if s.Mode != Finished || s.Display != None {
		t.Errorf("mode = %v display = %v, want finished none", s.Mode, s.Display)
	}
	if s.RestartRequested {
		t.Error("restart requested without the restart button")
	}
}

func TestRestartKeepsEntropy(t *testing.T) {
	r := newRig(t, WithEntropy(77))
	r.arm(t)
	r.ticks(250)
	r.g.OnStartEdge()
	for i := 0; i < 10; i++ {
		r.g.Spin()
	}

	r.restart.Press()
	r.ticks(3)
	if !r.g.Snapshot().RestartRequested {
		t.Fatal("expected restart request while restart button is down")
	}
	r.restart.Release()
	r.g.Restart()

	s := r.g.Snapshot()
	if s.Mode != Flashing || s.Display != Greeting || s.Elapsed != 0 || s.RestartRequested {
		t.Errorf("after restart: %+v", s)
	}
	if s.Entropy != 87 {
		t.Errorf("entropy = %d, want 87", s.Entropy)
	}
	if r.leds.Pattern() != hw.AllOn {
		t.Errorf("LEDs = %s, want all on", r.leds)
	}
	if d, v := r.g.TakeDisplay(); d != Greeting || v != 250 {
		t.Errorf("TakeDisplay = %v %d, want greeting 250", d, v)
	}
}

func TestRestartOutsideFinishedIgnored(t *testing.T) {
	r := newRig(t)
	r.g.OnStartEdge()
	r.g.Restart()
	if m := r.g.Snapshot().Mode; m != Waiting {
		t.Errorf("mode = %v, want waiting", m)
	}
}

func TestTakeDisplayClears(t *testing.T) {
	r := newRig(t, WithBestTime(180))
	d, v := r.g.TakeDisplay()
	if d != Greeting || v != 180 {
		t.Errorf("TakeDisplay = %v %d, want greeting 180", d, v)
	}
	if d, _ := r.g.TakeDisplay(); d != None {
		t.Errorf("second TakeDisplay = %v, want none", d)
	}
}

func TestDOT(t *testing.T) {
	r := newRig(t)
	dot := r.g.DOT()
	for _, want := range []string{
		`"flashing" -> "waiting" [label="start edge"];`,
		`"waiting" -> "armed" [label="tick [guard]"];`,
		`"armed" -> "finished" [label="start edge"];`,
		`"finished" -> "flashing" [label="restart"];`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT missing %q:\n%s", want, dot)
		}
	}
}
