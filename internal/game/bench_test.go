package game

import (
	"context"
	"testing"

	"github.com/comalice/reflex/internal/fsm"
	"github.com/comalice/reflex/internal/hw"
)

func benchGame(b *testing.B) *Game {
	b.Helper()
	g, err := New(hw.NewLEDBank(), hw.NewButton("start"), hw.NewButton("restart"))
	if err != nil {
		b.Fatal(err)
	}
	return g
}

// BenchmarkTickFlashing measures the 1 ms handler on its most common path.
func BenchmarkTickFlashing(b *testing.B) {
	g := benchGame(b)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.OnTick()
	}
}

// BenchmarkRound runs a full start, react, restart cycle per iteration.
func BenchmarkRound(b *testing.B) {
	g := benchGame(b)
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		g.OnStartEdge()
		for g.mode() == Waiting {
			g.OnTick()
		}
		g.OnStartEdge()
		g.mu.Lock()
		g.restartReq = true
		g.mu.Unlock()
		g.Restart()
	}
}

func BenchmarkMachineSelfLoop(b *testing.B) {
	s := &fsm.State{ID: 1}
	s.On(1, s, nil, nil)
	m, err := fsm.NewMachine(s)
	if err != nil {
		b.Fatal(err)
	}
	ctx := context.Background()
	if err := m.Start(ctx); err != nil {
		b.Fatal(err)
	}
	e := fsm.Event{ID: 1}
	b.ResetTimer()
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		if err := m.Send(ctx, e); err != nil {
			b.Fatal(err)
		}
	}
}
