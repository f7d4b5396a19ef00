package source

import (
	"context"
)

// EdgeHandler is called once per falling edge.
type EdgeHandler interface {
	OnStartEdge()
}

// EdgeFunc adapts a function to EdgeHandler.
type EdgeFunc func()

func (f EdgeFunc) OnStartEdge() { f() }

// EdgeLine is anything that reports falling edges. *hw.Button satisfies it.
type EdgeLine interface {
	Edges() <-chan struct{}
}

// Edges forwards a line's falling edges to a handler.
type Edges struct {
	line    EdgeLine
	handler EdgeHandler
}

func NewEdges(line EdgeLine, h EdgeHandler) *Edges {
	return &Edges{line: line, handler: h}
}

// Run blocks, dispatching edges, until ctx is cancelled or the line closes.
func (e *Edges) Run(ctx context.Context) error {
	edges := e.line.Edges()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-edges:
			if !ok {
				return nil
			}
			e.handler.OnStartEdge()
		}
	}
}
