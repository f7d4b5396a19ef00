// Package lcd drives a 16x2 character display. Text is composed into an
// in-memory frame and pushed to the output in one Draw.
package lcd

import (
	"bytes"
	"io"
	"strconv"
	"sync"

	"github.com/comalice/reflex/internal/game"
)

const (
	Cols = 16
	Rows = 2
)

// Panel is a character LCD whose "glass" is an io.Writer.
type Panel struct {
	mu     sync.Mutex
	out    io.Writer
	buffer [Rows][Cols]byte
	x, y   int
}

// NewPanel returns a cleared panel. out may be nil for a headless panel.
func NewPanel(out io.Writer) *Panel {
	p := &Panel{out: out}
	p.clear()
	return p
}

// Render composes one of the fixed messages and draws it.
func (p *Panel) Render(d game.Display, value uint16) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.clear()
	switch d {
	case game.Greeting:
		// How fast are you
		// <best>       ms?
		p.puts(0, 0, "How fast are you")
		if value == game.NoBestTime {
			p.puts(0, 1, "none")
		} else {
			p.puts(0, 1, strconv.FormatUint(uint64(value), 10))
			p.puts(13, 1, "ms?")
		}
	case game.Cheater:
		p.puts(0, 0, "!!! CHEATER !!!")
	case game.Result:
		// Reaction time:
		// <time>         ms
		p.puts(0, 0, "Reaction time:")
		p.puts(0, 1, strconv.FormatUint(uint64(value), 10))
		p.puts(14, 1, "ms")
	case game.Timeout:
		p.puts(1, 0, "!! TOO SLOW !!")
	default:
		return nil
	}
	return p.draw()
}

// Lines returns the current frame, trailing blanks included.
func (p *Panel) Lines() [Rows]string {
	p.mu.Lock()
	defer p.mu.Unlock()

	var lines [Rows]string
	for y := range p.buffer {
		lines[y] = string(p.buffer[y][:])
	}
	return lines
}

func (p *Panel) clear() {
	for y := range p.buffer {
		for x := range p.buffer[y] {
			p.buffer[y][x] = ' '
		}
	}
	p.x, p.y = 0, 0
}

// puts writes s at (x, y), clipping at the right edge.
func (p *Panel) puts(x, y int, s string) {
	if y < 0 || y >= Rows {
		return
	}
	p.x, p.y = x, y
	for i := 0; i < len(s) && p.x < Cols; i++ {
		if p.x >= 0 {
			p.buffer[p.y][p.x] = s[i]
		}
		p.x++
	}
}

func (p *Panel) draw() error {
	if p.out == nil {
		return nil
	}
	var buf bytes.Buffer
	border := "+" + string(bytes.Repeat([]byte{'-'}, Cols)) + "+\n"
	buf.WriteString(border)
	for y := range p.buffer {
		buf.WriteByte('|')
		buf.Write(p.buffer[y][:])
		buf.WriteString("|\n")
	}
	buf.WriteString(border)
	_, err := p.out.Write(buf.Bytes())
	return err
}

var _ game.Renderer = (*Panel)(nil)
