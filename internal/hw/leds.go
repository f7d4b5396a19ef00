package hw

import (
	"strings"

	"go.uber.org/atomic"
)

const (
	AllOn  uint8 = 0xFF
	AllOff uint8 = 0x00
)

// LEDBank is an eight-LED output port. Bit n set means LED n is lit.
type LEDBank struct {
	pattern atomic.Uint32
	changes chan uint8
}

func NewLEDBank() *LEDBank {
	return &LEDBank{changes: make(chan uint8, 16)}
}

// SetPattern latches a new pattern and publishes it to Changes without blocking.
func (l *LEDBank) SetPattern(p uint8) {
	if uint8(l.pattern.Swap(uint32(p))) == p {
		return
	}
	select {
	case l.changes <- p:
	default:
	}
}

func (l *LEDBank) Pattern() uint8 {
	return uint8(l.pattern.Load())
}

// Changes delivers patterns as they are latched. Slow readers miss updates.
func (l *LEDBank) Changes() <-chan uint8 {
	return l.changes
}

func (l *LEDBank) String() string {
	return FormatPattern(l.Pattern())
}

// FormatPattern renders a pattern LED 7 first, '*' lit and '.' dark.
func FormatPattern(p uint8) string {
	var sb strings.Builder
	for i := 7; i >= 0; i-- {
		if p&(1<<i) != 0 {
			sb.WriteByte('*')
		} else {
			sb.WriteByte('.')
		}
	}
	return sb.String()
}
