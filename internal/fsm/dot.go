package fsm

import (
	"bytes"
	"fmt"
)

// DOT generates Graphviz DOT source for the machine. The current state, if
// any, is filled. eventNames labels edges; unnamed events print their ID.
func (m *Machine) DOT(eventNames map[EventID]string) string {
	var buf bytes.Buffer
	buf.WriteString(`digraph Machine {
  rankdir=LR;
  node [shape=box, fontsize=10, style=rounded];
  edge [fontsize=9];
`)

	for _, s := range m.order {
		style := ""
		if m.current == s {
			style = ` style=filled fillcolor=lightgreen`
		}
		if s == m.initial {
			style += ` peripheries=2`
		}
		buf.WriteString(fmt.Sprintf("  %q [label=%q%s];\n", stateName(s), stateName(s), style))
	}

	for _, s := range m.order {
		for _, t := range s.Transitions {
			if t == nil || t.Target == nil {
				continue
			}
			label, ok := eventNames[t.Event]
			if !ok {
				label = fmt.Sprintf("event %d", t.Event)
			}
			if t.Guard != nil {
				label += " [guard]"
			}
			buf.WriteString(fmt.Sprintf("  %q -> %q [label=%q];\n", stateName(s), stateName(t.Target), label))
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

func stateName(s *State) string {
	if s.Name != "" {
		return s.Name
	}
	return fmt.Sprintf("state %d", s.ID)
}
