// Package fsm is a small flat state machine: states, guarded transitions,
// entry/exit actions and internal (targetless) transitions.
//
// A Machine is not safe for concurrent use. Callers that dispatch events
// from several goroutines serialize Send themselves.
package fsm

import (
	"context"
	"errors"
)

type StateID int
type EventID int

type Event struct {
	ID      EventID
	Payload any
}

type Action func(ctx context.Context, evt *Event, from StateID, to StateID) error
type Guard func(ctx context.Context, evt *Event, from StateID, to StateID) (bool, error)

var (
	ErrNoStates       = errors.New("no states provided")
	ErrNilState       = errors.New("nil state")
	ErrDuplicateState = errors.New("duplicate state ID")
	ErrManyInitial    = errors.New("more than one initial state")
	ErrUnknownTarget  = errors.New("transition target not registered")
	ErrNotStarted     = errors.New("machine not started")
)

type State struct {
	ID          StateID
	Name        string
	Transitions []*Transition
	EntryAction Action
	ExitAction  Action
	Initial     bool
}

type Transition struct {
	Event  EventID
	Source *State
	Target *State // nil --> internal transition
	Guard  Guard  // nil --> always
	Action Action // nil --> do nothing
}

// Machine holds the registered states and the current one.
type Machine struct {
	initial *State
	states  map[StateID]*State
	order   []*State
	current *State
}

func (s *State) OnEntry(action Action) {
	s.EntryAction = action
}

func (s *State) OnExit(action Action) {
	s.ExitAction = action
}

// On appends a transition. Transitions are tried in the order they were added.
func (s *State) On(e EventID, target *State, guard Guard, action Action) *State {
	s.Transitions = append(s.Transitions, &Transition{
		Event:  e,
		Source: s,
		Target: target,
		Guard:  guard,
		Action: action,
	})
	return s
}

func NewMachine(states ...*State) (*Machine, error) {
	if len(states) == 0 {
		return nil, ErrNoStates
	}
	m := &Machine{
		states: make(map[StateID]*State, len(states)),
		order:  states,
	}

	for _, s := range states {
		if s == nil {
			return nil, ErrNilState
		}
		if _, exists := m.states[s.ID]; exists {
			return nil, ErrDuplicateState
		}
		m.states[s.ID] = s
		if s.Initial {
			if m.initial != nil {
				return nil, ErrManyInitial
			}
			m.initial = s
		}
	}
	if m.initial == nil {
		m.initial = states[0]
	}

	for _, s := range states {
		for _, t := range s.Transitions {
			if t == nil {
				continue
			}
			if t.Source == nil {
				t.Source = s
			}
			if t.Target != nil && m.states[t.Target.ID] != t.Target {
				return nil, ErrUnknownTarget
			}
		}
	}

	return m, nil
}

// Start enters the initial state, running its entry action.
func (m *Machine) Start(ctx context.Context) error {
	m.current = m.initial
	return m.current.enterState(ctx, nil, m.initial.ID, m.initial.ID)
}

// Send dispatches evt to the current state. Events with no enabled
// transition are dropped.
func (m *Machine) Send(ctx context.Context, evt Event) error {
	if m.current == nil {
		return ErrNotStarted
	}

	t, err := m.pickTransition(ctx, m.current, &evt)
	if err != nil || t == nil {
		return err
	}

	next, err := t.doTransition(ctx, &evt)
	m.current = next
	return err
}

// Current returns the active state ID, or -1 before Start.
func (m *Machine) Current() StateID {
	if m.current == nil {
		return -1
	}
	return m.current.ID
}

// State looks up a registered state.
func (m *Machine) State(id StateID) *State {
	return m.states[id]
}

func (s *State) enterState(ctx context.Context, evt *Event, from StateID, to StateID) error {
	if s.EntryAction != nil {
		return s.EntryAction(ctx, evt, from, to)
	}
	return nil
}

func (s *State) exitState(ctx context.Context, evt *Event, from StateID, to StateID) error {
	if s.ExitAction != nil {
		return s.ExitAction(ctx, evt, from, to)
	}
	return nil
}

// pickTransition returns the first transition in document order whose event
// matches and whose guard passes.
func (m *Machine) pickTransition(ctx context.Context, s *State, evt *Event) (*Transition, error) {
	for _, t := range s.Transitions {
		if t == nil || t.Event != evt.ID {
			continue
		}
		ok, err := t.evaluateGuard(ctx, evt)
		if err != nil {
			return nil, err
		}
		if ok {
			return t, nil
		}
	}
	return nil, nil
}

func (t *Transition) targetID() StateID {
	if t.Target == nil {
		return t.Source.ID
	}
	return t.Target.ID
}

func (t *Transition) evaluateGuard(ctx context.Context, evt *Event) (bool, error) {
	if t.Guard != nil {
		return t.Guard(ctx, evt, t.Source.ID, t.targetID())
	}
	return true, nil
}

func (t *Transition) evaluateAction(ctx context.Context, evt *Event) error {
	if t.Action != nil {
		return t.Action(ctx, evt, t.Source.ID, t.targetID())
	}
	return nil
}

// doTransition runs exit, action and entry and returns the resulting state.
func (t *Transition) doTransition(ctx context.Context, evt *Event) (*State, error) {
	if t.Target == nil {
		return t.Source, t.evaluateAction(ctx, evt)
	}

	from, to := t.Source.ID, t.Target.ID
	if err := t.Source.exitState(ctx, evt, from, to); err != nil {
		return t.Source, err
	}

	if err := t.evaluateAction(ctx, evt); err != nil {
		// Rewind: re-enter the source without an event.
		if err := t.Source.enterState(ctx, nil, from, to); err != nil {
			return t.Source, err
		}
		return t.Source, nil
	}

	if err := t.Target.enterState(ctx, evt, from, to); err != nil {
		return t.Source, err
	}

	return t.Target, nil
}
