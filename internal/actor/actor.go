// Package actor runs user-defined observers and aborters after every step.
// Actors see the stepping and navigation state, may tighten the actor step
// constraint and may abort the propagation with a reason.
package actor

import (
	"github.com/san-kum/detprop/internal/detector"
	"github.com/san-kum/detprop/internal/navigation"
	"github.com/san-kum/detprop/internal/stepper"
)

type Actor interface {
	Act(s *State)
}

// Func adapts a plain function to the Actor interface.
type Func func(s *State)

func (f Func) Act(s *State) { f(s) }

// State is the view an actor gets of one propagation.
type State struct {
	Detector   *detector.Detector
	Stepping   *stepper.State
	Navigation *navigation.State

	aborted bool
	reason  string
}

// Abort stops the propagation after the current chain run. The first reason
// is kept.
func (s *State) Abort(reason string) {
	if s.aborted {
		return
	}
	s.aborted = true
	s.reason = reason
}

func (s *State) Aborted() bool { return s.aborted }

func (s *State) Reason() string { return s.reason }

// Chain is an ordered list of actors. Stateful actors (tracers, recorders)
// belong to one propagation; build a new chain per track.
type Chain struct {
	actors []Actor
}

func NewChain(actors ...Actor) *Chain {
	return &Chain{actors: actors}
}

func (c *Chain) Add(a Actor) { c.actors = append(c.actors, a) }

func (c *Chain) Len() int { return len(c.actors) }

func (c *Chain) Actors() []Actor { return c.actors }

// Run releases the actor step constraint and invokes every actor in order.
func (c *Chain) Run(s *State) {
	s.Stepping.Constraints.Release(stepper.Actor)
	for _, a := range c.actors {
		a.Act(s)
	}
}

// Find returns the first actor of type T in the chain.
func Find[T Actor](c *Chain) (T, bool) {
	for _, a := range c.actors {
		if t, ok := a.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}
