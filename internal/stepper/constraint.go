package stepper

import (
	"fmt"
	"math"
)

// Kind identifies who imposed a step constraint.
type Kind uint8

const (
	Accuracy Kind = iota
	Navigation
	User
	Actor

	numKinds
)

func (k Kind) String() string {
	switch k {
	case Accuracy:
		return "accuracy"
	case Navigation:
		return "navigation"
	case User:
		return "user"
	case Actor:
		return "actor"
	}
	return fmt.Sprintf("kind(%d)", uint8(k))
}

// Constraints bound the next step. Each kind holds at most one limit and the
// step may not exceed the smallest magnitude among them. The zero value is
// unconstrained.
type Constraints struct {
	limits [numKinds]float64
	active uint8
}

// Set replaces the limit of kind k.
func (c *Constraints) Set(k Kind, limit float64) {
	c.limits[k] = math.Abs(limit)
	c.active |= 1 << k
}

// Tighten lowers the limit of kind k to limit if that is smaller.
func (c *Constraints) Tighten(k Kind, limit float64) {
	limit = math.Abs(limit)
	if v, ok := c.Get(k); ok && v <= limit {
		return
	}
	c.Set(k, limit)
}

func (c *Constraints) Release(k Kind) {
	c.limits[k] = 0
	c.active &^= 1 << k
}

func (c Constraints) Get(k Kind) (float64, bool) {
	if c.active&(1<<k) == 0 {
		return math.Inf(1), false
	}
	return c.limits[k], true
}

// Min is the smallest active limit, +Inf when nothing constrains the step.
func (c Constraints) Min() float64 {
	v, _ := c.Limiting()
	return v
}

// Limiting returns the smallest active limit and its kind.
func (c Constraints) Limiting() (float64, Kind) {
	limit, kind := math.Inf(1), numKinds
	for k := Accuracy; k < numKinds; k++ {
		if v, ok := c.Get(k); ok && v < limit {
			limit, kind = v, k
		}
	}
	return limit, kind
}

func (c Constraints) String() string {
	s := "{"
	for k := Accuracy; k < numKinds; k++ {
		if v, ok := c.Get(k); ok {
			if len(s) > 1 {
				s += ", "
			}
			s += fmt.Sprintf("%s: %.4g", k, v)
		}
	}
	return s + "}"
}
