package pipeline

import (
	"github.com/matzehuels/relnet/pkg/errors"
)

// State is a compilation stage.
type State int

const (
	StateEmpty State = iota
	StateClassifying
	StateBuilding
	StatePostProcessed
	StateFinalized
)

func (s State) String() string {
	switch s {
	case StateEmpty:
		return "empty"
	case StateClassifying:
		return "classifying"
	case StateBuilding:
		return "building"
	case StatePostProcessed:
		return "postprocessed"
	case StateFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// machine enforces the stage order. Each compilation owns one.
type machine struct {
	state State
}

// advance moves to the next state. Skipping or repeating a stage is an
// internal error.
func (m *machine) advance(to State) error {
	if to != m.state+1 {
		return errors.New(errors.ErrCodeInternal, "invalid stage transition %s -> %s", m.state, to)
	}
	m.state = to
	return nil
}
