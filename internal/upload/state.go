package upload

import (
	"fmt"
	"strings"
)

// Stage is one step of the upload pipeline.
type Stage int

// Pipeline stages in execution order.
const (
	StageReserve Stage = iota + 1
	StageGrant
	StageTransfer
	StageFinalize
	StagePublish
)

func (s Stage) String() string {
	switch s {
	case StageReserve:
		return "reserve"
	case StageGrant:
		return "grant"
	case StageTransfer:
		return "transfer"
	case StageFinalize:
		return "finalize"
	case StagePublish:
		return "publish"
	default:
		return fmt.Sprintf("stage(%d)", int(s))
	}
}

// State is the last stage an attempt completed.
type State int

// Attempt states. Each stage moves the attempt one state forward; a failed
// attempt stays in the state it had reached.
const (
	StateNew State = iota
	StateReserved
	StateGranted
	StateTransferred
	StateFinalized
	StatePublished
)

var stateNames = [...]string{
	StateNew:         "new",
	StateReserved:    "reserved",
	StateGranted:     "granted",
	StateTransferred: "transferred",
	StateFinalized:   "finalized",
	StatePublished:   "published",
}

func (s State) String() string {
	if s >= 0 && int(s) < len(stateNames) {
		return stateNames[s]
	}

	return fmt.Sprintf("state(%d)", int(s))
}

// ParseState is the inverse of State.String.
func ParseState(name string) (State, error) {
	for i, n := range stateNames {
		if strings.EqualFold(n, name) {
			return State(i), nil
		}
	}

	return StateNew, fmt.Errorf("upload: unknown state %q", name)
}

// Next is the stage that moves an attempt out of s. Published attempts have
// no next stage and return 0.
func (s State) Next() Stage {
	if s >= StatePublished || s < StateNew {
		return 0
	}

	return Stage(s + 1)
}

// reached is the state an attempt is in once stage completes.
func (s Stage) reached() State {
	return State(s)
}

// Orphaned reports whether an attempt in state s left a storage object
// without a published version referencing it.
func (s State) Orphaned() bool {
	return s >= StateReserved && s < StatePublished
}
