package domain

import (
	"math/big"
)

// ExecutionState is a step of the bundle execution state machine.
type ExecutionState string

const (
	StateIdle         ExecutionState = "idle"
	StateGasEstimated ExecutionState = "gas_estimated"
	StateSimulated    ExecutionState = "simulated"
	StateSubmitted    ExecutionState = "submitted"
	StateAborted      ExecutionState = "aborted"
)

var transitions = map[ExecutionState][]ExecutionState{
	StateIdle:         {StateGasEstimated},
	StateGasEstimated: {StateSimulated, StateAborted},
	StateSimulated:    {StateSubmitted, StateAborted},
}

// CanTransitionTo reports whether next may follow s.
func (s ExecutionState) CanTransitionTo(next ExecutionState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether no transition leaves s.
func (s ExecutionState) Terminal() bool {
	return len(transitions[s]) == 0
}

// SkippedCandidate is an opportunity dropped before simulation.
type SkippedCandidate struct {
	Candidate CrossedMarketDetails
	Reason    string
	Err       error
	Path      []ExecutionState
}

// Submission is one relay submission of the bundle.
type Submission struct {
	TargetBlock uint64
	BundleHash  string
	Err         error
}

// Outcome summarises one ExecuteBest call.
type Outcome struct {
	State       ExecutionState
	Path        []ExecutionState
	BlockNumber uint64
	Reason      string

	Candidate    *CrossedMarketDetails
	GasEstimate  uint64
	MinerReward  *big.Int
	CoinbaseDiff *big.Int
	GasPrice     *big.Int // effective, from simulation
	Skipped      []SkippedCandidate
	Submissions  []Submission
}

// NewOutcome starts an outcome in the idle state.
func NewOutcome(blockNumber uint64) *Outcome {
	return &Outcome{
		State:       StateIdle,
		Path:        []ExecutionState{StateIdle},
		BlockNumber: blockNumber,
	}
}

// Advance moves to next. It returns false, leaving the state untouched, when
// the transition is not allowed.
func (o *Outcome) Advance(next ExecutionState) bool {
	if !o.State.CanTransitionTo(next) {
		return false
	}
	o.State = next
	o.Path = append(o.Path, next)
	return true
}

// Abort moves to the aborted state with a reason.
func (o *Outcome) Abort(reason string) {
	o.Advance(StateAborted)
	o.Reason = reason
}

// Skip records a candidate that failed call building or gas estimation.
// The candidate runs its own Idle, GasEstimated, Aborted path; the cycle
// itself stays where it is so the next candidate can be tried.
func (o *Outcome) Skip(c CrossedMarketDetails, reason string, err error) {
	attempt := NewOutcome(o.BlockNumber)
	attempt.Advance(StateGasEstimated)
	attempt.Abort(reason)
	o.Skipped = append(o.Skipped, SkippedCandidate{Candidate: c, Reason: reason, Err: err, Path: attempt.Path})
}

// Accepted counts submissions the relay acknowledged.
func (o *Outcome) Accepted() int {
	n := 0
	for _, s := range o.Submissions {
		if s.Err == nil {
			n++
		}
	}
	return n
}
