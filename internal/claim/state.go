package claim

import (
	"errors"
	"fmt"
)

// State is a step of the claim pipeline
type State string

const (
	StateReceived            State = "RECEIVED"
	StateFieldsValidated     State = "FIELDS_VALIDATED"
	StateSignatureNormalized State = "SIGNATURE_NORMALIZED"
	StateSignatureVerified   State = "SIGNATURE_VERIFIED"
	StateTxSubmitted         State = "TX_SUBMITTED"
	StateTxConfirmed         State = "TX_CONFIRMED"
	StateTxReverted          State = "TX_REVERTED"
	// StateFailed ends attempts that stopped before a transaction outcome was known
	StateFailed State = "FAILED"
)

// transitions lists the allowed next states of each state.
// Terminal states have no entry. SignatureVerified may go straight to
// TxReverted when gas estimation reverts before submission.
var transitions = map[State][]State{
	StateReceived:            {StateFieldsValidated, StateFailed},
	StateFieldsValidated:     {StateSignatureNormalized, StateFailed},
	StateSignatureNormalized: {StateSignatureVerified, StateFailed},
	StateSignatureVerified:   {StateTxSubmitted, StateTxReverted, StateFailed},
	StateTxSubmitted:         {StateTxConfirmed, StateTxReverted},
}

var ErrIllegalTransition = errors.New("illegal claim state transition")

// CanTransitionTo reports whether next may follow s
func (s State) CanTransitionTo(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsTerminal reports whether no further transition is possible
func (s State) IsTerminal() bool {
	return len(transitions[s]) == 0
}

func (s State) Valid() bool {
	switch s {
	case StateReceived, StateFieldsValidated, StateSignatureNormalized, StateSignatureVerified,
		StateTxSubmitted, StateTxConfirmed, StateTxReverted, StateFailed:
		return true
	}
	return false
}

func checkTransition(from, to State) error {
	if !from.CanTransitionTo(to) {
		return fmt.Errorf("%w: %s -> %s", ErrIllegalTransition, from, to)
	}
	return nil
}
