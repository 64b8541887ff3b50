package verification

// State names a step of the signup or password-reset verification flows.
type State string

// Signup flow: Pending -> Verified.
// Reset flow: ResetRequested -> OtpVerified -> PasswordUpdated.
const (
	StatePending         State = "pending"
	StateVerified        State = "verified"
	StateResetRequested  State = "reset_requested"
	StateOtpVerified     State = "otp_verified"
	StatePasswordUpdated State = "password_updated"
)

// transitions lists the permitted forward edges. Terminal states have none.
var transitions = map[State][]State{
	StatePending:        {StateVerified},
	StateResetRequested: {StateOtpVerified},
	StateOtpVerified:    {StatePasswordUpdated},
}

// CanTransition reports whether moving from s to next is permitted.
// Flows are one-directional; there is no edge back out of a terminal state.
func (s State) CanTransition(next State) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether s ends its flow.
func (s State) Terminal() bool {
	return len(transitions[s]) == 0
}
