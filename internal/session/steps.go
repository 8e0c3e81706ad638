package session

// Step is one stage of the four-step linear workflow.
type Step int

const (
	StepUpload   Step = 1
	StepReview   Step = 2
	StepShipping Step = 3
	StepPurchase Step = 4
)

// String returns the step's display name.
func (s Step) String() string {
	switch s {
	case StepUpload:
		return "Upload"
	case StepReview:
		return "Review"
	case StepShipping:
		return "Shipping"
	case StepPurchase:
		return "Purchase"
	default:
		return "Unknown"
	}
}

// GateError reports a blocked step transition. The navigation itself is a
// no-op; the message names the unmet precondition.
type GateError struct {
	From    Step
	To      Step
	Message string
}

// Error implements the error interface.
func (e *GateError) Error() string {
	return e.Message
}
