package service

// ValidationError rejects user input before any gateway call is made. The
// handler layer surfaces it inline instead of as a server failure, and the
// action is never retried automatically.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string {
	return e.Reason
}

var (
	ErrUnreviewedSuggestion = &ValidationError{Reason: "review or edit the suggestion before sending"}
	ErrEmptyReply           = &ValidationError{Reason: "cannot send an empty reply"}
)
