package orchestrator

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	// ErrMaxToolRounds is returned when the model keeps requesting tools past the
	// configured number of rounds. The conversation is left consistent: every
	// tool-use has its result, so the exchange can be resumed.
	ErrMaxToolRounds = errors.New("maximum tool rounds reached")

	// ErrNothingToResume is returned by Resume when the conversation does not end
	// with a turn awaiting a model reply or pending tool calls.
	ErrNothingToResume = errors.New("conversation has nothing to resume")

	ErrMalformedResponse = errors.New("malformed model response")
)

// TransportError wraps a failure of the model endpoint. It is fatal to the current
// exchange; the conversation keeps every append made before the failure.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("model transport: %s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// IsTransportError reports whether err is, or wraps, a TransportError.
func IsTransportError(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}
