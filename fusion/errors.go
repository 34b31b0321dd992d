package fusion

import "github.com/pkg/errors"

// ErrInvalidInput is returned when a frame's buffers do not match their declared dimensions.
// The frame must be skipped; it is never reported as a clear path.
var ErrInvalidInput = errors.New("invalid fusion input")

func invalidInput(err error, what string) error {
	return errors.Wrapf(ErrInvalidInput, "%s: %v", what, err)
}

// IsInvalidInput returns whether err came from malformed fusion input.
func IsInvalidInput(err error) bool {
	return errors.Is(err, ErrInvalidInput)
}
