package federation

import (
	"errors"
	"fmt"
)

var (
	// ErrMalformedIdentifier is returned when an identity or object id is
	// not an absolute http(s) URL.
	ErrMalformedIdentifier = errors.New("malformed identifier")

	// ErrVerificationFailed is returned when a received collection does not
	// belong to the expected domain.
	ErrVerificationFailed = errors.New("collection verification failed")

	// ErrItemConversion is matched by every ItemConversionError.
	ErrItemConversion = errors.New("item conversion failed")
)

// ItemConversionError reports the collection item whose conversion aborted a
// batch.
type ItemConversionError struct {
	Index int
	ID    string
	Err   error
}

func (e *ItemConversionError) Error() string {
	if e.ID != "" {
		return fmt.Sprintf("item %d (%s): %v", e.Index, e.ID, e.Err)
	}
	return fmt.Sprintf("item %d: %v", e.Index, e.Err)
}

func (e *ItemConversionError) Unwrap() []error {
	return []error{ErrItemConversion, e.Err}
}
