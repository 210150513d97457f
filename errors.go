package opvault

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

var (
	// ErrUnknownCategory reports an item whose category code is not one
	// of the documented values.
	ErrUnknownCategory = errors.New("opvault: unknown item category")
	// ErrItemVerify reports a per-item key blob whose MAC did not verify
	// under the master verification key.
	ErrItemVerify = errors.New("opvault: item key verification failed")
)

// UuidError reports a field that should contain a uuid but does not parse
// as one.
type UuidError struct {
	Raw string
	Err error
}

func (e *UuidError) Error() string {
	return fmt.Sprintf("opvault: parse uuid %q: %v", e.Raw, e.Err)
}

func (e *UuidError) Unwrap() error { return e.Err }

// parseUUID parses the undashed-hex uuid strings the format uses.
func parseUUID(s string) (uuid.UUID, error) {
	id, err := uuid.Parse(s)
	if err != nil {
		return uuid.Nil, &UuidError{Raw: s, Err: err}
	}
	return id, nil
}
