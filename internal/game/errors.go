package game

import (
	"errors"
	"fmt"
)

// ErrUnitNotFound is wrapped by every UnitNotFoundError.
var ErrUnitNotFound = errors.New("unit not found")

// UnitNotFoundError reports a lookup against an id the game does not know.
type UnitNotFoundError struct {
	ID string
}

func (e *UnitNotFoundError) Error() string {
	return fmt.Sprintf("unit %q not found", e.ID)
}

func (e *UnitNotFoundError) Unwrap() error {
	return ErrUnitNotFound
}
