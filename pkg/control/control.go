// Package control implements the thin control surfaces on top of a
// coordinator: filter reset buttons and the humidifier. Every write
// goes through the coordinator's current client handle, followed by an
// optimistic patch of the cached status; the next observed update
// confirms or corrects it.
package control

import (
	"errors"
)

// Control surface errors.
var (
	// ErrUnsupportedModel is returned when the capability table has no
	// entry for the model, or the model lacks the requested surface.
	ErrUnsupportedModel = errors.New("unsupported model")

	// ErrNoStatus is returned when a command needs the status snapshot
	// but no refresh has completed yet.
	ErrNoStatus = errors.New("no status snapshot available")

	// ErrOutOfRange is returned for setpoints outside the model's
	// supported range.
	ErrOutOfRange = errors.New("value out of range")
)
