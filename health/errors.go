package health

import "errors"

var (
	// ErrUnknownStatus indicates a status value outside the known set.
	ErrUnknownStatus = errors.New("health: unknown status")

	// ErrInvalidSpec indicates a probe spec that cannot be run.
	ErrInvalidSpec = errors.New("health: invalid probe spec")

	// ErrDuplicateKey indicates two probe specs share a key.
	ErrDuplicateKey = errors.New("health: duplicate probe key")

	// ErrReservedKey indicates a probe key that collides with a snapshot field.
	ErrReservedKey = errors.New("health: reserved probe key")
)
