package health

import (
	"fmt"
)

// Status is the operational state of a service. Higher values take
// precedence when statuses are combined.
type Status int

const (
	// StatusOperational indicates the service answered as expected.
	StatusOperational Status = iota
	// StatusDegraded indicates the service answered with an unexpected status.
	StatusDegraded
	// StatusDown indicates the service did not answer.
	StatusDown
)

// String returns the string representation of the status.
func (s Status) String() string {
	switch s {
	case StatusOperational:
		return "operational"
	case StatusDegraded:
		return "degraded"
	case StatusDown:
		return "down"
	default:
		return "unknown"
	}
}

// ParseStatus is the inverse of String.
func ParseStatus(s string) (Status, error) {
	switch s {
	case "operational":
		return StatusOperational, nil
	case "degraded":
		return StatusDegraded, nil
	case "down":
		return StatusDown, nil
	default:
		return 0, fmt.Errorf("%w: %q", ErrUnknownStatus, s)
	}
}

// MarshalText implements encoding.TextMarshaler.
func (s Status) MarshalText() ([]byte, error) {
	if s < StatusOperational || s > StatusDown {
		return nil, fmt.Errorf("%w: %d", ErrUnknownStatus, int(s))
	}
	return []byte(s.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (s *Status) UnmarshalText(text []byte) error {
	parsed, err := ParseStatus(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// Worst returns the highest-precedence status among statuses, or
// StatusOperational when there are none.
func Worst(statuses ...Status) Status {
	worst := StatusOperational
	for _, s := range statuses {
		if s > worst {
			worst = s
		}
	}
	return worst
}
