package resilience

import (
	"errors"
	"fmt"
	"testing"
)

func TestRejected(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrCircuitOpen, true},
		{fmt.Errorf("github: %w", ErrBulkheadFull), true},
		{ErrTimeout, false},
		{errors.New("HTTP 502"), false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := Rejected(tt.err); got != tt.want {
			t.Errorf("Rejected(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
