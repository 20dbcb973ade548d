package cache

import (
	"errors"
	"testing"
	"time"
)

func TestPolicy_EffectiveTTL(t *testing.T) {
	tests := []struct {
		name     string
		policy   Policy
		override time.Duration
		want     time.Duration
	}{
		{"default when zero", DefaultPolicy(), 0, 5 * time.Minute},
		{"default when negative", DefaultPolicy(), -time.Second, 5 * time.Minute},
		{"override kept", DefaultPolicy(), 10 * time.Minute, 10 * time.Minute},
		{"override clamped", DefaultPolicy(), 2 * time.Hour, time.Hour},
		{"no max", Policy{DefaultTTL: time.Minute}, 48 * time.Hour, 48 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.policy.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name    string
		policy  Policy
		wantErr bool
	}{
		{"default", DefaultPolicy(), false},
		{"unbounded", Policy{DefaultTTL: time.Minute}, false},
		{"zero default", Policy{MaxTTL: time.Hour}, true},
		{"negative max", Policy{DefaultTTL: time.Minute, MaxTTL: -1}, true},
		{"max below default", Policy{DefaultTTL: 10 * time.Minute, MaxTTL: time.Minute}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if (err != nil) != tt.wantErr || (err != nil && !errors.Is(err, ErrInvalidPolicy)) {
				t.Errorf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}
