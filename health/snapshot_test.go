package health

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestSnapshot_JSONShape(t *testing.T) {
	snap := NewSnapshot(map[string]Result{
		"github": Down(TimeoutMessage, 5*time.Second, fixedNow),
		"email":  Operational(120*time.Millisecond, fixedNow),
	}, fixedNow)

	data, err := json.Marshal(snap)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}

	var doc map[string]any
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if doc["overall"] != "down" {
		t.Errorf("overall = %v, want down", doc["overall"])
	}
	github := doc["github"].(map[string]any)
	if github["status"] != "down" || github["error"] != TimeoutMessage || github["responseTime"] != float64(5000) {
		t.Errorf("github = %v", github)
	}
	email := doc["email"].(map[string]any)
	if _, has := email["error"]; has {
		t.Errorf("operational result carries an error field: %v", email)
	}

	var back Snapshot
	if err := json.Unmarshal(data, &back); err != nil {
		t.Fatalf("decode snapshot: %v", err)
	}
	if back.Overall != StatusDown || back.Services["github"].Error != TimeoutMessage || !back.Timestamp.Equal(fixedNow) {
		t.Errorf("decoded snapshot = %+v", back)
	}
}

func TestFallbackSnapshot(t *testing.T) {
	snap := FallbackSnapshot([]string{"portfolio", "github"}, "Health check failed", fixedNow)

	if snap.Overall != StatusDown {
		t.Errorf("Overall = %v, want down", snap.Overall)
	}
	for _, key := range []string{"portfolio", "github"} {
		if r := snap.Services[key]; r.Status != StatusDown || r.Error != "Health check failed" {
			t.Errorf("%s = %+v", key, r)
		}
	}
	if got := snap.Keys(); strings.Join(got, ",") != "github,portfolio" {
		t.Errorf("Keys() = %v", got)
	}
}

func TestWriteSnapshot(t *testing.T) {
	tests := []struct {
		name     string
		status   Status
		wantCode int
	}{
		{"operational", StatusOperational, http.StatusOK},
		{"degraded", StatusDegraded, http.StatusOK},
		{"down", StatusDown, http.StatusServiceUnavailable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			snap := NewSnapshot(map[string]Result{"github": {Status: tt.status, LastChecked: fixedNow}}, fixedNow)
			rec := httptest.NewRecorder()

			if err := WriteSnapshot(rec, snap); err != nil {
				t.Fatalf("WriteSnapshot: %v", err)
			}
			if rec.Code != tt.wantCode {
				t.Errorf("code = %d, want %d", rec.Code, tt.wantCode)
			}
			cc := rec.Header().Get("Cache-Control")
			if !strings.Contains(cc, "no-cache") || !strings.Contains(cc, "no-store") {
				t.Errorf("Cache-Control = %q", cc)
			}
		})
	}
}

func TestStatus_Text(t *testing.T) {
	for _, s := range []Status{StatusOperational, StatusDegraded, StatusDown} {
		text, err := s.MarshalText()
		if err != nil {
			t.Fatalf("MarshalText(%v): %v", s, err)
		}
		var back Status
		if err := back.UnmarshalText(text); err != nil || back != s {
			t.Errorf("round trip of %v gave %v, %v", s, back, err)
		}
	}
	if _, err := ParseStatus("healthy"); err == nil {
		t.Error("ParseStatus accepted an unknown status")
	}
	if _, err := Status(9).MarshalText(); err == nil {
		t.Error("MarshalText accepted an out-of-range status")
	}
}

func TestLivenessHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	LivenessHandler()(rec, httptest.NewRequest(http.MethodGet, "/livez", nil))
	if rec.Code != http.StatusOK || rec.Body.String() != "OK" {
		t.Errorf("got %d %q", rec.Code, rec.Body.String())
	}
}
