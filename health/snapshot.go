package health

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

const (
	fieldOverall   = "overall"
	fieldTimestamp = "timestamp"
)

// Snapshot is the result of one aggregation cycle. Overall is derived from
// Services by NewSnapshot and is never set independently.
type Snapshot struct {
	Services  map[string]Result
	Overall   Status
	Timestamp time.Time
}

// NewSnapshot builds a snapshot from per-service results.
func NewSnapshot(services map[string]Result, at time.Time) Snapshot {
	statuses := make([]Status, 0, len(services))
	for _, r := range services {
		statuses = append(statuses, r.Status)
	}
	return Snapshot{
		Services:  services,
		Overall:   Worst(statuses...),
		Timestamp: at,
	}
}

// FallbackSnapshot reports every key as Down with reason. It stands in for a
// cycle that could not complete.
func FallbackSnapshot(keys []string, reason string, at time.Time) Snapshot {
	services := make(map[string]Result, len(keys))
	for _, key := range keys {
		services[key] = Down(reason, 0, at)
	}
	return NewSnapshot(services, at)
}

// Keys returns the service keys in sorted order.
func (s Snapshot) Keys() []string {
	keys := make([]string, 0, len(s.Services))
	for k := range s.Services {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MarshalJSON flattens the services next to "overall" and "timestamp".
func (s Snapshot) MarshalJSON() ([]byte, error) {
	doc := make(map[string]any, len(s.Services)+2)
	for k, r := range s.Services {
		doc[k] = r
	}
	doc[fieldOverall] = s.Overall
	doc[fieldTimestamp] = s.Timestamp
	return json.Marshal(doc)
}

// UnmarshalJSON is the inverse of MarshalJSON.
func (s *Snapshot) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	out := Snapshot{Services: make(map[string]Result, len(raw))}
	for k, v := range raw {
		var err error
		switch k {
		case fieldOverall:
			err = json.Unmarshal(v, &out.Overall)
		case fieldTimestamp:
			err = json.Unmarshal(v, &out.Timestamp)
		default:
			var r Result
			err = json.Unmarshal(v, &r)
			out.Services[k] = r
		}
		if err != nil {
			return fmt.Errorf("health: decode snapshot field %q: %w", k, err)
		}
	}
	*s = out
	return nil
}
