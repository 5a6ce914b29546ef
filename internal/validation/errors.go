package validation

import (
	"encoding/json"
	"sync"
)

// Error describes one failed check on one location of the request body.
type Error struct {
	Message   string
	Type      string // always "json" for body validations
	Location  string
	Validator string
	Value     any
	ValueSet  bool
	Types     []string // populated by the type validator only
}

// MarshalJSON emits the wire representation. The value field is only present
// when a value was actually set, so "value": null still appears for an
// explicit JSON null while absent fields carry no value at all.
func (e *Error) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"message":   e.Message,
		"type":      e.Type,
		"location":  e.Location,
		"validator": e.Validator,
		"valueSet":  e.ValueSet,
	}
	if e.ValueSet {
		m["value"] = e.Value
	}
	if len(e.Types) > 0 {
		m["types"] = e.Types
	}
	return json.Marshal(m)
}

// Errors is an ordered list of validation errors.
type Errors []*Error

// At returns the errors recorded for a given location.
func (es Errors) At(location string) Errors {
	var out Errors
	for _, e := range es {
		if e.Location == location {
			out = append(out, e)
		}
	}
	return out
}

// sink accumulates errors for one evaluation frame. Parallel branches each get
// their own sink so merge order stays deterministic.
type sink struct {
	mu   sync.Mutex
	errs Errors
}

func (s *sink) add(e *Error) {
	s.mu.Lock()
	s.errs = append(s.errs, e)
	s.mu.Unlock()
}

func (s *sink) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.errs)
}

func (s *sink) at(location string) Errors {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.errs.At(location)
}

func (s *sink) merge(other *sink) {
	other.mu.Lock()
	errs := other.errs
	other.mu.Unlock()
	s.mu.Lock()
	s.errs = append(s.errs, errs...)
	s.mu.Unlock()
}
