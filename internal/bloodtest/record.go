package bloodtest

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
)

// Value is an optional lab measurement. The zero Value means "not found".
type Value struct {
	number float64
	found  bool
}

// Found wraps a detected measurement.
func Found(v float64) Value {
	return Value{number: v, found: true}
}

// NotFound is the absent measurement.
var NotFound = Value{}

// Get returns the measurement and whether it was detected.
func (v Value) Get() (float64, bool) {
	return v.number, v.found
}

// IsFound reports whether the value was detected.
func (v Value) IsFound() bool {
	return v.found
}

// String renders the value the way explanations print numbers.
func (v Value) String() string {
	if !v.found {
		return "not found"
	}
	return FormatNumber(v.number)
}

// MarshalJSON encodes absent values as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if !v.found {
		return []byte("null"), nil
	}
	return json.Marshal(v.number)
}

// ErrNonFinite is returned when a stored lab value is NaN or infinite.
var ErrNonFinite = errors.New("lab value is not a finite number")

// UnmarshalJSON accepts numbers, null, and numeric strings written by older clients.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*v = NotFound
		return nil
	}
	if trimmed[0] == '"' {
		var raw string
		if err := json.Unmarshal(trimmed, &raw); err != nil {
			return err
		}
		raw = strings.TrimSpace(raw)
		if raw == "" {
			*v = NotFound
			return nil
		}
		n, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return fmt.Errorf("lab value %q: %w", raw, err)
		}
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return fmt.Errorf("lab value %q: %w", raw, ErrNonFinite)
		}
		*v = Found(n)
		return nil
	}
	var n float64
	if err := json.Unmarshal(trimmed, &n); err != nil {
		return err
	}
	*v = Found(n)
	return nil
}

// FormatNumber prints n with the shortest representation ("120000", "4.8").
func FormatNumber(n float64) string {
	return strconv.FormatFloat(n, 'f', -1, 64)
}

// LabRecord maps metric names to measurements.
type LabRecord map[string]Value

// EmptyRecord returns a record with every default metric absent.
func EmptyRecord() LabRecord {
	rec := make(LabRecord, len(Metrics))
	for _, m := range Metrics {
		rec[m] = NotFound
	}
	return rec
}

// Get returns the measurement for metric.
func (r LabRecord) Get(metric string) (float64, bool) {
	return r[metric].Get()
}

// Missing lists the given metrics that are absent, in argument order.
func (r LabRecord) Missing(metrics ...string) []string {
	var out []string
	for _, m := range metrics {
		if !r[m].IsFound() {
			out = append(out, m)
		}
	}
	return out
}

// Equal reports whether both records hold the same measurements.
// A missing key and an explicit NotFound compare equal.
func (r LabRecord) Equal(other LabRecord) bool {
	for _, key := range unionKeys(r, other) {
		if r[key] != other[key] {
			return false
		}
	}
	return true
}

// Clone returns a copy of the record.
func (r LabRecord) Clone() LabRecord {
	out := make(LabRecord, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

func unionKeys(a, b LabRecord) []string {
	seen := make(map[string]struct{}, len(a)+len(b))
	for k := range a {
		seen[k] = struct{}{}
	}
	for k := range b {
		seen[k] = struct{}{}
	}
	keys := make([]string, 0, len(seen))
	for k := range seen {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
