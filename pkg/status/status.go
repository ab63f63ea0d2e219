// Package status defines the device status record exchanged with an
// air purifier. The record is an opaque attribute map: the connection
// layer never interprets individual keys, it replaces the whole record
// on every observed update.
package status

import (
	"encoding/json"
	"fmt"
)

// DeviceStatus is the latest attribute snapshot reported by a device.
// A nil DeviceStatus means no refresh has completed yet.
//
// Snapshots are treated as immutable once published: readers may hold
// onto one, writers must Clone before modifying.
type DeviceStatus map[string]any

// Decode parses a JSON status payload as received from the device.
func Decode(data []byte) (DeviceStatus, error) {
	var s DeviceStatus
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode status payload: %w", err)
	}
	return s, nil
}

// Clone returns a shallow copy of the snapshot.
func (s DeviceStatus) Clone() DeviceStatus {
	if s == nil {
		return nil
	}
	out := make(DeviceStatus, len(s))
	for k, v := range s {
		out[k] = v
	}
	return out
}

// Has reports whether the snapshot contains the given attribute.
func (s DeviceStatus) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// String returns the attribute as a string.
func (s DeviceStatus) String(key string) (string, bool) {
	v, ok := s[key].(string)
	return v, ok
}

// Int returns the attribute as an int. JSON numbers decode as float64,
// so both representations are accepted.
func (s DeviceStatus) Int(key string) (int, bool) {
	switch v := s[key].(type) {
	case int:
		return v, true
	case int64:
		return int(v), true
	case float64:
		return int(v), true
	default:
		return 0, false
	}
}

// Float returns the attribute as a float64.
func (s DeviceStatus) Float(key string) (float64, bool) {
	switch v := s[key].(type) {
	case float64:
		return v, true
	case int:
		return float64(v), true
	case int64:
		return float64(v), true
	default:
		return 0, false
	}
}

// Bool returns the attribute as a bool.
func (s DeviceStatus) Bool(key string) (bool, bool) {
	v, ok := s[key].(bool)
	return v, ok
}
