package eventlog

import (
	"errors"
	"io"
	"os"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Filter selects events when reading a log back. Zero-valued fields
// match everything.
type Filter struct {
	// ConnectionID matches one connection exactly.
	ConnectionID string

	// Direction matches one message direction.
	Direction *Direction

	// Category matches one event category.
	Category *Category

	// TimeStart keeps events at or after this time.
	TimeStart *time.Time

	// TimeEnd keeps events before this time.
	TimeEnd *time.Time
}

func (f *Filter) matches(event Event) bool {
	if f.ConnectionID != "" && event.ConnectionID != f.ConnectionID {
		return false
	}
	if f.Direction != nil && event.Direction != *f.Direction {
		return false
	}
	if f.Category != nil && event.Category != *f.Category {
		return false
	}
	if f.TimeStart != nil && event.Timestamp.Before(*f.TimeStart) {
		return false
	}
	if f.TimeEnd != nil && !event.Timestamp.Before(*f.TimeEnd) {
		return false
	}
	return true
}

// Reader iterates a CBOR event log file, streaming rather than loading
// it whole.
type Reader struct {
	file    *os.File
	decoder *cbor.Decoder
	filter  Filter
}

// NewReader opens a log file for reading all events.
func NewReader(path string) (*Reader, error) {
	return NewFilteredReader(path, Filter{})
}

// NewFilteredReader opens a log file for reading events matching the
// filter.
func NewFilteredReader(path string, filter Filter) (*Reader, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	return &Reader{
		file:    f,
		decoder: NewDecoder(f),
		filter:  filter,
	}, nil
}

// Next returns the next matching event, or io.EOF at end of log.
func (r *Reader) Next() (Event, error) {
	for {
		var event Event
		if err := r.decoder.Decode(&event); err != nil {
			return Event{}, err
		}
		if r.filter.matches(event) {
			return event, nil
		}
	}
}

// ReadAll drains the reader and returns every matching event.
func (r *Reader) ReadAll() ([]Event, error) {
	var events []Event
	for {
		event, err := r.Next()
		if errors.Is(err, io.EOF) {
			return events, nil
		}
		if err != nil {
			return events, err
		}
		events = append(events, event)
	}
}

// Close closes the underlying file.
func (r *Reader) Close() error {
	return r.file.Close()
}
