package eventlog

import (
	"fmt"
	"io"
	"time"

	"github.com/fxamacker/cbor/v2"
)

// Event represents a connection log event captured by the client or
// the coordinator. CBOR encoding uses integer keys for compactness.
type Event struct {
	// Timestamp when the event occurred (nanosecond precision).
	Timestamp time.Time `cbor:"1,keyasint"`

	// ConnectionID uniquely identifies the device connection (UUID).
	ConnectionID string `cbor:"2,keyasint"`

	// Direction indicates message flow.
	Direction Direction `cbor:"3,keyasint"`

	// Category classifies the event type.
	Category Category `cbor:"4,keyasint"`

	// RemoteAddr is the device address (host:port).
	RemoteAddr string `cbor:"5,keyasint,omitempty"`

	// Type-specific payload (one of these will be set).
	Exchange    *ExchangeEvent    `cbor:"6,keyasint,omitempty"` // Request/response round trips
	Update      *UpdateEvent      `cbor:"7,keyasint,omitempty"` // Observed status pushes
	StateChange *StateChangeEvent `cbor:"8,keyasint,omitempty"` // Connection lifecycle
	Error       *ErrorEventData   `cbor:"9,keyasint,omitempty"` // Faults at any layer
}

// Direction indicates the direction of message flow.
type Direction uint8

const (
	// DirectionIn indicates an incoming message.
	DirectionIn Direction = 0
	// DirectionOut indicates an outgoing message.
	DirectionOut Direction = 1
)

// String returns the direction name.
func (d Direction) String() string {
	switch d {
	case DirectionIn:
		return "IN"
	case DirectionOut:
		return "OUT"
	default:
		return "UNKNOWN"
	}
}

// Category classifies the event type.
type Category uint8

const (
	// CategoryExchange indicates a request/response round trip.
	CategoryExchange Category = 0
	// CategoryUpdate indicates an observed status push.
	CategoryUpdate Category = 1
	// CategoryState indicates a connection lifecycle change.
	CategoryState Category = 2
	// CategoryError indicates an error event.
	CategoryError Category = 3
)

// String returns the category name.
func (c Category) String() string {
	switch c {
	case CategoryExchange:
		return "EXCHANGE"
	case CategoryUpdate:
		return "UPDATE"
	case CategoryState:
		return "STATE"
	case CategoryError:
		return "ERROR"
	default:
		return "UNKNOWN"
	}
}

// ExchangeEvent captures a request/response round trip with the device.
type ExchangeEvent struct {
	// Path is the resource path the request targeted.
	Path string `cbor:"1,keyasint"`

	// Code is the response code as reported by the CoAP layer.
	Code string `cbor:"2,keyasint,omitempty"`

	// PayloadSize is the response payload size in bytes.
	PayloadSize int `cbor:"3,keyasint,omitempty"`

	// RoundTrip is the duration from request send to response receipt.
	// Stored as nanoseconds.
	RoundTrip time.Duration `cbor:"4,keyasint,omitempty"`
}

// UpdateEvent captures an observed status notification.
type UpdateEvent struct {
	// Path is the observed resource path.
	Path string `cbor:"1,keyasint"`

	// PayloadSize is the notification payload size in bytes.
	PayloadSize int `cbor:"2,keyasint,omitempty"`

	// Attributes is the number of attributes in the decoded status.
	Attributes int `cbor:"3,keyasint,omitempty"`
}

// StateChangeEvent captures a connection lifecycle transition.
type StateChangeEvent struct {
	// OldState is the state before the transition.
	OldState string `cbor:"1,keyasint"`

	// NewState is the state after the transition.
	NewState string `cbor:"2,keyasint"`

	// Reason describes why the transition happened.
	Reason string `cbor:"3,keyasint,omitempty"`
}

// ErrorEventData captures an error at any layer.
type ErrorEventData struct {
	// Message is the error message.
	Message string `cbor:"1,keyasint"`

	// Context describes what was being attempted.
	Context string `cbor:"2,keyasint,omitempty"`
}

// Events are encoded deterministically with RFC 3339 nanosecond
// timestamps; decoding is lenient so logs from newer versions still
// read.
var (
	encMode cbor.EncMode
	decMode cbor.DecMode
)

func init() {
	var err error

	encOpts := cbor.EncOptions{
		Sort:          cbor.SortCanonical,
		IndefLength:   cbor.IndefLengthForbidden,
		NilContainers: cbor.NilContainerAsNull,
		Time:          cbor.TimeRFC3339Nano,
	}
	encMode, err = encOpts.EncMode()
	if err != nil {
		panic(fmt.Sprintf("event CBOR encoder mode: %v", err))
	}

	decOpts := cbor.DecOptions{
		DupMapKey:         cbor.DupMapKeyQuiet,
		IndefLength:       cbor.IndefLengthAllowed,
		ExtraReturnErrors: cbor.ExtraDecErrorNone,
	}
	decMode, err = decOpts.DecMode()
	if err != nil {
		panic(fmt.Sprintf("event CBOR decoder mode: %v", err))
	}
}

// EncodeEvent encodes an Event to CBOR bytes.
func EncodeEvent(event Event) ([]byte, error) {
	return encMode.Marshal(event)
}

// DecodeEvent decodes CBOR bytes into an Event.
func DecodeEvent(data []byte) (Event, error) {
	var event Event
	if err := decMode.Unmarshal(data, &event); err != nil {
		return Event{}, err
	}
	return event, nil
}

// NewEncoder creates an event encoder writing to w.
func NewEncoder(w io.Writer) *cbor.Encoder {
	return encMode.NewEncoder(w)
}

// NewDecoder creates an event decoder reading from r.
func NewDecoder(r io.Reader) *cbor.Decoder {
	return decMode.NewDecoder(r)
}
