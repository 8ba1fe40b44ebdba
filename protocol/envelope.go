package protocol

import (
	"errors"
	"math"

	"github.com/layer-3/keygate/core"
)

// ErrInvalidEnvelope is returned when a decoded message lacks a usable type
// discriminant or carries a field of the wrong kind
var ErrInvalidEnvelope = errors.New("invalid envelope")

// Envelope is a decoded message of either direction.
// Type and Timestamp are kept loosely typed because peers may encode numbers
// with any msgpack numeric format, floats included.
type Envelope struct {
	Type interface{} `msgpack:"type"`

	// CLIENT_AUTHENTICATION_CHALLENGE_RESP
	UserID    string      `msgpack:"userID"`
	Signature []byte      `msgpack:"signature"`
	Timestamp interface{} `msgpack:"timestamp"`

	// Server messages
	Challenge []byte           `msgpack:"challenge"`
	ErrorCode ErrorCode        `msgpack:"errorCode"`
	Message   string           `msgpack:"message"`
	Error     string           `msgpack:"error"`
	User      *core.PublicUser `msgpack:"user"`
	Token     string           `msgpack:"token"`
}

// Validate checks that the type field is present and a finite number, and that
// the optional timestamp, when present, is an integral number
func (e *Envelope) Validate() error {
	f, ok := toFloat64(e.Type)
	if !ok || math.IsNaN(f) || math.IsInf(f, 0) {
		return ErrInvalidEnvelope
	}
	if e.Timestamp != nil {
		if _, ok := toInt64(e.Timestamp); !ok {
			return ErrInvalidEnvelope
		}
	}
	return nil
}

// Kind returns the message type. The boolean is false when the type is not an
// integral value in the discriminant range; such messages are never recognized.
func (e *Envelope) Kind() (MessageType, bool) {
	v, ok := toInt64(e.Type)
	if !ok || v < 0 || v > math.MaxUint16 {
		return 0, false
	}
	return MessageType(v), true
}

// TimestampMillis returns the client timestamp in unix milliseconds and whether one was sent
func (e *Envelope) TimestampMillis() (int64, bool) {
	if e.Timestamp == nil {
		return 0, false
	}
	return toInt64(e.Timestamp)
}

func toFloat64(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case int8:
		return float64(n), true
	case int16:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	case int:
		return float64(n), true
	case uint8:
		return float64(n), true
	case uint16:
		return float64(n), true
	case uint32:
		return float64(n), true
	case uint64:
		return float64(n), true
	case uint:
		return float64(n), true
	case float32:
		return float64(n), true
	case float64:
		return n, true
	default:
		return 0, false
	}
}

func toInt64(v interface{}) (int64, bool) {
	switch n := v.(type) {
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case int:
		return int64(n), true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float32:
		return floatToInt64(float64(n))
	case float64:
		return floatToInt64(n)
	default:
		return 0, false
	}
}

func floatToInt64(f float64) (int64, bool) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return 0, false
	}
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return 0, false
	}
	return int64(f), true
}
