package protocol

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack"
	"github.com/vmihailenco/msgpack/codes"

	"github.com/layer-3/keygate/core"
)

// DecodeError is returned when a frame is not a decodable msgpack message
type DecodeError struct {
	Err error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("failed to decode frame: %v", e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

var errNotAMap = errors.New("frame is not a map")

// Codec encodes and decodes messages with msgpack
type Codec struct{}

// NewCodec creates a new msgpack codec
func NewCodec() Codec {
	return Codec{}
}

// Encode serializes a message into a single frame
func (Codec) Encode(v interface{}) ([]byte, error) {
	b, err := msgpack.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("failed to encode message: %w", err)
	}
	return b, nil
}

// clientFrame holds the keys a client may send. Keys belonging to server
// messages are skipped whatever their type.
type clientFrame struct {
	Type      interface{} `msgpack:"type"`
	UserID    string      `msgpack:"userID"`
	Signature []byte      `msgpack:"signature"`
	Timestamp interface{} `msgpack:"timestamp"`
}

type serverFrame struct {
	Type      interface{}      `msgpack:"type"`
	Challenge []byte           `msgpack:"challenge"`
	ErrorCode ErrorCode        `msgpack:"errorCode"`
	Message   string           `msgpack:"message"`
	Error     string           `msgpack:"error"`
	User      *core.PublicUser `msgpack:"user"`
	Token     string           `msgpack:"token"`
}

// Decode parses a frame sent by a client into an Envelope. Any failure,
// including a panic inside the decoder on hostile input, is reported as a
// *DecodeError.
func (Codec) Decode(frame []byte) (*Envelope, error) {
	var f clientFrame
	if err := decodeMap(frame, &f); err != nil {
		return nil, err
	}
	return &Envelope{
		Type:      f.Type,
		UserID:    f.UserID,
		Signature: f.Signature,
		Timestamp: f.Timestamp,
	}, nil
}

// DecodeReply parses a frame sent by the server into an Envelope
func (Codec) DecodeReply(frame []byte) (*Envelope, error) {
	var f serverFrame
	if err := decodeMap(frame, &f); err != nil {
		return nil, err
	}
	return &Envelope{
		Type:      f.Type,
		Challenge: f.Challenge,
		ErrorCode: f.ErrorCode,
		Message:   f.Message,
		Error:     f.Error,
		User:      f.User,
		Token:     f.Token,
	}, nil
}

// decodeMap unmarshals frame into v. Struct decoding in msgpack also accepts
// arrays, filling fields by position, so anything other than a map at the top
// level is rejected first.
func decodeMap(frame []byte, v interface{}) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &DecodeError{Err: fmt.Errorf("decoder panic: %v", r)}
		}
	}()

	if len(frame) == 0 {
		return &DecodeError{Err: fmt.Errorf("empty frame")}
	}

	c, err := msgpack.NewDecoder(bytes.NewReader(frame)).PeekCode()
	if err != nil {
		return &DecodeError{Err: err}
	}
	if !codes.IsFixedMap(c) && c != codes.Map16 && c != codes.Map32 {
		return &DecodeError{Err: errNotAMap}
	}

	if err := msgpack.Unmarshal(frame, v); err != nil {
		return &DecodeError{Err: err}
	}
	return nil
}
