package ports

import (
	"context"

	"github.com/layer-3/keygate/protocol"
)

// Sender writes one binary frame to the peer of a connection
type Sender interface {
	Send(ctx context.Context, frame []byte) error
}

// Codec turns messages into frames and frames into envelopes.
// Decode parses frames sent by clients and fails with a *protocol.DecodeError
// on malformed input.
type Codec interface {
	Encode(v interface{}) ([]byte, error)
	Decode(frame []byte) (*protocol.Envelope, error)
}
