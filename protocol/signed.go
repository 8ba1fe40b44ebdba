package protocol

import (
	"fmt"

	"github.com/vmihailenco/msgpack"
)

// signedObject is the value a client signs: the challenge under "buf" and the
// optional timestamp beside it
type signedObject struct {
	Buf       []byte `msgpack:"buf"`
	Timestamp *int64 `msgpack:"timestamp,omitempty"`
}

// SignedPayload returns the bytes covered by the client's signature for the
// given challenge and timestamp (unix milliseconds, nil when not sent).
// Client and server must build it with this function for signatures to match.
func SignedPayload(challenge []byte, timestamp *int64) ([]byte, error) {
	b, err := msgpack.Marshal(signedObject{Buf: challenge, Timestamp: timestamp})
	if err != nil {
		return nil, fmt.Errorf("failed to encode signed payload: %w", err)
	}
	return b, nil
}
