// Package client speaks the keygate authentication protocol from the
// client side of a websocket.
package client

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/websocket"

	"github.com/layer-3/keygate/core"
	"github.com/layer-3/keygate/protocol"
)

// ErrUnexpectedMessage is returned when the server replies out of protocol
var ErrUnexpectedMessage = errors.New("unexpected message")

// FailureError is a SERVER_AUTHENTICATION_FAILURE reply
type FailureError struct {
	Message string
}

func (e *FailureError) Error() string {
	return "authentication failed: " + e.Message
}

// ServerError is a SERVER_ERROR reply
type ServerError struct {
	Code protocol.ErrorCode
}

func (e *ServerError) Error() string {
	return fmt.Sprintf("server error: code %d", e.Code)
}

// Result is a successful authentication
type Result struct {
	User  core.PublicUser
	Token string
}

// Client is one websocket connection to a keygate server
type Client struct {
	conn      *websocket.Conn
	codec     protocol.Codec
	challenge []byte
	now       func() time.Time
}

// Dial connects to url and waits for the server's challenge
func Dial(ctx context.Context, url string) (*Client, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to dial %s: %w", url, err)
	}

	c := &Client{conn: conn, codec: protocol.NewCodec(), now: time.Now}

	env, err := c.ReadReply(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to read challenge: %w", err)
	}
	if kind, _ := env.Kind(); kind != protocol.ServerAuthenticationChallenge || len(env.Challenge) == 0 {
		conn.Close()
		return nil, fmt.Errorf("%w: expected challenge, got %v", ErrUnexpectedMessage, env.Type)
	}
	c.challenge = env.Challenge

	return c, nil
}

// Challenge returns the challenge the server sent on connect
func (c *Client) Challenge() []byte {
	return append([]byte(nil), c.challenge...)
}

// Authenticate answers the challenge as userID and waits for the outcome.
// A failure reply is returned as *FailureError, an error reply as *ServerError.
func (c *Client) Authenticate(ctx context.Context, userID string, signer Signer) (*Result, error) {
	ts := c.now().UnixMilli()
	payload, err := protocol.SignedPayload(c.challenge, &ts)
	if err != nil {
		return nil, err
	}

	sig, err := signer.Sign(payload)
	if err != nil {
		return nil, fmt.Errorf("failed to sign challenge: %w", err)
	}

	if err := c.Send(ctx, protocol.NewChallengeResponseMessage(userID, sig, &ts)); err != nil {
		return nil, err
	}

	env, err := c.ReadReply(ctx)
	if err != nil {
		return nil, err
	}

	kind, _ := env.Kind()
	switch kind {
	case protocol.ServerAuthenticationSuccess:
		if env.User == nil {
			return nil, fmt.Errorf("%w: success without user", ErrUnexpectedMessage)
		}
		return &Result{User: *env.User, Token: env.Token}, nil
	case protocol.ServerAuthenticationFailure:
		msg := env.Error
		if msg == "" {
			msg = env.Message
		}
		return nil, &FailureError{Message: msg}
	case protocol.ServerError:
		return nil, &ServerError{Code: env.ErrorCode}
	default:
		return nil, fmt.Errorf("%w: type %v", ErrUnexpectedMessage, env.Type)
	}
}

// Send encodes msg and writes it as a binary frame
func (c *Client) Send(ctx context.Context, msg interface{}) error {
	frame, err := c.codec.Encode(msg)
	if err != nil {
		return err
	}
	return c.WriteFrame(ctx, websocket.BinaryMessage, frame)
}

// WriteFrame writes a raw frame of the given websocket message type
func (c *Client) WriteFrame(ctx context.Context, messageType int, data []byte) error {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetWriteDeadline(deadline); err != nil {
		return err
	}
	return c.conn.WriteMessage(messageType, data)
}

// ReadReply reads and decodes the next frame from the server
func (c *Client) ReadReply(ctx context.Context) (*protocol.Envelope, error) {
	deadline, _ := ctx.Deadline()
	if err := c.conn.SetReadDeadline(deadline); err != nil {
		return nil, err
	}

	_, frame, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}

	env, err := c.codec.DecodeReply(frame)
	if err != nil {
		return nil, err
	}
	if err := env.Validate(); err != nil {
		return nil, err
	}
	return env, nil
}

// Close sends a normal close frame and closes the connection
func (c *Client) Close() error {
	msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
	_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
	return c.conn.Close()
}
