package service

import (
	"context"
	"errors"
	"sync"

	"github.com/layer-3/keygate/core"
	"github.com/layer-3/keygate/internal/logging"
	"github.com/layer-3/keygate/ports"
	"github.com/layer-3/keygate/protocol"
)

// Connection is the authentication state machine of one channel.
//
// Frames are handled one at a time: OnFrame holds the connection lock for the
// whole of its work, collaborator calls included, so responses leave in the
// order their requests were processed.
type Connection struct {
	id        string
	auth      *Authenticator
	sender    ports.Sender
	logger    logging.Logger
	challenge []byte

	mu      sync.Mutex
	state   core.State
	userID  string
	session *core.Session
	closed  bool
}

// ID returns the connection identifier
func (c *Connection) ID() string {
	return c.id
}

// State returns the current authentication state
func (c *Connection) State() core.State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// UserID returns the authenticated user, if any
func (c *Connection) UserID() (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.userID, c.state == core.StateAuthenticated
}

// Closed reports whether OnClose has run
func (c *Connection) Closed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

// OnFrame handles one inbound frame and sends exactly one response.
// The returned error is non-nil only when the response could not be sent or
// the connection is already closed; protocol violations are answered, not returned.
func (c *Connection) OnFrame(ctx context.Context, frame []byte, binary bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return core.ErrConnectionClosed
	}

	if !binary {
		c.logger.Debug(ctx, "rejected non-binary frame", "size", len(frame))
		return c.sendError(ctx, protocol.ErrorCodeInvalidData)
	}

	env, err := c.auth.codec.Decode(frame)
	if err != nil {
		c.logger.Debug(ctx, "rejected undecodable frame", "error", err)
		return c.sendError(ctx, protocol.ErrorCodeInvalidData)
	}

	if err := env.Validate(); err != nil {
		c.logger.Debug(ctx, "rejected invalid envelope", "error", err)
		return c.sendError(ctx, protocol.ErrorCodeInvalidData)
	}

	kind, known := env.Kind()
	if !known {
		return c.sendError(ctx, protocol.ErrorCodeInvalidData)
	}

	switch c.state {
	case core.StateAwaitingChallengeResponse:
		switch kind {
		case protocol.ClientAuthenticationChallengeResp:
			return c.authenticate(ctx, env)
		default:
			return c.sendError(ctx, protocol.ErrorCodeInvalidData)
		}

	case core.StateAuthenticated:
		switch kind {
		case protocol.ClientAuthenticationChallengeResp:
			c.logger.Warn(ctx, "repeated challenge response on authenticated connection", "user_id", c.userID)
			return c.sendError(ctx, protocol.ErrorCodeAlreadyAuthenticated)
		default:
			// No post-authentication events are defined yet
			return c.sendError(ctx, protocol.ErrorCodeInvalidData)
		}

	default:
		return c.sendError(ctx, protocol.ErrorCodeInvalidData)
	}
}

// OnClose releases the connection. The session token it issued, if any, is
// revoked. Calling OnClose more than once has no further effect.
func (c *Connection) OnClose(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return
	}
	c.closed = true

	if c.session != nil && c.auth.store != nil {
		ttl := c.session.ExpiresAt.Sub(c.auth.now())
		if ttl > 0 {
			if err := c.auth.store.RevokeSession(ctx, c.session.ID, ttl); err != nil {
				c.logger.Warn(ctx, "failed to revoke session", "error", err)
			}
		}
	}

	c.logger.Info(ctx, "connection closed", "state", c.state.String(), "user_id", c.userID)
}

// authenticate runs the authentication procedure for a challenge response.
// Every outcome is answered with a success or failure message; collaborator
// faults are reported to the client instead of ending the connection.
func (c *Connection) authenticate(ctx context.Context, env *protocol.Envelope) error {
	user, err := c.verifyResponse(ctx, env)
	if err != nil {
		return c.fail(ctx, env.UserID, err)
	}

	token, session, err := c.auth.issueToken(c.id, user.ID)
	if err != nil {
		return c.fail(ctx, env.UserID, err)
	}

	c.state = core.StateAuthenticated
	c.userID = user.ID
	c.session = session

	c.logger.Info(ctx, "connection authenticated", "user_id", user.ID)

	if c.auth.eventPub != nil {
		if err := c.auth.eventPub.PublishAuthenticated(ctx, user.ID, c.id); err != nil {
			c.logger.Warn(ctx, "failed to publish authenticated event", "error", err)
		}
	}

	return c.send(ctx, protocol.NewSuccessMessage(user.Public(), token))
}

func (c *Connection) verifyResponse(ctx context.Context, env *protocol.Envelope) (*core.User, error) {
	ts, hasTimestamp := env.TimestampMillis()
	if err := c.auth.checkTimestamp(ts, hasTimestamp); err != nil {
		return nil, err
	}

	user, err := c.auth.findUser(ctx, env.UserID)
	if err != nil {
		return nil, err
	}

	var signedTS *int64
	if hasTimestamp {
		signedTS = &ts
	}
	payload, err := protocol.SignedPayload(c.challenge, signedTS)
	if err != nil {
		return nil, err
	}

	ok, err := c.auth.verify(payload, env.Signature, user.PublicKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, core.ErrInvalidSignature
	}

	return user, nil
}

func (c *Connection) fail(ctx context.Context, claimedUserID string, err error) error {
	var msg protocol.FailureMessage
	switch {
	case errors.Is(err, core.ErrInvalidSignature):
		msg = protocol.NewVerificationFailure()
	case errors.Is(err, core.ErrUserNotFound):
		msg = protocol.NewFailureMessage(protocol.FailureUserNotFound)
	case errors.Is(err, core.ErrTimestampRequired):
		msg = protocol.NewFailureMessage(protocol.FailureTimestampRequired)
	case errors.Is(err, core.ErrTimestampOutOfWindow):
		msg = protocol.NewFailureMessage(protocol.FailureTimestampOutOfWindow)
	default:
		c.logger.Error(ctx, "authentication fault", "user_id", claimedUserID, "error", err)
		msg = protocol.NewFailureMessage(err.Error())
	}

	c.logger.Info(ctx, "authentication failed", "user_id", claimedUserID, "reason", err.Error())

	if c.auth.eventPub != nil {
		if perr := c.auth.eventPub.PublishAuthenticationFailed(ctx, claimedUserID, c.id, err.Error()); perr != nil {
			c.logger.Warn(ctx, "failed to publish authentication failure event", "error", perr)
		}
	}

	return c.send(ctx, msg)
}

func (c *Connection) sendError(ctx context.Context, code protocol.ErrorCode) error {
	return c.send(ctx, protocol.NewErrorMessage(code))
}

func (c *Connection) send(ctx context.Context, msg interface{}) error {
	frame, err := c.auth.codec.Encode(msg)
	if err != nil {
		return err
	}
	return c.sender.Send(ctx, frame)
}
