package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/layer-3/keygate/core"
	"github.com/layer-3/keygate/internal/logging"
	"github.com/layer-3/keygate/ports"
	"github.com/layer-3/keygate/protocol"
)

// ChallengeSize is the number of random bytes in a connection challenge
const ChallengeSize = 24

const (
	DefaultMaxClockSkew   = 2 * time.Minute
	DefaultAccessTokenTTL = 15 * time.Minute
)

// Dependencies are the collaborators shared by every connection.
// Users, Verifier and Codec are required; the rest are optional.
type Dependencies struct {
	Users     ports.UserRepository
	Verifier  ports.SignatureVerifier
	Codec     ports.Codec
	Tokenizer ports.Tokenizer      // nil: success messages carry no token
	Store     ports.Store          // nil: closing a connection does not revoke its token
	EventPub  ports.EventPublisher // nil: no events are published
	Logger    logging.Logger
	Entropy   io.Reader        // defaults to crypto/rand.Reader
	Now       func() time.Time // defaults to time.Now
}

// Settings tune the authentication procedure
type Settings struct {
	// MaxClockSkew bounds how far a client timestamp may be from server time.
	// Zero disables the check and makes the timestamp optional.
	MaxClockSkew time.Duration

	// AccessTokenTTL is the lifetime of the token issued on success
	AccessTokenTTL time.Duration
}

// DefaultSettings returns the settings used when none are configured
func DefaultSettings() Settings {
	return Settings{
		MaxClockSkew:   DefaultMaxClockSkew,
		AccessTokenTTL: DefaultAccessTokenTTL,
	}
}

// Authenticator creates per-connection state machines and validates the
// access tokens they issue
type Authenticator struct {
	users     ports.UserRepository
	verifier  ports.SignatureVerifier
	codec     ports.Codec
	tokenizer ports.Tokenizer
	store     ports.Store
	eventPub  ports.EventPublisher
	logger    logging.Logger
	entropy   io.Reader
	now       func() time.Time

	maxClockSkew   time.Duration
	accessTokenTTL time.Duration
}

// NewAuthenticator creates a new authenticator
func NewAuthenticator(deps Dependencies, settings Settings) (*Authenticator, error) {
	if deps.Users == nil {
		return nil, errors.New("user repository is required")
	}
	if deps.Verifier == nil {
		return nil, errors.New("signature verifier is required")
	}
	if deps.Codec == nil {
		return nil, errors.New("codec is required")
	}

	a := &Authenticator{
		users:          deps.Users,
		verifier:       deps.Verifier,
		codec:          deps.Codec,
		tokenizer:      deps.Tokenizer,
		store:          deps.Store,
		eventPub:       deps.EventPub,
		logger:         deps.Logger,
		entropy:        deps.Entropy,
		now:            deps.Now,
		maxClockSkew:   settings.MaxClockSkew,
		accessTokenTTL: settings.AccessTokenTTL,
	}
	if a.logger == nil {
		a.logger = logging.Nop()
	}
	if a.entropy == nil {
		a.entropy = rand.Reader
	}
	if a.now == nil {
		a.now = time.Now
	}
	if a.accessTokenTTL <= 0 {
		a.accessTokenTTL = DefaultAccessTokenTTL
	}
	return a, nil
}

// Accept starts the protocol on a newly accepted channel: it generates the
// connection's challenge and sends it before any inbound frame is processed
func (a *Authenticator) Accept(ctx context.Context, sender ports.Sender) (*Connection, error) {
	challenge := make([]byte, ChallengeSize)
	if _, err := io.ReadFull(a.entropy, challenge); err != nil {
		return nil, fmt.Errorf("failed to generate challenge: %w", err)
	}

	id := uuid.New().String()
	c := &Connection{
		id:        id,
		auth:      a,
		sender:    sender,
		logger:    a.logger.With("connection_id", id),
		challenge: challenge,
		state:     core.StateAwaitingChallengeResponse,
	}

	if err := c.send(ctx, protocol.NewChallengeMessage(challenge)); err != nil {
		return nil, fmt.Errorf("failed to send challenge: %w", err)
	}

	c.logger.Debug(ctx, "challenge sent")
	return c, nil
}

// ValidateAccessToken checks an access token issued on successful
// authentication and returns its session
func (a *Authenticator) ValidateAccessToken(ctx context.Context, accessToken string) (*core.Session, error) {
	if a.tokenizer == nil {
		return nil, core.ErrInvalidToken
	}

	session, err := a.tokenizer.AccessTokenToSession(accessToken)
	if err != nil {
		return nil, fmt.Errorf("invalid access token: %w", err)
	}

	if a.now().After(session.ExpiresAt) {
		return nil, core.ErrTokenExpired
	}

	// The session dies with its connection
	if a.store != nil {
		revoked, err := a.store.IsSessionRevoked(ctx, session.ID)
		if err != nil {
			return nil, fmt.Errorf("failed to check session revocation: %w", err)
		}
		if revoked {
			return nil, core.ErrTokenInvalidated
		}
	}

	return session, nil
}

// checkTimestamp validates the client timestamp (unix milliseconds) against server time
func (a *Authenticator) checkTimestamp(ts int64, present bool) error {
	if a.maxClockSkew <= 0 {
		return nil
	}
	if !present {
		return core.ErrTimestampRequired
	}

	delta := a.now().Sub(time.UnixMilli(ts))
	if delta < 0 {
		delta = -delta
	}
	if delta > a.maxClockSkew {
		return core.ErrTimestampOutOfWindow
	}
	return nil
}

// verify runs the signature oracle, turning a panic into an error
// findUser shields the connection from a repository that panics or returns no
// user without an error
func (a *Authenticator) findUser(ctx context.Context, id string) (user *core.User, err error) {
	defer func() {
		if r := recover(); r != nil {
			user = nil
			err = fmt.Errorf("user lookup panicked: %v", r)
		}
	}()
	user, err = a.users.FindByID(ctx, id)
	if err == nil && user == nil {
		err = core.ErrUserNotFound
	}
	return user, err
}

func (a *Authenticator) verify(message, signature, publicKey []byte) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("signature verification panicked: %v", r)
		}
	}()
	return a.verifier.Verify(message, signature, publicKey), nil
}

func (a *Authenticator) issueToken(connectionID, userID string) (string, *core.Session, error) {
	now := a.now()
	session := &core.Session{
		ID:        connectionID,
		UserID:    userID,
		IssuedAt:  now,
		ExpiresAt: now.Add(a.accessTokenTTL),
	}
	if a.tokenizer == nil {
		return "", session, nil
	}

	token, err := a.tokenizer.SessionToAccessToken(session)
	if err != nil {
		return "", nil, fmt.Errorf("failed to create access token: %w", err)
	}
	return token, session, nil
}
