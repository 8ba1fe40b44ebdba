// Package protocol defines the binary message contract spoken on a keygate
// channel: message type discriminants, error codes, the message shapes sent in
// both directions, and their msgpack encoding.
package protocol

import (
	"fmt"

	"github.com/layer-3/keygate/core"
)

// MessageType is the numeric discriminant carried in every message's type field
type MessageType uint16

const (
	// Server-sent messages
	ServerError MessageType = 0x0000

	// 0x001X series - Authentication
	ServerAuthenticationChallenge MessageType = 0x0011
	ServerAuthenticationSuccess   MessageType = 0x0012
	ServerAuthenticationFailure   MessageType = 0x0013

	// Client-sent events
	// 0x800X - Authentication
	ClientAuthenticationChallengeResp MessageType = 0x8000
)

// String returns the protocol name of the message type
func (t MessageType) String() string {
	switch t {
	case ServerError:
		return "SERVER_ERROR"
	case ServerAuthenticationChallenge:
		return "SERVER_AUTHENTICATION_CHALLENGE"
	case ServerAuthenticationSuccess:
		return "SERVER_AUTHENTICATION_SUCCESS"
	case ServerAuthenticationFailure:
		return "SERVER_AUTHENTICATION_FAILURE"
	case ClientAuthenticationChallengeResp:
		return "CLIENT_AUTHENTICATION_CHALLENGE_RESP"
	default:
		return fmt.Sprintf("0x%04x", uint16(t))
	}
}

// ErrorCode is carried in SERVER_ERROR messages
type ErrorCode int

const (
	ErrorCodeInvalidData          ErrorCode = 1
	ErrorCodeNotAuthenticatedYet  ErrorCode = 2 // reserved for operations gated on authentication
	ErrorCodeAlreadyAuthenticated ErrorCode = 3
)

// Failure texts sent in SERVER_AUTHENTICATION_FAILURE
const (
	FailureUserNotFound         = "User not found"
	FailureVerificationFailed   = "Verification failed."
	FailureTimestampRequired    = "Timestamp required"
	FailureTimestampOutOfWindow = "Timestamp out of allowed window"
)

// ErrorMessage is a SERVER_ERROR message
type ErrorMessage struct {
	Type      MessageType `msgpack:"type"`
	ErrorCode ErrorCode   `msgpack:"errorCode"`
}

// ChallengeMessage is a SERVER_AUTHENTICATION_CHALLENGE message
type ChallengeMessage struct {
	Type      MessageType `msgpack:"type"`
	Challenge []byte      `msgpack:"challenge"`
}

// SuccessMessage is a SERVER_AUTHENTICATION_SUCCESS message
type SuccessMessage struct {
	Type  MessageType     `msgpack:"type"`
	User  core.PublicUser `msgpack:"user"`
	Token string          `msgpack:"token,omitempty"`
}

// FailureMessage is a SERVER_AUTHENTICATION_FAILURE message.
// Semantic rejections of the signature use Error, everything else uses Message.
type FailureMessage struct {
	Type    MessageType `msgpack:"type"`
	Message string      `msgpack:"message,omitempty"`
	Error   string      `msgpack:"error,omitempty"`
}

// ChallengeResponseMessage is a CLIENT_AUTHENTICATION_CHALLENGE_RESP message
type ChallengeResponseMessage struct {
	Type      MessageType `msgpack:"type"`
	UserID    string      `msgpack:"userID"`
	Signature []byte      `msgpack:"signature"`
	Timestamp *int64      `msgpack:"timestamp,omitempty"`
}

// NewErrorMessage creates a SERVER_ERROR message with the given code
func NewErrorMessage(code ErrorCode) ErrorMessage {
	return ErrorMessage{Type: ServerError, ErrorCode: code}
}

// NewChallengeMessage creates a SERVER_AUTHENTICATION_CHALLENGE message
func NewChallengeMessage(challenge []byte) ChallengeMessage {
	return ChallengeMessage{Type: ServerAuthenticationChallenge, Challenge: challenge}
}

// NewSuccessMessage creates a SERVER_AUTHENTICATION_SUCCESS message
func NewSuccessMessage(user core.PublicUser, token string) SuccessMessage {
	return SuccessMessage{Type: ServerAuthenticationSuccess, User: user, Token: token}
}

// NewFailureMessage creates a SERVER_AUTHENTICATION_FAILURE message carrying a message text
func NewFailureMessage(message string) FailureMessage {
	return FailureMessage{Type: ServerAuthenticationFailure, Message: message}
}

// NewVerificationFailure creates the SERVER_AUTHENTICATION_FAILURE sent for a bad signature
func NewVerificationFailure() FailureMessage {
	return FailureMessage{Type: ServerAuthenticationFailure, Error: FailureVerificationFailed}
}

// NewChallengeResponseMessage creates a CLIENT_AUTHENTICATION_CHALLENGE_RESP message
func NewChallengeResponseMessage(userID string, signature []byte, timestamp *int64) ChallengeResponseMessage {
	return ChallengeResponseMessage{
		Type:      ClientAuthenticationChallengeResp,
		UserID:    userID,
		Signature: signature,
		Timestamp: timestamp,
	}
}
