package core

import "time"

// State is the authentication state of a single connection
type State int

const (
	// StateAwaitingChallengeResponse is entered when the challenge is sent
	StateAwaitingChallengeResponse State = iota
	// StateAuthenticated is entered once the challenge response verifies
	StateAuthenticated
)

// String returns the state name used in logs
func (s State) String() string {
	switch s {
	case StateAwaitingChallengeResponse:
		return "awaiting_challenge_response"
	case StateAuthenticated:
		return "authenticated"
	default:
		return "unknown"
	}
}

// User is a registered identity with the public key it authenticates with
type User struct {
	ID        string    // Identifier the client claims in its challenge response
	Email     string    // Contact address of the user
	PublicKey []byte    // Key the challenge signature is verified against
	CreatedAt time.Time // When the user was registered
}

// PublicUser is the part of a User that may be sent to clients
type PublicUser struct {
	ID        string `msgpack:"id" json:"id"`
	Email     string `msgpack:"email" json:"email"`
	PublicKey []byte `msgpack:"publicKey" json:"publicKey"`
}

// Public returns the client-facing projection of the user.
// Fields added to User later stay private unless copied here.
func (u *User) Public() PublicUser {
	key := make([]byte, len(u.PublicKey))
	copy(key, u.PublicKey)
	return PublicUser{
		ID:        u.ID,
		Email:     u.Email,
		PublicKey: key,
	}
}

// Session represents an authenticated connection
type Session struct {
	ID        string    // Identifier of the connection the session is bound to
	UserID    string    // User the connection authenticated as
	IssuedAt  time.Time // When the session was created
	ExpiresAt time.Time // When the access capability expires
}
