package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the claims of an access token. The JWT ID is the session
// ID, which is also the ID of the connection that authenticated.
type AccessClaims struct {
	jwt.RegisteredClaims
}
