package core

import "errors"

var (
	ErrUserNotFound         = errors.New("user not found")
	ErrUserExists           = errors.New("user already exists")
	ErrInvalidSignature     = errors.New("invalid signature")
	ErrTimestampRequired    = errors.New("timestamp required")
	ErrTimestampOutOfWindow = errors.New("timestamp out of allowed window")
	ErrConnectionClosed     = errors.New("connection closed")
	ErrTokenExpired         = errors.New("token has expired")
	ErrTokenInvalidated     = errors.New("token has been invalidated")
	ErrInvalidToken         = errors.New("invalid token")
	ErrStoreOperationFailed = errors.New("store operation failed")
)
