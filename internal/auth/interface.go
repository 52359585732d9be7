package auth

import "github.com/golang-jwt/jwt/v5"

// Claims are the registered JWT claims; only the subject is used
type Claims struct {
	jwt.RegisteredClaims
}

// Verifier validates bearer tokens.
type Verifier interface {
	// VerifyToken validates a token string and returns its claims.
	// Any failure is domain.ErrUnauthorized.
	VerifyToken(tokenString string) (*Claims, error)

	// Close releases resources such as the JWKS refresh goroutine
	Close() error
}
