package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/MicahParks/keyfunc/v3"
	"github.com/golang-jwt/jwt/v5"

	"contentflow/internal/config"
	"contentflow/internal/domain"
)

// Auth modes accepted in AUTH_MODE
const (
	ModeNone   = "none"
	ModeSecret = "secret"
	ModeJWKS   = "jwks"
)

// NewVerifier builds the verifier for cfg.AuthMode. ModeNone returns nil,
// which the middleware treats as auth disabled.
func NewVerifier(ctx context.Context, cfg *config.Config, logger *slog.Logger) (Verifier, error) {
	switch cfg.AuthMode {
	case "", ModeNone:
		return nil, nil
	case ModeSecret:
		return NewSecretVerifier(cfg.SecretKey, logger)
	case ModeJWKS:
		return NewJWKSVerifier(ctx, cfg.JWKSURL, logger)
	default:
		return nil, fmt.Errorf("unknown AUTH_MODE %q", cfg.AuthMode)
	}
}

// SecretVerifier checks HS256 tokens signed with SECRET_KEY
type SecretVerifier struct {
	secret []byte
	logger *slog.Logger
}

// NewSecretVerifier creates an HS256 verifier
func NewSecretVerifier(secret string, logger *slog.Logger) (*SecretVerifier, error) {
	if secret == "" {
		return nil, errors.New("SECRET_KEY is required when AUTH_MODE=secret")
	}
	return &SecretVerifier{secret: []byte(secret), logger: logger}, nil
}

func (v *SecretVerifier) VerifyToken(tokenString string) (*Claims, error) {
	return parse(tokenString, func(*jwt.Token) (any, error) { return v.secret, nil }, []string{"HS256"}, v.logger)
}

func (v *SecretVerifier) Close() error { return nil }

// JWKSVerifier checks RS256/ES256 tokens against a JWKS endpoint.
// keyfunc caches the key set and refreshes it in the background.
type JWKSVerifier struct {
	jwks   keyfunc.Keyfunc
	cancel context.CancelFunc
	logger *slog.Logger
}

// NewJWKSVerifier fetches the key set at jwksURL
func NewJWKSVerifier(ctx context.Context, jwksURL string, logger *slog.Logger) (*JWKSVerifier, error) {
	if jwksURL == "" {
		return nil, errors.New("JWKS_URL is required when AUTH_MODE=jwks")
	}

	ctx, cancel := context.WithCancel(ctx)
	jwks, err := keyfunc.NewDefaultCtx(ctx, []string{jwksURL})
	if err != nil {
		cancel()
		return nil, fmt.Errorf("failed to create JWKS client: %w", err)
	}

	logger.Info("JWT verifier initialized", "jwks_url", jwksURL)
	return &JWKSVerifier{jwks: jwks, cancel: cancel, logger: logger}, nil
}

func (v *JWKSVerifier) VerifyToken(tokenString string) (*Claims, error) {
	return parse(tokenString, v.jwks.Keyfunc, []string{"RS256", "ES256"}, v.logger)
}

// Close stops the background JWKS refresh
func (v *JWKSVerifier) Close() error {
	v.cancel()
	return nil
}

// parse pins the accepted algorithms to prevent algorithm confusion
func parse(tokenString string, keys jwt.Keyfunc, algs []string, logger *slog.Logger) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, keys,
		jwt.WithValidMethods(algs),
		jwt.WithExpirationRequired(),
	)
	if err != nil || !token.Valid {
		logger.Debug("token rejected", "error", err)
		return nil, &domain.UnauthorizedError{Message: "invalid or expired token"}
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || claims.Subject == "" {
		return nil, &domain.UnauthorizedError{Message: "token has no subject"}
	}
	return claims, nil
}

// IssueToken signs an HS256 token for subject, for local tooling and tests
func IssueToken(secret, subject string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{RegisteredClaims: jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
