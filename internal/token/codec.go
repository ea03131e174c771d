// Package token issues and verifies the signed, time-limited tokens used for
// access, refresh, email verification and password reset.
package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/videocave/backend/internal/apperr"
)

// Purpose binds a token to the single flow that may consume it.
type Purpose string

const (
	PurposeAccess        Purpose = "access"
	PurposeRefresh       Purpose = "refresh"
	PurposeEmailVerify   Purpose = "email-verify"
	PurposePasswordReset Purpose = "password-reset"
)

// Config holds the signing material. Refresh tokens use their own secret so a
// leaked access secret cannot mint refresh tokens.
type Config struct {
	AccessSecret  []byte
	RefreshSecret []byte
	Issuer        string
	Leeway        time.Duration
}

// Claims is the verified content of a token.
type Claims struct {
	Subject   string
	Purpose   Purpose
	ID        string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

type tokenClaims struct {
	Purpose Purpose `json:"pur"`
	jwt.RegisteredClaims
}

// Codec signs and verifies HS256 tokens. It is safe for concurrent use.
type Codec struct {
	cfg Config
	now func() time.Time
}

// NewCodec validates cfg and returns a codec.
func NewCodec(cfg Config) (*Codec, error) {
	if len(cfg.AccessSecret) == 0 {
		return nil, errors.New("token codec: access secret is required")
	}
	if len(cfg.RefreshSecret) == 0 {
		return nil, errors.New("token codec: refresh secret is required")
	}
	if string(cfg.AccessSecret) == string(cfg.RefreshSecret) {
		return nil, errors.New("token codec: access and refresh secrets must differ")
	}
	if cfg.Leeway < 0 || cfg.Leeway > 2*time.Minute {
		return nil, errors.New("token codec: invalid leeway")
	}
	return &Codec{cfg: cfg, now: time.Now}, nil
}

// WithNowFunc overrides the clock. Tests use it to move past expiry.
func (c *Codec) WithNowFunc(now func() time.Time) *Codec {
	c.now = now
	return c
}

// Issue signs a token for subject valid for ttl and returns it together with
// its expiry.
func (c *Codec) Issue(subject string, purpose Purpose, ttl time.Duration) (string, time.Time, error) {
	if strings.TrimSpace(subject) == "" {
		return "", time.Time{}, fmt.Errorf("issue %s token: empty subject", purpose)
	}
	if ttl <= 0 {
		return "", time.Time{}, fmt.Errorf("issue %s token: ttl must be positive", purpose)
	}
	key, err := c.keyFor(purpose)
	if err != nil {
		return "", time.Time{}, err
	}

	now := c.now().UTC().Truncate(time.Second)
	expiresAt := now.Add(ttl)
	claims := tokenClaims{
		Purpose: purpose,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    c.cfg.Issuer,
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(key)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("sign %s token: %w", purpose, err)
	}
	return signed, expiresAt, nil
}

// Verify checks signature, expiry, issuer and purpose. It fails with
// apperr.ErrTokenExpired when the token has expired and apperr.ErrTokenInvalid
// for every other defect.
func (c *Codec) Verify(raw string, purpose Purpose) (Claims, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Claims{}, apperr.New(apperr.ErrTokenInvalid, "token is required")
	}
	key, err := c.keyFor(purpose)
	if err != nil {
		return Claims{}, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithIssuedAt(),
		jwt.WithTimeFunc(c.now),
	}
	if c.cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(c.cfg.Issuer))
	}
	if c.cfg.Leeway > 0 {
		opts = append(opts, jwt.WithLeeway(c.cfg.Leeway))
	}

	var claims tokenClaims
	_, err = jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return key, nil
	}, opts...)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, apperr.Wrap(apperr.ErrTokenExpired, "token has expired", err)
		}
		return Claims{}, apperr.Wrap(apperr.ErrTokenInvalid, "token is invalid", err)
	}

	if claims.Purpose != purpose {
		return Claims{}, apperr.New(apperr.ErrTokenInvalid, "token is invalid")
	}
	if strings.TrimSpace(claims.Subject) == "" {
		return Claims{}, apperr.New(apperr.ErrTokenInvalid, "token is invalid")
	}

	out := Claims{
		Subject: claims.Subject,
		Purpose: claims.Purpose,
		ID:      claims.ID,
	}
	if claims.IssuedAt != nil {
		out.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		out.ExpiresAt = claims.ExpiresAt.Time
	}
	return out, nil
}

func (c *Codec) keyFor(purpose Purpose) ([]byte, error) {
	switch purpose {
	case PurposeRefresh:
		return c.cfg.RefreshSecret, nil
	case PurposeAccess, PurposeEmailVerify, PurposePasswordReset:
		return c.cfg.AccessSecret, nil
	default:
		return nil, fmt.Errorf("unknown token purpose %q", purpose)
	}
}
