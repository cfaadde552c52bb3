package jwtx

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Token type discriminators embedded in the "type" claim. A token of one
// type must never validate as the other, even if an attacker replays it
// against the wrong endpoint.
const (
	TypeAccess  = "access"
	TypeRefresh = "refresh"
)

var (
	ErrMalformed = errors.New("jwtx: malformed token")
	ErrExpired   = errors.New("jwtx: token expired")
	ErrWrongType = errors.New("jwtx: wrong token type")
)

// Claims are the claims carried by both access and refresh tokens:
// {sub, type, token_version, exp}. Keeping the set minimal means the
// payload round-trips byte-identically between issue and validate.
type Claims struct {
	jwt.RegisteredClaims

	// Type is "access" or "refresh".
	Type string `json:"type"`

	// TokenVersion snapshots the user's token_version at issue time.
	// Bumping the stored version is the revocation mechanism for
	// everything issued before the bump.
	TokenVersion int `json:"token_version"`
}

// Codec signs and verifies tokens using two independent HMAC secrets,
// one per token type. Leaking one secret does not allow forging the
// other token class.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
}

// NewCodec builds a Codec for the named HMAC algorithm (HS256, HS384 or
// HS512). Both secrets must be non-empty and distinct.
func NewCodec(accessSecret, refreshSecret, algorithm string) (*Codec, error) {
	if accessSecret == "" || refreshSecret == "" {
		return nil, errors.New("jwtx: both signing secrets are required")
	}
	if accessSecret == refreshSecret {
		return nil, errors.New("jwtx: access and refresh secrets must differ")
	}

	method := jwt.GetSigningMethod(algorithm)
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("jwtx: unsupported signing algorithm %q", algorithm)
	}

	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		method:        method,
	}, nil
}

// Sign issues a token of the given type for userID, expiring at exp.
func (c *Codec) Sign(userID, tokenType string, tokenVersion int, exp time.Time) (string, error) {
	secret, err := c.secretFor(tokenType)
	if err != nil {
		return "", err
	}

	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   userID,
			ExpiresAt: jwt.NewNumericDate(exp),
		},
		Type:         tokenType,
		TokenVersion: tokenVersion,
	}

	return jwt.NewWithClaims(c.method, claims).SignedString(secret)
}

// Verify checks the signature and expiry of token against the secret for
// expectedType, then checks the embedded type claim. Errors distinguish
// ErrExpired, ErrWrongType and ErrMalformed so callers can log precisely;
// callers that face the outside world should flatten them to a single
// "invalid or expired" answer.
func (c *Codec) Verify(token, expectedType string) (Claims, error) {
	secret, err := c.secretFor(expectedType)
	if err != nil {
		return Claims{}, err
	}

	var claims Claims
	_, err = jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		return secret, nil
	}, jwt.WithValidMethods([]string{c.method.Alg()}))
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Claims{}, ErrExpired
		}
		return Claims{}, ErrMalformed
	}

	if claims.Type != expectedType {
		return Claims{}, ErrWrongType
	}
	if claims.Subject == "" {
		return Claims{}, ErrMalformed
	}

	return claims, nil
}

func (c *Codec) secretFor(tokenType string) ([]byte, error) {
	switch tokenType {
	case TypeAccess:
		return c.accessSecret, nil
	case TypeRefresh:
		return c.refreshSecret, nil
	default:
		return nil, fmt.Errorf("jwtx: unknown token type %q", tokenType)
	}
}
