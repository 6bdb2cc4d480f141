package utils // package utils provides helper functions for token creation and hashing

import (
	"errors" // sentinel errors for decode failures
	"fmt"    // error wrapping
	"time"   // expiry computation

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
	"github.com/google/uuid"       // unique token IDs
)

// Decode failure sentinels.  Callers distinguish an expired token from any
// other defect (bad signature, wrong kind, malformed payload) and nothing else.
var (
	ErrTokenExpired = errors.New("token has expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Token kind values carried in the "typ" claim.  Each kind is also signed
// with its own secret, so cross-use fails on both the claim and the signature.
const (
	kindAccess  = "access"
	kindRefresh = "refresh"
)

// SignedToken represents a signed JWT along with its expiry.  The Token
// field contains the serialized JWT string and Exp the UTC expiration time.
type SignedToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// Codec creates and parses the signed access and refresh tokens.  Access
// tokens are short-lived and authenticate individual requests; refresh
// tokens are long-lived and are exchanged for new access tokens.  The two
// kinds use distinct signing secrets.
type Codec struct {
	accessSecret  []byte
	refreshSecret []byte
	method        jwt.SigningMethod
	accessTTL     time.Duration
	refreshTTL    time.Duration
}

// NewCodec builds a Codec from the configured secrets, signing algorithm
// name (e.g. "HS256"), access TTL in minutes and session duration in days.
// An unknown algorithm name is an error; only HMAC methods are accepted
// because the secrets are symmetric keys.
func NewCodec(accessSecret, refreshSecret, algorithm string, accessTTLMin, loginTimeDays int) (*Codec, error) {
	method := jwt.GetSigningMethod(algorithm)
	if method == nil {
		return nil, fmt.Errorf("unknown signing algorithm %q", algorithm)
	}
	if _, ok := method.(*jwt.SigningMethodHMAC); !ok {
		return nil, fmt.Errorf("unsupported signing algorithm %q: only HMAC methods are allowed", algorithm)
	}
	return &Codec{
		accessSecret:  []byte(accessSecret),
		refreshSecret: []byte(refreshSecret),
		method:        method,
		accessTTL:     time.Duration(accessTTLMin) * time.Minute,
		refreshTTL:    time.Duration(loginTimeDays) * 24 * time.Hour,
	}, nil
}

// AccessTTL reports the configured access token lifetime.  Handlers use it
// to fill the expires_in field of token responses.
func (c *Codec) AccessTTL() time.Duration { return c.accessTTL }

// RefreshTTL reports the configured refresh token lifetime (the login
// duration).  The persisted refresh token row uses the same window.
func (c *Codec) RefreshTTL() time.Duration { return c.refreshTTL }

// NewAccessToken builds and signs a short-lived access token for a user.
// The claims carry the user ID as subject, the user's group name and the
// token kind.
func (c *Codec) NewAccessToken(userID uint64, group string) (SignedToken, error) {
	return c.sign(c.accessSecret, c.accessTTL, kindAccess, userID, group)
}

// NewRefreshToken builds and signs a long-lived refresh token for a user.
func (c *Codec) NewRefreshToken(userID uint64) (SignedToken, error) {
	return c.sign(c.refreshSecret, c.refreshTTL, kindRefresh, userID, "")
}

func (c *Codec) sign(secret []byte, ttl time.Duration, kind string, userID uint64, group string) (SignedToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	// jti keeps two tokens minted in the same second distinct; refresh rows
	// are stored under a unique key on the serialized token.
	claims := jwt.MapClaims{
		"sub": userID,
		"typ": kind,
		"jti": uuid.NewString(),
		"exp": exp.Unix(),
		"iat": now.Unix(),
	}
	if group != "" {
		claims["group"] = group
	}
	t := jwt.NewWithClaims(c.method, claims)
	signed, err := t.SignedString(secret)
	if err != nil {
		return SignedToken{}, err
	}
	return SignedToken{Token: signed, Exp: exp}, nil
}

// DecodeAccessToken verifies signature, expiry and kind of an access token
// and returns the embedded user ID.
func (c *Codec) DecodeAccessToken(token string) (uint64, error) {
	return c.decode(token, c.accessSecret, kindAccess)
}

// DecodeRefreshToken verifies signature, expiry and kind of a refresh token
// and returns the embedded user ID.
func (c *Codec) DecodeRefreshToken(token string) (uint64, error) {
	return c.decode(token, c.refreshSecret, kindRefresh)
}

func (c *Codec) decode(token string, secret []byte, kind string) (uint64, error) {
	tok, err := jwt.Parse(token, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrTokenInvalid
		}
		return secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return 0, ErrTokenExpired
		}
		return 0, ErrTokenInvalid
	}
	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok || !tok.Valid {
		return 0, ErrTokenInvalid
	}
	if typ, _ := claims["typ"].(string); typ != kind {
		return 0, ErrTokenInvalid
	}
	// JWT numeric values decode as float64.
	sub, ok := claims["sub"].(float64)
	if !ok || sub <= 0 {
		return 0, ErrTokenInvalid
	}
	return uint64(sub), nil
}
