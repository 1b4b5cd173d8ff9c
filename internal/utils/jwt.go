package utils // package utils provides helpers for token creation, hashing and input sanitizing

import (
	"errors"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
type AccessToken struct {
	Token string    // the serialized JWT string
	Exp   time.Time // the UTC expiration time
}

// NewAccessToken builds and signs an HS256 JWT for a user.  The subject is
// the decimal user id; role names travel along for display only, since
// capabilities are always resolved from the database.
func NewAccessToken(secret string, userID uint64, roles []string, ttlMin int) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(time.Duration(ttlMin) * time.Minute)
	claims := jwt.MapClaims{
		"sub":   strconv.FormatUint(userID, 10),
		"roles": roles,
		"exp":   exp.Unix(),
		"iat":   now.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}

// ErrInvalidNonce is returned when a nonce is malformed, expired, or bound
// to another user or action.
var ErrInvalidNonce = errors.New("invalid nonce")

type nonceClaims struct {
	Action string `json:"act"`
	jwt.RegisteredClaims
}

// NonceSigner issues short-lived tokens proving a form or link was produced
// for a given user and action.
type NonceSigner struct {
	Secret string
	TTL    time.Duration
}

// Create returns a nonce for userID and action.
func (s NonceSigner) Create(userID uint64, action string) (string, error) {
	now := time.Now().UTC()
	claims := nonceClaims{
		Action: action,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatUint(userID, 10),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.TTL)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(s.Secret))
}

// Verify checks that token was issued by Create for userID and action.
func (s NonceSigner) Verify(token string, userID uint64, action string) error {
	var claims nonceClaims
	tok, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (interface{}, error) {
		return []byte(s.Secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil || !tok.Valid {
		return ErrInvalidNonce
	}
	if claims.Action != action || claims.Subject != strconv.FormatUint(userID, 10) {
		return ErrInvalidNonce
	}
	return nil
}
