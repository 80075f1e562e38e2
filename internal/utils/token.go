package utils // package utils provides helpers for reservation owner tokens

import (
    "errors"
    "time"

    "github.com/golang-jwt/jwt/v5"
)

// OwnerToken is a signed HS256 JWT that binds a reservation to the
// browser tab that created it.  The create endpoint mints one and the
// tab presents it on every subsequent mutation, so no account is needed
// to protect a hold from other callers.  The token outlives the hold
// window by a grace period so a late best-effort cancel (fired from a
// closing tab after expiry) is still authorized.
type OwnerToken struct {
    Token string    // the serialized JWT string
    Exp   time.Time // the UTC expiration time
}

// tokenGrace is how long past the hold deadline the token stays valid.
const tokenGrace = time.Hour

// Claims carried by an owner token.
type ownerClaims struct {
    SessionID uint64 `json:"sid"`
    Owner     string `json:"owner,omitempty"`
    jwt.RegisteredClaims
}

// ErrTokenMismatch is returned when a token is valid but was minted for
// a different reservation.
var ErrTokenMismatch = errors.New("token does not match reservation")

// NewOwnerToken builds and signs a token for a reservation.  Subject is
// the reservation id; sid names the session, and owner carries the
// optional authenticated user identifier.
func NewOwnerToken(secret, reservationID string, sessionID uint64, ownerID string, holdDeadline time.Time) (OwnerToken, error) {
    exp := holdDeadline.UTC().Add(tokenGrace)
    claims := ownerClaims{
        SessionID: sessionID,
        Owner:     ownerID,
        RegisteredClaims: jwt.RegisteredClaims{
            Subject:   reservationID,
            ExpiresAt: jwt.NewNumericDate(exp),
            IssuedAt:  jwt.NewNumericDate(time.Now().UTC()),
        },
    }
    t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
    signed, err := t.SignedString([]byte(secret))
    if err != nil {
        return OwnerToken{}, err
    }
    return OwnerToken{Token: signed, Exp: exp}, nil
}

// ParseOwnerToken verifies the signature and expiry of a token and
// checks that it was minted for the given reservation.  Returns the
// owner identifier stored in the token (empty for anonymous tabs).
func ParseOwnerToken(secret, raw, reservationID string) (string, error) {
    var claims ownerClaims
    tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
        if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
            return nil, errors.New("unexpected signing method")
        }
        return []byte(secret), nil
    })
    if err != nil {
        return "", err
    }
    if !tok.Valid {
        return "", errors.New("invalid token")
    }
    if claims.Subject != reservationID {
        return "", ErrTokenMismatch
    }
    return claims.Owner, nil
}
