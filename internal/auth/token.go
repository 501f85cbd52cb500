// Package auth validates the bearer tokens the Auth Service issues to
// cashiers and carries the resulting identity through request contexts.
package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/pkg/errors"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleCashier Role = "cashier"
)

var (
	ErrTokenExpired = errors.New("token expired")
	ErrTokenInvalid = errors.New("invalid token")
)

// Claims mirrors the Auth Service token payload.
type Claims struct {
	UserID int64 `json:"user_id"`
	Role   Role  `json:"role"`
	jwt.RegisteredClaims
}

type Identity struct {
	UserID int64 `json:"userId"`
	Role   Role  `json:"role"`
}

// Validator checks HS256 tokens signed with the shared secret.
type Validator struct {
	secret []byte
	now    func() time.Time
}

func NewValidator(secret string) *Validator {
	return &Validator{secret: []byte(secret), now: time.Now}
}

func (v *Validator) Validate(raw string) (Identity, error) {
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(raw, claims,
		func(*jwt.Token) (any, error) { return v.secret, nil },
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(v.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return Identity{}, ErrTokenExpired
		}
		return Identity{}, errors.Wrap(ErrTokenInvalid, err.Error())
	}
	if claims.UserID <= 0 {
		return Identity{}, errors.Wrap(ErrTokenInvalid, "missing user_id")
	}
	return Identity{UserID: claims.UserID, Role: claims.Role}, nil
}

// Issue signs a token the way the Auth Service does. Used by tests and local
// tooling; production tokens come from the Auth Service.
func (v *Validator) Issue(id Identity, ttl time.Duration) (string, error) {
	claims := Claims{
		UserID: id.UserID,
		Role:   id.Role,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(v.now().Add(ttl)),
		},
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
	if err != nil {
		return "", errors.Wrap(err, "sign token")
	}
	return s, nil
}
