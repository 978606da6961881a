package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pizza-api/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	// ErrInvalidToken is returned for tokens that are malformed, badly signed or expired
	ErrInvalidToken = errors.New("invalid token")
	// ErrRevoked is returned for tokens that were logged out
	ErrRevoked = errors.New("token revoked")
)

// Identity is what a valid token proves: who the caller is and the roles they
// held when the token was issued. Role changes show up only after a new login.
type Identity struct {
	UserID uint
	Name   string
	Email  string
	Roles  []models.Role
}

func (i Identity) HasRole(r models.Role) bool {
	for _, role := range i.Roles {
		if role == r {
			return true
		}
	}
	return false
}

type Claims struct {
	UserID uint          `json:"id"`
	Name   string        `json:"name"`
	Email  string        `json:"email"`
	Roles  []models.Role `json:"roles"`
	jwt.RegisteredClaims
}

// Token is an issued session credential
type Token struct {
	Value     string
	Identity  Identity
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Ledger issues, validates and revokes session tokens. Issued tokens are
// self-validating; only revocations are stored.
type Ledger struct {
	secret  []byte
	ttl     time.Duration
	revoked Revocations
	now     func() time.Time
}

func NewLedger(secret []byte, ttl time.Duration, revoked Revocations) *Ledger {
	return &Ledger{secret: secret, ttl: ttl, revoked: revoked, now: time.Now}
}

// Issue mints a signed token carrying user's id, name, email and current roles
func (l *Ledger) Issue(user *models.User) (Token, error) {
	now := l.now()
	identity := Identity{UserID: user.ID, Name: user.Name, Email: user.Email, Roles: user.RoleSet()}
	claims := Claims{
		UserID: identity.UserID,
		Name:   identity.Name,
		Email:  identity.Email,
		Roles:  identity.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			// unique per issuance so two logins in the same second never share a value
			ID:        uuid.NewString(),
			Subject:   fmt.Sprint(user.ID),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(l.ttl)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(l.secret)
	if err != nil {
		return Token{}, fmt.Errorf("failed to sign token: %w", err)
	}
	return Token{
		Value:     signed,
		Identity:  identity,
		IssuedAt:  claims.IssuedAt.Time,
		ExpiresAt: claims.ExpiresAt.Time,
	}, nil
}

func (l *Ledger) parse(value string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(value, claims, func(t *jwt.Token) (interface{}, error) {
		return l.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(l.now))
	if err != nil || !token.Valid {
		return nil, ErrInvalidToken
	}
	return claims, nil
}

// Validate resolves a token to the identity it was issued for
func (l *Ledger) Validate(ctx context.Context, value string) (Identity, error) {
	claims, err := l.parse(value)
	if err != nil {
		return Identity{}, err
	}
	revoked, err := l.revoked.Contains(ctx, value)
	if err != nil {
		return Identity{}, fmt.Errorf("failed to check revocation: %w", err)
	}
	if revoked {
		return Identity{}, ErrRevoked
	}
	return Identity{
		UserID: claims.UserID,
		Name:   claims.Name,
		Email:  claims.Email,
		Roles:  knownRoles(claims.Roles),
	}, nil
}

// knownRoles drops role names this service does not define
func knownRoles(roles []models.Role) []models.Role {
	known := make([]models.Role, 0, len(roles))
	for _, r := range roles {
		if r.Valid() {
			known = append(known, r)
		}
	}
	return known
}

// Revoke permanently rejects value. Revoking twice is a no-op.
func (l *Ledger) Revoke(ctx context.Context, value string) error {
	expiresAt := l.now().Add(l.ttl)
	if claims, err := l.parse(value); err == nil && claims.ExpiresAt != nil {
		expiresAt = claims.ExpiresAt.Time
	}
	if err := l.revoked.Add(ctx, value, expiresAt); err != nil {
		return fmt.Errorf("failed to revoke token: %w", err)
	}
	return nil
}
