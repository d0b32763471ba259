// Package auth validates bearer tokens and enforces role and ownership rules.
package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type Role string

const (
	RoleAdmin    Role = "admin"
	RoleSeller   Role = "vendedor"
	RoleCustomer Role = "cliente"
)

func (r Role) Valid() bool {
	return r == RoleAdmin || r == RoleSeller || r == RoleCustomer
}

// Identity is the caller decoded from a verified token.
type Identity struct {
	UserID     int64  `json:"user_id"`
	Role       Role   `json:"role"`
	CustomerID *int64 `json:"customer_id,omitempty"`
}

// IsStaff reports whether the identity belongs to shop staff.
func (i *Identity) IsStaff() bool {
	return i.Role == RoleAdmin || i.Role == RoleSeller
}

// CanAccessCustomer is true for staff and for the customer that owns the record.
func (i *Identity) CanAccessCustomer(customerID int64) bool {
	if i.IsStaff() {
		return true
	}
	return i.Role == RoleCustomer && i.CustomerID != nil && *i.CustomerID == customerID
}

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid or expired token")
)

type Claims struct {
	Role       Role   `json:"role"`
	CustomerID *int64 `json:"customer_id,omitempty"`
	jwt.RegisteredClaims
}

// Verifier checks HS256 tokens signed with a shared secret.
type Verifier struct {
	secret []byte
	issuer string
}

func NewVerifier(secret, issuer string) *Verifier {
	return &Verifier{secret: []byte(secret), issuer: issuer}
}

func (v *Verifier) Verify(token string) (*Identity, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(token, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	userID, err := strconv.ParseInt(claims.Subject, 10, 64)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrInvalidToken)
	}
	if !claims.Role.Valid() {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidToken, claims.Role)
	}

	return &Identity{UserID: userID, Role: claims.Role, CustomerID: claims.CustomerID}, nil
}

// Sign issues a token for id. Token issuance belongs to another system; this
// exists for tests and local tooling.
func (v *Verifier) Sign(id Identity, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		Role:       id.Role,
		CustomerID: id.CustomerID,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.FormatInt(id.UserID, 10),
			Issuer:    v.issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}

// BearerToken extracts the token from an Authorization header value.
func BearerToken(header string) (string, error) {
	scheme, token, ok := strings.Cut(strings.TrimSpace(header), " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
		return "", ErrMissingToken
	}
	return strings.TrimSpace(token), nil
}

type ctxKey struct{}

func WithIdentity(ctx context.Context, id *Identity) context.Context {
	return context.WithValue(ctx, ctxKey{}, id)
}

func FromContext(ctx context.Context) (*Identity, bool) {
	id, ok := ctx.Value(ctxKey{}).(*Identity)
	return id, ok && id != nil
}
