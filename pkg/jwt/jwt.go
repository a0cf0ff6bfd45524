package jwt

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrEmptySecret  = errors.New("jwt: secret vacío")
	ErrMissingStore = errors.New("jwt: token sin store_id")
	ErrMissingUser  = errors.New("jwt: token sin usuario")
)

// Identity quién opera y sobre qué tienda. Todo el ledger está particionado por StoreID.
type Identity struct {
	UserID  string
	StoreID string
	Role    string // "admin" | "bodeguero" | "vendedor"
}

// Claims claims estándar más tienda y rol. El usuario viaja en sub; user_id se acepta
// también porque el servicio de identidad lo sigue emitiendo.
type Claims struct {
	jwt.RegisteredClaims
	UserID  string `json:"user_id,omitempty"`
	StoreID string `json:"store_id"`
	Role    string `json:"role"`
}

func (c *Claims) identity() (Identity, error) {
	userID := c.Subject
	if userID == "" {
		userID = c.UserID
	}
	if userID == "" {
		return Identity{}, ErrMissingUser
	}
	if c.StoreID == "" {
		return Identity{}, ErrMissingStore
	}
	return Identity{UserID: userID, StoreID: c.StoreID, Role: c.Role}, nil
}

// Generate firma un token HS256 para id. No emite tokens sin usuario o sin tienda.
func Generate(secret string, id Identity, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", ErrEmptySecret
	}
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   id.UserID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		UserID:  id.UserID,
		StoreID: id.StoreID,
		Role:    id.Role,
	}
	if _, err := claims.identity(); err != nil {
		return "", err
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}

// Parse valida firma HMAC y expiración (obligatoria) y devuelve la identidad del token.
// Un token válido sin store_id falla con ErrMissingStore.
func Parse(secret, tokenString string) (Identity, error) {
	if secret == "" {
		return Identity{}, ErrEmptySecret
	}
	claims := &Claims{}
	_, err := jwt.ParseWithClaims(tokenString, claims,
		func(*jwt.Token) (interface{}, error) { return []byte(secret), nil },
		jwt.WithValidMethods([]string{"HS256", "HS384", "HS512"}),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return Identity{}, fmt.Errorf("jwt: %w", err)
	}
	return claims.identity()
}
