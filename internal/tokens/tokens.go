// Package tokens mints capability-scoped token requests for the hosted
// realtime backend.
package tokens

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrInvalidClientID   = errors.New("client id is required")
	ErrInvalidCapability = errors.New("invalid capability")
	ErrInvalidToken      = errors.New("invalid realtime token")
)

// Operations granted on the conversation namespace.
var DefaultOperations = []string{"publish", "subscribe", "presence"}

// Capability maps a resource pattern to the operations allowed on it.
type Capability map[string][]string

// Request is returned to clients, which hand it to the realtime backend.
type Request struct {
	KeyName    string     `json:"keyName"`
	ClientID   string     `json:"clientId"`
	Capability Capability `json:"capability"`
	Timestamp  int64      `json:"timestamp"`
	TTL        int64      `json:"ttl"`
	Nonce      string     `json:"nonce"`
	Token      string     `json:"token"`
}

// Claims are carried inside Request.Token.
type Claims struct {
	ClientID   string     `json:"x-client-id"`
	Capability Capability `json:"x-capability"`
	jwt.RegisteredClaims
}

type Issuer struct {
	keyName   string
	keySecret []byte
	namespace string
	ttl       time.Duration
	now       func() time.Time
}

func NewIssuer(keyName, keySecret, namespace string, ttl time.Duration) *Issuer {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &Issuer{
		keyName:   keyName,
		keySecret: []byte(keySecret),
		namespace: namespace,
		ttl:       ttl,
		now:       time.Now,
	}
}

// NamespaceCapability grants the default operations on every channel of
// the namespace.
func (i *Issuer) NamespaceCapability() Capability {
	ops := make([]string, len(DefaultOperations))
	copy(ops, DefaultOperations)
	return Capability{i.namespace + ":*": ops}
}

// Issue builds a signed token request for clientID.
func (i *Issuer) Issue(clientID string) (*Request, error) {
	if clientID == "" {
		return nil, ErrInvalidClientID
	}
	capability := i.NamespaceCapability()
	if err := validateCapability(capability); err != nil {
		return nil, err
	}

	now := i.now()
	nonce := uuid.NewString()
	claims := Claims{
		ClientID:   clientID,
		Capability: capability,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    i.keyName,
			Subject:   clientID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
			ID:        nonce,
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	token.Header["kid"] = i.keyName

	signed, err := token.SignedString(i.keySecret)
	if err != nil {
		return nil, fmt.Errorf("failed to sign token: %w", err)
	}

	return &Request{
		KeyName:    i.keyName,
		ClientID:   clientID,
		Capability: capability,
		Timestamp:  now.UnixMilli(),
		TTL:        i.ttl.Milliseconds(),
		Nonce:      nonce,
		Token:      signed,
	}, nil
}

// Verify parses a token minted by this issuer.
func (i *Issuer) Verify(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return i.keySecret, nil
	}, jwt.WithTimeFunc(i.now), jwt.WithIssuer(i.keyName))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims.ClientID == "" {
		return nil, ErrInvalidToken
	}
	if err := validateCapability(claims.Capability); err != nil {
		return nil, err
	}
	return claims, nil
}

// Allows reports whether the capability grants op on channel.
func (c Capability) Allows(channel, op string) bool {
	for pattern, ops := range c {
		if !matches(pattern, channel) {
			continue
		}
		for _, o := range ops {
			if o == op || o == "*" {
				return true
			}
		}
	}
	return false
}

func matches(pattern, resource string) bool {
	if pattern == "*" || pattern == resource {
		return true
	}
	n := len(pattern)
	if n >= 2 && pattern[n-2:] == ":*" {
		prefix := pattern[:n-1]
		return len(resource) >= len(prefix) && resource[:len(prefix)] == prefix
	}
	return false
}

func validateCapability(c Capability) error {
	if len(c) == 0 {
		return ErrInvalidCapability
	}
	for pattern, ops := range c {
		if pattern == "" || pattern == ":*" || len(ops) == 0 {
			return fmt.Errorf("%w: %q", ErrInvalidCapability, pattern)
		}
	}
	return nil
}
