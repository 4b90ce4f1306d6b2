package security

import (
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"hireflow/internal/common"
)

type JWTProvider struct {
	secret []byte
	clock  func() time.Time
}

func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret), clock: time.Now}
}

// Claims identify a staff member and the capabilities granted to them. The
// staff id travels in the registered subject.
type Claims struct {
	Name         string   `json:"name,omitempty"`
	Email        string   `json:"email,omitempty"`
	Capabilities []string `json:"capabilities"`
	jwt.RegisteredClaims
}

func (p *JWTProvider) Generate(staffID common.UUID, name, email string, capabilities []Capability, ttl time.Duration) (string, time.Time, error) {
	now := p.clock().UTC()
	expiresAt := now.Add(ttl)
	caps := make([]string, 0, len(capabilities))
	for _, c := range capabilities {
		caps = append(caps, string(c))
	}
	claims := Claims{
		Name:         strings.TrimSpace(name),
		Email:        strings.TrimSpace(email),
		Capabilities: caps,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   staffID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(p.secret)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, expiresAt, nil
}

func (p *JWTProvider) Parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	parsed, err := jwt.ParseWithClaims(tokenString, claims, func(*jwt.Token) (any, error) {
		return p.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithTimeFunc(p.clock), jwt.WithExpirationRequired())
	if err != nil {
		return nil, err
	}
	if !parsed.Valid {
		return nil, errors.New("invalid token")
	}
	return claims, nil
}
