package services

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	srvErrors "github.com/dscc-qa/backup-harness/pkg/errors"
)

const (
	DefaultTokenAudience = "backup-control-plane"
	DefaultTokenLifetime = 2 * time.Hour
)

type TokenClaims struct {
	ClientID   string `json:"client_id"`
	CustomerID string `json:"customer_id,omitempty"`
	Scope      string `json:"scope,omitempty"`
	jwt.RegisteredClaims
}

type Token struct {
	Signed    string
	ExpiresIn time.Duration
	Scope     string
}

type JWK struct {
	Kty string `json:"kty"`
	Alg string `json:"alg"`
	Kid string `json:"kid"`
	Use string `json:"use"`
	N   string `json:"n"`
	E   string `json:"e"`
}

// TokenIssuer implements the client-credentials grant of the mock control plane.
// It generates an RSA key pair at startup and signs RS256 tokens.
type TokenIssuer struct {
	privateKey *rsa.PrivateKey
	kid        string
	issuer     string
	customerID string
	clients    map[string]string
	lifetime   time.Duration
}

func NewTokenIssuer(issuer, customerID string, clients map[string]string, lifetime time.Duration) (*TokenIssuer, error) {
	privateKey, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		return nil, fmt.Errorf("generating RSA key: %w", err)
	}
	if lifetime <= 0 {
		lifetime = DefaultTokenLifetime
	}
	return &TokenIssuer{
		privateKey: privateKey,
		kid:        uuid.NewString(),
		issuer:     issuer,
		customerID: customerID,
		clients:    clients,
		lifetime:   lifetime,
	}, nil
}

// Issue checks the client credentials and returns a signed token.
func (t *TokenIssuer) Issue(clientID, clientSecret, scope string) (Token, error) {
	secret, ok := t.clients[clientID]
	if !ok || secret != clientSecret {
		return Token{}, srvErrors.NewUnauthorizedError("invalid client credentials")
	}

	now := time.Now()
	claims := TokenClaims{
		ClientID:   clientID,
		CustomerID: t.customerID,
		Scope:      scope,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(t.lifetime)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    t.issuer,
			Subject:   clientID,
			ID:        uuid.NewString(),
			Audience:  jwt.ClaimStrings{DefaultTokenAudience},
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = t.kid

	signed, err := token.SignedString(t.privateKey)
	if err != nil {
		return Token{}, fmt.Errorf("signing token: %w", err)
	}
	return Token{Signed: signed, ExpiresIn: t.lifetime, Scope: scope}, nil
}

// Verify parses a bearer token and checks its signature, issuer and expiry.
func (t *TokenIssuer) Verify(raw string) (*TokenClaims, error) {
	raw = strings.TrimSpace(strings.TrimPrefix(raw, "Bearer "))
	if raw == "" {
		return nil, srvErrors.NewUnauthorizedError("missing bearer token")
	}

	var claims TokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(tok *jwt.Token) (any, error) {
		if kid, _ := tok.Header["kid"].(string); kid != t.kid {
			return nil, fmt.Errorf("unknown key id %q", kid)
		}
		return &t.privateKey.PublicKey, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}),
		jwt.WithIssuer(t.issuer),
		jwt.WithAudience(DefaultTokenAudience),
		jwt.WithExpirationRequired(),
	)
	if err != nil {
		return nil, srvErrors.NewUnauthorizedError(err.Error())
	}
	return &claims, nil
}

// JWKS returns the public key set used to verify issued tokens.
func (t *TokenIssuer) JWKS() []JWK {
	pub := &t.privateKey.PublicKey
	return []JWK{
		{
			Kty: "RSA",
			Alg: "RS256",
			Kid: t.kid,
			Use: "sig",
			N:   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
			E:   base64.RawURLEncoding.EncodeToString(big.NewInt(int64(pub.E)).Bytes()),
		},
	}
}
