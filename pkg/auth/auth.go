package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/clientcredentials"
)

// DefaultTokenLifetime is applied to tokens issued without an expiry.
const DefaultTokenLifetime = 2 * time.Hour

const (
	HeaderAuthToken = "X-Auth-Token"
	HeaderTraceID   = "X-B3-TraceId"
	HeaderSpanID    = "X-B3-SpanId"
)

type ClientCredentials struct {
	ClientID     string
	ClientSecret string
	TokenURL     string
	Scopes       []string
}

// NewClientCredentialsSource returns a token source that fetches tokens with the
// OAuth2 client-credentials grant and reuses them until they expire.
func NewClientCredentialsSource(ctx context.Context, creds ClientCredentials) oauth2.TokenSource {
	cfg := &clientcredentials.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		TokenURL:     creds.TokenURL,
		Scopes:       creds.Scopes,
		AuthStyle:    oauth2.AuthStyleInParams,
	}
	return oauth2.ReuseTokenSource(nil, &lifetimeSource{ctx: ctx, cfg: cfg, now: time.Now})
}

// NewStaticSource returns a token source for a pre-issued token.
func NewStaticSource(token string) oauth2.TokenSource {
	return oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token, TokenType: "Bearer"})
}

type lifetimeSource struct {
	ctx context.Context
	cfg *clientcredentials.Config
	now func() time.Time
}

func (s *lifetimeSource) Token() (*oauth2.Token, error) {
	tok, err := s.cfg.Token(s.ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch access token from %s: %w", s.cfg.TokenURL, err)
	}
	if tok.Expiry.IsZero() {
		tok.Expiry = s.now().Add(DefaultTokenLifetime)
	}
	zap.S().Named("auth").Debugw("access token issued", "client_id", s.cfg.ClientID, "expiry", tok.Expiry)
	return tok, nil
}

// Authorizer decorates outgoing requests with the credential and trace headers
// expected by the control plane.
type Authorizer struct {
	source oauth2.TokenSource
	mu     sync.Mutex
}

func NewAuthorizer(source oauth2.TokenSource) *Authorizer {
	return &Authorizer{source: source}
}

func (a *Authorizer) Apply(req *http.Request) error {
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(HeaderTraceID, NewTraceID())
	req.Header.Set(HeaderSpanID, NewSpanID())

	if a == nil || a.source == nil {
		return nil
	}

	a.mu.Lock()
	tok, err := a.source.Token()
	a.mu.Unlock()
	if err != nil {
		return err
	}

	req.Header.Set("Authorization", "Bearer "+tok.AccessToken)
	req.Header.Set(HeaderAuthToken, tok.AccessToken)
	return nil
}

// NewTraceID returns 32 lowercase hex characters.
func NewTraceID() string {
	return strings.ReplaceAll(uuid.NewString(), "-", "")
}

// NewSpanID returns 16 lowercase hex characters.
func NewSpanID() string {
	return NewTraceID()[:16]
}

type TokenClaims struct {
	Subject   string
	Issuer    string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
	Extra     map[string]any
}

// Claims decodes a JWT without verifying its signature.
func Claims(token string) (*TokenClaims, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	tc := &TokenClaims{Extra: map[string]any{}}
	tc.Subject, _ = claims.GetSubject()
	tc.Issuer, _ = claims.GetIssuer()
	tc.Audience, _ = claims.GetAudience()
	if exp, _ := claims.GetExpirationTime(); exp != nil {
		tc.ExpiresAt = exp.Time
	}
	if iat, _ := claims.GetIssuedAt(); iat != nil {
		tc.IssuedAt = iat.Time
	}
	for k, v := range claims {
		switch k {
		case "sub", "iss", "aud", "exp", "iat", "nbf":
		default:
			tc.Extra[k] = v
		}
	}
	return tc, nil
}
