package authscope

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/originpoint/backend/internal/config"
)

// Verifier validates bearer tokens against the IdP's JWKS per spec.md §6.4.
// Adapted from the HMAC-secret Authenticator in
// josephblackelite-nhbchain/gateway/middleware/auth.go to RSA/JWKS
// verification — the extract→parse→validate-claims shape is unchanged.
type Verifier struct {
	jwks     *JWKSCache
	issuer   string
	audience string
	leeway   time.Duration
}

func NewVerifier(cfg config.AuthConfig) *Verifier {
	return &Verifier{
		jwks:     NewJWKSCache(cfg.JWKSURL, time.Duration(cfg.JWKSCacheTTLSec)*time.Second),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		leeway:   time.Duration(cfg.LeewaySec) * time.Second,
	}
}

// Verify parses and validates tokenString, returning the resolved Principal.
func (v *Verifier) Verify(ctx context.Context, tokenString string) (Principal, error) {
	claims := jwt.MapClaims{}

	parserOpts := []jwt.ParserOption{jwt.WithLeeway(v.leeway)}
	if v.issuer != "" {
		parserOpts = append(parserOpts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		parserOpts = append(parserOpts, jwt.WithAudience(v.audience))
	}

	_, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, fmt.Errorf("authscope: unexpected signing method %v", token.Header["alg"])
		}
		kid, ok := token.Header["kid"].(string)
		if !ok || kid == "" {
			return nil, fmt.Errorf("authscope: token missing kid header")
		}
		return v.jwks.Key(ctx, kid)
	}, parserOpts...)
	if err != nil {
		return Principal{}, fmt.Errorf("authscope: token invalid: %w", err)
	}

	subject, _ := claims["sub"].(string)
	if subject == "" {
		return Principal{}, fmt.Errorf("authscope: token missing sub claim")
	}

	role, all := resolveRole(extractRealmRoles(claims))
	return Principal{Subject: subject, Role: role, AllRoles: all}, nil
}

// extractRealmRoles reads the IdP's realm_access.roles claim, the shape
// Keycloak-family IdPs (and this service's staging IdP) emit.
func extractRealmRoles(claims jwt.MapClaims) []string {
	realmAccess, ok := claims["realm_access"].(map[string]interface{})
	if !ok {
		return nil
	}
	rawRoles, ok := realmAccess["roles"].([]interface{})
	if !ok {
		return nil
	}
	roles := make([]string, 0, len(rawRoles))
	for _, r := range rawRoles {
		if s, ok := r.(string); ok {
			roles = append(roles, s)
		}
	}
	return roles
}
