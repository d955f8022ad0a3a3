package client

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

const testKeyID = "test-key"

// testProvider is a minimal OIDC issuer: discovery document plus a one-key
// JWKS, enough for the verifier to fetch signing keys.
type testProvider struct {
	server *httptest.Server
	key    *rsa.PrivateKey
}

func newTestProvider(t *testing.T) *testProvider {
	t.Helper()

	key, err := rsa.GenerateKey(rand.Reader, 2048)
	if err != nil {
		t.Fatalf("generate key: %v", err)
	}

	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"issuer":                                server.URL,
			"jwks_uri":                              server.URL + "/keys",
			"authorization_endpoint":                server.URL + "/auth",
			"token_endpoint":                        server.URL + "/token",
			"id_token_signing_alg_values_supported": []string{"RS256"},
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		pub := key.Public().(*rsa.PublicKey)
		_ = json.NewEncoder(w).Encode(map[string]any{
			"keys": []map[string]string{{
				"kty": "RSA",
				"alg": "RS256",
				"use": "sig",
				"kid": testKeyID,
				"n":   base64.RawURLEncoding.EncodeToString(pub.N.Bytes()),
				"e":   "AQAB",
			}},
		})
	})

	return &testProvider{server: server, key: key}
}

func (p *testProvider) signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	if _, ok := claims["iss"]; !ok {
		claims["iss"] = p.server.URL
	}
	if _, ok := claims["exp"]; !ok {
		claims["exp"] = time.Now().Add(time.Hour).Unix()
	}
	if _, ok := claims["iat"]; !ok {
		claims["iat"] = time.Now().Unix()
	}

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(p.key)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newVerifierForProvider(t *testing.T, p *testProvider, audiences string) *OIDCVerifier {
	t.Helper()
	verifier, err := NewOIDCVerifier(context.Background(), p.server.URL, audiences)
	if err != nil {
		t.Fatalf("NewOIDCVerifier: %v", err)
	}
	return verifier
}

func TestOIDCVerifierExtractsClaims(t *testing.T) {
	p := newTestProvider(t)
	verifier := newVerifierForProvider(t, p, "mobile-client")

	idToken := p.signToken(t, jwt.MapClaims{
		"sub":            "g-12345",
		"aud":            "mobile-client",
		"email":          "ann@example.com",
		"email_verified": true,
		"given_name":     "Ann",
		"family_name":    "Lee",
		"picture":        "https://example.com/ann.png",
	})

	claims, err := verifier.Verify(context.Background(), idToken)
	if err != nil {
		t.Fatalf("Verify: %v", err)
	}
	if claims.Subject != "g-12345" || claims.Email != "ann@example.com" || !claims.EmailVerified {
		t.Fatalf("unexpected claims: %+v", claims)
	}
	if claims.GivenName != "Ann" || claims.FamilyName != "Lee" || claims.Picture == "" {
		t.Fatalf("profile claims dropped: %+v", claims)
	}
}

func TestOIDCVerifierToleratesForeignAudience(t *testing.T) {
	p := newTestProvider(t)
	verifier := newVerifierForProvider(t, p, "mobile-client")

	idToken := p.signToken(t, jwt.MapClaims{
		"sub":   "g-12345",
		"aud":   "some-other-client",
		"email": "ann@example.com",
	})

	// audience mismatches are logged, not rejected
	if _, err := verifier.Verify(context.Background(), idToken); err != nil {
		t.Fatalf("Verify: %v", err)
	}
}

func TestOIDCVerifierRejectsMissingEmail(t *testing.T) {
	p := newTestProvider(t)
	verifier := newVerifierForProvider(t, p, "mobile-client")

	idToken := p.signToken(t, jwt.MapClaims{
		"sub": "g-12345",
		"aud": "mobile-client",
	})

	if _, err := verifier.Verify(context.Background(), idToken); !errors.Is(err, ErrInvalidIDToken) {
		t.Fatalf("expected ErrInvalidIDToken, got %v", err)
	}
}

func TestOIDCVerifierRejectsExpiredToken(t *testing.T) {
	p := newTestProvider(t)
	verifier := newVerifierForProvider(t, p, "mobile-client")

	idToken := p.signToken(t, jwt.MapClaims{
		"sub":   "g-12345",
		"aud":   "mobile-client",
		"email": "ann@example.com",
		"exp":   time.Now().Add(-time.Minute).Unix(),
	})

	if _, err := verifier.Verify(context.Background(), idToken); !errors.Is(err, ErrInvalidIDToken) {
		t.Fatalf("expected ErrInvalidIDToken, got %v", err)
	}
}

func TestOIDCVerifierRejectsEmptyToken(t *testing.T) {
	p := newTestProvider(t)
	verifier := newVerifierForProvider(t, p, "mobile-client")

	if _, err := verifier.Verify(context.Background(), "  "); !errors.Is(err, ErrInvalidIDToken) {
		t.Fatalf("expected ErrInvalidIDToken, got %v", err)
	}
}

func TestSplitAudiences(t *testing.T) {
	cases := []struct {
		in   string
		want int
	}{
		{"", 0},
		{"a", 1},
		{"a, b ,c", 3},
		{" , ,", 0},
	}
	for _, tc := range cases {
		if got := splitAudiences(tc.in); len(got) != tc.want {
			t.Errorf("splitAudiences(%q) = %v, want %d entries", tc.in, got, tc.want)
		}
	}
}
