package oidc

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testIssuer   = "https://issuer.test"
	testClientID = "cid.apps.googleusercontent.com"
)

func signIDToken(t *testing.T, key *rsa.PrivateKey, claims jwt.MapClaims) string {
	t.Helper()
	tok := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	raw, err := tok.SignedString(key)
	require.NoError(t, err)
	return raw
}

func baseClaims() jwt.MapClaims {
	return jwt.MapClaims{
		"iss":            testIssuer,
		"aud":            testClientID,
		"sub":            "1234567890",
		"name":           "Alice Example",
		"email":          "alice@example.com",
		"email_verified": true,
		"picture":        "https://example.com/alice.png",
		"iat":            time.Now().Unix(),
		"exp":            time.Now().Add(time.Hour).Unix(),
	}
}

func newTestProvider(t *testing.T, key *rsa.PrivateKey, tokenURL string) *GoogleProvider {
	t.Helper()
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return newGoogleProvider(Config{
		ClientID:     testClientID,
		ClientSecret: "csecret",
		RedirectURL:  "http://localhost:3000/auth/callback",
		Issuer:       testIssuer,
		TokenURL:     tokenURL,
	}, keySet, httpClient(2*time.Second))
}

func TestAuthCodeURL(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := newTestProvider(t, key, "")

	u, err := url.Parse(p.AuthCodeURL("state-123"))
	require.NoError(t, err)
	assert.Equal(t, "accounts.google.com", u.Host)
	q := u.Query()
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Equal(t, "openid email profile", q.Get("scope"))
	assert.Equal(t, "offline", q.Get("access_type"))
	assert.Equal(t, "consent", q.Get("prompt"))
	assert.Equal(t, "state-123", q.Get("state"))
	assert.Equal(t, testClientID, q.Get("client_id"))
	assert.Equal(t, "http://localhost:3000/auth/callback", q.Get("redirect_uri"))
}

func TestExchangeAndVerify(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	claims := baseClaims()
	claims["hd"] = "example.com"
	idToken := signIDToken(t, key, claims)

	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = r.ParseForm()
		if r.PostForm.Get("code") != "good-code" || r.PostForm.Get("client_secret") != "csecret" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant","error_description":"Bad Request"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]interface{}{
			"access_token":  "at",
			"refresh_token": "rt",
			"token_type":    "Bearer",
			"expires_in":    3599,
			"id_token":      idToken,
		})
	}))
	defer tokenSrv.Close()

	p := newTestProvider(t, key, tokenSrv.URL)
	ctx := context.Background()

	tokens, err := p.Exchange(ctx, "good-code")
	require.NoError(t, err)
	assert.Equal(t, "at", tokens.AccessToken)
	assert.Equal(t, "rt", tokens.RefreshToken)
	assert.Equal(t, idToken, tokens.IDToken)

	u, err := p.Verify(ctx, tokens.IDToken)
	require.NoError(t, err)
	assert.Equal(t, "1234567890", u.Sub)
	assert.Equal(t, "Alice Example", u.Name)
	assert.Equal(t, "alice@example.com", u.Email)
	assert.True(t, u.EmailVerified)
	assert.Equal(t, "https://example.com/alice.png", u.Picture)
	require.NotNil(t, u.HD)
	assert.Equal(t, "example.com", *u.HD)

	_, err = p.Exchange(ctx, "reused-code")
	assert.Error(t, err)
}

func TestExchange_MissingIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	tokenSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"at","token_type":"Bearer","expires_in":3599}`))
	}))
	defer tokenSrv.Close()

	p := newTestProvider(t, key, tokenSrv.URL)
	_, err = p.Exchange(context.Background(), "code")
	assert.ErrorIs(t, err, ErrMissingIDToken)
}

func TestVerify_Rejections(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	other, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := newTestProvider(t, key, "")
	ctx := context.Background()

	wrongAud := baseClaims()
	wrongAud["aud"] = "someone-else.apps.googleusercontent.com"

	wrongIss := baseClaims()
	wrongIss["iss"] = "https://evil.test"

	expired := baseClaims()
	expired["exp"] = time.Now().Add(-time.Hour).Unix()

	cases := map[string]string{
		"audience mismatch": signIDToken(t, key, wrongAud),
		"issuer mismatch":   signIDToken(t, key, wrongIss),
		"expired":           signIDToken(t, key, expired),
		"foreign key":       signIDToken(t, other, baseClaims()),
		"malformed":         "not-a-jwt",
	}
	for name, raw := range cases {
		t.Run(name, func(t *testing.T) {
			u, err := p.Verify(ctx, raw)
			assert.Error(t, err)
			assert.Nil(t, u)
		})
	}
}

func TestVerify_NoHostedDomainIsNil(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	p := newTestProvider(t, key, "")

	u, err := p.Verify(context.Background(), signIDToken(t, key, baseClaims()))
	require.NoError(t, err)
	assert.Nil(t, u.HD)

	b, err := json.Marshal(u)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"hd":null`)
}
