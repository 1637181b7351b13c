package gotrue

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	goGuard "github.com/MrEthical07/goGuard"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func signedToken(t *testing.T, aal string) string {
	t.Helper()
	claims := jwt.MapClaims{"sub": "user-1"}
	if aal != "" {
		claims["aal"] = aal
	}
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

// fakeServer mimics the factor endpoints of a GoTrue server for one user.
type fakeServer struct {
	t *testing.T

	mu       sync.Mutex
	factors  []map[string]any
	upgraded string
	apiKeys  []string
}

func (s *fakeServer) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /factors", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(s.t, "totp", body["factor_type"])
		assert.Equal(s.t, "goGuard", body["issuer"])

		s.mu.Lock()
		s.factors = append(s.factors, map[string]any{
			"id": "f-1", "friendly_name": body["friendly_name"], "factor_type": "totp",
			"status": "unverified", "created_at": "2026-01-02T03:04:05Z",
		})
		s.mu.Unlock()

		writeJSON(w, http.StatusOK, map[string]any{
			"id":   "f-1",
			"type": "totp",
			"totp": map[string]string{"qr_code": "data:image/svg+xml;utf-8,<svg/>", "secret": "JBSWY3DPEHPK3PXP", "uri": "otpauth://totp/goGuard:u"},
		})
	})
	mux.HandleFunc("POST /factors/{id}/challenge", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("id") != "f-1" {
			writeJSON(w, http.StatusNotFound, map[string]string{"msg": "Factor not found"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"id": "c-1", "expires_at": 1767323045})
	})
	mux.HandleFunc("POST /factors/{id}/verify", func(w http.ResponseWriter, r *http.Request) {
		var body map[string]string
		require.NoError(s.t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(s.t, "c-1", body["challenge_id"])
		if body["code"] != "123456" {
			writeJSON(w, http.StatusUnprocessableEntity, map[string]any{"code": 422, "error_code": "mfa_verification_failed", "msg": "Invalid TOTP code entered"})
			return
		}
		s.mu.Lock()
		for _, f := range s.factors {
			f["status"] = "verified"
		}
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"access_token": s.upgraded, "token_type": "bearer"})
	})
	mux.HandleFunc("DELETE /factors/{id}", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		s.factors = nil
		s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]string{"id": r.PathValue("id")})
	})
	mux.HandleFunc("GET /user", func(w http.ResponseWriter, r *http.Request) {
		s.mu.Lock()
		defer s.mu.Unlock()
		writeJSON(w, http.StatusOK, map[string]any{"id": "user-1", "factors": s.factors})
	})

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") == "" {
			writeJSON(w, http.StatusUnauthorized, map[string]string{"msg": "missing token"})
			return
		}
		s.mu.Lock()
		s.apiKeys = append(s.apiKeys, r.Header.Get("apikey"))
		s.mu.Unlock()
		mux.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func newTestProvider(t *testing.T) (*Provider, *fakeServer) {
	t.Helper()
	fs := &fakeServer{t: t, upgraded: signedToken(t, "aal2")}
	srv := httptest.NewServer(fs.handler())
	t.Cleanup(srv.Close)

	p, err := New(Config{BaseURL: srv.URL + "/", APIKey: "anon-key"})
	require.NoError(t, err)
	p.SetSession("user-1", signedToken(t, "aal1"))
	return p, fs
}

func TestNewRejectsEmptyBaseURL(t *testing.T) {
	_, err := New(Config{})
	assert.Error(t, err)
}

func TestEnrollVerifyUnenrollFlow(t *testing.T) {
	p, fs := newTestProvider(t)
	ctx := context.Background()

	en, err := p.EnrollFactor(ctx, "user-1", goGuard.EnrollRequest{
		FactorType: goGuard.FactorTypeTOTP, FriendlyName: "Authenticator App", Issuer: "goGuard",
	})
	require.NoError(t, err)
	assert.Equal(t, "f-1", en.FactorID)
	assert.Equal(t, "JBSWY3DPEHPK3PXP", en.Secret)

	cur, next, err := p.AssuranceLevel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, goGuard.AAL1, cur)
	assert.Equal(t, goGuard.AAL1, next)

	c, err := p.CreateChallenge(ctx, "user-1", en.FactorID)
	require.NoError(t, err)
	assert.Equal(t, "c-1", c.ID)
	assert.Equal(t, int64(1767323045), c.ExpiresAt.Unix())

	err = p.VerifyChallenge(ctx, "user-1", en.FactorID, c.ID, "000000")
	assert.ErrorIs(t, err, ErrRejected)
	assert.Contains(t, err.Error(), "Invalid TOTP code entered")

	require.NoError(t, p.VerifyChallenge(ctx, "user-1", en.FactorID, c.ID, "123456"))
	assert.Equal(t, fs.upgraded, p.Token("user-1"))

	cur, next, err = p.AssuranceLevel(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, goGuard.AAL2, cur)
	assert.Equal(t, goGuard.AAL2, next)

	factors, err := p.ListFactors(ctx, "user-1")
	require.NoError(t, err)
	require.Len(t, factors, 1)
	assert.Equal(t, goGuard.FactorVerified, factors[0].Status)
	assert.Equal(t, 2026, factors[0].CreatedAt.Year())

	require.NoError(t, p.UnenrollFactor(ctx, "user-1", en.FactorID))
	factors, err = p.ListFactors(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, factors)

	for _, k := range fs.apiKeys {
		assert.Equal(t, "anon-key", k)
	}
}

func TestErrorsAreMapped(t *testing.T) {
	p, _ := newTestProvider(t)

	_, err := p.CreateChallenge(context.Background(), "user-1", "missing")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Contains(t, err.Error(), "Factor not found")

	_, err = p.ListFactors(context.Background(), "someone-else")
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestAssuranceLevelRejectsGarbageToken(t *testing.T) {
	p, _ := newTestProvider(t)
	p.SetSession("user-1", "not-a-jwt")

	_, _, err := p.AssuranceLevel(context.Background(), "user-1")
	assert.ErrorIs(t, err, ErrInvalidClaims)
}

func TestMissingAALClaimMeansAAL1(t *testing.T) {
	level, err := aalFromToken(signedToken(t, ""))
	require.NoError(t, err)
	assert.Equal(t, goGuard.AAL1, level)
}
