package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"

	pkgAuth "github.com/shopwire/shopwire-backend/pkg/auth"
	"github.com/shopwire/shopwire-backend/pkg/config"
	"github.com/shopwire/shopwire-backend/pkg/logger"
)

func testJWTConfig() config.JWTConfig {
	return config.JWTConfig{
		Secret:            "test-secret",
		Issuer:            "shopwire-test",
		ExpirationMinutes: 15,
	}
}

func authHarness(t *testing.T, cfg config.JWTConfig) (http.Handler, *string, *string) {
	t.Helper()

	var gotUser, gotShop string
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = UserIDFromContext(r.Context())
		gotShop = ShopIDFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	logg := logger.New(logger.Options{ServiceName: "test", Output: io.Discard})
	return Auth(cfg, logg)(next), &gotUser, &gotShop
}

func TestAuthAcceptsBearerToken(t *testing.T) {
	cfg := testJWTConfig()
	userID := uuid.New()
	shopID := uuid.New()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: userID,
		ShopID: shopID,
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler, gotUser, gotShop := authHarness(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed/events", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
	if *gotUser != userID.String() {
		t.Fatalf("expected user %s, got %s", userID, *gotUser)
	}
	if *gotShop != shopID.String() {
		t.Fatalf("expected shop %s, got %s", shopID, *gotShop)
	}
}

func TestAuthAcceptsQueryToken(t *testing.T) {
	cfg := testJWTConfig()
	token, err := pkgAuth.MintAccessToken(cfg, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		ShopID: uuid.New(),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}

	handler, _, _ := authHarness(t, cfg)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed/stream?token="+token, nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)

	if resp.Code != http.StatusNoContent {
		t.Fatalf("unexpected status %d: %s", resp.Code, resp.Body.String())
	}
}

func TestAuthRejectsMissingAndBadTokens(t *testing.T) {
	handler, _, _ := authHarness(t, testJWTConfig())

	req := httptest.NewRequest(http.MethodGet, "/api/v1/feed/events", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for missing token, got %d", resp.Code)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/feed/events", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for garbage token, got %d", resp.Code)
	}

	otherIssuer := testJWTConfig()
	otherIssuer.Issuer = "someone-else"
	foreign, err := pkgAuth.MintAccessToken(otherIssuer, time.Now(), pkgAuth.AccessTokenPayload{
		UserID: uuid.New(),
		ShopID: uuid.New(),
		JTI:    uuid.NewString(),
	})
	if err != nil {
		t.Fatalf("mint token: %v", err)
	}
	req = httptest.NewRequest(http.MethodGet, "/api/v1/feed/events", nil)
	req.Header.Set("Authorization", "Bearer "+foreign)
	resp = httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 for wrong issuer, got %d", resp.Code)
	}
}
