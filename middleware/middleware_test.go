package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"voyago/globals"

	"github.com/golang-jwt/jwt/v5"
	"github.com/julienschmidt/httprouter"
)

func signedToken(t *testing.T, userID string, roles []string) string {
	t.Helper()
	claims := &Claims{
		Username: "ava",
		UserID:   userID,
		Role:     roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(globals.JwtSecret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func TestAuthenticateInjectsUserIDAndRoles(t *testing.T) {
	var gotUserID string
	var gotRoles []string

	handler := Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		gotUserID, _ = r.Context().Value(globals.UserIDKey).(string)
		gotRoles, _ = r.Context().Value(globals.RoleKey).([]string)
	})

	req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
	req.Header.Set("Authorization", "Bearer "+signedToken(t, "u42", []string{"user", "admin"}))
	rec := httptest.NewRecorder()
	handler(rec, req, nil)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotUserID != "u42" {
		t.Errorf("user id in context = %q, want %q", gotUserID, "u42")
	}
	if len(gotRoles) != 2 || gotRoles[0] != "user" || gotRoles[1] != "admin" {
		t.Errorf("roles in context = %v, want [user admin]", gotRoles)
	}
}

func TestAuthenticateRejectsMissingOrMalformedToken(t *testing.T) {
	handler := Authenticate(func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		t.Error("handler ran without a valid token")
	})

	for _, header := range []string{"", "Bearer not-a-jwt", "Basic abc123"} {
		req := httptest.NewRequest(http.MethodGet, "/api/profile", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		rec := httptest.NewRecorder()
		handler(rec, req, nil)

		if rec.Code != http.StatusUnauthorized {
			t.Errorf("header %q: status = %d, want %d", header, rec.Code, http.StatusUnauthorized)
		}
	}
}
