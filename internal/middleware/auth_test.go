package middleware_test

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"accpartner-backend/internal/middleware"

	"github.com/stretchr/testify/assert"
)

type stubValidator struct {
	userID string
	err    error
}

func (s stubValidator) ValidateJWT(token string) (string, error) {
	return s.userID, s.err
}

func TestAuth(t *testing.T) {
	tests := []struct {
		name       string
		header     string
		validator  stubValidator
		wantStatus int
		wantUserID string
	}{
		{
			name:       "valid token",
			header:     "Bearer good-token",
			validator:  stubValidator{userID: "u1"},
			wantStatus: http.StatusOK,
			wantUserID: "u1",
		},
		{
			name:       "missing header",
			header:     "",
			validator:  stubValidator{userID: "u1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "not bearer",
			header:     "Basic abc",
			validator:  stubValidator{userID: "u1"},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "invalid token",
			header:     "Bearer bad-token",
			validator:  stubValidator{err: errors.New("expired")},
			wantStatus: http.StatusUnauthorized,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotUserID string
			handler := middleware.Auth(tt.validator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				gotUserID = middleware.GetUserID(r.Context())
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, tt.wantUserID, gotUserID)
		})
	}
}

func TestGetUserIDMissing(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Empty(t, middleware.GetUserID(req.Context()))
}
