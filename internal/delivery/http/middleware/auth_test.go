package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"

	"announcements/internal/delivery/http/helpers"
	"announcements/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeTokenVerifier implements domain.TokenVerifier for tests.
type fakeTokenVerifier struct {
	userID string
	err    error
}

func (f *fakeTokenVerifier) Verify(_ string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	return f.userID, nil
}

func TestRequireAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name          string
		authHeader    string
		verifier      domain.TokenVerifier
		wantStatus    int
		wantBodyCode  string
		nextCalled    bool
		wantContextID string
	}{
		{
			name:          "valid token sets context and calls next",
			authHeader:    "Bearer valid-token",
			verifier:      &fakeTokenVerifier{userID: "user-123"},
			wantStatus:    http.StatusOK,
			nextCalled:    true,
			wantContextID: "user-123",
		},
		{
			name:         "missing authorization header",
			authHeader:   "",
			verifier:     &fakeTokenVerifier{userID: "user-123"},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
			nextCalled:   false,
		},
		{
			name:         "invalid authorization format no Bearer prefix",
			authHeader:   "Basic abc",
			verifier:     &fakeTokenVerifier{userID: "user-123"},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
			nextCalled:   false,
		},
		{
			name:         "empty token after Bearer",
			authHeader:   "Bearer ",
			verifier:     &fakeTokenVerifier{userID: "user-123"},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
			nextCalled:   false,
		},
		{
			name:         "verifier returns error",
			authHeader:   "Bearer bad-token",
			verifier:     &fakeTokenVerifier{err: errors.New("invalid or expired token")},
			wantStatus:   http.StatusUnauthorized,
			wantBodyCode: helpers.ErrCodeUnauthorized,
			nextCalled:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			var capturedUserID string
			next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				id, ok := UserIDFromContext(r.Context())
				if ok {
					capturedUserID = id
				}
				w.WriteHeader(http.StatusOK)
			})
			wrap := RequireAuth(tt.verifier, logger)
			handler := wrap(next)

			req := httptest.NewRequest(http.MethodGet, "http://test/admin/announcements", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()

			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code, "status code")
			assert.Equal(t, tt.nextCalled, nextCalled, "next handler called")
			if tt.nextCalled && tt.wantContextID != "" {
				assert.Equal(t, tt.wantContextID, capturedUserID, "user ID in context")
			}
			if tt.wantStatus != http.StatusOK && tt.wantBodyCode != "" {
				var envelope helpers.APIResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
			}
		})
	}
}

func TestOptionalAuth(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	tests := []struct {
		name       string
		authHeader string
		verifier   domain.TokenVerifier
		wantStatus int
		wantUserID string
		wantAuthed bool
	}{
		{
			name:       "no header passes through anonymous",
			verifier:   &fakeTokenVerifier{userID: "user-123"},
			wantStatus: http.StatusOK,
		},
		{
			name:       "valid token sets user",
			authHeader: "Bearer good",
			verifier:   &fakeTokenVerifier{userID: "user-123"},
			wantStatus: http.StatusOK,
			wantUserID: "user-123",
			wantAuthed: true,
		},
		{
			name:       "invalid token is rejected",
			authHeader: "Bearer bad",
			verifier:   &fakeTokenVerifier{err: errors.New("expired")},
			wantStatus: http.StatusUnauthorized,
		},
		{
			name:       "non bearer header is rejected",
			authHeader: "Basic abc",
			verifier:   &fakeTokenVerifier{userID: "user-123"},
			wantStatus: http.StatusUnauthorized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var gotID string
			var gotOK bool
			next := func(w http.ResponseWriter, r *http.Request) {
				gotID, gotOK = UserIDFromContext(r.Context())
				w.WriteHeader(http.StatusOK)
			}
			handler := OptionalAuth(tt.verifier, logger)(next)

			req := httptest.NewRequest(http.MethodGet, "http://test/announcements/current", nil)
			if tt.authHeader != "" {
				req.Header.Set("Authorization", tt.authHeader)
			}
			rr := httptest.NewRecorder()
			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantAuthed, gotOK)
			assert.Equal(t, tt.wantUserID, gotID)
		})
	}
}

// fakeRoleRepository implements domain.RoleRepository for tests.
type fakeRoleRepository struct {
	roles map[string][]*domain.Role
	err   error
}

func (f *fakeRoleRepository) ListByUserID(_ context.Context, userID string) ([]*domain.Role, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.roles[userID], nil
}

func TestRequireAdmin(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
	repo := &fakeRoleRepository{roles: map[string][]*domain.Role{
		"admin-1":  {{ID: "r1", Code: domain.RoleMember}, {ID: "r2", Code: domain.RoleAdmin}},
		"member-1": {{ID: "r1", Code: domain.RoleMember}},
	}}

	tests := []struct {
		name         string
		userID       string
		repo         domain.RoleRepository
		wantStatus   int
		wantBodyCode string
	}{
		{"admin passes", "admin-1", repo, http.StatusOK, ""},
		{"member forbidden", "member-1", repo, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"user without roles forbidden", "nobody", repo, http.StatusForbidden, helpers.ErrCodeForbidden},
		{"no user in context", "", repo, http.StatusUnauthorized, helpers.ErrCodeUnauthorized},
		{"role lookup fails", "admin-1", &fakeRoleRepository{err: errors.New("db down")}, http.StatusInternalServerError, helpers.ErrCodeInternalError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			nextCalled := false
			next := func(w http.ResponseWriter, r *http.Request) {
				nextCalled = true
				w.WriteHeader(http.StatusOK)
			}
			handler := RequireAdmin(tt.repo, logger)(next)

			req := httptest.NewRequest(http.MethodPost, "http://test/admin/announcements", nil)
			if tt.userID != "" {
				req = req.WithContext(SetUserID(req.Context(), tt.userID))
			}
			rr := httptest.NewRecorder()
			handler(rr, req)

			require.Equal(t, tt.wantStatus, rr.Code)
			assert.Equal(t, tt.wantStatus == http.StatusOK, nextCalled)
			if tt.wantBodyCode != "" {
				var envelope helpers.APIResponse
				require.NoError(t, json.NewDecoder(rr.Body).Decode(&envelope))
				require.NotNil(t, envelope.Error)
				assert.Equal(t, tt.wantBodyCode, envelope.Error.Code)
			}
		})
	}
}
