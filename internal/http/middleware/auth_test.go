package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"

	"github.com/dealerdesk/dealerdesk/internal/httputil"
	"github.com/dealerdesk/dealerdesk/pkg/auth"
	"github.com/dealerdesk/dealerdesk/pkg/domain"
)

func newTestSession(t *testing.T, role domain.Role) (*auth.SessionService, string, uuid.UUID) {
	t.Helper()
	service := auth.NewSessionService(auth.SessionConfig{
		Secret: []byte("test-secret-key-at-least-32-chars!!"),
		Issuer: "test",
	})
	user := &domain.User{
		ID:    uuid.New(),
		Email: "user@example.com",
		Role:  role,
	}
	token, _, err := service.Issue(user)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	return service, token, user.ID
}

func okHandler(t *testing.T, wantUserID uuid.UUID) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserID(r.Context())
		if !ok {
			t.Error("user ID missing from context")
		}
		if userID != wantUserID {
			t.Errorf("user ID = %v, want %v", userID, wantUserID)
		}
		if _, ok := GetRole(r.Context()); !ok {
			t.Error("role missing from context")
		}
		w.WriteHeader(http.StatusOK)
	})
}

func TestAuth_BearerHeader(t *testing.T) {
	service, token, userID := newTestSession(t, domain.RoleManager)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	Auth(service)(okHandler(t, userID)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_Cookie(t *testing.T) {
	service, token, userID := newTestSession(t, domain.RoleViewer)

	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.AddCookie(&http.Cookie{Name: httputil.SessionCookieName, Value: token})
	rec := httptest.NewRecorder()

	Auth(service)(okHandler(t, userID)).ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
}

func TestAuth_Rejections(t *testing.T) {
	service, token, _ := newTestSession(t, domain.RoleManager)

	tests := []struct {
		name  string
		setup func(r *http.Request)
	}{
		{"missing credentials", func(r *http.Request) {}},
		{"malformed header", func(r *http.Request) { r.Header.Set("Authorization", "Token abc") }},
		{"tampered token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token+"x") }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			tt.setup(req)
			rec := httptest.NewRecorder()

			called := false
			Auth(service)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				called = true
			})).ServeHTTP(rec, req)

			if rec.Code != http.StatusUnauthorized {
				t.Errorf("status = %d, want 401", rec.Code)
			}
			if called {
				t.Error("handler must not run without valid credentials")
			}
		})
	}
}

func TestRequirePermission(t *testing.T) {
	tests := []struct {
		name       string
		role       domain.Role
		permission string
		wantStatus int
	}{
		{"admin creates users", domain.RoleAdmin, domain.PermUsersCreate, http.StatusOK},
		{"manager creates vehicles", domain.RoleManager, domain.PermVehiclesCreate, http.StatusOK},
		{"manager cannot manage users", domain.RoleManager, domain.PermUsersCreate, http.StatusForbidden},
		{"viewer cannot create vehicles", domain.RoleViewer, domain.PermVehiclesCreate, http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			service, token, _ := newTestSession(t, tt.role)

			req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			rec := httptest.NewRecorder()

			handler := Auth(service)(RequirePermission(tt.permission)(
				http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
					w.WriteHeader(http.StatusOK)
				}),
			))
			handler.ServeHTTP(rec, req)

			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRequirePermission_NoAuthContext(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/v1/x", nil)
	rec := httptest.NewRecorder()

	RequirePermission(domain.PermVehiclesCreate)(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}),
	).ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", rec.Code)
	}
}
