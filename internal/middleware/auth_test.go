package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/database"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

func setupAuthMiddleware(t *testing.T) (*auth.Service, *store.OrganizationStore) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	orgs := store.NewOrganizationStore(db)
	svc := auth.NewService(
		store.NewUserStore(db),
		store.NewSessionStore(db),
		orgs,
		slog.New(slog.DiscardHandler),
	)
	return svc, orgs
}

func TestRequireAuthNoCookie(t *testing.T) {
	svc, orgs := setupAuthMiddleware(t)

	handler := RequireAuth(svc, orgs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/clients", nil)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}
}

func TestRequireAuthInvalidReference(t *testing.T) {
	svc, orgs := setupAuthMiddleware(t)

	handler := RequireAuth(svc, orgs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))

	req := httptest.NewRequest("GET", "/api/clients", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: "garbage"})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusUnauthorized)
	}

	// The stale cookie must be expired in the response.
	var cleared bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge < 0 {
			cleared = true
		}
	}
	if !cleared {
		t.Error("expected the session cookie to be expired")
	}
}

func TestRequireAuthValidSession(t *testing.T) {
	svc, orgs := setupAuthMiddleware(t)

	u, sess, err := svc.SignUp("alice@example.com", "hunter2!", "Alice")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	org, err := svc.CreateOrganization(u.ID, sess.ID, "Firm", "firm", nil)
	if err != nil {
		t.Fatalf("create org: %v", err)
	}
	// CreateOrganization set the active org on the stored row; reload.
	_, sess, err = svc.GetSession(auth.EncodeRef(sess))
	if err != nil || sess == nil {
		t.Fatalf("reload session: %v", err)
	}

	var gotAC auth.AuthContext
	handler := RequireAuth(svc, orgs)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ac, ok := auth.FromContext(r.Context())
		if !ok {
			t.Fatal("expected AuthContext in request context")
		}
		gotAC = ac
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/api/clients", nil)
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: auth.EncodeRef(sess)})
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if gotAC.UserID != u.ID {
		t.Errorf("UserID = %d, want %d", gotAC.UserID, u.ID)
	}
	if gotAC.OrgID != org.ID {
		t.Errorf("OrgID = %d, want %d", gotAC.OrgID, org.ID)
	}
	if gotAC.Role != "owner" {
		t.Errorf("Role = %q, want %q", gotAC.Role, "owner")
	}

	// A successful read refreshes the cookie.
	var refreshed bool
	for _, c := range rec.Result().Cookies() {
		if c.Name == sessionCookieName && c.MaxAge > 0 && strings.Contains(c.Value, ".") {
			refreshed = true
		}
	}
	if !refreshed {
		t.Error("expected the session cookie to be re-set")
	}
}

func TestRequireOrg(t *testing.T) {
	ok := httptest.NewRecorder()
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{UserID: 1, OrgID: 7})
	RequireOrg(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})).ServeHTTP(ok, httptest.NewRequest("GET", "/", nil).WithContext(ctx))
	if ok.Code != http.StatusOK {
		t.Errorf("with org: status = %d, want %d", ok.Code, http.StatusOK)
	}

	rec := httptest.NewRecorder()
	ctx = auth.WithAuth(context.Background(), auth.AuthContext{UserID: 1})
	RequireOrg(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	})).ServeHTTP(rec, httptest.NewRequest("GET", "/", nil).WithContext(ctx))
	if rec.Code != http.StatusBadRequest {
		t.Errorf("without org: status = %d, want %d", rec.Code, http.StatusBadRequest)
	}
}

func TestRequireAdminAllowed(t *testing.T) {
	for _, role := range []string{"owner", "admin"} {
		ctx := auth.WithAuth(context.Background(), auth.AuthContext{Role: role})
		req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
		rec := httptest.NewRecorder()

		handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(rec, req)

		if rec.Code != http.StatusOK {
			t.Errorf("role %s: status = %d, want %d", role, rec.Code, http.StatusOK)
		}
	}
}

func TestRequireAdminForbidden(t *testing.T) {
	ctx := auth.WithAuth(context.Background(), auth.AuthContext{Role: "member"})
	req := httptest.NewRequest("GET", "/", nil).WithContext(ctx)
	rec := httptest.NewRecorder()

	handler := RequireAdmin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("should not reach handler")
	}))
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusForbidden {
		t.Errorf("status = %d, want %d", rec.Code, http.StatusForbidden)
	}
}
