package auth

import (
	"context"
	"testing"
)

func TestWithAuthAndFromContext(t *testing.T) {
	ac := AuthContext{
		UserID:    1,
		OrgID:     2,
		Role:      "admin",
		SessionID: 3,
	}

	ctx := WithAuth(context.Background(), ac)
	got, ok := FromContext(ctx)
	if !ok {
		t.Fatal("expected AuthContext in context")
	}
	if got.UserID != 1 {
		t.Errorf("UserID = %d, want 1", got.UserID)
	}
	if got.OrgID != 2 {
		t.Errorf("OrgID = %d, want 2", got.OrgID)
	}
	if got.Role != "admin" {
		t.Errorf("Role = %q, want %q", got.Role, "admin")
	}
	if got.SessionID != 3 {
		t.Errorf("SessionID = %d, want 3", got.SessionID)
	}
}

func TestFromContextMissing(t *testing.T) {
	_, ok := FromContext(context.Background())
	if ok {
		t.Error("expected false for missing AuthContext")
	}
}

func TestOrgID(t *testing.T) {
	ctx := WithAuth(context.Background(), AuthContext{OrgID: 42})
	if OrgID(ctx) != 42 {
		t.Errorf("OrgID = %d, want 42", OrgID(ctx))
	}
	if OrgID(context.Background()) != 0 {
		t.Error("expected 0 for missing context")
	}
}

func TestIsAdmin(t *testing.T) {
	cases := []struct {
		role string
		want bool
	}{
		{"owner", true},
		{"admin", true},
		{"member", false},
		{"", false},
	}
	for _, c := range cases {
		ctx := WithAuth(context.Background(), AuthContext{Role: c.role})
		if IsAdmin(ctx) != c.want {
			t.Errorf("IsAdmin(%q) = %v, want %v", c.role, IsAdmin(ctx), c.want)
		}
	}
	if IsAdmin(context.Background()) {
		t.Error("expected false for missing context")
	}
}
