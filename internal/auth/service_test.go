package auth

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/database"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

func setupService(t *testing.T) (*Service, *sql.DB) {
	t.Helper()
	db, err := database.Open(":memory:")
	if err != nil {
		t.Fatalf("open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	// Single connection so per-connection PRAGMA tweaks below stick.
	db.SetMaxOpenConns(1)

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	svc := NewService(store.NewUserStore(db), store.NewSessionStore(db), store.NewOrganizationStore(db), logger)
	return svc, db
}

func TestSignUpRoundTrip(t *testing.T) {
	svc, _ := setupService(t)

	user, sess, err := svc.SignUp("Jane@Example.com", "hunter22", "Jane Doe")
	if err != nil {
		t.Fatalf("sign up: %v", err)
	}
	if user.Email != "jane@example.com" {
		t.Errorf("email = %q, want jane@example.com", user.Email)
	}

	// Session expiry is ~7 days out.
	wantExpiry := time.Now().Add(7 * 24 * time.Hour)
	if d := sess.ExpiresAt.Sub(wantExpiry); d < -5*time.Second || d > 5*time.Second {
		t.Errorf("expires_at = %v, want ~%v", sess.ExpiresAt, wantExpiry)
	}

	gotUser, gotSess, err := svc.GetSession(EncodeRef(sess))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if gotUser == nil || gotSess == nil {
		t.Fatal("expected valid session immediately after sign up")
	}
	if gotUser.Email != "jane@example.com" {
		t.Errorf("round-trip email = %q", gotUser.Email)
	}

	// The password hash must never serialize across the API boundary.
	data, err := json.Marshal(gotUser)
	if err != nil {
		t.Fatalf("marshal user: %v", err)
	}
	if strings.Contains(string(data), "hunter22") || strings.Contains(strings.ToLower(string(data)), "password") {
		t.Errorf("serialized user leaks password material: %s", data)
	}
}

func TestSignUpDuplicateEmailAnyCasing(t *testing.T) {
	svc, db := setupService(t)

	if _, _, err := svc.SignUp("jane@example.com", "hunter22", "Jane"); err != nil {
		t.Fatalf("first sign up: %v", err)
	}
	_, _, err := svc.SignUp("JANE@EXAMPLE.COM", "other", "Other")
	if !errors.Is(err, ErrDuplicateEmail) {
		t.Fatalf("err = %v, want ErrDuplicateEmail", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&n)
	if n != 1 {
		t.Errorf("user rows = %d, want 1", n)
	}
}

func TestSignInUnknownUser(t *testing.T) {
	svc, db := setupService(t)

	_, _, err := svc.SignIn("nobody@example.com", "x")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	if n != 0 {
		t.Errorf("session rows = %d, want 0 after failed sign-in", n)
	}
}

func TestSignInWrongPassword(t *testing.T) {
	svc, _ := setupService(t)

	svc.SignUp("jane@example.com", "hunter22", "Jane")
	_, _, err := svc.SignIn("jane@example.com", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("err = %v, want ErrInvalidCredentials", err)
	}
}

func TestSignInKeepsPriorSessions(t *testing.T) {
	svc, _ := setupService(t)

	_, first, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	_, second, err := svc.SignIn("jane@example.com", "hunter22")
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if first.Token == second.Token {
		t.Error("sign-in reused the sign-up token")
	}

	if u, s, _ := svc.GetSession(EncodeRef(first)); u == nil || s == nil {
		t.Error("first session invalidated by second sign-in")
	}
}

func TestGetSessionIdempotentAfterRowDeleted(t *testing.T) {
	svc, db := setupService(t)

	_, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	ref := EncodeRef(sess)

	if _, err := db.Exec(`DELETE FROM sessions WHERE id = ?`, sess.ID); err != nil {
		t.Fatalf("delete session row: %v", err)
	}

	for i := 0; i < 2; i++ {
		u, s, err := svc.GetSession(ref)
		if err != nil {
			t.Fatalf("get session #%d: %v", i+1, err)
		}
		if u != nil || s != nil {
			t.Fatalf("get session #%d returned a session for a deleted row", i+1)
		}
	}
}

func TestGetSessionTokenMismatch(t *testing.T) {
	svc, db := setupService(t)

	_, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	corrupt := EncodeRef(&model.Session{ID: sess.ID, Token: strings.Repeat("0", 64)})

	u, s, err := svc.GetSession(corrupt)
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if u != nil || s != nil {
		t.Error("mismatched token accepted")
	}

	// The stored session row is left untouched.
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sess.ID).Scan(&n)
	if n != 1 {
		t.Errorf("session row deleted on token mismatch")
	}

	// The genuine reference still works.
	if u, _, _ := svc.GetSession(EncodeRef(sess)); u == nil {
		t.Error("genuine reference rejected after mismatch probe")
	}
}

func TestGetSessionExpiryBoundary(t *testing.T) {
	now := time.Now()
	onBoundary := model.Session{ExpiresAt: now}
	if !onBoundary.Expired(now) {
		t.Error("expires_at == now must count as expired")
	}
	justAfter := model.Session{ExpiresAt: now.Add(time.Millisecond)}
	if justAfter.Expired(now) {
		t.Error("expires_at just past now must still be valid")
	}
}

func TestGetSessionDeletesExpiredRow(t *testing.T) {
	svc, db := setupService(t)

	_, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	past := time.Now().UTC().Add(-time.Second)
	if _, err := db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, past, sess.ID); err != nil {
		t.Fatalf("backdate: %v", err)
	}

	u, s, err := svc.GetSession(EncodeRef(sess))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if u != nil || s != nil {
		t.Error("expired session accepted")
	}

	// Self-healing: the expired row is gone.
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sess.ID).Scan(&n)
	if n != 0 {
		t.Errorf("expired session row survived the read")
	}
}

func TestGetSessionOrphanedUser(t *testing.T) {
	svc, db := setupService(t)

	_, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")

	// Remove the user out from under the session without cascading. The
	// pragma is per-connection, so both statements run on one pinned conn.
	conn, err := db.Conn(context.Background())
	if err != nil {
		t.Fatalf("pin conn: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), `PRAGMA foreign_keys = OFF`); err != nil {
		t.Fatalf("disable fks: %v", err)
	}
	if _, err := conn.ExecContext(context.Background(), `DELETE FROM users WHERE id = ?`, sess.UserID); err != nil {
		t.Fatalf("delete user: %v", err)
	}
	conn.Close()

	u, s, err := svc.GetSession(EncodeRef(sess))
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if u != nil || s != nil {
		t.Error("orphaned session accepted")
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sess.ID).Scan(&n)
	if n != 0 {
		t.Errorf("orphaned session row survived the read")
	}
}

func TestValidateSessionReasons(t *testing.T) {
	svc, db := setupService(t)

	_, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")

	if v := svc.ValidateSession(""); v.Valid || v.Reason != ReasonNoReference {
		t.Errorf("empty ref: %+v", v)
	}
	if v := svc.ValidateSession("garbage"); v.Valid || v.Reason != ReasonMalformedRef {
		t.Errorf("malformed ref: %+v", v)
	}
	if v := svc.ValidateSession("999999." + sess.Token); v.Valid || v.Reason != ReasonSessionMissing {
		t.Errorf("missing session: %+v", v)
	}
	bad := EncodeRef(&model.Session{ID: sess.ID, Token: strings.Repeat("f", 64)})
	if v := svc.ValidateSession(bad); v.Valid || v.Reason != ReasonTokenMismatch {
		t.Errorf("token mismatch: %+v", v)
	}
	if v := svc.ValidateSession(EncodeRef(sess)); !v.Valid || v.Reason != ReasonValid {
		t.Errorf("valid session: %+v", v)
	}

	// ValidateSession never mutates: the expired row must survive it.
	past := time.Now().UTC().Add(-time.Second)
	db.Exec(`UPDATE sessions SET expires_at = ? WHERE id = ?`, past, sess.ID)
	if v := svc.ValidateSession(EncodeRef(sess)); v.Valid || v.Reason != ReasonExpired {
		t.Errorf("expired: %+v", v)
	}
	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sessions WHERE id = ?`, sess.ID).Scan(&n)
	if n != 1 {
		t.Error("ValidateSession deleted the expired row")
	}
}

func TestSignOutDeletesSession(t *testing.T) {
	svc, db := setupService(t)

	_, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	if err := svc.SignOut(EncodeRef(sess)); err != nil {
		t.Fatalf("sign out: %v", err)
	}

	var n int
	db.QueryRow(`SELECT COUNT(*) FROM sessions`).Scan(&n)
	if n != 0 {
		t.Errorf("session rows = %d after sign-out, want 0", n)
	}

	// Signing out again, or with garbage, is a quiet no-op.
	if err := svc.SignOut(EncodeRef(sess)); err != nil {
		t.Errorf("repeat sign out: %v", err)
	}
	if err := svc.SignOut("not-a-ref"); err != nil {
		t.Errorf("garbage sign out: %v", err)
	}
}

func TestOrganizationLifecycle(t *testing.T) {
	svc, _ := setupService(t)

	user, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")

	orgA, err := svc.CreateOrganization(user.ID, sess.ID, "Doe Law", "doe-law", nil)
	if err != nil {
		t.Fatalf("create org A: %v", err)
	}

	// Creating an org auto-activates it on the session.
	_, sess2, _ := svc.GetSession(EncodeRef(sess))
	if sess2.ActiveOrgID == nil || *sess2.ActiveOrgID != orgA.ID {
		t.Fatalf("active org = %v, want %d", sess2.ActiveOrgID, orgA.ID)
	}

	orgB, err := svc.CreateOrganization(user.ID, sess.ID, "Doe Appeals", "doe-appeals", nil)
	if err != nil {
		t.Fatalf("create org B: %v", err)
	}

	if err := svc.SetActiveOrganization(sess2, orgB.ID); err != nil {
		t.Fatalf("switch org: %v", err)
	}
	_, sess3, _ := svc.GetSession(EncodeRef(sess))
	active, err := svc.ActiveOrganization(sess3)
	if err != nil {
		t.Fatalf("active org: %v", err)
	}
	if active == nil || active.ID != orgB.ID {
		t.Errorf("active org = %+v, want %d", active, orgB.ID)
	}

	orgs, _ := svc.Organizations(user.ID)
	if len(orgs) != 2 {
		t.Errorf("org count = %d, want 2", len(orgs))
	}
}

func TestCreateOrganizationDuplicateSlug(t *testing.T) {
	svc, _ := setupService(t)

	user, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	if _, err := svc.CreateOrganization(user.ID, sess.ID, "Doe Law", "doe-law", nil); err != nil {
		t.Fatalf("create: %v", err)
	}
	_, err := svc.CreateOrganization(user.ID, sess.ID, "Other Firm", "doe-law", nil)
	if !errors.Is(err, ErrDuplicateSlug) {
		t.Errorf("err = %v, want ErrDuplicateSlug", err)
	}
}

func TestSetActiveOrganizationRequiresMembership(t *testing.T) {
	svc, _ := setupService(t)

	jane, janeSess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	bob, bobSess, _ := svc.SignUp("bob@example.com", "hunter22", "Bob")
	svc.CreateOrganization(jane.ID, janeSess.ID, "Doe Law", "doe-law", nil)
	svc.CreateOrganization(bob.ID, bobSess.ID, "Bob Law", "bob-law", nil)

	janeOrgs, _ := svc.Organizations(jane.ID)
	_, sess, _ := svc.GetSession(EncodeRef(bobSess))
	err := svc.SetActiveOrganization(sess, janeOrgs[0].ID)
	if !errors.Is(err, ErrNotMember) {
		t.Errorf("err = %v, want ErrNotMember", err)
	}
}

func TestClearAllAuthData(t *testing.T) {
	svc, db := setupService(t)

	user, sess, _ := svc.SignUp("jane@example.com", "hunter22", "Jane")
	svc.SignIn("jane@example.com", "hunter22")
	svc.CreateOrganization(user.ID, sess.ID, "Doe Law", "doe-law", nil)

	if err := svc.ClearAllAuthData(); err != nil {
		t.Fatalf("clear: %v", err)
	}

	for _, table := range []string{"users", "sessions", "members", "organizations"} {
		var n int
		db.QueryRow(`SELECT COUNT(*) FROM ` + table).Scan(&n)
		if n != 0 {
			t.Errorf("%s = %d rows, want 0", table, n)
		}
	}
}

func TestParseRef(t *testing.T) {
	id, token, err := ParseRef("42.deadbeef")
	if err != nil || id != 42 || token != "deadbeef" {
		t.Errorf("ParseRef = (%d, %q, %v)", id, token, err)
	}
	for _, bad := range []string{"", "42", "42.", ".token", "x.token"} {
		if _, _, err := ParseRef(bad); err == nil {
			t.Errorf("ParseRef(%q): expected error", bad)
		}
	}
}
