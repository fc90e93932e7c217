package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

const sessionCookieName = "trust_session"

// RequireAuth validates the session-reference cookie and populates
// AuthContext. The read is self-healing: any invalid reference expires the
// cookie on the way out, and a successful read re-sets it, sliding the
// expiry window.
func RequireAuth(svc *auth.Service, orgs *store.OrganizationStore) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			cookie, err := r.Cookie(sessionCookieName)
			if err != nil || cookie.Value == "" {
				unauthorized(w)
				return
			}

			user, sess, err := svc.GetSession(cookie.Value)
			if err != nil || user == nil || sess == nil {
				ExpireSessionCookie(w)
				unauthorized(w)
				return
			}

			ac := auth.AuthContext{
				UserID:    user.ID,
				SessionID: sess.ID,
			}
			if sess.ActiveOrgID != nil {
				ac.OrgID = *sess.ActiveOrgID
				member, err := orgs.GetMember(ac.OrgID, user.ID)
				if err == nil && member != nil {
					ac.Role = member.Role
				}
			}

			SetSessionCookie(w, auth.EncodeRef(sess), r.TLS != nil)

			ctx := auth.WithAuth(r.Context(), ac)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireOrg rejects requests whose session has no active organization.
func RequireOrg(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if auth.OrgID(r.Context()) == 0 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			json.NewEncoder(w).Encode(map[string]string{"error": "no active organization"})
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireAdmin checks that the authenticated user has an owner or admin
// role in the active organization.
func RequireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !auth.IsAdmin(r.Context()) {
			http.Error(w, "Forbidden", http.StatusForbidden)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// SetSessionCookie writes the session-reference cookie. The value is the
// opaque "<id>.<token>" reference; nothing outside the auth path can learn
// more than "likely authenticated" from its presence.
func SetSessionCookie(w http.ResponseWriter, ref string, secure bool) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    ref,
		Path:     "/",
		MaxAge:   int(store.SessionTTL / time.Second),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		Secure:   secure,
	})
}

// ExpireSessionCookie clears the session-reference cookie immediately.
func ExpireSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// SessionCookie reads the raw session reference from a request, or "".
func SessionCookie(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func unauthorized(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]string{"error": "authentication required"})
}
