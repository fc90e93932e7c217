package handler

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/middleware"
	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/websocket"
)

type AuthHandler struct {
	svc    *auth.Service
	hub    *websocket.Hub
	logger *slog.Logger
}

func NewAuthHandler(svc *auth.Service, hub *websocket.Hub, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{svc: svc, hub: hub, logger: logger}
}

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type sessionResponse struct {
	User         *model.User         `json:"user"`
	Organization *model.Organization `json:"organization,omitempty"`
	ExpiresAt    string              `json:"expires_at,omitempty"`
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Email = strings.TrimSpace(req.Email)
	req.Name = strings.TrimSpace(req.Name)
	if req.Email == "" || req.Password == "" || req.Name == "" {
		writeError(w, http.StatusBadRequest, "email, password, and name are required")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, sess, err := h.svc.SignUp(req.Email, req.Password, req.Name)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateEmail) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("sign up", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create account")
		return
	}

	middleware.SetSessionCookie(w, auth.EncodeRef(sess), r.TLS != nil)
	writeJSON(w, http.StatusCreated, sessionResponse{
		User:      user,
		ExpiresAt: sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	user, sess, err := h.svc.SignIn(strings.TrimSpace(req.Email), req.Password)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidCredentials) {
			writeError(w, http.StatusUnauthorized, err.Error())
			return
		}
		h.logger.Error("sign in", "error", err)
		writeError(w, http.StatusInternalServerError, "sign in failed")
		return
	}

	org, err := h.svc.ActiveOrganization(sess)
	if err != nil {
		h.logger.Warn("resolve active organization", "error", err, "user_id", user.ID)
	}

	middleware.SetSessionCookie(w, auth.EncodeRef(sess), r.TLS != nil)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		Organization: org,
		ExpiresAt:    sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Logout invalidates the session and tells the user's other tabs to drop
// their auth state. Unknown or garbled references still clear the cookie.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	ref := middleware.SessionCookie(r)
	if ref != "" {
		if user, _, _ := h.svc.GetSession(ref); user != nil {
			h.hub.BroadcastUser(user.ID, websocket.SessionMessage("signed_out", user.ID))
		}
		if err := h.svc.SignOut(ref); err != nil {
			h.logger.Warn("sign out", "error", err)
		}
	}
	middleware.ExpireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}

// Session reports the current auth state. Anonymous requests get a null
// user rather than an error, so the UI can render either way from one call.
func (h *AuthHandler) Session(w http.ResponseWriter, r *http.Request) {
	ref := middleware.SessionCookie(r)
	if ref == "" {
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	user, sess, err := h.svc.GetSession(ref)
	if err != nil {
		h.logger.Error("get session", "error", err)
		writeError(w, http.StatusInternalServerError, "session lookup failed")
		return
	}
	if user == nil {
		middleware.ExpireSessionCookie(w)
		writeJSON(w, http.StatusOK, sessionResponse{})
		return
	}

	org, err := h.svc.ActiveOrganization(sess)
	if err != nil {
		h.logger.Warn("resolve active organization", "error", err, "user_id", user.ID)
	}

	middleware.SetSessionCookie(w, auth.EncodeRef(sess), r.TLS != nil)
	writeJSON(w, http.StatusOK, sessionResponse{
		User:         user,
		Organization: org,
		ExpiresAt:    sess.ExpiresAt.UTC().Format(time.RFC3339),
	})
}

// Validate answers whether the presented reference would pass a session
// check, without touching any stored state.
func (h *AuthHandler) Validate(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.svc.ValidateSession(middleware.SessionCookie(r)))
}

type orgRequest struct {
	Name string  `json:"name"`
	Slug string  `json:"slug"`
	Logo *string `json:"logo"`
}

func (h *AuthHandler) ListOrganizations(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.svc.Organizations(auth.UserID(r.Context()))
	if err != nil {
		h.logger.Error("list organizations", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list organizations")
		return
	}
	if orgs == nil {
		orgs = []model.Organization{}
	}
	writeJSON(w, http.StatusOK, orgs)
}

func (h *AuthHandler) CreateOrganization(w http.ResponseWriter, r *http.Request) {
	var req orgRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return
	}

	req.Name = strings.TrimSpace(req.Name)
	req.Slug = strings.ToLower(strings.TrimSpace(req.Slug))
	if req.Name == "" || req.Slug == "" {
		writeError(w, http.StatusBadRequest, "name and slug are required")
		return
	}

	ac, _ := auth.FromContext(r.Context())
	org, err := h.svc.CreateOrganization(ac.UserID, ac.SessionID, req.Name, req.Slug, req.Logo)
	if err != nil {
		if errors.Is(err, auth.ErrDuplicateSlug) {
			writeError(w, http.StatusConflict, err.Error())
			return
		}
		h.logger.Error("create organization", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to create organization")
		return
	}

	writeJSON(w, http.StatusCreated, org)
}

// ActivateOrganization switches the session's active organization. The new
// reference takes effect on the next request through the auth middleware.
func (h *AuthHandler) ActivateOrganization(w http.ResponseWriter, r *http.Request) {
	orgID, err := parseIDParam(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid id")
		return
	}

	user, sess, err := h.svc.GetSession(middleware.SessionCookie(r))
	if err != nil || user == nil {
		writeError(w, http.StatusUnauthorized, "authentication required")
		return
	}

	if err := h.svc.SetActiveOrganization(sess, orgID); err != nil {
		if errors.Is(err, auth.ErrNotMember) {
			writeError(w, http.StatusForbidden, err.Error())
			return
		}
		h.logger.Error("set active organization", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to switch organization")
		return
	}

	h.hub.BroadcastUser(user.ID, websocket.SessionMessage("org_switched", user.ID))
	writeJSON(w, http.StatusOK, map[string]int64{"active_org_id": orgID})
}

func (h *AuthHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.svc.ListUsers()
	if err != nil {
		h.logger.Error("list users", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to list users")
		return
	}
	if users == nil {
		users = []model.User{}
	}
	writeJSON(w, http.StatusOK, users)
}

func (h *AuthHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(r.URL.Query().Get("email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
		return
	}
	if err := h.svc.DeleteUserByEmail(email); err != nil {
		h.logger.Error("delete user", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to delete user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ClearSessions(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearSessions(); err != nil {
		h.logger.Error("clear sessions", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to clear sessions")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *AuthHandler) ResetAuthData(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearAllAuthData(); err != nil {
		h.logger.Error("reset auth data", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to reset auth data")
		return
	}
	middleware.ExpireSessionCookie(w)
	w.WriteHeader(http.StatusNoContent)
}
