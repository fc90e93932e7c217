package auth

import (
	"crypto/subtle"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/model"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
)

var (
	ErrDuplicateEmail     = errors.New("an account with this email already exists")
	ErrDuplicateSlug      = errors.New("this organization slug is already taken")
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrNotMember          = errors.New("not a member of this organization")
)

// Validation failure reasons reported by ValidateSession.
const (
	ReasonValid          = "valid"
	ReasonNoReference    = "no_reference"
	ReasonMalformedRef   = "malformed_reference"
	ReasonSessionMissing = "session_not_found"
	ReasonTokenMismatch  = "token_mismatch"
	ReasonExpired        = "expired"
	ReasonUserMissing    = "user_not_found"
)

// Validation is the non-mutating diagnostic for a session reference: which
// of GetSession's checks would fail, without the cleanup side effects.
type Validation struct {
	Valid  bool   `json:"valid"`
	Reason string `json:"reason"`
}

// Service implements the session lifecycle: Anonymous -> Authenticated ->
// Anonymous, with no intermediate states. All state lives in the stores;
// the service holds no caches.
type Service struct {
	users    *store.UserStore
	sessions *store.SessionStore
	orgs     *store.OrganizationStore
	logger   *slog.Logger
}

func NewService(us *store.UserStore, ss *store.SessionStore, os *store.OrganizationStore, logger *slog.Logger) *Service {
	return &Service{users: us, sessions: ss, orgs: os, logger: logger}
}

// EncodeRef builds the opaque session reference carried by the cookie:
// "<session id>.<token>". It carries no user identity.
func EncodeRef(sess *model.Session) string {
	return strconv.FormatInt(sess.ID, 10) + "." + sess.Token
}

// ParseRef splits a session reference into id and token.
func ParseRef(ref string) (int64, string, error) {
	i := strings.IndexByte(ref, '.')
	if i <= 0 || i == len(ref)-1 {
		return 0, "", fmt.Errorf("malformed session reference")
	}
	id, err := strconv.ParseInt(ref[:i], 10, 64)
	if err != nil {
		return 0, "", fmt.Errorf("malformed session reference: %w", err)
	}
	return id, ref[i+1:], nil
}

// NormalizeEmail lower-cases and trims an address. Emails are stored and
// compared in this form only.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// SignUp creates a user and an initial session. Duplicate emails are
// reported explicitly; see the note on SignIn for the asymmetry.
func (s *Service) SignUp(email, password, name string) (*model.User, *model.Session, error) {
	email = NormalizeEmail(email)
	if email == "" || password == "" {
		return nil, nil, ErrInvalidCredentials
	}

	existing, err := s.users.GetByEmail(email)
	if err != nil {
		return nil, nil, fmt.Errorf("sign up lookup: %w", err)
	}
	if existing != nil {
		return nil, nil, ErrDuplicateEmail
	}

	hash, err := HashPassword(password)
	if err != nil {
		return nil, nil, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.users.Create(email, strings.TrimSpace(name), hash)
	if err != nil {
		return nil, nil, fmt.Errorf("create user: %w", err)
	}

	sess, err := s.sessions.Create(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user signed up", "user_id", user.ID)
	return user, sess, nil
}

// SignIn verifies credentials and mints a new session. Prior sessions stay
// valid: concurrent sessions per user are intentional (multi-device local
// use). Unknown email and bad password collapse into the same error.
func (s *Service) SignIn(email, password string) (*model.User, *model.Session, error) {
	user, err := s.users.GetByEmail(NormalizeEmail(email))
	if err != nil {
		return nil, nil, fmt.Errorf("sign in lookup: %w", err)
	}
	if user == nil {
		return nil, nil, ErrInvalidCredentials
	}

	ok, err := VerifyPassword(password, user.PasswordHash)
	if err != nil {
		return nil, nil, fmt.Errorf("verify password: %w", err)
	}
	if !ok {
		return nil, nil, ErrInvalidCredentials
	}

	sess, err := s.sessions.Create(user.ID)
	if err != nil {
		return nil, nil, fmt.Errorf("create session: %w", err)
	}

	s.logger.Info("user signed in", "user_id", user.ID)
	return user, sess, nil
}

// SignOut deletes the referenced session if it exists. Always succeeds from
// the caller's point of view; the cookie is cleared regardless.
func (s *Service) SignOut(ref string) error {
	id, token, err := ParseRef(ref)
	if err != nil {
		return nil
	}
	sess, err := s.sessions.GetByID(id)
	if err != nil {
		return fmt.Errorf("sign out lookup: %w", err)
	}
	if sess == nil || subtle.ConstantTimeCompare([]byte(sess.Token), []byte(token)) != 1 {
		return nil
	}
	if err := s.sessions.Delete(sess.ID); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	s.logger.Info("user signed out", "session_id", sess.ID)
	return nil
}

// GetSession is the self-healing read. Any failing check resolves to
// (nil, nil, nil) rather than an error the caller must branch on, and it
// cleans up what it can: expired sessions and sessions orphaned from their
// user are deleted on sight. The caller drops the cookie whenever both
// results are nil.
func (s *Service) GetSession(ref string) (*model.User, *model.Session, error) {
	if ref == "" {
		return nil, nil, nil
	}
	id, token, err := ParseRef(ref)
	if err != nil {
		return nil, nil, nil
	}

	sess, err := s.sessions.GetByID(id)
	if err != nil {
		return nil, nil, fmt.Errorf("session lookup: %w", err)
	}
	if sess == nil {
		return nil, nil, nil
	}

	if subtle.ConstantTimeCompare([]byte(sess.Token), []byte(token)) != 1 {
		return nil, nil, nil
	}

	if sess.Expired(time.Now()) {
		if err := s.sessions.Delete(sess.ID); err != nil {
			s.logger.Error("delete expired session", "error", err)
		}
		return nil, nil, nil
	}

	user, err := s.users.GetByID(sess.UserID)
	if err != nil {
		return nil, nil, fmt.Errorf("session user lookup: %w", err)
	}
	if user == nil {
		if err := s.sessions.Delete(sess.ID); err != nil {
			s.logger.Error("delete orphaned session", "error", err)
		}
		return nil, nil, nil
	}

	return user, sess, nil
}

// ValidateSession runs the same checks as GetSession without mutating
// anything. Debugging oracle; also the basis for the session property tests.
func (s *Service) ValidateSession(ref string) Validation {
	if ref == "" {
		return Validation{Reason: ReasonNoReference}
	}
	id, token, err := ParseRef(ref)
	if err != nil {
		return Validation{Reason: ReasonMalformedRef}
	}

	sess, err := s.sessions.GetByID(id)
	if err != nil || sess == nil {
		return Validation{Reason: ReasonSessionMissing}
	}
	if subtle.ConstantTimeCompare([]byte(sess.Token), []byte(token)) != 1 {
		return Validation{Reason: ReasonTokenMismatch}
	}
	if sess.Expired(time.Now()) {
		return Validation{Reason: ReasonExpired}
	}

	user, err := s.users.GetByID(sess.UserID)
	if err != nil || user == nil {
		return Validation{Reason: ReasonUserMissing}
	}

	return Validation{Valid: true, Reason: ReasonValid}
}

// CreateOrganization creates an org with the caller as owner and makes it
// the session's active organization.
func (s *Service) CreateOrganization(userID, sessionID int64, name, slug string, logo *string) (*model.Organization, error) {
	slug = strings.ToLower(strings.TrimSpace(slug))
	if name == "" || slug == "" {
		return nil, fmt.Errorf("organization name and slug are required")
	}

	existing, err := s.orgs.GetBySlug(slug)
	if err != nil {
		return nil, fmt.Errorf("slug lookup: %w", err)
	}
	if existing != nil {
		return nil, ErrDuplicateSlug
	}

	org, err := s.orgs.Create(strings.TrimSpace(name), slug, logo)
	if err != nil {
		return nil, fmt.Errorf("create organization: %w", err)
	}
	if _, err := s.orgs.AddMember(org.ID, userID, model.RoleOwner); err != nil {
		return nil, fmt.Errorf("add owner: %w", err)
	}
	if err := s.sessions.SetActiveOrg(sessionID, org.ID); err != nil {
		return nil, fmt.Errorf("activate organization: %w", err)
	}

	s.logger.Info("organization created", "org_id", org.ID, "slug", slug)
	return org, nil
}

// Organizations lists the orgs the user belongs to.
func (s *Service) Organizations(userID int64) ([]model.Organization, error) {
	return s.orgs.ListForUser(userID)
}

// ActiveOrganization resolves the session's active org, falling back to the
// user's oldest membership when none is set.
func (s *Service) ActiveOrganization(sess *model.Session) (*model.Organization, error) {
	if sess.ActiveOrgID != nil {
		return s.orgs.GetByID(*sess.ActiveOrgID)
	}
	orgs, err := s.orgs.ListForUser(sess.UserID)
	if err != nil {
		return nil, err
	}
	if len(orgs) == 0 {
		return nil, nil
	}
	return &orgs[0], nil
}

// SetActiveOrganization switches the session's active org. The user must be
// a member of the target.
func (s *Service) SetActiveOrganization(sess *model.Session, orgID int64) error {
	member, err := s.orgs.GetMember(orgID, sess.UserID)
	if err != nil {
		return fmt.Errorf("membership lookup: %w", err)
	}
	if member == nil {
		return ErrNotMember
	}
	return s.sessions.SetActiveOrg(sess.ID, orgID)
}

// Admin/debug operations for inspecting and resetting a local install.

func (s *Service) ListUsers() ([]model.User, error) {
	return s.users.List()
}

func (s *Service) DeleteUserByEmail(email string) error {
	user, err := s.users.GetByEmail(NormalizeEmail(email))
	if err != nil {
		return fmt.Errorf("lookup: %w", err)
	}
	if user == nil {
		return nil
	}
	return s.users.Delete(user.ID)
}

func (s *Service) ClearSessions() error {
	return s.sessions.DeleteAll()
}

// ClearAllAuthData wipes users, sessions, members, and organizations in one
// transaction.
func (s *Service) ClearAllAuthData() error {
	return s.users.PurgeAuthData()
}
