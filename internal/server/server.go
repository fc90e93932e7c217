package server

import (
	"database/sql"
	"encoding/json"
	"log/slog"
	"net/http"
	"time"

	"github.com/CaseMark/iolta-manager-demo/internal/archive"
	"github.com/CaseMark/iolta-manager-demo/internal/auth"
	"github.com/CaseMark/iolta-manager-demo/internal/extraction"
	"github.com/CaseMark/iolta-manager-demo/internal/handler"
	"github.com/CaseMark/iolta-manager-demo/internal/middleware"
	"github.com/CaseMark/iolta-manager-demo/internal/push"
	"github.com/CaseMark/iolta-manager-demo/internal/report"
	"github.com/CaseMark/iolta-manager-demo/internal/store"
	ws "github.com/CaseMark/iolta-manager-demo/internal/websocket"
)

// PushConfig carries the VAPID key pair for web push. Empty keys disable
// push endpoints and the release-date scheduler.
type PushConfig struct {
	VAPIDPublicKey  string
	VAPIDPrivateKey string
	Subscriber      string
}

type Config struct {
	Extraction extraction.Config
	Archive    archive.Config
	Push       PushConfig
}

type Server struct {
	db           *sql.DB
	hub          *ws.Hub
	authSvc      *auth.Service
	authH        *handler.AuthHandler
	clientH      *handler.ClientHandler
	matterH      *handler.MatterHandler
	transactionH *handler.TransactionHandler
	holdH        *handler.HoldHandler
	dashboardH   *handler.DashboardHandler
	reportH      *handler.ReportHandler
	extractionH  *handler.ExtractionHandler
	archiveH     *handler.ArchiveHandler
	settingsH    *handler.SettingsHandler
	pushH        *handler.PushHandler
	orgStore     *store.OrganizationStore
	sessionStore *store.SessionStore
	rateLimiter  *middleware.RateLimiter
	archiveMgr   *archive.Manager
	pushSched    *push.Scheduler
	logger       *slog.Logger
}

func New(db *sql.DB, cfg Config, logger *slog.Logger) *Server {
	hub := ws.NewHub(logger.With("component", "websocket"))

	userStore := store.NewUserStore(db)
	orgStore := store.NewOrganizationStore(db)
	sessionStore := store.NewSessionStore(db)
	clientStore := store.NewClientStore(db)
	matterStore := store.NewMatterStore(db)
	txStore := store.NewTransactionStore(db)
	holdStore := store.NewHoldStore(db)
	auditStore := store.NewAuditStore(db)
	settingsStore := store.NewSettingsStore(db)
	historyStore := store.NewReportHistoryStore(db)
	pushStore := store.NewPushStore(db)

	authSvc := auth.NewService(userStore, sessionStore, orgStore, logger.With("component", "auth"))
	builder := report.NewBuilder(clientStore, matterStore, txStore, holdStore)
	extractionClient := extraction.NewClient(cfg.Extraction)

	archiveLogger := logger.With("component", "archive")
	archiveMgr := archive.NewManager(cfg.Archive, db, archiveLogger, func(st archive.Status) {
		hub.BroadcastAll(ws.NewMessage("archive", string(st.State), 0, map[string]any{
			"in_progress": st.InProgress,
			"error":       st.Error,
		}))
	})

	var pushSvc *push.Service
	var pushSched *push.Scheduler
	var pushH *handler.PushHandler
	if cfg.Push.VAPIDPublicKey != "" && cfg.Push.VAPIDPrivateKey != "" {
		pushLogger := logger.With("component", "push")
		pushSvc = push.NewService(cfg.Push.VAPIDPublicKey, cfg.Push.VAPIDPrivateKey, cfg.Push.Subscriber)
		pushSched = push.NewScheduler(pushSvc, pushStore, holdStore, matterStore, pushLogger)
		pushH = handler.NewPushHandler(pushSvc, pushStore, pushLogger)
	}

	return &Server{
		db:           db,
		hub:          hub,
		authSvc:      authSvc,
		authH:        handler.NewAuthHandler(authSvc, hub, logger.With("component", "auth_handler")),
		clientH:      handler.NewClientHandler(clientStore, txStore, auditStore, hub, logger.With("component", "client")),
		matterH:      handler.NewMatterHandler(matterStore, clientStore, txStore, auditStore, hub, logger.With("component", "matter")),
		transactionH: handler.NewTransactionHandler(txStore, matterStore, auditStore, hub, logger.With("component", "transaction")),
		holdH:        handler.NewHoldHandler(holdStore, matterStore, auditStore, hub, logger.With("component", "hold")),
		dashboardH:   handler.NewDashboardHandler(txStore, auditStore, logger.With("component", "dashboard")),
		reportH:      handler.NewReportHandler(builder, orgStore, historyStore, archiveMgr, logger.With("component", "report")),
		extractionH:  handler.NewExtractionHandler(extractionClient, logger.With("component", "extraction")),
		archiveH:     handler.NewArchiveHandler(archiveMgr, auditStore, archiveLogger),
		settingsH:    handler.NewSettingsHandler(settingsStore, hub, logger.With("component", "settings")),
		pushH:        pushH,
		orgStore:     orgStore,
		sessionStore: sessionStore,
		rateLimiter:  middleware.NewRateLimiter(),
		archiveMgr:   archiveMgr,
		pushSched:    pushSched,
		logger:       logger,
	}
}

// SessionStore returns the session store for cleanup tasks.
func (s *Server) SessionStore() *store.SessionStore {
	return s.sessionStore
}

// RateLimiter returns the rate limiter for cleanup tasks.
func (s *Server) RateLimiter() *middleware.RateLimiter {
	return s.rateLimiter
}

// ArchiveManager returns the archive manager.
func (s *Server) ArchiveManager() *archive.Manager {
	return s.archiveMgr
}

// PushScheduler returns the hold release scheduler. Nil when push is
// not configured.
func (s *Server) PushScheduler() *push.Scheduler {
	return s.pushSched
}

func (s *Server) Router() http.Handler {
	outerMux := http.NewServeMux()

	// Public routes
	outerMux.HandleFunc("POST /api/auth/register", s.rateLimitedHandler(s.authH.Register))
	outerMux.HandleFunc("POST /api/auth/login", s.rateLimitedHandler(s.authH.Login))
	outerMux.HandleFunc("POST /api/auth/logout", s.authH.Logout)
	outerMux.HandleFunc("GET /api/auth/session", s.authH.Session)
	outerMux.HandleFunc("GET /api/auth/validate", s.authH.Validate)
	outerMux.HandleFunc("GET /health", s.healthHandler)

	protectedMux := http.NewServeMux()
	s.registerProtectedRoutes(protectedMux)

	authMiddleware := middleware.RequireAuth(s.authSvc, s.orgStore)
	outerMux.Handle("/", authMiddleware(protectedMux))

	return middleware.RequestLogger(s.logger.With("component", "http"))(outerMux)
}

func (s *Server) healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func (s *Server) rateLimitedHandler(h http.HandlerFunc) http.HandlerFunc {
	keyFunc := func(r *http.Request) string {
		return middleware.RealIP(r)
	}
	rl := middleware.RateLimit(s.rateLimiter, keyFunc, 10, time.Minute)
	return func(w http.ResponseWriter, r *http.Request) {
		rl(http.HandlerFunc(h)).ServeHTTP(w, r)
	}
}

// org wraps a handler that reads or writes ledger data. Every such route
// requires an active organization on the session.
func org(h http.HandlerFunc) http.Handler {
	return middleware.RequireOrg(h)
}

func admin(h http.HandlerFunc) http.Handler {
	return middleware.RequireOrg(middleware.RequireAdmin(h))
}

func (s *Server) registerProtectedRoutes(mux *http.ServeMux) {
	// Organization membership
	mux.HandleFunc("GET /api/organizations", s.authH.ListOrganizations)
	mux.HandleFunc("POST /api/organizations", s.authH.CreateOrganization)
	mux.HandleFunc("POST /api/organizations/{id}/activate", s.authH.ActivateOrganization)

	// Admin user management
	mux.Handle("GET /api/admin/users", admin(s.authH.ListUsers))
	mux.Handle("DELETE /api/admin/users", admin(s.authH.DeleteUser))
	mux.Handle("POST /api/admin/sessions/clear", admin(s.authH.ClearSessions))
	mux.Handle("POST /api/admin/reset", admin(s.authH.ResetAuthData))

	// Clients
	mux.Handle("POST /api/clients", org(s.clientH.Create))
	mux.Handle("GET /api/clients", org(s.clientH.List))
	mux.Handle("GET /api/clients/{id}", org(s.clientH.Get))
	mux.Handle("PUT /api/clients/{id}", org(s.clientH.Update))
	mux.Handle("DELETE /api/clients/{id}", org(s.clientH.Delete))

	// Matters
	mux.Handle("POST /api/matters", org(s.matterH.Create))
	mux.Handle("GET /api/matters", org(s.matterH.List))
	mux.Handle("GET /api/matters/{id}", org(s.matterH.Get))
	mux.Handle("PUT /api/matters/{id}", org(s.matterH.Update))
	mux.Handle("POST /api/matters/{id}/close", org(s.matterH.Close))
	mux.Handle("DELETE /api/matters/{id}", org(s.matterH.Delete))

	// Transactions
	mux.Handle("POST /api/transactions", org(s.transactionH.Create))
	mux.Handle("GET /api/transactions", org(s.transactionH.List))
	mux.Handle("PUT /api/transactions/{id}/cleared", org(s.transactionH.SetCleared))
	mux.Handle("DELETE /api/transactions/{id}", org(s.transactionH.Delete))

	// Holds
	mux.Handle("POST /api/holds", org(s.holdH.Create))
	mux.Handle("GET /api/holds", org(s.holdH.List))
	mux.Handle("POST /api/holds/{id}/release", org(s.holdH.Release))

	// Dashboard
	mux.Handle("GET /api/dashboard/stats", org(s.dashboardH.Stats))
	mux.Handle("GET /api/dashboard/activity", org(s.dashboardH.RecentActivity))

	// Reports
	mux.Handle("POST /api/reports", org(s.reportH.Generate))
	mux.Handle("GET /api/reports/history", org(s.reportH.History))

	// Document extraction
	mux.Handle("POST /api/extraction/fields", org(s.extractionH.Extract))
	mux.Handle("POST /api/extraction/ocr", org(s.extractionH.OCR))

	// Encrypted archive, admin only
	mux.Handle("GET /api/archive/status", admin(s.archiveH.Status))
	mux.Handle("POST /api/archive/run", admin(s.archiveH.Run))
	mux.Handle("GET /api/archive", admin(s.archiveH.List))
	mux.Handle("POST /api/archive/restore", admin(s.archiveH.Restore))
	mux.Handle("DELETE /api/archive", admin(s.archiveH.Delete))

	// Firm settings, admin only
	mux.Handle("GET /api/settings", org(s.settingsH.Get))
	mux.Handle("PUT /api/settings", admin(s.settingsH.Update))

	// Push notifications
	if s.pushH != nil {
		mux.HandleFunc("GET /api/push/vapid-key", s.pushH.VAPIDKey)
		mux.HandleFunc("POST /api/push/subscribe", s.pushH.Subscribe)
		mux.HandleFunc("POST /api/push/unsubscribe", s.pushH.Unsubscribe)
	}

	// WebSocket
	mux.HandleFunc("GET /ws", ws.HandleWebSocket(s.hub, s.logger.With("component", "ws_handler")))
}
