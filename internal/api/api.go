// Package api provides the billsync HTTP server.
package api

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/google/uuid"
	"github.com/kamilpajak/billsync/internal/auth"
	"github.com/kamilpajak/billsync/internal/billing"
	"github.com/kamilpajak/billsync/pkg/models"
	"github.com/rs/cors"
)

// Store is the persistence the server reads and the webhook pipeline writes.
type Store interface {
	billing.Store
	Ping(ctx context.Context) error
	GetUserByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListInvoices(ctx context.Context, params models.ListInvoicesParams) ([]models.Invoice, error)
	ListInvoicePayments(ctx context.Context, invoiceID uuid.UUID) ([]models.Payment, error)
}

// InvoiceSyncer re-reads one invoice from Stripe into the store.
type InvoiceSyncer interface {
	SyncInvoice(ctx context.Context, stripeInvoiceID string) (*models.Invoice, error)
}

// Server is the API server.
type Server struct {
	store        Store
	authVerifier auth.TokenVerifier
	webhook      http.Handler
	syncer       InvoiceSyncer
	logger       *slog.Logger
	mux          *http.ServeMux
	handler      http.Handler
}

// Config holds API server configuration.
type Config struct {
	Store        Store
	AuthVerifier auth.TokenVerifier
	// Webhook serves POST /api/webhooks/stripe.
	Webhook http.Handler
	Syncer  InvoiceSyncer
	// AllowedOrigins lists browser origins allowed by CORS; empty means "*".
	AllowedOrigins []string
	Logger         *slog.Logger
}

// NewServer creates a new API server.
func NewServer(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		store:        cfg.Store,
		authVerifier: cfg.AuthVerifier,
		webhook:      cfg.Webhook,
		syncer:       cfg.Syncer,
		logger:       logger,
		mux:          http.NewServeMux(),
	}

	s.registerRoutes()

	origins := cfg.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	s.handler = cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodOptions},
		AllowedHeaders: []string{"Content-Type", "Authorization", "Stripe-Signature"},
	}).Handler(s.mux)

	return s
}

func (s *Server) registerRoutes() {
	authMiddleware := auth.Middleware(s.authVerifier, s.logger)

	// Public endpoints
	s.mux.HandleFunc("GET /health", s.handleHealth)
	if s.webhook != nil {
		s.mux.Handle("POST /api/webhooks/stripe", s.webhook)
	}

	s.mux.HandleFunc("GET /api/me", s.withAuth(authMiddleware, s.handleGetMe))

	// Client portal
	s.mux.HandleFunc("GET /api/portal/invoices", s.withAuth(authMiddleware, s.handlePortalInvoices))

	// Admin dashboard
	s.mux.HandleFunc("GET /api/admin/invoices", s.withAuth(authMiddleware, s.requireAdmin(s.handleListInvoices)))
	s.mux.HandleFunc("GET /api/admin/invoices/{invoiceID}", s.withAuth(authMiddleware, s.requireAdmin(s.handleGetInvoice)))
	s.mux.HandleFunc("GET /api/admin/invoices/{invoiceID}/payments", s.withAuth(authMiddleware, s.requireAdmin(s.handleListPayments)))
	s.mux.HandleFunc("POST /api/admin/invoices/{invoiceID}/sync", s.withAuth(authMiddleware, s.requireAdmin(s.handleSyncInvoice)))
}

func (s *Server) withAuth(middleware func(http.Handler) http.Handler, handler http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		middleware(handler).ServeHTTP(w, r)
	}
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(r.Context()); err != nil {
		s.logger.ErrorContext(r.Context(), "health check failed", "error", err)
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
