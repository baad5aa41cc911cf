package web

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/zombor/scout-scanner/internal/analysis"
	"github.com/zombor/scout-scanner/internal/lead"
	"github.com/zombor/scout-scanner/internal/scan"
)

// maxUploadSize bounds scan uploads; phone photos run large
const maxUploadSize = int64(50 << 20)

// Server exposes scan surfaces to the browser client and leads to admins
type Server struct {
	registry *scan.Registry
	analyzer analysis.Analyzer
	leads    *lead.Service
	auth     Auth
	mux      *http.ServeMux
	upgrader websocket.Upgrader
	ping     time.Duration
}

// NewServer creates a new Server with default mux
func NewServer(registry *scan.Registry, analyzer analysis.Analyzer, leads *lead.Service, auth Auth) *Server {
	return NewServerWithMux(registry, analyzer, leads, auth, http.NewServeMux())
}

// NewServerWithMux creates a new Server with a custom mux for testing
func NewServerWithMux(registry *scan.Registry, analyzer analysis.Analyzer, leads *lead.Service, auth Auth, mux *http.ServeMux) *Server {
	s := &Server{
		registry: registry,
		analyzer: analyzer,
		leads:    leads,
		auth:     auth,
		mux:      mux,
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool {
				return true
			},
		},
		ping: 30 * time.Second,
	}
	s.registerRoutes()
	return s
}

// registerRoutes registers all routes on the server's mux
func (s *Server) registerRoutes() {
	s.mux.HandleFunc("GET /static/app.css", s.handleStaticCSS)
	s.mux.HandleFunc("GET /static/app.js", s.handleStaticJS)

	// Scan surfaces
	s.mux.HandleFunc("POST /api/surfaces", s.handleOpenSurface)
	s.mux.HandleFunc("GET /api/surfaces/{id}", s.handleGetSurface)
	s.mux.HandleFunc("DELETE /api/surfaces/{id}", s.handleCloseSurface)
	s.mux.HandleFunc("POST /api/surfaces/{id}/scan", s.handleStartScan)
	s.mux.HandleFunc("DELETE /api/surfaces/{id}/scan", s.handleResetScan)
	s.mux.HandleFunc("POST /api/surfaces/{id}/animation-complete", s.handleAnimationComplete)
	s.mux.HandleFunc("POST /api/surfaces/{id}/lead", s.handleSurfaceLead)
	s.mux.HandleFunc("GET /api/surfaces/{id}/events", s.handleEvents)

	// Stateless endpoints kept for embedding the scanner elsewhere
	s.mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	s.mux.HandleFunc("POST /api/lead", s.handleLeadForm)

	// Admin
	s.mux.HandleFunc("POST /api/admin/login", s.handleLogin)
	s.mux.HandleFunc("GET /api/leads/{id}/image", s.requireAuth(s.handleGetLeadImage))
	s.mux.HandleFunc("POST /api/leads/{id}/retry-webhook", s.requireAuth(s.handleRetryWebhook))
	s.mux.HandleFunc("GET /api/leads/{id}", s.requireAuth(s.handleGetLead))
	s.mux.HandleFunc("DELETE /api/leads/{id}", s.requireAuth(s.handleDeleteLead))
	s.mux.HandleFunc("GET /api/leads", s.requireAuth(s.handleListLeads))
	s.mux.HandleFunc("POST /api/retry_webhook", s.requireAuth(s.handleRetryWebhookByBody))

	s.mux.HandleFunc("GET /index.html", s.handleIndex)
	s.mux.HandleFunc("GET /{$}", s.handleIndex)
}

// corsMiddleware adds CORS headers and answers preflight requests
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		setCORSHeaders(w)
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// setCORSHeaders sets CORS headers on a response
func setCORSHeaders(w http.ResponseWriter) {
	w.Header().Set("Access-Control-Allow-Origin", "*")
	w.Header().Set("Access-Control-Allow-Methods", "GET, POST, DELETE, OPTIONS")
	w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
	w.Header().Set("Access-Control-Max-Age", "3600")
}

// Handler returns the mux wrapped with CORS handling
func (s *Server) Handler() http.Handler {
	return corsMiddleware(s.mux)
}

// ServeHTTP implements http.Handler
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Handler().ServeHTTP(w, r)
}

// Start starts the HTTP server
func (s *Server) Start(addr string) error {
	slog.Info("Starting server", "address", addr)
	return http.ListenAndServe(addr, s.Handler())
}
