// Package http exposes the commissions API: uploads, setup management,
// calculation runs, filtering, summaries, exports and the formula generator.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"commissions/internal/cache"
	"commissions/internal/core"
	"commissions/internal/formula"
	applog "commissions/internal/log"
	"commissions/internal/services"
)

// FormulaGenerator produces formulas from natural-language prompts.
type FormulaGenerator interface {
	Generate(ctx context.Context, prompt string) (formula.Result, error)
}

type Server struct {
	http.Server
	svc         *services.AmortizationService
	generator   FormulaGenerator
	logger      *applog.Logger
	rateLimiter *rateLimiter

	// view holds the last run's results plus the active filter. Guarded by
	// mu; the core view itself is not synchronized.
	mu   sync.RWMutex
	view *core.ScheduleView

	// optionsCache memoizes dropdown option lists; purged on any write that
	// changes transactions or setups.
	optionsCache *cache.LRUCache[[]string]
	cacheManager *cache.Manager

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run server. generator
// may be nil, in which case the formula endpoint reports unavailability.
func NewServer(addr string, svc *services.AmortizationService, generator FormulaGenerator, logger *applog.Logger, cacheSize int, cacheTTL time.Duration) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:    addr,
			Handler: mux,
		},
		svc:          svc,
		generator:    generator,
		logger:       logger.WithComponent(applog.ComponentHTTP),
		rateLimiter:  newRateLimiter(),
		view:         core.NewScheduleView(nil, nil),
		optionsCache: cache.NewLRUCache[[]string](cacheSize, cacheTTL),
		cacheManager: cache.NewManager(),
	}

	s.cacheManager.Register(s.optionsCache)
	s.cacheManager.StartCleanup(cacheTTL)

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)

	mux.HandleFunc("/api/transactions/upload", s.withMiddleware(s.handleTransactionsUpload))
	mux.HandleFunc("/api/transactions", s.withMiddleware(s.handleTransactions))
	mux.HandleFunc("/api/setups", s.withMiddleware(s.handleSetups))
	mux.HandleFunc("/api/setups/upload", s.withMiddleware(s.handleSetupsUpload))
	mux.HandleFunc("/api/template", s.withMiddleware(s.handleTemplate))
	mux.HandleFunc("/api/run", s.withMiddleware(s.handleRun))
	mux.HandleFunc("/api/schedule", s.withMiddleware(s.handleSchedule))
	mux.HandleFunc("/api/schedule/filter", s.withMiddleware(s.handleFilter))
	mux.HandleFunc("/api/schedule/filter/clear", s.withMiddleware(s.handleFilterClear))
	mux.HandleFunc("/api/overview", s.withMiddleware(s.handleOverview))
	mux.HandleFunc("/api/summary", s.withMiddleware(s.handleSummary))
	mux.HandleFunc("/api/chart", s.withMiddleware(s.handleChart))
	mux.HandleFunc("/api/export/schedule", s.withMiddleware(s.handleExportSchedule))
	mux.HandleFunc("/api/export/overview", s.withMiddleware(s.handleExportOverview))
	mux.HandleFunc("/api/options", s.withMiddleware(s.handleOptions))
	mux.HandleFunc("/api/mappings", s.withMiddleware(s.handleMappings))
	mux.HandleFunc("/api/formula", s.withMiddleware(s.handleFormula))

	return s
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		s.cacheManager.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// currentView runs fn under the view lock.
func (s *Server) currentView(fn func(*core.ScheduleView)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	fn(s.view)
}

func (s *Server) resetView(result core.RunResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.view = core.NewScheduleView(result.Schedule, result.Overview)
}

// withMiddleware adds security headers, rate limiting, and request logging
func (s *Server) withMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		clientIP := r.Header.Get("X-Forwarded-For")
		if clientIP == "" {
			clientIP = r.Header.Get("X-Real-IP")
		}
		if clientIP == "" {
			clientIP = r.RemoteAddr
		}

		requestID := generateRequestID()
		reqLogger := s.logger.With(applog.FieldRequestID, requestID)

		reqLogger.Info("Request started",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldClientIP, clientIP)

		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			reqLogger.Warn("Rate limit exceeded",
				applog.FieldClientIP, clientIP,
				applog.FieldPath, r.URL.Path)
			w.Header().Set("Retry-After", "60")
			writeError(w, http.StatusTooManyRequests, "rate limit exceeded")
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		reqLogger.Info("Request completed",
			applog.FieldMethod, r.Method,
			applog.FieldPath, r.URL.Path,
			applog.FieldStatusCode, rw.statusCode,
			applog.FieldDuration, time.Since(start).Milliseconds())
	}
}

// responseWriter wraps http.ResponseWriter to capture the status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (rw *responseWriter) WriteHeader(code int) {
	rw.statusCode = code
	rw.ResponseWriter.WriteHeader(code)
}

// generateRequestID creates a unique request ID for tracing
func generateRequestID() string {
	bytes := make([]byte, 8)
	if _, err := rand.Read(bytes); err != nil {
		return fmt.Sprintf("req_%d", time.Now().UnixNano())
	}
	return "req_" + hex.EncodeToString(bytes)
}

func handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}
