package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"sync"
	"time"

	"cartera/internal/core"
	"cartera/internal/export"
	applog "cartera/internal/log"
	"cartera/internal/report"
)

// ReportProvider serves assembled yearly reports.
type ReportProvider interface {
	YearlyReport(ctx context.Context, routeIDs []string, year int, force bool) (report.YearlyReport, error)
	RequestRefresh(ctx context.Context, routeID string, year int) error
}

// LedgerRecorder accepts ledger writes.
type LedgerRecorder interface {
	RecordTransaction(ctx context.Context, tx core.Transaction) (string, error)
	RecordLoan(ctx context.Context, loan core.Loan) (string, error)
	RecordPayment(ctx context.Context, p core.Payment) (string, error)
	MarkLoanBadDebt(ctx context.Context, loanID string, date time.Time) error
}

// RouteLister enumerates the registered routes.
type RouteLister interface {
	AllRoutes(ctx context.Context) ([]core.Route, error)
}

type Server struct {
	http.Server
	reports     ReportProvider
	ledger      LedgerRecorder
	routes      RouteLister
	exporter    export.ReportWriter
	rateLimiter *rateLimiter
	reqLogger   *applog.StructuredLogger

	shutdownOnce sync.Once
}

// Simple in-memory rate limiter
type rateLimiter struct {
	mu           sync.Mutex
	clients      map[string]*clientInfo
	stopCleanup  chan struct{}
	shutdownOnce sync.Once
}

type clientInfo struct {
	lastRequest time.Time
	requests    int
}

func newRateLimiter() *rateLimiter {
	rl := &rateLimiter{
		clients:     make(map[string]*clientInfo),
		stopCleanup: make(chan struct{}),
	}
	go rl.startCleanup()
	return rl
}

func (rl *rateLimiter) startCleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			rl.cleanupStaleEntries()
		case <-rl.stopCleanup:
			return
		}
	}
}

// cleanupStaleEntries removes client entries older than 10 minutes
func (rl *rateLimiter) cleanupStaleEntries() {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	cutoff := time.Now().Add(-10 * time.Minute)
	for ip, client := range rl.clients {
		if client.lastRequest.Before(cutoff) {
			delete(rl.clients, ip)
		}
	}
}

func (rl *rateLimiter) stop() {
	rl.shutdownOnce.Do(func() {
		if rl.stopCleanup != nil {
			close(rl.stopCleanup)
		}
	})
}

func (rl *rateLimiter) allow(clientIP string) bool {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := time.Now()
	client, exists := rl.clients[clientIP]

	if !exists {
		rl.clients[clientIP] = &clientInfo{lastRequest: now, requests: 1}
		return true
	}

	// Reset counter if more than 1 minute has passed
	if now.Sub(client.lastRequest) > time.Minute {
		client.requests = 1
		client.lastRequest = now
		return true
	}

	// Allow up to 60 requests per minute
	client.requests++
	client.lastRequest = now
	return client.requests <= 60
}

// NewServer configures routes and middleware, returning a ready-to-run server.
// The exporter may be nil when Sheets export is not configured.
func NewServer(addr string, reports ReportProvider, ledger LedgerRecorder, routes RouteLister, exporter export.ReportWriter, logger *applog.Logger) *Server {
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              addr,
			Handler:           mux,
			ReadHeaderTimeout: 10 * time.Second,
			ReadTimeout:       30 * time.Second,
			WriteTimeout:      60 * time.Second,
			IdleTimeout:       120 * time.Second,
		},
		reports:     reports,
		ledger:      ledger,
		routes:      routes,
		exporter:    exporter,
		rateLimiter: newRateLimiter(),
		reqLogger:   applog.NewStructuredLogger(logger),
	}

	mux.HandleFunc("/healthz", handleHealth)
	mux.HandleFunc("/readyz", handleReady)
	mux.HandleFunc("/api/reports/yearly", s.withSecurityHeaders(s.handleYearlyReport))
	mux.HandleFunc("/api/reports/export", s.withSecurityHeaders(s.handleExportReport))
	mux.HandleFunc("/api/transactions", s.withSecurityHeaders(s.handleCreateTransaction))
	mux.HandleFunc("/api/loans", s.withSecurityHeaders(s.handleCreateLoan))
	mux.HandleFunc("/api/loans/", s.withSecurityHeaders(s.handleLoanSubresource))
	mux.HandleFunc("/api/routes", s.withSecurityHeaders(s.handleListRoutes))

	return s
}

// withSecurityHeaders adds security headers, rate limiting, and request
// logging to responses.
func (s *Server) withSecurityHeaders(next http.HandlerFunc) http.HandlerFunc {
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
		ctx := context.WithValue(r.Context(), applog.RequestIDContextKey, requestID)
		r = r.WithContext(ctx)

		s.reqLogger.LogHTTPStart(ctx, r, clientIP)

		// Rate limit writes only.
		if r.Method == http.MethodPost && !s.rateLimiter.allow(clientIP) {
			w.Header().Set("Retry-After", "60")
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded").Write(w)
			return
		}

		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}
		next(rw, r)

		s.reqLogger.LogHTTPEnd(ctx, r, rw.statusCode, time.Since(start).Milliseconds(), clientIP)
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
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}

// Shutdown stops the rate limiter cleanup goroutine and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		if s.rateLimiter != nil {
			s.rateLimiter.stop()
		}
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}
