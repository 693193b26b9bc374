// Package http exposes the ledger store and the aggregator as a JSON API.
package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"ledgerbook/internal/aggregate"
	"ledgerbook/internal/core"
	"ledgerbook/internal/ledger"
	applog "ledgerbook/internal/log"
	"ledgerbook/internal/middleware/security"
	"ledgerbook/internal/middleware/trace"
)

// LedgerStore is the subset of *ledger.Store the handlers call.
type LedgerStore interface {
	Load(ctx context.Context, account string) (core.Ledger, ledger.ReadReport, error)
	Append(ctx context.Context, account string, t core.Transaction) (core.Ledger, error)
	Reset(ctx context.Context, account string) error
	Schema() ledger.Schema
}

type Options struct {
	Store      LedgerStore
	Categories []string
	KindFilter aggregate.KindFilter
	Logger     *applog.Logger
	// Now is the reference clock for overviews and default dates.
	Now func() time.Time
	// RateLimit caps mutating requests per client IP per minute; 0 means 60.
	RateLimit int
}

type Server struct {
	http.Server
	store       LedgerStore
	categories  []string
	kindFilter  aggregate.KindFilter
	logger      *applog.Logger
	now         func() time.Time
	tracer      *trace.Middleware
	headers     *security.HeadersMiddleware
	rateLimiter *rateLimiter
	security    *securityMetrics

	shutdownOnce sync.Once
}

// NewServer configures routes, returning a ready-to-run http.Server.
func NewServer(addr string, opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = applog.New(applog.DefaultConfig())
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Server{
		store:       opts.Store,
		categories:  opts.Categories,
		kindFilter:  opts.KindFilter,
		logger:      logger.WithComponent(applog.ComponentHTTP),
		now:         now,
		tracer:      trace.NewMiddleware(logger),
		headers:     security.NewHeadersMiddleware(security.DefaultHeadersConfig()),
		rateLimiter: newRateLimiter(opts.RateLimit),
		security:    &securityMetrics{},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", handleHealth)
	mux.HandleFunc("GET /readyz", handleReady)
	mux.HandleFunc("GET /categories", s.handleCategories)
	mux.HandleFunc("GET /ledgers/{account}", s.handleLoad)
	mux.HandleFunc("DELETE /ledgers/{account}", s.handleReset)
	mux.HandleFunc("POST /ledgers/{account}/transactions", s.handleAppend)
	mux.HandleFunc("GET /ledgers/{account}/overview", s.handleOverview)
	mux.HandleFunc("GET /ledgers/{account}/series", s.handleSeries)
	mux.HandleFunc("GET /ledgers/{account}/export", s.handleExport)

	s.Server = http.Server{
		Addr:              addr,
		Handler:           s.tracer.Middleware(s.withRequestGuard(s.headers.Middleware(mux))),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       120 * time.Second,
	}
	return s
}

// withRequestGuard reports probing traffic and rate limits mutating requests.
func (s *Server) withRequestGuard(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		clientIP := extractClientIP(r)
		logger := applog.FromContext(ctx)

		if detectSuspiciousRequest(r, s.security) {
			logger.WarnContext(ctx, "Suspicious request",
				applog.FieldClientIP, clientIP,
				applog.FieldMethod, r.Method,
				applog.FieldPath, r.URL.Path,
				applog.FieldUserAgent, r.Header.Get("User-Agent"))
		}

		if r.Method != http.MethodGet && r.Method != http.MethodHead && !s.rateLimiter.allow(clientIP, s.security) {
			logger.WarnContext(ctx, "Rate limit exceeded", applog.FieldClientIP, clientIP, applog.FieldPath, r.URL.Path)
			ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, try again later").
				Header("Retry-After", "60").
				Write(w)
			return
		}

		next.ServeHTTP(w, r)
	})
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.rateLimiter.stop()
		shutdownErr = s.Server.Shutdown(ctx)
		s.logger.InfoContext(ctx, "HTTP server stopped",
			applog.FieldOperation, applog.OpShutdown,
			"requests", s.tracer.GetMetrics().TotalRequests)
	})
	return shutdownErr
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

func handleReady(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ready"))
}
