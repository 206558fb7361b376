package http

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"fintrack/internal/cache"
	"fintrack/internal/categorize"
	"fintrack/internal/log"
	"fintrack/internal/middleware/ratelimit"
	"fintrack/internal/middleware/security"
	"fintrack/internal/middleware/trace"
	"fintrack/internal/services"
)

// Config holds the tuning knobs of the HTTP server.
type Config struct {
	Addr string

	// RateLimitPerMinute bounds mutating requests per client (default: 60)
	RateLimitPerMinute int

	// SuggestDebounce is the quiet period before a draft asks for a
	// category suggestion (default: 1s)
	SuggestDebounce time.Duration

	// DraftCapacity and DraftTTL bound the open drafts (default: 256, 30m)
	DraftCapacity int
	DraftTTL      time.Duration
}

func DefaultConfig() Config {
	return Config{
		Addr:               ":8080",
		RateLimitPerMinute: 60,
		SuggestDebounce:    time.Second,
		DraftCapacity:      256,
		DraftTTL:           30 * time.Minute,
	}
}

// Server wraps http.Server and serves the ledger JSON API.
type Server struct {
	http.Server

	ledger      *services.LedgerService
	categorizer *categorize.Categorizer
	drafts      *cache.LRUCache[*categorize.Form]
	debounce    time.Duration

	clock   func() time.Time
	newID   func() string
	started time.Time

	limiter  *ratelimit.Limiter
	detector *security.Detector
	tracer   *trace.Middleware
	logger   *log.Logger

	shutdownOnce sync.Once
}

type Option func(*Server)

// WithClock replaces the time source used as the default reference date.
func WithClock(now func() time.Time) Option {
	return func(s *Server) { s.clock = now }
}

// WithDraftIDGenerator replaces the UUID generator used for draft ids.
func WithDraftIDGenerator(f func() string) Option {
	return func(s *Server) { s.newID = f }
}

// NewServer configures routes and middleware, returning a ready-to-run
// server. A nil categorizer disables category suggestions.
func NewServer(cfg Config, ledger *services.LedgerService, categorizer *categorize.Categorizer, logger *log.Logger, opts ...Option) *Server {
	def := DefaultConfig()
	if cfg.Addr == "" {
		cfg.Addr = def.Addr
	}
	if cfg.SuggestDebounce <= 0 {
		cfg.SuggestDebounce = def.SuggestDebounce
	}
	if cfg.DraftCapacity < 1 {
		cfg.DraftCapacity = def.DraftCapacity
	}
	if cfg.DraftTTL <= 0 {
		cfg.DraftTTL = def.DraftTTL
	}
	if logger == nil {
		logger = log.Discard()
	}
	logger = logger.WithComponent(log.ComponentHTTP)

	s := &Server{
		ledger:      ledger,
		categorizer: categorizer,
		drafts:      cache.NewLRUCache[*categorize.Form](cfg.DraftCapacity, cfg.DraftTTL).OnEvict(closeForm),
		debounce:    cfg.SuggestDebounce,
		clock:       time.Now,
		newID:       uuid.NewString,
		started:     time.Now(),
		limiter:     ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: cfg.RateLimitPerMinute}),
		detector:    security.NewDetector(logger),
		logger:      logger,
	}
	for _, opt := range opts {
		opt(s)
	}
	s.tracer = trace.NewMiddleware(logger, s.detector.ExtractClientIP)

	mux := http.NewServeMux()
	s.routes(mux)

	s.Server = http.Server{
		Addr:              cfg.Addr,
		Handler:           s.chain(mux),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       2 * time.Minute,
	}
	return s
}

func (s *Server) routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /readyz", s.handleReady)

	mux.HandleFunc("GET /api/transactions", s.handleListTransactions)
	mux.HandleFunc("POST /api/transactions", s.handleSaveTransaction)
	mux.HandleFunc("DELETE /api/transactions/{id}", s.handleDeleteTransaction)

	mux.HandleFunc("GET /api/recurring", s.handleListRecurring)
	mux.HandleFunc("POST /api/recurring", s.handleSaveRecurring)
	mux.HandleFunc("DELETE /api/recurring/{id}", s.handleDeleteRecurring)

	mux.HandleFunc("GET /api/accounts", s.handleListAccounts)
	mux.HandleFunc("POST /api/accounts", s.handleSaveAccount)
	mux.HandleFunc("DELETE /api/accounts/{id}", s.handleDeleteAccount)

	mux.HandleFunc("GET /api/cards", s.handleListCards)
	mux.HandleFunc("POST /api/cards", s.handleSaveCard)
	mux.HandleFunc("DELETE /api/cards/{id}", s.handleDeleteCard)

	mux.HandleFunc("GET /api/widgets", s.handleGetWidgets)
	mux.HandleFunc("PUT /api/widgets", s.handleSetWidgets)

	mux.HandleFunc("GET /api/summary", s.handleSummary)
	mux.HandleFunc("GET /api/dashboard", s.handleDashboard)

	mux.HandleFunc("GET /api/categories", s.handleCategories)
	mux.HandleFunc("POST /api/categories/suggest", s.handleSuggestCategory)

	mux.HandleFunc("POST /api/drafts", s.handleCreateDraft)
	mux.HandleFunc("GET /api/drafts/{id}", s.handleGetDraft)
	mux.HandleFunc("POST /api/drafts/{id}/actions", s.handleDraftAction)
	mux.HandleFunc("POST /api/drafts/{id}/commit", s.handleCommitDraft)
	mux.HandleFunc("DELETE /api/drafts/{id}", s.handleDiscardDraft)
}

// chain wraps h with the middleware stack. The first wrapper listed runs
// last.
func (s *Server) chain(h http.Handler) http.Handler {
	h = s.limiter.Middleware(s.detector.ExtractClientIP, ratelimit.MutatingOnly, s.onRateLimit)(h)
	h = security.NewHeadersMiddleware(security.DefaultHeadersConfig()).Middleware(h)
	h = log.RequestIDMiddleware(trace.RequestID)(h)
	h = s.tracer.Middleware(h)
	h = s.detector.Middleware(h)
	h = log.Middleware(s.logger)(h)
	return h
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.detector.ExtractClientIP(r),
		log.FieldMethod, r.Method,
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "rate limit exceeded, please try again later").Write(w)
}

// Drafts exposes the open drafts so that the cache can be registered for
// cleanup.
func (s *Server) Drafts() *cache.LRUCache[*categorize.Form] {
	return s.drafts
}

// Metrics returns the request counters of the middleware stack.
func (s *Server) Metrics() (trace.Metrics, ratelimit.Metrics, security.DetectionMetrics) {
	return s.tracer.GetMetrics(), s.limiter.GetMetrics(), s.detector.GetMetrics()
}

// Shutdown gracefully shuts down the server and cleanup routines
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.limiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// closeForm stops the pending suggestion of a draft the cache dropped.
func closeForm(_ string, f *categorize.Form) { f.Close() }

// fail writes the response for err, logging failures that are not the
// client's fault.
func (s *Server) fail(w http.ResponseWriter, r *http.Request, op string, err error) {
	if StatusForError(err) == http.StatusInternalServerError {
		ctx := r.Context()
		log.NewStructuredLogger(log.FromContext(ctx)).LogError(ctx, "Request failed", err, log.ComponentHTTP, op,
			log.NewFields().WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "", ""))
	}
	ErrorFor(err).Write(w)
}

// now resolves the reference date of r.
func (s *Server) now(r *http.Request) (time.Time, error) {
	return ParseNow(r.URL.Query(), s.clock)
}
