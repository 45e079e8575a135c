package http

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"sync"
	"time"

	"mealtrack/internal/analytics"
	"mealtrack/internal/cache"
	"mealtrack/internal/core"
	"mealtrack/internal/goals"
	"mealtrack/internal/log"
	"mealtrack/internal/metrics"
	"mealtrack/internal/middleware/ratelimit"
	"mealtrack/internal/middleware/security"
	"mealtrack/internal/middleware/trace"
	"mealtrack/internal/records"
	appweb "mealtrack/web"
)

// RecordReader is the read side of the record store. *records.Store
// satisfies it.
type RecordReader interface {
	analytics.Source
	All() []core.Record
	FilterByDate(d core.Date) []core.Record
	GroupByDate() []records.Group
	Len() int
	// Version changes whenever a record is created.
	Version() uint64
}

// RecordSubmitter validates and stores submissions.
// *services.RecordService satisfies it.
type RecordSubmitter interface {
	Submit(ctx context.Context, in core.FormInput) (core.Record, error)
}

// Options configures NewServer. Zero values fall back to defaults.
type Options struct {
	Addr               string
	Records            RecordReader
	Submitter          RecordSubmitter
	Logger             *log.Logger
	Targets            goals.Targets
	RateLimitPerMinute int
	ViewCacheSize      int
	ViewCacheTTL       time.Duration
	// Today returns the reference date for views without an explicit date.
	Today func() core.Date
}

// weekKey identifies a cached week. Version is the store version the view
// was built at, so a view that raced a create is never served afterwards.
type weekKey struct {
	Start   string
	Version uint64
}

// monthKey identifies a cached calendar. Today is part of the key because
// the grid highlights it.
type monthKey struct {
	Year, Month int
	Today       core.Date
	Version     uint64
}

type Server struct {
	http.Server
	templates *template.Template
	records   RecordReader
	submitter RecordSubmitter
	evaluator *goals.Evaluator
	logger    *log.Logger
	today     func() core.Date
	started   time.Time

	weekCache    *cache.LRU[weekKey, analytics.Week]
	monthCache   *cache.LRU[monthKey, analytics.Month]
	cacheManager *cache.Manager

	rateLimiter *ratelimit.Limiter
	clientIP    *security.ClientIP

	shutdownOnce sync.Once
}

// NewServer configures routes and templates, returning a ready-to-run server.
func NewServer(opts Options) *Server {
	if opts.Logger == nil {
		opts.Logger = log.Discard()
	}
	if opts.ViewCacheSize <= 0 {
		opts.ViewCacheSize = 128
	}
	if opts.ViewCacheTTL <= 0 {
		opts.ViewCacheTTL = 5 * time.Minute
	}
	if opts.Today == nil {
		opts.Today = core.Today
	}

	logger := opts.Logger.WithComponent(log.ComponentHTTP)
	mux := http.NewServeMux()

	s := &Server{
		Server: http.Server{
			Addr:              opts.Addr,
			ReadHeaderTimeout: 10 * time.Second,
		},
		records:     opts.Records,
		submitter:   opts.Submitter,
		evaluator:   goals.NewEvaluator(opts.Targets),
		logger:      logger,
		today:       opts.Today,
		started:     time.Now(),
		weekCache:   cache.NewLRU[weekKey, analytics.Week](opts.ViewCacheSize, opts.ViewCacheTTL),
		monthCache:  cache.NewLRU[monthKey, analytics.Month](opts.ViewCacheSize, opts.ViewCacheTTL),
		rateLimiter: ratelimit.NewLimiter(ratelimit.Config{RequestsPerMinute: opts.RateLimitPerMinute}),
		clientIP:    security.NewClientIP(),
	}

	s.cacheManager = cache.NewManager(logger.Logger.With(log.FieldComponent, log.ComponentCache))
	s.cacheManager.Register(s.weekCache)
	s.cacheManager.Register(s.monthCache)
	s.cacheManager.Start(context.Background(), 10*time.Minute)

	t, err := template.New("").Funcs(templateFuncs).ParseFS(appweb.TemplatesFS, "templates/*.html")
	if err != nil {
		logger.Error("Failed parsing templates", log.FieldError, err.Error())
	} else {
		s.templates = t
	}

	if sub, err := fs.Sub(appweb.StaticFS, "static"); err == nil {
		static := http.StripPrefix("/static/", http.FileServer(http.FS(sub)))
		mux.Handle("GET /static/", security.StaticAssetMiddleware(3600)(static))
	} else {
		logger.Warn("Failed to mount embedded static FS", log.FieldError, err.Error())
	}

	s.handle(mux, "GET /{$}", s.handleIndex)
	s.handle(mux, "GET /healthz", s.handleHealth)
	s.handle(mux, "GET /readyz", s.handleReady)
	mux.Handle("GET /metrics", metrics.Handler())

	limited := s.rateLimiter.Middleware(s.clientIP.Extract, s.onRateLimit)
	mux.Handle("POST /records", limited(http.HandlerFunc(s.routed(s.handleCreateRecord))))

	// UI partials
	s.handle(mux, "GET /ui/list", s.handleList)
	s.handle(mux, "GET /ui/stats", s.handleStats)
	s.handle(mux, "GET /ui/timeline", s.handleTimeline)
	s.handle(mux, "GET /ui/calendar", s.handleCalendar)
	s.handle(mux, "GET /ui/goals", s.handleGoals)
	s.handle(mux, "GET /ui/analytics", s.handleAnalytics)

	// JSON API
	s.handle(mux, "GET /api/records", s.handleAPIRecords)
	s.handle(mux, "GET /api/timeline", s.handleAPITimeline)
	s.handle(mux, "GET /api/goals", s.handleAPIGoals)
	s.handle(mux, "GET /api/analytics", s.handleAPIAnalytics)
	s.handle(mux, "GET /api/calendar", s.handleAPICalendar)

	s.Handler = s.withMiddleware(mux)
	return s
}

func (s *Server) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.HandleFunc(pattern, s.routed(h))
}

// routed reports the matched pattern to the trace middleware.
func (s *Server) routed(h http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		trace.SetRoute(r.Context(), r.Pattern)
		h(w, r)
	}
}

// withMiddleware adds tracing, request-scoped logging and security headers.
func (s *Server) withMiddleware(next http.Handler) http.Handler {
	headers := security.NewHeadersMiddleware(security.DefaultHeadersConfig())
	tracer := trace.NewMiddleware(s.logger, s.clientIP.Extract)

	h := headers.Middleware(next)
	h = log.RequestIDMiddleware(trace.FromRequest)(h)
	h = log.Middleware(s.logger)(h)
	return tracer.Middleware(h)
}

func (s *Server) onRateLimit(w http.ResponseWriter, r *http.Request) {
	s.logger.WithComponent(log.ComponentRateLimit).WarnContext(r.Context(), "Rate limit exceeded",
		log.FieldClientIP, s.clientIP.Extract(r),
		log.FieldPath, r.URL.Path)
	ErrorResponse(http.StatusTooManyRequests, "Too many submissions. Please try again later.").Write(w)
}

// Shutdown stops the background routines and the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	var shutdownErr error
	s.shutdownOnce.Do(func() {
		s.cacheManager.Stop()
		s.rateLimiter.Stop()
		shutdownErr = s.Server.Shutdown(ctx)
	})
	return shutdownErr
}

// invalidateViews drops the cached week and month containing d. Entries built
// at an older store version are unreachable anyway; this frees them early.
func (s *Server) invalidateViews(d core.Date) {
	start := core.Encode(goals.WeekStart(d))
	s.weekCache.DeleteFunc(func(k weekKey) bool {
		return k.Start == start
	})
	s.monthCache.DeleteFunc(func(k monthKey) bool {
		return k.Year == d.Year() && k.Month == d.Month()
	})
}

func (s *Server) getWeek(ctx context.Context, d core.Date) analytics.Week {
	// The version is read before the build: a create that lands mid-build
	// moves readers to a new key.
	key := weekKey{Start: core.Encode(goals.WeekStart(d)), Version: s.records.Version()}
	if w, ok := s.weekCache.Get(key); ok {
		metrics.CacheLookup("week", true)
		return w
	}
	metrics.CacheLookup("week", false)

	w := analytics.BuildWeek(s.records, d, s.evaluator.Targets.DailyCalories)
	s.weekCache.Set(key, w)
	s.logger.DebugContext(ctx, "Week cached", "week_start", key.Start, log.FieldCalories, w.TotalCalories)
	return w
}

func (s *Server) getMonth(ctx context.Context, year, month int) analytics.Month {
	key := monthKey{Year: year, Month: month, Today: s.today(), Version: s.records.Version()}
	if m, ok := s.monthCache.Get(key); ok {
		metrics.CacheLookup("month", true)
		return m
	}
	metrics.CacheLookup("month", false)

	m := analytics.BuildMonth(s.records, year, month, key.Today)
	s.monthCache.Set(key, m)
	s.logger.DebugContext(ctx, "Month cached", log.FieldYear, year, log.FieldMonth, month)
	return m
}

// render executes a page or partial template.
func (s *Server) render(w http.ResponseWriter, r *http.Request, name string, data any) {
	if s.templates == nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Templates not loaded",
			log.FieldPath, r.URL.Path,
			log.FieldErrorType, log.ErrorTypeInternal)
		http.Error(w, "templates not loaded", http.StatusInternalServerError)
		return
	}

	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		s.logger.WithComponent(log.ComponentTemplate).ErrorContext(r.Context(), "Template execution failed",
			log.FieldError, err.Error(),
			log.FieldErrorType, log.ErrorTypeInternal,
			log.FieldOperation, log.OpRender,
			log.FieldTemplate, name)
		http.Error(w, "render failed", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = buf.WriteTo(w)
}

// renderString executes a template into a string, for HTMX fragments.
func (s *Server) renderString(name string, data any) (string, error) {
	if s.templates == nil {
		return "", fmt.Errorf("render %s: templates not loaded", name)
	}
	var buf bytes.Buffer
	if err := s.templates.ExecuteTemplate(&buf, name, data); err != nil {
		return "", fmt.Errorf("render %s: %w", name, err)
	}
	return buf.String(), nil
}
