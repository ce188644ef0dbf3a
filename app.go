package apischema

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"
	"strings"
	"sync"

	"github.com/broady/apischema/internal/meta"
	slogctx "github.com/veqryn/slog-context"
)

// App routes requests to registered endpoints by mount path.
// Use Handler() to get an http.Handler for use with http.ListenAndServe.
type App struct {
	mu                 sync.RWMutex
	routes             map[string]*route
	order              []*route
	errorTransformer   ErrorTransformer
	maskInternalErrors bool
	middlewares        []func(http.Handler) http.Handler
	logger             *slog.Logger
	maxRequestBodySize uint64
	interceptors       []Interceptor
}

type route struct {
	path     string
	name     string
	endpoint Endpoint
}

func (r *route) metadata() *meta.MethodMetadata {
	m := r.endpoint.Metadata()
	m.Path = r.path
	m.Name = r.name
	return m
}

func NewApp() *App {
	return &App{
		routes:             make(map[string]*route),
		maxRequestBodySize: 1 << 20, // 1MB default
	}
}

// WithErrorTransformer adds a custom error transformer.
// It returns the app for chaining.
func (a *App) WithErrorTransformer(fn ErrorTransformer) *App {
	a.errorTransformer = fn
	return a
}

// WithMaskInternalErrors hides internal error messages from clients.
// The original error is still logged.
func (a *App) WithMaskInternalErrors() *App {
	a.maskInternalErrors = true
	return a
}

// WithMiddleware adds an HTTP middleware to wrap the app.
// Middleware is applied in the order added (first added is outermost).
func (a *App) WithMiddleware(mw func(http.Handler) http.Handler) *App {
	a.middlewares = append(a.middlewares, mw)
	return a
}

// WithInterceptor adds an interceptor around every endpoint. Interceptors
// run in the order added, app interceptors before handler interceptors.
func (a *App) WithInterceptor(i Interceptor) *App {
	a.interceptors = append(a.interceptors, i)
	return a
}

// WithLogger sets a custom logger for the app. If not set, the logger
// carried by the request context is used (see middleware.Logging), falling
// back to slog.Default().
func (a *App) WithLogger(logger *slog.Logger) *App {
	a.logger = logger
	return a
}

// WithMaxRequestBodySize sets the default maximum request body size for all handlers.
// A value of 0 means no limit. Default is 1MB (1 << 20).
func (a *App) WithMaxRequestBodySize(size uint64) *App {
	a.maxRequestBodySize = size
	return a
}

func (a *App) log(ctx context.Context) *slog.Logger {
	if a.logger == nil {
		return slogctx.FromCtx(ctx)
	}
	return a.logger
}

// Handler returns an http.Handler serving every registered endpoint at
// its mount path, wrapped in the configured middleware.
func (a *App) Handler() http.Handler {
	var h http.Handler = http.HandlerFunc(a.serveHTTP)
	for i := len(a.middlewares) - 1; i >= 0; i-- {
		h = a.middlewares[i](h)
	}
	return h
}

// Service returns a namespace whose endpoints mount under path.
func (a *App) Service(path string) *Service {
	return &Service{app: a, path: strings.Trim(path, "/")}
}

// Endpoints returns the metadata of every registered endpoint in
// registration order.
func (a *App) Endpoints() []*meta.MethodMetadata {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]*meta.MethodMetadata, len(a.order))
	for i, r := range a.order {
		out[i] = r.metadata()
	}
	return out
}

func (a *App) serveHTTP(w http.ResponseWriter, req *http.Request) {
	logger := a.log(req.Context())
	defer func() {
		if rec := recover(); rec != nil {
			logger.Error("PANIC recovered",
				slog.Any("panic", rec),
				slog.String("stack", string(debug.Stack())))
			writeError(w, NewError(CodeInternal, fmt.Sprintf("internal server error (panic): %v", rec)), logger)
		}
	}()

	a.mu.RLock()
	r, ok := a.routes[req.URL.Path]
	a.mu.RUnlock()
	if !ok {
		writeError(w, NewError(CodeNotFound, "route not found"), logger)
		return
	}

	m := r.endpoint.Metadata()
	if req.Method != m.HTTPMethod {
		w.Header().Set("Allow", m.HTTPMethod)
		writeError(w, Errorf(CodeMethodNotAllowed, "method %s not allowed, expected %s", req.Method, m.HTTPMethod), logger)
		return
	}

	logger = logger.With(slog.String("endpoint", req.URL.Path))
	r.endpoint.serve(&call{
		ctx:                newCallContext(slogctx.NewCtx(req.Context(), logger), w, req, EndpointInfo{Path: r.path, Name: r.name}),
		w:                  w,
		r:                  req,
		logger:             logger,
		errorTransformer:   a.errorTransformer,
		maskInternalErrors: a.maskInternalErrors,
		maxRequestBodySize: a.maxRequestBodySize,
		interceptors:       a.interceptors,
	})
}

// Service groups endpoints under a common path.
type Service struct {
	app  *App
	path string
}

// Service returns a nested namespace.
func (s *Service) Service(path string) *Service {
	return &Service{app: s.app, path: strings.Trim(s.path+"/"+strings.Trim(path, "/"), "/")}
}

// Register mounts endpoint at /path/name. Registering the same path twice
// replaces the earlier endpoint and logs a warning.
func (s *Service) Register(name string, endpoint Endpoint) {
	r := &route{path: s.path, name: name, endpoint: endpoint}
	key := r.metadata().MountPath()

	s.app.mu.Lock()
	defer s.app.mu.Unlock()

	if prev, exists := s.app.routes[key]; exists {
		s.app.log(context.Background()).Warn("duplicate route registration", slog.String("route", key))
		for i, o := range s.app.order {
			if o == prev {
				s.app.order[i] = r
			}
		}
	} else {
		s.app.order = append(s.app.order, r)
	}
	s.app.routes[key] = r
}
