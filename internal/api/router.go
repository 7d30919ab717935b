// Package api exposes the profile store over HTTP and, for the chat
// assistant, over MCP.
package api

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/kalambet/solace/internal/migration"
	"github.com/kalambet/solace/internal/profile"
)

const maxRequestBodySize = 1 << 20 // 1MB

// Profiles is the access facade as seen by the handlers.
type Profiles interface {
	Get(ctx context.Context, username string) (profile.Record, bool)
	Put(ctx context.Context, username string, r profile.Record) bool
	Patch(ctx context.Context, username string, p profile.Patch) bool
	Exists(ctx context.Context, username string) bool
	CreateUser(ctx context.Context, username string) bool
}

// Migrator runs the local-to-remote migration.
type Migrator interface {
	Migrate(ctx context.Context) migration.Result
	Clear(ctx context.Context)
}

type Deps struct {
	Profiles Profiles
	Migrator Migrator // optional; if nil, /api/migrate answers 503
	Token    string   // optional; if set, /api routes require it as a bearer token
	Logger   *slog.Logger
}

// NewRouter returns the HTTP handler for the whole service.
func NewRouter(deps Deps) http.Handler {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(RequireAPIToken(deps.Token))

		r.Get("/users", handleGetUser(deps))
		r.Post("/users", handlePostUser(deps))
		r.Put("/users", handlePutUser(deps))
		r.Post("/migrate", handleMigrate(deps))
	})

	return r
}

func handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}

func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.Debug("request",
				"method", r.Method,
				"path", r.URL.Path,
				"status", ww.Status(),
				"took", time.Since(start),
				"request_id", middleware.GetReqID(r.Context()),
			)
		})
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(v)
}

func httpError(w http.ResponseWriter, code int, format string, args ...any) {
	writeJSON(w, code, map[string]string{"error": fmt.Sprintf(format, args...)})
}

// decodeBody reads a JSON body of at most maxRequestBodySize bytes.
func decodeBody(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxRequestBodySize)
	return json.NewDecoder(r.Body).Decode(v)
}
