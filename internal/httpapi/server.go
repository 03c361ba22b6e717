// Package httpapi exposes the generation service over HTTP. Generation
// responses stream as NDJSON; everything else is plain JSON.
package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"promptd/internal/cloud"
	"promptd/internal/engine"
	"promptd/internal/gateway"
	"promptd/internal/provider"
	"promptd/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Providers() []types.ProviderStatus
	Models() []types.Model
	Generate(ctx context.Context, req types.GenerateRequest, w io.Writer, flush func()) error
	Abort(name string) error
	Ready() bool
}

// NewMux builds the router with all endpoints and middlewares.
func NewMux(svc Service) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(MetricsMiddleware)
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
		}))
	}

	r.Get("/providers", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ProvidersResponse{Providers: svc.Providers()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/models", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(types.ModelsResponse{Models: svc.Models()}); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Post("/generate", func(w http.ResponseWriter, r *http.Request) {
		handleGenerate(svc, w, r)
	})

	r.Post("/providers/{name}/abort", func(w http.ResponseWriter, r *http.Request) {
		name := chi.URLParam(r, "name")
		if err := svc.Abort(name); err != nil {
			writeJSONError(w, http.StatusNotFound, err.Error())
			return
		}
		w.WriteHeader(http.StatusNoContent)
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("loading"))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)

	return r
}

// lineCountingWriter counts complete NDJSON lines passing through.
type lineCountingWriter struct {
	w     io.Writer
	lines int
}

func (cw *lineCountingWriter) Write(p []byte) (int, error) {
	cw.lines += bytes.Count(p, []byte{'\n'})
	return cw.w.Write(p)
}

func handleGenerate(svc Service, w http.ResponseWriter, r *http.Request) {
	ct := r.Header.Get("Content-Type")
	if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
		writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
		return
	}
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	var req types.GenerateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if strings.TrimSpace(req.Prompt) == "" {
		writeJSONError(w, http.StatusBadRequest, "prompt is required")
		return
	}

	w.Header().Set("Content-Type", "application/x-ndjson")
	var flush func()
	if f, ok := w.(http.Flusher); ok {
		flush = f.Flush
	}

	lvl := requestLogLevel(r)
	cw := &lineCountingWriter{w: w}
	writer := io.Writer(cw)
	if lvl >= LevelDebug {
		writer = io.MultiWriter(cw, &loggingLineWriter{})
	}
	if lvl >= LevelInfo {
		logStart(r, req)
	}

	start := time.Now()
	// Join server base context with request context so shutdown cancels
	// in-flight generations too.
	joinedCtx, cancel := joinContexts(serverBaseCtx, r.Context())
	defer cancel()
	err := svc.Generate(joinedCtx, req, writer, flush)
	if err != nil {
		// Client disconnect or shutdown: the stream is dead, say nothing.
		if provider.IsAborted(err) || r.Context().Err() != nil || serverBaseCtx.Err() != nil {
			ObserveGeneration(req.Provider, "aborted", time.Since(start).Seconds())
			return
		}
		status := statusForError(err)
		if status == http.StatusTooManyRequests {
			IncrementBackpressure(backpressureReason(err))
		}
		writeJSONError(w, status, err.Error())
		ObserveGeneration(req.Provider, itoa(status), time.Since(start).Seconds())
		if lvl >= LevelInfo {
			logEnd(r, status, start, err)
		}
		return
	}
	// The final line is the done marker, everything before it is a token.
	AddTokens(req.Provider, cw.lines-1)
	ObserveGeneration(req.Provider, "200", time.Since(start).Seconds())
	if lvl >= LevelInfo {
		logEnd(r, http.StatusOK, start, nil)
	}
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	switch {
	case gateway.IsProviderNotFound(err):
		return http.StatusNotFound
	case engine.IsContextOverflow(err):
		return http.StatusBadRequest
	case engine.IsBusy(err):
		return http.StatusTooManyRequests
	case cloud.IsRateLimited(err):
		return http.StatusTooManyRequests
	case engine.IsNotLoaded(err), engine.IsRuntimeUnavailable(err), cloud.IsNoCredential(err):
		return http.StatusServiceUnavailable
	case cloud.IsHTTPError(err), cloud.IsInvalidResponse(err), cloud.IsNoContent(err),
		cloud.IsInsecureEndpoint(err), cloud.IsInvalidEndpoint(err):
		return http.StatusBadGateway
	}
	if he, ok := err.(HTTPError); ok {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

func backpressureReason(err error) string {
	if engine.IsBusy(err) {
		return "engine_slot"
	}
	if cloud.IsRateLimited(err) {
		return "upstream_rate_limit"
	}
	return ""
}

func logStart(r *http.Request, req types.GenerateRequest) {
	if zlog != nil {
		z := zlog.Info().Str("path", r.URL.Path).Str("provider", req.Provider).Str("model", req.Model)
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Msg("generate start")
		return
	}
	log.Printf("generate start path=%s provider=%s model=%s", r.URL.Path, req.Provider, req.Model)
}

func logEnd(r *http.Request, status int, start time.Time, err error) {
	if zlog != nil {
		z := zlog.Info().Int("status", status).Dur("dur", time.Since(start))
		if rid := middleware.GetReqID(r.Context()); rid != "" {
			z = z.Str("request_id", rid)
		}
		z.Err(err).Msg("generate end")
		return
	}
	log.Printf("generate end status=%d dur=%s err=%v", status, time.Since(start), err)
}
