// Package web serves the fire risk dashboard page.
package web

import (
	"bytes"
	"context"
	"embed"
	"encoding/json"
	"html/template"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/sustainfire/internal/config"
	"github.com/sells-group/sustainfire/internal/dashboard"
)

// Title is the page heading.
const Title = "SustainFire – Forest Fire Prediction Dashboard"

//go:embed templates/page.html
var templateFS embed.FS

// Runner executes one render cycle.
type Runner interface {
	Run(ctx context.Context, path string) (*dashboard.Result, error)
	ModelLoaded() bool
}

// Server renders the dashboard over HTTP.
type Server struct {
	runner  Runner
	cfg     *config.Config
	tmpl    *template.Template
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewServer parses the page template and creates a Server.
func NewServer(runner Runner, cfg *config.Config) (*Server, error) {
	tmpl, err := template.ParseFS(templateFS, "templates/page.html")
	if err != nil {
		return nil, eris.Wrap(err, "web: parse template")
	}

	// A zero rate disables limiting.
	limit := rate.Limit(cfg.Server.RateLimit)
	if limit == 0 {
		limit = rate.Inf
	}

	return &Server{
		runner:  runner,
		cfg:     cfg,
		tmpl:    tmpl,
		limiter: rate.NewLimiter(limit, max(cfg.Server.RateBurst, 1)),
		log:     zap.L().With(zap.String("component", "web")),
	}, nil
}

// Handler returns the routed HTTP handler.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.log))
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.cfg.Server.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodOptions},
		MaxAge:         300,
	}))

	r.Get("/health", s.handleHealth)
	r.With(rateLimit(s.limiter)).Get("/", s.handlePage)
	return r
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"status":       "ok",
		"model_loaded": s.runner.ModelLoaded(),
	})
}

func (s *Server) handlePage(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Query().Get("path")

	data := pageData{
		Title:       Title,
		Path:        path,
		ModelLoaded: s.runner.ModelLoaded(),
	}

	res, err := s.runner.Run(r.Context(), path)
	if err != nil {
		s.log.Error("render failed",
			zap.String("path", path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err),
		)
		data.State = "error"
		data.Error = err.Error()
		s.render(w, http.StatusInternalServerError, data)
		return
	}

	data.State = res.State.String()
	if res.State == dashboard.InputReady {
		if err := data.fill(res, s.cfg.Map); err != nil {
			s.log.Error("render failed", zap.String("path", path), zap.Error(err))
			data = pageData{Title: Title, Path: path, ModelLoaded: data.ModelLoaded, State: "error", Error: err.Error()}
			s.render(w, http.StatusInternalServerError, data)
			return
		}
	}
	s.render(w, http.StatusOK, data)
}

func (s *Server) render(w http.ResponseWriter, status int, data pageData) {
	var buf bytes.Buffer
	if err := s.tmpl.Execute(&buf, data); err != nil {
		s.log.Error("template execution failed", zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buf.Bytes())
}

// rateLimit rejects requests beyond the limiter's budget with 429.
func rateLimit(l *rate.Limiter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !l.Allow() {
				http.Error(w, "rate limit exceeded", http.StatusTooManyRequests)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestLogger(log *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			log.Info("http request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("duration", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
