// Package server exposes the key-epoch service over HTTP: a health probe,
// the per-epoch public key, and the batch republish endpoint. Everything
// except /health sits behind a static bearer secret.
package server

import (
	"crypto/subtle"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"github.com/FSM1/cipher-box-sub011/internal/tee"
)

// RequestTimeout bounds every request; the orchestrator is expected to
// retry with backoff rather than wait.
const RequestTimeout = 30 * time.Second

type Server struct {
	cfg         Config
	svc         *tee.Service
	state       tee.StateStore
	logger      *slog.Logger
	rlRepublish *multiLimiter
	router      chi.Router
}

// New wires the HTTP surface. reg is optional; when present a /metrics
// endpoint is mounted for it.
func New(cfg Config, svc *tee.Service, state tee.StateStore, logger *slog.Logger, reg *prometheus.Registry) (*Server, error) {
	cfg.setDefaults()
	if cfg.BearerSecret == "" {
		return nil, errors.New("server: BearerSecret required")
	}

	s := &Server{
		cfg:    cfg,
		svc:    svc,
		state:  state,
		logger: logger,
	}
	s.rlRepublish = newMultiLimiter(
		rate.Limit(float64(cfg.RepublishPerMinute)/60.0),
		cfg.RepublishBurst,
		time.Hour,
	)

	r := chi.NewRouter()
	r.Use(chimiddleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(chimiddleware.Timeout(RequestTimeout))

	r.Get("/health", s.handleHealth)
	if reg != nil {
		r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(s.requireBearer)
		r.Get("/public-key", s.handlePublicKey)
		r.Post("/republish", s.handleRepublish)
	})

	s.router = r
	return s, nil
}

func (s *Server) Handler() http.Handler { return s.router }

func (s *Server) requireBearer(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		const prefix = "Bearer "
		h := r.Header.Get("Authorization")
		if !strings.HasPrefix(h, prefix) {
			writeErr(w, errUnauthorized)
			return
		}
		token := strings.TrimPrefix(h, prefix)
		if subtle.ConstantTimeCompare([]byte(token), []byte(s.cfg.BearerSecret)) != 1 {
			writeErr(w, errUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
