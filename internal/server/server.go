package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/cors"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/logging"
	"github.com/san-kum/chaoslab/internal/metrics"
	"github.com/san-kum/chaoslab/internal/sim"
)

const (
	maxFramesPerRequest = 10000
	maxBodyBytes        = 1 << 20
	shutdownTimeout     = 5 * time.Second
)

// session is one simulation owned by the server. mu serialises every
// operation on it.
type session struct {
	mu       sync.Mutex
	id       string
	model    string
	exp      *experiment.Experiment
	sess     *sim.Session
	sampler  *analysis.SectionSampler
	trackers map[[2]int]*analysis.Tracker
}

type Server struct {
	reg       *experiment.Registry
	collector *metrics.Collector
	gatherer  prometheus.Gatherer
	logger    *slog.Logger

	mu       sync.RWMutex
	sessions map[string]*session
	nextID   uint64
}

// New builds a server whose metrics are registered with promReg and served
// from it.
func New(reg *experiment.Registry, promReg *prometheus.Registry, logger *slog.Logger) (*Server, error) {
	collector, err := metrics.NewCollector(promReg)
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	return &Server{
		reg:       reg,
		collector: collector,
		gatherer:  promReg,
		logger:    logger,
		sessions:  make(map[string]*session),
	}, nil
}

// Handler returns the routed API wrapped in CORS handling for origins. An
// empty list allows any origin.
func (s *Server) Handler(origins []string) http.Handler {
	r := chi.NewRouter()

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok\n"))
	})
	r.Handle("/metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	r.Route("/api", func(r chi.Router) {
		r.Get("/models", s.listModels)
		r.Post("/scan", s.scan)

		r.Post("/sessions", s.createSession)
		r.Get("/sessions", s.listSessions)
		r.Route("/sessions/{id}", func(r chi.Router) {
			r.Get("/", s.withSession(s.getSession))
			r.Delete("/", s.deleteSession)
			r.Post("/start", s.withSession(s.transition((*sim.Session).Start)))
			r.Post("/pause", s.withSession(s.transition((*sim.Session).Pause)))
			r.Post("/resume", s.withSession(s.transition((*sim.Session).Resume)))
			r.Post("/reset", s.withSession(s.reset))
			r.Post("/frame", s.withSession(s.frame))
			r.Put("/params", s.withSession(s.setParams))
			r.Put("/speed", s.withSession(s.setSpeed))
			r.Post("/trajectories", s.withSession(s.addTrajectory))
			r.Delete("/trajectories/{idx}", s.withSession(s.removeTrajectory))
			r.Get("/divergence", s.withSession(s.divergence))
			r.Get("/section", s.withSession(s.section))
		})
	})

	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"*"},
	})
	return c.Handler(r)
}

// ListenAndServe serves until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context, addr string, origins []string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(origins),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	s.logger.Info("listening", "addr", addr)

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		s.logger.Info("shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return err
		}
		if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	}
}

func (s *Server) lookup(id string) (*session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sess, ok := s.sessions[id]
	return sess, ok
}

func (s *Server) add(sess *session) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextID++
	sess.id = strconv.FormatUint(s.nextID, 10)
	s.sessions[sess.id] = sess
}

func (s *Server) remove(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.sessions[id]; !ok {
		return false
	}
	delete(s.sessions, id)
	return true
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, sess *session)

// withSession resolves {id} and holds the session lock for the handler.
func (s *Server) withSession(h sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sess, ok := s.lookup(chi.URLParam(r, "id"))
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", chi.URLParam(r, "id")))
			return
		}
		sess.mu.Lock()
		defer sess.mu.Unlock()
		h(w, r, sess)
	}
}
