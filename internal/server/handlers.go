package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"net/http"
	"slices"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/san-kum/chaoslab/internal/analysis"
	"github.com/san-kum/chaoslab/internal/config"
	"github.com/san-kum/chaoslab/internal/dynamo"
	"github.com/san-kum/chaoslab/internal/experiment"
	"github.com/san-kum/chaoslab/internal/sim"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusOf maps domain errors onto HTTP status codes.
func statusOf(err error) int {
	switch {
	case errors.Is(err, sim.ErrNoTrajectory):
		return http.StatusNotFound
	case errors.Is(err, sim.ErrInvalidTransition),
		errors.Is(err, dynamo.ErrStaleEnsemble),
		errors.Is(err, dynamo.ErrDivergent):
		return http.StatusConflict
	case errors.Is(err, experiment.ErrUnknownModel),
		errors.Is(err, dynamo.ErrUnknownParam),
		errors.Is(err, dynamo.ErrParameterBounds),
		errors.Is(err, dynamo.ErrDimensionMismatch),
		errors.Is(err, dynamo.ErrInvalidState),
		errors.Is(err, dynamo.ErrInsufficientSamples),
		errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

var errBadRequest = errors.New("bad request")

func decode(w http.ResponseWriter, r *http.Request, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", errBadRequest, err)
	}
	return nil
}

func queryInt(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %v", errBadRequest, name, err)
	}
	return v, nil
}

func (s *Server) listModels(w http.ResponseWriter, _ *http.Request) {
	names := s.reg.ListModels()
	out := make([]experiment.ModelInfo, 0, len(names))
	for _, name := range names {
		info, err := s.reg.Describe(name)
		if err != nil {
			writeError(w, http.StatusInternalServerError, err)
			return
		}
		out = append(out, info)
	}
	writeJSON(w, http.StatusOK, out)
}

type createRequest struct {
	Model  string          `json:"model"`
	Preset string          `json:"preset,omitempty"`
	Config json.RawMessage `json:"config,omitempty"`
}

// configFor resolves a preset (or the defaults) for the model and layers the
// request's config on top.
func configFor(req createRequest) (*config.Config, error) {
	var cfg *config.Config
	if req.Preset != "" {
		if cfg = config.GetPreset(req.Model, req.Preset); cfg == nil {
			return nil, fmt.Errorf("%w: no preset %q for model %q", errBadRequest, req.Preset, req.Model)
		}
	} else {
		cfg = config.DefaultConfig()
		cfg.Model = req.Model
	}
	if len(req.Config) > 0 {
		if err := json.Unmarshal(req.Config, cfg); err != nil {
			return nil, fmt.Errorf("%w: config: %v", errBadRequest, err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", errBadRequest, err)
	}
	if err := checkConfig(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (s *Server) createSession(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg, err := configFor(req)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	exp, err := experiment.New(s.reg, cfg, s.logger)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	sess := &session{model: cfg.Model, exp: exp, trackers: make(map[[2]int]*analysis.Tracker)}
	var opts []sim.Option
	if cfg.Section != nil {
		sess.sampler, err = exp.SectionSampler(analysis.OnCrossing(func(analysis.Crossing) {
			s.collector.ObserveCrossing(cfg.Model)
		}))
		if err != nil {
			writeError(w, http.StatusBadRequest, err)
			return
		}
		opts = append(opts, sim.WithObserver(sess.sampler))
	}
	if sess.sess, err = exp.NewSession(opts...); err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	s.add(sess)
	s.collector.SessionOpened()
	s.logger.Info("session created", "session", sess.id, "model", cfg.Model, "trajectories", sess.sess.Ensemble().Len())
	writeJSON(w, http.StatusCreated, viewOf(sess, -1))
}

func (s *Server) listSessions(w http.ResponseWriter, _ *http.Request) {
	s.mu.RLock()
	list := make([]*session, 0, len(s.sessions))
	for _, sess := range s.sessions {
		list = append(list, sess)
	}
	s.mu.RUnlock()

	out := make([]sessionView, 0, len(list))
	for _, sess := range list {
		sess.mu.Lock()
		out = append(out, viewOf(sess, 0))
		sess.mu.Unlock()
	}
	slices.SortFunc(out, func(a, b sessionView) int {
		ai, _ := strconv.Atoi(a.ID)
		bi, _ := strconv.Atoi(b.ID)
		return ai - bi
	})
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request, sess *session) {
	tail, err := queryInt(r, "tail", -1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess, tail))
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if !s.remove(id) {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %q not found", id))
		return
	}
	s.collector.SessionClosed(id)
	s.logger.Info("session closed", "session", id)
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) transition(fn func(*sim.Session) error) sessionHandler {
	return func(w http.ResponseWriter, _ *http.Request, sess *session) {
		if err := fn(sess.sess); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		writeJSON(w, http.StatusOK, viewOf(sess, 0))
	}
}

// rebuilt drops trackers after the ensemble's generation advanced. The
// section sampler rebinds itself.
func (sess *session) rebuilt() {
	clear(sess.trackers)
}

func (s *Server) reset(w http.ResponseWriter, _ *http.Request, sess *session) {
	if err := sess.sess.Reset(); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	sess.rebuilt()
	writeJSON(w, http.StatusOK, viewOf(sess, 0))
}

type frameResponse struct {
	Report  reportView  `json:"report"`
	Session sessionView `json:"session"`
}

func (s *Server) frame(w http.ResponseWriter, r *http.Request, sess *session) {
	n, err := queryInt(r, "n", 1)
	if err == nil && (n < 1 || n > maxFramesPerRequest) {
		err = fmt.Errorf("%w: n must be in [1, %d], got %d", errBadRequest, maxFramesPerRequest, n)
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	tail, err := queryInt(r, "tail", 1)
	if err == nil {
		err = checkWork(n, sess.sess.Speed(), sess.sess.Ensemble().Len())
	}
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	var total sim.TickReport
	for i := 0; i < n; i++ {
		rep, err := sess.sess.Frame()
		if err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		total.Steps += rep.Steps
		total.Divergences = append(total.Divergences, rep.Divergences...)
		if rep.Steps > 0 {
			sess.sampleTrackers()
		}
	}
	ens := sess.sess.Ensemble()
	total.Time, total.Live = ens.Time(), ens.Live()
	s.collector.ObserveTick(sess.model, sess.id, total)

	writeJSON(w, http.StatusOK, frameResponse{Report: reportOf(total), Session: viewOf(sess, tail)})
}

// sampleTrackers records one divergence sample per tracked pair. Pairs that
// froze or went stale are dropped.
func (sess *session) sampleTrackers() {
	for pair, tr := range sess.trackers {
		if _, err := tr.Sample(); err != nil {
			delete(sess.trackers, pair)
		}
	}
}

func (s *Server) setParams(w http.ResponseWriter, r *http.Request, sess *session) {
	var params map[string]float64
	if err := decode(w, r, &params); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	f, err := dynamo.WithParams(sess.sess.Field(), params)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	if err := sess.sess.SetField(f); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	sess.rebuilt()
	writeJSON(w, http.StatusOK, viewOf(sess, 0))
}

type speedRequest struct {
	SubSteps int `json:"substeps"`
}

func (s *Server) setSpeed(w http.ResponseWriter, r *http.Request, sess *session) {
	var req speedRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkRange("substeps", req.SubSteps, maxSubSteps); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := sess.sess.SetSpeed(req.SubSteps); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	writeJSON(w, http.StatusOK, viewOf(sess, 0))
}

type addRequest struct {
	State dynamo.State `json:"state"`
}

type addResponse struct {
	Index int `json:"index"`
}

func (s *Server) addTrajectory(w http.ResponseWriter, r *http.Request, sess *session) {
	var req addRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkRange("trajectories", sess.sess.Ensemble().Len()+1, maxTrajectories); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	idx, err := sess.sess.Ensemble().AddTrajectory(req.State)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	writeJSON(w, http.StatusCreated, addResponse{Index: idx})
}

func (s *Server) removeTrajectory(w http.ResponseWriter, r *http.Request, sess *session) {
	idx, err := strconv.Atoi(chi.URLParam(r, "idx"))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("trajectory index: %w", err))
		return
	}
	if err := sess.sess.Ensemble().RemoveTrajectory(idx); err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	sess.rebuilt()
	w.WriteHeader(http.StatusNoContent)
}

type divergenceResponse struct {
	I        int               `json:"i"`
	J        int               `json:"j"`
	Samples  []divergencePoint `json:"samples"`
	Lyapunov *float64          `json:"lyapunov,omitempty"`
}

type divergencePoint struct {
	Time     float64  `json:"t"`
	Distance float64  `json:"d"`
	Log10    *float64 `json:"log10_d"`
}

// divergence returns the samples collected for pair (i, j). The first
// request for a pair starts tracking it; samples accrue on each frame.
func (s *Server) divergence(w http.ResponseWriter, r *http.Request, sess *session) {
	i, err1 := queryInt(r, "i", 0)
	j, err2 := queryInt(r, "j", 1)
	window, err3 := queryInt(r, "window", sess.exp.Config().Divergence.Window)
	if err := errors.Join(err1, err2, err3); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if i == j {
		writeError(w, http.StatusBadRequest, fmt.Errorf("i and j must differ, got %d twice", i))
		return
	}

	pair := [2]int{i, j}
	tr, ok := sess.trackers[pair]
	if !ok {
		var err error
		if tr, err = sess.exp.Tracker(sess.sess.Ensemble(), i, j); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		if _, err := tr.Sample(); err != nil {
			writeError(w, statusOf(err), err)
			return
		}
		sess.trackers[pair] = tr
	}

	samples := tr.Samples()
	resp := divergenceResponse{I: i, J: j, Samples: make([]divergencePoint, len(samples))}
	for k, d := range samples {
		resp.Samples[k] = divergencePoint{Time: d.Time, Distance: d.Distance}
		if !math.IsInf(d.Log10, 0) && !math.IsNaN(d.Log10) {
			v := d.Log10
			resp.Samples[k].Log10 = &v
		}
	}
	if lambda, err := tr.EstimateLyapunov(window); err == nil && !math.IsNaN(lambda) && !math.IsInf(lambda, 0) {
		resp.Lyapunov = &lambda
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) section(w http.ResponseWriter, _ *http.Request, sess *session) {
	if sess.sampler == nil {
		writeError(w, http.StatusNotFound, fmt.Errorf("session %s has no section configured", sess.id))
		return
	}
	writeJSON(w, http.StatusOK, sess.sampler.Crossings())
}

type scanRequest struct {
	Model  string              `json:"model"`
	Params map[string]float64  `json:"params,omitempty"`
	Scan   analysis.ScanConfig `json:"scan"`
}

func (s *Server) scan(w http.ResponseWriter, r *http.Request) {
	var req scanRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	cfg := config.DefaultConfig()
	cfg.Model = req.Model
	cfg.Params = req.Params
	cfg.Scan = &req.Scan
	if err := cfg.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if err := checkConfig(cfg); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	exp, err := experiment.New(s.reg, cfg, s.logger)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	recs, elapsed, err := exp.Scan()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	s.collector.ObserveScan(req.Model, elapsed)
	writeJSON(w, http.StatusOK, recs)
}
