// Package server exposes chord decoding over HTTP.
//
//	POST /decode                 decode with the default model
//	POST /models/{name}/decode   decode with a named model
//	GET  /models                 list stored models
//	GET  /labels                 list the label space
//	GET  /healthz                liveness check
package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/akualab/chorale/model"
	"github.com/akualab/chorale/model/chord"
	"github.com/akualab/chorale/model/hmm"
	"github.com/akualab/chorale/store"
	"github.com/golang/glog"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/cors"
)

// MaxRequestBytes limits the size of a request body.
const MaxRequestBytes = 8 << 20

// ModelSource provides trained models by name.
type ModelSource interface {
	Get(ctx context.Context, name string) (*hmm.Model, error)
	Info(ctx context.Context, name string) (store.Info, error)
	List(ctx context.Context) ([]store.Info, error)
}

// Options configures the server.
type Options struct {
	// DefaultModel is used by POST /decode when the request names no model.
	DefaultModel string
	// CORSOrigins lists the allowed origins. Empty allows all origins.
	CORSOrigins []string
	// CacheSize is the emission cache size of each decoder.
	CacheSize int
}

// DecodeRequest is the body of a decode request. Events holds one 12
// value presence vector per event; Masks holds the same events as 12-bit
// masks, bit 0 for C. Exactly one of them must be set.
type DecodeRequest struct {
	ID     string   `json:"id,omitempty"`
	Model  string   `json:"model,omitempty"`
	Events [][]int  `json:"events,omitempty"`
	Masks  []uint16 `json:"masks,omitempty"`
}

// DecodeResponse is the result of a decode request.
type DecodeResponse struct {
	ID       string          `json:"id"`
	Model    string          `json:"model"`
	Labels   []int           `json:"labels"`
	Names    []string        `json:"names"`
	Segments []model.Segment `json:"segments"`
	LogProb  float64         `json:"log_prob"`
}

// LabelInfo describes a label of the label space.
type LabelInfo struct {
	ID           int    `json:"id"`
	Name         string `json:"name"`
	Root         int    `json:"root"`
	Quality      string `json:"quality"`
	Extension    string `json:"extension"`
	PitchClasses []int  `json:"pitch_classes"`
}

type ErrorResponse struct {
	Error string `json:"detail"`
}

type decoderEntry struct {
	id      string
	decoder *hmm.Decoder
}

// Server handles decode requests. Decoders are built on first use and
// rebuilt when the stored model changes.
type Server struct {
	src     ModelSource
	opts    Options
	handler http.Handler

	mu       sync.Mutex
	decoders map[string]decoderEntry
}

// New returns a server that reads models from src.
func New(src ModelSource, opts Options) *Server {
	s := &Server{
		src:      src,
		opts:     opts,
		decoders: make(map[string]decoderEntry),
	}

	router := mux.NewRouter().StrictSlash(true)
	router.HandleFunc("/decode", s.handleDecode).Methods(http.MethodPost)
	router.HandleFunc("/models/{name}/decode", s.handleDecode).Methods(http.MethodPost)
	router.HandleFunc("/models", s.handleModels).Methods(http.MethodGet)
	router.HandleFunc("/labels", s.handleLabels).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealth).Methods(http.MethodGet)

	corsOpts := cors.Options{
		AllowedOrigins: opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost},
		AllowedHeaders: []string{"Content-Type"},
	}
	s.handler = cors.New(corsOpts).Handler(router)
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.handler.ServeHTTP(w, r)
}

// ListenAndServe serves on addr until the context is done.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	srv := &http.Server{Addr: addr, Handler: s}
	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()
	glog.Infof("serving on %s", addr)
	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
		glog.Infof("shutting down server")
		return srv.Shutdown(context.Background())
	}
}

func (s *Server) decoder(ctx context.Context, name string) (*hmm.Decoder, error) {
	info, err := s.src.Info(ctx, name)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	e, ok := s.decoders[name]
	s.mu.Unlock()
	if ok && e.id == info.ID {
		return e.decoder, nil
	}

	m, err := s.src.Get(ctx, name)
	if err != nil {
		return nil, err
	}
	var opts []hmm.DecoderOption
	if s.opts.CacheSize > 0 {
		opts = append(opts, hmm.CacheSize(s.opts.CacheSize))
	}
	d, err := hmm.NewDecoder(m, opts...)
	if err != nil {
		return nil, err
	}
	s.mu.Lock()
	s.decoders[name] = decoderEntry{id: info.ID, decoder: d}
	s.mu.Unlock()
	glog.V(1).Infof("loaded decoder for model %q, id: %s", name, info.ID)
	return d, nil
}

func (req *DecodeRequest) chromas() ([]model.Chroma, error) {
	if len(req.Events) > 0 && len(req.Masks) > 0 {
		return nil, errors.New("set either events or masks, not both")
	}
	obs := make([]model.Chroma, 0, len(req.Events)+len(req.Masks))
	for i, bits := range req.Events {
		c, err := model.ChromaFromBits(bits)
		if err != nil {
			return nil, fmt.Errorf("event %d: %w", i, err)
		}
		obs = append(obs, c)
	}
	for i, m := range req.Masks {
		c := model.Chroma(m)
		if !c.Valid() {
			return nil, fmt.Errorf("event %d: %w: mask %#x", i, model.ErrPitchClass, m)
		}
		obs = append(obs, c)
	}
	return obs, nil
}

func (s *Server) handleDecode(w http.ResponseWriter, r *http.Request) {

	var req DecodeRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, MaxRequestBytes))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("could not unmarshal request body: %w", err))
		return
	}
	name := req.Model
	if v, ok := mux.Vars(r)["name"]; ok {
		name = v
	}
	if name == "" {
		name = s.opts.DefaultModel
	}
	if name == "" {
		writeError(w, http.StatusBadRequest, errors.New("no model specified"))
		return
	}
	obs, err := req.chromas()
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	if req.ID == "" {
		req.ID = uuid.NewString()
	}

	d, err := s.decoder(r.Context(), name)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}
	labels, lp, err := d.Decode(r.Context(), obs)
	if err != nil {
		writeError(w, statusOf(err), err)
		return
	}

	res := DecodeResponse{
		ID:       req.ID,
		Model:    name,
		Labels:   make([]int, len(labels)),
		Names:    chord.Strings(labels),
		Segments: model.Segments(labels),
		LogProb:  lp,
	}
	for i, l := range labels {
		res.Labels[i] = int(l)
	}
	glog.V(2).Infof("decoded request %s: model %q, %d events", req.ID, name, len(obs))
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleModels(w http.ResponseWriter, r *http.Request) {
	infos, err := s.src.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err)
		return
	}
	if infos == nil {
		infos = []store.Info{}
	}
	writeJSON(w, http.StatusOK, infos)
}

func (s *Server) handleLabels(w http.ResponseWriter, r *http.Request) {
	all := chord.All()
	res := make([]LabelInfo, len(all))
	for i, l := range all {
		res[i] = LabelInfo{
			ID:           int(l),
			Name:         l.String(),
			Root:         l.Root(),
			Quality:      l.Quality().String(),
			Extension:    l.Extension().String(),
			PitchClasses: l.PitchClasses(),
		}
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, hmm.ErrEmptySequence), errors.Is(err, model.ErrPitchClass):
		return http.StatusBadRequest
	case errors.Is(err, context.Canceled):
		return 499
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, code int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		glog.Warningf("could not write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	if code >= http.StatusInternalServerError {
		glog.Errorf("request failed: %v", err)
	}
	writeJSON(w, code, ErrorResponse{Error: err.Error()})
}
