package server

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"voyageflow/config"
	"voyageflow/hub"
	"voyageflow/ingest"
	"voyageflow/internal/metrics"
	"voyageflow/logger"
	"voyageflow/store"
	"voyageflow/summary"
)

// Server exposes the dashboard HTTP surface: dataset reads, file uploads,
// summary generation and the websocket upgrade endpoint.
type Server struct {
	cfg      config.ServerConfig
	store    *store.Dataset
	hub      *hub.Hub
	pipeline *ingest.Pipeline
	summary  *summary.Service
	log      *logger.Entry

	srv     *http.Server
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

func New(cfg config.ServerConfig, st *store.Dataset, h *hub.Hub, p *ingest.Pipeline, sum *summary.Service) *Server {
	s := &Server{
		cfg:      cfg,
		store:    st,
		hub:      h,
		pipeline: p,
		summary:  sum,
		log:      logger.GetLogger().WithComponent("server"),
	}
	s.srv = &http.Server{
		Addr:         cfg.Address,
		Handler:      s.Router(),
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
	}
	return s
}

// Router builds the route table. It is exported so tests can drive the
// handlers through httptest without binding a listener.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP)
	r.Use(s.requestLogger)
	r.Use(middleware.Recoverer)

	r.Get("/api/opportunities", s.handleOpportunities)
	r.Get("/opportunities", s.handleOpportunities)
	r.Get("/api/kpi", s.handleKPI)
	r.Post("/api/upload", s.handleUpload)
	r.Post("/api/summary", s.handleSummary)
	r.Get("/ws", s.handleWS)
	r.Get("/healthz", s.handleHealthz)
	r.Method(http.MethodGet, "/metrics", metrics.Handler())

	return r
}

// Start begins serving in a background goroutine.
func (s *Server) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return errors.New("server already running")
	}
	s.running = true
	s.mu.Unlock()

	s.log.WithFields(logger.Fields{"address": s.cfg.Address}).Info("starting HTTP server")

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := s.srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log.WithError(err).Error("HTTP server terminated")
		}
	}()
	return nil
}

// Stop shuts the listener down and waits for in-flight requests.
func (s *Server) Stop() error {
	s.mu.Lock()
	if !s.running {
		s.mu.Unlock()
		return nil
	}
	s.running = false
	s.mu.Unlock()

	s.log.Info("stopping HTTP server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	err := s.srv.Shutdown(ctx)
	s.wg.Wait()
	return err
}

func (s *Server) requestLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.log.WithFields(logger.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"bytes":    ww.BytesWritten(),
			"duration": time.Since(start).String(),
			"remote":   r.RemoteAddr,
		}).Debug("http request")
	})
}

func (s *Server) handleOpportunities(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.Opportunities())
}

func (s *Server) handleKPI(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.store.KPI())
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	file, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, http.StatusBadRequest, "No file uploaded")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	logger.IncrementUpload(len(data))

	count, err := s.pipeline.Ingest(r.Context(), data, header.Filename)
	if err != nil {
		if errors.Is(err, ingest.ErrUnsupportedFormat) {
			writeError(w, http.StatusBadRequest, "Unsupported file type. Use CSV or XLSX.")
			return
		}
		s.log.WithError(err).WithFields(logger.Fields{"filename": header.Filename}).Warn("upload parse failed")
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "count": count})
}

type summaryRequest struct {
	Texts []string `json:"texts"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	var req summaryRequest
	if r.Body != nil {
		// A missing or malformed body selects the cargo mix prompt.
		_ = json.NewDecoder(io.LimitReader(r.Body, 1<<20)).Decode(&req)
	}

	records, _ := s.store.Current()
	text, source, err := s.summary.Summarize(r.Context(), req.Texts, records)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{"ok": true, "source": source, "summary": text})
}

func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	hub.ServeWS(s.hub, w, r)
}

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	_, kpi := s.store.Current()
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"status":  "ok",
		"records": kpi.TotalOpportunities,
		"viewers": s.hub.Count(),
	})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.GetLogger().WithComponent("server").WithError(err).Warn("failed to encode response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
