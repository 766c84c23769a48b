package daemon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"posecoach/internal/api"
	"posecoach/internal/capture"
	"posecoach/internal/config"
	"posecoach/internal/logging"
	"posecoach/internal/report"
	"posecoach/internal/ribbon"
)

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon
	cfg    *config.Config

	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) (*apiServer, error) {
	if cfg == nil || d == nil {
		return nil, nil
	}
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil, nil
	}

	srv := &apiServer{
		bind:   bind,
		logger: logger,
		daemon: d,
		cfg:    cfg,
	}
	return srv, nil
}

func (s *apiServer) routes() http.Handler {
	token := strings.TrimSpace(s.cfg.Paths.APIToken)
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("/api/ribbon.png", authMiddleware(token, s.handleRibbon))
	mux.HandleFunc("/api/export", authMiddleware(token, s.handleExport))
	mux.HandleFunc("/api/export/best", authMiddleware(token, s.handleBest))
	mux.HandleFunc("/api/scores", authMiddleware(token, s.daemon.hub.serve))
	mux.HandleFunc("/api/metronome", authMiddleware(token, s.handleMetronome))
	return mux
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.listener = listener
	// A shut down http.Server cannot serve again, so each start gets its own.
	server := &http.Server{
		Handler:           s.routes(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	s.server = server

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.log().Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	s.log().Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	if s.server != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	status := s.daemon.Status()
	export := api.ExportStatus{
		Busy: status.ExportBusy,
		Last: api.FromAsset(status.LastExport),
		Best: api.FromAsset(status.BestExport),
	}
	payload := api.Status{
		Running:      status.Running,
		PID:          status.PID,
		SessionID:    status.SessionID,
		PoseSource:   status.PoseSource,
		LockFilePath: status.LockFilePath,
		Session:      api.FromStats(status.Session, status.JointSet),
		Export:       export,
		Metronome:    api.FromMetronome(s.daemon.metronome),
	}
	s.writeJSON(w, http.StatusOK, payload)
}

func (s *apiServer) handleRibbon(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	img, err := s.daemon.session.Ribbon().Snapshot()
	if err != nil {
		s.writeError(w, http.StatusServiceUnavailable, err.Error())
		return
	}
	out := img
	if label := r.URL.Query().Get("label"); label == "1" || label == "true" {
		out = ribbon.Annotate(img, report.Label(s.daemon.session.Score()))
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, out); err != nil {
		s.writeError(w, http.StatusInternalServerError, "encode ribbon")
		return
	}
	w.Header().Set("Content-Type", "image/png")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (s *apiServer) handleExport(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	req, err := s.exportRequest(r)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	_, interval, err := capture.Plan(req.Seconds, req.FPS)
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	// The capture itself outlasts the server's default write timeout.
	rc := http.NewResponseController(w)
	_ = rc.SetWriteDeadline(time.Now().Add(time.Duration(req.Seconds*float64(time.Second)) + interval + 30*time.Second))

	asset, err := s.daemon.exporter.Export(r.Context(), req)
	switch {
	case err == nil:
	case errors.Is(err, capture.ErrCaptureInProgress):
		s.writeError(w, http.StatusConflict, err.Error())
		return
	case errors.Is(err, capture.ErrInvalidParams), errors.Is(err, capture.ErrNoFrames):
		s.writeError(w, http.StatusBadRequest, err.Error())
		return
	case errors.Is(err, context.Canceled):
		return
	default:
		s.log().Error("export failed", logging.Error(err))
		s.writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	s.writeGIF(w, asset)
}

func (s *apiServer) exportRequest(r *http.Request) (capture.Request, error) {
	req := capture.Request{
		Seconds: s.cfg.Capture.Seconds,
		FPS:     s.cfg.Capture.FPS,
		Scale:   s.cfg.Capture.Scale,
	}
	q := r.URL.Query()
	if raw := strings.TrimSpace(q.Get("seconds")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("invalid seconds %q", raw)
		}
		req.Seconds = v
	}
	if raw := strings.TrimSpace(q.Get("fps")); raw != "" {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return req, fmt.Errorf("invalid fps %q", raw)
		}
		req.FPS = v
	}
	if raw := strings.TrimSpace(q.Get("scale")); raw != "" {
		v, err := strconv.Atoi(raw)
		if err != nil || v < 1 || v > capture.MaxScale {
			return req, fmt.Errorf("invalid scale %q (want 1-%d)", raw, capture.MaxScale)
		}
		req.Scale = v
	}
	return req, nil
}

func (s *apiServer) handleBest(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	best := s.daemon.exporter.Best()
	if best == nil {
		s.writeError(w, http.StatusNotFound, "no export yet")
		return
	}
	s.writeGIF(w, best)
}

func (s *apiServer) handleMetronome(w http.ResponseWriter, r *http.Request) {
	m := s.daemon.metronome
	switch r.Method {
	case http.MethodGet:
		s.writeJSON(w, http.StatusOK, api.FromMetronome(m))
		return
	case http.MethodPost:
	default:
		s.writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req api.MetronomeRequest
	if err := json.NewDecoder(io.LimitReader(r.Body, 4096)).Decode(&req); err != nil {
		s.writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.BPM != 0 {
		if err := m.SetBPM(req.BPM); err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error())
			return
		}
	}
	ctx := s.daemon.runContext()
	if ctx == nil {
		ctx = context.Background()
	}
	switch strings.ToLower(strings.TrimSpace(req.Action)) {
	case "":
	case api.MetronomeStart:
		m.Start(ctx)
	case api.MetronomeStop:
		m.Stop()
	case api.MetronomeToggle:
		m.Toggle(ctx)
	default:
		s.writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown action %q", req.Action))
		return
	}
	s.writeJSON(w, http.StatusOK, api.FromMetronome(m))
}

func (s *apiServer) writeGIF(w http.ResponseWriter, asset *capture.Asset) {
	api.SetExportHeaders(w.Header(), api.FromAsset(asset))
	w.Header().Set("Content-Type", "image/gif")
	w.Header().Set("Content-Length", strconv.Itoa(len(asset.Data)))
	w.Header().Set("Content-Disposition", `attachment; filename="technique-heatmap.gif"`)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(asset.Data); err != nil {
		s.log().Debug("gif write interrupted", logging.Error(err))
	}
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.log().Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message})
}

func (s *apiServer) log() *slog.Logger {
	if s.logger != nil {
		return s.logger.With(logging.String(logging.FieldComponent, "api-server"))
	}
	return logging.NewNop()
}
