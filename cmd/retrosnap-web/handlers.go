package main

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/fpang/retrosnap/internal/filter"
	"github.com/fpang/retrosnap/internal/frame"
	"github.com/fpang/retrosnap/internal/session"
	"github.com/rs/zerolog/log"
)

// server exposes one capture session over HTTP.
type server struct {
	sess *session.Session

	// live is nil unless the source is a camera.
	live *liveSource
}

func (s *server) routes() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/state", s.handleState)
	mux.HandleFunc("/api/filters", s.handleFilters)
	mux.HandleFunc("/api/filter", s.handleSelectFilter)
	mux.HandleFunc("/api/capture", s.handleCapture)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/download", s.handleDownload)
	mux.HandleFunc("/api/image", s.handleImage)
	return mux
}

// GET /api/state
func (s *server) handleState(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	respondJSON(w, http.StatusOK, newStateView(s.sess.State()))
}

// GET /api/filters
func (s *server) handleFilters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	all := filter.All()
	views := make([]filterView, 0, len(all))
	for _, d := range all {
		views = append(views, filterView{ID: d.ID, DisplayClass: d.DisplayClass, CSS: d.CSS()})
	}
	respondJSON(w, http.StatusOK, map[string]interface{}{
		"active":  s.sess.State().Filter,
		"filters": views,
	})
}

// POST /api/filter {"filter": "Sepia"}
func (s *server) handleSelectFilter(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	var req struct {
		Filter string `json:"filter"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		httpError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	id, err := filter.Parse(req.Filter)
	if err != nil {
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := s.sess.SelectFilter(id); err != nil {
		if errors.Is(err, session.ErrNotIdle) {
			httpError(w, http.StatusConflict, "filter can only be changed before capturing")
			return
		}
		httpError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondJSON(w, http.StatusOK, newStateView(s.sess.State()))
}

// POST /api/capture
func (s *server) handleCapture(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	if s.live != nil && s.sess.State().LastError != nil {
		s.live.acquire(r.Context())
	}

	_, err := s.sess.Capture(r.Context())
	switch {
	case err == nil:
		respondJSON(w, http.StatusAccepted, newStateView(s.sess.State()))
	case errors.Is(err, session.ErrCaptureInProgress):
		httpError(w, http.StatusConflict, "a capture is already showing; reset first")
	case errors.Is(err, frame.ErrSourceUnavailable):
		httpError(w, http.StatusServiceUnavailable, "camera is not ready")
	default:
		log.Error().Err(err).Msg("Capture failed")
		httpError(w, http.StatusInternalServerError, "capture failed")
	}
}

// POST /api/reset
func (s *server) handleReset(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	s.sess.Reset()
	respondJSON(w, http.StatusOK, newStateView(s.sess.State()))
}

// GET /api/download[?continue=1]
//
// With continue set, the session is reset once the file has been written.
func (s *server) handleDownload(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	art, err := s.sess.Download()
	if err != nil {
		httpError(w, http.StatusNotFound, "nothing to download yet")
		return
	}

	w.Header().Set("Content-Type", art.ContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+art.Filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(len(art.Data)))
	if _, err := w.Write(art.Data); err != nil {
		log.Warn().Err(err).Str("filename", art.Filename).Msg("Download interrupted")
		return
	}

	log.Info().Str("filename", art.Filename).Int("bytes", len(art.Data)).Msg("Polaroid downloaded")

	if cont, _ := strconv.ParseBool(r.URL.Query().Get("continue")); cont {
		s.sess.Reset()
	}
}

// GET /api/image serves the visible polaroid, pending or final.
func (s *server) handleImage(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		httpError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}

	st := s.sess.State()
	if st.Result == nil {
		httpError(w, http.StatusNotFound, "no capture")
		return
	}
	w.Header().Set("Content-Type", "image/jpeg")
	w.Header().Set("Cache-Control", "no-store")
	w.Write(st.Result.Image)
}
