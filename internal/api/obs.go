package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hlemont/stream-automate/internal/apperr"
	"github.com/hlemont/stream-automate/internal/obs"
	"github.com/hlemont/stream-automate/internal/protocol"
)

type sceneRequest struct {
	Name *string `json:"name"`
}

type actionRequest struct {
	Action string `json:"action"`
}

type mediaRequest struct {
	Action    string `json:"action"`
	Timestamp *int64 `json:"timestamp"`
}

func (s *Server) handleScenes(w http.ResponseWriter, r *http.Request) {
	names, err := s.services().OBS.Scenes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"list": names})
}

func (s *Server) handleCurrentScene(w http.ResponseWriter, r *http.Request) {
	name, err := s.services().OBS.CurrentScene(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"name": name})
}

func (s *Server) handleSetCurrentScene(w http.ResponseWriter, r *http.Request) {
	var req sceneRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if req.Name == nil {
		s.writeError(w, r, apperr.Malformed(apperr.ContextBodyContent, "missing request parameters: 'name'"))
		return
	}
	if err := s.services().OBS.SetCurrentScene(r.Context(), *req.Name); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// streamStatusResponse is the flat GET /obs/stream body.
type streamStatusResponse struct {
	Status          string `json:"status"`
	Streaming       bool   `json:"streaming"`
	Recording       bool   `json:"recording"`
	RecordingPaused bool   `json:"recordingPaused"`
	PreviewOnly     bool   `json:"previewOnly"`
}

func (s *Server) handleStreamStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services().OBS.StreamingStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, streamStatusResponse{
		Status:          protocol.StatusOK,
		Streaming:       status.Streaming,
		Recording:       status.Recording,
		RecordingPaused: status.RecordingPaused,
		PreviewOnly:     status.PreviewOnly,
	})
}

func (s *Server) handleStream(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.services().OBS.Stream(r.Context(), obs.Action(req.Action)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRecordStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.services().OBS.RecordingStatus(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"status": status})
}

func (s *Server) handleRecord(w http.ResponseWriter, r *http.Request) {
	var req actionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.services().OBS.Record(r.Context(), obs.Action(req.Action)); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.services().OBS.Sources(r.Context(), r.URL.Query().Get("type"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) handleMediaSources(w http.ResponseWriter, r *http.Request) {
	sources, err := s.services().OBS.MediaSources(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"sources": sources})
}

func (s *Server) handleMedia(w http.ResponseWriter, r *http.Request) {
	status, err := s.services().OBS.Media(r.Context(), chi.URLParam(r, "source"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (s *Server) handleControlMedia(w http.ResponseWriter, r *http.Request) {
	var req mediaRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	source := chi.URLParam(r, "source")
	if err := s.services().OBS.ControlMedia(r.Context(), source, obs.MediaAction(req.Action), req.Timestamp); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
