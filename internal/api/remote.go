package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hlemont/stream-automate/internal/macro"
)

type controlRequest struct {
	Control macro.Control `json:"control"`
}

type macroRequest struct {
	Macro macro.Macro `json:"macro"`
}

func (s *Server) handleControl(w http.ResponseWriter, r *http.Request) {
	var req controlRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.services().Remote.RunControl(req.Control); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMacros(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.services().Remote.Macros())
}

func (s *Server) handleRunMacro(w http.ResponseWriter, r *http.Request) {
	var req macroRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, r, err)
		return
	}
	if err := s.services().Remote.RunMacro(req.Macro); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMacro(w http.ResponseWriter, r *http.Request) {
	m, err := s.services().Remote.Macro(chi.URLParam(r, "name"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"macro": m})
}

func (s *Server) handleRunNamed(w http.ResponseWriter, r *http.Request) {
	if err := s.services().Remote.RunNamed(chi.URLParam(r, "name")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
