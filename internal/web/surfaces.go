package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/zombor/scout-scanner/internal/analysis"
	"github.com/zombor/scout-scanner/internal/lead"
	"github.com/zombor/scout-scanner/internal/scan"
)

// surfaceView is what the client renders for a surface
type surfaceView struct {
	SurfaceID     string           `json:"surface_id"`
	SessionID     string           `json:"session_id,omitempty"`
	State         scan.State       `json:"state"`
	AnimationDone bool             `json:"animation_done"`
	Result        *analysis.Result `json:"result,omitempty"`
	Error         string           `json:"error,omitempty"`
	ErrorKind     string           `json:"error_kind,omitempty"`
}

// visibleResult withholds the report until the session reaches Preview,
// and its confidential parts until the reveal completes
func visibleResult(state scan.State, result *analysis.Result) *analysis.Result {
	switch state {
	case scan.Preview:
		return result.Gated()
	case scan.Complete:
		return result
	}
	return nil
}

func newSurfaceView(surfaceID string, snap scan.Snapshot) surfaceView {
	view := surfaceView{
		SurfaceID:     surfaceID,
		SessionID:     snap.SessionID,
		State:         snap.State,
		AnimationDone: snap.AnimationDone,
		Result:        visibleResult(snap.State, snap.Result),
	}
	if snap.Err != nil {
		view.Error = snap.Err.Error()
		view.ErrorKind = scan.ErrorKind(snap.Err)
	}
	return view
}

// surface looks up the surface named in the path. It writes the 404 itself.
func (s *Server) surface(w http.ResponseWriter, r *http.Request) (*scan.Surface, bool) {
	surface, ok := s.registry.Get(r.PathValue("id"))
	if !ok {
		writeError(w, "Surface not found", http.StatusNotFound)
		return nil, false
	}
	return surface, true
}

func (s *Server) handleOpenSurface(w http.ResponseWriter, r *http.Request) {
	surface := s.registry.Open()
	writeJSON(w, http.StatusCreated, newSurfaceView(surface.ID, surface.Coordinator.Snapshot()))
}

func (s *Server) handleGetSurface(w http.ResponseWriter, r *http.Request) {
	surface, ok := s.surface(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, newSurfaceView(surface.ID, surface.Coordinator.Snapshot()))
}

func (s *Server) handleCloseSurface(w http.ResponseWriter, r *http.Request) {
	if !s.registry.Close(r.PathValue("id")) {
		writeError(w, "Surface not found", http.StatusNotFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleStartScan(w http.ResponseWriter, r *http.Request) {
	surface, ok := s.surface(w, r)
	if !ok {
		return
	}
	file, ok := readUpload(w, r)
	if !ok {
		return
	}

	_, err := surface.Coordinator.StartScan(scan.Image{
		Name:        file.Filename,
		ContentType: file.ContentType,
		Data:        file.Data,
	})
	switch {
	case errors.Is(err, scan.ErrInvalidImage):
		writeError(w, err.Error(), http.StatusBadRequest)
		return
	case errors.Is(err, scan.ErrClosed):
		writeError(w, "Surface not found", http.StatusNotFound)
		return
	case err != nil:
		slog.Error("Error starting scan", "surface_id", surface.ID, "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	writeJSON(w, http.StatusAccepted, newSurfaceView(surface.ID, surface.Coordinator.Snapshot()))
}

func (s *Server) handleResetScan(w http.ResponseWriter, r *http.Request) {
	surface, ok := s.surface(w, r)
	if !ok {
		return
	}
	surface.Coordinator.ResetSession()
	writeJSON(w, http.StatusOK, newSurfaceView(surface.ID, surface.Coordinator.Snapshot()))
}

type sessionRequest struct {
	SessionID string `json:"session_id"`
}

func (s *Server) handleAnimationComplete(w http.ResponseWriter, r *http.Request) {
	surface, ok := s.surface(w, r)
	if !ok {
		return
	}

	var req sessionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.SessionID == "" {
		writeError(w, "session_id is required", http.StatusBadRequest)
		return
	}

	// Stale sessions are ignored by the coordinator; the response shows what is current
	surface.Coordinator.OnAnimationComplete(req.SessionID)
	writeJSON(w, http.StatusOK, newSurfaceView(surface.ID, surface.Coordinator.Snapshot()))
}

type surfaceLeadRequest struct {
	SessionID string `json:"session_id"`
	lead.Contact
}

type leadResponse struct {
	Status  string       `json:"status"`
	LeadID  string       `json:"lead_id"`
	Message string       `json:"message"`
	Surface *surfaceView `json:"surface,omitempty"`
}

// handleSurfaceLead is the lead capture gate: a captured lead unlocks the full report
func (s *Server) handleSurfaceLead(w http.ResponseWriter, r *http.Request) {
	surface, ok := s.surface(w, r)
	if !ok {
		return
	}

	var req surfaceLeadRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, "Invalid request body", http.StatusBadRequest)
		return
	}

	snap := surface.Coordinator.Snapshot()
	if snap.State != scan.Preview || snap.SessionID != req.SessionID {
		writeError(w, scan.ErrNotInPreview.Error(), http.StatusConflict)
		return
	}

	var photo *lead.Photo
	if snap.Image != nil {
		photo = &lead.Photo{Name: snap.Image.Name, ContentType: snap.Image.ContentType, Data: snap.Image.Data}
	}

	captured, ok := s.captureLead(w, r, req.Contact, snap.Result, photo)
	if !ok {
		return
	}

	if err := surface.Coordinator.CompleteReveal(req.SessionID); err != nil {
		slog.Warn("Lead captured after the scan moved on", "surface_id", surface.ID, "lead_id", captured.ID, "error", err)
	}

	view := newSurfaceView(surface.ID, surface.Coordinator.Snapshot())
	writeJSON(w, http.StatusOK, leadResponse{
		Status:  "success",
		LeadID:  captured.ID,
		Message: "Lead saved successfully.",
		Surface: &view,
	})
}

// captureLead runs the lead service and maps its errors. It writes the error response itself.
func (s *Server) captureLead(w http.ResponseWriter, r *http.Request, contact lead.Contact, result *analysis.Result, photo *lead.Photo) (*lead.Lead, bool) {
	captured, err := s.leads.CaptureLead(r.Context(), contact, result, photo)
	switch {
	case errors.Is(err, lead.ErrInvalidContact):
		writeError(w, err.Error(), http.StatusBadRequest)
		return nil, false
	case errors.Is(err, lead.ErrDuplicateLead):
		writeJSON(w, http.StatusBadRequest, map[string]string{
			"status":  "error",
			"message": "This email or phone number has already been submitted.",
		})
		return nil, false
	case err != nil:
		slog.Error("Error capturing lead", "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
		return nil, false
	}
	return captured, true
}
