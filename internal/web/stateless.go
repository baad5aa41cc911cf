package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/scout-scanner/internal/analysis"
	"github.com/zombor/scout-scanner/internal/lead"
)

// handleAnalyze scores a photo without a surface. Only the gated preview is returned;
// the full report is revealed through a surface once a lead is captured.
func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	file, ok := readUpload(w, r)
	if !ok {
		return
	}

	result, err := s.analyzer.Analyze(r.Context(), file.Data, file.ContentType)
	if err != nil {
		slog.Error("Error analyzing photo", "filename", file.Filename, "content_type", file.ContentType, "error", err)
		writeError(w, "Analysis service unavailable", http.StatusBadGateway)
		return
	}
	if result == nil {
		result = analysis.Failed("empty analysis result")
	}
	writeJSON(w, http.StatusOK, result.Gated())
}

// handleLeadForm captures a lead from a multipart form carrying the analysis as JSON
func (s *Server) handleLeadForm(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing lead form", "error", err)
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return
	}

	contact := lead.Contact{
		FirstName:       r.FormValue("first_name"),
		LastName:        r.FormValue("last_name"),
		Age:             r.FormValue("age"),
		Gender:          r.FormValue("gender"),
		Email:           r.FormValue("email"),
		Phone:           r.FormValue("phone"),
		City:            r.FormValue("city"),
		ZipCode:         r.FormValue("zip_code"),
		Campaign:        r.FormValue("campaign"),
		WantsAssessment: r.FormValue("wants_assessment") == "true",
	}

	var result *analysis.Result
	if raw := r.FormValue("analysis_data"); raw != "" {
		var parsed analysis.Result
		if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
			slog.Warn("Ignoring malformed analysis data", "error", err)
		} else {
			result = &parsed
		}
	}

	photo, err := formPhoto(r)
	if err != nil {
		slog.Error("Error reading lead photo", "error", err)
		writeError(w, "Error reading file. Please try again.", http.StatusBadRequest)
		return
	}

	captured, ok := s.captureLead(w, r, contact, result, photo)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, leadResponse{
		Status:  "success",
		LeadID:  captured.ID,
		Message: "Lead saved successfully.",
	})
}

// formPhoto returns the optional "file" part of a parsed multipart form
func formPhoto(r *http.Request) (*lead.Photo, error) {
	f, header, err := r.FormFile("file")
	if errors.Is(err, http.ErrMissingFile) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, err
	}
	return &lead.Photo{
		Name:        header.Filename,
		ContentType: analysis.DetectContentType(header.Filename, header.Header.Get("Content-Type")),
		Data:        data,
	}, nil
}
