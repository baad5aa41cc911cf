package web

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/zombor/scout-scanner/internal/analysis"
)

// writeJSON encodes v as the response body
func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Error encoding response", "error", err)
	}
}

// writeError writes {"error": message}
func writeError(w http.ResponseWriter, message string, code int) {
	writeJSON(w, code, map[string]string{"error": message})
}

type upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

var errNoFile = errors.New("no file provided")

// readUpload reads the "file" part of a multipart form. It writes the error response itself.
func readUpload(w http.ResponseWriter, r *http.Request) (*upload, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadSize)
	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		slog.Error("Error parsing multipart form", "error", err)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, "File is too large. Maximum size is 50MB. Please compress or resize your image.", http.StatusRequestEntityTooLarge)
			return nil, false
		}
		writeError(w, "Error parsing form", http.StatusBadRequest)
		return nil, false
	}

	f, header, err := r.FormFile("file")
	if err != nil {
		writeError(w, "No file was selected. Please choose a photo to upload.", http.StatusBadRequest)
		return nil, false
	}
	defer f.Close()

	data, err := io.ReadAll(f)
	if err != nil {
		slog.Error("Error reading file data", "error", err, "filename", header.Filename)
		writeError(w, "Error reading file. Please try again.", http.StatusInternalServerError)
		return nil, false
	}
	if len(data) == 0 {
		writeError(w, errNoFile.Error(), http.StatusBadRequest)
		return nil, false
	}

	contentType := analysis.DetectContentType(header.Filename, header.Header.Get("Content-Type"))
	if !analysis.SupportedContentType(contentType) {
		writeError(w, "Unsupported file type. Please upload a photo or PDF comp card.", http.StatusBadRequest)
		return nil, false
	}

	return &upload{Filename: header.Filename, ContentType: contentType, Data: data}, true
}
