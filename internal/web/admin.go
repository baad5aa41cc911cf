package web

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/zombor/scout-scanner/internal/lead"
)

// leadError maps lead service errors to responses
func leadError(w http.ResponseWriter, err error, action string) {
	switch {
	case errors.Is(err, lead.ErrLeadNotFound):
		writeError(w, "Lead not found", http.StatusNotFound)
	case errors.Is(err, lead.ErrNoImage):
		writeError(w, "Lead has no image", http.StatusNotFound)
	case errors.Is(err, lead.ErrWebhookNotConfigured):
		writeError(w, "CRM webhook URL not configured", http.StatusBadRequest)
	default:
		slog.Error("Error "+action, "error", err)
		writeError(w, "Internal server error", http.StatusInternalServerError)
	}
}

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := s.leads.ListLeads()
	if err != nil {
		leadError(w, err, "listing leads")
		return
	}
	writeJSON(w, http.StatusOK, leads)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	l, err := s.leads.GetLead(r.PathValue("id"))
	if err != nil {
		leadError(w, err, "getting lead")
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleGetLeadImage(w http.ResponseWriter, r *http.Request) {
	data, contentType, err := s.leads.GetLeadImage(r.PathValue("id"))
	if err != nil {
		leadError(w, err, "getting lead image")
		return
	}
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.Write(data)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	if err := s.leads.DeleteLead(r.PathValue("id")); err != nil {
		leadError(w, err, "deleting lead")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type retryResponse struct {
	Status        string             `json:"status"`
	Message       string             `json:"message"`
	WebhookStatus lead.WebhookStatus `json:"webhook_status"`
}

func (s *Server) retryWebhook(w http.ResponseWriter, r *http.Request, id string) {
	l, err := s.leads.RetryWebhook(r.Context(), id)
	if err != nil {
		leadError(w, err, "retrying webhook")
		return
	}
	writeJSON(w, http.StatusOK, retryResponse{
		Status:        "success",
		Message:       "Webhook retry attempted",
		WebhookStatus: l.WebhookStatus,
	})
}

func (s *Server) handleRetryWebhook(w http.ResponseWriter, r *http.Request) {
	s.retryWebhook(w, r, r.PathValue("id"))
}

type retryRequest struct {
	LeadID string `json:"lead_id"`
}

func (s *Server) handleRetryWebhookByBody(w http.ResponseWriter, r *http.Request) {
	var req retryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.LeadID == "" {
		writeError(w, "Missing lead_id", http.StatusBadRequest)
		return
	}
	s.retryWebhook(w, r, req.LeadID)
}
