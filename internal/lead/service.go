package lead

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"mime"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/zombor/scout-scanner/internal/analysis"
)

var (
	// ErrWebhookNotConfigured is returned by RetryWebhook when no CRM webhook is set up
	ErrWebhookNotConfigured = errors.New("CRM webhook not configured")
	// ErrNoImage is returned by GetLeadImage for leads captured without a photo
	ErrNoImage = errors.New("lead has no image")
)

// IDGenerator generates unique IDs for leads
type IDGenerator interface {
	Generate() string
}

// TimeSource provides the current time
type TimeSource interface {
	Now() time.Time
}

type uuidGenerator struct{}

func (uuidGenerator) Generate() string {
	return uuid.NewString()
}

type defaultTimeSource struct{}

func (defaultTimeSource) Now() time.Time {
	return time.Now()
}

// Service captures leads and manages them afterwards
type Service struct {
	db          DB
	storage     Storage
	notifier    Notifier
	idGenerator IDGenerator
	timeSource  TimeSource
}

// NewService creates a Service. notifier may be nil when no CRM webhook is configured.
func NewService(db DB, storage Storage, notifier Notifier) *Service {
	return NewServiceWithDeps(db, storage, notifier, uuidGenerator{}, defaultTimeSource{})
}

// NewServiceWithDeps creates a Service with custom dependencies for testing
func NewServiceWithDeps(db DB, storage Storage, notifier Notifier, idGen IDGenerator, timeSrc TimeSource) *Service {
	return &Service{
		db:          db,
		storage:     storage,
		notifier:    notifier,
		idGenerator: idGen,
		timeSource:  timeSrc,
	}
}

var unsafeName = regexp.MustCompile(`[^a-z0-9\-]`)

// imageName builds an object name from the email, capture time and lead ID.
// The ID keeps concurrent captures of the same contact on separate objects.
func imageName(email string, id string, at time.Time, contentType string) string {
	base := strings.NewReplacer("@", "-at-", ".", "-").Replace(email)
	base = unsafeName.ReplaceAllString(base, "")
	if len(base) > 50 {
		base = base[:50]
	}
	if base == "" {
		base = "lead"
	}

	ext := ".jpg"
	switch contentType {
	case "", "image/jpeg":
	case "image/png":
		ext = ".png"
	case "image/heic", "image/heif":
		ext = ".heic"
	default:
		if exts, err := mime.ExtensionsByType(contentType); err == nil && len(exts) > 0 {
			ext = exts[0]
		}
	}
	id = unsafeName.ReplaceAllString(strings.ToLower(id), "")
	return fmt.Sprintf("%s_%d_%s%s", base, at.Unix(), id, ext)
}

// CaptureLead validates contact, stores the photo and lead, then delivers it to the CRM.
// A failed photo upload or webhook does not fail the capture.
func (s *Service) CaptureLead(ctx context.Context, contact Contact, result *analysis.Result, photo *Photo) (*Lead, error) {
	contact = contact.Normalized()
	if err := contact.Validate(); err != nil {
		return nil, err
	}

	exists, err := s.db.ContactExists(contact.Email, contact.Phone)
	if err != nil {
		return nil, fmt.Errorf("checking for duplicate lead: %w", err)
	}
	if exists {
		return nil, ErrDuplicateLead
	}

	id := s.idGenerator.Generate()
	now := s.timeSource.Now()

	lead := &Lead{
		ID:            id,
		Contact:       contact,
		Category:      result.Category(),
		Analysis:      result,
		WebhookStatus: WebhookPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	if result != nil {
		lead.Score = result.SuitabilityScore
	}

	if photo != nil && len(photo.Data) > 0 {
		path, err := s.storage.Save(imageName(contact.Email, id, now, photo.ContentType), photo.Data, photo.ContentType)
		if err != nil {
			slog.Warn("Failed to store lead photo", "lead_id", id, "filename", photo.Name, "error", err)
		} else {
			lead.ImagePath = path
			lead.ImageContentType = photo.ContentType
		}
	}

	if err := s.db.InsertLead(lead); err != nil {
		if lead.ImagePath != "" {
			s.storage.Delete(lead.ImagePath)
		}
		if errors.Is(err, ErrDuplicateLead) {
			return nil, err
		}
		return nil, fmt.Errorf("saving lead to database: %w", err)
	}

	slog.Info("Captured lead", "lead_id", id, "score", lead.Score, "category", lead.Category)

	if s.notifier == nil {
		lead.WebhookStatus = WebhookNotConfigured
		lead.WebhookResponse = "CRM webhook URL not set"
		lead.UpdatedAt = s.timeSource.Now()
		if err := s.db.SaveLead(lead); err != nil {
			slog.Error("Failed to record webhook status", "lead_id", id, "error", err)
		}
		return lead, nil
	}

	s.deliver(ctx, lead)
	return lead, nil
}

// deliver sends lead to the CRM and records the outcome
func (s *Service) deliver(ctx context.Context, lead *Lead) {
	status, response := s.notifier.Notify(ctx, lead)
	lead.WebhookSent = true
	lead.WebhookStatus = status
	lead.WebhookResponse = response
	lead.UpdatedAt = s.timeSource.Now()

	if err := s.db.SaveLead(lead); err != nil {
		slog.Error("Failed to record webhook status", "lead_id", lead.ID, "error", err)
	}
}

// GetLead retrieves a lead by ID
func (s *Service) GetLead(id string) (*Lead, error) {
	lead, err := s.db.GetLead(id)
	if err != nil {
		return nil, fmt.Errorf("getting lead: %w", err)
	}
	return lead, nil
}

// ListLeads returns all leads, newest first
func (s *Service) ListLeads() ([]*Lead, error) {
	leads, err := s.db.ListLeads()
	if err != nil {
		return nil, fmt.Errorf("listing leads: %w", err)
	}
	return leads, nil
}

// DeleteLead removes a lead and its photo
func (s *Service) DeleteLead(id string) error {
	lead, err := s.db.GetLead(id)
	if err != nil {
		return fmt.Errorf("getting lead for deletion: %w", err)
	}

	if lead.ImagePath != "" {
		if err := s.storage.Delete(lead.ImagePath); err != nil {
			slog.Warn("Failed to delete lead photo", "path", lead.ImagePath, "error", err)
		}
	}

	if err := s.db.DeleteLead(id); err != nil {
		return fmt.Errorf("deleting lead from database: %w", err)
	}
	return nil
}

// GetLeadImage returns the stored photo for a lead
func (s *Service) GetLeadImage(id string) ([]byte, string, error) {
	lead, err := s.db.GetLead(id)
	if err != nil {
		return nil, "", fmt.Errorf("getting lead: %w", err)
	}
	if lead.ImagePath == "" {
		return nil, "", ErrNoImage
	}

	data, err := s.storage.Get(lead.ImagePath)
	if err != nil {
		return nil, "", fmt.Errorf("getting lead image: %w", err)
	}
	return data, lead.ImageContentType, nil
}

// RetryWebhook delivers an existing lead to the CRM again
func (s *Service) RetryWebhook(ctx context.Context, id string) (*Lead, error) {
	if s.notifier == nil {
		return nil, ErrWebhookNotConfigured
	}

	lead, err := s.db.GetLead(id)
	if err != nil {
		return nil, fmt.Errorf("getting lead: %w", err)
	}

	s.deliver(ctx, lead)
	slog.Info("Retried lead webhook", "lead_id", id, "status", lead.WebhookStatus)
	return lead, nil
}
