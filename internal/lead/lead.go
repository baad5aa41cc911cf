package lead

import (
	"time"

	"github.com/zombor/scout-scanner/internal/analysis"
)

// Contact is what a visitor enters to unlock their report
type Contact struct {
	FirstName       string `json:"first_name"`
	LastName        string `json:"last_name"`
	Age             string `json:"age"`
	Gender          string `json:"gender"`
	Email           string `json:"email"`
	Phone           string `json:"phone"`
	City            string `json:"city"`
	ZipCode         string `json:"zip_code"`
	Campaign        string `json:"campaign,omitempty"`
	WantsAssessment bool   `json:"wants_assessment"`
}

// WebhookStatus tracks delivery of a lead to the CRM
type WebhookStatus string

const (
	WebhookPending       WebhookStatus = "pending"
	WebhookSuccess       WebhookStatus = "success"
	WebhookFailed        WebhookStatus = "failed"
	WebhookNotConfigured WebhookStatus = "not_configured"
)

// Lead is a captured contact together with the analysis it unlocked
type Lead struct {
	ID string `json:"id"`
	Contact

	Score            int              `json:"score"`
	Category         string           `json:"category"`
	Analysis         *analysis.Result `json:"analysis_json,omitempty"`
	ImagePath        string           `json:"image_path,omitempty"`
	ImageContentType string           `json:"image_content_type,omitempty"`

	WebhookSent     bool          `json:"webhook_sent"`
	WebhookStatus   WebhookStatus `json:"webhook_status"`
	WebhookResponse string        `json:"webhook_response,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Photo is the scanned image stored alongside a lead
type Photo struct {
	Name        string
	ContentType string
	Data        []byte
}
