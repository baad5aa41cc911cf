package analysis

import "context"

// FaceGeometry describes the dominant bone structure markers
type FaceGeometry struct {
	PrimaryShape      string `json:"primary_shape"`
	JawlineDefinition string `json:"jawline_definition"`
	StructuralNote    string `json:"structural_note"`
}

// MarketCategorization places the face in a market segment
type MarketCategorization struct {
	Primary   string `json:"primary"`
	Rationale string `json:"rationale"`
}

// AestheticAudit grades the photo itself rather than the subject
type AestheticAudit struct {
	LightingQuality       string `json:"lighting_quality"`
	ProfessionalReadiness string `json:"professional_readiness"`
	TechnicalFlaw         string `json:"technical_flaw"`
}

// Result is the structured report returned by a vision model.
// A non-empty Error marks an analysis-level failure for the submitted image.
type Result struct {
	FaceGeometry         FaceGeometry         `json:"face_geometry"`
	MarketCategorization MarketCategorization `json:"market_categorization"`
	AestheticAudit       AestheticAudit       `json:"aesthetic_audit"`
	SuitabilityScore     int                  `json:"suitability_score"`
	ScoutFeedback        string               `json:"scout_feedback"`
	Error                string               `json:"error,omitempty"`
}

// Valid reports whether the result carries a usable report
func (r *Result) Valid() bool {
	return r != nil && r.Error == ""
}

// Category returns the primary market, or "Unknown"
func (r *Result) Category() string {
	if r == nil || r.MarketCategorization.Primary == "" {
		return "Unknown"
	}
	return r.MarketCategorization.Primary
}

// Gated returns a copy with the confidential parts of the report withheld.
// It is what a visitor sees before the lead form is submitted.
func (r *Result) Gated() *Result {
	if r == nil {
		return nil
	}
	gated := *r
	gated.AestheticAudit = AestheticAudit{}
	gated.MarketCategorization.Rationale = ""
	gated.ScoutFeedback = ""
	return &gated
}

// Failed builds a result that reports an analysis-level failure
func Failed(reason string) *Result {
	return &Result{
		MarketCategorization: MarketCategorization{Primary: "Unknown", Rationale: "Analysis failed."},
		FaceGeometry:         FaceGeometry{PrimaryShape: "Unknown", JawlineDefinition: "Unknown", StructuralNote: "N/A"},
		AestheticAudit:       AestheticAudit{LightingQuality: "Unknown", ProfessionalReadiness: "Unknown", TechnicalFlaw: "Analysis Error"},
		ScoutFeedback:        "Analysis failed: " + reason,
		Error:                reason,
	}
}

// Analyzer defines the interface for the remote vision-analysis service
type Analyzer interface {
	// Analyze scores a photo. A returned error is a transport failure;
	// a Result with Error set means the model could not assess the image.
	Analyze(ctx context.Context, imageData []byte, contentType string) (*Result, error)
	// Close closes the analyzer and releases resources
	Close() error
}
