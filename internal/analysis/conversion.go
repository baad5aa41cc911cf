package analysis

import (
	"bytes"
	"fmt"
	"image"
	_ "image/gif"  // Register GIF decoder
	_ "image/jpeg" // Register JPEG decoder
	"image/png"
	"path/filepath"
	"strings"

	"github.com/gen2brain/go-fitz"
	"github.com/gen2brain/heic"
)

// scoutPrompt is the shared prompt used by all model providers
const scoutPrompt = `ACT AS: A Senior Global Model Scout for a top-tier agency.

TASK: Perform a high-fidelity structural audit of the provided image.

REASONING STEPS (Internal Process):
1. Observe the lighting: identify shadows, light source, and skin texture clarity.
2. Map facial geometry: identify the 3 most dominant bone structure markers.
3. Categorize: cross-reference findings against current fashion industry standards.

Return ONLY valid JSON in this exact format:
{
  "face_geometry": {
    "primary_shape": "one of Heart, Square, Oval, Round, Diamond, Oblong, Triangular",
    "jawline_definition": "one of Soft, Sharp, Chiseled, Defined, Angular",
    "structural_note": "Technical observation of cheekbone height and symmetry."
  },
  "market_categorization": {
    "primary": "one of High Fashion, Commercial/Lifestyle, Fitness",
    "rationale": "Why does this face fit this specific market?"
  },
  "aesthetic_audit": {
    "lighting_quality": "one of Natural, Studio, Poor, Harsh",
    "professional_readiness": "one of Selfie, Amateur, Semi-Pro, Portfolio-Ready",
    "technical_flaw": "Specific issue like motion blur, under-eye shadows, or distorting lens angle."
  },
  "suitability_score": 0,
  "scout_feedback": "A professional, direct 1-sentence assessment of the model's market potential."
}

Important:
- suitability_score must be an integer from 0 to 100
- Be brutally honest about professional readiness. A bathroom selfie must score accordingly
- Use precise industry terminology
- Do not include any text before or after the JSON
- Do not use markdown code blocks`

// SupportedContentType reports whether an upload can be sent for analysis
func SupportedContentType(contentType string) bool {
	ct := strings.ToLower(strings.TrimSpace(contentType))
	return strings.HasPrefix(ct, "image/") || ct == "application/pdf"
}

// DetectContentType resolves the MIME type of an upload, falling back to the file extension
func DetectContentType(filename, header string) string {
	contentType := strings.ToLower(strings.TrimSpace(header))
	if contentType != "" && contentType != "application/octet-stream" {
		return contentType
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".jpg", ".jpeg":
		return "image/jpeg"
	case ".png":
		return "image/png"
	case ".gif":
		return "image/gif"
	case ".heic":
		return "image/heic"
	case ".heif":
		return "image/heif"
	case ".pdf":
		return "application/pdf"
	}
	return "application/octet-stream"
}

// renderCompCard renders the first page of a PDF comp card
func renderCompCard(pdfData []byte) (image.Image, error) {
	doc, err := fitz.NewFromMemory(pdfData)
	if err != nil {
		return nil, fmt.Errorf("opening PDF: %w", err)
	}
	defer doc.Close()

	img, err := doc.Image(0)
	if err != nil {
		return nil, fmt.Errorf("rendering PDF page: %w", err)
	}
	return img, nil
}

// decodePhoto decodes HEIC and the standard library formats
func decodePhoto(imageData []byte, mimeType string) (image.Image, error) {
	// iPhones upload HEIC, which the image package cannot decode
	if isHEICFormat(imageData) || isHEICMimeType(mimeType) {
		img, err := heic.Decode(bytes.NewReader(imageData))
		if err != nil {
			return nil, fmt.Errorf("decoding HEIC/HEIF image: %w", err)
		}
		return img, nil
	}

	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		if strings.Contains(err.Error(), "unknown format") {
			return nil, fmt.Errorf("unsupported image format. Supported formats: JPEG, PNG, GIF, HEIC, HEIF, PDF. Error: %w", err)
		}
		return nil, fmt.Errorf("decoding image: %w", err)
	}
	return img, nil
}

// isHEICFormat checks the ftyp box brand at offset 4
func isHEICFormat(data []byte) bool {
	if len(data) < 12 || string(data[4:8]) != "ftyp" {
		return false
	}
	switch string(data[8:12]) {
	case "heic", "heif", "mif1", "msf1":
		return true
	}
	return false
}

func isHEICMimeType(mimeType string) bool {
	mimeType = strings.ToLower(strings.TrimSpace(mimeType))
	return strings.Contains(mimeType, "heic") || strings.Contains(mimeType, "heif")
}

// preparePhoto normalizes an upload to PNG for the model.
// PNG input that is not HEIC in disguise is passed through untouched.
func preparePhoto(imageData []byte, contentType string) ([]byte, error) {
	if len(imageData) == 0 {
		return nil, fmt.Errorf("no image data provided")
	}

	mimeType := strings.ToLower(strings.TrimSpace(contentType))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	if mimeType == "image/png" && !isHEICFormat(imageData) {
		return imageData, nil
	}

	var (
		img image.Image
		err error
	)
	if mimeType == "application/pdf" {
		img, err = renderCompCard(imageData)
	} else {
		img, err = decodePhoto(imageData, mimeType)
	}
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return buf.Bytes(), nil
}
