package analysis

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// rawResult accepts the loose shapes models actually produce
type rawResult struct {
	FaceGeometry         FaceGeometry    `json:"face_geometry"`
	MarketCategorization json.RawMessage `json:"market_categorization"`
	AestheticAudit       AestheticAudit  `json:"aesthetic_audit"`
	SuitabilityScore     json.RawMessage `json:"suitability_score"`
	ScoutFeedback        string          `json:"scout_feedback"`
	Error                string          `json:"error"`
}

// parseResultJSON parses the JSON report returned by a vision model
func parseResultJSON(text string) (*Result, error) {
	text = strings.TrimSpace(text)
	text = strings.TrimPrefix(text, "```json")
	text = strings.TrimPrefix(text, "```")
	text = strings.TrimSpace(text)

	startIdx := strings.Index(text, "{")
	if startIdx == -1 {
		return nil, fmt.Errorf("no JSON object found in response")
	}

	endIdx := strings.LastIndex(text, "}")
	if endIdx == -1 || endIdx < startIdx {
		return nil, fmt.Errorf("invalid JSON object in response")
	}

	text = text[startIdx : endIdx+1]

	var raw rawResult
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		return nil, fmt.Errorf("unmarshaling json: %w", err)
	}

	market, err := parseMarket(raw.MarketCategorization)
	if err != nil {
		return nil, err
	}

	score, err := parseScore(raw.SuitabilityScore)
	if err != nil {
		return nil, err
	}

	return &Result{
		FaceGeometry:         raw.FaceGeometry,
		MarketCategorization: market,
		AestheticAudit:       raw.AestheticAudit,
		SuitabilityScore:     score,
		ScoutFeedback:        strings.TrimSpace(raw.ScoutFeedback),
		Error:                raw.Error,
	}, nil
}

// parseMarket accepts either the full object or a bare category string
func parseMarket(data json.RawMessage) (MarketCategorization, error) {
	var market MarketCategorization
	if len(data) == 0 || string(data) == "null" {
		market.Primary = "Unknown"
		return market, nil
	}

	var primary string
	if err := json.Unmarshal(data, &primary); err == nil {
		market.Primary = strings.TrimSpace(primary)
	} else if err := json.Unmarshal(data, &market); err != nil {
		return market, fmt.Errorf("unmarshaling market_categorization: %w", err)
	}

	if market.Primary == "" {
		market.Primary = "Unknown"
	}
	return market, nil
}

// parseScore accepts a number or a numeric string and clamps it to 0-100
func parseScore(data json.RawMessage) (int, error) {
	if len(data) == 0 || string(data) == "null" {
		return 0, nil
	}

	var score float64
	if err := json.Unmarshal(data, &score); err != nil {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return 0, fmt.Errorf("unmarshaling suitability_score: %w", err)
		}
		score, err = strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0, fmt.Errorf("parsing suitability_score %q: %w", s, err)
		}
	}

	switch {
	case score < 0:
		return 0, nil
	case score > 100:
		return 100, nil
	}
	return int(score), nil
}
