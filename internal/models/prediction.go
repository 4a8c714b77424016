package models

import "fmt"

// PredictionResult is one verdict returned by the classifier.
type PredictionResult struct {
	Label string `json:"label" msgpack:"label"`
	// RawConfidence is the score as transmitted, on a 0-100 scale.
	RawConfidence float64 `json:"rawConfidence" msgpack:"rawConfidence"`
	// Confidence is RawConfidence normalized to 0-1.
	Confidence float64 `json:"confidence" msgpack:"confidence"`
	HighRisk   bool    `json:"highRisk" msgpack:"highRisk"`
}

// NewPredictionResult normalizes a raw 0-100 confidence and marks the
// verdict high-risk when its label equals highRiskLabel.
func NewPredictionResult(label string, rawConfidence float64, highRiskLabel string) *PredictionResult {
	return &PredictionResult{
		Label:         label,
		RawConfidence: rawConfidence,
		Confidence:    rawConfidence / 100,
		HighRisk:      label == highRiskLabel,
	}
}

// ConfidenceText formats the confidence as "Confidence: 87.3%".
func (p *PredictionResult) ConfidenceText() string {
	return fmt.Sprintf("Confidence: %.1f%%", p.Confidence*100)
}

// Accent returns the accent class used to color the result card.
func (p *PredictionResult) Accent() Accent {
	if p.HighRisk {
		return AccentRisk
	}
	return AccentSafe
}
