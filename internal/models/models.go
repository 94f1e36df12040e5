package models

import (
	"bytes"
	"encoding/json"
)

// CodeType identifies the coding system a predicted code belongs to.
type CodeType string

const (
	CodeTypeICD10 CodeType = "ICD-10"
	CodeTypeCPT   CodeType = "CPT"
	CodeTypeHCPCS CodeType = "HCPCS"
)

// Valid reports whether t is one of the supported coding systems.
func (t CodeType) Valid() bool {
	switch t {
	case CodeTypeICD10, CodeTypeCPT, CodeTypeHCPCS:
		return true
	}
	return false
}

// Request bounds and defaults
const (
	DefaultMaxPredictions      = 5
	MinPredictions             = 1
	MaxPredictions             = 20
	DefaultConfidenceThreshold = 0.5
)

// PredictionRequest is the request body for medical code prediction.
// Optional numeric fields are pointers so an explicit zero can be told
// apart from an omitted value. An explicit null for them is rejected by
// Validate.
type PredictionRequest struct {
	ClinicalText        string   `json:"clinical_text" binding:"min=1"`
	Context             *string  `json:"context,omitempty"`
	MaxPredictions      *int     `json:"max_predictions,omitempty" binding:"omitempty,min=1,max=20"`
	ConfidenceThreshold *float64 `json:"confidence_threshold,omitempty" binding:"omitempty,min=0,max=1"`

	nullMaxPredictions      bool
	nullConfidenceThreshold bool
}

// UnmarshalJSON decodes the request and remembers which optional numeric
// fields were sent as null.
func (r *PredictionRequest) UnmarshalJSON(data []byte) error {
	type plain PredictionRequest
	var p plain
	if err := json.Unmarshal(data, &p); err != nil {
		return err
	}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	*r = PredictionRequest(p)
	r.nullMaxPredictions = isNull(raw["max_predictions"])
	r.nullConfidenceThreshold = isNull(raw["confidence_threshold"])
	return nil
}

func isNull(v json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(v), []byte("null"))
}

// WithDefaults returns a copy of r with unset optional fields filled in.
func (r PredictionRequest) WithDefaults() PredictionRequest {
	if r.MaxPredictions == nil {
		n := DefaultMaxPredictions
		r.MaxPredictions = &n
	}
	if r.ConfidenceThreshold == nil {
		f := DefaultConfidenceThreshold
		r.ConfidenceThreshold = &f
	}
	return r
}

// Limit returns the effective max predictions.
func (r PredictionRequest) Limit() int {
	if r.MaxPredictions == nil {
		return DefaultMaxPredictions
	}
	return *r.MaxPredictions
}

// Threshold returns the effective confidence threshold.
func (r PredictionRequest) Threshold() float64 {
	if r.ConfidenceThreshold == nil {
		return DefaultConfidenceThreshold
	}
	return *r.ConfidenceThreshold
}

// ContextText returns the optional context or an empty string.
func (r PredictionRequest) ContextText() string {
	if r.Context == nil {
		return ""
	}
	return *r.Context
}

// CodePrediction is a single predicted code.
type CodePrediction struct {
	Code        string   `json:"code" binding:"required"`
	Description string   `json:"description" binding:"required"`
	Confidence  float64  `json:"confidence" binding:"min=0,max=1"`
	CodeType    CodeType `json:"code_type" binding:"required"`
}

// PredictionResponse is the response body for medical code prediction.
type PredictionResponse struct {
	Predictions      []CodePrediction `json:"predictions" binding:"dive"`
	ProcessingTimeMs float64          `json:"processing_time_ms"`
	ModelVersion     string           `json:"model_version" binding:"required"`
	Success          bool             `json:"success"`
	ErrorMessage     *string          `json:"error_message"`
}

// NewPredictionResponse builds a successful response. A nil predictions
// slice is replaced with an empty one so it encodes as [].
func NewPredictionResponse(predictions []CodePrediction, processingTimeMs float64, modelVersion string) PredictionResponse {
	if predictions == nil {
		predictions = []CodePrediction{}
	}
	return PredictionResponse{
		Predictions:      predictions,
		ProcessingTimeMs: processingTimeMs,
		ModelVersion:     modelVersion,
		Success:          true,
	}
}

// NewErrorResponse builds a failed response carrying message.
func NewErrorResponse(message string, processingTimeMs float64, modelVersion string) PredictionResponse {
	return PredictionResponse{
		Predictions:      []CodePrediction{},
		ProcessingTimeMs: processingTimeMs,
		ModelVersion:     modelVersion,
		Success:          false,
		ErrorMessage:     &message,
	}
}
