package prediction

import (
	"context"

	"github.com/medcoding/api/internal/models"
	"go.uber.org/zap"
)

// Predictor turns clinical text into candidate billing codes.
type Predictor interface {
	PredictCodes(ctx context.Context, diagnosisText string) ([]models.CodePrediction, error)
}

// Service is the placeholder predictor. It does not load the model at
// MODEL_PATH and returns the same fixed results for every input.
type Service struct {
	logger *zap.Logger
}

func NewService(logger *zap.Logger) *Service {
	return &Service{
		logger: logger,
	}
}

// mockPredictions is the fixed result set. I10 sits below the usual
// confidence threshold and is returned anyway; no filtering happens here.
var mockPredictions = []models.CodePrediction{
	{Code: "E11.9", Description: "Type 2 diabetes", Confidence: 0.92, CodeType: models.CodeTypeICD10},
	{Code: "I10", Description: "Essential hypertension", Confidence: 0.45, CodeType: models.CodeTypeICD10},
}

// PredictCodes predicts ICD-10 codes from diagnosis text.
//
// Confidence-threshold filtering and routing of low-confidence results to
// manual review are not implemented.
func (s *Service) PredictCodes(ctx context.Context, diagnosisText string) ([]models.CodePrediction, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	// TODO: replace the mock table with inference against the model at MODEL_PATH.
	predictions := make([]models.CodePrediction, len(mockPredictions))
	copy(predictions, mockPredictions)

	s.logger.Debug("predicted codes",
		zap.Int("text_length", len(diagnosisText)),
		zap.Int("predictions", len(predictions)),
	)

	return predictions, nil
}

// ValidateICD10Format is meant to check ICD-10 code syntax. No rule set has
// been defined, so it returns false for every input.
func (s *Service) ValidateICD10Format(code string) bool {
	return false
}
