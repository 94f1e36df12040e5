// Package audit keeps a record of every prediction the service answers.
// Clinical text is never stored; only its SHA-256 digest is kept.
package audit

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/medcoding/api/internal/database"
	"github.com/medcoding/api/internal/models"
	"go.uber.org/zap"
)

// MaxRecentLimit bounds Recent.
const MaxRecentLimit = 100

// ErrInvalidLimit is returned by Recent for a limit outside [1, MaxRecentLimit].
var ErrInvalidLimit = errors.New("limit must be between 1 and 100")

// Record is one audited prediction.
type Record struct {
	ID                  uuid.UUID               `json:"id"`
	RequestID           string                  `json:"request_id"`
	TextSHA256          string                  `json:"text_sha256"`
	ContextProvided     bool                    `json:"context_provided"`
	MaxPredictions      int                     `json:"max_predictions"`
	ConfidenceThreshold float64                 `json:"confidence_threshold"`
	Predictions         []models.CodePrediction `json:"predictions"`
	ProcessingTimeMs    float64                 `json:"processing_time_ms"`
	ModelVersion        string                  `json:"model_version"`
	Success             bool                    `json:"success"`
	ErrorMessage        *string                 `json:"error_message,omitempty"`
	CreatedAt           time.Time               `json:"created_at"`
}

// NewRecord builds a record from a validated request and the response sent for it.
func NewRecord(requestID string, req models.PredictionRequest, resp models.PredictionResponse) Record {
	predictions := resp.Predictions
	if predictions == nil {
		predictions = []models.CodePrediction{}
	}
	return Record{
		ID:                  uuid.New(),
		RequestID:           requestID,
		TextSHA256:          HashText(req.ClinicalText),
		ContextProvided:     req.Context != nil,
		MaxPredictions:      req.Limit(),
		ConfidenceThreshold: req.Threshold(),
		Predictions:         predictions,
		ProcessingTimeMs:    resp.ProcessingTimeMs,
		ModelVersion:        resp.ModelVersion,
		Success:             resp.Success,
		ErrorMessage:        resp.ErrorMessage,
		CreatedAt:           time.Now().UTC(),
	}
}

// HashText returns the hex SHA-256 digest of clinical text.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// querier is the subset of pgxpool.Pool the service uses.
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// Service persists prediction records in Postgres
type Service struct {
	db     querier
	logger *zap.Logger
}

func NewService(db *database.Postgres, logger *zap.Logger) *Service {
	return &Service{
		db:     db.Pool(),
		logger: logger,
	}
}

// Record inserts rec into prediction_logs.
func (s *Service) Record(ctx context.Context, rec Record) error {
	predictionsJSON, err := json.Marshal(rec.Predictions)
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}

	query := `
		INSERT INTO prediction_logs (id, request_id, text_sha256, context_provided, max_predictions,
			confidence_threshold, predictions, processing_time_ms, model_version, success, error_message, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`
	_, err = s.db.Exec(ctx, query,
		rec.ID, rec.RequestID, rec.TextSHA256, rec.ContextProvided, rec.MaxPredictions,
		rec.ConfidenceThreshold, string(predictionsJSON), rec.ProcessingTimeMs, rec.ModelVersion,
		rec.Success, rec.ErrorMessage, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to insert prediction log: %w", err)
	}

	s.logger.Debug("recorded prediction",
		zap.String("audit_id", rec.ID.String()),
		zap.String("request_id", rec.RequestID),
	)
	return nil
}

// Recent returns the latest records, newest first.
func (s *Service) Recent(ctx context.Context, limit int) ([]Record, error) {
	if limit < 1 || limit > MaxRecentLimit {
		return nil, ErrInvalidLimit
	}

	query := `
		SELECT id, request_id, text_sha256, context_provided, max_predictions, confidence_threshold,
		       predictions, processing_time_ms, model_version, success, error_message, created_at
		FROM prediction_logs
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := s.db.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query prediction logs: %w", err)
	}
	defer rows.Close()

	records := []Record{}
	for rows.Next() {
		var rec Record
		var predictionsJSON []byte
		if err := rows.Scan(
			&rec.ID, &rec.RequestID, &rec.TextSHA256, &rec.ContextProvided, &rec.MaxPredictions,
			&rec.ConfidenceThreshold, &predictionsJSON, &rec.ProcessingTimeMs, &rec.ModelVersion,
			&rec.Success, &rec.ErrorMessage, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("failed to scan prediction log: %w", err)
		}
		if len(predictionsJSON) > 0 {
			if err := json.Unmarshal(predictionsJSON, &rec.Predictions); err != nil {
				return nil, fmt.Errorf("failed to decode predictions for %s: %w", rec.ID, err)
			}
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read prediction logs: %w", err)
	}

	return records, nil
}
