package eventbus

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/medcoding/api/internal/models"
	"github.com/nats-io/nats.go"
)

const (
	// StreamName is the JetStream stream holding prediction events.
	StreamName = "PREDICTIONS"
	// SubjectCompleted carries one event per successful prediction.
	SubjectCompleted = "predictions.completed"
)

// PredictionCompleted is published after a successful prediction.
// It never carries the clinical text.
type PredictionCompleted struct {
	EventID          string                  `json:"event_id"`
	RequestID        string                  `json:"request_id"`
	ModelVersion     string                  `json:"model_version"`
	Predictions      []models.CodePrediction `json:"predictions"`
	ProcessingTimeMs float64                 `json:"processing_time_ms"`
	Cached           bool                    `json:"cached"`
	Timestamp        time.Time               `json:"timestamp"`
}

// jetStream is the subset of nats.JetStreamContext the publisher needs.
type jetStream interface {
	StreamInfo(stream string, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	AddStream(cfg *nats.StreamConfig, opts ...nats.JSOpt) (*nats.StreamInfo, error)
	Publish(subj string, data []byte, opts ...nats.PubOpt) (*nats.PubAck, error)
}

// Publisher appends prediction events to the PREDICTIONS stream.
type Publisher struct {
	js jetStream
}

// NewPublisher makes sure the stream exists and returns a publisher for it.
func NewPublisher(js nats.JetStreamContext) (*Publisher, error) {
	return newPublisher(js)
}

func newPublisher(js jetStream) (*Publisher, error) {
	if err := ensureStream(js); err != nil {
		return nil, err
	}
	return &Publisher{js: js}, nil
}

func ensureStream(js jetStream) error {
	_, err := js.StreamInfo(StreamName)
	if err == nil {
		return nil
	}
	if !errors.Is(err, nats.ErrStreamNotFound) {
		return fmt.Errorf("failed to look up stream %s: %w", StreamName, err)
	}

	_, err = js.AddStream(&nats.StreamConfig{
		Name:     StreamName,
		Subjects: []string{"predictions.>"},
		MaxAge:   7 * 24 * time.Hour,
	})
	if err != nil {
		return fmt.Errorf("failed to create stream %s: %w", StreamName, err)
	}
	return nil
}

// PublishCompleted appends evt. The event id doubles as the JetStream
// message id so a retried publish is deduplicated; one is generated when
// evt has none. Client-supplied request ids are never used for this.
func (p *Publisher) PublishCompleted(ctx context.Context, evt PredictionCompleted) error {
	if evt.EventID == "" {
		evt.EventID = uuid.NewString()
	}
	payload, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("failed to encode event: %w", err)
	}

	_, err = p.js.Publish(SubjectCompleted, payload,
		nats.Context(ctx), nats.ExpectStream(StreamName), nats.MsgId(evt.EventID))
	if err != nil {
		return fmt.Errorf("failed to publish %s: %w", SubjectCompleted, err)
	}
	return nil
}
