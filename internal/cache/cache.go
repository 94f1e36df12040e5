// Package cache stores prediction results in Redis so repeated requests for
// the same text skip the predictor.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/medcoding/api/internal/models"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "medcoding:prediction:"

// PredictionCache reads and writes cached prediction lists.
type PredictionCache struct {
	client redis.Cmdable
	ttl    time.Duration
}

func New(client redis.Cmdable, ttl time.Duration) *PredictionCache {
	return &PredictionCache{
		client: client,
		ttl:    ttl,
	}
}

// Key derives the cache key for req under modelVersion. Every field that can
// change the result is part of the digest.
func Key(req models.PredictionRequest, modelVersion string) string {
	h := sha256.New()
	for _, part := range []string{
		modelVersion,
		req.ClinicalText,
		req.ContextText(),
		strconv.FormatBool(req.Context != nil),
		strconv.Itoa(req.Limit()),
		strconv.FormatFloat(req.Threshold(), 'g', -1, 64),
	} {
		// length prefix keeps ("ab","c") and ("a","bc") apart
		h.Write([]byte(strconv.Itoa(len(part))))
		h.Write([]byte{':'})
		h.Write([]byte(part))
	}
	return keyPrefix + hex.EncodeToString(h.Sum(nil))
}

// Get returns the cached predictions for key. found is false on a miss.
func (c *PredictionCache) Get(ctx context.Context, key string) (predictions []models.CodePrediction, found bool, err error) {
	data, err := c.client.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read cache: %w", err)
	}

	if err := json.Unmarshal(data, &predictions); err != nil {
		return nil, false, fmt.Errorf("failed to decode cached predictions: %w", err)
	}
	return predictions, true, nil
}

// Set stores predictions under key for the configured TTL.
func (c *PredictionCache) Set(ctx context.Context, key string, predictions []models.CodePrediction) error {
	data, err := json.Marshal(predictions)
	if err != nil {
		return fmt.Errorf("failed to encode predictions: %w", err)
	}
	if err := c.client.Set(ctx, key, data, c.ttl).Err(); err != nil {
		return fmt.Errorf("failed to write cache: %w", err)
	}
	return nil
}
