package cache

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/medcoding/api/internal/models"
	"github.com/redis/go-redis/v9"
)

// fakeRedis implements the two commands the cache uses.
type fakeRedis struct {
	redis.Cmdable
	data   map[string]string
	ttl    time.Duration
	getErr error
}

func newFakeRedis() *fakeRedis {
	return &fakeRedis{data: map[string]string{}}
}

func (f *fakeRedis) Get(ctx context.Context, key string) *redis.StringCmd {
	if f.getErr != nil {
		return redis.NewStringResult("", f.getErr)
	}
	v, ok := f.data[key]
	if !ok {
		return redis.NewStringResult("", redis.Nil)
	}
	return redis.NewStringResult(v, nil)
}

func (f *fakeRedis) Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd {
	f.data[key] = string(value.([]byte))
	f.ttl = expiration
	return redis.NewStatusResult("OK", nil)
}

func request(text string) models.PredictionRequest {
	return models.PredictionRequest{ClinicalText: text}
}

func TestKeyIsStable(t *testing.T) {
	a := Key(request("type 2 diabetes"), "mock-0.1.0")
	b := Key(request("type 2 diabetes"), "mock-0.1.0")
	if a != b {
		t.Fatalf("same request produced different keys: %s vs %s", a, b)
	}
	if !strings.HasPrefix(a, keyPrefix) {
		t.Errorf("key %q missing prefix", a)
	}
	if strings.Contains(a, "diabetes") {
		t.Error("key must not contain clinical text")
	}
}

func TestKeyDistinguishesInputs(t *testing.T) {
	one := 1
	zero := 0.0
	empty := ""
	base := request("hypertension")

	variants := map[string]string{
		"text":          Key(request("hypertensio"), "mock-0.1.0"),
		"model version": Key(base, "mock-0.2.0"),
		"limit":         Key(models.PredictionRequest{ClinicalText: "hypertension", MaxPredictions: &one}, "mock-0.1.0"),
		"threshold":     Key(models.PredictionRequest{ClinicalText: "hypertension", ConfidenceThreshold: &zero}, "mock-0.1.0"),
		"empty context": Key(models.PredictionRequest{ClinicalText: "hypertension", Context: &empty}, "mock-0.1.0"),
	}
	baseKey := Key(base, "mock-0.1.0")
	for name, key := range variants {
		if key == baseKey {
			t.Errorf("changing %s did not change the key", name)
		}
	}
}

func TestKeyAppliesDefaults(t *testing.T) {
	explicit := request("asthma").WithDefaults()
	if Key(request("asthma"), "v") != Key(explicit, "v") {
		t.Error("defaulted and explicit default requests should share a key")
	}
}

func TestGetSetRoundTrip(t *testing.T) {
	client := newFakeRedis()
	c := New(client, 5*time.Minute)
	ctx := context.Background()
	key := Key(request("bronchitis"), "v")

	if _, found, err := c.Get(ctx, key); err != nil || found {
		t.Fatalf("expected miss, got found=%v err=%v", found, err)
	}

	want := []models.CodePrediction{{Code: "J20.9", Description: "Acute bronchitis", Confidence: 0.8, CodeType: models.CodeTypeICD10}}
	if err := c.Set(ctx, key, want); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	if client.ttl != 5*time.Minute {
		t.Errorf("ttl = %v, want 5m", client.ttl)
	}

	got, found, err := c.Get(ctx, key)
	if err != nil || !found {
		t.Fatalf("expected hit, got found=%v err=%v", found, err)
	}
	if len(got) != 1 || got[0] != want[0] {
		t.Errorf("unexpected cached predictions: %+v", got)
	}
}

func TestGetReportsBackendErrors(t *testing.T) {
	backendErr := errors.New("connection reset")
	client := newFakeRedis()
	client.getErr = backendErr

	_, found, err := New(client, time.Minute).Get(context.Background(), "k")
	if found || !errors.Is(err, backendErr) {
		t.Errorf("expected wrapped backend error, got found=%v err=%v", found, err)
	}
}

func TestGetRejectsCorruptEntries(t *testing.T) {
	client := newFakeRedis()
	client.data["k"] = "not json"

	if _, found, err := New(client, time.Minute).Get(context.Background(), "k"); err == nil || found {
		t.Errorf("expected decode error, got found=%v err=%v", found, err)
	}
}
