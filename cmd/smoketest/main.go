// Command smoketest sends one prediction to a running API and checks the
// response against the expected mock output.
package main

import (
	"bytes"
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/medcoding/api/internal/middleware"
	"github.com/medcoding/api/internal/models"
)

func main() {
	baseURL := flag.String("url", "http://localhost:8000", "API base URL")
	retries := flag.Int("retries", 10, "attempts while waiting for the server to start")
	flag.Parse()

	if err := run(*baseURL, *retries); err != nil {
		fmt.Fprintf(os.Stderr, "smoketest: %v\n", err)
		os.Exit(1)
	}
	fmt.Println("smoketest: OK")
}

func run(baseURL string, retries int) error {
	maxPredictions := 2
	body, err := json.Marshal(models.PredictionRequest{
		ClinicalText:   "Patient with poorly controlled type 2 diabetes and elevated blood pressure.",
		MaxPredictions: &maxPredictions,
	})
	if err != nil {
		return err
	}

	var token string
	if secret := os.Getenv("JWT_SECRET"); secret != "" {
		token, err = middleware.IssueToken(secret, "smoketest", "", 5*time.Minute)
		if err != nil {
			return fmt.Errorf("minting token: %w", err)
		}
	}

	client := &http.Client{Timeout: 10 * time.Second}
	var resp *http.Response
	for i := 0; i < retries; i++ {
		req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, baseURL+"/api/v1/predict", bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		resp, err = client.Do(req)
		if err == nil {
			break
		}
		fmt.Printf("waiting for server (%d/%d): %v\n", i+1, retries, err)
		time.Sleep(2 * time.Second)
	}
	if resp == nil {
		return fmt.Errorf("server at %s did not respond", baseURL)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var out models.PredictionResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	if err := out.Validate(); err != nil {
		return fmt.Errorf("response failed validation: %w", err)
	}
	if !out.Success || len(out.Predictions) != 2 {
		return fmt.Errorf("unexpected response: %+v", out)
	}
	if out.Predictions[0].Code != "E11.9" || out.Predictions[1].Code != "I10" {
		return fmt.Errorf("unexpected codes: %s, %s", out.Predictions[0].Code, out.Predictions[1].Code)
	}

	fmt.Printf("request %s: %d codes in %.2fms (model %s)\n",
		resp.Header.Get(middleware.RequestIDHeader), len(out.Predictions), out.ProcessingTimeMs, out.ModelVersion)
	return nil
}
