package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

type predictProbaRequest struct {
	Instances [][]float64 `json:"instances"`
}

type predictProbaResponse struct {
	Probabilities [][]float64 `json:"probabilities"`
}

// RemoteClassifier delegates to a model server exposing POST /predict_proba.
type RemoteClassifier struct {
	baseURL     string
	apiKey      string
	numFeatures int
	httpClient  *http.Client
	logger      *logrus.Logger
}

func NewRemoteClassifier(baseURL, apiKey string, timeout time.Duration, logger *logrus.Logger) *RemoteClassifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &RemoteClassifier{
		baseURL:     strings.TrimRight(baseURL, "/"),
		apiKey:      apiKey,
		numFeatures: len(FeatureNames),
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

func (c *RemoteClassifier) NumFeatures() int {
	return c.numFeatures
}

func (c *RemoteClassifier) Format() string {
	return FormatRemote
}

func (c *RemoteClassifier) PredictProba(ctx context.Context, x []float64) ([]float64, error) {
	var response predictProbaResponse
	if err := c.makeRequest(ctx, http.MethodPost, "/predict_proba", predictProbaRequest{Instances: [][]float64{x}}, &response); err != nil {
		return nil, err
	}

	if len(response.Probabilities) != 1 {
		return nil, fmt.Errorf("expected probabilities for 1 instance, got %d", len(response.Probabilities))
	}
	return response.Probabilities[0], nil
}

func (c *RemoteClassifier) makeRequest(ctx context.Context, method, endpoint string, payload interface{}, result interface{}) error {
	url := c.baseURL + endpoint

	var body io.Reader
	if payload != nil {
		jsonData, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("failed to marshal payload: %w", err)
		}
		body = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	responseBody, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}

	c.logger.WithFields(logrus.Fields{
		"status_code":   resp.StatusCode,
		"method":        method,
		"url":           url,
		"response_size": len(responseBody),
		"duration":      time.Since(start).String(),
	}).Debug("Model server response received")

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("model server returned status %d: %s", resp.StatusCode, string(responseBody))
	}

	if result != nil {
		if err := json.Unmarshal(responseBody, result); err != nil {
			return fmt.Errorf("failed to unmarshal response: %w", err)
		}
	}

	return nil
}
