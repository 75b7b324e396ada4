package model

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"triagecast/internal/forecast"
)

// Client talks to the serving endpoint hosting the trained referral
// models. One Client covers every registered model; a scorer is bound to
// a single registry path.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Predictor returns a forecast.Predictor bound to the given registry path.
func (c *Client) Predictor(path string) forecast.Predictor {
	return &scorer{client: c, modelPath: path}
}

type scorer struct {
	client    *Client
	modelPath string
}

type scoreRequest struct {
	ModelPath   string    `json:"model_path"`
	Window      []int     `json:"window"`
	DateFeature []float64 `json:"date_feature"`
}

type scoreResponse struct {
	Prediction []float64 `json:"prediction"`
}

func (s *scorer) Predict(ctx context.Context, window []int, feature []float64) ([]float64, error) {
	payload, err := json.Marshal(scoreRequest{
		ModelPath:   s.modelPath,
		Window:      window,
		DateFeature: feature,
	})
	if err != nil {
		return nil, fmt.Errorf("encoding score request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.client.baseURL+"/v1/score", bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("building score request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("calling model server: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("model server returned %s for %s", resp.Status, s.modelPath)
	}

	var out scoreResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decoding model response: %w", err)
	}
	if len(out.Prediction) == 0 {
		return nil, fmt.Errorf("model server returned an empty prediction for %s", s.modelPath)
	}
	return out.Prediction, nil
}
