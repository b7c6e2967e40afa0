// Package planthealth identifies plant diseases in leaf images through the
// Hugging Face inference API.
package planthealth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"sort"
	"strings"
	"time"
)

const (
	DefaultBaseURL = "https://api-inference.huggingface.co/models"
	DefaultModel   = "linkanjarad/mobilenet_v2_1.0_224-plant-disease-identification"

	// MaxImageBytes caps the downloaded image
	MaxImageBytes = 10 << 20
)

// ErrMissingToken is returned when no inference token is configured
var ErrMissingToken = errors.New("plant health inference token is not configured")

// Prediction is one label scored by the model
type Prediction struct {
	Label             string  `json:"label"`
	Score             float64 `json:"score"`
	ConfidencePercent float64 `json:"confidence_percent"`
}

// Result holds every prediction, best first
type Result struct {
	ImageURL    string       `json:"image_url"`
	Predictions []Prediction `json:"predictions"`
	Top         Prediction   `json:"top"`
}

// Options configures a Client
type Options struct {
	BaseURL    string
	Model      string
	Token      string
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client calls the inference API
type Client struct {
	httpClient *http.Client
	endpoint   string
	token      string
}

// NewClient creates a classifier client
func NewClient(opts Options) (*Client, error) {
	if opts.Token == "" {
		return nil, ErrMissingToken
	}
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.Model == "" {
		opts.Model = DefaultModel
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		httpClient: httpClient,
		endpoint:   strings.TrimRight(opts.BaseURL, "/") + "/" + opts.Model,
		token:      opts.Token,
	}, nil
}

// Classify downloads the image and returns the model's predictions
func (c *Client) Classify(ctx context.Context, imageURL string) (*Result, error) {
	image, err := c.fetchImage(ctx, imageURL)
	if err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(image))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/octet-stream")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("inference request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read inference response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("inference API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var predictions []Prediction
	if err := json.Unmarshal(body, &predictions); err != nil {
		return nil, fmt.Errorf("decode inference response: %w", err)
	}
	return newResult(imageURL, predictions)
}

func (c *Client) fetchImage(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("invalid image url: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("could not load image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("could not load image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("could not load image: %w", err)
	}
	if len(data) > MaxImageBytes {
		return nil, fmt.Errorf("image exceeds %d bytes", MaxImageBytes)
	}
	if len(data) == 0 {
		return nil, errors.New("image is empty")
	}
	return data, nil
}

func newResult(imageURL string, predictions []Prediction) (*Result, error) {
	if len(predictions) == 0 {
		return nil, errors.New("model returned no predictions")
	}
	sort.SliceStable(predictions, func(i, j int) bool {
		return predictions[i].Score > predictions[j].Score
	})
	for i := range predictions {
		predictions[i].ConfidencePercent = RoundPercent(predictions[i].Score)
	}
	return &Result{ImageURL: imageURL, Predictions: predictions, Top: predictions[0]}, nil
}

// RoundPercent converts a 0-1 score to a percentage with two decimals
func RoundPercent(score float64) float64 {
	return math.Round(score*100*100) / 100
}
