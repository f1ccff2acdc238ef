package hf

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/menta2k/emotion-detector/pkg/client"
	"github.com/menta2k/emotion-detector/pkg/types"
)

// DefaultBaseURL is the Hugging Face serverless inference endpoint
const DefaultBaseURL = "https://api-inference.huggingface.co"

// DefaultModel is the pretrained 7-label English emotion classifier
const DefaultModel = "j-hartmann/emotion-english-distilroberta-base"

// Client calls a text-classification pipeline served over HTTP
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

type classifyRequest struct {
	Inputs     string         `json:"inputs"`
	Parameters map[string]any `json:"parameters,omitempty"`
}

type labelScore struct {
	Label string  `json:"label"`
	Score float64 `json:"score"`
}

// NewClient creates a new inference client. token may be empty for local servers.
func NewClient(baseURL, token string, timeout time.Duration) (*Client, error) {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(baseURL, "http://") && !strings.HasPrefix(baseURL, "https://") {
		return nil, fmt.Errorf("invalid URL: %s", baseURL)
	}
	if timeout <= 0 {
		timeout = 60 * time.Second
	}

	return &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		token:      token,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

var _ client.TextClassifier = (*Client)(nil)

// ClassifyText implements client.TextClassifier. The prompt is ignored.
func (c *Client) ClassifyText(ctx context.Context, model, _, text string) ([]types.EmotionScore, error) {
	if model == "" {
		model = DefaultModel
	}

	body, err := json.Marshal(classifyRequest{
		Inputs:     text,
		Parameters: map[string]any{"top_k": len(types.TextEmotions)},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/models/"+model, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("classifier %s: %s", resp.Status, string(data))
	}

	pairs, err := decodeScores(data)
	if err != nil {
		return nil, err
	}

	scores := client.Scores(pairs)
	if len(scores) == 0 {
		return nil, fmt.Errorf("classifier returned no known emotion labels")
	}
	return scores, nil
}

// decodeScores accepts both the batched [[...]] and flat [...] response shapes
func decodeScores(data []byte) (map[string]float64, error) {
	var batched [][]labelScore
	if err := json.Unmarshal(data, &batched); err == nil {
		if len(batched) == 0 {
			return nil, fmt.Errorf("empty classifier response")
		}
		return toMap(batched[0]), nil
	}

	var flat []labelScore
	if err := json.Unmarshal(data, &flat); err != nil {
		return nil, fmt.Errorf("classifier decode: %w", err)
	}
	return toMap(flat), nil
}

func toMap(in []labelScore) map[string]float64 {
	out := make(map[string]float64, len(in))
	for _, s := range in {
		out[s.Label] = s.Score
	}
	return out
}
