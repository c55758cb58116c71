package embed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// Ollama client defaults.
const (
	DefaultBaseURL = "http://localhost:11434"
	DefaultModel   = "all-minilm"
	DefaultTimeout = 30 * time.Second
)

// OllamaConfig configures an OllamaClient.
type OllamaConfig struct {
	// BaseURL is the Ollama server address. Defaults to DefaultBaseURL.
	BaseURL string
	// Model is the embedding model name. Defaults to DefaultModel.
	Model string
	// Timeout bounds each HTTP request. Defaults to DefaultTimeout.
	Timeout time.Duration
	// Dimensions, when non-zero, is validated against the dimension the
	// model actually produces. Zero means discover at load time.
	Dimensions int
	// RequestsPerSecond throttles requests to the server. Zero disables
	// throttling.
	RequestsPerSecond float64
	// Burst is the rate limiter burst size. Defaults to 1 when throttling
	// is enabled.
	Burst int
}

// OllamaClient produces embeddings via a local Ollama server. It implements
// the Client interface.
type OllamaClient struct {
	baseURL    string
	model      string
	expectDim  int
	httpClient *http.Client
	limiter    *rate.Limiter
}

// NewOllamaClient creates a client for the given server and model.
func NewOllamaClient(cfg OllamaConfig) *OllamaClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	var limiter *rate.Limiter
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}

	return &OllamaClient{
		baseURL:    cfg.BaseURL,
		model:      cfg.Model,
		expectDim:  cfg.Dimensions,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		limiter:    limiter,
	}
}

// Model returns the embedding model name.
func (c *OllamaClient) Model() string {
	return c.model
}

// Load verifies the server is reachable and discovers the embedding
// dimension with a probe request. A configured dimension that disagrees
// with the probe is an error.
func (c *OllamaClient) Load(ctx context.Context) (int, error) {
	if err := c.ping(ctx); err != nil {
		return 0, err
	}

	probe, err := c.Embed(ctx, []string{"dimension probe"})
	if err != nil {
		return 0, fmt.Errorf("probe embedding: %w", err)
	}
	if len(probe) == 0 || len(probe[0]) == 0 {
		return 0, fmt.Errorf("model %q returned an empty probe embedding", c.model)
	}

	dim := len(probe[0])
	if c.expectDim > 0 && dim != c.expectDim {
		return 0, fmt.Errorf("model %q produces %d-dimension embeddings, configured for %d", c.model, dim, c.expectDim)
	}
	return dim, nil
}

type ollamaEmbedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type ollamaEmbedResponse struct {
	Model      string      `json:"model"`
	Embeddings [][]float32 `json:"embeddings"`
}

// Embed requests embeddings for texts in a single call. The server returns
// one vector per input, in input order.
func (c *OllamaClient) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("rate limit wait: %w", err)
		}
	}

	body, err := json.Marshal(ollamaEmbedRequest{Model: c.model, Input: texts})
	if err != nil {
		return nil, fmt.Errorf("marshal embed request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/embed", bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create embed request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("embed request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("embed request failed with status %d: %s", resp.StatusCode, string(detail))
	}

	var embedResp ollamaEmbedResponse
	if err := json.NewDecoder(resp.Body).Decode(&embedResp); err != nil {
		return nil, fmt.Errorf("decode embed response: %w", err)
	}
	if len(embedResp.Embeddings) != len(texts) {
		return nil, fmt.Errorf("server returned %d embeddings for %d inputs", len(embedResp.Embeddings), len(texts))
	}
	return embedResp.Embeddings, nil
}

// ping checks server reachability via the tags endpoint.
func (c *OllamaClient) ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return fmt.Errorf("create ping request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama server unreachable at %s: %w", c.baseURL, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("ollama server at %s returned status %d", c.baseURL, resp.StatusCode)
	}
	return nil
}
