package inference

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"fetalscan/internal/config"
	"fetalscan/internal/domain"
)

// maxErrorBody caps how much of a failed response ends up in the error text.
const maxErrorBody = 2048

type Encoder interface {
	EncodeBase64(inputPath string) (string, error)
}

// Client talks to a hosted classification endpoint that takes a base64
// image body and answers with predictions keyed by class name.
type Client struct {
	apiURL  string
	apiKey  string
	encoder Encoder
	httpc   *http.Client
	log     *zap.Logger
}

func NewClient(cfg *config.InferenceConfig, encoder Encoder, log *zap.Logger) *Client {
	return &Client{
		apiURL:  strings.TrimRight(cfg.APIURL, "/"),
		apiKey:  cfg.APIKey,
		encoder: encoder,
		httpc: &http.Client{
			Timeout: cfg.Timeout,
		},
		log: log,
	}
}

func (c *Client) Infer(ctx context.Context, imagePath, modelID string) (*domain.InferenceResponse, error) {
	payload, err := c.encoder.EncodeBase64(imagePath)
	if err != nil {
		return nil, fmt.Errorf("prepare image: %w", err)
	}

	endpoint := c.apiURL + "/" + strings.Trim(modelID, "/") + "?" + url.Values{"api_key": {c.apiKey}}.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	start := time.Now()
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", redactKey(err, c.apiKey))
	}
	defer resp.Body.Close()

	c.log.Debug("Inference response received",
		zap.String("model_id", modelID),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("inference service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var out domain.InferenceResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	return &out, nil
}

// redactKey keeps the credential out of url.Error messages, which quote the full URL.
func redactKey(err error, key string) error {
	if key == "" || !strings.Contains(err.Error(), key) {
		return err
	}
	return &redactedError{msg: strings.ReplaceAll(err.Error(), key, "REDACTED"), err: err}
}

type redactedError struct {
	msg string
	err error
}

func (e *redactedError) Error() string { return e.msg }

func (e *redactedError) Unwrap() error { return e.err }
