// Package gemini wraps the Google Gemini generateContent endpoint used to answer
// dermatology questions about text and images.
package gemini

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/metrics"
	"google.golang.org/genai"
)

// DefaultModel is the model used when none is configured
const DefaultModel = "gemini-2.0-flash"

// ErrNoCandidates is returned when the provider answered successfully but produced no candidate content
var ErrNoCandidates = errors.New("gemini response contained no candidates")

// StatusError reports a provider response with a non-success HTTP status
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("gemini API returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("gemini API returned status %d: %s", e.StatusCode, e.Message)
}

// Image is inline image data attached to a prompt
type Image struct {
	Data     []byte
	MIMEType string
}

// Config holds the settings needed to reach the Gemini API
type Config struct {
	APIKey     string
	Model      string
	BaseURL    string // empty uses the SDK default endpoint
	APIVersion string // empty uses the SDK default (v1beta)
	Timeout    time.Duration
	HTTPClient *http.Client
}

// Client sends single-turn generateContent requests. It holds no per-request state
// and is safe for concurrent use.
type Client struct {
	genaiClient *genai.Client
	model       string
	timeout     time.Duration
}

// NewClient creates a Gemini client for the Gemini API backend
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("gemini API key is required")
	}

	model := cfg.Model
	if model == "" {
		model = DefaultModel
	}

	clientConfig := &genai.ClientConfig{
		APIKey:     cfg.APIKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: cfg.HTTPClient,
		HTTPOptions: genai.HTTPOptions{
			BaseURL:    cfg.BaseURL,
			APIVersion: cfg.APIVersion,
		},
	}

	gi, err := genai.NewClient(ctx, clientConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create genai client: %w", err)
	}

	logging.Info("Gemini client initialized", "model", model, "custom_base_url", cfg.BaseURL != "")

	return &Client{
		genaiClient: gi,
		model:       model,
		timeout:     cfg.Timeout,
	}, nil
}

// Model returns the configured model name
func (c *Client) Model() string {
	return c.model
}

// Generate sends the prompt, plus the image when given, as the parts of one user content item
// and returns the text of the first part of the first candidate. The call is made once;
// there is no retry.
func (c *Client) Generate(ctx context.Context, prompt string, image *Image) (string, error) {
	kind := "text"
	parts := []*genai.Part{genai.NewPartFromText(prompt)}
	if image != nil {
		kind = "image"
		parts = append(parts, genai.NewPartFromBytes(image.Data, image.MIMEType))
	}
	contents := []*genai.Content{genai.NewContentFromParts(parts, genai.RoleUser)}

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := c.genaiClient.Models.GenerateContent(ctx, c.model, contents, nil)
	metrics.GeminiRequestDuration.WithLabelValues(kind).Observe(time.Since(start).Seconds())

	if err != nil {
		if statusErr, ok := statusFromError(err); ok {
			metrics.GeminiRequestsTotal.WithLabelValues(kind, metrics.OutcomeStatusError).Inc()
			logging.Warn("Gemini API returned an error status", "kind", kind, "status_code", statusErr.StatusCode, "error", statusErr.Message)
			return "", statusErr
		}
		metrics.GeminiRequestsTotal.WithLabelValues(kind, metrics.OutcomeError).Inc()
		logging.Error("Gemini API call failed", "kind", kind, "error", err)
		return "", fmt.Errorf("gemini API call failed: %w", err)
	}

	text, ok := firstCandidateText(resp)
	if !ok {
		metrics.GeminiRequestsTotal.WithLabelValues(kind, metrics.OutcomeEmpty).Inc()
		logging.Warn("Gemini response missing candidates", "kind", kind)
		return "", ErrNoCandidates
	}

	metrics.GeminiRequestsTotal.WithLabelValues(kind, metrics.OutcomeSuccess).Inc()
	logging.Debug("Gemini response received", "kind", kind, "duration_ms", time.Since(start).Milliseconds(), "chars", len(text))
	return text, nil
}

func firstCandidateText(resp *genai.GenerateContentResponse) (string, bool) {
	if resp == nil || len(resp.Candidates) == 0 {
		return "", false
	}

	candidate := resp.Candidates[0]
	if candidate == nil || candidate.Content == nil || len(candidate.Content.Parts) == 0 || candidate.Content.Parts[0] == nil {
		return "", false
	}

	return candidate.Content.Parts[0].Text, true
}

// statusFromError walks the wrap chain looking for the SDK's APIError, which carries the
// provider's HTTP status. The SDK has returned it both by value and by pointer.
func statusFromError(err error) (*StatusError, bool) {
	for e := err; e != nil; e = errors.Unwrap(e) {
		switch apiErr := any(e).(type) {
		case genai.APIError:
			return &StatusError{StatusCode: apiErr.Code, Message: apiErr.Message}, true
		case *genai.APIError:
			if apiErr != nil {
				return &StatusError{StatusCode: apiErr.Code, Message: apiErr.Message}, true
			}
		}
	}
	return nil, false
}
