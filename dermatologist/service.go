// Package dermatologist turns patient questions into model prompts and model failures into
// the replies shown to the patient. Neither operation returns an error: every upstream
// problem becomes a readable sentence in the response body.
package dermatologist

import (
	"context"
	"errors"
	"fmt"

	"github.com/giygas/dermacare-api/gemini"
	"github.com/giygas/dermacare-api/interfaces"
	"github.com/giygas/dermacare-api/logging"
	"github.com/giygas/dermacare-api/relevance"
)

// Compile-time check to ensure Service implements the Analyzer interface
var _ interfaces.Analyzer = (*Service)(nil)

// Replies used when the model cannot answer
const (
	ImageNoCandidatesReply = "Sorry, I couldn't analyze the image. Please try uploading a clearer image of the skin condition."
	ChatNoCandidatesReply  = "I apologize, but I'm having trouble processing your question. Please rephrase your dermatology-related query."
	ChatStatusErrorReply   = "I'm experiencing technical difficulties. Please try again later."
	ChatFailureReply       = "I'm currently unable to process your request. Please try again later."
)

// Service answers image and chat questions through a Generator
type Service struct {
	generator interfaces.Generator
}

// NewService creates a dermatologist service backed by the given generator
func NewService(generator interfaces.Generator) *Service {
	return &Service{generator: generator}
}

// AnalyzeImage asks the model about an uploaded photograph. Provider errors are reported with
// their status code, other failures with their description.
func (s *Service) AnalyzeImage(ctx context.Context, image gemini.Image, query string) string {
	text, err := s.generator.Generate(ctx, ImagePrompt(query), &image)
	if err == nil {
		return text
	}

	var statusErr *gemini.StatusError
	switch {
	case errors.Is(err, gemini.ErrNoCandidates):
		return ImageNoCandidatesReply
	case errors.As(err, &statusErr):
		return fmt.Sprintf("Error analyzing image: %d", statusErr.StatusCode)
	default:
		logging.Error("Image analysis failed", "error", err)
		return fmt.Sprintf("Error processing image: %s", err)
	}
}

// Chat answers a text question. Failures map to fixed replies that do not expose any detail.
// Off-topic messages are still forwarded; the model is told to redirect them.
func (s *Service) Chat(ctx context.Context, message string) string {
	if !relevance.IsDermatologyRelated(message) {
		logging.Debug("Chat message has no dermatology keywords", "length", len(message))
	}

	text, err := s.generator.Generate(ctx, ChatPrompt(message), nil)
	if err == nil {
		return text
	}

	var statusErr *gemini.StatusError
	switch {
	case errors.Is(err, gemini.ErrNoCandidates):
		return ChatNoCandidatesReply
	case errors.As(err, &statusErr):
		return ChatStatusErrorReply
	default:
		logging.Error("Chat request failed", "error", err)
		return ChatFailureReply
	}
}
