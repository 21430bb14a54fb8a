// Package interfaces defines core abstractions for the dermacare API
// to improve testability, maintainability, and separation of concerns.
package interfaces

import (
	"context"
	"net/http"
	"time"

	"github.com/giygas/dermacare-api/catalog/entities"
	"github.com/giygas/dermacare-api/gemini"
)

// MedicineCatalog defines the contract for the read-only medicine lookup table.
// Implementations must be safe for concurrent reads and never hand out their
// internal slices.
type MedicineCatalog interface {
	// Recommend returns the medicines of the first condition key found in the text,
	// or those of the default condition
	Recommend(text string) []entities.MedicineRecord

	// LookupByExactKey returns the medicines for a key, empty when unknown
	LookupByExactKey(condition string) []entities.MedicineRecord

	Keys() []string
	DefaultCondition() string
	Conditions() []entities.Condition
	Len() int
}

// Generator defines the contract for the generative model backend.
// A nil image sends a text-only prompt.
type Generator interface {
	Generate(ctx context.Context, prompt string, image *gemini.Image) (string, error)
}

// Analyzer defines the dermatology assistant operations. Both methods always
// return user-facing text, mapping provider failures to fallback messages.
type Analyzer interface {
	AnalyzeImage(ctx context.Context, image gemini.Image, query string) string
	Chat(ctx context.Context, message string) string
}

// UploadSweeper removes upload files older than maxAge and reports how many were removed.
type UploadSweeper interface {
	Sweep(maxAge time.Duration) (int, error)
}

// Scheduler defines the contract for background jobs.
type Scheduler interface {
	// Lifecycle management
	Start() error
	Stop()

	// LastRun returns when the job last completed, zero before the first run
	LastRun() time.Time
}

// HTTPHandler defines the contract for HTTP request handlers.
// It provides a consistent interface for all API endpoints.
type HTTPHandler interface {
	Home(w http.ResponseWriter, r *http.Request)
	UploadImage(w http.ResponseWriter, r *http.Request)
	Chat(w http.ResponseWriter, r *http.Request)
	GetMedicines(w http.ResponseWriter, r *http.Request)
	// This will stay in all versions
	HealthCheck(w http.ResponseWriter, r *http.Request)
}

// HealthChecker defines the contract for health check functionality.
// It provides system health monitoring and reporting.
type HealthChecker interface {
	// HealthCheck returns current system health status and the HTTP code to report it with
	HealthCheck() (status string, details map[string]any, httpStatus int)
}

// DataValidator defines the contract for validation of the catalog and user input.
type DataValidator interface {
	// ValidateCatalog checks every condition and medicine record of the catalog
	ValidateCatalog(catalog MedicineCatalog) error

	// ValidateChatMessage checks a chat message submitted by a user
	ValidateChatMessage(message string) error

	// ValidateCondition checks a condition path segment
	ValidateCondition(condition string) error
}
