// Package validation checks the medicine catalog at startup and user input on every request.
package validation

import (
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/giygas/dermacare-api/interfaces"
	"github.com/giygas/dermacare-api/logging"
	"github.com/go-playground/validator/v10"
)

// conditionRegex matches catalog keys such as "fungal_infection"
var conditionRegex = regexp.MustCompile(`^[a-zA-Z][a-zA-Z0-9_-]*$`)

// maxConditionLength bounds the path segment accepted by the medicines lookup
const maxConditionLength = 64

// ChatRequest is the JSON body of a chat request
type ChatRequest struct {
	Message string `json:"message" validate:"required"`
}

// DataValidatorImpl implements the interfaces.DataValidator interface
type DataValidatorImpl struct {
	validate *validator.Validate
}

// NewDataValidator creates a new data validator
func NewDataValidator() interfaces.DataValidator {
	return &DataValidatorImpl{validate: validator.New(validator.WithRequiredStructEnabled())}
}

// ValidateCatalog checks that keys are unique well-formed names, that the default condition
// exists and that every medicine record is complete.
func (v *DataValidatorImpl) ValidateCatalog(catalog interfaces.MedicineCatalog) error {
	if catalog == nil {
		return fmt.Errorf("catalog is nil")
	}

	conditions := catalog.Conditions()
	if len(conditions) == 0 {
		return fmt.Errorf("catalog has no conditions")
	}

	seen := make(map[string]bool, len(conditions))
	var errs []error

	for i := range conditions {
		cond := &conditions[i]

		if err := v.ValidateCondition(cond.Key); err != nil {
			errs = append(errs, fmt.Errorf("condition %d: %w", i, err))
		}
		if seen[cond.Key] {
			errs = append(errs, fmt.Errorf("duplicate condition key %q", cond.Key))
		}
		seen[cond.Key] = true

		if err := v.validate.Struct(cond); err != nil {
			errs = append(errs, fmt.Errorf("condition %q: %w", cond.Key, err))
		}
	}

	if !seen[catalog.DefaultCondition()] {
		errs = append(errs, fmt.Errorf("default condition %q is not in the catalog", catalog.DefaultCondition()))
	}

	if len(errs) > 0 {
		logging.Error("Medicine catalog validation failed", "errors", len(errs))
		return errors.Join(errs...)
	}

	return nil
}

// ValidateChatMessage rejects an empty chat message
func (v *DataValidatorImpl) ValidateChatMessage(message string) error {
	return v.validate.Struct(ChatRequest{Message: message})
}

// ValidateCondition validates a condition key or lookup path segment
func (v *DataValidatorImpl) ValidateCondition(condition string) error {
	if strings.TrimSpace(condition) == "" {
		return fmt.Errorf("condition cannot be empty")
	}

	if len(condition) > maxConditionLength {
		return fmt.Errorf("condition too long: maximum %d characters", maxConditionLength)
	}

	if !conditionRegex.MatchString(condition) {
		return fmt.Errorf("condition contains invalid characters. Only letters, numbers, underscores and hyphens are allowed")
	}

	return nil
}
