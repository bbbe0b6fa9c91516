// Package validation checks monitored group definitions.
package validation

import (
	"fmt"
	"strings"

	"github.com/bcnelson/roster-monitor/internal/domain"
)

// ValidationError represents a validation error for a specific field.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors.
type ValidationErrors []*ValidationError

// Error implements the error interface.
func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return ""
	}
	if len(e) == 1 {
		return e[0].Error()
	}
	return fmt.Sprintf("%s (and %d more errors)", e[0].Error(), len(e)-1)
}

// Add adds a validation error to the collection.
func (e *ValidationErrors) Add(field, value, message string) {
	*e = append(*e, &ValidationError{Field: field, Value: value, Message: message})
}

// HasErrors returns true if there are any validation errors.
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// ValidateGroupID checks that a group id is usable as a store key.
// Ids key file names, so path separators and dot segments are rejected.
func ValidateGroupID(id string) error {
	switch {
	case id == "":
		return fmt.Errorf("group id must not be empty")
	case id == "." || id == "..":
		return fmt.Errorf("group id must not be a dot segment")
	case strings.ContainsAny(id, `/\`):
		return fmt.Errorf("group id must not contain path separators")
	case strings.TrimSpace(id) != id:
		return fmt.Errorf("group id must not have surrounding whitespace")
	}
	return nil
}

// ValidateGroups checks every group and reports duplicate ids.
func ValidateGroups(groups []domain.Group) ValidationErrors {
	var errs ValidationErrors
	if len(groups) == 0 {
		errs.Add("groups", "", "at least one group must be configured")
		return errs
	}

	seen := make(map[string]bool, len(groups))
	for i, g := range groups {
		field := fmt.Sprintf("groups[%d].id", i)
		if err := ValidateGroupID(g.ID); err != nil {
			errs.Add(field, g.ID, err.Error())
			continue
		}
		if seen[g.ID] {
			errs.Add(field, g.ID, "duplicate group id")
			continue
		}
		seen[g.ID] = true
	}
	return errs
}
