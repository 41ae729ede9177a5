package domain

import "errors"

// Recoverable failures of the list page layer. Callers test for them with errors.Is.
var (
	// ErrSourceUnavailable means no searchable index serves the entity type and bundle.
	// Listings degrade to an empty result.
	ErrSourceUnavailable = errors.New("list source unavailable")

	// ErrFieldUnresolved means a facet is not bound to a field of the current bundle.
	// The filter is skipped.
	ErrFieldUnresolved = errors.New("facet field unresolved")

	// ErrInvalidSubmittedValue means one submitted filter value could not be normalized.
	// Only that value is rejected.
	ErrInvalidSubmittedValue = errors.New("invalid submitted filter value")

	// ErrConfigurationIncomplete means the entity type or bundle was not selected.
	// The configuration is not persisted.
	ErrConfigurationIncomplete = errors.New("list page configuration incomplete")

	// ErrConfigurationNotFound is returned by the repository for unknown owners.
	ErrConfigurationNotFound = errors.New("list page configuration not found")
)
