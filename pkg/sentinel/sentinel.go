package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) so services can translate them into domain errors.
//
// These represent factual states about resources, not validation failures.
// For validation errors (bad input, missing fields), use pkg/domain-errors.
var (
	// ErrNotFound reports that an entity does not exist in the store.
	ErrNotFound = errors.New("not found")
)
