package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally wrapped)
// and services translate them into domain errors. Aggregate rule violations
// come back from the store's validate callback already carrying a domain code.
var (
	ErrNotFound = errors.New("not found")
)
