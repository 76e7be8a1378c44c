package common

import (
	"github.com/google/uuid"
)

// NewRunID generates a unique ingest/reconcile run identifier with the
// "run_" prefix. Used as the correlation id for all log lines of one run.
// Format: run_<uuid>
func NewRunID() string {
	return "run_" + uuid.New().String()
}
