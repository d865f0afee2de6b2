package ports

import (
	"context"

	"hdmed/domain/mediation"
)

// CohortSpec maps raw tabular columns onto the estimator's input roles.
// Columns whose header carries MediatorPrefix become mediators, those with
// ConfounderPrefix become confounders; everything else is ignored.
type CohortSpec struct {
	OutcomeColumn    string
	ExposureColumn   string
	MediatorPrefix   string
	ConfounderPrefix string
}

// CohortReader builds an estimation dataset from an external tabular source
type CohortReader interface {
	Read(ctx context.Context, spec CohortSpec) (*mediation.Dataset, error)
}
