package overrides

import (
	"context"

	"github.com/utcc/social-mentions/internal/models"
)

// Persister writes a sentiment override back to the backend
type Persister interface {
	UpdateSentiment(ctx context.Context, recordID string, sentiment models.Sentiment) error
}

// Journal is an append-only log of applied edits
type Journal interface {
	Append(edit Edit) error
	Load() ([]Edit, error)
}
