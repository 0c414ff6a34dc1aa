package backend

import (
	"context"

	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/overrides"
)

// RecordSource supplies batches of raw analysis records
type RecordSource interface {
	FetchAnalysisRecords(ctx context.Context, hints Hints) ([]models.RawRecord, error)
}

// SettingsStore reads and writes the dashboard settings document
type SettingsStore interface {
	GetSettings(ctx context.Context) (models.Settings, error)
	UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error)
}

// Alerts triggers backend-side alert delivery
type Alerts interface {
	ScanAlerts(ctx context.Context) (map[string]interface{}, error)
	SendTestMail(ctx context.Context) (map[string]interface{}, error)
}

// Dictionary manages the sentiment keyword dictionary
type Dictionary interface {
	ListKeywords(ctx context.Context) ([]models.KeywordEntry, error)
	CreateKeyword(ctx context.Context, entry models.KeywordEntry) (models.KeywordEntry, error)
	UpdateKeyword(ctx context.Context, id int64, entry models.KeywordEntry) (models.KeywordEntry, error)
	DeleteKeyword(ctx context.Context, id int64) error
}

// API is everything the analysis backend offers
type API interface {
	RecordSource
	SettingsStore
	Alerts
	Dictionary
	overrides.Persister
	GetTweetDates(ctx context.Context) ([]string, error)
}
