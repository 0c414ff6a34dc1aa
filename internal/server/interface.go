package server

import (
	"context"

	"github.com/utcc/social-mentions/internal/backend"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/monitoring"
	"github.com/utcc/social-mentions/internal/overrides"
	"github.com/utcc/social-mentions/internal/query"
)

// Dashboard is the batch-owning view behind the mentions endpoints
type Dashboard interface {
	Reload(ctx context.Context) error
	Status() monitoring.Status
	Query(c query.Criteria, page, pageSize int) (query.Result, error)
	Export(c query.Criteria, page, pageSize int, scope monitoring.Scope) ([]byte, string, error)
	ArchiveExport(ctx context.Context, c query.Criteria, page, pageSize int, scope monitoring.Scope) (string, error)
	ArchivedExports(ctx context.Context, prefix string) ([]string, error)
	ArchivedExport(ctx context.Context, name string) ([]byte, error)
	DeleteArchivedExport(ctx context.Context, name string) error
	Get(id string) (models.Mention, error)
	OverrideSentiment(ctx context.Context, id, sentiment string) (overrides.Edit, bool, error)
	History(id string) ([]overrides.Edit, error)
	Categories() []string
	GetMetrics() string
	RunDigest(ctx context.Context) (*models.Report, error)
}

// Backend is the part of the analysis backend proxied as-is
type Backend interface {
	backend.SettingsStore
	backend.Alerts
	backend.Dictionary
	GetTweetDates(ctx context.Context) ([]string, error)
}

var (
	_ Dashboard = (*monitoring.Service)(nil)
	_ Backend   = (*backend.Client)(nil)
)
