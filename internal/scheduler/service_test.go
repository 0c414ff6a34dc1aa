package scheduler

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/models"
)

// MockJobs is a mock implementation of the scheduled jobs
type MockJobs struct {
	mock.Mock
}

func (m *MockJobs) Reload(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

func (m *MockJobs) RunDigest(ctx context.Context) (*models.Report, error) {
	args := m.Called(ctx)
	report, _ := args.Get(0).(*models.Report)
	return report, args.Error(1)
}

func TestDigestExpression(t *testing.T) {
	assert.Equal(t, "0 0 9 * * *", DigestExpression("daily"))
	assert.Equal(t, "0 0 9 * * MON", DigestExpression("weekly"))
	assert.Equal(t, "0 0 9 * * MON", DigestExpression(""))
}

func TestService_StartRegistersJobs(t *testing.T) {
	cfg := &config.Config{ReportSchedule: "daily", ReloadSchedule: "0 */15 * * * *", TimeZone: "Asia/Bangkok"}
	s := NewService(cfg, &MockJobs{})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 2, s.Entries())
}

func TestService_ReloadDisabled(t *testing.T) {
	cfg := &config.Config{ReportSchedule: "weekly", TimeZone: "Nowhere/Invalid"}
	s := NewService(cfg, &MockJobs{})

	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Equal(t, 1, s.Entries())
}

func TestService_InvalidReloadSchedule(t *testing.T) {
	cfg := &config.Config{ReportSchedule: "daily", ReloadSchedule: "every now and then"}
	s := NewService(cfg, &MockJobs{})

	assert.Error(t, s.Start())
}
