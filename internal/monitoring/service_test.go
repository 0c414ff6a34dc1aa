package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/utcc/social-mentions/internal/backend"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/overrides"
	"github.com/utcc/social-mentions/internal/query"
)

// fakeSource serves records through a replaceable fetch function
type fakeSource struct {
	fetch func(ctx context.Context) ([]models.RawRecord, error)
}

func (f *fakeSource) FetchAnalysisRecords(ctx context.Context, hints backend.Hints) ([]models.RawRecord, error) {
	return f.fetch(ctx)
}

func staticSource(records []models.RawRecord) *fakeSource {
	return &fakeSource{fetch: func(context.Context) ([]models.RawRecord, error) { return records, nil }}
}

// MockStorage is a mock implementation of the storage interface
type MockStorage struct {
	mock.Mock
}

func (m *MockStorage) Store(ctx context.Context, filename string, data []byte) error {
	args := m.Called(ctx, filename, data)
	return args.Error(0)
}

func (m *MockStorage) Retrieve(ctx context.Context, filename string) ([]byte, error) {
	args := m.Called(ctx, filename)
	return args.Get(0).([]byte), args.Error(1)
}

func (m *MockStorage) List(ctx context.Context, prefix string) ([]string, error) {
	args := m.Called(ctx, prefix)
	return args.Get(0).([]string), args.Error(1)
}

func (m *MockStorage) Delete(ctx context.Context, filename string) error {
	args := m.Called(ctx, filename)
	return args.Error(0)
}

// MockNotificationService is a mock implementation of the notification service
type MockNotificationService struct {
	mock.Mock
}

func (m *MockNotificationService) SendReport(report *models.Report) error {
	args := m.Called(report)
	return args.Error(0)
}

func (m *MockNotificationService) Enabled() bool {
	args := m.Called()
	return args.Bool(0)
}

// MockSettings is a mock implementation of the backend settings store
type MockSettings struct {
	mock.Mock
}

func (m *MockSettings) GetSettings(ctx context.Context) (models.Settings, error) {
	args := m.Called(ctx)
	return args.Get(0).(models.Settings), args.Error(1)
}

func (m *MockSettings) UpdateSettings(ctx context.Context, settings models.Settings) (models.Settings, error) {
	args := m.Called(ctx, settings)
	return args.Get(0).(models.Settings), args.Error(1)
}

func testConfig() *config.Config {
	return &config.Config{
		PageSize:          10,
		TopN:              5,
		KeywordTopN:       10,
		ReportSchedule:    "daily",
		NegativeThreshold: 20,
		EditorName:        "Demo Admin",
		ExportEmpty:       "placeholder",
		Categories:        []string{"LAW", "BUS"},
	}
}

func sampleRecords() []models.RawRecord {
	return []models.RawRecord{
		{"id": "1", "tweetId": "101", "faculty": "LAW", "sentimentLabel": "neg", "topics": []interface{}{"exam", "wifi"}, "analyzedAt": "2024-01-05T08:00:00Z", "text": "wifi down again"},
		{"id": "2", "tweetId": "102", "faculty": "BUS", "sentiment": "pos", "topics": "exam", "createdAt": "2024-01-04"},
		{"id": "3", "faculty": "ENG", "sentimentLabel": "neutral", "analyzedAt": "2024-01-05"},
		{"id": "4", "faculty": "LAW", "sentimentLabel": "negative", "analyzedAt": "2023-12-30", "text": "old complaint"},
	}
}

func fixedNow() time.Time {
	return time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
}

func newTestService(t *testing.T, source backend.RecordSource, settings backend.SettingsStore, store *MockStorage, notifier *MockNotificationService) *Service {
	t.Helper()
	var s *Service
	switch {
	case store != nil && notifier != nil:
		s = NewService(testConfig(), source, settings, store, notifier, nil)
	case store != nil:
		s = NewService(testConfig(), source, settings, store, nil, nil)
	case notifier != nil:
		s = NewService(testConfig(), source, settings, nil, notifier, nil)
	default:
		s = NewService(testConfig(), source, settings, nil, nil, nil)
	}
	s.now = fixedNow
	return s
}

func loadedService(t *testing.T) *Service {
	t.Helper()
	s := newTestService(t, staticSource(sampleRecords()), nil, nil, nil)
	require.NoError(t, s.Reload(context.Background()))
	return s
}

func TestService_Reload(t *testing.T) {
	s := loadedService(t)

	status := s.Status()
	assert.False(t, status.Loading)
	assert.Empty(t, status.Error)
	assert.Equal(t, 4, status.Count)
	assert.Equal(t, fixedNow(), status.LoadedAt)
	assert.Contains(t, s.GetMetrics(), `"total_mentions": 4`)
}

func TestService_ReloadFailureKeepsBatch(t *testing.T) {
	source := staticSource(sampleRecords())
	s := newTestService(t, source, nil, nil, nil)
	require.NoError(t, s.Reload(context.Background()))

	source.fetch = func(context.Context) ([]models.RawRecord, error) {
		return nil, errors.New("503 Service Unavailable")
	}
	err := s.Reload(context.Background())

	require.Error(t, err)
	status := s.Status()
	assert.Equal(t, "503 Service Unavailable", status.Error)
	assert.Equal(t, 4, status.Count)
	result, err := s.Query(query.Criteria{}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 4, result.TotalCount)
}

func TestService_NewerReloadSupersedesOlder(t *testing.T) {
	started := make(chan struct{})
	first := true
	source := &fakeSource{}
	source.fetch = func(ctx context.Context) ([]models.RawRecord, error) {
		if first {
			first = false
			close(started)
			<-ctx.Done()
			return sampleRecords(), nil
		}
		return sampleRecords()[:1], nil
	}
	s := newTestService(t, source, nil, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Reload(context.Background()) }()
	<-started
	assert.True(t, s.Status().Loading)

	require.NoError(t, s.Reload(context.Background()))
	assert.ErrorIs(t, <-done, ErrSuperseded)
	assert.Equal(t, 1, s.Status().Count)
}

func TestService_CloseDiscardsInFlightLoad(t *testing.T) {
	started := make(chan struct{})
	source := &fakeSource{fetch: func(ctx context.Context) ([]models.RawRecord, error) {
		close(started)
		<-ctx.Done()
		return nil, ctx.Err()
	}}
	s := newTestService(t, source, nil, nil, nil)

	done := make(chan error, 1)
	go func() { done <- s.Reload(context.Background()) }()
	<-started
	s.Close()

	assert.ErrorIs(t, <-done, ErrClosed)
	_, err := s.Query(query.Criteria{}, 1, 10)
	assert.ErrorIs(t, err, ErrClosed)
	assert.ErrorIs(t, s.Reload(context.Background()), ErrClosed)
}

func TestService_Query(t *testing.T) {
	s := loadedService(t)

	result, err := s.Query(query.Criteria{Category: "LAW"}, 1, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, 10, result.PageSize)
	assert.Equal(t, 2, result.Aggregates.Distribution.Negative)

	result, err = s.Query(query.Criteria{}, 2, 3)
	require.NoError(t, err)
	assert.Equal(t, 2, result.MaxPage)
	require.Len(t, result.PageItems, 1)
	assert.Equal(t, "4", result.PageItems[0].ID)
}

func TestService_OverrideSentiment(t *testing.T) {
	s := loadedService(t)
	ctx := context.Background()

	_, _, err := s.OverrideSentiment(ctx, "missing", "positive")
	assert.ErrorIs(t, err, ErrNotFound)

	_, _, err = s.OverrideSentiment(ctx, "1", "mixed")
	assert.ErrorIs(t, err, ErrInvalidSentiment)

	_, changed, err := s.OverrideSentiment(ctx, "1", "NEG")
	require.NoError(t, err)
	assert.False(t, changed, "already negative")

	edit, changed, err := s.OverrideSentiment(ctx, "1", "positive")
	require.NoError(t, err)
	assert.True(t, changed)
	assert.Equal(t, "negative", edit.OldValue)
	assert.Equal(t, "Demo Admin", edit.Editor)

	result, err := s.Query(query.Criteria{Sentiment: "positive"}, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, result.TotalCount)
	assert.Equal(t, models.Positive, result.PageItems[0].SentimentLabel)

	// overrides survive a reload of the same ids
	require.NoError(t, s.Reload(ctx))
	m, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, models.Positive, m.SentimentLabel)

	history, err := s.History("1")
	require.NoError(t, err)
	assert.Len(t, history, 1)
	_, err = s.History("missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

// slowPersister holds each write open briefly and records how many overlap
type slowPersister struct {
	mu       sync.Mutex
	inFlight int
	maxSeen  int
}

func (p *slowPersister) UpdateSentiment(ctx context.Context, recordID string, sentiment models.Sentiment) error {
	p.mu.Lock()
	p.inFlight++
	if p.inFlight > p.maxSeen {
		p.maxSeen = p.inFlight
	}
	p.mu.Unlock()

	time.Sleep(20 * time.Millisecond)

	p.mu.Lock()
	p.inFlight--
	p.mu.Unlock()
	return nil
}

func TestService_ConcurrentOverridesChainHistory(t *testing.T) {
	persister := &slowPersister{}
	s := NewService(testConfig(), staticSource(sampleRecords()), nil, nil, nil, overrides.NewStore(overrides.WithPersister(persister)))
	require.NoError(t, s.Reload(context.Background()))

	var wg sync.WaitGroup
	for _, to := range []string{"positive", "neutral"} {
		wg.Add(1)
		go func(to string) {
			defer wg.Done()
			_, changed, err := s.OverrideSentiment(context.Background(), "1", to)
			assert.NoError(t, err)
			assert.True(t, changed)
		}(to)
	}
	wg.Wait()

	assert.Equal(t, 1, persister.maxSeen, "writes of one record must not overlap")

	history, err := s.History("1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "negative", history[0].OldValue)
	assert.Equal(t, history[0].NewValue, history[1].OldValue)

	m, err := s.Get("1")
	require.NoError(t, err)
	assert.Equal(t, history[1].NewValue, string(m.SentimentLabel))

	var metrics Metrics
	require.NoError(t, json.Unmarshal([]byte(s.GetMetrics()), &metrics))
	assert.Equal(t, 1, metrics.SentimentBreakdown["negative"])
	total := 0
	for _, n := range metrics.SentimentBreakdown {
		assert.GreaterOrEqual(t, n, 0)
		total += n
	}
	assert.Equal(t, 4, total)
}

func TestService_OverrideSentimentRemoteFailure(t *testing.T) {
	persister := &failingPersister{err: errors.New("500 Internal Server Error")}
	s := NewService(testConfig(), staticSource(sampleRecords()), nil, nil, nil, overrides.NewStore(overrides.WithPersister(persister)))
	require.NoError(t, s.Reload(context.Background()))

	_, _, err := s.OverrideSentiment(context.Background(), "2", "negative")

	require.Error(t, err)
	m, _ := s.Get("2")
	assert.Equal(t, models.Positive, m.SentimentLabel)
}

type failingPersister struct {
	err error
}

func (f *failingPersister) UpdateSentiment(ctx context.Context, recordID string, sentiment models.Sentiment) error {
	return f.err
}

func TestService_Export(t *testing.T) {
	s := loadedService(t)

	data, filename, err := s.Export(query.Criteria{}, 1, 2, ScopePage)
	require.NoError(t, err)
	assert.Equal(t, "mentions_page_1.csv", filename)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	assert.Len(t, lines, 3)
	assert.True(t, strings.HasPrefix(lines[0], "id,tweetId,faculty,sentiment"))

	data, filename, err = s.Export(query.Criteria{}, 1, 2, ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, "mentions_all.csv", filename)
	assert.Len(t, strings.Split(strings.TrimSpace(string(data)), "\n"), 5)

	data, _, err = s.Export(query.Criteria{Category: "NONE"}, 1, 10, ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, "No data", string(data))

	s.config.ExportEmpty = "header"
	data, _, err = s.Export(query.Criteria{Category: "NONE"}, 1, 10, ScopeAll)
	require.NoError(t, err)
	assert.Equal(t, "id,tweetId,faculty,sentiment,analyzedAt,topics,source,sentimentScore,toxicityScore,nsfwScore,nsfw,toxic,url\n", string(data))
}

func TestService_ArchiveExport(t *testing.T) {
	_, err := loadedService(t).ArchiveExport(context.Background(), query.Criteria{}, 1, 10, ScopeAll)
	assert.ErrorIs(t, err, ErrNoStorage)

	store := &MockStorage{}
	store.On("Store", mock.Anything, "mentions_all_2024-01-05-12-00-00.csv", mock.Anything).Return(nil)
	s := newTestService(t, staticSource(sampleRecords()), nil, store, nil)
	require.NoError(t, s.Reload(context.Background()))

	name, err := s.ArchiveExport(context.Background(), query.Criteria{}, 1, 10, ScopeAll)

	require.NoError(t, err)
	assert.Equal(t, "mentions_all_2024-01-05-12-00-00.csv", name)
	store.AssertExpectations(t)
}

func TestService_ArchivedExports(t *testing.T) {
	ctx := context.Background()
	s := loadedService(t)
	_, err := s.ArchivedExports(ctx, "")
	assert.ErrorIs(t, err, ErrNoStorage)
	_, err = s.ArchivedExport(ctx, "a.csv")
	assert.ErrorIs(t, err, ErrNoStorage)
	assert.ErrorIs(t, s.DeleteArchivedExport(ctx, "a.csv"), ErrNoStorage)

	store := &MockStorage{}
	store.On("List", mock.Anything, "report-").Return([]string{"report-daily-2024-01-05-09-00-00.json"}, nil)
	store.On("Retrieve", mock.Anything, "report-daily-2024-01-05-09-00-00.json").Return([]byte("{}"), nil)
	store.On("Delete", mock.Anything, "report-daily-2024-01-05-09-00-00.json").Return(nil)
	s = newTestService(t, staticSource(sampleRecords()), nil, store, nil)

	names, err := s.ArchivedExports(ctx, "report-")
	require.NoError(t, err)
	assert.Equal(t, []string{"report-daily-2024-01-05-09-00-00.json"}, names)

	data, err := s.ArchivedExport(ctx, names[0])
	require.NoError(t, err)
	assert.Equal(t, "{}", string(data))

	require.NoError(t, s.DeleteArchivedExport(ctx, names[0]))
	store.AssertExpectations(t)
}

func TestService_Categories(t *testing.T) {
	s := loadedService(t)

	assert.Equal(t, []string{"LAW", "BUS", "ENG"}, s.Categories())
}

func TestParseScope(t *testing.T) {
	tests := []struct {
		value    string
		expected Scope
		wantErr  bool
	}{
		{"", ScopeAll, false},
		{"ALL", ScopeAll, false},
		{"page", ScopePage, false},
		{"visible", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.value, func(t *testing.T) {
			scope, err := ParseScope(tt.value)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, scope)
		})
	}
}
