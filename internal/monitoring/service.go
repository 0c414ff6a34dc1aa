package monitoring

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/backend"
	"github.com/utcc/social-mentions/internal/config"
	"github.com/utcc/social-mentions/internal/export"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/normalize"
	"github.com/utcc/social-mentions/internal/notifications"
	"github.com/utcc/social-mentions/internal/overrides"
	"github.com/utcc/social-mentions/internal/query"
	"github.com/utcc/social-mentions/internal/storage"
)

var (
	// ErrNotFound is returned for record ids absent from the current batch
	ErrNotFound = errors.New("record not found")
	// ErrClosed is returned once the service has been closed
	ErrClosed = errors.New("monitoring service closed")
	// ErrSuperseded is returned by a reload whose result was discarded for a newer one
	ErrSuperseded = errors.New("reload superseded by a newer one")
	// ErrInvalidSentiment rejects override values outside the three classes
	ErrInvalidSentiment = errors.New("sentiment must be positive, neutral or negative")
	// ErrNoStorage is returned when archiving without a configured archive
	ErrNoStorage = errors.New("no export storage configured")
)

// Scope selects which rows an export contains
type Scope string

const (
	ScopePage Scope = "page"
	ScopeAll  Scope = "all"
)

// ParseScope reads an export scope, defaulting to the whole filtered set
func ParseScope(value string) (Scope, error) {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", string(ScopeAll):
		return ScopeAll, nil
	case string(ScopePage):
		return ScopePage, nil
	default:
		return "", fmt.Errorf("invalid export scope %q", value)
	}
}

// Status describes the current batch and any load in flight
type Status struct {
	Loading  bool      `json:"loading"`
	Error    string    `json:"error,omitempty"`
	LoadedAt time.Time `json:"loadedAt"`
	Count    int       `json:"count"`
}

// Metrics holds monitoring metrics
type Metrics struct {
	TotalMentions      int            `json:"total_mentions"`
	LastReload         time.Time      `json:"last_reload"`
	LastReloadDuration string         `json:"last_reload_duration"`
	ReloadCount        int            `json:"reload_count"`
	ErrorCount         int            `json:"error_count"`
	CategoryMetrics    map[string]int `json:"category_metrics"`
	SentimentBreakdown map[string]int `json:"sentiment_breakdown"`
	OverrideMode       string         `json:"override_mode"`
	OverrideCount      int            `json:"override_count"`
	LastDigest         time.Time      `json:"last_digest"`
}

// Service owns one batch of mentions and serves every dashboard view from it
type Service struct {
	config              *config.Config
	source              backend.RecordSource
	settings            backend.SettingsStore
	storage             storage.StorageInterface
	notificationService notifications.NotificationInterface
	overrides           *overrides.Store
	now                 func() time.Time

	mu         sync.RWMutex
	batch      []models.Mention
	index      map[string]int
	status     Status
	generation uint64
	cancel     context.CancelFunc
	closed     bool
	metrics    *Metrics
}

// NewService creates a new monitoring service. settings, storage and
// notificationService are optional and may be nil.
func NewService(cfg *config.Config, source backend.RecordSource, settings backend.SettingsStore, storage storage.StorageInterface, notificationService notifications.NotificationInterface, store *overrides.Store) *Service {
	if store == nil {
		store = overrides.NewStore()
	}
	return &Service{
		config:              cfg,
		source:              source,
		settings:            settings,
		storage:             storage,
		notificationService: notificationService,
		overrides:           store,
		now:                 time.Now,
		index:               make(map[string]int),
		metrics: &Metrics{
			CategoryMetrics:    make(map[string]int),
			SentimentBreakdown: make(map[string]int),
		},
	}
}

// Reload fetches a fresh batch. A newer reload cancels this one and its
// result is discarded; a failed fetch keeps the previous batch.
func (s *Service) Reload(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return ErrClosed
	}
	if s.cancel != nil {
		s.cancel()
	}
	s.generation++
	generation := s.generation
	loadCtx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.status.Loading = true
	s.mu.Unlock()
	defer cancel()

	start := s.now()
	logrus.Info("Reloading mentions from backend")
	raws, err := s.source.FetchAnalysisRecords(loadCtx, backend.Hints{})

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return ErrClosed
	}
	if generation != s.generation {
		logrus.Debugf("Discarding result of reload %d, superseded by %d", generation, s.generation)
		return ErrSuperseded
	}
	s.cancel = nil
	s.status.Loading = false

	if err != nil {
		s.status.Error = err.Error()
		s.metrics.ErrorCount++
		logrus.Errorf("Failed to reload mentions: %v", err)
		return fmt.Errorf("failed to reload mentions: %w", err)
	}

	batch := normalize.NormalizeAll(raws)
	index := make(map[string]int, len(batch))
	for i, m := range batch {
		if _, dup := index[m.ID]; dup {
			logrus.Warnf("Duplicate record id %s in batch, keeping the first", m.ID)
			continue
		}
		index[m.ID] = i
	}

	s.batch = batch
	s.index = index
	s.status = Status{LoadedAt: s.now(), Count: len(batch)}
	s.updateMetrics(batch, s.now().Sub(start))

	logrus.Infof("Loaded %d mentions in %v", len(batch), s.now().Sub(start))
	return nil
}

// updateMetrics must be called with s.mu held
func (s *Service) updateMetrics(batch []models.Mention, duration time.Duration) {
	s.metrics.TotalMentions = len(batch)
	s.metrics.LastReload = s.now()
	s.metrics.LastReloadDuration = duration.String()
	s.metrics.ReloadCount++

	s.metrics.CategoryMetrics = make(map[string]int)
	s.metrics.SentimentBreakdown = make(map[string]int)
	for _, m := range batch {
		s.metrics.CategoryMetrics[m.Category]++
		s.metrics.SentimentBreakdown[string(query.EffectiveSentiment(m, s.overrides))]++
	}
}

// Status reports the current batch and load state
func (s *Service) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status
}

// Close discards any in-flight load, the batch and all overrides
func (s *Service) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	s.closed = true
	if s.cancel != nil {
		s.cancel()
		s.cancel = nil
	}
	s.batch = nil
	s.index = make(map[string]int)
	s.overrides.Clear()
	logrus.Info("Monitoring service closed")
}

func (s *Service) snapshot() ([]models.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, ErrClosed
	}
	return s.batch, nil
}

func (s *Service) options() query.Options {
	return query.Options{
		Overrides:   s.overrides,
		TopN:        s.config.TopN,
		KeywordTopN: s.config.KeywordTopN,
	}
}

// Query runs the criteria against the current batch. Page items carry
// their effective sentiment.
func (s *Service) Query(c query.Criteria, page, pageSize int) (query.Result, error) {
	batch, err := s.snapshot()
	if err != nil {
		return query.Result{}, err
	}
	if pageSize <= 0 {
		pageSize = s.config.PageSize
	}

	result := query.Run(batch, c, page, pageSize, s.options())
	for i := range result.PageItems {
		result.PageItems[i].SentimentLabel = query.EffectiveSentiment(result.PageItems[i], s.overrides)
	}
	return result, nil
}

// Export renders the current page or the whole filtered set as CSV and
// returns it with a download file name
func (s *Service) Export(c query.Criteria, page, pageSize int, scope Scope) ([]byte, string, error) {
	result, err := s.Query(c, page, pageSize)
	if err != nil {
		return nil, "", err
	}

	rows := result.Filtered
	filename := "mentions_all.csv"
	if scope == ScopePage {
		rows = result.PageItems
		filename = fmt.Sprintf("mentions_page_%d.csv", page)
	}

	data := export.Write(export.MentionRows(rows, s.overrides), export.MentionColumns, export.Options{
		HeaderOnlyWhenEmpty: s.config.HeaderOnlyWhenEmpty(),
	})
	return data, filename, nil
}

// ArchiveExport stores an export in the configured archive and returns its name
func (s *Service) ArchiveExport(ctx context.Context, c query.Criteria, page, pageSize int, scope Scope) (string, error) {
	if s.storage == nil {
		return "", ErrNoStorage
	}

	data, filename, err := s.Export(c, page, pageSize, scope)
	if err != nil {
		return "", err
	}

	name := fmt.Sprintf("%s_%s.csv", strings.TrimSuffix(filename, ".csv"), s.now().UTC().Format("2006-01-02-15-04-05"))
	if err := s.storage.Store(ctx, name, data); err != nil {
		return "", fmt.Errorf("failed to archive export: %w", err)
	}
	return name, nil
}

// ArchivedExports lists archived exports and digest reports starting with prefix
func (s *Service) ArchivedExports(ctx context.Context, prefix string) ([]string, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	names, err := s.storage.List(ctx, prefix)
	if err != nil {
		return nil, fmt.Errorf("failed to list archive: %w", err)
	}
	return names, nil
}

// ArchivedExport reads one archived file
func (s *Service) ArchivedExport(ctx context.Context, name string) ([]byte, error) {
	if s.storage == nil {
		return nil, ErrNoStorage
	}
	return s.storage.Retrieve(ctx, name)
}

// DeleteArchivedExport removes one archived file
func (s *Service) DeleteArchivedExport(ctx context.Context, name string) error {
	if s.storage == nil {
		return ErrNoStorage
	}
	if err := s.storage.Delete(ctx, name); err != nil {
		return err
	}
	logrus.Infof("Deleted archived file %s", name)
	return nil
}

// Get returns one record of the current batch with its effective sentiment
func (s *Service) Get(id string) (models.Mention, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return models.Mention{}, ErrClosed
	}
	i, ok := s.index[id]
	if !ok {
		return models.Mention{}, ErrNotFound
	}
	m := s.batch[i]
	m.SentimentLabel = query.EffectiveSentiment(m, s.overrides)
	return m, nil
}

// OverrideSentiment changes the effective sentiment of a record. It returns
// false when the value is unchanged.
func (s *Service) OverrideSentiment(ctx context.Context, id, sentiment string) (overrides.Edit, bool, error) {
	to, ok := normalize.ParseSentiment(sentiment)
	if !ok {
		return overrides.Edit{}, false, ErrInvalidSentiment
	}

	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return overrides.Edit{}, false, ErrClosed
	}
	i, ok := s.index[id]
	if !ok {
		s.mu.RUnlock()
		return overrides.Edit{}, false, ErrNotFound
	}
	upstream := string(s.batch[i].SentimentLabel)
	s.mu.RUnlock()

	// the store reads the live value under its record lock
	edit, changed, err := s.overrides.Apply(ctx, id, upstream, string(to), s.config.EditorName)
	if err != nil {
		return overrides.Edit{}, false, err
	}

	if changed {
		s.mu.Lock()
		s.metrics.SentimentBreakdown[edit.OldValue]--
		s.metrics.SentimentBreakdown[edit.NewValue]++
		s.mu.Unlock()
	}
	return edit, changed, nil
}

// History returns the edits of a record, oldest first
func (s *Service) History(id string) ([]overrides.Edit, error) {
	if _, err := s.Get(id); err != nil {
		return nil, err
	}
	return s.overrides.History(id), nil
}

// Categories lists the configured faculties followed by any other faculty
// seen in the batch, in first-seen order
func (s *Service) Categories() []string {
	batch, _ := s.snapshot()

	seen := make(map[string]bool)
	categories := []string{}
	add := func(c string) {
		if c != "" && !seen[c] {
			seen[c] = true
			categories = append(categories, c)
		}
	}
	for _, c := range s.config.Categories {
		add(c)
	}
	for _, m := range batch {
		add(m.Category)
	}
	return categories
}

// GetMetrics returns current metrics as JSON
func (s *Service) GetMetrics() string {
	s.mu.Lock()
	s.metrics.OverrideMode = string(s.overrides.Mode())
	s.metrics.OverrideCount = s.overrides.Len()
	data, _ := json.MarshalIndent(s.metrics, "", "  ")
	s.mu.Unlock()

	return string(data)
}
