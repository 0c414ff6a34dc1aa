package monitoring

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/query"
)

// maxDigestNegatives caps the negative mentions quoted in a digest
const maxDigestNegatives = 5

// window returns how many days a digest period covers
func window(period string) int {
	if period == "weekly" {
		return 7
	}
	return 1
}

// BuildReport summarizes mentions for one digest period ending at now.
// Undated mentions are counted; the threshold is a negative-share percentage.
func BuildReport(mentions []models.Mention, ov query.Overrides, period string, threshold float64, now time.Time, topN, keywordTopN int) *models.Report {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	criteria := query.Criteria{
		Category:  query.All,
		Sentiment: query.All,
		DateFrom:  today.AddDate(0, 0, 1-window(period)),
		DateTo:    today,
	}
	inPeriod := query.Filter(mentions, criteria, ov)

	dist := query.SentimentDistribution(inPeriod, ov)
	share := dist.NegativeShare()

	report := &models.Report{
		GeneratedAt:   now,
		Period:        period,
		TotalMentions: len(inPeriod),
		Distribution:  dist,
		NegativeShare: share,
		Threshold:     threshold,
		Exceeded:      dist.Total() > 0 && share >= threshold,
		TopCategories: query.TopCategories(inPeriod, topN),
		TopKeywords:   query.TopKeywords(inPeriod, keywordTopN),
		Trend:         query.DailySeries(inPeriod),
		Negatives:     []models.Mention{},
	}

	for _, m := range inPeriod {
		if query.EffectiveSentiment(m, ov) == models.Negative {
			m.SentimentLabel = models.Negative
			report.Negatives = append(report.Negatives, m)
		}
	}
	sort.SliceStable(report.Negatives, func(i, j int) bool {
		return report.Negatives[i].Day > report.Negatives[j].Day
	})
	if len(report.Negatives) > maxDigestNegatives {
		report.Negatives = report.Negatives[:maxDigestNegatives]
	}

	return report
}

// alertPolicy reads the threshold and the notification switch from the
// backend settings, falling back to local configuration
func (s *Service) alertPolicy(ctx context.Context) (float64, bool) {
	threshold := s.config.NegativeThreshold
	enabled := s.notificationService != nil && s.notificationService.Enabled()

	if s.settings == nil {
		return threshold, enabled
	}
	settings, err := s.settings.GetSettings(ctx)
	if err != nil {
		logrus.Warnf("Using configured alert policy, settings unavailable: %v", err)
		return threshold, enabled
	}
	return settings.NegativeThreshold, enabled && settings.NotificationsEnabled
}

// RunDigest builds the periodic report, archives it and notifies when the
// negative share reaches the threshold
func (s *Service) RunDigest(ctx context.Context) (*models.Report, error) {
	start := s.now()
	logrus.Info("Starting digest run")

	batch, err := s.snapshot()
	if err != nil {
		return nil, err
	}

	threshold, notify := s.alertPolicy(ctx)
	report := BuildReport(batch, s.overrides, s.config.ReportSchedule, threshold, s.now(), s.config.TopN, s.config.KeywordTopN)

	if s.storage != nil {
		data, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return nil, fmt.Errorf("failed to marshal report: %w", err)
		}
		filename := fmt.Sprintf("report-%s-%s.json", report.Period, start.UTC().Format("2006-01-02-15-04-05"))
		if err := s.storage.Store(ctx, filename, data); err != nil {
			logrus.Errorf("Failed to store report: %v", err)
			return report, fmt.Errorf("failed to store report: %w", err)
		}
	}

	s.mu.Lock()
	s.metrics.LastDigest = start
	s.mu.Unlock()

	if !report.Exceeded {
		logrus.Infof("Negative share %.1f%% below threshold %.1f%%, no notification", report.NegativeShare, threshold)
		return report, nil
	}
	if !notify {
		logrus.Infof("Negative share %.1f%% reached threshold but notifications are disabled", report.NegativeShare)
		return report, nil
	}

	if err := s.notificationService.SendReport(report); err != nil {
		logrus.Errorf("Failed to send report: %v", err)
		return report, err
	}

	logrus.Infof("Digest run completed in %v", s.now().Sub(start))
	return report, nil
}
