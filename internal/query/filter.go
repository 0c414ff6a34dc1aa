package query

import (
	"strings"
	"time"

	"github.com/utcc/social-mentions/internal/models"
)

// EffectiveSentiment returns the override for m when one exists, else its label
func EffectiveSentiment(m models.Mention, overrides Overrides) models.Sentiment {
	if overrides != nil {
		if s, ok := overrides.Current(m.ID); ok {
			return s
		}
	}
	return m.SentimentLabel
}

// Filter returns the records matching every predicate of c, in input order
func Filter(records []models.Mention, c Criteria, overrides Overrides) []models.Mention {
	needle := strings.ToLower(strings.TrimSpace(c.Query))

	filtered := make([]models.Mention, 0, len(records))
	for _, m := range records {
		if matches(m, c, needle, overrides) {
			filtered = append(filtered, m)
		}
	}
	return filtered
}

// Matches reports whether a single record passes c
func Matches(m models.Mention, c Criteria, overrides Overrides) bool {
	return matches(m, c, strings.ToLower(strings.TrimSpace(c.Query)), overrides)
}

func matches(m models.Mention, c Criteria, needle string, overrides Overrides) bool {
	if !matchCategory(m, c.Category) {
		return false
	}
	if !matchSentiment(EffectiveSentiment(m, overrides), c.Sentiment) {
		return false
	}
	if !matchDate(m.Day, c.DateFrom, c.DateTo) {
		return false
	}
	return needle == "" || strings.Contains(haystack(m, overrides), needle)
}

func matchCategory(m models.Mention, category string) bool {
	if isAll(category) {
		return true
	}
	return m.Category == category
}

func matchSentiment(s models.Sentiment, wanted string) bool {
	if isAll(wanted) {
		return true
	}
	return string(s) == wanted
}

// Records without a parseable day are never excluded by date bounds.
func matchDate(day string, from, to time.Time) bool {
	if day == "" || (from.IsZero() && to.IsZero()) {
		return true
	}
	d, err := time.Parse(dayLayout, day)
	if err != nil {
		return true
	}
	if !from.IsZero() && d.Before(truncateDay(from)) {
		return false
	}
	if !to.IsZero() && d.After(truncateDay(to)) {
		return false
	}
	return true
}

func truncateDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func haystack(m models.Mention, overrides Overrides) string {
	parts := []string{
		strings.Join(m.Topics, " "),
		m.Category,
		string(EffectiveSentiment(m, overrides)),
		m.UpstreamLabel,
		m.ExternalID,
		m.Text,
	}
	return strings.ToLower(strings.Join(parts, " "))
}
