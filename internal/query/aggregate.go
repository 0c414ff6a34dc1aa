package query

import (
	"sort"

	"github.com/utcc/social-mentions/internal/models"
)

// SentimentDistribution counts the filtered records per effective sentiment.
// All three buckets are always present.
func SentimentDistribution(records []models.Mention, overrides Overrides) models.Distribution {
	var d models.Distribution
	for _, m := range records {
		d.Add(EffectiveSentiment(m, overrides))
	}
	return d
}

// DailySeries counts records per effective day, ascending by date string.
// Records without a day are left out.
func DailySeries(records []models.Mention) []models.DayCount {
	counts := make(map[string]int)
	for _, m := range records {
		if m.Day == "" {
			continue
		}
		counts[m.Day]++
	}

	days := make([]string, 0, len(counts))
	for day := range counts {
		days = append(days, day)
	}
	// zero padded YYYY-MM-DD sorts correctly as plain strings
	sort.Strings(days)

	series := make([]models.DayCount, 0, len(days))
	for _, day := range days {
		series = append(series, models.DayCount{Date: day, Count: counts[day]})
	}
	return series
}

// TopN ranks keys by occurrence, highest first. Ties keep first-seen order.
// n <= 0 returns every key.
func TopN(keys []string, n int) []models.KeyCount {
	index := make(map[string]int)
	ranked := make([]models.KeyCount, 0)
	for _, key := range keys {
		if i, ok := index[key]; ok {
			ranked[i].Count++
			continue
		}
		index[key] = len(ranked)
		ranked = append(ranked, models.KeyCount{Name: key, Count: 1})
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].Count > ranked[j].Count
	})

	if n > 0 && len(ranked) > n {
		ranked = ranked[:n]
	}
	return ranked
}

// TopCategories ranks faculties by number of mentions
func TopCategories(records []models.Mention, n int) []models.KeyCount {
	keys := make([]string, 0, len(records))
	for _, m := range records {
		keys = append(keys, m.Category)
	}
	return TopN(keys, n)
}

// TopKeywords ranks topics across all records
func TopKeywords(records []models.Mention, n int) []models.KeyCount {
	var keys []string
	for _, m := range records {
		keys = append(keys, m.Topics...)
	}
	return TopN(keys, n)
}
