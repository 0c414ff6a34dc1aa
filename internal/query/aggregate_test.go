package query

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/utcc/social-mentions/internal/models"
)

func TestSentimentDistribution(t *testing.T) {
	records := sampleMentions()

	d := SentimentDistribution(records, nil)
	assert.Equal(t, models.Distribution{Positive: 2, Neutral: 1, Negative: 2}, d)
	assert.Equal(t, len(records), d.Total())

	withOverride := SentimentDistribution(records, mapOverrides{"4": models.Neutral})
	assert.Equal(t, models.Distribution{Positive: 2, Neutral: 2, Negative: 1}, withOverride)
}

func TestSentimentDistribution_SumsToTotal(t *testing.T) {
	records := sampleMentions()
	for _, c := range []Criteria{{}, {Category: "Law"}, {Query: "wifi"}, {Query: "nothing matches"}} {
		filtered := Filter(records, c, nil)
		d := SentimentDistribution(filtered, nil)
		assert.Equal(t, len(filtered), d.Positive+d.Neutral+d.Negative)
	}
}

func TestSentimentDistribution_EmptyKeepsAllBuckets(t *testing.T) {
	d := SentimentDistribution(nil, nil)
	buckets := d.Buckets()

	assert.Len(t, buckets, 3)
	assert.Equal(t, []models.Bucket{
		{Name: "Positive", Value: 0},
		{Name: "Neutral", Value: 0},
		{Name: "Negative", Value: 0},
	}, buckets)
	assert.Equal(t, 0.0, d.NegativeShare())
}

func TestDailySeries(t *testing.T) {
	records := []models.Mention{
		{ID: "a", Day: "2024-01-10"},
		{ID: "b", Day: "2023-12-31"},
		{ID: "c", Day: ""},
		{ID: "d", Day: "2024-01-10"},
		{ID: "e", Day: "2024-01-02"},
	}

	series := DailySeries(records)

	assert.Equal(t, []models.DayCount{
		{Date: "2023-12-31", Count: 1},
		{Date: "2024-01-02", Count: 1},
		{Date: "2024-01-10", Count: 2},
	}, series)
	for i := 1; i < len(series); i++ {
		assert.LessOrEqual(t, series[i-1].Date, series[i].Date)
	}
}

func TestDailySeries_Empty(t *testing.T) {
	series := DailySeries([]models.Mention{{ID: "undated"}})
	assert.NotNil(t, series)
	assert.Empty(t, series)
}

func TestTopN(t *testing.T) {
	keys := []string{"b", "a", "c", "a", "b", "d", "c", "a"}

	assert.Equal(t, []models.KeyCount{
		{Name: "a", Count: 3},
		{Name: "b", Count: 2},
		{Name: "c", Count: 2},
	}, TopN(keys, 3))

	all := TopN(keys, 0)
	assert.Len(t, all, 4)
	assert.Equal(t, "d", all[3].Name)
}

func TestTopN_TiesKeepFirstSeenOrder(t *testing.T) {
	keys := []string{"zeta", "alpha", "mid", "alpha", "zeta", "mid"}

	result := TopN(keys, 10)

	assert.Equal(t, []models.KeyCount{
		{Name: "zeta", Count: 2},
		{Name: "alpha", Count: 2},
		{Name: "mid", Count: 2},
	}, result)
}

func TestTopCategoriesAndKeywords(t *testing.T) {
	records := sampleMentions()

	assert.Equal(t, []models.KeyCount{
		{Name: "Law", Count: 2},
		{Name: "CS", Count: 2},
	}, TopCategories(records, 2))

	assert.Equal(t, []models.KeyCount{
		{Name: "exam", Count: 2},
		{Name: "wifi", Count: 2},
	}, TopKeywords(records, 5))
}
