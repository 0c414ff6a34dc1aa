package normalize

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/utcc/social-mentions/internal/models"
)

func TestSentiment(t *testing.T) {
	tests := []struct {
		name     string
		label    string
		expected models.Sentiment
	}{
		{"short positive", "pos", models.Positive},
		{"capitalized positive", "Positive", models.Positive},
		{"upper short positive", "POS", models.Positive},
		{"short negative", "neg", models.Negative},
		{"padded negative", "  NEGATIVE ", models.Negative},
		{"explicit neutral", "neutral", models.Neutral},
		{"empty", "", models.Neutral},
		{"unknown", "mixed", models.Neutral},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Sentiment(tt.label))
		})
	}
}

func TestParseSentiment(t *testing.T) {
	tests := []struct {
		label    string
		expected models.Sentiment
		ok       bool
	}{
		{"NEG", models.Negative, true},
		{" positive", models.Positive, true},
		{"neu", models.Neutral, true},
		{"neutral", models.Neutral, true},
		{"mixed", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			got, ok := ParseSentiment(tt.label)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestSentiment_TotalAndIdempotent(t *testing.T) {
	labels := []string{"", "pos", "POS", "positive", "neg", "Negative", "neutral", "NEU", "x", "😀", "positive ", "p"}

	for _, label := range labels {
		once := Sentiment(label)
		twice := Sentiment(string(once))
		assert.Equal(t, once, twice, "label %q", label)
		assert.Contains(t, models.Sentiments, once, "label %q", label)
	}
}

func TestTopics(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RawRecord
		expected []string
	}{
		{
			name:     "Structured list",
			raw:      models.RawRecord{"topics": []interface{}{"a", "b"}},
			expected: []string{"a", "b"},
		},
		{
			name:     "Structured list wins over secondary field",
			raw:      models.RawRecord{"topics": []interface{}{"a"}, "topicsJson": "x,y"},
			expected: []string{"a"},
		},
		{
			name:     "Structured list elements are stringified",
			raw:      models.RawRecord{"topics": []interface{}{"a", json.Number("7"), true}},
			expected: []string{"a", "7", "true"},
		},
		{
			name:     "Empty structured list falls through",
			raw:      models.RawRecord{"topics": []interface{}{}, "topicsJson": "exam"},
			expected: []string{"exam"},
		},
		{
			name:     "JSON string",
			raw:      models.RawRecord{"topicsJson": `["a","b"]`},
			expected: []string{"a", "b"},
		},
		{
			name:     "Comma string",
			raw:      models.RawRecord{"topicsJson": "a, b"},
			expected: []string{"a", "b"},
		},
		{
			name:     "Comma string drops empty segments",
			raw:      models.RawRecord{"topicsJson": " a ,, b ,"},
			expected: []string{"a", "b"},
		},
		{
			name:     "Malformed JSON falls back to comma split",
			raw:      models.RawRecord{"topicsJson": "[a,b"},
			expected: []string{"[a", "b"},
		},
		{
			name:     "JSON object is not a list",
			raw:      models.RawRecord{"topicsJson": `{"a":1}`},
			expected: []string{`{"a":1}`},
		},
		{
			name:     "Snake case alias",
			raw:      models.RawRecord{"topics_json": `["exam"]`},
			expected: []string{"exam"},
		},
		{
			name:     "Nothing present",
			raw:      models.RawRecord{},
			expected: []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := Topics(tt.raw)
			require.NotNil(t, result)
			assert.Equal(t, tt.expected, result)
		})
	}
}

func TestEffectiveDate(t *testing.T) {
	tests := []struct {
		name     string
		raw      models.RawRecord
		expected string
	}{
		{"analyzedAt first", models.RawRecord{"analyzedAt": "2024-01-05T10:00:00", "createdAt": "2023-12-31T00:00:00"}, "2024-01-05"},
		{"createdAt fallback", models.RawRecord{"createdAt": "2024-02-01 08:00"}, "2024-02-01"},
		{"crawlTime fallback", models.RawRecord{"analyzedAt": "", "crawlTime": "2024-03-09T00:00:00Z"}, "2024-03-09"},
		{"exact day", models.RawRecord{"analyzedAt": "2024-03-09"}, "2024-03-09"},
		{"absent", models.RawRecord{}, ""},
		{"too short", models.RawRecord{"analyzedAt": "2024-03"}, ""},
		{"not a date", models.RawRecord{"analyzedAt": "yesterday at noon"}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, EffectiveDate(tt.raw))
		})
	}
}

func TestNormalize(t *testing.T) {
	raw := models.RawRecord{
		"id":             json.Number("42"),
		"tweetId":        json.Number("1790000000000000001"),
		"text":           "great canteen",
		"faculty":        "  Law ",
		"sentimentLabel": "POS",
		"sentimentScore": json.Number("0.87"),
		"toxic":          false,
		"nsfw":           "yes",
		"topicsJson":     `["food","canteen"]`,
		"analyzedAt":     "2024-01-05T10:00:00",
	}

	m := Normalize(raw)

	assert.Equal(t, "42", m.ID)
	assert.Equal(t, "1790000000000000001", m.ExternalID)
	assert.Equal(t, "https://x.com/i/web/status/1790000000000000001", m.URL)
	assert.Equal(t, "Law", m.Category)
	assert.Equal(t, models.Positive, m.SentimentLabel)
	assert.Equal(t, "POS", m.UpstreamLabel)
	require.NotNil(t, m.SentimentScore)
	assert.InDelta(t, 0.87, *m.SentimentScore, 1e-9)
	assert.Nil(t, m.ToxicityScore)
	require.NotNil(t, m.Toxic)
	assert.False(t, *m.Toxic)
	require.NotNil(t, m.NSFW)
	assert.True(t, *m.NSFW)
	assert.Equal(t, []string{"food", "canteen"}, m.Topics)
	assert.Equal(t, models.DefaultSource, m.Source)
	assert.Equal(t, "2024-01-05", m.Day)
}

func TestNormalize_MalformedRecordDegradesToDefaults(t *testing.T) {
	raw := models.RawRecord{
		"faculty":        []interface{}{"not", "a", "string"},
		"sentimentLabel": 3.5,
		"sentimentScore": "n/a",
		"toxic":          map[string]interface{}{"x": 1},
		"topics":         42.0,
		"analyzedAt":     true,
	}

	m := Normalize(raw)

	assert.Equal(t, models.Neutral, m.SentimentLabel)
	assert.Nil(t, m.SentimentScore)
	assert.Nil(t, m.Toxic)
	assert.Equal(t, []string{"42"}, m.Topics)
	assert.Empty(t, m.Day)
	assert.Empty(t, m.URL)
	assert.True(t, strings.HasPrefix(m.Category, "["))
}

func TestNormalizeAll_AssignsIndexIDs(t *testing.T) {
	raws := []models.RawRecord{
		{"id": "a"},
		{"text": "no id here"},
		{"id": 7.0},
	}

	mentions := NormalizeAll(raws)

	require.Len(t, mentions, 3)
	assert.Equal(t, "a", mentions[0].ID)
	assert.Equal(t, "1", mentions[1].ID)
	assert.Equal(t, "7", mentions[2].ID)
	assert.Equal(t, models.UnknownCategory, mentions[1].Category)
}

func TestDeepLink(t *testing.T) {
	assert.Equal(t, "", DeepLink(""))
	assert.Equal(t, "https://x.com/i/web/status/123", DeepLink("123"))
}
