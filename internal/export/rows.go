package export

import (
	"strconv"
	"strings"

	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/query"
)

// MentionColumns is the header of the mentions report
var MentionColumns = []string{
	"id", "tweetId", "faculty", "sentiment", "analyzedAt", "topics", "source",
	"sentimentScore", "toxicityScore", "nsfwScore", "nsfw", "toxic", "url",
}

// MentionRows flattens mentions for export, applying sentiment overrides
func MentionRows(mentions []models.Mention, overrides query.Overrides) []*Row {
	rows := make([]*Row, 0, len(mentions))
	for _, m := range mentions {
		rows = append(rows, NewRow(
			"id", m.ID,
			"tweetId", m.ExternalID,
			"faculty", m.Category,
			"sentiment", string(query.EffectiveSentiment(m, overrides)),
			"analyzedAt", m.Day,
			"topics", strings.Join(m.Topics, " | "),
			"source", m.Source,
			"sentimentScore", score(m.SentimentScore),
			"toxicityScore", score(m.ToxicityScore),
			"nsfwScore", score(m.NSFWScore),
			"nsfw", yesNo(m.NSFW),
			"toxic", yesNo(m.Toxic),
			"url", m.URL,
		))
	}
	return rows
}

// SeriesRows flattens the daily series
func SeriesRows(series []models.DayCount) []*Row {
	rows := make([]*Row, 0, len(series))
	for _, p := range series {
		rows = append(rows, NewRow("date", p.Date, "count", p.Count))
	}
	return rows
}

// KeyCountRows flattens a top-N table under the given key column name
func KeyCountRows(keyColumn string, counts []models.KeyCount) []*Row {
	rows := make([]*Row, 0, len(counts))
	for _, kc := range counts {
		rows = append(rows, NewRow(keyColumn, kc.Name, "count", kc.Count))
	}
	return rows
}

// DistributionRows flattens the sentiment distribution, one row per class
func DistributionRows(d models.Distribution) []*Row {
	rows := make([]*Row, 0, 3)
	for _, b := range d.Buckets() {
		rows = append(rows, NewRow("sentiment", b.Name, "count", b.Value))
	}
	return rows
}

func score(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', 2, 64)
}

func yesNo(v *bool) string {
	if v != nil && *v {
		return "Yes"
	}
	return "No"
}
