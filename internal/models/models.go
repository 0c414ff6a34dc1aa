package models

import "time"

// Sentiment is one of the three canonical sentiment classes
type Sentiment string

const (
	Positive Sentiment = "positive"
	Neutral  Sentiment = "neutral"
	Negative Sentiment = "negative"
)

// Sentiments lists the canonical classes in display order
var Sentiments = []Sentiment{Positive, Neutral, Negative}

// UnknownCategory marks a mention without a faculty
const UnknownCategory = "UNKNOWN"

// DefaultSource is used when the backend does not say where a mention came from
const DefaultSource = "X"

// RawRecord is one analysis row as returned by the backend. Field names vary
// across backend versions, so it is kept as a decoded JSON object.
type RawRecord map[string]interface{}

// Mention is the canonical, normalized analysis record
type Mention struct {
	ID             string    `json:"id"`
	ExternalID     string    `json:"tweetId,omitempty"`
	Text           string    `json:"text,omitempty"`
	Category       string    `json:"faculty"`
	SentimentLabel Sentiment `json:"sentiment"`
	UpstreamLabel  string    `json:"upstreamLabel,omitempty"` // label exactly as received
	SentimentScore *float64  `json:"sentimentScore,omitempty"`
	ToxicityScore  *float64  `json:"toxicityScore,omitempty"`
	NSFWScore      *float64  `json:"nsfwScore,omitempty"`
	Toxic          *bool     `json:"toxic,omitempty"`
	NSFW           *bool     `json:"nsfw,omitempty"`
	Topics         []string  `json:"topics"`
	Source         string    `json:"source"`
	AnalyzedAt     string    `json:"analyzedAt,omitempty"`
	CreatedAt      string    `json:"createdAt,omitempty"`
	Day            string    `json:"date,omitempty"` // YYYY-MM-DD, empty when unknown
	URL            string    `json:"url,omitempty"`
}

// Distribution counts mentions per sentiment class
type Distribution struct {
	Positive int `json:"positive"`
	Neutral  int `json:"neutral"`
	Negative int `json:"negative"`
}

// Bucket is one named slice of a chart
type Bucket struct {
	Name  string `json:"name"`
	Value int    `json:"value"`
}

// Total returns the number of mentions counted
func (d Distribution) Total() int {
	return d.Positive + d.Neutral + d.Negative
}

// Add counts one mention of the given class
func (d *Distribution) Add(s Sentiment) {
	switch s {
	case Positive:
		d.Positive++
	case Negative:
		d.Negative++
	default:
		d.Neutral++
	}
}

// Buckets returns all three classes in fixed order, zero counts included
func (d Distribution) Buckets() []Bucket {
	return []Bucket{
		{Name: "Positive", Value: d.Positive},
		{Name: "Neutral", Value: d.Neutral},
		{Name: "Negative", Value: d.Negative},
	}
}

// NegativeShare returns the percentage (0-100) of negative mentions
func (d Distribution) NegativeShare() float64 {
	total := d.Total()
	if total == 0 {
		return 0
	}
	return float64(d.Negative) * 100 / float64(total)
}

// DayCount is one point of the daily mentions series
type DayCount struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

// KeyCount is one row of a top-N frequency table
type KeyCount struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// Report is the periodic sentiment digest
type Report struct {
	GeneratedAt   time.Time    `json:"generated_at"`
	Period        string       `json:"period"` // "daily" or "weekly"
	TotalMentions int          `json:"total_mentions"`
	Distribution  Distribution `json:"distribution"`
	NegativeShare float64      `json:"negative_share"`
	Threshold     float64      `json:"threshold"`
	Exceeded      bool         `json:"exceeded"`
	TopCategories []KeyCount   `json:"top_categories"`
	TopKeywords   []KeyCount   `json:"top_keywords"`
	Trend         []DayCount   `json:"trend"`
	Negatives     []Mention    `json:"negatives"` // latest negative mentions
}
