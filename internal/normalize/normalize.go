package normalize

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/utcc/social-mentions/internal/models"
)

// Field aliases seen across backend versions, in priority order
var (
	idFields         = []string{"id"}
	externalIDFields = []string{"tweetId", "tweet_id", "externalId", "postId"}
	textFields       = []string{"text", "content"}
	categoryFields   = []string{"faculty", "category"}
	labelFields      = []string{"sentimentLabel", "sentiment_label", "sentiment"}
	sentScoreFields  = []string{"sentimentScore", "sentiment_score"}
	toxScoreFields   = []string{"toxicityScore", "toxicity_score"}
	nsfwScoreFields  = []string{"nsfwScore", "nsfw_score"}
	secondaryTopics  = []string{"topicsJson", "topics_json", "keywords"}
	analyzedFields   = []string{"analyzedAt", "analyzed_at"}
	createdFields    = []string{"createdAt", "created_at"}
	crawlFields      = []string{"crawlTime", "crawl_time"}
	sourceFields     = []string{"source"}
)

const deepLinkFormat = "https://x.com/i/web/status/%s"

// Normalize converts one raw backend row into a canonical mention.
// It never fails: missing or mistyped fields fall back to defaults.
func Normalize(raw models.RawRecord) models.Mention {
	externalID := stringField(raw, externalIDFields...)
	upstream := stringField(raw, labelFields...)

	category := strings.TrimSpace(stringField(raw, categoryFields...))
	if category == "" {
		category = models.UnknownCategory
	}

	source := strings.TrimSpace(stringField(raw, sourceFields...))
	if source == "" {
		source = models.DefaultSource
	}

	return models.Mention{
		ID:             stringField(raw, idFields...),
		ExternalID:     externalID,
		Text:           stringField(raw, textFields...),
		Category:       category,
		SentimentLabel: Sentiment(upstream),
		UpstreamLabel:  upstream,
		SentimentScore: floatField(raw, sentScoreFields...),
		ToxicityScore:  floatField(raw, toxScoreFields...),
		NSFWScore:      floatField(raw, nsfwScoreFields...),
		Toxic:          boolField(raw, "toxic"),
		NSFW:           boolField(raw, "nsfw"),
		Topics:         Topics(raw),
		Source:         source,
		AnalyzedAt:     stringField(raw, analyzedFields...),
		CreatedAt:      stringField(raw, createdFields...),
		Day:            EffectiveDate(raw),
		URL:            DeepLink(externalID),
	}
}

// NormalizeAll normalizes a batch. Rows without an id get their batch index.
func NormalizeAll(raws []models.RawRecord) []models.Mention {
	mentions := make([]models.Mention, 0, len(raws))
	for i, raw := range raws {
		m := Normalize(raw)
		if m.ID == "" {
			m.ID = strconv.Itoa(i)
		}
		mentions = append(mentions, m)
	}
	return mentions
}

// Sentiment maps any upstream spelling onto the three canonical classes
func Sentiment(label string) models.Sentiment {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pos", "positive":
		return models.Positive
	case "neg", "negative":
		return models.Negative
	default:
		return models.Neutral
	}
}

// ParseSentiment is the strict form of Sentiment for user input:
// unknown spellings are rejected instead of mapped to neutral.
func ParseSentiment(label string) (models.Sentiment, bool) {
	switch strings.ToLower(strings.TrimSpace(label)) {
	case "pos", "positive", "neu", "neutral", "neg", "negative":
		return Sentiment(label), true
	default:
		return "", false
	}
}

// Topics extracts the topic list: the structured field first, then the
// secondary string field as a JSON array, then as a comma separated list.
func Topics(raw models.RawRecord) []string {
	if list, ok := asList(raw["topics"]); ok && len(list) > 0 {
		return list
	}

	secondary, ok := firstPresent(raw, secondaryTopics...)
	if !ok {
		// a plain string in the structured slot is treated like the secondary field
		secondary, ok = firstPresent(raw, "topics")
		if !ok {
			return []string{}
		}
	}
	if list, ok := asList(secondary); ok {
		return list
	}

	str := strings.TrimSpace(stringify(secondary))
	if strings.HasPrefix(str, "[") || strings.HasPrefix(str, "{") {
		var arr []interface{}
		if err := json.Unmarshal([]byte(str), &arr); err == nil {
			return stringifyAll(arr)
		}
	}

	topics := []string{}
	for _, part := range strings.Split(str, ",") {
		if part = strings.TrimSpace(part); part != "" {
			topics = append(topics, part)
		}
	}
	return topics
}

// EffectiveDate returns the calendar day of the first present timestamp,
// or "" when none is present or it does not start with a valid YYYY-MM-DD.
func EffectiveDate(raw models.RawRecord) string {
	candidates := [][]string{analyzedFields, createdFields, crawlFields}
	var value string
	for _, fields := range candidates {
		if value = stringField(raw, fields...); value != "" {
			break
		}
	}
	if len(value) < 10 {
		return ""
	}
	day := value[:10]
	if _, err := time.Parse("2006-01-02", day); err != nil {
		return ""
	}
	return day
}

// DeepLink builds the viewer URL for a post id, "" when there is none
func DeepLink(externalID string) string {
	if externalID == "" {
		return ""
	}
	return fmt.Sprintf(deepLinkFormat, externalID)
}

func firstPresent(raw models.RawRecord, keys ...string) (interface{}, bool) {
	for _, key := range keys {
		v, ok := raw[key]
		if !ok || v == nil {
			continue
		}
		if s, isString := v.(string); isString && strings.TrimSpace(s) == "" {
			continue
		}
		return v, true
	}
	return nil, false
}

func stringField(raw models.RawRecord, keys ...string) string {
	v, ok := firstPresent(raw, keys...)
	if !ok {
		return ""
	}
	return stringify(v)
}

func floatField(raw models.RawRecord, keys ...string) *float64 {
	v, ok := firstPresent(raw, keys...)
	if !ok {
		return nil
	}
	var f float64
	switch n := v.(type) {
	case float64:
		f = n
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return nil
		}
		f = parsed
	case int:
		f = float64(n)
	case int64:
		f = float64(n)
	case string:
		parsed, err := strconv.ParseFloat(strings.TrimSpace(n), 64)
		if err != nil {
			return nil
		}
		f = parsed
	default:
		return nil
	}
	return &f
}

func boolField(raw models.RawRecord, keys ...string) *bool {
	v, ok := firstPresent(raw, keys...)
	if !ok {
		return nil
	}
	var b bool
	switch t := v.(type) {
	case bool:
		b = t
	case string:
		switch strings.ToLower(strings.TrimSpace(t)) {
		case "true", "yes", "y", "1":
			b = true
		case "false", "no", "n", "0":
			b = false
		default:
			return nil
		}
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil
		}
		b = f != 0
	case float64:
		b = t != 0
	default:
		return nil
	}
	return &b
}

func asList(v interface{}) ([]string, bool) {
	switch list := v.(type) {
	case []interface{}:
		return stringifyAll(list), true
	case []string:
		out := make([]string, len(list))
		copy(out, list)
		return out, true
	default:
		return nil, false
	}
}

func stringifyAll(values []interface{}) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		out = append(out, stringify(v))
	}
	return out
}

func stringify(v interface{}) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case json.Number:
		return t.String()
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	default:
		data, err := json.Marshal(t)
		if err != nil {
			return fmt.Sprint(t)
		}
		return string(data)
	}
}
