package query

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/utcc/social-mentions/internal/models"
)

// All is the sentinel that disables the category and sentiment predicates
const All = "all"

const dayLayout = "2006-01-02"

// Criteria is the dashboard filter state. Zero values mean "no constraint".
type Criteria struct {
	Category  string    `json:"faculty,omitempty"`
	Sentiment string    `json:"sentiment,omitempty"`
	DateFrom  time.Time `json:"from,omitempty"`
	DateTo    time.Time `json:"to,omitempty"`
	Query     string    `json:"q,omitempty"`
}

// Overrides resolves client-local sentiment corrections by record id
type Overrides interface {
	Current(id string) (models.Sentiment, bool)
}

func isAll(value string) bool {
	v := strings.TrimSpace(value)
	return v == "" || strings.EqualFold(v, All)
}

// Validate rejects sentiment values outside the three classes and inverted ranges
func (c Criteria) Validate() error {
	if !isAll(c.Sentiment) {
		switch models.Sentiment(c.Sentiment) {
		case models.Positive, models.Neutral, models.Negative:
		default:
			return fmt.Errorf("invalid sentiment %q", c.Sentiment)
		}
	}
	if !c.DateFrom.IsZero() && !c.DateTo.IsZero() && c.DateTo.Before(c.DateFrom) {
		return fmt.Errorf("date range is inverted: %s > %s", c.DateFrom.Format(dayLayout), c.DateTo.Format(dayLayout))
	}
	return nil
}

// ParseDay parses a YYYY-MM-DD bound; an empty string is no bound
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, nil
	}
	day, err := time.Parse(dayLayout, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return day, nil
}

// ParseCriteria reads criteria from query parameters:
// faculty (or category), sentiment, from, to and q.
func ParseCriteria(values url.Values) (Criteria, error) {
	c := Criteria{
		Category:  values.Get("faculty"),
		Sentiment: strings.ToLower(strings.TrimSpace(values.Get("sentiment"))),
		Query:     values.Get("q"),
	}
	if c.Category == "" {
		c.Category = values.Get("category")
	}

	var err error
	if c.DateFrom, err = ParseDay(values.Get("from")); err != nil {
		return Criteria{}, err
	}
	if c.DateTo, err = ParseDay(values.Get("to")); err != nil {
		return Criteria{}, err
	}

	if err := c.Validate(); err != nil {
		return Criteria{}, err
	}
	return c, nil
}
