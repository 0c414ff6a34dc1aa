package models

import (
	"fmt"
	"strings"
)

// Theme is the dashboard color scheme
type Theme string

const (
	ThemeLight Theme = "LIGHT"
	ThemeDark  Theme = "DARK"
)

// ParseTheme maps any spelling to one of the two themes, LIGHT by default
func ParseTheme(value string) Theme {
	if strings.EqualFold(strings.TrimSpace(value), string(ThemeDark)) {
		return ThemeDark
	}
	return ThemeLight
}

// CSSClass is the body class the frontend applies for the theme
func (t Theme) CSSClass() string {
	if t == ThemeDark {
		return "theme-dark"
	}
	return "theme-light"
}

// DefaultNegativeThreshold is the negative share (percent) that triggers alerts
const DefaultNegativeThreshold = 20

// Settings mirrors the backend settings document
type Settings struct {
	Theme                Theme    `json:"theme"`
	NotificationsEnabled bool     `json:"notificationsEnabled"`
	NegativeThreshold    float64  `json:"negativeThreshold"`
	Sources              []string `json:"sources"`
	AnalysisScope        string   `json:"analysisScope,omitempty"`
	UpdatedAt            string   `json:"updatedAt,omitempty"`
}

// Normalize fills defaults the way the settings page expects them
func (s Settings) Normalize() Settings {
	s.Theme = ParseTheme(string(s.Theme))
	if s.NegativeThreshold <= 0 {
		s.NegativeThreshold = DefaultNegativeThreshold
	}
	if s.Sources == nil {
		s.Sources = []string{}
	}
	return s
}

// KeywordSentiment is the polarity of a dictionary phrase
type KeywordSentiment string

const (
	KeywordGood    KeywordSentiment = "GOOD"
	KeywordNeutral KeywordSentiment = "NEUTRAL"
	KeywordBad     KeywordSentiment = "BAD"
)

// KeywordEntry is one row of the sentiment keyword dictionary
type KeywordEntry struct {
	ID        int64            `json:"id,omitempty"`
	Phrase    string           `json:"phrase"`
	Sentiment KeywordSentiment `json:"sentiment"`
	Weight    float64          `json:"weight"`
}

// Validate checks an entry before it is sent to the backend
func (k KeywordEntry) Validate() error {
	if strings.TrimSpace(k.Phrase) == "" {
		return fmt.Errorf("phrase is required")
	}
	switch k.Sentiment {
	case KeywordGood, KeywordNeutral, KeywordBad:
	default:
		return fmt.Errorf("sentiment must be GOOD, NEUTRAL or BAD, got %q", k.Sentiment)
	}
	return nil
}
