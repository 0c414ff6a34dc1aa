package query

import "github.com/utcc/social-mentions/internal/models"

const (
	DefaultPageSize    = 10
	DefaultTopN        = 5
	DefaultKeywordTopN = 10
)

// Options tunes a Run call
type Options struct {
	Overrides   Overrides
	TopN        int // top faculties, DefaultTopN when zero
	KeywordTopN int // top keywords, DefaultKeywordTopN when zero
}

// Aggregates feeds the dashboard charts and KPI cards
type Aggregates struct {
	Distribution  models.Distribution `json:"distribution"`
	TimeSeries    []models.DayCount   `json:"timeSeries"`
	TopCategories []models.KeyCount   `json:"topCategories"`
	TopKeywords   []models.KeyCount   `json:"topKeywords"`
}

// Result is everything a view needs for one filter state
type Result struct {
	Filtered   []models.Mention `json:"-"`
	PageItems  []models.Mention `json:"items"`
	TotalCount int              `json:"total"`
	Page       int              `json:"page"`
	PageSize   int              `json:"pageSize"`
	MaxPage    int              `json:"maxPage"`
	Aggregates Aggregates       `json:"aggregates"`
}

// Run filters all, aggregates the filtered set and slices out one page.
// The page is taken as given: callers clamp it and reset it to 1 when the
// criteria change. Pages outside [1, MaxPage] yield no items.
func Run(all []models.Mention, c Criteria, page, pageSize int, opts Options) Result {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	topN := opts.TopN
	if topN == 0 {
		topN = DefaultTopN
	}
	keywordTopN := opts.KeywordTopN
	if keywordTopN == 0 {
		keywordTopN = DefaultKeywordTopN
	}

	filtered := Filter(all, c, opts.Overrides)
	total := len(filtered)

	return Result{
		Filtered:   filtered,
		PageItems:  Page(filtered, page, pageSize),
		TotalCount: total,
		Page:       page,
		PageSize:   pageSize,
		MaxPage:    MaxPage(total, pageSize),
		Aggregates: Aggregates{
			Distribution:  SentimentDistribution(filtered, opts.Overrides),
			TimeSeries:    DailySeries(filtered),
			TopCategories: TopCategories(filtered, topN),
			TopKeywords:   TopKeywords(filtered, keywordTopN),
		},
	}
}

// MaxPage is max(1, ceil(total/pageSize))
func MaxPage(total, pageSize int) int {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	pages := (total + pageSize - 1) / pageSize
	if pages < 1 {
		return 1
	}
	return pages
}

// Page returns the 1-based page of records; out of range pages are empty
func Page(records []models.Mention, page, pageSize int) []models.Mention {
	if pageSize <= 0 {
		pageSize = DefaultPageSize
	}
	// compare page counts first so huge pages cannot overflow the offset
	if page < 1 || page-1 >= (len(records)+pageSize-1)/pageSize {
		return []models.Mention{}
	}
	start := (page - 1) * pageSize
	end := start + pageSize
	if end > len(records) {
		end = len(records)
	}
	items := make([]models.Mention, end-start)
	copy(items, records[start:end])
	return items
}
