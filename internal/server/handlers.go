package server

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"
	"github.com/utcc/social-mentions/internal/backend"
	"github.com/utcc/social-mentions/internal/models"
	"github.com/utcc/social-mentions/internal/monitoring"
	"github.com/utcc/social-mentions/internal/overrides"
	"github.com/utcc/social-mentions/internal/query"
	"github.com/utcc/social-mentions/internal/storage"
)

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logrus.Errorf("Failed to encode response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, err error) {
	writeJSON(w, status, errorResponse{Error: err.Error()})
}

// statusFor maps service and upstream errors onto HTTP statuses
func statusFor(err error) int {
	var apiErr *backend.APIError
	switch {
	case errors.Is(err, monitoring.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, monitoring.ErrInvalidSentiment):
		return http.StatusBadRequest
	case errors.Is(err, monitoring.ErrClosed):
		return http.StatusServiceUnavailable
	case errors.Is(err, storage.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, storage.ErrInvalidName):
		return http.StatusBadRequest
	case errors.Is(err, monitoring.ErrNoStorage):
		return http.StatusNotImplemented
	case errors.As(err, &apiErr):
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func fail(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err)
}

// pagination reads page (default 1) and pageSize (0 lets the service decide)
func pagination(r *http.Request) (int, int, error) {
	page, pageSize := 1, 0
	if v := r.URL.Query().Get("page"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil {
			return 0, 0, fmt.Errorf("invalid page %q", v)
		}
		page = p
	}
	if v := r.URL.Query().Get("pageSize"); v != "" {
		p, err := strconv.Atoi(v)
		if err != nil || p < 0 {
			return 0, 0, fmt.Errorf("invalid pageSize %q", v)
		}
		pageSize = p
	}
	return page, pageSize, nil
}

// runQuery parses criteria and paging from the request and runs them
func (s *Server) runQuery(w http.ResponseWriter, r *http.Request) (query.Result, bool) {
	criteria, err := query.ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return query.Result{}, false
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return query.Result{}, false
	}

	result, err := s.dashboard.Query(criteria, page, pageSize)
	if err != nil {
		fail(w, err)
		return query.Result{}, false
	}
	return result, true
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(s.dashboard.GetMetrics()))
}

func (s *Server) handleTrigger(w http.ResponseWriter, r *http.Request) {
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if _, err := s.dashboard.RunDigest(ctx); err != nil {
			logrus.Errorf("Manual digest trigger failed: %v", err)
		}
	}()

	writeJSON(w, http.StatusOK, map[string]string{"message": "Digest triggered successfully"})
}

func (s *Server) handleMentions(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, result)
}

type archiveResponse struct {
	Name string `json:"name"`
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	criteria, err := query.ParseCriteria(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	page, pageSize, err := pagination(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}
	scope, err := monitoring.ParseScope(r.URL.Query().Get("scope"))
	if err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	if archive, _ := strconv.ParseBool(r.URL.Query().Get("archive")); archive {
		name, err := s.dashboard.ArchiveExport(r.Context(), criteria, page, pageSize, scope)
		if err != nil {
			fail(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, archiveResponse{Name: name})
		return
	}

	data, filename, err := s.dashboard.Export(criteria, page, pageSize, scope)
	if err != nil {
		fail(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleListArchive(w http.ResponseWriter, r *http.Request) {
	names, err := s.dashboard.ArchivedExports(r.Context(), r.URL.Query().Get("prefix"))
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleGetArchived(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	data, err := s.dashboard.ArchivedExport(r.Context(), name)
	if err != nil {
		fail(w, err)
		return
	}

	w.Header().Set("Content-Type", storage.ContentType(name))
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", name))
	w.WriteHeader(http.StatusOK)
	w.Write(data)
}

func (s *Server) handleDeleteArchived(w http.ResponseWriter, r *http.Request) {
	if err := s.dashboard.DeleteArchivedExport(r.Context(), mux.Vars(r)["name"]); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type overrideRequest struct {
	Sentiment string `json:"sentiment"`
}

type overrideResponse struct {
	Changed bool            `json:"changed"`
	Mention models.Mention  `json:"mention"`
	Edit    *overrides.Edit `json:"edit,omitempty"`
}

func (s *Server) handleOverride(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]

	var req overrideRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	edit, changed, err := s.dashboard.OverrideSentiment(r.Context(), id, req.Sentiment)
	if err != nil {
		fail(w, err)
		return
	}
	mention, err := s.dashboard.Get(id)
	if err != nil {
		fail(w, err)
		return
	}

	resp := overrideResponse{Changed: changed, Mention: mention}
	if changed {
		resp.Edit = &edit
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	history, err := s.dashboard.History(mux.Vars(r)["id"])
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, history)
}

type summaryResponse struct {
	Total         int               `json:"total"`
	Distribution  []models.Bucket   `json:"distribution"`
	NegativeShare float64           `json:"negativeShare"`
	TopCategories []models.KeyCount `json:"topCategories"`
	TopKeywords   []models.KeyCount `json:"topKeywords"`
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runQuery(w, r)
	if !ok {
		return
	}
	agg := result.Aggregates
	writeJSON(w, http.StatusOK, summaryResponse{
		Total:         result.TotalCount,
		Distribution:  agg.Distribution.Buckets(),
		NegativeShare: agg.Distribution.NegativeShare(),
		TopCategories: agg.TopCategories,
		TopKeywords:   agg.TopKeywords,
	})
}

type trendsResponse struct {
	TimeSeries  []models.DayCount `json:"timeSeries"`
	TopKeywords []models.KeyCount `json:"topKeywords"`
}

func (s *Server) handleTrends(w http.ResponseWriter, r *http.Request) {
	result, ok := s.runQuery(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, trendsResponse{
		TimeSeries:  result.Aggregates.TimeSeries,
		TopKeywords: result.Aggregates.TopKeywords,
	})
}

func (s *Server) handleCategories(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Categories())
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.dashboard.Status())
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	err := s.dashboard.Reload(r.Context())
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, s.dashboard.Status())
	case errors.Is(err, monitoring.ErrSuperseded):
		writeJSON(w, http.StatusAccepted, s.dashboard.Status())
	case errors.Is(err, monitoring.ErrClosed):
		fail(w, err)
	default:
		writeError(w, http.StatusBadGateway, err)
	}
}

// settingsResponse adds the body class for the stored theme
type settingsResponse struct {
	models.Settings
	ThemeClass string `json:"themeClass"`
}

func newSettingsResponse(settings models.Settings) settingsResponse {
	return settingsResponse{Settings: settings, ThemeClass: settings.Theme.CSSClass()}
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	settings, err := s.backend.GetSettings(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(settings))
}

func (s *Server) handleUpdateSettings(w http.ResponseWriter, r *http.Request) {
	var settings models.Settings
	if err := json.NewDecoder(r.Body).Decode(&settings); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return
	}

	stored, err := s.backend.UpdateSettings(r.Context(), settings)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, newSettingsResponse(stored))
}

func (s *Server) handleScanAlerts(w http.ResponseWriter, r *http.Request) {
	result, err := s.backend.ScanAlerts(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTestMail(w http.ResponseWriter, r *http.Request) {
	result, err := s.backend.SendTestMail(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}

func (s *Server) handleTweetDates(w http.ResponseWriter, r *http.Request) {
	dates, err := s.backend.GetTweetDates(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, dates)
}

func (s *Server) handleListKeywords(w http.ResponseWriter, r *http.Request) {
	entries, err := s.backend.ListKeywords(r.Context())
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// decodeKeyword reads and validates a dictionary entry from the body
func decodeKeyword(w http.ResponseWriter, r *http.Request) (models.KeywordEntry, bool) {
	var entry models.KeywordEntry
	if err := json.NewDecoder(r.Body).Decode(&entry); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Errorf("invalid body: %w", err))
		return entry, false
	}
	if err := entry.Validate(); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return entry, false
	}
	return entry, true
}

func keywordID(r *http.Request) int64 {
	// the route pattern only admits digits
	id, _ := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	return id
}

func (s *Server) handleCreateKeyword(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeKeyword(w, r)
	if !ok {
		return
	}
	stored, err := s.backend.CreateKeyword(r.Context(), entry)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, stored)
}

func (s *Server) handleUpdateKeyword(w http.ResponseWriter, r *http.Request) {
	entry, ok := decodeKeyword(w, r)
	if !ok {
		return
	}
	stored, err := s.backend.UpdateKeyword(r.Context(), keywordID(r), entry)
	if err != nil {
		fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, stored)
}

func (s *Server) handleDeleteKeyword(w http.ResponseWriter, r *http.Request) {
	if err := s.backend.DeleteKeyword(r.Context(), keywordID(r)); err != nil {
		fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
