package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"rewatch/models"
	"rewatch/services/feed"
	"rewatch/services/history"
)

type feedService interface {
	ContinueWatching(ctx context.Context, profileID string) (*models.Feed, error)
	RecentYouTube(ctx context.Context, profileID string, limit int) ([]models.ContentItem, error)
}

type profileService interface {
	ListProfiles() []models.Profile
}

var _ feedService = (*feed.Service)(nil)
var _ profileService = (*history.Service)(nil)

// FeedHandler serves the continue watching aggregation to the dashboard.
type FeedHandler struct {
	Feed     feedService
	Profiles profileService
}

func NewFeedHandler(feedSvc feedService, profiles profileService) *FeedHandler {
	return &FeedHandler{Feed: feedSvc, Profiles: profiles}
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, err error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}

// feedErrorStatus distinguishes the one fatal error class (missing history
// source) from everything else. Row and provider failures never reach here.
func feedErrorStatus(err error) int {
	if errors.Is(err, history.ErrHistoryNotFound) || errors.Is(err, history.ErrProfileNotFound) {
		return http.StatusNotFound
	}
	return http.StatusInternalServerError
}

// GetAll runs the full pipeline and returns the deduplicated, enriched,
// sorted feed. The result is either complete or a single error, never a mix.
func (h *FeedHandler) GetAll(w http.ResponseWriter, r *http.Request) {
	profileID := strings.TrimSpace(r.URL.Query().Get("profile"))

	result, err := h.Feed.ContinueWatching(r.Context(), profileID)
	if err != nil {
		writeError(w, feedErrorStatus(err), err)
		return
	}
	writeJSON(w, result)
}

// GetYouTube returns the YouTube-only extraction without enrichment.
func (h *FeedHandler) GetYouTube(w http.ResponseWriter, r *http.Request) {
	profileID := strings.TrimSpace(r.URL.Query().Get("profile"))
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil {
			limit = n
		}
	}

	items, err := h.Feed.RecentYouTube(r.Context(), profileID, limit)
	if err != nil {
		writeError(w, feedErrorStatus(err), err)
		return
	}
	if items == nil {
		items = []models.ContentItem{}
	}
	writeJSON(w, map[string]any{"items": items})
}

// ListProfiles returns the browser profiles available as history sources.
func (h *FeedHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	profiles := h.Profiles.ListProfiles()
	if profiles == nil {
		profiles = []models.Profile{}
	}
	writeJSON(w, profiles)
}
