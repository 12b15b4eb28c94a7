package feed

import (
	"context"
	"log"
	"sort"
	"time"

	"rewatch/models"
	"rewatch/services/enrich"
	"rewatch/services/history"
)

// Session is one open view over a history snapshot.
type Session interface {
	RecentYouTube(ctx context.Context, limit int) ([]models.VisitRecord, error)
	RecentForHosts(ctx context.Context, hosts []string, limit int) ([]models.VisitRecord, error)
	ChildVisits(ctx context.Context, visitID int64, limit int) ([]models.VisitRecord, error)
	VisitByID(ctx context.Context, visitID int64) (*models.VisitRecord, error)
	LatestVisitForURL(ctx context.Context, url string) (*models.VisitRecord, error)
	Close() error
}

// Store opens history sessions for a selected browser profile. An empty
// profile ID means "newest profile".
type Store interface {
	Open(profileID string) (Session, error)
}

// Enricher fills in missing titles and thumbnails for a batch of items.
type Enricher interface {
	Enrich(ctx context.Context, items []models.ContentItem, src enrich.ContextSource)
}

// storeAdapter lifts *history.Service to the Store interface.
type storeAdapter struct {
	svc *history.Service
}

func (a storeAdapter) Open(profileID string) (Session, error) {
	return a.svc.Open(profileID)
}

// WrapHistory adapts the concrete history service to the feed's Store.
func WrapHistory(svc *history.Service) Store {
	return storeAdapter{svc: svc}
}

// Options bound the per-request row pulls.
type Options struct {
	RecencyDays  int
	YouTubeLimit int
	DomainLimit  int
}

// DefaultOptions mirror the dashboard's defaults.
func DefaultOptions() Options {
	return Options{RecencyDays: 14, YouTubeLimit: 60, DomainLimit: 120}
}

// Service aggregates browsing history into the continue watching feed.
type Service struct {
	store    Store
	enricher Enricher
	opts     Options
	now      func() time.Time
}

// NewService constructs the feed orchestrator. The enricher may be nil, in
// which case items pass through with whatever titles the history rows had.
func NewService(store Store, enricher Enricher, opts Options) *Service {
	if opts.RecencyDays <= 0 {
		opts.RecencyDays = DefaultOptions().RecencyDays
	}
	if opts.YouTubeLimit <= 0 {
		opts.YouTubeLimit = DefaultOptions().YouTubeLimit
	}
	if opts.DomainLimit <= 0 {
		opts.DomainLimit = DefaultOptions().DomainLimit
	}
	return &Service{store: store, enricher: enricher, opts: opts, now: time.Now}
}

func (s *Service) cutoffMs() int64 {
	return s.now().UnixMilli() - int64(s.opts.RecencyDays)*24*int64(time.Hour/time.Millisecond)
}

// RecencyDays reports the configured recency window.
func (s *Service) RecencyDays() int {
	return s.opts.RecencyDays
}

// ContinueWatching runs the full pipeline for one request: pull recent
// YouTube and streaming-domain visits, canonicalize, enrich, dedupe, and
// sort. Only a missing history source fails the request; all row-level and
// provider failures are absorbed upstream.
func (s *Service) ContinueWatching(ctx context.Context, profileID string) (*models.Feed, error) {
	sn, err := s.store.Open(profileID)
	if err != nil {
		return nil, err
	}
	defer sn.Close()

	cutoff := s.cutoffMs()

	ytRows, err := sn.RecentYouTube(ctx, s.opts.YouTubeLimit)
	if err != nil {
		log.Printf("[feed] youtube row pull failed: %v", err)
	}
	domainRows, err := sn.RecentForHosts(ctx, streamingHosts(), s.opts.DomainLimit)
	if err != nil {
		log.Printf("[feed] streaming row pull failed: %v", err)
	}

	items := extractYouTube(ytRows, cutoff)
	items = append(items, extractStreaming(ctx, sn, domainRows, cutoff)...)

	sort.SliceStable(items, func(i, j int) bool {
		return items[i].LastVisited > items[j].LastVisited
	})

	// Idempotent for items canonicalized at extraction; still drops any
	// non-content page that slipped through.
	items = CanonicalizeAll(items)

	if s.enricher != nil {
		s.enricher.Enrich(ctx, items, sn)
	}

	items = DedupeSeries(items)

	return &models.Feed{Items: items, RecencyDays: s.opts.RecencyDays}, nil
}

// RecentYouTube returns only the YouTube extraction, without enrichment or
// grouping. Kept for the dashboard's lightweight video rail.
func (s *Service) RecentYouTube(ctx context.Context, profileID string, limit int) ([]models.ContentItem, error) {
	if limit <= 0 {
		limit = 50
	}
	sn, err := s.store.Open(profileID)
	if err != nil {
		return nil, err
	}
	defer sn.Close()

	rows, err := sn.RecentYouTube(ctx, limit)
	if err != nil {
		return nil, err
	}
	items := extractYouTube(rows, s.cutoffMs())
	return items, nil
}
