package enrich

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"rewatch/models"
	"rewatch/utils/titlematch"

	"github.com/sourcegraph/conc/pool"
)

// genericPeacockThumb marks the dashboard's placeholder artwork; a thumb
// containing it counts as absent and stays eligible for replacement.
const genericPeacockThumb = "icons/peacock.png"

const (
	defaultBatchLimit  = 40
	defaultConcurrency = 10
	defaultHTTPTimeout = 10 * time.Second
)

// ContextSource gives the enricher read access to the visit graph so opaque
// watch pages can be traced back to their detail page.
type ContextSource interface {
	LatestVisitForURL(ctx context.Context, url string) (*models.VisitRecord, error)
	VisitByID(ctx context.Context, visitID int64) (*models.VisitRecord, error)
}

// Service fills in missing titles and thumbnails through a chain of
// external sources: Peacock's image service, embedded page metadata, TMDB,
// TVmaze, and the iTunes store. Every lookup is best-effort; failures yield
// "no data" and the chain moves on.
type Service struct {
	httpc       *http.Client
	cache       Cache
	tmdb        *tmdbClient
	tvmaze      *tvmazeClient
	itunes      *itunesClient
	batchLimit  int
	concurrency int
}

// NewService constructs the enricher. An empty tmdbAPIKey silently disables
// the TMDB step. A nil cache gets an unbounded in-memory one.
func NewService(tmdbAPIKey string, cache Cache, httpc *http.Client, batchLimit int) *Service {
	if httpc == nil {
		httpc = &http.Client{Timeout: defaultHTTPTimeout}
	}
	if cache == nil {
		cache = NewMemoryCache(0)
	}
	if batchLimit <= 0 {
		batchLimit = defaultBatchLimit
	}
	return &Service{
		httpc:       httpc,
		cache:       cache,
		tmdb:        newTMDBClient(tmdbAPIKey, httpc),
		tvmaze:      newTVMazeClient(httpc),
		itunes:      newITunesClient(httpc),
		batchLimit:  batchLimit,
		concurrency: defaultConcurrency,
	}
}

func cacheKey(item models.ContentItem) string {
	return string(item.Service) + ":" + item.PeacockAssetID + ":" + comparisonURL(item)
}

// applyMeta copies looked-up metadata onto an item. Existing titles and
// thumbnails are kept unless they are placeholders (empty, the bare service
// name, or the generic Peacock image).
func applyMeta(item *models.ContentItem, meta *Meta, genericThumb bool) {
	if meta == nil {
		return
	}
	if meta.Thumb != "" && (genericThumb || item.Thumb == "") {
		item.Thumb = meta.Thumb
	}
	if meta.Title != "" && (item.Title == "" || item.Title == string(item.Service)) {
		item.Title = meta.Title
	}
}

func mergeMeta(prev, next *Meta) *Meta {
	if prev == nil {
		return next
	}
	if next == nil {
		return prev
	}
	merged := *prev
	if merged.Title == "" {
		merged.Title = next.Title
	}
	if merged.Thumb == "" {
		merged.Thumb = next.Thumb
	}
	return &merged
}

// Enrich processes up to the batch limit of items, concurrently, mutating
// them in place. Items that already carry a real thumbnail and title are
// skipped without network calls. The shared cache absorbs repeat lookups
// across requests; negative outcomes are cached too.
func (s *Service) Enrich(ctx context.Context, items []models.ContentItem, src ContextSource) {
	limit := len(items)
	if limit > s.batchLimit {
		limit = s.batchLimit
	}

	p := pool.New().WithMaxGoroutines(s.concurrency)
	for i := 0; i < limit; i++ {
		item := &items[i]
		genericThumb := strings.Contains(item.Thumb, genericPeacockThumb)
		if item.Thumb != "" && !genericThumb && item.Title != "" {
			continue
		}
		if item.URL == "" {
			continue
		}

		key := cacheKey(*item)
		if cached, ok := s.cache.Get(key); ok && !genericThumb {
			applyMeta(item, cached, genericThumb)
			continue
		}

		p.Go(func() {
			meta := s.lookup(ctx, *item, src)
			s.cache.Set(key, meta)
			applyMeta(item, meta, genericThumb)
		})
	}
	p.Wait()
}

// lookup runs the fallback chain for one item. Each step is attempted only
// while no thumbnail has been found.
func (s *Service) lookup(ctx context.Context, item models.ContentItem, src ContextSource) *Meta {
	var meta *Meta

	if item.Service == models.ServicePeacock && item.PeacockAssetID != "" {
		if img := s.choosePeacockImage(ctx, item.PeacockAssetID); img != "" {
			meta = &Meta{Title: item.Title, Thumb: img}
		}
	}

	if meta == nil || meta.Thumb == "" {
		if og := s.fetchPageMeta(ctx, s.contextURL(ctx, item, src)); og != nil {
			meta = mergeMeta(meta, og)
		}
	}

	expected := titlematch.NormalizeSeries(item.Title)
	if expected == "" {
		expected = guessTitleFromURL(comparisonURL(item))
	}
	if expected == "" {
		expected = item.Title
	}

	if (meta == nil || meta.Thumb == "") && item.Service != models.ServiceYouTube {
		if hit, err := s.tmdb.searchPoster(ctx, expected); err != nil {
			log.Printf("[enrich] tmdb lookup for %q failed: %v", expected, err)
		} else if hit != nil && titlematch.LooseMatch(expected, hit.Title) {
			meta = mergeMeta(meta, hit)
		}
	}

	if (meta == nil || meta.Thumb == "") && item.Service != models.ServiceYouTube {
		if inferContentKind(item) == "tv" {
			if hit, err := s.tvmaze.searchPoster(ctx, expected); err != nil {
				log.Printf("[enrich] tvmaze lookup for %q failed: %v", expected, err)
			} else if hit != nil && titlematch.LooseMatch(expected, hit.Title) {
				meta = mergeMeta(meta, hit)
			}
		} else {
			if hit, err := s.itunes.searchArtwork(ctx, expected, "movie"); err != nil {
				log.Printf("[enrich] itunes lookup for %q failed: %v", expected, err)
			} else if hit != nil && titlematch.LooseMatch(expected, hit.Title) {
				meta = mergeMeta(meta, hit)
			}
		}
	}

	if meta != nil && meta.Thumb != "" {
		// Prime and Max CDNs reject probe requests while still serving
		// valid images; trust their URLs outright.
		if item.Service != models.ServicePrime && item.Service != models.ServiceMax {
			if !s.validateImage(ctx, meta.Thumb) {
				meta.Thumb = ""
			}
		}
	}
	return meta
}
