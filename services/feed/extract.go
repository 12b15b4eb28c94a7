package feed

import (
	"context"
	"net/url"
	"strings"

	"rewatch/models"
)

// youTubeVideoID extracts the video id from any of the watch URL shapes
// YouTube uses: youtu.be short links, /shorts/ paths, and /watch?v= pages.
func youTubeVideoID(u *url.URL) string {
	host := u.Hostname()
	switch {
	case containsHost(host, "youtu.be"):
		return firstPathSegment(u.Path, 0)
	case hasPathPrefix(u.Path, "/shorts/"):
		return firstPathSegment(u.Path, 1)
	default:
		return u.Query().Get("v")
	}
}

func firstPathSegment(path string, n int) string {
	segs := splitPath(path)
	if n < len(segs) {
		return segs[n]
	}
	return ""
}

func splitPath(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// extractYouTube converts raw YouTube visit rows to content items. Rows are
// expected newest-first; repeat visits of the same video keep only the first
// (most recent) occurrence. Rows older than the cutoff are skipped.
func extractYouTube(rows []models.VisitRecord, cutoffMs int64) []models.ContentItem {
	seen := map[string]bool{}
	var items []models.ContentItem

	for _, r := range rows {
		if r.VisitTime < cutoffMs {
			continue
		}
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		id := youTubeVideoID(u)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true

		title := r.Title
		if title == "" {
			title = "YouTube Video"
		}
		items = append(items, models.ContentItem{
			Service:      models.ServiceYouTube,
			ID:           id,
			URL:          "https://www.youtube.com/watch?v=" + id,
			CanonicalURL: "https://www.youtube.com/watch?v=" + id,
			Title:        title,
			Thumb:        "https://img.youtube.com/vi/" + id + "/hqdefault.jpg",
			LastVisited:  r.VisitTime,
		})
	}
	return items
}

// extractStreaming classifies raw streaming-domain visit rows against the
// per-service rule table and canonicalizes accepted candidates. Rows are
// expected newest-first; items sharing a canonical URL keep only the first
// occurrence. Prime watch pages that fail the preferred patterns get one
// chance at a richer context URL via the forward visit graph.
func extractStreaming(ctx context.Context, graph visitGraph, rows []models.VisitRecord, cutoffMs int64) []models.ContentItem {
	seenCanonical := map[string]bool{}
	var items []models.ContentItem

	for _, r := range rows {
		if r.VisitTime < cutoffMs {
			continue
		}
		u, err := url.Parse(r.URL)
		if err != nil {
			continue
		}
		rule := ruleForHost(u.Hostname())
		if rule == nil {
			continue
		}

		if rule.Content != nil {
			if !rule.Content(u) {
				continue
			}
		} else if len(rule.Prefer) > 0 {
			target := u.Path
			if u.RawQuery != "" {
				target += "?" + u.RawQuery
			}
			preferred := false
			for _, rx := range rule.Prefer {
				if rx.MatchString(target) {
					preferred = true
					break
				}
			}

			if !preferred && rule.Service == models.ServicePrime && graph != nil {
				if ctxURL := findPrimeForwardContext(ctx, graph, r.VisitID); ctxURL != "" {
					if cu, err := url.Parse(ctxURL); err == nil {
						u = cu
						preferred = true
					}
				}
			}
			if !preferred {
				continue
			}
		}

		title := r.Title
		if title == "" {
			title = string(rule.Service)
		}
		item, ok := Canonicalize(models.ContentItem{
			Service:     rule.Service,
			URL:         u.String(),
			Title:       title,
			LastVisited: r.VisitTime,
		})
		if !ok {
			continue
		}

		if seenCanonical[item.CanonicalURL] {
			continue
		}
		seenCanonical[item.CanonicalURL] = true
		items = append(items, item)
	}
	return items
}
