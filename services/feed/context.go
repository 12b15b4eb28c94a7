package feed

import (
	"context"
	"net/url"

	"rewatch/models"
)

// visitGraph is the slice of the history session the forward context
// resolver needs.
type visitGraph interface {
	ChildVisits(ctx context.Context, visitID int64, limit int) ([]models.VisitRecord, error)
}

const (
	contextMaxDepth  = 5
	contextMaxFanout = 6
)

// findPrimeForwardContext searches the visits that originated from a Prime
// watch page for a detail/title/play page nearby in the same browsing
// session. Prime watch URLs are opaque, so a richer context page is the only
// way to identify the content.
//
// The traversal is breadth-first with bounded depth and fan-out, preferring
// closer hops. It tolerates cycles and always terminates; any failure just
// means no better context was found.
func findPrimeForwardContext(ctx context.Context, graph visitGraph, startVisitID int64) string {
	frontier := []int64{startVisitID}
	seen := map[int64]bool{startVisitID: true}

	for depth := 0; depth < contextMaxDepth && len(frontier) > 0; depth++ {
		var next []int64
		for _, id := range frontier {
			children, err := graph.ChildVisits(ctx, id, contextMaxFanout)
			if err != nil {
				return ""
			}
			for _, child := range children {
				if seen[child.VisitID] {
					continue
				}
				seen[child.VisitID] = true
				next = append(next, child.VisitID)

				if isPrimeContextURL(child.URL) {
					return child.URL
				}
			}
		}
		frontier = next
	}
	return ""
}

func isPrimeContextURL(raw string) bool {
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	host := u.Hostname()
	p := lowerPath(u)
	if containsHost(host, "primevideo.com") {
		return hasPathPrefix(p, "/detail/") || hasPathPrefix(p, "/watch/")
	}
	if containsHost(host, "amazon.com") {
		return hasPathPrefix(p, "/gp/video/detail/") ||
			hasPathPrefix(p, "/gp/video/title/") ||
			hasPathPrefix(p, "/gp/video/play/")
	}
	return false
}
