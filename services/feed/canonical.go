package feed

import (
	"net/url"
	"regexp"
	"strings"

	"rewatch/models"

	"github.com/google/uuid"
)

var (
	reUUID            = regexp.MustCompile(`[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`)
	rePeacockWatchID  = regexp.MustCompile(`(?i)/watch/(?:playback|asset|play)/([^/?#]+)`)
	rePeacockPlayback = regexp.MustCompile(`/watch/playback/([^/?#]+)`)
	rePeacockAsset    = regexp.MustCompile(`/watch/asset/([^/?#]+)`)
	rePeacockPlay     = regexp.MustCompile(`/watch/play/([^/?#]+)`)
	rePrimeDetail     = regexp.MustCompile(`/detail/([^/?]+)`)
	rePrimeWatch      = regexp.MustCompile(`/watch/([^/?]+)`)
	reAmazonVideo     = regexp.MustCompile(`/gp/video/(?:detail|title|play)/([^/?]+)`)
)

// peacockIDParams are the query parameter names Peacock uses to carry an
// asset identifier on watch URLs.
var peacockIDParams = []string{"playbackId", "assetId", "asset_id", "id", "cid", "uuid"}

// extractUUID pulls the first UUID-shaped token out of a string and
// validates it. Returns "" when none is present.
func extractUUID(s string) string {
	m := reUUID.FindString(s)
	if m == "" {
		return ""
	}
	if _, err := uuid.Parse(m); err != nil {
		return ""
	}
	return m
}

func hasPathPrefix(path, prefix string) bool {
	return strings.HasPrefix(path, prefix)
}

func containsHost(host, fragment string) bool {
	return strings.Contains(host, fragment)
}

func lowerPath(u *url.URL) string {
	return strings.ToLower(u.Path)
}

// Canonicalize maps an item's URL to its stable comparison form and extracts
// auxiliary identifiers. The original URL is never touched. Returns false
// when the URL is a known non-content page and the item should be dropped.
//
// Canonicalization is pure and idempotent: running it on an already
// canonical item yields the same item.
func Canonicalize(item models.ContentItem) (models.ContentItem, bool) {
	u, err := url.Parse(item.URL)
	if err != nil {
		item.CanonicalURL = item.URL
		return item, true
	}

	canon := *u
	changed := false
	host := u.Hostname()

	switch {
	case containsHost(host, "peacocktv.com"):
		if peacockNonContent[u.Path] {
			return item, false
		}

		rawID := ""
		if m := rePeacockWatchID.FindStringSubmatch(u.Path); m != nil {
			rawID = m[1]
		} else {
			for _, p := range peacockIDParams {
				if v := u.Query().Get(p); v != "" {
					rawID = v
					break
				}
			}
		}
		if id := extractUUID(rawID); id != "" {
			item.PeacockAssetID = id
		} else if id := extractUUID(item.URL); id != "" {
			item.PeacockAssetID = id
		}

		if hasPathPrefix(u.Path, "/watch") {
			q := u.Query()
			qpID := q.Get("playbackId")
			if qpID == "" {
				qpID = q.Get("assetId")
			}
			if qpID == "" {
				qpID = q.Get("asset_id")
			}
			if qpID == "" {
				qpID = q.Get("id")
			}
			switch {
			case rePeacockPlayback.MatchString(u.Path):
				canon.Path = "/watch/playback/" + rePeacockPlayback.FindStringSubmatch(u.Path)[1]
				changed = true
			case rePeacockAsset.MatchString(u.Path):
				canon.Path = "/watch/asset/" + rePeacockAsset.FindStringSubmatch(u.Path)[1]
				changed = true
			case rePeacockPlay.MatchString(u.Path):
				canon.Path = "/watch/play/" + rePeacockPlay.FindStringSubmatch(u.Path)[1]
				changed = true
			case qpID != "":
				canon.Path = "/watch/playback/" + qpID
				changed = true
			}
		} else if hasPathPrefix(u.Path, "/shows/") || hasPathPrefix(u.Path, "/movies/") {
			if strings.HasSuffix(canon.Path, "/") {
				canon.Path = strings.TrimSuffix(canon.Path, "/")
				changed = true
			}
		}

	case containsHost(host, "primevideo.com"):
		if m := rePrimeDetail.FindStringSubmatch(u.Path); m != nil {
			canon.Path = "/detail/" + m[1]
			changed = true
		} else if m := rePrimeWatch.FindStringSubmatch(u.Path); m != nil {
			canon.Path = "/watch/" + m[1]
			changed = true
		}

	case containsHost(host, "amazon.com"):
		if m := reAmazonVideo.FindStringSubmatch(u.Path); m != nil {
			canon.Path = "/gp/video/detail/" + m[1]
			changed = true
		}
	}

	if changed {
		canon.RawQuery = ""
		canon.Fragment = ""
		item.CanonicalURL = canon.String()
	} else {
		item.CanonicalURL = item.URL
	}
	return item, true
}

// CanonicalizeAll runs Canonicalize over a batch, dropping rejected items.
func CanonicalizeAll(items []models.ContentItem) []models.ContentItem {
	out := items[:0]
	for _, it := range items {
		c, ok := Canonicalize(it)
		if !ok {
			continue
		}
		out = append(out, c)
	}
	return out
}
