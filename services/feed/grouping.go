package feed

import (
	"net/url"
	"regexp"
	"sort"
	"strings"

	"rewatch/models"
	"rewatch/utils/titlematch"
)

// slugKeyRule extracts a series grouping key from a canonical URL path for
// one service. First matching rule wins.
type slugKeyRule struct {
	host    string
	pattern *regexp.Regexp
	keyFmt  string // key prefix, slug appended
}

var slugKeyRules = []slugKeyRule{
	{"peacocktv.com", regexp.MustCompile(`/movies/([^/]+)`), "peacock:movies:"},
	{"peacocktv.com", regexp.MustCompile(`/shows/([^/]+)`), "peacock:shows:"},
	{"netflix.com", regexp.MustCompile(`/title/(\d+)`), "netflix:title:"},
	{"primevideo.com", regexp.MustCompile(`/detail/([^/?]+)`), "prime:detail:"},
	{"paramountplus.com", regexp.MustCompile(`/shows/([^/]+)`), "paramount:shows:"},
	{"max.com", regexp.MustCompile(`/series/([^/]+)`), "max:series:"},
	{"max.com", regexp.MustCompile(`/video/([^/]+)`), "max:video:"},
	{"disneyplus.com", regexp.MustCompile(`/series/([^/]+)`), "disney:series:"},
	{"disneyplus.com", regexp.MustCompile(`/movie/([^/]+)`), "disney:movie:"},
	{"hulu.com", regexp.MustCompile(`/series/([^/]+)`), "hulu:series:"},
}

// episodicServices are grouped across visits; YouTube is excluded so every
// video stays its own entry.
var episodicServices = map[models.Service]bool{
	models.ServiceNetflix:   true,
	models.ServiceHulu:      true,
	models.ServiceDisney:    true,
	models.ServicePrime:     true,
	models.ServiceMax:       true,
	models.ServicePeacock:   true,
	models.ServiceParamount: true,
}

func groupingURL(item models.ContentItem) string {
	if item.CanonicalURL != "" {
		return item.CanonicalURL
	}
	return item.URL
}

// urlSeriesKey derives a grouping key from the canonical URL's slug or id
// segment. Returns "" when the URL shape carries no series identity. Peacock
// watch URLs intentionally yield no URL key: distinct playback ids for the
// same show would defeat grouping.
func urlSeriesKey(item models.ContentItem) string {
	u, err := url.Parse(groupingURL(item))
	if err != nil {
		return ""
	}
	p := lowerPath(u)
	host := u.Hostname()
	for _, r := range slugKeyRules {
		if !containsHost(host, r.host) {
			continue
		}
		if m := r.pattern.FindStringSubmatch(p); m != nil {
			return r.keyFmt + m[1]
		}
	}
	return ""
}

// thumbKey fingerprints an item by its thumbnail filename, as a last resort
// when neither URL nor title identify the series. Skipped for Peacock, which
// reuses generic artwork across unrelated titles.
func thumbKey(item models.ContentItem) string {
	if item.Thumb == "" {
		return ""
	}
	u, err := url.Parse(item.Thumb)
	if err != nil {
		return ""
	}
	segs := splitPath(u.Path)
	if len(segs) == 0 {
		return ""
	}
	return string(item.Service) + ":thumb:" + strings.ToLower(segs[len(segs)-1])
}

// seriesKey computes the grouping key for an item: URL slug first, then
// normalized title, then thumbnail fingerprint. Returns "" when no key can
// be derived; such items pass through ungrouped.
func seriesKey(item models.ContentItem) string {
	if !episodicServices[item.Service] {
		return ""
	}
	if k := urlSeriesKey(item); k != "" {
		return k
	}
	norm := titlematch.NormalizeSeries(item.Title)
	if norm == "" {
		norm = strings.TrimSpace(item.Title)
	}
	if norm != "" {
		return string(item.Service) + ":title:" + strings.ToLower(norm)
	}
	if item.Service != models.ServicePeacock {
		if k := thumbKey(item); k != "" {
			return k
		}
	}
	return ""
}

// primeStorefrontPrefixes are Prime navigation pages that sometimes slip
// through classification via the context resolver.
var primeStorefrontPrefixes = []string{"/Amazon-Video/b/", "/gp/video/storefront"}

// isNonContentSurvivor flags items that survived grouping but are really a
// service's landing page, identified by path or bare marketing title.
func isNonContentSurvivor(item models.ContentItem) bool {
	switch item.Service {
	case models.ServicePeacock:
		u, err := url.Parse(groupingURL(item))
		path := ""
		if err == nil {
			path = u.Path
		}
		title := strings.ToLower(item.Title)
		if peacockNonContent[path] {
			return true
		}
		return title == "peacock" || strings.Contains(title, "home - peacock")
	case models.ServicePrime:
		u, err := url.Parse(groupingURL(item))
		path := ""
		if err == nil {
			path = u.Path
		}
		for _, prefix := range primeStorefrontPrefixes {
			if hasPathPrefix(path, prefix) {
				return true
			}
		}
		return strings.ToLower(item.Title) == "prime video"
	}
	return false
}

// DedupeSeries collapses multiple visits of the same show into the most
// recently visited entry, drops surviving non-content pages, and sorts the
// result newest first. Pure function of its input; membership does not
// depend on input order.
func DedupeSeries(items []models.ContentItem) []models.ContentItem {
	latestByKey := map[string]models.ContentItem{}
	var keyOrder []string
	var keepAsIs []models.ContentItem

	for _, it := range items {
		key := seriesKey(it)
		if key == "" {
			keepAsIs = append(keepAsIs, it)
			continue
		}
		prev, ok := latestByKey[key]
		if !ok {
			keyOrder = append(keyOrder, key)
			latestByKey[key] = it
		} else if it.LastVisited > prev.LastVisited {
			latestByKey[key] = it
		}
	}

	out := make([]models.ContentItem, 0, len(keyOrder)+len(keepAsIs))
	for _, key := range keyOrder {
		out = append(out, latestByKey[key])
	}
	out = append(out, keepAsIs...)

	filtered := out[:0]
	for _, it := range out {
		if isNonContentSurvivor(it) {
			continue
		}
		filtered = append(filtered, it)
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].LastVisited > filtered[j].LastVisited
	})
	return filtered
}
