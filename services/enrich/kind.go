package enrich

import (
	"context"
	"net/url"
	"regexp"
	"strings"

	"rewatch/models"
	"rewatch/utils/titlematch"
)

var reNetflixWatch = regexp.MustCompile(`/watch/(\d+)`)

func comparisonURL(item models.ContentItem) string {
	if item.CanonicalURL != "" {
		return item.CanonicalURL
	}
	return item.URL
}

// inferContentKind guesses whether an item is a TV episode/series or a
// movie. Path shape wins; otherwise a colon in the title suggests an
// episode. Defaults to movie.
func inferContentKind(item models.ContentItem) string {
	if u, err := url.Parse(comparisonURL(item)); err == nil {
		host := u.Hostname()
		p := strings.ToLower(u.Path)
		switch {
		case strings.Contains(host, "peacocktv.com"):
			if strings.HasPrefix(p, "/movies/") {
				return "movie"
			}
			t := strings.ToLower(item.Title)
			if strings.HasPrefix(p, "/shows/") || strings.HasPrefix(p, "/watch") || strings.Contains(t, "episode") {
				return "tv"
			}
		case strings.Contains(host, "disneyplus.com") && strings.HasPrefix(p, "/movie/"):
			return "movie"
		case strings.Contains(host, "max.com") && strings.HasPrefix(p, "/video/"):
			return "tv"
		case strings.Contains(host, "hulu.com") && strings.HasPrefix(p, "/series/"):
			return "tv"
		case strings.Contains(host, "paramountplus.com") && strings.HasPrefix(p, "/movies/"):
			return "movie"
		}
	}
	if strings.Contains(item.Title, ":") {
		return "tv"
	}
	return "movie"
}

// slugTitleShape maps a host plus leading path segment to the segment index
// holding the title slug.
type slugTitleShape struct {
	host    string
	prefix  string
	slugIdx int
}

var slugTitleShapes = []slugTitleShape{
	{"peacocktv.com", "shows", 1},
	{"peacocktv.com", "movies", 1},
	{"hulu.com", "series", 1},
	{"hulu.com", "movie", 1},
	{"disneyplus.com", "series", 1},
	{"disneyplus.com", "movie", 1},
	{"max.com", "series", 1},
	{"paramountplus.com", "shows", 1},
}

// guessTitleFromURL derives a human-readable title guess from a detail-page
// slug, used as the expected title when the visit row's title is noise.
func guessTitleFromURL(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	segs := splitSegments(strings.ToLower(u.Path))
	if len(segs) == 0 {
		return ""
	}
	host := u.Hostname()

	for _, shape := range slugTitleShapes {
		if strings.Contains(host, shape.host) && segs[0] == shape.prefix && len(segs) > shape.slugIdx {
			return titlematch.FromSlug(segs[shape.slugIdx])
		}
	}

	if strings.Contains(host, "amazon.com") &&
		len(segs) > 3 && segs[0] == "gp" && segs[1] == "video" && segs[2] == "title" {
		return titlematch.FromSlug(segs[3])
	}
	return ""
}

func splitSegments(path string) []string {
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s != "" {
			out = append(out, s)
		}
	}
	return out
}

// contextURL picks the best page to scrape for an item: a series/detail page
// over a raw watch page whenever the URL shape lets us tell them apart. Hulu
// watch pages are opaque, so the visit graph is walked backwards for the
// detail page the user came from.
func (s *Service) contextURL(ctx context.Context, item models.ContentItem, src ContextSource) string {
	u, err := url.Parse(comparisonURL(item))
	if err != nil {
		return item.URL
	}
	p := strings.ToLower(u.Path)

	switch item.Service {
	case models.ServicePeacock:
		if strings.HasPrefix(u.Path, "/shows/") || strings.HasPrefix(u.Path, "/movies/") {
			return u.String()
		}
	case models.ServiceHulu:
		if strings.HasPrefix(p, "/movie/") || strings.HasPrefix(p, "/series/") {
			return u.String()
		}
		if strings.HasPrefix(p, "/watch/") && src != nil {
			if ctxURL := s.findHuluContextURL(ctx, src, u.String()); ctxURL != "" {
				return ctxURL
			}
		}
	case models.ServiceNetflix:
		if m := reNetflixWatch.FindStringSubmatch(u.Path); m != nil {
			return "https://www.netflix.com/title/" + m[1]
		}
		if strings.HasPrefix(u.Path, "/title/") {
			return u.String()
		}
	case models.ServicePrime:
		host := u.Hostname()
		if strings.Contains(host, "primevideo.com") {
			if strings.HasPrefix(u.Path, "/detail/") || strings.HasPrefix(u.Path, "/watch/") {
				return u.String()
			}
		} else if strings.Contains(host, "amazon.com") {
			if strings.HasPrefix(p, "/gp/video/detail/") ||
				strings.HasPrefix(p, "/gp/video/title/") ||
				strings.HasPrefix(p, "/gp/video/play/") {
				return u.String()
			}
		}
	}
	return item.URL
}

const huluContextMaxHops = 5

// findHuluContextURL walks the referrer chain backwards from a Hulu watch
// page looking for the series or movie page it was launched from. Bounded
// and best-effort: any miss returns "".
func (s *Service) findHuluContextURL(ctx context.Context, src ContextSource, watchURL string) string {
	start, err := src.LatestVisitForURL(ctx, watchURL)
	if err != nil || start == nil {
		return ""
	}

	fromID := start.FromVisitID
	for i := 0; i < huluContextMaxHops && fromID != 0; i++ {
		hop, err := src.VisitByID(ctx, fromID)
		if err != nil || hop == nil {
			return ""
		}
		fromID = hop.FromVisitID

		u, err := url.Parse(hop.URL)
		if err != nil {
			continue
		}
		if !strings.Contains(u.Hostname(), "hulu.com") {
			continue
		}
		p := strings.ToLower(u.Path)
		if strings.HasPrefix(p, "/movie/") || strings.HasPrefix(p, "/series/") {
			return hop.URL
		}
	}
	return ""
}
