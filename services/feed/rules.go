package feed

import (
	"net/url"
	"regexp"

	"rewatch/models"
)

// serviceRule describes how one streaming service's URLs are classified.
// A visited URL is treated as watchable content when its path+query matches
// any preferred pattern. Rules with no patterns accept everything and rely
// on the canonicalizer's non-content exclusions instead.
type serviceRule struct {
	Service models.Service
	Match   string // hostname fragment
	Prefer  []*regexp.Regexp
	// Content overrides pattern matching entirely when set (Peacock's watch
	// URLs carry their identity in query parameters, not the path).
	Content func(u *url.URL) bool
}

var serviceRules = []serviceRule{
	{
		Service: models.ServiceNetflix,
		Match:   "netflix.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/watch/\d+`),
			regexp.MustCompile(`/title/\d+`),
		},
	},
	{
		Service: models.ServiceHulu,
		Match:   "hulu.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/watch/[A-Za-z0-9]+`),
			regexp.MustCompile(`/series/[^/]+`),
			regexp.MustCompile(`/movie/[^/]+`),
		},
	},
	{
		Service: models.ServiceDisney,
		Match:   "disneyplus.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/video/[A-Za-z0-9-]+`),
			regexp.MustCompile(`/player/[A-Za-z0-9-]+`),
			regexp.MustCompile(`/movies/[^/]+(?:/[A-Za-z0-9-]+)?`),
			regexp.MustCompile(`/series/[^/]+(?:/[A-Za-z0-9-]+)?`),
			regexp.MustCompile(`/details/[^/?]+`),
			regexp.MustCompile(`/browse/entity-[A-Za-z0-9-]+`),
			regexp.MustCompile(`[?&](entityId|contentId|videoId)=`),
		},
	},
	{
		Service: models.ServicePrime,
		Match:   "primevideo.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/detail/[^/]+`),
			regexp.MustCompile(`/watch/[^/?]+`),
		},
	},
	{
		Service: models.ServicePrime,
		Match:   "amazon.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/gp/video/detail/[^/?]+`),
			regexp.MustCompile(`/gp/video/title/[^/?]+`),
			regexp.MustCompile(`/gp/video/play/[^/?]+`),
		},
	},
	{
		Service: models.ServiceMax,
		Match:   "max.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/video/[A-Za-z0-9-]+`),
			regexp.MustCompile(`/series/[^/]+`),
			regexp.MustCompile(`/movie/[^/]+`),
		},
	},
	{
		Service: models.ServicePeacock,
		Match:   "peacocktv.com",
		Content: peacockContent,
	},
	{
		Service: models.ServiceParamount,
		Match:   "paramountplus.com",
		Prefer: []*regexp.Regexp{
			regexp.MustCompile(`/shows/.+/video/[A-Za-z0-9]+`),
			regexp.MustCompile(`/movies/[^/]+/[A-Za-z0-9]+`),
			regexp.MustCompile(`/shows/[^/]+`),
		},
	},
}

// peacockNonContent lists Peacock paths that are navigation, not content.
var peacockNonContent = map[string]bool{
	"/":         true,
	"/start":    true,
	"/home":     true,
	"/browse":   true,
	"/channels": true,
	"/sports":   true,
	"/kids":     true,
	"/account":  true,
}

func peacockContent(u *url.URL) bool {
	if peacockNonContent[u.Path] {
		return false
	}
	switch {
	case hasPathPrefix(u.Path, "/watch"),
		hasPathPrefix(u.Path, "/shows/"),
		hasPathPrefix(u.Path, "/movies/"):
		return true
	}
	q := u.Query()
	return q.Has("playbackId") || q.Has("assetId") || q.Has("asset_id") || q.Has("id")
}

// streamingHosts returns the hostname fragments queried from the history
// store in one combined pull.
func streamingHosts() []string {
	out := make([]string, 0, len(serviceRules))
	for _, r := range serviceRules {
		out = append(out, r.Match)
	}
	return out
}

// ruleForHost matches a hostname to its service rule.
func ruleForHost(host string) *serviceRule {
	for i := range serviceRules {
		if containsHost(host, serviceRules[i].Match) {
			return &serviceRules[i]
		}
	}
	return nil
}
