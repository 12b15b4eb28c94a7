// Package titlematch normalizes streaming titles and provides the loose
// matching used to validate metadata-provider search results.
package titlematch

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"
)

// Episode/season markers and marketing noise removed when reducing an
// episode title to its series title.
var (
	reSeasonEpisode = regexp.MustCompile(`(?i)\bS\d{1,2}\s*[:x]?\s*E\d{1,3}\b`)
	reSeason        = regexp.MustCompile(`(?i)\bSeason\s*\d+\b`)
	reEpisode       = regexp.MustCompile(`(?i)\bEpisode\s*\d+\b`)
	reEp            = regexp.MustCompile(`(?i)\bEp\.?\s*\d+\b`)
	reChapter       = regexp.MustCompile(`(?i)\bChapter\s*\d+\b`)
	rePart          = regexp.MustCompile(`(?i)\bPart\s*\d+\b`)
	reParenMarker   = regexp.MustCompile(`(?i)\(\s*(S\d+\s*[:x]?\s*E\d+|Episode\s*\d+|Ep\.?\s*\d+)\s*\)`)
	rePeacockSuffix = regexp.MustCompile(`(?i)\s*[•\-–—|:]\s*Peacock\b`)
	reEditionNoise  = regexp.MustCompile(`(?i)\b(Superfan Episodes|Extras|Bonus|Extended Cut|Director'?s Cut|Unrated|Extended)\b`)
	reSeparators    = regexp.MustCompile(`\s*[•\-–—|:]\s*`)
	reMultiSpace    = regexp.MustCompile(`\s{2,}`)
)

// NormalizeSeries strips season/episode/chapter/part markers and known
// service noise from a title, leaving the bare series name. Returns "" when
// nothing survives.
func NormalizeSeries(raw string) string {
	t := raw
	t = reSeasonEpisode.ReplaceAllString(t, "")
	t = reSeason.ReplaceAllString(t, "")
	t = reEpisode.ReplaceAllString(t, "")
	t = reEp.ReplaceAllString(t, "")
	t = reChapter.ReplaceAllString(t, "")
	t = rePart.ReplaceAllString(t, "")
	t = reParenMarker.ReplaceAllString(t, "")
	t = rePeacockSuffix.ReplaceAllString(t, "")
	t = reEditionNoise.ReplaceAllString(t, "")
	t = reSeparators.ReplaceAllString(t, " ")
	t = reMultiSpace.ReplaceAllString(t, " ")
	return strings.TrimSpace(t)
}

// Canonical lowercases a title and reduces it to alphanumeric tokens
// separated by single spaces, so punctuation and casing differences do not
// affect comparison.
func Canonical(t string) string {
	var b strings.Builder
	b.Grow(len(t))
	for _, r := range strings.ToLower(t) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
		} else {
			b.WriteRune(' ')
		}
	}
	return strings.Join(strings.Fields(b.String()), " ")
}

// LooseMatch reports whether a provider-returned title plausibly names the
// same content as the expected title. Accepts when at least half of the
// expected tokens appear in the candidate, or when either canonical form
// contains the other. The threshold is forgiving on purpose: provider
// titles carry region tags and subtitles ("The Office (US)").
func LooseMatch(expected, candidate string) bool {
	expected = Canonical(expected)
	candidate = Canonical(candidate)
	if expected == "" || candidate == "" {
		return false
	}

	candTokens := map[string]bool{}
	for _, tok := range strings.Fields(candidate) {
		candTokens[tok] = true
	}

	expTokens := strings.Fields(expected)
	hits := 0
	for _, tok := range expTokens {
		if candTokens[tok] {
			hits++
		}
	}

	if float64(hits)/float64(len(expTokens)) >= 0.5 {
		return true
	}
	return strings.Contains(candidate, expected) || strings.Contains(expected, candidate)
}

// FromSlug turns a URL path slug ("stranger-things") into a displayable
// title guess.
func FromSlug(slug string) string {
	if decoded, err := url.PathUnescape(slug); err == nil {
		slug = decoded
	}
	return strings.TrimSpace(strings.ReplaceAll(slug, "-", " "))
}
