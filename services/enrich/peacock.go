package enrich

import (
	"context"
	"fmt"
)

const peacockImageBaseURL = "https://imageservice.disco.peacocktv.com"

// peacockImageVariant describes one size/aspect rendition offered by
// Peacock's image service.
type peacockImageVariant struct {
	variant string
	size    string
}

// Tried in order; wide cover art first because the dashboard renders
// landscape cards.
var peacockImageVariants = []peacockImageVariant{
	{"COVER_TITLE_WIDE", "780x439"},
	{"COVER_TITLE_WIDE", "1280x720"},
	{"COVER_TITLE_TALL", "600x900"},
}

// peacockImageURL builds a direct image-service URL for an asset UUID.
func peacockImageURL(assetID string, v peacockImageVariant) string {
	return fmt.Sprintf(
		"%s/uuid/%s/%s/%s?image-quality=85&image-format=webp&language=eng&proposition=NBCUOTT",
		peacockImageBaseURL, assetID, v.variant, v.size,
	)
}

// choosePeacockImage probes the size variants for an asset and returns the
// first reachable one, or "" when none respond.
func (s *Service) choosePeacockImage(ctx context.Context, assetID string) string {
	for _, v := range peacockImageVariants {
		u := peacockImageURL(assetID, v)
		if s.validateImage(ctx, u) {
			return u
		}
	}
	return ""
}
