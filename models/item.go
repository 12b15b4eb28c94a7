package models

// Service identifies the streaming platform a content item was watched on.
type Service string

const (
	ServiceYouTube   Service = "youtube"
	ServiceNetflix   Service = "netflix"
	ServiceHulu      Service = "hulu"
	ServiceDisney    Service = "disney"
	ServicePrime     Service = "prime"
	ServiceMax       Service = "max"
	ServicePeacock   Service = "peacock"
	ServiceParamount Service = "paramount"
)

// VisitRecord is one raw row from the browser history store. Timestamps are
// already converted to Unix milliseconds by the history service.
type VisitRecord struct {
	URL         string
	Title       string
	VisitTime   int64 // Unix ms
	VisitID     int64
	FromVisitID int64 // 0 when the visit had no referrer
}

// ContentItem is one watchable entry derived from browsing history. It is
// created by the per-service extractors and enriched in place as it moves
// through the pipeline.
type ContentItem struct {
	Service Service `json:"service"`
	// ID is the stable video id for YouTube items; other services derive
	// identity from CanonicalURL instead.
	ID string `json:"id,omitempty"`
	// URL is the originally visited URL, used for navigation. Never mutated.
	URL string `json:"url"`
	// CanonicalURL is the normalized comparison/dedup form. Defaults to URL
	// when no service rule applies.
	CanonicalURL string `json:"canonicalUrl"`
	Title        string `json:"title,omitempty"`
	Thumb        string `json:"thumb,omitempty"`
	// LastVisited is the most recent visit time in Unix milliseconds.
	LastVisited int64 `json:"lastVisited"`
	// PeacockAssetID is a UUID extracted from Peacock watch URLs, used only
	// for the direct image service lookup.
	PeacockAssetID string `json:"peacockAssetId,omitempty"`
}

// Profile describes one browser profile that has a History database.
type Profile struct {
	ID         string `json:"id"`    // directory name, e.g. "Default", "Profile 1"
	Label      string `json:"label"` // friendly name from Local State, else ID
	Path       string `json:"path"`  // absolute path to the History file
	ModifiedMs int64  `json:"mtimeMs"`
}

// Feed is the aggregation result returned to the dashboard.
type Feed struct {
	Items       []ContentItem `json:"items"`
	RecencyDays int           `json:"recencyDays"`
}
