package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"regexp"
)

const itunesBaseURL = "https://itunes.apple.com"

// reArtworkSize matches the dimension segment of an iTunes artwork URL so it
// can be swapped for a larger rendition.
var reArtworkSize = regexp.MustCompile(`/\d+x\d+bb\.`)

// itunesClient pulls cover art from the iTunes Store search API. No key
// required. Used for movies; TV lookups go through TVmaze instead.
type itunesClient struct {
	httpc   *http.Client
	baseURL string
}

func newITunesClient(httpc *http.Client) *itunesClient {
	return &itunesClient{httpc: httpc, baseURL: itunesBaseURL}
}

type itunesSearchResponse struct {
	Results []struct {
		TrackName      string `json:"trackName"`
		CollectionName string `json:"collectionName"`
		ArtworkURL60   string `json:"artworkUrl60"`
		ArtworkURL100  string `json:"artworkUrl100"`
		ArtworkURL512  string `json:"artworkUrl512"`
		ArtworkURL600  string `json:"artworkUrl600"`
	} `json:"results"`
}

// searchArtwork looks up store artwork by title. kind is "movie" or "tv".
func (c *itunesClient) searchArtwork(ctx context.Context, query, kind string) (*Meta, error) {
	if query == "" {
		return nil, nil
	}
	media := "tvShow"
	if kind == "movie" {
		media = "movie"
	}
	endpoint := fmt.Sprintf("%s/search?term=%s&media=%s&limit=1", c.baseURL, url.QueryEscape(query), media)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpc.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("itunes search failed: %s", resp.Status)
	}

	var data itunesSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, nil
	}

	hit := data.Results[0]
	art := firstNonEmpty(hit.ArtworkURL100, hit.ArtworkURL60, hit.ArtworkURL512, hit.ArtworkURL600)
	if art == "" {
		return nil, nil
	}
	// Store thumbnails come back tiny; request the 600px rendition.
	art = reArtworkSize.ReplaceAllString(art, "/600x600bb.")

	title := firstNonEmpty(hit.TrackName, hit.CollectionName, query)
	return &Meta{Title: title, Thumb: art}, nil
}
