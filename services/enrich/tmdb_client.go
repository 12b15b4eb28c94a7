package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

const (
	tmdbBaseURL      = "https://api.themoviedb.org/3"
	tmdbImageBaseURL = "https://image.tmdb.org/t/p"
	// w780 backdrops are wide enough for dashboard cards without pulling
	// "original" sized files.
	tmdbImageSize = "w780"
)

// tmdbClient searches TMDB across movies and TV in one call. Requires an
// API key; an empty key disables the client.
type tmdbClient struct {
	apiKey  string
	httpc   *http.Client
	baseURL string
}

func newTMDBClient(apiKey string, httpc *http.Client) *tmdbClient {
	return &tmdbClient{apiKey: strings.TrimSpace(apiKey), httpc: httpc, baseURL: tmdbBaseURL}
}

func (c *tmdbClient) isConfigured() bool {
	return c != nil && c.apiKey != ""
}

type tmdbSearchResponse struct {
	Results []struct {
		Name         string `json:"name"`
		Title        string `json:"title"`
		PosterPath   string `json:"poster_path"`
		BackdropPath string `json:"backdrop_path"`
	} `json:"results"`
}

// searchPoster looks a title up via TMDB multi search and returns the top
// hit's name and backdrop (poster as fallback). No retries: a failed lookup
// just advances the fallback chain.
func (c *tmdbClient) searchPoster(ctx context.Context, query string) (*Meta, error) {
	if !c.isConfigured() || query == "" {
		return nil, nil
	}
	endpoint := fmt.Sprintf("%s/search/multi?api_key=%s&query=%s&include_adult=false",
		c.baseURL, url.QueryEscape(c.apiKey), url.QueryEscape(query))

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
		return nil, fmt.Errorf("tmdb search failed: %s", resp.Status)
	}

	var data tmdbSearchResponse
	if err := json.NewDecoder(resp.Body).Decode(&data); err != nil {
		return nil, err
	}
	if len(data.Results) == 0 {
		return nil, nil
	}

	hit := data.Results[0]
	imgPath := hit.BackdropPath
	if imgPath == "" {
		imgPath = hit.PosterPath
	}
	if imgPath == "" {
		return nil, nil
	}

	title := hit.Name
	if title == "" {
		title = hit.Title
	}
	if title == "" {
		title = query
	}
	return &Meta{Title: title, Thumb: tmdbImageBaseURL + "/" + tmdbImageSize + imgPath}, nil
}
