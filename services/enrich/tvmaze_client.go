package enrich

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
)

const tvmazeBaseURL = "https://api.tvmaze.com"

// tvmazeClient resolves TV show artwork through TVmaze's free singlesearch
// endpoint. No key required.
type tvmazeClient struct {
	httpc   *http.Client
	baseURL string
}

func newTVMazeClient(httpc *http.Client) *tvmazeClient {
	return &tvmazeClient{httpc: httpc, baseURL: tvmazeBaseURL}
}

type tvmazeShow struct {
	Name  string `json:"name"`
	Image *struct {
		Medium   string `json:"medium"`
		Original string `json:"original"`
	} `json:"image"`
}

func (c *tvmazeClient) searchPoster(ctx context.Context, query string) (*Meta, error) {
	if query == "" {
		return nil, nil
	}
	endpoint := c.baseURL + "/singlesearch/shows?q=" + url.QueryEscape(query)

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
		return nil, fmt.Errorf("tvmaze search failed: %s", resp.Status)
	}

	var show tvmazeShow
	if err := json.NewDecoder(resp.Body).Decode(&show); err != nil {
		return nil, err
	}
	if show.Image == nil {
		return nil, nil
	}
	img := show.Image.Original
	if img == "" {
		img = show.Image.Medium
	}
	if img == "" {
		return nil, nil
	}
	title := show.Name
	if title == "" {
		title = query
	}
	return &Meta{Title: title, Thumb: img}, nil
}
