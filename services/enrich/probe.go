package enrich

import (
	"context"
	"io"
	"net/http"
)

// browserUA maximizes the chance that streaming sites serve their full
// OpenGraph/Twitter metadata instead of a bot-gate page.
const browserUA = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/126.0 Safari/537.36"

// validateImage probes a candidate thumbnail URL for reachability: HEAD
// first, then a one-byte ranged GET for CDNs that reject HEAD.
func (s *Service) validateImage(ctx context.Context, imgURL string) bool {
	if s.probeImage(ctx, imgURL, http.MethodHead, false) {
		return true
	}
	return s.probeImage(ctx, imgURL, http.MethodGet, true)
}

func (s *Service) probeImage(ctx context.Context, imgURL, method string, ranged bool) bool {
	req, err := http.NewRequestWithContext(ctx, method, imgURL, nil)
	if err != nil {
		return false
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept", "image/*")
	req.Header.Set("Referer", "https://www.google.com/")
	if ranged {
		req.Header.Set("Range", "bytes=0-0")
	}

	resp, err := s.httpc.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, io.LimitReader(resp.Body, 1024))
	return resp.StatusCode >= 200 && resp.StatusCode < 300
}
