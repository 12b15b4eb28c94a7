package enrich

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ldContentTypes are the schema.org types whose name/image fields identify
// watchable content.
var ldContentTypes = map[string]bool{
	"Movie":       true,
	"TVSeries":    true,
	"TVEpisode":   true,
	"VideoObject": true,
}

// fetchPageMeta scrapes a page's embedded metadata: OpenGraph and Twitter
// card tags first, JSON-LD structured data as backup. Returns nil on any
// fetch or parse failure.
func (s *Service) fetchPageMeta(ctx context.Context, pageURL string) *Meta {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return nil
	}
	req.Header.Set("User-Agent", browserUA)
	req.Header.Set("Accept-Language", "en-US,en;q=0.9")
	req.Header.Set("Accept", "text/html,*/*")
	req.Header.Set("Referer", "https://www.google.com/")

	resp, err := s.httpc.Do(req)
	if err != nil {
		return nil
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return nil
	}

	title := metaContent(doc, `meta[property="og:title"]`)
	if title == "" {
		title = metaContent(doc, `meta[name="twitter:title"]`)
	}
	if title == "" {
		title = strings.TrimSpace(doc.Find("title").First().Text())
	}

	imageSecure := metaContent(doc, `meta[property="og:image:secure_url"]`)
	image := metaContent(doc, `meta[property="og:image"]`)
	if image == "" {
		image = metaContent(doc, `meta[name="twitter:image"]`)
	}

	ldTitle, ldImage := jsonLDMeta(doc)
	if title == "" {
		title = ldTitle
	}

	thumb := firstNonEmpty(
		absolutize(imageSecure, pageURL),
		absolutize(image, pageURL),
		absolutize(ldImage, pageURL),
	)

	if title == "" && thumb == "" {
		return nil
	}
	return &Meta{Title: title, Thumb: thumb}
}

func metaContent(doc *goquery.Document, selector string) string {
	content, _ := doc.Find(selector).First().Attr("content")
	return strings.TrimSpace(content)
}

// jsonLDMeta scans JSON-LD script blocks for a Movie/TVSeries/TVEpisode/
// VideoObject entity and pulls its name and image. Malformed blocks are
// skipped.
func jsonLDMeta(doc *goquery.Document) (title, image string) {
	doc.Find(`script[type="application/ld+json"]`).EachWithBreak(func(_ int, sel *goquery.Selection) bool {
		var raw any
		if err := json.Unmarshal([]byte(sel.Text()), &raw); err != nil {
			return true
		}
		objs, ok := raw.([]any)
		if !ok {
			objs = []any{raw}
		}
		for _, o := range objs {
			obj, ok := o.(map[string]any)
			if !ok {
				continue
			}
			t, _ := obj["@type"].(string)
			if !ldContentTypes[t] {
				continue
			}
			if title == "" {
				if name, ok := obj["name"].(string); ok {
					title = strings.TrimSpace(name)
				}
			}
			if image == "" {
				image = ldImageValue(obj["image"])
			}
		}
		return title == "" || image == ""
	})
	return title, image
}

func ldImageValue(v any) string {
	switch img := v.(type) {
	case string:
		return img
	case []any:
		if len(img) > 0 {
			if s, ok := img[0].(string); ok {
				return s
			}
		}
	}
	return ""
}

// absolutize resolves a possibly relative image URL against its page.
func absolutize(img, pageURL string) string {
	if img == "" {
		return ""
	}
	if strings.HasPrefix(img, "http://") || strings.HasPrefix(img, "https://") {
		return img
	}
	base, err := url.Parse(pageURL)
	if err != nil {
		return ""
	}
	ref, err := url.Parse(img)
	if err != nil {
		return ""
	}
	return base.ResolveReference(ref).String()
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
