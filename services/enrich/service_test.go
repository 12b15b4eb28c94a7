package enrich

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"rewatch/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService(srv *httptest.Server) *Service {
	s := NewService("", NewMemoryCache(0), srv.Client(), 40)
	s.tmdb.baseURL = srv.URL
	s.tvmaze.baseURL = srv.URL
	s.itunes.baseURL = srv.URL
	return s
}

func TestFetchPageMetaOpenGraph(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="The Bear">
			<meta property="og:image" content="/art/bear.jpg">
			</head><body></body></html>`)
	}))
	defer srv.Close()

	s := newTestService(srv)
	meta := s.fetchPageMeta(context.Background(), srv.URL+"/series/the-bear")
	require.NotNil(t, meta)
	assert.Equal(t, "The Bear", meta.Title)
	assert.Equal(t, srv.URL+"/art/bear.jpg", meta.Thumb, "relative image resolved against page URL")
}

func TestFetchPageMetaPrefersSecureImage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<meta property="og:image" content="http://cdn.example.com/a.jpg">
			<meta property="og:image:secure_url" content="https://cdn.example.com/a.jpg">
			<meta name="twitter:title" content="Poker Face">
			</head></html>`)
	}))
	defer srv.Close()

	meta := newTestService(srv).fetchPageMeta(context.Background(), srv.URL)
	require.NotNil(t, meta)
	assert.Equal(t, "https://cdn.example.com/a.jpg", meta.Thumb)
	assert.Equal(t, "Poker Face", meta.Title)
}

func TestFetchPageMetaJSONLD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<script type="application/ld+json">{"@type":"TVSeries","name":"Bel-Air","image":["https://cdn.example.com/belair.jpg"]}</script>
			</head></html>`)
	}))
	defer srv.Close()

	meta := newTestService(srv).fetchPageMeta(context.Background(), srv.URL)
	require.NotNil(t, meta)
	assert.Equal(t, "Bel-Air", meta.Title)
	assert.Equal(t, "https://cdn.example.com/belair.jpg", meta.Thumb)
}

func TestFetchPageMetaIgnoresUnrelatedJSONLD(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `<html><head>
			<script type="application/ld+json">{"@type":"Organization","name":"Hulu"}</script>
			</head></html>`)
	}))
	defer srv.Close()

	assert.Nil(t, newTestService(srv).fetchPageMeta(context.Background(), srv.URL))
}

func TestFetchPageMetaFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusForbidden)
	}))
	defer srv.Close()

	assert.Nil(t, newTestService(srv).fetchPageMeta(context.Background(), srv.URL))
}

func TestEnrichFillsMissingFromPage(t *testing.T) {
	var pageHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/poster.jpg":
			w.Write([]byte("img"))
		default:
			atomic.AddInt32(&pageHits, 1)
			fmt.Fprint(w, `<html><head>
				<meta property="og:title" content="The Bear">
				<meta property="og:image" content="/poster.jpg">
				</head></html>`)
		}
	}))
	defer srv.Close()

	s := newTestService(srv)
	items := []models.ContentItem{{
		Service:     models.ServiceHulu,
		URL:         srv.URL + "/page",
		Title:       "hulu",
		LastVisited: 100,
	}}
	s.Enrich(context.Background(), items, nil)

	assert.Equal(t, "The Bear", items[0].Title, "bare service name is replaceable")
	assert.Equal(t, srv.URL+"/poster.jpg", items[0].Thumb)
	assert.Equal(t, int32(1), atomic.LoadInt32(&pageHits))
}

func TestEnrichCachesLookups(t *testing.T) {
	var pageHits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/poster.jpg" {
			w.Write([]byte("img"))
			return
		}
		atomic.AddInt32(&pageHits, 1)
		fmt.Fprint(w, `<html><head>
			<meta property="og:title" content="The Bear">
			<meta property="og:image" content="/poster.jpg">
			</head></html>`)
	}))
	defer srv.Close()

	s := newTestService(srv)
	make := func() []models.ContentItem {
		return []models.ContentItem{{
			Service: models.ServiceHulu,
			URL:     srv.URL + "/page",
			Title:   "hulu",
		}}
	}

	first := make()
	s.Enrich(context.Background(), first, nil)
	second := make()
	s.Enrich(context.Background(), second, nil)

	assert.Equal(t, first[0].Thumb, second[0].Thumb)
	assert.Equal(t, int32(1), atomic.LoadInt32(&pageHits), "second pass must come from cache")
}

func TestEnrichSkipsCompleteItems(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
	}))
	defer srv.Close()

	s := newTestService(srv)
	items := []models.ContentItem{{
		Service: models.ServiceNetflix,
		URL:     srv.URL + "/watch/1",
		Title:   "Already Done",
		Thumb:   "https://cdn.example.com/done.jpg",
	}}
	s.Enrich(context.Background(), items, nil)
	assert.Zero(t, atomic.LoadInt32(&hits))
}

func TestEnrichBatchLimit(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		http.Error(w, "nope", http.StatusNotFound)
	}))
	defer srv.Close()

	s := NewService("", NewMemoryCache(0), srv.Client(), 2)
	s.tmdb.baseURL = srv.URL
	s.tvmaze.baseURL = srv.URL
	s.itunes.baseURL = srv.URL

	var items []models.ContentItem
	for i := 0; i < 5; i++ {
		items = append(items, models.ContentItem{
			Service: models.ServiceYouTube,
			URL:     fmt.Sprintf("%s/item/%d", srv.URL, i),
		})
	}
	s.Enrich(context.Background(), items, nil)

	// YouTube items only hit the page scrape, once per item in the batch.
	assert.Equal(t, int32(2), atomic.LoadInt32(&hits))
}

func TestEnrichLooseMatchGate(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/singlesearch/shows":
			fmt.Fprint(w, `{"name":"Zebra Quux","image":{"original":"https://cdn.example.com/zebra.jpg"}}`)
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := newTestService(srv)
	items := []models.ContentItem{{
		Service: models.ServiceHulu,
		URL:     srv.URL + "/page",
		Title:   "The Bear: Review", // colon infers tv, routed to TVmaze
	}}
	s.Enrich(context.Background(), items, nil)
	assert.Empty(t, items[0].Thumb, "mismatched provider title must be discarded")
}

func TestEnrichAcceptsLooseMatch(t *testing.T) {
	var srv *httptest.Server
	srv = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/singlesearch/shows":
			fmt.Fprintf(w, `{"name":"The Bear (US)","image":{"original":"%s/bear.jpg"}}`, srv.URL)
		case "/bear.jpg":
			w.Write([]byte("img"))
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := newTestService(srv)
	items := []models.ContentItem{{
		Service: models.ServiceHulu,
		URL:     srv.URL + "/page",
		Title:   "The Bear: Episode 2",
	}}
	s.Enrich(context.Background(), items, nil)
	assert.Equal(t, srv.URL+"/bear.jpg", items[0].Thumb)
}

func TestEnrichDiscardsUnreachableThumb(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/page":
			fmt.Fprint(w, `<html><head>
				<meta property="og:title" content="Gone Show">
				<meta property="og:image" content="/missing.jpg">
				</head></html>`)
		default:
			http.Error(w, "nope", http.StatusNotFound)
		}
	}))
	defer srv.Close()

	s := newTestService(srv)
	items := []models.ContentItem{{
		Service: models.ServiceNetflix,
		URL:     srv.URL + "/page",
		Title:   "netflix",
	}}
	s.Enrich(context.Background(), items, nil)

	assert.Empty(t, items[0].Thumb)
	assert.Equal(t, "Gone Show", items[0].Title, "title survives a failed image probe")
}

func TestValidateImageRangedGETFallback(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodHead {
			http.Error(w, "no HEAD", http.StatusMethodNotAllowed)
			return
		}
		assert.Equal(t, "bytes=0-0", r.Header.Get("Range"))
		w.WriteHeader(http.StatusPartialContent)
		w.Write([]byte("x"))
	}))
	defer srv.Close()

	s := newTestService(srv)
	assert.True(t, s.validateImage(context.Background(), srv.URL+"/img.jpg"))
}

func TestPeacockImageURL(t *testing.T) {
	got := peacockImageURL("f81d4fae-7dec-11d0-a765-00a0c91e6bf6", peacockImageVariants[0])
	assert.Equal(t,
		"https://imageservice.disco.peacocktv.com/uuid/f81d4fae-7dec-11d0-a765-00a0c91e6bf6/COVER_TITLE_WIDE/780x439?image-quality=85&image-format=webp&language=eng&proposition=NBCUOTT",
		got)
}

func TestTMDBClientDisabledWithoutKey(t *testing.T) {
	c := newTMDBClient("", http.DefaultClient)
	meta, err := c.searchPoster(context.Background(), "The Bear")
	assert.NoError(t, err)
	assert.Nil(t, meta)
}

func TestTMDBClientSearch(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search/multi", r.URL.Path)
		assert.Equal(t, "The Bear", r.URL.Query().Get("query"))
		fmt.Fprint(w, `{"results":[{"name":"The Bear","backdrop_path":"/bear.jpg"}]}`)
	}))
	defer srv.Close()

	c := newTMDBClient("test-key", srv.Client())
	c.baseURL = srv.URL
	meta, err := c.searchPoster(context.Background(), "The Bear")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "The Bear", meta.Title)
	assert.Equal(t, "https://image.tmdb.org/t/p/w780/bear.jpg", meta.Thumb)
}

func TestITunesClientUpscalesArtwork(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "movie", r.URL.Query().Get("media"))
		fmt.Fprint(w, `{"results":[{"trackName":"Heat","artworkUrl100":"https://is1.mzstatic.com/image/thumb/heat/100x100bb.jpg"}]}`)
	}))
	defer srv.Close()

	c := newITunesClient(srv.Client())
	c.baseURL = srv.URL
	meta, err := c.searchArtwork(context.Background(), "Heat", "movie")
	require.NoError(t, err)
	require.NotNil(t, meta)
	assert.Equal(t, "https://is1.mzstatic.com/image/thumb/heat/600x600bb.jpg", meta.Thumb)
}
