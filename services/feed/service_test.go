package feed

import (
	"context"
	"testing"
	"time"

	"rewatch/models"
	"rewatch/services/enrich"
	"rewatch/services/history"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeSession serves canned rows.
type fakeSession struct {
	youtube  []models.VisitRecord
	domains  []models.VisitRecord
	children map[int64][]models.VisitRecord
	closed   bool
}

func (f *fakeSession) RecentYouTube(_ context.Context, limit int) ([]models.VisitRecord, error) {
	return f.youtube, nil
}

func (f *fakeSession) RecentForHosts(_ context.Context, hosts []string, limit int) ([]models.VisitRecord, error) {
	return f.domains, nil
}

func (f *fakeSession) ChildVisits(_ context.Context, visitID int64, limit int) ([]models.VisitRecord, error) {
	return f.children[visitID], nil
}

func (f *fakeSession) VisitByID(_ context.Context, visitID int64) (*models.VisitRecord, error) {
	return nil, nil
}

func (f *fakeSession) LatestVisitForURL(_ context.Context, url string) (*models.VisitRecord, error) {
	return nil, nil
}

func (f *fakeSession) Close() error {
	f.closed = true
	return nil
}

type fakeStore struct {
	session *fakeSession
	err     error
}

func (f *fakeStore) Open(profileID string) (Session, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.session, nil
}

// fakeEnricher stamps a known title/thumb on every item missing one.
type fakeEnricher struct {
	calls int
}

func (f *fakeEnricher) Enrich(_ context.Context, items []models.ContentItem, _ enrich.ContextSource) {
	f.calls++
	for i := range items {
		if items[i].Thumb == "" {
			items[i].Thumb = "https://cdn.example.com/enriched.jpg"
		}
		if items[i].Title == "" || items[i].Title == string(items[i].Service) {
			items[i].Title = "Enriched Title"
		}
	}
}

func TestContinueWatchingEndToEnd(t *testing.T) {
	t1 := time.Now().Add(-3 * time.Hour).UnixMilli()
	t2 := time.Now().Add(-1 * time.Hour).UnixMilli()

	session := &fakeSession{
		youtube: []models.VisitRecord{
			{URL: "https://www.youtube.com/watch?v=abc12345678", Title: "A Video", VisitTime: t1},
		},
		domains: []models.VisitRecord{
			// Same show: an episode watch page and the series detail page.
			{URL: "https://www.hulu.com/series/the-bear", Title: "The Bear", VisitTime: t2, VisitID: 2},
			{URL: "https://www.hulu.com/series/the-bear/episode-2", Title: "The Bear S01E02", VisitTime: t1, VisitID: 1},
		},
	}
	store := &fakeStore{session: session}
	enricher := &fakeEnricher{}
	svc := NewService(store, enricher, Options{RecencyDays: 14})

	feedResult, err := svc.ContinueWatching(context.Background(), "")
	require.NoError(t, err)
	require.NotNil(t, feedResult)
	assert.Equal(t, 14, feedResult.RecencyDays)
	assert.True(t, session.closed)
	assert.Equal(t, 1, enricher.calls)

	// One hulu entry (latest visit wins) plus the YouTube video.
	require.Len(t, feedResult.Items, 2)
	assert.Equal(t, models.ServiceHulu, feedResult.Items[0].Service)
	assert.Equal(t, t2, feedResult.Items[0].LastVisited)
	assert.Equal(t, "https://cdn.example.com/enriched.jpg", feedResult.Items[0].Thumb)
	assert.Equal(t, models.ServiceYouTube, feedResult.Items[1].Service)
}

func TestContinueWatchingSourceUnavailable(t *testing.T) {
	store := &fakeStore{err: history.ErrHistoryNotFound}
	svc := NewService(store, nil, Options{})

	_, err := svc.ContinueWatching(context.Background(), "")
	assert.ErrorIs(t, err, history.ErrHistoryNotFound)
}

func TestContinueWatchingWithoutEnricher(t *testing.T) {
	session := &fakeSession{
		domains: []models.VisitRecord{
			{URL: "https://www.netflix.com/watch/81234567", Title: "Show", VisitTime: time.Now().UnixMilli()},
		},
	}
	svc := NewService(&fakeStore{session: session}, nil, Options{})

	feedResult, err := svc.ContinueWatching(context.Background(), "")
	require.NoError(t, err)
	require.Len(t, feedResult.Items, 1)
	assert.Equal(t, "Show", feedResult.Items[0].Title)
}

func TestRecentYouTube(t *testing.T) {
	session := &fakeSession{
		youtube: []models.VisitRecord{
			{URL: "https://youtu.be/abc12345678", Title: "Short Link", VisitTime: time.Now().UnixMilli()},
		},
	}
	svc := NewService(&fakeStore{session: session}, nil, Options{})

	items, err := svc.RecentYouTube(context.Background(), "", 0)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, "abc12345678", items[0].ID)
	assert.True(t, session.closed)
}
