package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"rewatch/models"

	"github.com/avast/retry-go/v4"
	"github.com/spf13/afero"

	_ "github.com/mattn/go-sqlite3"
)

var (
	// ErrHistoryNotFound indicates no browser History database could be
	// located. This is the only error class that aborts a feed request.
	ErrHistoryNotFound = errors.New("browser history database not found")

	ErrProfileNotFound = errors.New("browser profile not found")
)

// webkitEpochDiffMs is the offset between the WebKit epoch (1601-01-01) and
// the Unix epoch (1970-01-01), in milliseconds.
const webkitEpochDiffMs = 11644473600000

// WebkitTimeToMs converts a WebKit timestamp (microseconds since 1601) to
// Unix milliseconds. Chromium-family browsers store visit times this way.
func WebkitTimeToMs(webkitMicros int64) int64 {
	return webkitMicros/1000 - webkitEpochDiffMs
}

// Service locates and reads Chromium-format History databases. The browser
// keeps its History file locked while running, so every session works from a
// private copy.
type Service struct {
	fs           afero.Fs
	dataDir      string // browser user-data directory holding profile dirs
	pathOverride string // explicit History file path; skips discovery
	tmpDir       string
}

// NewService constructs a history store over the real filesystem.
func NewService(dataDir, pathOverride, tmpDir string) *Service {
	return NewServiceWithFs(afero.NewOsFs(), dataDir, pathOverride, tmpDir)
}

// NewServiceWithFs is like NewService with an injectable filesystem.
func NewServiceWithFs(fs afero.Fs, dataDir, pathOverride, tmpDir string) *Service {
	if tmpDir == "" {
		tmpDir = filepath.Join(os.TempDir(), "rewatch")
	}
	return &Service{fs: fs, dataDir: dataDir, pathOverride: pathOverride, tmpDir: tmpDir}
}

// ListProfiles returns the browser profiles that have a History database,
// newest first. Friendly labels come from the browser's Local State file
// when present; otherwise the directory name is used.
func (s *Service) ListProfiles() []models.Profile {
	labels := s.readProfileLabels()

	entries, err := afero.ReadDir(s.fs, s.dataDir)
	if err != nil {
		return nil
	}

	var out []models.Profile
	for _, e := range entries {
		if !e.IsDir() {
			continue
		}
		name := e.Name()
		if name != "Default" && !strings.HasPrefix(name, "Profile") {
			continue
		}
		histPath := filepath.Join(s.dataDir, name, "History")
		info, err := s.fs.Stat(histPath)
		if err != nil {
			continue
		}
		label := labels[name]
		if label == "" {
			label = name
		}
		out = append(out, models.Profile{
			ID:         name,
			Label:      label,
			Path:       histPath,
			ModifiedMs: info.ModTime().UnixMilli(),
		})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].ModifiedMs > out[j].ModifiedMs })
	return out
}

// readProfileLabels parses profile display names out of Local State. Missing
// or malformed state silently falls back to directory IDs.
func (s *Service) readProfileLabels() map[string]string {
	labels := map[string]string{}
	raw, err := afero.ReadFile(s.fs, filepath.Join(s.dataDir, "Local State"))
	if err != nil {
		return labels
	}
	var state struct {
		Profile struct {
			InfoCache map[string]struct {
				Name string `json:"name"`
			} `json:"info_cache"`
		} `json:"profile"`
	}
	if err := json.Unmarshal(raw, &state); err != nil {
		return labels
	}
	for id, info := range state.Profile.InfoCache {
		if info.Name != "" {
			labels[id] = info.Name
		}
	}
	return labels
}

// resolvePath picks the History file for a request. An explicit profile ID
// wins, then the configured override, then the most recently modified
// profile.
func (s *Service) resolvePath(profileID string) (string, error) {
	if profileID != "" {
		for _, p := range s.ListProfiles() {
			if p.ID == profileID {
				return p.Path, nil
			}
		}
		return "", fmt.Errorf("%w: %s", ErrProfileNotFound, profileID)
	}
	if s.pathOverride != "" {
		if _, err := s.fs.Stat(s.pathOverride); err == nil {
			return s.pathOverride, nil
		}
		log.Printf("[history] configured history path %s not readable, falling back to discovery", s.pathOverride)
	}
	profiles := s.ListProfiles()
	if len(profiles) == 0 {
		return "", ErrHistoryNotFound
	}
	return profiles[0].Path, nil
}

// snapshot copies the History database aside so it can be opened while the
// browser holds the original. The copy is retried briefly because the
// browser may be mid-write.
func (s *Service) snapshot(source string) (string, error) {
	if err := s.fs.MkdirAll(s.tmpDir, 0o755); err != nil {
		return "", err
	}
	dest := filepath.Join(s.tmpDir, "History.sqlite")

	err := retry.Do(
		func() error { return copyFile(s.fs, source, dest) },
		retry.Attempts(3),
		retry.Delay(100*time.Millisecond),
		retry.LastErrorOnly(true),
	)
	if err != nil {
		return "", fmt.Errorf("snapshot history db: %w", err)
	}
	return dest, nil
}

func copyFile(fs afero.Fs, src, dst string) error {
	in, err := fs.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := fs.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// Session is a read-only view over one snapshot of a History database. It
// must be closed when the request completes.
type Session struct {
	db *sql.DB
}

// Open snapshots the selected profile's History database and opens it.
// Returns ErrHistoryNotFound when no database exists anywhere.
func (s *Service) Open(profileID string) (*Session, error) {
	source, err := s.resolvePath(profileID)
	if err != nil {
		return nil, err
	}
	local, err := s.snapshot(source)
	if err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite3", "file:"+local+"?mode=ro")
	if err != nil {
		return nil, fmt.Errorf("open history snapshot: %w", err)
	}
	return &Session{db: db}, nil
}

func (sn *Session) Close() error {
	return sn.db.Close()
}

// RecentYouTube returns the newest YouTube watch/shorts/short-link visits,
// descending by visit time. Timestamps are converted to Unix milliseconds.
func (sn *Session) RecentYouTube(ctx context.Context, limit int) ([]models.VisitRecord, error) {
	const q = `
		SELECT urls.url, IFNULL(urls.title, ''), visits.visit_time,
		       visits.id, IFNULL(visits.from_visit, 0)
		FROM urls
		JOIN visits ON urls.id = visits.url
		WHERE urls.url LIKE '%youtube.com/watch%'
		   OR urls.url LIKE '%youtube.com/shorts/%'
		   OR urls.url LIKE '%youtu.be/%'
		ORDER BY visits.visit_time DESC
		LIMIT ?`
	return sn.queryVisits(ctx, q, limit)
}

// RecentForHosts returns the newest visits whose URL contains any of the
// given host fragments, descending by visit time.
func (sn *Session) RecentForHosts(ctx context.Context, hosts []string, limit int) ([]models.VisitRecord, error) {
	if len(hosts) == 0 {
		return nil, nil
	}
	conds := make([]string, 0, len(hosts))
	args := make([]any, 0, len(hosts)+1)
	for _, h := range hosts {
		conds = append(conds, "urls.url LIKE ?")
		args = append(args, "%"+h+"%")
	}
	args = append(args, limit)

	q := fmt.Sprintf(`
		SELECT urls.url, IFNULL(urls.title, ''), visits.visit_time,
		       visits.id, IFNULL(visits.from_visit, 0)
		FROM urls
		JOIN visits ON urls.id = visits.url
		WHERE %s
		ORDER BY visits.visit_time DESC
		LIMIT ?`, strings.Join(conds, " OR "))
	return sn.queryVisits(ctx, q, args...)
}

// ChildVisits returns visits that originated from the given visit, newest
// first. Used by the context resolver's forward traversal.
func (sn *Session) ChildVisits(ctx context.Context, visitID int64, limit int) ([]models.VisitRecord, error) {
	const q = `
		SELECT urls.url, IFNULL(urls.title, ''), visits.visit_time,
		       visits.id, IFNULL(visits.from_visit, 0)
		FROM visits
		JOIN urls ON visits.url = urls.id
		WHERE visits.from_visit = ?
		ORDER BY visits.visit_time DESC
		LIMIT ?`
	return sn.queryVisits(ctx, q, visitID, limit)
}

// VisitByID fetches a single visit row. Returns nil when the row is gone.
func (sn *Session) VisitByID(ctx context.Context, visitID int64) (*models.VisitRecord, error) {
	const q = `
		SELECT urls.url, IFNULL(urls.title, ''), visits.visit_time,
		       visits.id, IFNULL(visits.from_visit, 0)
		FROM visits
		JOIN urls ON visits.url = urls.id
		WHERE visits.id = ?
		LIMIT 1`
	rows, err := sn.queryVisits(ctx, q, visitID)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

// LatestVisitForURL finds the most recent visit of an exact URL. Used to
// seed the backward context walk for opaque watch pages.
func (sn *Session) LatestVisitForURL(ctx context.Context, url string) (*models.VisitRecord, error) {
	const q = `
		SELECT urls.url, IFNULL(urls.title, ''), visits.visit_time,
		       visits.id, IFNULL(visits.from_visit, 0)
		FROM visits
		JOIN urls ON visits.url = urls.id
		WHERE urls.url = ?
		ORDER BY visits.visit_time DESC
		LIMIT 1`
	rows, err := sn.queryVisits(ctx, q, url)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return &rows[0], nil
}

func (sn *Session) queryVisits(ctx context.Context, q string, args ...any) ([]models.VisitRecord, error) {
	rows, err := sn.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []models.VisitRecord
	for rows.Next() {
		var r models.VisitRecord
		var webkitTime int64
		if err := rows.Scan(&r.URL, &r.Title, &webkitTime, &r.VisitID, &r.FromVisitID); err != nil {
			return nil, err
		}
		r.VisitTime = WebkitTimeToMs(webkitTime)
		out = append(out, r)
	}
	return out, rows.Err()
}
