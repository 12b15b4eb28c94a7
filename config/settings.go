package config

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Settings represents the application configuration persisted to disk.
type Settings struct {
	Server   ServerSettings   `json:"server"`
	History  HistorySettings  `json:"history"`
	Metadata MetadataSettings `json:"metadata"`
	Log      LogConfig        `json:"log"`
}

type ServerSettings struct {
	Host string `json:"host"`
	Port int    `json:"port"`
}

// HistorySettings locates the browser history source and bounds the pulls.
type HistorySettings struct {
	// DataDir is the browser user-data directory containing profile dirs.
	DataDir string `json:"dataDir"`
	// PathOverride points directly at a History file, bypassing discovery.
	PathOverride string `json:"pathOverride,omitempty"`
	RecencyDays  int    `json:"recencyDays"`
	YouTubeLimit int    `json:"youtubeLimit"`
	DomainLimit  int    `json:"domainLimit"`
}

type MetadataSettings struct {
	// TMDBAPIKey enables the TMDB lookup step; empty disables it silently.
	TMDBAPIKey  string `json:"tmdbApiKey"`
	EnrichLimit int    `json:"enrichLimit"`
}

// LogConfig represents file logging with rotation.
type LogConfig struct {
	File       string `json:"file"`
	MaxSize    int    `json:"maxSize"`
	MaxAge     int    `json:"maxAge"`
	MaxBackups int    `json:"maxBackups"`
	Compress   bool   `json:"compress"`
}

// DefaultSettings returns the configuration written on first run. The data
// directory default matches Brave on macOS, the browser this tool grew up
// around; other Chromium browsers work by pointing dataDir elsewhere.
func DefaultSettings() Settings {
	home, _ := os.UserHomeDir()
	return Settings{
		Server: ServerSettings{Host: "127.0.0.1", Port: 3111},
		History: HistorySettings{
			DataDir:      filepath.Join(home, "Library", "Application Support", "BraveSoftware", "Brave-Browser"),
			RecencyDays:  14,
			YouTubeLimit: 60,
			DomainLimit:  120,
		},
		Metadata: MetadataSettings{EnrichLimit: 40},
		Log: LogConfig{
			MaxSize:    10,
			MaxAge:     14,
			MaxBackups: 3,
		},
	}
}

// Manager loads and saves the settings file.
type Manager struct {
	path string
}

func NewManager(configPath string) *Manager {
	return &Manager{path: configPath}
}

// EnsureDir ensures the parent directory exists.
func (m *Manager) EnsureDir() error {
	dir := filepath.Dir(m.path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}

// Load reads settings from disk, creating defaults when the file is
// missing, then applies environment overrides.
func (m *Manager) Load() (Settings, error) {
	if m.path == "" {
		return Settings{}, errors.New("config path not set")
	}

	settings := DefaultSettings()
	if _, err := os.Stat(m.path); errors.Is(err, fs.ErrNotExist) {
		if err := m.Save(settings); err != nil {
			return Settings{}, err
		}
	} else {
		raw, err := os.ReadFile(m.path)
		if err != nil {
			return Settings{}, err
		}
		if err := json.Unmarshal(raw, &settings); err != nil {
			return Settings{}, err
		}
	}

	applyEnvOverrides(&settings)
	return settings, nil
}

// Save writes settings to disk.
func (m *Manager) Save(s Settings) error {
	if err := m.EnsureDir(); err != nil {
		return err
	}
	raw, err := json.MarshalIndent(s, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(m.path, raw, 0o644)
}

// applyEnvOverrides lets the environment trump the settings file for the
// handful of knobs the original dashboard scripts exported.
func applyEnvOverrides(s *Settings) {
	if v := strings.TrimSpace(os.Getenv("RECENCY_DAYS")); v != "" {
		if days, err := strconv.Atoi(v); err == nil && days > 0 {
			s.History.RecencyDays = days
		}
	}
	if v := strings.TrimSpace(os.Getenv("BROWSER_HISTORY_PATH")); v != "" {
		s.History.PathOverride = v
	}
	if v := strings.TrimSpace(os.Getenv("TMDB_API_KEY")); v != "" {
		s.Metadata.TMDBAPIKey = v
	}
}
