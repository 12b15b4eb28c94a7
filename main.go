package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rewatch/api"
	"rewatch/config"
	"rewatch/handlers"
	"rewatch/services/enrich"
	"rewatch/services/feed"
	"rewatch/services/history"

	"github.com/gorilla/mux"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	portOverride := flag.Int("port", 0, "override server port from config")
	flag.Parse()

	configPath := os.Getenv("REWATCH_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("cache", "settings.json")
	}

	cfgManager := config.NewManager(configPath)
	settings, err := cfgManager.Load()
	if err != nil {
		log.Fatalf("failed to load settings: %v", err)
	}

	// Set up file logging with rotation
	if settings.Log.File != "" {
		logDir := filepath.Dir(settings.Log.File)
		if err := os.MkdirAll(logDir, 0o755); err != nil {
			log.Printf("Warning: could not create log directory %s: %v", logDir, err)
		} else {
			fileWriter := &lumberjack.Logger{
				Filename:   settings.Log.File,
				MaxSize:    settings.Log.MaxSize,
				MaxBackups: settings.Log.MaxBackups,
				MaxAge:     settings.Log.MaxAge,
				Compress:   settings.Log.Compress,
			}
			log.SetOutput(io.MultiWriter(os.Stdout, fileWriter))
			log.SetFlags(log.LstdFlags | log.Lshortfile)
			log.Printf("Logging to file: %s", settings.Log.File)
		}
	}

	if *portOverride > 0 {
		settings.Server.Port = *portOverride
	}

	historyService := history.NewService(settings.History.DataDir, settings.History.PathOverride, "")
	enrichService := enrich.NewService(
		settings.Metadata.TMDBAPIKey,
		enrich.NewMemoryCache(0),
		&http.Client{Timeout: 10 * time.Second},
		settings.Metadata.EnrichLimit,
	)
	feedService := feed.NewService(feed.WrapHistory(historyService), enrichService, feed.Options{
		RecencyDays:  settings.History.RecencyDays,
		YouTubeLimit: settings.History.YouTubeLimit,
		DomainLimit:  settings.History.DomainLimit,
	})

	if settings.Metadata.TMDBAPIKey == "" {
		log.Printf("[main] no TMDB API key configured; TMDB lookups disabled")
	}
	if profiles := historyService.ListProfiles(); len(profiles) > 0 {
		log.Printf("[main] found %d browser profile(s), newest: %s", len(profiles), profiles[0].Label)
	} else {
		log.Printf("[main] warning: no browser profiles found under %s", settings.History.DataDir)
	}

	r := mux.NewRouter()
	api.Register(r, handlers.NewFeedHandler(feedService, historyService))

	addr := fmt.Sprintf("%s:%d", settings.Server.Host, settings.Server.Port)
	fmt.Printf("rewatch listening on http://%s/api/history/all\n", addr)
	fmt.Printf("Recency filter: last %d days\n", feedService.RecencyDays())

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	shutdownChan := make(chan os.Signal, 1)
	signal.Notify(shutdownChan, os.Interrupt, syscall.SIGTERM)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Server error: %v", err)
		}
	}()

	<-shutdownChan
	log.Println("Shutdown signal received")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("Server shutdown error: %v", err)
	}
}
