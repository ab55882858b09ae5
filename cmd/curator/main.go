package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/postveille/curator/internal/config"
	"github.com/postveille/curator/internal/dedup"
	"github.com/postveille/curator/internal/notifications"
	"github.com/postveille/curator/internal/pipeline"
	"github.com/postveille/curator/internal/scheduler"
	"github.com/postveille/curator/internal/sources"
	"github.com/postveille/curator/internal/storage"
)

func main() {
	if err := godotenv.Load(); err != nil {
		logrus.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logrus.SetLevel(logrus.InfoLevel)
	if cfg.Debug {
		logrus.SetLevel(logrus.DebugLevel)
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})

	logrus.Info("Starting content curator")

	scoringCfg, err := config.LoadScoring(cfg.ScoringPath)
	if err != nil {
		logrus.Fatalf("Failed to load scoring configuration: %v", err)
	}

	prefs, err := config.LoadPreferences(cfg.PreferencesPath)
	if err != nil {
		logrus.Fatalf("Failed to load preferences: %v", err)
	}

	sourcesCfg, err := config.LoadSources(cfg.SourcesPath)
	if err != nil {
		logrus.Fatalf("Failed to load sources configuration: %v", err)
	}

	store, err := dedup.Open(filepath.Join(cfg.DataDir, "veille.db"))
	if err != nil {
		logrus.Fatalf("Failed to open dedup store: %v", err)
	}
	defer store.Close()

	archive, err := buildArchive(cfg)
	if err != nil {
		logrus.Fatalf("Failed to initialize report archive: %v", err)
	}

	var notifier notifications.Notifier
	if svc := notifications.NewService(cfg); svc.Configured() {
		notifier = svc
	}

	pipelineService := pipeline.NewService(
		cfg, scoringCfg, prefs, store, archive, notifier,
		buildSources(cfg, sourcesCfg),
	)

	schedulerService := scheduler.NewService(cfg, pipelineService)
	if err := schedulerService.Start(); err != nil {
		logrus.Fatalf("Failed to start scheduler: %v", err)
	}
	defer schedulerService.Stop()

	router := mux.NewRouter()
	router.HandleFunc("/health", healthCheckHandler).Methods("GET")
	router.HandleFunc("/metrics", metricsHandler(pipelineService)).Methods("GET")
	router.HandleFunc("/stats", statsHandler(pipelineService)).Methods("GET")
	router.HandleFunc("/trigger", triggerHandler(pipelineService)).Methods("POST")
	router.HandleFunc("/analyze", analyzeHandler(pipelineService)).Methods("POST")

	server := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logrus.Infof("HTTP server starting on port %s", cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("HTTP server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logrus.Info("Shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logrus.Errorf("Server forced to shutdown: %v", err)
	}

	logrus.Info("Server exited")
}

func buildArchive(cfg *config.Config) (storage.Storage, error) {
	if cfg.StorageAccount != "" {
		return storage.NewAzureStorage(cfg.StorageAccount, cfg.StorageContainer)
	}
	return storage.NewLocalStorage(cfg.OutputDir)
}

func buildSources(cfg *config.Config, sourcesCfg *config.SourcesConfig) []sources.Source {
	return []sources.Source{
		sources.NewRSSSource(sourcesCfg.RSS),
		sources.NewJinaSource(sourcesCfg.Jina.Sites, cfg.JinaAPIKey),
		sources.NewRedditSource(cfg.RedditClientID, cfg.RedditClientSecret, sourcesCfg.Reddit),
		sources.NewYouTubeSource(sourcesCfg.YouTube, cfg.TranscriptService),
	}
}

func healthCheckHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","timestamp":"` + time.Now().Format(time.RFC3339) + `"}`))
}

func metricsHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(p.GetMetrics()))
	}
}

func statsHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := p.StoreStats(r.Context())
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(stats)
	}
}

// analyzeHandler re-scores a previously collected JSONL file without touching
// the dedup store.
func analyzeHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		file := r.URL.Query().Get("file")
		if file == "" {
			http.Error(w, `missing "file" query parameter`, http.StatusBadRequest)
			return
		}

		report, err := p.AnalyzeFile(file)
		if err != nil {
			http.Error(w, err.Error(), http.StatusUnprocessableEntity)
			return
		}

		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(report)
	}
}

func triggerHandler(p *pipeline.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		go func() {
			if err := p.Run(context.Background()); err != nil {
				logrus.Errorf("Manual curation trigger failed: %v", err)
			}
		}()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"message":"Curation run triggered"}`))
	}
}
