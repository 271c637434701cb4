// Command progressiond is the hosted progression service.
// It serves the episode evaluation workflow, character state and world
// read endpoints, and a health check.
package main

import (
	"context"
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/lib/pq"

	"github.com/styleverse/progression/internal/api"
	"github.com/styleverse/progression/internal/archive"
	"github.com/styleverse/progression/internal/decision"
	"github.com/styleverse/progression/internal/evaluation"
	"github.com/styleverse/progression/internal/platform"
	"github.com/styleverse/progression/internal/store"
	"github.com/styleverse/progression/pkg/config"
)

func main() {
	cfg := loadConfig()

	db, err := sql.Open("postgres", cfg.Database.URL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		log.Fatalf("ping database: %v", err)
	}
	if err := platform.AutoMigrate(db); err != nil {
		log.Fatalf("migrate: %v", err)
	}

	// Decision logging is best-effort: a nil logger disables it without
	// touching the workflow.
	var recorder evaluation.DecisionRecorder
	var logger *decision.Logger
	var decisionSvc *decision.Service
	if cfg.Decisions.Enabled {
		logger = decision.NewLogger(decision.NewDBSink(db))
		recorder = logger
		decisionSvc = decision.NewService(db)
	}

	exportStorage, err := newArchiveStorage(cfg.Archive)
	if err != nil {
		log.Fatalf("archive storage: %v", err)
	}

	pg := store.New(db)
	workflow := evaluation.NewService(pg, recorder)
	exports := archive.NewService(pg, exportStorage)

	mux := http.NewServeMux()
	api.NewHandler(workflow, decisionSvc, exports).RegisterRoutes(mux)
	mux.HandleFunc("GET /healthz", healthHandler(db))

	handler := api.CORS(api.APIKeyAuth(cfg.Server.APIKey)(mux))
	srv := &http.Server{
		Addr:    ":" + cfg.Server.Port,
		Handler: handler,
	}

	// Graceful shutdown
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	go func() {
		log.Printf("starting progressiond on :%s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down...")
	if err := srv.Shutdown(context.Background()); err != nil {
		log.Printf("shutdown error: %v", err)
	}
	if logger != nil {
		logger.Close()
	}
}

// loadConfig reads the YAML config (PROGRESSION_CONFIG or the nearest
// .progression/config.yaml), then applies environment overrides.
func loadConfig() *config.Config {
	path := os.Getenv("PROGRESSION_CONFIG")
	if path == "" {
		wd, _ := os.Getwd()
		path = config.FindConfigFile(wd)
	}
	cfg, err := config.Load(path)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	if v := os.Getenv("PORT"); v != "" {
		cfg.Server.Port = v
	}
	if v := os.Getenv("API_KEY"); v != "" {
		cfg.Server.APIKey = v
	}
	if v := os.Getenv("DATABASE_URL"); v != "" {
		cfg.Database.URL = v
	}
	if v := os.Getenv("GCS_BUCKET"); v != "" {
		cfg.Archive.Backend = "gcs"
		cfg.Archive.GCSBucket = v
	}
	if v := os.Getenv("S3_BUCKET"); v != "" {
		cfg.Archive.Backend = "s3"
		cfg.Archive.S3Bucket = v
	}
	return cfg
}

func newArchiveStorage(cfg config.ArchiveConfig) (archive.StorageClient, error) {
	ctx := context.Background()
	switch cfg.Backend {
	case "gcs":
		return archive.NewGCSStorage(ctx, cfg.GCSBucket)
	case "s3":
		return archive.NewS3Storage(ctx, archive.S3Config{
			Bucket:    cfg.S3Bucket,
			Region:    cfg.S3Region,
			Endpoint:  cfg.S3Endpoint,
			AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		})
	default:
		dir := cfg.LocalDir
		if dir == "" {
			dir = "/tmp/progression-exports"
		}
		return archive.NewLocalStorage(dir), nil
	}
}

func healthHandler(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := db.PingContext(r.Context()); err != nil {
			http.Error(w, "database unreachable", http.StatusServiceUnavailable)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
	}
}
