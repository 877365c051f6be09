// flowcap - browser-capture demo backend
package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/acrolabs/flowcap/internal/api"
	"github.com/acrolabs/flowcap/internal/config"
	"github.com/acrolabs/flowcap/internal/media"
	"github.com/acrolabs/flowcap/internal/middleware"
	"github.com/acrolabs/flowcap/internal/narration"
	"github.com/acrolabs/flowcap/internal/recording"
	"github.com/acrolabs/flowcap/internal/store"
	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/joho/godotenv"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	if err := godotenv.Load(); err != nil {
		slog.Info("No .env file found, using environment variables")
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	slog.Info("Starting server", "port", cfg.Port, "dev", cfg.IsDevelopment())

	// Initialize dependencies.
	repo, err := store.NewSQLite(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to initialize database", "error", err)
		os.Exit(1)
	}
	defer func() {
		if closeErr := repo.Close(); closeErr != nil {
			slog.Error("Failed to close repository", "error", closeErr)
		}
	}()

	if err := repo.Ping(context.Background()); err != nil {
		slog.Error("Database health check failed", "error", err)
		os.Exit(1)
	}
	slog.Info("Database connected")

	if err := repo.EnsureSystemFolders(context.Background()); err != nil {
		slog.Error("Failed to seed system folders", "error", err)
		os.Exit(1)
	}
	slog.Info("System folders ready")

	mediaStore, err := media.NewLocalStore(cfg.DataDir)
	if err != nil {
		slog.Error("Failed to initialize media storage", "error", err)
		os.Exit(1)
	}
	slog.Info("Media storage ready", "data_dir", cfg.DataDir)

	tts := narration.NewGoogleSynthesizer(mediaStore, cfg.TTSEndpoint, cfg.TTSLanguage, cfg.VideoFPS)
	mgr := recording.NewManager(repo, mediaStore, tts, cfg.FrontendURL)

	// Initialize handlers.
	baseHandler := api.NewHandler(repo, mediaStore, tts, mgr)
	recordingHandler := api.NewRecordingHandler(baseHandler, cfg.MaxUploadBytes)
	projectsHandler := api.NewProjectsHandler(baseHandler)
	foldersHandler := api.NewFoldersHandler(baseHandler)
	stepsHandler := api.NewStepsHandler(baseHandler)
	healthHandler := api.NewHealthHandler(repo)

	// Setup router.
	r := chi.NewRouter()

	// Global middleware.
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Logger)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Heartbeat("/ping"))
	r.Use(middleware.CORS(cfg.CORSOrigins))

	healthHandler.RegisterHealth(r)
	recordingHandler.RegisterRoutes(r)
	projectsHandler.RegisterRoutes(r)
	foldersHandler.RegisterRoutes(r)
	stepsHandler.RegisterRoutes(r)

	// Serve saved screenshots, narration audio and thumbnails.
	fileServer := http.StripPrefix("/static/", http.FileServer(http.Dir(cfg.DataDir)))
	r.Handle("/static/*", fileServer)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      r,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start session reaper.
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	recording.StartReaper(ctx, mgr, cfg.SessionTTL, cfg.ReaperInterval)

	// Start server.
	go func() {
		slog.Info("Server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for shutdown signal.
	<-ctx.Done()
	stop()

	slog.Info("Shutting down gracefully...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		slog.Error("Server forced to shutdown", "error", err)
		os.Exit(1)
	}

	slog.Info("Server stopped successfully")
}
