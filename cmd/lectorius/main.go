package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/jan-barg/lectorius/internal/ai"
	"github.com/jan-barg/lectorius/internal/config"
	"github.com/jan-barg/lectorius/internal/db"
	"github.com/jan-barg/lectorius/internal/filestore"
	"github.com/jan-barg/lectorius/internal/handler"
	"github.com/jan-barg/lectorius/internal/job"
	"github.com/jan-barg/lectorius/internal/middleware"
	"github.com/jan-barg/lectorius/internal/repo"
	"github.com/jan-barg/lectorius/internal/schedule"
	"github.com/jan-barg/lectorius/internal/service"
)

func main() {
	var configPath string
	var bookID string

	rootCmd := &cobra.Command{
		Use:   "lectorius",
		Short: "lectorius audiobook companion server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run the lectorius server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			defer database.Close()
			return runServer(cfg, database)
		},
	}
	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")

	indexCmd := &cobra.Command{
		Use:   "index",
		Short: "embed a book's chunks into the passage index",
		RunE: func(cmd *cobra.Command, args []string) error {
			if bookID == "" {
				return fmt.Errorf("--book is required")
			}
			cfg, database, err := setup(configPath)
			if err != nil {
				return err
			}
			defer database.Close()
			return runIndex(cmd.Context(), cfg, database, bookID)
		},
	}
	indexCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	indexCmd.Flags().StringVar(&bookID, "book", "", "book id to index")

	rootCmd.AddCommand(runCmd, indexCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func setup(configPath string) (*config.Config, *sql.DB, error) {
	if configPath == "" {
		return nil, nil, fmt.Errorf("--config is required")
	}
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}
	logger.Init(
		cfg.LogConfig.File,
		cfg.LogConfig.Level,
		int(cfg.LogConfig.FileCount),
		int(cfg.LogConfig.FileSize),
		int(cfg.LogConfig.KeepDays),
		cfg.LogConfig.Console,
	)
	logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

	database, err := db.Open(cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("open db: %w", err)
	}
	if err := db.ApplyMigrations(database); err != nil {
		database.Close()
		return nil, nil, fmt.Errorf("migrations: %w", err)
	}
	return cfg, database, nil
}

func buildBookService(cfg *config.Config) (*service.BookService, filestore.Store, error) {
	bookStore, err := filestore.New(cfg.BookStore)
	if err != nil {
		return nil, nil, fmt.Errorf("init book store: %w", err)
	}
	systemStore, err := filestore.New(cfg.SystemStore)
	if err != nil {
		return nil, nil, fmt.Errorf("init system store: %w", err)
	}
	ttl := time.Duration(cfg.QA.BookCacheTTLSeconds) * time.Second
	return service.NewBookService(bookStore, systemStore, cfg.QA.BookCacheSize, ttl), systemStore, nil
}

func buildEmbedder(cfg *config.Config) (ai.Embedder, error) {
	embedder, err := ai.NewEmbedder(cfg.AI.Embedder.Provider, cfg.AI.Embedder.Model, cfg.AI.Embedder.Data)
	if err != nil {
		return nil, fmt.Errorf("init embedder: %w", err)
	}
	return embedder, nil
}

func runServer(cfg *config.Config, database *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("book_store", cfg.BookStore.Type),
		zap.String("default_tts", cfg.AI.DefaultTTS),
	)

	passageRepo := repo.NewPassageRepo(database)
	questionLogRepo := repo.NewQuestionLogRepo(database)

	bookService, systemStore, err := buildBookService(cfg)
	if err != nil {
		return err
	}
	musicService := service.NewMusicService(systemStore)

	transcriber, err := ai.NewTranscriber(cfg.AI.Transcriber.Provider, cfg.AI.Transcriber.Model, cfg.AI.Transcriber.Data)
	if err != nil {
		return fmt.Errorf("init transcriber: %w", err)
	}
	generator, err := ai.NewGenerator(cfg.AI.Generator.Provider, cfg.AI.Generator.Model, cfg.AI.Generator.Data)
	if err != nil {
		return fmt.Errorf("init generator: %w", err)
	}
	synths := make(map[string]ai.Synthesizer, len(cfg.AI.Synthesizers))
	for name, pc := range cfg.AI.Synthesizers {
		synth, err := ai.NewSynthesizer(pc.Provider, pc.Model, pc.Data)
		if err != nil {
			return fmt.Errorf("init synthesizer %s: %w", name, err)
		}
		synths[name] = synth
	}

	var retrieval *service.RetrievalService
	if cfg.AI.Embedder.Provider != "" {
		embedder, err := buildEmbedder(cfg)
		if err != nil {
			return err
		}
		retrieval = service.NewRetrievalService(embedder, passageRepo, cfg.QA.RetrievalLimit)
	}

	segment := service.DefaultSegmentPolicy()
	segment.MinSentenceChars = cfg.QA.MinSentenceChars
	qaService := service.NewQAService(
		bookService,
		transcriber,
		generator,
		synths,
		cfg.AI.DefaultTTS,
		retrieval,
		questionLogRepo,
		service.QAOptions{
			MinChunkIndex:    cfg.QA.MinChunkIndex,
			MinQuestionChars: cfg.QA.MinQuestionChars,
			RecentWindowMs:   cfg.QA.RecentWindowMs,
			MaxTokens:        cfg.AI.MaxTokens,
			CallTimeout:      time.Duration(cfg.AI.TimeoutSeconds) * time.Second,
			MaxInflightSynth: cfg.QA.MaxInflightSynth,
			Segment:          segment,
		},
	)

	deps := handler.RouterDeps{
		Ask:   handler.NewAskHandler(qaService, bookService),
		Books: handler.NewBookHandler(bookService, questionLogRepo),
		Music: handler.NewMusicHandler(musicService),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.CORS(cfg.CORSAllow),
			middleware.RequestID(),
			gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{"/api/v1/ask"})),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	cleanup := job.NewQuestionLogCleanupJob(questionLogRepo, cfg.QA.LogRetentionDays)
	if err := scheduler.AddJob(cleanup, cfg.QA.LogCleanupSpec); err != nil {
		return fmt.Errorf("schedule cleanup: %w", err)
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}

func runIndex(ctx context.Context, cfg *config.Config, database *sql.DB, bookID string) error {
	if cfg.AI.Embedder.Provider == "" {
		return fmt.Errorf("ai.embedder.provider is required for indexing")
	}
	bookService, _, err := buildBookService(cfg)
	if err != nil {
		return err
	}
	embedder, err := buildEmbedder(cfg)
	if err != nil {
		return err
	}
	indexer := service.NewIndexService(bookService, embedder, repo.NewPassageRepo(database))
	return indexer.IndexBook(ctx, bookID)
}
