package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"study-ai/internal/analytics"
	"study-ai/internal/api"
	"study-ai/internal/config"
	"study-ai/internal/logging"
	"study-ai/internal/models"
	"study-ai/internal/services"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "study-ai",
		Short: "Turn study documents into summaries, flashcards and quizzes",
		Long: `study-ai accepts PDF, DOCX and plain text study notes over HTTP and asks
a language model for a summary, flashcards, multiple-choice questions and a
study plan. Running it without a subcommand starts the server.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newExtractCmd())

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func newExtractCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "extract <file>",
		Short:   "Print the text extracted from a document",
		Example: "  study-ai extract notes.pdf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := args[0]
			docType, ok := models.TypeFromName(path)
			if !ok {
				return fmt.Errorf("unsupported file type %q", docType)
			}
			text, err := services.NewTextExtractor(nil).Extract(path, docType)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), text)
			return nil
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return err
	}
	defer logger.Sync()

	store, err := analytics.Open(cfg.AnalyticsBackend)
	if err != nil {
		return fmt.Errorf("open analytics: %w", err)
	}
	defer store.Close()

	aiService := services.NewAIService(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEndpoint)
	if cfg.OpenAIKey == "" {
		logger.Warn("OPENAI_API_KEY is not set; every artifact will report an AI error")
	}

	documentService := services.NewDocumentService(cfg.UploadDir)
	extractor := services.NewTextExtractor(logger.Named("extract"))
	generator := services.NewStudyGenerator(aiService, cfg.AITimeout, cfg.AIMaxTokens, logger.Named("generate"))
	ingestionService := services.NewIngestionService(documentService, extractor, generator, store, logger.Named("ingest"))

	server := api.NewServer(ingestionService, store, services.NewScheduleService(), logger.Named("http"), cfg.MaxUploadBytes)

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      server.Handler(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: cfg.AITimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("listening",
			zap.String("addr", srv.Addr),
			zap.String("upload_dir", cfg.UploadDir),
			zap.String("analytics", cfg.AnalyticsBackend))
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
