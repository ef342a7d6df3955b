package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/foxzi/outreach/internal/action"
	"github.com/foxzi/outreach/internal/api"
	"github.com/foxzi/outreach/internal/config"
	"github.com/foxzi/outreach/internal/db"
	"github.com/foxzi/outreach/internal/metrics"
	"github.com/foxzi/outreach/internal/pipeline"
	"github.com/foxzi/outreach/internal/provider/gemini"
	"github.com/foxzi/outreach/internal/provider/gmail"
	"github.com/foxzi/outreach/internal/provider/hunter"
	"github.com/foxzi/outreach/internal/provider/search"
	"github.com/foxzi/outreach/internal/provider/smtpmail"
	"github.com/foxzi/outreach/internal/provider/webfetch"
	"github.com/foxzi/outreach/internal/repository"
	"github.com/foxzi/outreach/internal/service"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the API server",
	RunE:  runServe,
}

var configFile string

func init() {
	serveCmd.Flags().StringVarP(&configFile, "config", "c", "/etc/outreach/config.yaml", "Path to configuration file")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(configFile)
	if err != nil {
		return err
	}

	// Setup logger
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.Logging.Level),
		})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
			Level: parseLogLevel(cfg.Logging.Level),
		})
	}
	logger := slog.New(handler)
	slog.SetDefault(logger)

	api.Version = version

	database, err := db.New(cfg.Database.Path)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := database.Migrate(); err != nil {
		return err
	}

	audit, err := action.NewLogger(cfg.ActionLog.Path)
	if err != nil {
		return err
	}
	defer audit.Close()

	m := metrics.New()

	contacts := repository.NewContactRepository(database.DB)
	staging := repository.NewStagingRepository(database.DB)
	campaigns := repository.NewCampaignRepository(database.DB)
	runs := repository.NewRunRepository(database.DB)
	views := repository.NewSavedViewRepository(database.DB)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	generator, err := gemini.NewGenerator(ctx, cfg.Providers.Gemini.APIKey, cfg.Providers.Gemini.Model, logger)
	if err != nil {
		return err
	}

	mail, cleanup, err := buildMailProvider(ctx, cfg, logger)
	if err != nil {
		return err
	}
	if cleanup != nil {
		defer cleanup()
	}

	manager := pipeline.NewManager(runs, contacts, logger)
	runner := pipeline.NewRunner(
		manager,
		contacts,
		runs,
		hunter.NewClient(cfg.Providers.Hunter.APIKey, m, logger),
		webfetch.NewFetcher(cfg.Pipeline.FetchTimeout, logger),
		generator,
		mail,
		m,
		logger,
	)

	handlers := action.NewHandlers(action.Services{
		Search:   search.NewClient(cfg.Providers.Search.APIKey, logger),
		Staging:  staging,
		Approve:  service.NewApprover(staging, campaigns, contacts, logger),
		Contacts: contacts,
		Views:    views,
		Pipeline: runner,
	}, logger)

	executor := action.NewExecutor(handlers, audit, m, logger)
	srv := api.NewServer(executor, manager, audit, m, cfg, logger)

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-sigCh:
		logger.Info("shutting down...")
		return srv.Shutdown(context.Background())
	}
}

// buildMailProvider constructs the configured mail provider. The returned
// cleanup closes provider-owned resources and may be nil.
func buildMailProvider(ctx context.Context, cfg *config.Config, logger *slog.Logger) (pipeline.MailProvider, func(), error) {
	switch cfg.Providers.Mail.Provider {
	case "gmail":
		token, err := gmail.LoadToken(cfg.Providers.Mail.Gmail.TokenFile)
		if err != nil {
			return nil, nil, err
		}
		oauthCfg := gmail.NewOAuthConfig(cfg.Providers.Mail.Gmail.ClientID, cfg.Providers.Mail.Gmail.ClientSecret)
		p, err := gmail.NewProvider(ctx, oauthCfg, token, cfg.Providers.Mail.From, logger)
		if err != nil {
			return nil, nil, err
		}
		return p, nil, nil

	case "smtp":
		smtpCfg := cfg.Providers.Mail.SMTP
		p, err := smtpmail.NewProvider(smtpmail.Config{
			Host:     smtpCfg.Host,
			Port:     smtpCfg.Port,
			Username: smtpCfg.Username,
			Password: smtpCfg.Password,
			From:     cfg.Providers.Mail.From,
			Timeout:  smtpCfg.Timeout,
		}, smtpCfg.DraftStore, logger)
		if err != nil {
			return nil, nil, err
		}
		if smtpCfg.DKIM.Enabled {
			signer, err := smtpmail.NewSignerFromFile(smtpCfg.DKIM.KeyFile, smtpCfg.DKIM.Domain, smtpCfg.DKIM.Selector)
			if err != nil {
				p.Close()
				return nil, nil, err
			}
			p.SetSigner(signer)
		}
		return p, func() { p.Close() }, nil
	}
	return nil, nil, fmt.Errorf("unknown mail provider: %s", cfg.Providers.Mail.Provider)
}

func parseLogLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "info":
		return slog.LevelInfo
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
