// Consulting Hive is a consulting marketplace exposed as a tool server,
// speaking MCP over stdio and REST over HTTP from one shared catalog.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/agents"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/billing"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/hive"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/notify"
	"github.com/g95g95/Consulting-Hive-mind-sub001/internal/tools"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/auth"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/config"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/llm"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/storage"
	"github.com/g95g95/Consulting-Hive-mind-sub001/pkg/toolserver"
)

var version = "dev"

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "hive",
		Short: "Consulting marketplace tool server",
		Long:  "Hive serves a consulting marketplace as a tool catalog over MCP (stdio) and REST (HTTP).",
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "hive.yaml", "configuration file")

	rootCmd.AddCommand(serveCmd(&configPath))
	rootCmd.AddCommand(migrateCmd(&configPath))
	rootCmd.AddCommand(versionCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd(configPath *string) *cobra.Command {
	var mode string
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the tool server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			if mode != "" {
				cfg.Server.Mode = mode
			}
			if port != 0 {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			return runServe(cfg)
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "transport mode: mcp, rest or dual")
	cmd.Flags().IntVarP(&port, "port", "p", 0, "REST listen port")
	return cmd
}

func migrateCmd(configPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(*configPath)
			if err != nil {
				return err
			}
			db, err := storage.Open(cfg.Database)
			if err != nil {
				return err
			}
			defer db.Close()
			return hive.NewStore(db).Migrate(cmd.Context())
		},
	}
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Show the version",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("hive %s\n", version)
		},
	}
}

func loadConfig(path string) (config.Config, error) {
	cfg := config.Default()
	cfg.Server.Version = version
	if err := config.LoadOrDefault(path, &cfg); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func runServe(cfg config.Config) error {
	// In MCP mode stdout carries the protocol, logs go to stderr.
	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	db, err := storage.Open(cfg.Database)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	store := hive.NewStore(db)
	if err := store.Migrate(context.Background()); err != nil {
		return err
	}

	client, err := llm.NewClient(cfg.LLM)
	if err != nil {
		return fmt.Errorf("create llm client: %w", err)
	}
	defer client.Close()

	codec := auth.NewCodec(cfg.Auth.JWTSecret, cfg.Auth.TokenLifetime)
	notifier := notify.New(notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		From:     cfg.SMTP.From,
		Password: cfg.SMTP.Password,
	}))
	bill := billing.New(billing.Config{
		SecretKey:     cfg.Stripe.SecretKey,
		WebhookSecret: cfg.Stripe.WebhookSecret,
		FrontendURL:   cfg.Stripe.FrontendURL,
	}, store, notifier)

	toolset := tools.New(tools.Toolset{
		Store:    store,
		Agents:   agents.New(client, store),
		Codec:    codec,
		Billing:  bill,
		Notifier: notifier,
		Name:     cfg.Server.Name,
		Version:  cfg.Server.Version,
	})

	registry := toolserver.NewRegistry()
	toolset.Register(registry)
	executor := toolserver.NewExecutor(registry)

	logger.Info("hive starting", "mode", cfg.Server.Mode, "tools", registry.Len())

	switch cfg.Server.Mode {
	case config.ModeMCP:
		return runStdio(cfg, registry, executor, codec)
	case config.ModeREST:
		return runREST(cfg, store, registry, executor, codec, bill)
	case config.ModeDual:
		errCh := make(chan error, 1)
		go func() {
			errCh <- runREST(cfg, store, registry, executor, codec, bill)
		}()
		if err := runStdio(cfg, registry, executor, codec); err != nil {
			return err
		}
		return <-errCh
	}
	return fmt.Errorf("unknown mode %q", cfg.Server.Mode)
}

func runStdio(cfg config.Config, registry *toolserver.Registry, executor *toolserver.Executor, codec *auth.Codec) error {
	srv := toolserver.NewStdioServer(cfg.Server.Name, cfg.Server.Version, registry, executor, codec)
	return srv.Run()
}

func runREST(cfg config.Config, store *hive.Store, registry *toolserver.Registry,
	executor *toolserver.Executor, codec *auth.Codec, bill *billing.Billing) error {

	var providers []auth.OAuthProvider
	if cfg.OAuth.Google.ClientID != "" {
		providers = append(providers, auth.GoogleProvider(cfg.OAuth.Google.ClientID, cfg.OAuth.Google.ClientSecret))
	}
	if cfg.OAuth.GitHub.ClientID != "" {
		providers = append(providers, auth.GitHubProvider(cfg.OAuth.GitHub.ClientID, cfg.OAuth.GitHub.ClientSecret))
	}

	hs := toolserver.NewHTTPServer(toolserver.HTTPConfig{
		Name:     cfg.Server.Name,
		Version:  cfg.Server.Version,
		Registry: registry,
		Executor: executor,
		Codec:    codec,
		OAuth:    auth.NewOAuth(cfg.Auth.CallbackBase, providers...),
		Limiter: auth.NewRateLimiter(
			time.Duration(cfg.RateLimit.WindowSeconds)*time.Second,
			cfg.RateLimit.MaxRequests),
		Login: func(ctx context.Context, ext *auth.ExternalIdentity) (*auth.Identity, error) {
			user, err := store.UpsertOAuthUser(ctx, ext)
			if err != nil {
				return nil, err
			}
			return user.Identity(), nil
		},
	})
	if bill.Enabled() {
		hs.Handle("POST /webhooks/stripe", bill.WebhookHandler())
	}

	srv := &http.Server{
		Addr:    ":" + strconv.Itoa(cfg.Server.Port),
		Handler: hs.Routes(),
	}

	go func() {
		slog.Info("starting REST server", "port", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("REST server failed", "error", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	slog.Info("shutting down REST server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return srv.Shutdown(ctx)
}
