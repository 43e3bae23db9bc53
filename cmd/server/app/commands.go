// Package app provides the command-line interface of the Todo MCP server.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/jamesprial/todo-mcp-auth/internal/config"
	"github.com/jamesprial/todo-mcp-auth/internal/mcp"
	"github.com/jamesprial/todo-mcp-auth/internal/metrics"
	"github.com/jamesprial/todo-mcp-auth/internal/oauth"
	"github.com/jamesprial/todo-mcp-auth/internal/transport"
)

// Version is set at build time with -ldflags "-X .../app.Version=...".
var Version = "dev"

const flagConfig = "config"

// NewRootCmd creates the root command with serve, validate and version
// subcommands. Every configuration key can also be set from the environment.
func NewRootCmd() *cobra.Command {
	v := config.New()

	root := &cobra.Command{
		Use:   "todo-mcp-auth",
		Short: "OAuth protected Todo MCP resource server",
		Long: `todo-mcp-auth serves a Model Context Protocol endpoint behind an OAuth 2.0
bearer token gate. Unauthenticated requests receive an RFC 6750 challenge that
points at the RFC 9728 protected resource metadata document, which the server
publishes at /.well-known/oauth-protected-resource.`,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmd.Help()
		},
	}

	root.PersistentFlags().StringP(flagConfig, "c", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("log-level", "", "Log level (debug, info, warn, error)")
	if err := v.BindPFlag(config.KeyLogLevel, root.PersistentFlags().Lookup("log-level")); err != nil {
		panic(fmt.Sprintf("bind log-level flag: %v", err))
	}

	root.AddCommand(newServeCmd(v))
	root.AddCommand(newValidateCmd(v))
	root.AddCommand(newVersionCmd())

	return root
}

func newServeCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the server",
		Long: `Start the HTTP server. It exits after a graceful shutdown on SIGINT or
SIGTERM, bounded by server.shutdown_timeout.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}

			logger, err := NewLogger(cmd.ErrOrStderr(), cfg.LogLevel, cfg.LogFormat)
			if err != nil {
				return err
			}
			slog.SetDefault(logger)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runServe(ctx, cfg, logger)
		},
	}
}

func newValidateCmd(v *viper.Viper) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Validate configuration and exit",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, v)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintf(cmd.OutOrStdout(), "configuration is valid\n%s\n", cfg)
			return err
		},
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "todo-mcp-auth %s\n", Version)
			return err
		},
	}
}

func loadConfig(cmd *cobra.Command, v *viper.Viper) (*config.Config, error) {
	configFile, err := cmd.Flags().GetString(flagConfig)
	if err != nil {
		return nil, err
	}
	cfg, err := config.Load(v, configFile)
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// OAuthConfig maps server configuration onto the oauth package.
func OAuthConfig(cfg *config.Config) *oauth.Config {
	return &oauth.Config{
		Mode:                   cfg.ResourceMode,
		ResourceName:           cfg.ResourceName,
		ResourcePath:           cfg.ResourcePath,
		ResourceURL:            cfg.ResourceURL,
		AuthorizationServers:   cfg.AuthorizationServers,
		ScopesSupported:        cfg.ScopesSupported,
		BearerMethodsSupported: cfg.BearerMethodsSupported,
		JWKSURL:                cfg.JWKSURL,
		Issuer:                 cfg.Issuer,
		Audience:               cfg.Audience,
		ClockSkew:              cfg.ClockSkew,
	}
}

func runServe(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	logger.Info("server configuration loaded",
		"addr", cfg.Addr,
		"resource_mode", cfg.ResourceMode,
		"resource_path", cfg.ResourcePath,
		"authorization_servers", cfg.AuthorizationServers,
		"strict_error_codes", cfg.StrictErrorCodes,
	)

	validator, metadata, jwks, err := oauth.NewOAuthServices(ctx, OAuthConfig(cfg))
	if err != nil {
		return fmt.Errorf("failed to create oauth services: %w", err)
	}

	// Keys are fetched lazily; a failed warm-up is retried on first use.
	if err := jwks.RefreshKeys(ctx); err != nil {
		logger.Warn("initial jwks fetch failed", "error", err)
	}

	recorder := metrics.New()
	mcpHandler := mcp.NewHandler(mcp.Config{
		Name:    cfg.ResourceName,
		Version: Version,
		Path:    cfg.ResourcePath,
		Logger:  logger,
	})

	server, _, err := transport.NewTransportServices(&transport.Config{
		ServerConfig:    cfg,
		OAuthValidator:  validator,
		MetadataService: metadata,
		MCPHandler:      mcpHandler,
		Metrics:         recorder,
		MetricsHandler:  recorder.Handler(),
		Logger:          logger,
	})
	if err != nil {
		return fmt.Errorf("failed to create transport services: %w", err)
	}

	serverErrCh := make(chan error, 1)
	go func() {
		logger.Info("starting server", "addr", cfg.Addr)
		serverErrCh <- server.Start()
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received, stopping server gracefully")
	case err := <-serverErrCh:
		if err != nil {
			return err
		}
		return errors.New("server stopped unexpectedly")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}

	logger.Info("server stopped")
	return nil
}
