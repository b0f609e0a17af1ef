package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/kart-io/logger"
	"github.com/kart-io/version"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/kart-io/guardian/internal/guardian"
	"github.com/kart-io/guardian/pkg/tracing"
)

const (
	// name is the name of the application.
	name = "guardian"

	commandDesc = `Guardian security engine

An embeddable authorization and session-security engine providing:
  - Credential authentication with lockout and client-bound sessions
  - Role-based authorization with hierarchy and wildcard permissions
  - Cached, fail-safe permission evaluation over a durable store
  - Risk-classified, privacy-redacting security audit trail
  - Signed access tokens with revocation`
)

var configFile string

// NewCommand creates the root cobra command.
func NewCommand() *cobra.Command {
	opts := NewServerOptions()

	cmd := &cobra.Command{
		Use:          name,
		Short:        "Guardian security engine",
		Long:         commandDesc,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			version.PrintAndExitIfRequested()
			if err := loadConfig(cmd, opts); err != nil {
				return err
			}
			if errs := opts.Validate(); len(errs) > 0 {
				return fmt.Errorf("invalid configuration: %v", errs)
			}
			return run(opts)
		},
	}

	cmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "Path to the configuration file")
	opts.AddFlags(cmd.PersistentFlags())
	version.AddFlags(cmd.PersistentFlags())

	return cmd
}

// loadConfig merges the config file and environment over the flag
// defaults. Flags set explicitly keep the highest precedence.
func loadConfig(cmd *cobra.Command, opts *ServerOptions) error {
	v := viper.New()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName(name)
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/guardian")
	}

	v.SetEnvPrefix("GUARDIAN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("failed to read config: %w", err)
		}
	}

	return v.Unmarshal(opts)
}

// run initializes the logger, builds the engine and blocks until a
// termination signal arrives.
func run(opts *ServerOptions) error {
	if err := opts.Log.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	logger.Infow("starting guardian",
		"version", version.Get().GitVersion,
		"db", opts.DB.DSN,
		"redis", opts.Redis.Enabled,
	)

	ctx := setupSignalContext()

	provider, err := tracing.NewProvider(ctx, opts.Trace, version.Get().GitVersion)
	if err != nil {
		return fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			logger.Errorw("failed to shut down tracing", "error", err)
		}
	}()

	engine, err := guardian.New(opts.Config())
	if err != nil {
		return fmt.Errorf("failed to build engine: %w", err)
	}
	defer func() {
		if err := engine.Close(); err != nil {
			logger.Errorw("failed to close engine", "error", err)
		}
	}()

	return engine.Run(ctx)
}

// setupSignalContext returns a context cancelled on SIGINT or SIGTERM.
// A second signal exits immediately.
func setupSignalContext() context.Context {
	ctx, cancel := context.WithCancel(context.Background())
	c := make(chan os.Signal, 2)
	signal.Notify(c, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-c
		cancel()
		<-c
		os.Exit(1)
	}()
	return ctx
}
