package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/aretw0/rewind"
	"github.com/aretw0/rewind/internal/cli"
	"github.com/aretw0/rewind/internal/config"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/session"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "rewind",
	Short: "Rewind is a finite state machine engine with undo/redo history",
	Long: `Rewind loads a state machine from a YAML or JSON file and lets you drive it
interactively, over HTTP or as MCP tools, with every session's history persisted.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	// Persistent flags (available to all commands). They override the environment.
	rootCmd.PersistentFlags().String("env-file", "", "Read settings from this .env file instead of ./.env")
	rootCmd.PersistentFlags().String("store", "", "Session store: memory, file or redis (REWIND_STORE)")
	rootCmd.PersistentFlags().String("session-dir", "", "Directory of the file store (REWIND_SESSION_DIR)")
	rootCmd.PersistentFlags().String("redis-addr", "", "Redis address (REWIND_REDIS_ADDR)")
	rootCmd.PersistentFlags().String("log-level", "", "Log level: debug, info, warn, error (REWIND_LOG_LEVEL)")
	rootCmd.PersistentFlags().String("log-format", "", "Log format: text or json (REWIND_LOG_FORMAT)")
	rootCmd.PersistentFlags().Bool("debug", false, "Log every history movement to stderr")
}

// loadSettings reads the environment and applies flag overrides.
func loadSettings(cmd *cobra.Command) (config.Settings, error) {
	var files []string
	if f, _ := cmd.Flags().GetString("env-file"); f != "" {
		files = append(files, f)
	}
	s, err := config.Load(files...)
	if err != nil {
		return config.Settings{}, err
	}

	overrides := map[string]*string{
		"store":       &s.Store,
		"session-dir": &s.SessionDir,
		"redis-addr":  &s.RedisAddr,
		"log-level":   &s.LogLevel,
		"log-format":  &s.LogFormat,
	}
	for name, field := range overrides {
		if cmd.Flags().Changed(name) {
			*field, _ = cmd.Flags().GetString(name)
		}
	}
	return s, s.Validate()
}

// newLogger builds the stderr logger for a command.
func newLogger(cmd *cobra.Command, s config.Settings) (*slog.Logger, bool) {
	debug, _ := cmd.Flags().GetBool("debug")
	return cli.NewLogger(s.Level(), s.LogFormat, debug), debug
}

// openBackend opens the session store selected by the settings.
func openBackend(cmd *cobra.Command) (*cli.Backend, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	return cli.OpenBackend(cmd.Context(), s)
}

// app gathers what the long-running commands share: settings, logger,
// backend and a session manager for cfg.
type app struct {
	settings config.Settings
	logger   *slog.Logger
	backend  *cli.Backend
	sessions *session.Manager
}

// hookFactory builds lifecycle hooks once the command's logger exists.
type hookFactory func(*slog.Logger) domain.LifecycleHooks

func newApp(cmd *cobra.Command, cfg *domain.Config, factories ...hookFactory) (*app, error) {
	s, err := loadSettings(cmd)
	if err != nil {
		return nil, err
	}
	logger, debug := newLogger(cmd, s)
	if debug {
		factories = append(factories, cli.DebugHooks)
	}
	hooks := make([]domain.LifecycleHooks, 0, len(factories))
	for _, f := range factories {
		hooks = append(hooks, f(logger))
	}

	backend, err := cli.OpenBackend(cmd.Context(), s)
	if err != nil {
		return nil, err
	}

	opts := []session.Option{
		session.WithLogger(logger),
		session.WithMachineOptions(
			rewind.WithLogger(logger),
			rewind.WithLifecycleHooks(domain.ComposeHooks(hooks...)),
		),
	}
	if backend.Locker != nil {
		opts = append(opts, session.WithLocker(backend.Locker))
	}

	return &app{
		settings: s,
		logger:   logger,
		backend:  backend,
		sessions: session.NewManager(cfg, backend.Store, opts...),
	}, nil
}
