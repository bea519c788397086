package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/aretw0/rewind/internal/cli"
	httpadapter "github.com/aretw0/rewind/pkg/adapters/http"
	"github.com/aretw0/rewind/pkg/domain"
	"github.com/aretw0/rewind/pkg/observability"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
)

var serveCmd = &cobra.Command{
	Use:   "serve <file>",
	Short: "Start the HTTP API server",
	Long: `Serves sessions of the machine over HTTP with Server-Sent Events for
updates and Prometheus metrics on /metrics.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		cfg, err := cli.LoadConfig(path)
		if err != nil {
			return err
		}

		reg := prometheus.NewRegistry()
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
		metrics := observability.NewMetrics(reg)

		rt, err := newApp(cmd, cfg,
			func(*slog.Logger) domain.LifecycleHooks { return metrics.Hooks() },
			observability.LogHooks,
		)
		if err != nil {
			return err
		}
		defer rt.backend.Close()

		port := rt.settings.HTTPPort
		if cmd.Flags().Changed("port") {
			port, _ = cmd.Flags().GetInt("port")
		}
		opts := []httpadapter.Option{
			httpadapter.WithLogger(rt.logger),
			httpadapter.WithMetrics(reg),
		}
		if rt.settings.RateLimit > 0 {
			opts = append(opts, httpadapter.WithRateLimit(rt.settings.RateLimit, time.Minute))
		}
		server := httpadapter.NewServer(rt.sessions, opts...)

		srv := &http.Server{
			Addr:    fmt.Sprintf(":%d", port),
			Handler: server.Routes(),
		}

		sc := cli.NewSignalContext(context.Background())
		defer sc.Cancel()

		if watch, _ := cmd.Flags().GetBool("watch"); watch {
			go watchConfig(sc, path, rt, server.Reload)
		}

		serverErrors := make(chan error, 1)
		go func() {
			rt.logger.Info("Server listening", "address", srv.Addr, "store", rt.settings.Store)
			serverErrors <- srv.ListenAndServe()
		}()

		select {
		case err := <-serverErrors:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return fmt.Errorf("server error: %w", err)
		case <-sc.Done():
			rt.logger.Info("Shutdown signal received", "signal", sc.Signal())

			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()

			if err := srv.Shutdown(ctx); err != nil {
				srv.Close()
				return fmt.Errorf("could not stop server gracefully: %w", err)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().IntP("port", "p", 8080, "Port to listen on (REWIND_HTTP_PORT)")
	serveCmd.Flags().BoolP("watch", "w", false, "Reload the machine when the file changes")
}
