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
	"gorm.io/gorm"

	"relay/internal/auth"
	"relay/internal/config"
	"relay/internal/db"
	"relay/internal/gateway"
	httpx "relay/internal/http"
	"relay/internal/logging"
	"relay/internal/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:           "relay",
		Short:         "Memory relay API",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// setup loads the config and opens the database.
func setup() (config.Config, *zap.Logger, *gorm.DB, error) {
	cfg, err := config.Load()
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	log, err := logging.New(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		return config.Config{}, nil, nil, err
	}
	gdb, err := db.Connect(cfg.DatabaseDriver, cfg.DatabaseURL)
	if err != nil {
		return config.Config{}, nil, nil, fmt.Errorf("connect: %w", err)
	}
	return cfg, log, gdb, nil
}

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			_, log, gdb, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if err := db.AutoMigrateAndIndexes(gdb); err != nil {
				return err
			}
			log.Info("schema migrated")
			return nil
		},
	}
}

func serveCmd() *cobra.Command {
	var migrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, gdb, err := setup()
			if err != nil {
				return err
			}
			defer log.Sync()

			if migrate {
				if err := db.AutoMigrateAndIndexes(gdb); err != nil {
					return err
				}
			}
			return serve(cfg, log, gdb)
		},
	}

	cmd.Flags().BoolVar(&migrate, "migrate", true, "migrate the schema before serving")
	return cmd
}

func serve(cfg config.Config, log *zap.Logger, gdb *gorm.DB) error {
	base := db.NewGateway(gdb)
	reg := session.NewRegistry(func(uid string) gateway.Gateway { return base.As(uid) }, cfg.SessionIdleTTL, log)
	defer reg.Close()

	r := httpx.NewRouter(cfg, httpx.Deps{
		Auth:     &auth.Service{DB: gdb},
		JWT:      auth.NewJWT(cfg.JWTSecret),
		Sessions: reg,
		Log:      log,
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.RefreshInterval > 0 {
		poller := &session.Poller{Registry: reg, Interval: cfg.RefreshInterval, Log: log}
		go poller.Run(ctx)
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("listening", zap.String("addr", cfg.HTTPAddr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	// graceful shutdown
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-ch:
	case err := <-errCh:
		return err
	}

	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	return srv.Shutdown(shutdownCtx)
}
