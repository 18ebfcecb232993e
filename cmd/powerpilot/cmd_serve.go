package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"powerpilot/internal/permission"
	"powerpilot/internal/server"
)

var serveAddr string

// serveCmd runs the engine as a daemon: HTTP ingest surface plus the
// permission-grant watcher.
var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the engine daemon",
	Long: `Serves the batch ingest API and watches the permission grants
file. The recommendation service POSTs batches to /v1/batch; grant
changes from the permission flow invalidate the capability cache.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		rt, err := buildRuntime(true)
		if err != nil {
			return err
		}
		defer rt.Close()

		grantsPath := rt.cfg.Platform.GrantsPath
		if !filepath.IsAbs(grantsPath) {
			grantsPath = filepath.Join(workspace, grantsPath)
		}
		watcher, err := permission.NewWatcher(grantsPath, rt.prober)
		if err != nil {
			return err
		}
		if err := watcher.Start(); err != nil {
			return err
		}
		defer watcher.Stop()

		addr := rt.cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		srv := &http.Server{
			Addr: addr,
			Handler: server.NewRouter(&server.Server{
				Coordinator:  rt.coordinator,
				Store:        rt.store,
				Prober:       rt.prober,
				MaxBatchSize: rt.cfg.Execution.MaxBatchSize,
			}),
			ReadHeaderTimeout: 5 * time.Second,
		}

		errCh := make(chan error, 1)
		go func() {
			logger.Info("serving", zap.String("addr", addr))
			errCh <- srv.ListenAndServe()
		}()

		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

		select {
		case sig := <-sigCh:
			logger.Info("shutting down", zap.String("signal", sig.String()))
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Warn("shutdown error", zap.Error(err))
			}
			return nil
		case err := <-errCh:
			if errors.Is(err, http.ErrServerClosed) {
				return nil
			}
			return err
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides config)")
}
