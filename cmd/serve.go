package cmd

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"astro-service/api"
	"astro-service/collector"
	"astro-service/ephemeris"
	"astro-service/logger"

	"github.com/spf13/cobra"
)

// voidRetention is how long computed void periods stay in memory without a database
const voidRetention = 7 * 24 * time.Hour

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().Int("port", 0, "override server.port")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	if port, _ := cmd.Flags().GetInt("port"); port > 0 {
		cfg.Server.Port = port
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	eph := ephemeris.New()
	client := newSDKClient(cfg)
	deps := api.Deps{
		Charts:       buildChartSource(cfg, eph, client),
		Horoscopes:   buildHoroscopeSource(cfg, client),
		Ephemeris:    eph,
		Detector:     newDetector(cfg, eph),
		MaxRangeDays: cfg.Moon.MaxRangeDays,
	}
	logger.Log.Infof("Chart source: %s", deps.Charts.Name())
	if deps.Horoscopes == nil {
		logger.Log.Warn("No SDK credentials, daily horoscopes are disabled")
	}

	if cfg.DB.Enabled() {
		db, err := openStore(ctx, cfg)
		if err != nil {
			return err
		}
		defer db.Close()
		deps.Voids = db
		deps.Database = db

		if cfg.Analytics.Enabled {
			counter := collector.NewCounter(db, cfg.Analytics.QueueSize, cfg.Analytics.FlushInterval)
			stopCounter := counter.Start(context.Background())
			defer stopCounter()
			deps.Counter = counter
		}
	} else {
		voids := api.NewMemoryVoidStore()
		deps.Voids = voids
		go pruneVoids(ctx, voids)
		if cfg.Analytics.Enabled {
			logger.Log.Warn("Analytics needs a database, request counting is disabled")
		}
	}

	server := api.NewServer(deps, cfg.Server.Port)
	server.SetTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout)

	serverErr := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			serverErr <- err
		}
		close(serverErr)
	}()

	select {
	case err := <-serverErr:
		return err
	case <-ctx.Done():
	}
	logger.Log.Info("Shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		return err
	}
	logger.Log.Info("Shutdown complete")
	return nil
}

// pruneVoids periodically drops old void periods from the in-memory store
func pruneVoids(ctx context.Context, voids *api.MemoryVoidStore) {
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if n := voids.PruneBefore(time.Now().Add(-voidRetention)); n > 0 {
				logger.Log.Infof("Pruned %d old void periods", n)
			}
		case <-ctx.Done():
			return
		}
	}
}
