package main

import (
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/ruteri/audit-registry/addressing"
	"github.com/ruteri/audit-registry/api/handlers"
	"github.com/ruteri/audit-registry/cmd/flags"
	"github.com/ruteri/audit-registry/httpserver"
	"github.com/ruteri/audit-registry/interfaces"
	"github.com/ruteri/audit-registry/metrics"
	"github.com/ruteri/audit-registry/registry"
	"github.com/ruteri/audit-registry/storage"
	"github.com/urfave/cli/v2"
)

func main() {
	app := &cli.App{
		Name:  "registry-server",
		Usage: "Serve the audit record registry API",
		Flags: append([]cli.Flag{
			flags.ListenAddrFlag,
			flags.StoreFlag,
			flags.APIKeyFlag,
			flags.LogServiceFlagFn("audit-registry"),
		}, flags.CommonFlags...),
		Action: func(cCtx *cli.Context) error {
			logger := flags.SetupLogger(cCtx)

			var locations []interfaces.StoreLocation
			for _, raw := range cCtx.StringSlice(flags.StoreFlag.Name) {
				location, err := interfaces.NewStoreLocation(raw)
				if err != nil {
					logger.Error("Invalid store location", "location", raw, "err", err)
					return err
				}
				locations = append(locations, location)
			}

			store, err := storage.NewStoreFactory(logger).CreateMultiStore(locations)
			if err != nil {
				logger.Error("Failed to set up record store", "err", err)
				return err
			}
			logger.Info("Record store ready", "location", store.LocationURI())

			m := metrics.NewMetrics("registry")
			svc := registry.NewService(store, addressing.NewRecordDeriver(), logger)
			svc.SetMetrics(m)

			cfg := flags.ConfigureServer(cCtx, logger, cCtx.String(flags.ListenAddrFlag.Name))
			if cfg.APIKey != "" {
				logger.Info("API key guard enabled")
			}

			server, err := httpserver.New(cfg, handlers.NewHandler(svc, cfg.APIKey, logger), m)
			if err != nil {
				logger.Error("Failed to create server", "err", err)
				return err
			}
			server.SetReadinessCheck(store.Available)

			logger.Info("Starting server")
			server.RunInBackground()

			// Wait for termination signal
			exit := make(chan os.Signal, 1)
			signal.Notify(exit, os.Interrupt, syscall.SIGTERM)

			logger.Info("Server is running, press Ctrl+C to stop")
			<-exit
			logger.Info("Shutdown signal received")

			server.Shutdown()
			logger.Info("Server shutdown complete")

			return nil
		},
	}

	if err := app.Run(os.Args); err != nil {
		log.Fatal(err)
	}
}
