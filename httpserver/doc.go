/*
Package httpserver runs the audit registry HTTP API.

Server wraps the record API routes from api/handlers with request logging
and adds the operational endpoints:

  - GET /livez - Liveness check
  - GET /readyz - Readiness check, failing while drained or while storage is unavailable
  - GET /drain - Mark server as not ready
  - GET /undrain - Mark server as ready
  - /debug/pprof/* - Profiling, when EnablePprof is set

Prometheus metrics are served on a separate listener at MetricsAddr.

# Example Usage

	cfg := &api.HTTPServerConfig{
		ListenAddr:               ":8080",
		MetricsAddr:              ":8090",
		Log:                      logger,
		DrainDuration:            45 * time.Second,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}

	handler := handlers.NewHandler(registryService, cfg.APIKey, logger)
	server, err := httpserver.New(cfg, handler, m)
	if err != nil {
		log.Fatalf("Failed to create server: %v", err)
	}
	server.SetReadinessCheck(store.Available)

	server.RunInBackground()
	defer server.Shutdown()
*/
package httpserver
