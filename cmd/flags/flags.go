package flags

import (
	"crypto/ecdsa"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/crypto"
	"github.com/google/uuid"
	"github.com/ruteri/audit-registry/api"
	"github.com/ruteri/audit-registry/common"
	"github.com/urfave/cli/v2"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String("log-service")

	logger := common.SetupLogger(&common.LoggingOpts{
		Debug:   logDebug,
		JSON:    logJSON,
		Service: logService,
		Version: common.Version,
	})

	if logUID {
		id := uuid.Must(uuid.NewRandom())
		logger = logger.With("uid", id.String())
	}
	return logger
}

func ConfigureServer(cCtx *cli.Context, logger *slog.Logger, listenAddr string) *api.HTTPServerConfig {
	metricsAddr := cCtx.String(MetricsAddrFlag.Name)
	enablePprof := cCtx.Bool(PprofFlag.Name)
	drainDuration := time.Duration(cCtx.Int64(DrainSecondsFlag.Name)) * time.Second

	return &api.HTTPServerConfig{
		ListenAddr:               listenAddr,
		MetricsAddr:              metricsAddr,
		APIKey:                   cCtx.String(APIKeyFlag.Name),
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: 30 * time.Second,
		ReadTimeout:              60 * time.Second,
		WriteTimeout:             30 * time.Second,
	}
}

// LoadPrivateKey reads the signing key from --private-key or --private-key-file.
func LoadPrivateKey(cCtx *cli.Context) (*ecdsa.PrivateKey, error) {
	if file := cCtx.String(PrivateKeyFileFlag.Name); file != "" {
		key, err := crypto.LoadECDSA(file)
		if err != nil {
			return nil, fmt.Errorf("could not load private key file: %w", err)
		}
		return key, nil
	}

	raw := cCtx.String(PrivateKeyFlag.Name)
	if raw == "" {
		return nil, errors.New("a private key is required: set --private-key or --private-key-file")
	}
	key, err := crypto.HexToECDSA(strings.TrimPrefix(raw, "0x"))
	if err != nil {
		return nil, fmt.Errorf("could not parse private key: %w", err)
	}
	return key, nil
}

var ListenAddrFlag = &cli.StringFlag{
	Name:    "listen-addr",
	Value:   "127.0.0.1:8080",
	Usage:   "address to listen on for API",
	EnvVars: []string{"LISTEN_ADDR"},
}

var StoreFlag = &cli.StringSliceFlag{
	Name:    "store",
	Value:   cli.NewStringSlice("memory://"),
	Usage:   "record store location URI (memory://, file:///dir, s3://bucket/prefix, vault://host:port/mount/path). Repeat to add mirrors, the first one is the primary",
	EnvVars: []string{"RECORD_STORES"},
}

var APIKeyFlag = &cli.StringFlag{
	Name:    "api-key",
	Usage:   "if set, every /api request must carry this value in the X-Api-Key header",
	EnvVars: []string{"API_KEY"},
}

var ServerAddrFlag = &cli.StringFlag{
	Name:    "server-addr",
	Value:   "http://127.0.0.1:8080",
	Usage:   "registry server address to request",
	EnvVars: []string{"REGISTRY_SERVER_ADDR"},
}

var PrivateKeyFlag = &cli.StringFlag{
	Name:    "private-key",
	Usage:   "hex encoded secp256k1 private key of the record owner",
	EnvVars: []string{"REGISTRY_PRIVATE_KEY"},
}

var PrivateKeyFileFlag = &cli.StringFlag{
	Name:  "private-key-file",
	Usage: "file holding the hex encoded secp256k1 private key of the record owner",
}

var IPFSAPIFlag = &cli.StringFlag{
	Name:    "ipfs-api",
	Value:   "127.0.0.1:5001",
	Usage:   "IPFS HTTP API address used to publish and fetch metadata documents",
	EnvVars: []string{"IPFS_API"},
}

var LogJsonFlag = &cli.BoolFlag{
	Name:    "log-json",
	Value:   false,
	Usage:   "log in JSON format",
	EnvVars: []string{"LOG_JSON"},
}
var LogDebugFlag = &cli.BoolFlag{
	Name:    "log-debug",
	Value:   false,
	Usage:   "log debug messages",
	EnvVars: []string{"LOG_DEBUG"},
}
var LogUidFlag = &cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
}

var LogServiceFlagFn = func(service string) *cli.StringFlag {
	return &cli.StringFlag{
		Name:  "log-service",
		Value: service,
		Usage: "add 'service' tag to logs",
	}
}

var PprofFlag = &cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
}
var DrainSecondsFlag = &cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
}
var MetricsAddrFlag = &cli.StringFlag{
	Name:    "metrics-addr",
	Value:   "127.0.0.1:8090",
	Usage:   "address to listen on for Prometheus metrics",
	EnvVars: []string{"METRICS_ADDR"},
}

var CommonFlags = []cli.Flag{
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
