package flags

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/ruteri/barnyard/api"
	"github.com/ruteri/barnyard/common"
	"github.com/ruteri/barnyard/interfaces"
	"github.com/ruteri/barnyard/kms"
	"github.com/ruteri/barnyard/secrets"
	"github.com/urfave/cli/v2"
	"github.com/urfave/cli/v2/altsrc"
)

func SetupLogger(cCtx *cli.Context) (log *slog.Logger) {
	logJSON := cCtx.Bool(LogJsonFlag.Name)
	logDebug := cCtx.Bool(LogDebugFlag.Name)
	logUID := cCtx.Bool(LogUidFlag.Name)
	logService := cCtx.String(LogServiceFlag.Name)

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
		Log:                      logger,
		EnablePprof:              enablePprof,
		DrainDuration:            drainDuration,
		GracefulShutdownDuration: api.DefaultGracefulShutdownDuration,
		ReadTimeout:              api.DefaultReadTimeout,
		WriteTimeout:             api.DefaultWriteTimeout,
	}
}

// SnapshotLocations returns the configured snapshot URIs, defaulting to the
// data directory.
func SnapshotLocations(cCtx *cli.Context) ([]interfaces.StorageBackendLocation, error) {
	uris := cCtx.StringSlice(SnapshotURIFlag.Name)
	if len(uris) == 0 {
		uris = []string{"file://" + cCtx.String(DataDirFlag.Name)}
	}
	return interfaces.ParseStorageBackendLocations(uris)
}

// Splitter builds the threshold splitter from --threshold and --total-shares.
func Splitter(cCtx *cli.Context) (*kms.Splitter, error) {
	splitter, err := kms.NewSplitter(cCtx.Int(ThresholdFlag.Name), cCtx.Int(TotalSharesFlag.Name))
	if err != nil {
		return nil, fmt.Errorf("invalid threshold scheme: %w", err)
	}
	return splitter, nil
}

// LoadConfigFile reads values for any flag wrapped with altsrc from the YAML
// file named by --config, when set.
func LoadConfigFile(appFlags []cli.Flag) cli.BeforeFunc {
	load := altsrc.InitInputSourceWithContext(appFlags, altsrc.NewYamlSourceFromFlagFunc(ConfigFlag.Name))
	return func(cCtx *cli.Context) error {
		if cCtx.String(ConfigFlag.Name) == "" {
			return nil
		}
		return load(cCtx)
	}
}

var ConfigFlag = &cli.StringFlag{
	Name:  "config",
	Usage: "YAML file with flag values; command-line flags take precedence",
}

var DataDirFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "data-dir",
	Value:   secrets.DefaultResourcePrefix,
	Usage:   "directory for the encrypted snapshot and resource path prefix",
	EnvVars: []string{"BARNYARD_DATA_DIR"},
})

var KeyFileFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:    "key-file",
	Value:   "encryption_key.bin",
	Usage:   "file holding the 32-byte master key, created on first use",
	EnvVars: []string{"BARNYARD_KEY_FILE"},
})

var IdentityFileFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:  "identity-file",
	Value: "user_id.txt",
	Usage: "file holding this process's identity token, created on first use",
})

var SnapshotURIFlag = altsrc.NewStringSliceFlag(&cli.StringSliceFlag{
	Name:  "snapshot-uri",
	Usage: "snapshot storage location (file://, s3://, vault://, ipfs://); repeat to write to several. Defaults to file://<data-dir>",
})

var SnapshotNameFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:  "snapshot-name",
	Value: secrets.DefaultSnapshotName,
	Usage: "name the snapshot is stored under in each backend",
})

var ThresholdFlag = altsrc.NewIntFlag(&cli.IntFlag{
	Name:  "threshold",
	Value: kms.DefaultThreshold,
	Usage: "number of shares needed to recover the master key",
})

var TotalSharesFlag = altsrc.NewIntFlag(&cli.IntFlag{
	Name:  "total-shares",
	Value: kms.DefaultTotalShares,
	Usage: "number of shares the master key is split into",
})

var GrantFlag = altsrc.NewStringSliceFlag(&cli.StringSliceFlag{
	Name:  "grant",
	Usage: "extra access grant as identity=path; repeatable",
})

var ListenAddrFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:  "listen-addr",
	Value: api.DefaultListenAddr,
	Usage: "address to listen on for API",
})

var LogJsonFlag = altsrc.NewBoolFlag(&cli.BoolFlag{
	Name:  "log-json",
	Value: false,
	Usage: "log in JSON format",
})
var LogDebugFlag = altsrc.NewBoolFlag(&cli.BoolFlag{
	Name:  "log-debug",
	Value: false,
	Usage: "log debug messages",
})
var LogUidFlag = altsrc.NewBoolFlag(&cli.BoolFlag{
	Name:  "log-uid",
	Value: false,
	Usage: "generate a uuid and add to all log messages",
})
var LogServiceFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:  "log-service",
	Value: common.PackageName,
	Usage: "add 'service' tag to logs",
})

var PprofFlag = altsrc.NewBoolFlag(&cli.BoolFlag{
	Name:  "pprof",
	Value: false,
	Usage: "enable pprof debug endpoint",
})
var DrainSecondsFlag = altsrc.NewInt64Flag(&cli.Int64Flag{
	Name:  "drain-seconds",
	Value: 45,
	Usage: "seconds to wait in drain HTTP request",
})
var MetricsAddrFlag = altsrc.NewStringFlag(&cli.StringFlag{
	Name:  "metrics-addr",
	Value: "127.0.0.1:8090",
	Usage: "address to listen on for Prometheus metrics",
})

var CommonFlags = []cli.Flag{
	ConfigFlag,
	LogJsonFlag,
	LogDebugFlag,
	LogUidFlag,
	LogServiceFlag,
	DataDirFlag,
	KeyFileFlag,
	IdentityFileFlag,
	SnapshotURIFlag,
	SnapshotNameFlag,
	ThresholdFlag,
	TotalSharesFlag,
	GrantFlag,
}

var ServerFlags = []cli.Flag{
	ListenAddrFlag,
	PprofFlag,
	DrainSecondsFlag,
	MetricsAddrFlag,
}
