package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/alecthomas/kingpin/v2"
	"go.uber.org/zap"

	"github.com/eugenenazirov/smartpack/internal/application"
	"github.com/eugenenazirov/smartpack/internal/config"
	"github.com/eugenenazirov/smartpack/internal/logging"
)

// version is overridden at build time via -ldflags "-X main.version=...".
var version = "dev"

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("smartpack", "SmartPack - recommends shipping boxes and plans 3-D packing layouts")
	kingpinApp.Version(version)
	configFile := kingpinApp.Flag("config", "Path to YAML configuration file").String()
	logLevel := kingpinApp.Flag("log-level", "Log level (debug, info, warn, error)").String()
	catalogStr := kingpinApp.Flag("catalog", "Comma-separated box catalog, e.g. S:25x20x15,M:30x25x20").String()
	envelopePolicy := kingpinApp.Flag("envelope-policy", "Envelope policy: max_per_axis or largest_item").String()
	packTimeout := kingpinApp.Flag("pack-timeout", "Upper bound for a single packing run").Default("0s").Duration()

	serveCmd := kingpinApp.Command("serve", "Run the HTTP API").Default()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed per client (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter").Default("-1").Int()

	predictCmd := kingpinApp.Command("predict", "Recommend a box for the items in a CSV or XLSX manifest")
	predictManifest := predictCmd.Arg("manifest", "Item manifest (.csv or .xlsx)").Required().ExistingFile()
	predictUnits := predictCmd.Flag("units", "Unit system for the output: metric or imperial").Default("metric").Enum("metric", "imperial")

	packCmd := kingpinApp.Command("pack", "Plan the packing of a manifest into a given box")
	packManifest := packCmd.Arg("manifest", "Item manifest (.csv or .xlsx)").Required().ExistingFile()
	packBox := packCmd.Flag("box", "Box as LxWxH or NAME:LxWxH, in centimetres").Required().String()
	packVoidFill := packCmd.Flag("void-fill", "Void fill: bubble_wrap, air_cushions or foam_peanuts (derived from fragility when empty)").String()
	packOutput := packCmd.Flag("output", "Write the plan to a .json, .pdf or .xlsx file instead of stdout").Short('o').String()
	packUnits := packCmd.Flag("units", "Unit system for the output: metric or imperial").Default("metric").Enum("metric", "imperial")

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	overrides := &config.CLIOverrides{
		ConfigFile:     *configFile,
		LogLevel:       logLevel,
		CatalogStr:     catalogStr,
		EnvelopePolicy: envelopePolicy,
		PackTimeout:    packTimeout,
	}

	if *port != "" {
		overrides.Port = port
	}

	if *rateLimitRPSFlag >= 0 {
		overrides.RateLimitRPS = rateLimitRPSFlag
	}

	if *rateLimitBurstFlag >= 0 {
		overrides.RateLimitBurst = rateLimitBurstFlag
	}

	cfg, err := config.Load(overrides)
	if err != nil {
		kingpinApp.Fatalf("failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		kingpinApp.Fatalf("failed to initialize logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
	}()

	ctx := context.Background()
	switch command {
	case predictCmd.FullCommand():
		err = runPredict(ctx, cfg, predictOptions{
			Manifest: *predictManifest,
			Units:    *predictUnits,
		}, os.Stdout, logger)
		kingpinApp.FatalIfError(err, "predict")
	case packCmd.FullCommand():
		err = runPack(ctx, cfg, packOptions{
			Manifest: *packManifest,
			Box:      *packBox,
			VoidFill: *packVoidFill,
			Output:   *packOutput,
			Units:    *packUnits,
		}, os.Stdout, logger)
		kingpinApp.FatalIfError(err, "pack")
	default:
		serve(cfg, logger)
	}
}

func serve(cfg config.Config, logger *zap.Logger) {
	app, err := application.New(cfg, logger, application.WithVersion(version))
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	logger.Info("starting smartpack",
		zap.String("version", version),
		zap.Int("catalog_boxes", len(cfg.Catalog)),
		zap.String("envelope_policy", string(cfg.EnvelopePolicy)),
		zap.Duration("pack_timeout", cfg.PackTimeout),
		zap.Bool("metrics", cfg.EnableMetrics),
	)

	if err := app.Start(); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	sig := <-quit
	logger.Info("shutting down server", zap.String("signal", fmt.Sprint(sig)))

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
