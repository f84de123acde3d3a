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

	"github.com/eugenenazirov/specd/internal/application"
	"github.com/eugenenazirov/specd/internal/config"
	"github.com/eugenenazirov/specd/internal/export"
	"github.com/eugenenazirov/specd/internal/logging"
)

var signalNotify = signal.Notify

func main() {
	kingpinApp := kingpin.New("specd", "Loads Android packaging spec files and serves them over HTTP")

	serveCmd := kingpinApp.Command("serve", "Serve the spec file over HTTP").Default()
	configFile := serveCmd.Flag("config", "Path to YAML configuration file").String()
	port := serveCmd.Flag("port", "HTTP port exposed by the service").String()
	specFile := serveCmd.Flag("spec-file", "Path to the spec file to serve").String()
	logLevel := serveCmd.Flag("log-level", "Log level (debug, info, warn, error)").String()
	var watchSet, persistSet bool
	watchFlag := serveCmd.Flag("watch", "Reload the spec file when it changes").IsSetByUser(&watchSet).Bool()
	persistFlag := serveCmd.Flag("persist", "Write specs accepted over HTTP back to the spec file").IsSetByUser(&persistSet).Bool()
	rateLimitRPSFlag := serveCmd.Flag("rate-limit-rps", "Requests per second allowed (set 0 to disable)").Default("-1").Float64()
	rateLimitBurstFlag := serveCmd.Flag("rate-limit-burst", "Burst capacity for rate limiter (set 0 to disable)").Default("-1").Int()

	checkCmd := kingpinApp.Command("check", "Parse a spec file and report problems")
	checkFile := checkCmd.Arg("file", "Spec file").Required().String()

	fmtCmd := kingpinApp.Command("fmt", "Rewrite a spec file in canonical form")
	fmtFile := fmtCmd.Arg("file", "Spec file").Required().String()
	fmtWrite := fmtCmd.Flag("write", "Replace the file instead of printing the result").Short('w').Bool()

	getCmd := kingpinApp.Command("get", "Print the value of one setting")
	getFile := getCmd.Arg("file", "Spec file").Required().String()
	getKey := getCmd.Arg("key", "Setting key").Required().String()
	getList := getCmd.Flag("list", "Interpret the value as a comma separated list").Bool()

	exportCmd := kingpinApp.Command("export", "Render a spec file in another format")
	exportFile := exportCmd.Arg("file", "Spec file").Required().String()
	exportFormat := exportCmd.Flag("format", "Output format").Default(export.FormatJSON).Enum(export.Formats()...)

	command := kingpin.MustParse(kingpinApp.Parse(os.Args[1:]))

	var err error
	switch command {
	case checkCmd.FullCommand():
		err = runCheck(os.Stdout, *checkFile)
	case fmtCmd.FullCommand():
		err = runFmt(os.Stdout, *fmtFile, *fmtWrite)
	case getCmd.FullCommand():
		err = runGet(os.Stdout, *getFile, *getKey, *getList)
	case exportCmd.FullCommand():
		err = runExport(os.Stdout, *exportFile, *exportFormat)
	default:
		overrides := &config.CLIOverrides{
			ConfigFile: *configFile,
		}
		if *port != "" {
			overrides.Port = port
		}
		if *specFile != "" {
			overrides.SpecFile = specFile
		}
		if *logLevel != "" {
			overrides.LogLevel = logLevel
		}
		if watchSet {
			overrides.Watch = watchFlag
		}
		if persistSet {
			overrides.Persist = persistFlag
		}
		if *rateLimitRPSFlag >= 0 {
			overrides.RateLimitRPS = rateLimitRPSFlag
		}
		if *rateLimitBurstFlag >= 0 {
			overrides.RateLimitBurst = rateLimitBurstFlag
		}
		serve(overrides)
		return
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "specd: %v\n", err)
		os.Exit(1)
	}
}

func serve(overrides *config.CLIOverrides) {
	cfg, err := config.Load(overrides)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}

	logger, err := logging.New(cfg.LogLevel)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize logger: %v", err))
	}
	defer func() {
		_ = logger.Sync()
	}()

	app, err := application.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to initialize application", zap.Error(err))
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if err := app.Start(ctx); err != nil {
		logger.Fatal("failed to start server", zap.Error(err))
	}

	shutdown(app.Server(), cfg.ShutdownGracePeriod, logger)
}

func shutdown(server *http.Server, timeout time.Duration, logger *zap.Logger) {
	quit := make(chan os.Signal, 1)
	signalNotify(quit, os.Interrupt, syscall.SIGINT, syscall.SIGTERM)

	<-quit
	logger.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		logger.Warn("graceful shutdown failed", zap.Error(err))
		if closeErr := server.Close(); closeErr != nil {
			logger.Error("forced close failed", zap.Error(closeErr))
		}
	}
}
