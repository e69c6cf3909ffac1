package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"docview/bridge"
	"docview/config"
	"docview/diag"
	"docview/logger"
	"docview/output"
	"docview/scanner"
	"docview/store"
	"docview/tracing"
	"docview/version"
	"docview/viewer"
)

func main() {
	cfg, err := config.Load(os.Args[1:])
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(2)
	}
	if cfg.ShowVersion {
		fmt.Println(version.Version)
		return
	}

	logger.Init(cfg.LogLevel)

	if err := tracing.Start(cfg.TraceFile); err != nil {
		logger.Warnf("Failed to start trace: %v", err)
	} else {
		defer tracing.Stop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go handleSignals(cancel)

	if err := run(ctx, cfg); err != nil {
		logger.Errorf("%v", err)
		tracing.Stop()
		os.Exit(1)
	}
}

// run executes the mode selected by cfg: a one-shot preference or recent
// command, a properties lookup, the shell bridge, or a scan of the open
// target.
func run(ctx context.Context, cfg *config.Config) error {
	svc := newService(cfg)

	switch {
	case cfg.SetLanguage != nil || cfg.SetFontSize != nil:
		partial := store.AppConfig{Language: cfg.SetLanguage, FontSizePx: cfg.SetFontSize}
		if err := svc.SaveConfig(partial); err != nil {
			return err
		}
		logger.Infof("Saved viewer preferences to %s", svc.Config.Path)
		if !cfg.ShowConfig {
			return nil
		}
		fallthrough
	case cfg.ShowConfig:
		prefs, err := svc.LoadConfig()
		if err != nil {
			return err
		}
		return writeResult(cfg, prefs)
	case cfg.ShowRecent:
		return writeResult(cfg, svc.RecentPaths(0))
	case cfg.Describe != "":
		props, err := svc.Describe(ctx, cfg.Describe)
		if err != nil {
			return err
		}
		return writeResult(cfg, props)
	case cfg.Listen != "":
		return serve(ctx, cfg, svc)
	case cfg.OpenTarget != "":
		return scanTarget(ctx, cfg, svc)
	default:
		return fmt.Errorf("nothing to do: pass a path to open, -listen, or -help")
	}
}

func newService(cfg *config.Config) *viewer.Service {
	svc := viewer.New(cfg.Paths())
	svc.Recent.Max = cfg.RecentLimit
	svc.Interval = cfg.ProgressInterval
	svc.Exclude = cfg.ExcludeMatcher()
	svc.HashAlgorithms = cfg.HashAlgorithms
	return svc
}

// telemetry builds the emitters shared by every scan mode and returns a
// function releasing them.
func telemetry(ctx context.Context, cfg *config.Config) ([]scanner.Emitter, func()) {
	var emitters []scanner.Emitter
	var closers []func()

	if cfg.DiagSlowScanThreshold > 0 || cfg.DiagGoroutineLeak {
		controller := diag.NewController(diag.Options{
			SlowScanThreshold: cfg.DiagSlowScanThreshold,
			Dir:               cfg.DiagDir,
			GoroutineLeak:     cfg.DiagGoroutineLeak,
		})
		controller.Start(ctx)
		emitters = append(emitters, controller)
		closers = append(closers, controller.Close)
	}

	otel, err := output.NewOtelEmitter(output.OtelOptions{
		Endpoint:    cfg.OtelEndpoint,
		FromEnv:     cfg.OtelFromEnv,
		Headers:     cfg.OtelHeaders,
		ServiceName: cfg.OtelServiceName,
		Timeout:     cfg.OtelTimeout,
		ExportPaths: cfg.OtelExportPaths,
	})
	if err != nil {
		logger.Warnf("OTEL export disabled: %v", err)
	} else if otel != nil {
		logger.Infof("Exporting scan events to %s", otel.Endpoint())
		emitters = append(emitters, otel)
		closers = append(closers, otel.Shutdown)
	}

	return emitters, func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}
}

func scanTarget(ctx context.Context, cfg *config.Config, svc *viewer.Service) error {
	emitters, release := telemetry(ctx, cfg)
	defer release()
	svc.Emitter = scanner.Multi(append(emitters, output.NewProgressBar(os.Stderr))...)

	result, err := svc.ScanPath(ctx, cfg.OpenTarget, "")
	if err != nil {
		return err
	}
	if result != nil {
		logger.WithField("root", result.Root).Infof("Found %d supported files", len(result.Files))
	}
	return writeResult(cfg, result)
}

func serve(ctx context.Context, cfg *config.Config, svc *viewer.Service) error {
	emitters, release := telemetry(ctx, cfg)
	defer release()

	hub := bridge.NewHub(0)
	svc.Emitter = scanner.Multi(append(emitters, hub)...)

	server, err := bridge.New(svc, hub, bridge.Options{
		Launch:    bridge.Launch{OpenTarget: cfg.OpenTarget, SiteName: cfg.SiteName},
		CacheSize: cfg.PropertiesCacheSize,
	})
	if err != nil {
		return err
	}
	return server.ListenAndServe(ctx, cfg.Listen)
}

func writeResult(cfg *config.Config, value any) error {
	w, err := output.New(cfg.OutputFileName)
	if err != nil {
		return err
	}
	if err := w.Write(value); err != nil {
		_ = w.Close()
		return err
	}
	return w.Close()
}

func handleSignals(cancelFunc context.CancelFunc) {
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	handleSignalEvent(cancelFunc, sigChan)
}

func handleSignalEvent(cancelFunc context.CancelFunc, sigChan <-chan os.Signal) {
	<-sigChan
	logger.Info("Interrupt signal received. Shutting down...")
	cancelFunc()
}
