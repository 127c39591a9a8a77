package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/ternarybob/arbor"

	"rapports-sync/internal/common"
	"rapports-sync/internal/interfaces"
	"rapports-sync/internal/services"
	"rapports-sync/internal/syncer"
)

const (
	serviceName    = "rapports-sync"
	serviceVersion = "1.0.0"
)

func main() {
	// Parse command line flags
	var (
		configPath     = flag.String("config", "", "Path to configuration file")
		mode           = flag.String("mode", "dev", "Environment mode: 'dev', 'development', 'prod', or 'production'")
		quiet          = flag.Bool("quiet", false, "Suppress banner output")
		version        = flag.Bool("version", false, "Show version information")
		help           = flag.Bool("help", false, "Show help message")
		validateConfig = flag.Bool("validate", false, "Validate configuration file and exit")
		runSync        = flag.Bool("sync", false, "Run one sync from the terminal and exit")
		fromDate       = flag.String("from", "", "Sync window start (YYYY-MM-DD), defaults to today")
		toDate         = flag.String("to", "", "Sync window end (YYYY-MM-DD), defaults to -from")
	)
	flag.Parse()

	// Handle version flag
	if *version {
		fmt.Printf("%s v%s (build: %s)\n", serviceName, common.GetVersion(), common.GetBuild())
		os.Exit(0)
	}

	// Handle help flag
	if *help {
		showHelp()
		os.Exit(0)
	}

	// Parse environment from mode
	environment := parseMode(*mode)

	// Load configuration with priority: defaults -> TOML -> environment
	cfg, err := common.LoadConfig(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Update environment from command line
	cfg.Collector.Environment = environment

	// Handle validate flag
	if *validateConfig {
		fmt.Println("Configuration is valid")
		os.Exit(0)
	}

	// Initialize logger
	if err := common.InitLogger(&cfg.Logging); err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	logger := common.GetLogger()

	logger.Info().
		Str("version", common.GetVersion()).
		Str("build", common.GetBuild()).
		Str("environment", environment).
		Msg("Starting Rapports Sync")

	logger.Info().
		Str("config_path", *configPath).
		Str("auth_mode", cfg.Auth.Mode).
		Msg("Configuration loaded")

	runMode := "Server"
	if *runSync {
		runMode = "Sync"
	}

	// Display startup banner after initial log messages (to ensure log file exists)
	if !*quiet {
		common.PrintBanner(serviceName, environment, runMode, common.GetLogFilePath())
	}

	// Initialize services
	logger.Info().Msg("Initializing services...")

	state, err := services.NewStateStore(&cfg.Storage)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to initialize state store")
		os.Exit(1)
	}
	defer state.Close()

	gate := syncer.NewGate()
	tokens := services.NewTokenProvider(&cfg.Auth, logger)
	syncSvc := services.NewSyncService(cfg, tokens, state, gate, logger)
	updates := services.NewUpdateChecker(&cfg.Update, state, logger)

	logger.Info().Msg("Services initialized successfully")

	if *runSync {
		runSyncMode(cfg, syncSvc, gate, updates, logger, *fromDate, *toDate)
		return
	}

	runServerMode(cfg, syncSvc, state, updates, logger)

	logger.Info().Msg("Rapports Sync shutdown complete")
}

// runSyncMode performs a single sync over the requested window with
// terminal prompts for ambiguous sub-projects, then exits.
func runSyncMode(cfg *common.Config, syncSvc *services.SyncService, gate *syncer.Gate, updates interfaces.UpdateChecker, logger arbor.ILogger, fromDate, toDate string) {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	if cfg.Update.Enabled {
		if info, err := updates.Check(ctx); err == nil && info != nil {
			common.PrintWarning(fmt.Sprintf("New version %s is available, please pull the latest changes.", info.Version))
		}
	}

	loc, err := cfg.Location()
	if err != nil {
		common.PrintError(err.Error())
		os.Exit(1)
	}

	start, end, err := parseWindow(fromDate, toDate, loc)
	if err != nil {
		common.PrintError(err.Error())
		os.Exit(1)
	}

	syncSvc.OnProgress = func(message string) {
		fmt.Printf("\r%-70s", message)
	}

	go services.RunConsolePrompter(ctx, gate, logger)

	common.PrintInfo(fmt.Sprintf("Syncing worklogs from %s to %s",
		start.Format("2006-01-02"), end.Format("2006-01-02")))

	report, err := syncSvc.Run(ctx, start, end)
	fmt.Println()
	if err != nil {
		common.PrintError(common.ErrorMessage(err))
		os.Exit(1)
	}

	printReport(report)
}

func printReport(report *interfaces.SyncReport) {
	if report.Processed == 0 {
		common.PrintInfo("No worklogs found in the selected window.")
		return
	}

	common.PrintSuccess(fmt.Sprintf("Sync complete. Success: %d, Failed: %d.",
		report.SuccessCount, len(report.Outcomes)))

	for _, outcome := range report.Outcomes {
		line := fmt.Sprintf("%s (%s): %s", outcome.Date, outcome.PEP, outcome.Reason)
		if outcome.Kind == interfaces.OutcomeSkipped {
			common.PrintWarning(line)
		} else {
			common.PrintError(line)
		}
	}
}

// parseWindow resolves the -from/-to flags. Both default to today so a
// bare "-sync" pushes the current day's worklogs.
func parseWindow(fromDate, toDate string, loc *time.Location) (time.Time, time.Time, error) {
	today := time.Now().In(loc).Format("2006-01-02")
	if fromDate == "" {
		fromDate = today
	}
	if toDate == "" {
		toDate = fromDate
	}

	start, err := time.ParseInLocation("2006-01-02", fromDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -from date %q, expected YYYY-MM-DD", fromDate)
	}
	end, err := time.ParseInLocation("2006-01-02", toDate, loc)
	if err != nil {
		return time.Time{}, time.Time{}, fmt.Errorf("invalid -to date %q, expected YYYY-MM-DD", toDate)
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, fmt.Errorf("-to date is before -from date")
	}
	return start, end, nil
}

func runServerMode(cfg *common.Config, syncSvc *services.SyncService, state interfaces.StateStore, updates interfaces.UpdateChecker, logger arbor.ILogger) {
	logger.Info().Msg("Starting in server mode")

	webServer, err := services.NewWebServer(cfg, syncSvc, state, updates, logger)
	if err != nil {
		logger.Error().Err(err).Msg("Failed to create web server")
		return
	}

	ctx := context.Background()
	if err := webServer.Start(ctx); err != nil {
		logger.Error().Err(err).Msg("Failed to start web server")
		return
	}

	logger.Info().
		Int("port", cfg.Collector.Port).
		Msg("Web server started successfully")

	fmt.Printf("   • Open http://localhost:%d to sync worklogs\n\n", cfg.Collector.Port)

	// Set up signal handling for graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	logger.Info().Msg("Server running - press Ctrl+C to stop")

	<-sigChan
	logger.Info().Msg("Shutdown signal received")

	if err := webServer.Stop(); err != nil {
		logger.Error().Err(err).Msg("Error stopping web server")
	}

	logger.Info().Msg("Server mode shutdown complete")
}

func parseMode(mode string) string {
	mode = strings.ToLower(mode)
	switch mode {
	case "prod", "production":
		return "production"
	case "dev", "development":
		return "development"
	default:
		return "development"
	}
}

func showHelp() {
	fmt.Printf("%s v%s - Jira Worklog to Rapports Imputation Sync\n\n", serviceName, serviceVersion)
	fmt.Println("Usage:")
	fmt.Printf("  %s [flags]\n\n", os.Args[0])
	fmt.Println("Flags:")
	fmt.Println("  -mode string        Environment mode: 'dev', 'development', 'prod', or 'production' (default \"dev\")")
	fmt.Println("  -config string      Configuration file path")
	fmt.Println("  -sync               Run one sync from the terminal and exit")
	fmt.Println("  -from string        Sync window start (YYYY-MM-DD), defaults to today")
	fmt.Println("  -to string          Sync window end (YYYY-MM-DD), defaults to -from")
	fmt.Println("  -quiet              Suppress banner output")
	fmt.Println("  -version            Show version information")
	fmt.Println("  -help               Show help message")
	fmt.Println("  -validate           Validate configuration file and exit")
	fmt.Println("\nExamples:")
	fmt.Printf("  %s                                  # Run the local web UI\n", os.Args[0])
	fmt.Printf("  %s -sync                            # Sync today's worklogs from the terminal\n", os.Args[0])
	fmt.Printf("  %s -sync -from 2025-09-01 -to 2025-09-05\n", os.Args[0])
	fmt.Printf("  %s -config /path/to/config.toml     # Use custom config file\n", os.Args[0])
	fmt.Println("\nNote: browser auth mode needs a browser started with --remote-debugging-port")
	fmt.Println("and a logged-in Rapports tab.")
}
