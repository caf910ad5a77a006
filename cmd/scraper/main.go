package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Jed556/Gallery-Epic-Scraper/config"
	"github.com/Jed556/Gallery-Epic-Scraper/export"
	"github.com/Jed556/Gallery-Epic-Scraper/fetch"
	"github.com/Jed556/Gallery-Epic-Scraper/models"
	"github.com/Jed556/Gallery-Epic-Scraper/scraper"
	"github.com/Jed556/Gallery-Epic-Scraper/store"
)

func main() {
	defaultCfg := config.DefaultConfig()
	pagesDefault := defaultCfg.MaxPages
	if value, ok, err := config.EnvInt("SCRAPER_PAGES"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid SCRAPER_PAGES: %v\n", err)
		os.Exit(1)
	} else if ok {
		pagesDefault = value
	}
	relayDefault := defaultCfg.RelayURL
	if value, ok := config.EnvString("SCRAPER_RELAY_URL"); ok {
		relayDefault = value
	}
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("SCRAPER_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("SCRAPER_METRICS_ADDR"); ok {
		metricsDefault = value
	}

	coserID := flag.String("coser", "", "Coser ID to scrape (required)")
	maxPages := flag.Int("pages", pagesDefault, "Maximum listing pages to scrape")
	delayMs := flag.Int("delay", 800, "Delay between pages (milliseconds)")
	concurrency := flag.Int("concurrency", 1, "Concurrent detail fetches per page (1 = sequential)")
	resolveDownloads := flag.Bool("resolve-downloads", false, "Always probe download pages for file sizes")
	customFilename := flag.String("filename", "", "Custom output filename (overrides -output)")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", "csv", "Output format: csv, json, html, or dual")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Gallery base URL")
	relayURL := flag.String("relay-url", relayDefault, "Relay server URL")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")

	flag.Parse()

	logger, level := newLogger(*verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	cfg := defaultCfg
	cfg.CoserID = strings.TrimSpace(*coserID)
	cfg.MaxPages = *maxPages
	cfg.DelayPerPage = time.Duration(*delayMs) * time.Millisecond
	cfg.Concurrency = *concurrency
	cfg.ResolveDownloads = *resolveDownloads
	cfg.CustomFilename = *customFilename
	cfg.OutputFile = *outputFile
	cfg.OutputFormat = strings.ToLower(*outputFormat)
	cfg.BaseURL = *baseURL
	cfg.RelayURL = *relayURL
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if cfg.CustomFilename != "" {
		cfg.OutputFile = cfg.CustomFilename
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	metrics := scraper.NewMetrics()
	client := fetch.NewClient(cfg.RelayURL,
		fetch.WithTimeouts(cfg.Timeout, cfg.CheckTimeout),
		fetch.WithMetrics(metrics),
	)
	engine := scraper.NewEngine(cfg, client, metrics)

	writer, htmlWriter, err := createWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, aborting crawl")
		engine.Abort()
	}()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	slog.Info("starting scrape",
		slog.String("coser", cfg.CoserID),
		slog.Int("pages", cfg.MaxPages),
		slog.String("relay", cfg.RelayURL),
	)

	events, err := engine.Run(context.Background())
	if err != nil {
		slog.Error("scraping failed", slog.Any("error", err))
		os.Exit(1)
	}

	results := store.New()
	var result *models.CrawlResult
	for event := range events {
		results.Apply(event)
		switch ev := event.(type) {
		case scraper.ProgressEvent:
			slog.Info(ev.Status, slog.Int("percent", int(ev.Percent)))
		case scraper.ProfileEvent:
			slog.Info("profile loaded", slog.String("name", ev.Profile.Name))
			if htmlWriter != nil {
				htmlWriter.SetProfile(ev.Profile)
			}
		case scraper.ItemsEvent:
			slog.Debug("items updated", slog.Int("total", len(ev.Items)))
		case scraper.DoneEvent:
			result = ev.Result
		}
	}
	if result == nil {
		slog.Error("crawl produced no terminal result")
		os.Exit(1)
	}

	if err := writer.Write(result.Items); err != nil {
		slog.Error("writing output failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		slog.Warn("output validation", slog.Any("error", err))
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if err := metricsServer.Shutdown(shutdownCtx); err != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", err))
		}
		cancel()
	}

	printSummary(result, engine.State(), cfg.OutputFile)
}

func createWriter(format, filename string) (export.OutputWriter, *export.HTMLWriter, error) {
	switch format {
	case "csv":
		w, err := export.NewCSVWriter(filename)
		return w, nil, err
	case "json":
		w, err := export.NewJSONWriter(filename)
		return w, nil, err
	case "html":
		w, err := export.NewHTMLWriter(filename)
		return w, w, err
	case "dual":
		jsonFilename := strings.TrimSuffix(filename, ".csv") + ".json"
		w, err := export.NewDualWriter(filename, jsonFilename)
		return w, nil, err
	default:
		return nil, nil, fmt.Errorf("unsupported format: %s", format)
	}
}

func printSummary(result *models.CrawlResult, state scraper.State, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Scrape " + state.String())

	fmt.Printf("  Total items:   %d\n", result.TotalCount)
	fmt.Printf("  Pages:         %d\n", result.PageCount)
	fmt.Printf("  Requests:      %d\n", result.RequestCount)
	fmt.Printf("  Errors:        %d\n", result.ErrorCount)
	if len(result.ErrorsByType) > 0 {
		fmt.Printf("  Error types:   %v\n", result.ErrorsByType)
	}
	if result.Profile != nil {
		fmt.Printf("  Cosplayer:     %s\n", result.Profile.Name)
	}
	fmt.Printf("  Duration:      %v\n", result.EndTime.Sub(result.StartTime).Round(time.Millisecond))
	fmt.Printf("  Output file:   %s\n", outputFile)
	fmt.Println(separator)
}

func newLogger(verbose bool) (*slog.Logger, *slog.LevelVar) {
	level := &slog.LevelVar{}
	if verbose {
		level.Set(slog.LevelDebug)
	} else {
		level.Set(slog.LevelInfo)
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if isTerminal(os.Stdout) {
		handler = slog.NewTextHandler(os.Stdout, opts)
	} else {
		handler = slog.NewJSONHandler(os.Stdout, opts)
	}

	return slog.New(handler), level
}

func isTerminal(f *os.File) bool {
	info, err := f.Stat()
	if err != nil {
		return false
	}
	return (info.Mode() & os.ModeCharDevice) != 0
}
