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
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/kimata/mohist/config"
	"github.com/kimata/mohist/crawler"
	"github.com/kimata/mohist/models"
	"github.com/kimata/mohist/monotaro"
	"github.com/kimata/mohist/report"
	"github.com/kimata/mohist/statestore"
)

func main() {
	configDefault := "config.json5"
	if value, ok := config.EnvString("MOHIST_CONFIG"); ok {
		configDefault = value
	}

	configPath := flag.String("c", configDefault, "Configuration file (json5)")
	exportOnly := flag.Bool("e", false, "Skip crawling, render the report from the cached snapshot")
	noThumbs := flag.Bool("N", false, "Do not capture item thumbnails")
	verbose := flag.Bool("v", false, "Enable verbose logging")
	metricsAddr := flag.String("metrics-addr", "", "Prometheus metrics listen address (e.g. :9090)")
	flag.Parse()

	logger, _ := newLogger(*verbose)
	slog.SetDefault(logger)

	cfg := config.DefaultConfig()
	if err := config.LoadFile(cfg, *configPath); err != nil {
		slog.Error("loading configuration", slog.Any("error", err))
		os.Exit(1)
	}
	cfg.SkipThumbnails = *noThumbs
	cfg.Verbose = *verbose
	cfg.MetricsAddr = *metricsAddr
	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store := statestore.NewStore(cfg.StatePath)

	var result *crawler.Result
	if !*exportOnly {
		var err error
		result, err = runCrawl(ctx, cfg, store)
		if err != nil {
			slog.Error("crawl failed", slog.Any("error", err))
			os.Exit(1)
		}
	}

	state := store.Load()
	items := report.Items(state)
	if err := writeReport(cfg, items); err != nil {
		slog.Error("report output failed", slog.Any("error", err))
		os.Exit(1)
	}

	printSummary(result, state, len(items), cfg.OutputFile)
}

func runCrawl(ctx context.Context, cfg *config.Config, store *statestore.Store) (*crawler.Result, error) {
	client, err := monotaro.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("initialising site client: %w", err)
	}

	c := crawler.New(cfg, client, client, store)
	c.SetDumper(client)

	renderer := newProgressRenderer()
	c.SetObserver(renderer)
	defer renderer.Stop()

	var metricsServer *http.Server
	if cfg.MetricsAddr != "" {
		metricsServer = &http.Server{
			Addr:    cfg.MetricsAddr,
			Handler: promhttp.HandlerFor(c.Metrics.Registry, promhttp.HandlerOpts{}),
		}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				slog.Error("metrics server failed", slog.Any("error", err))
			}
		}()
		slog.Info("metrics server enabled", slog.String("addr", cfg.MetricsAddr))
	}

	result, err := c.Run(ctx)

	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		if serr := metricsServer.Shutdown(shutdownCtx); serr != nil {
			slog.Error("metrics server shutdown failed", slog.Any("error", serr))
		}
		cancel()
	}
	return result, err
}

func writeReport(cfg *config.Config, items []models.LineItem) error {
	writer, err := report.NewWriter(cfg.OutputFormat, cfg.OutputFile)
	if err != nil {
		return err
	}
	if err := writer.Write(items); err != nil {
		writer.Close()
		return err
	}
	if err := writer.Close(); err != nil {
		return err
	}
	return writer.Validate()
}

func printSummary(result *crawler.Result, state *models.CrawlState, itemCount int, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Order history collected")

	if result != nil {
		fmt.Printf("  Periods fetched:  %d (skipped %d)\n", result.PeriodsFetched, result.PeriodsSkipped)
		fmt.Printf("  Orders fetched:   %d (cached %d, cancelled %d)\n",
			result.OrdersFetched, result.OrdersCached, result.OrdersCancelled)
		fmt.Printf("  Duration:         %v\n", result.EndTime.Sub(result.StartTime).Round(time.Second))
	}
	fmt.Printf("  Orders total:     %d\n", state.TotalOrderCount())
	fmt.Printf("  Line items:       %d\n", itemCount)
	fmt.Printf("  Last sync:        %s\n", state.LastSyncAt.Format(time.RFC3339))
	fmt.Printf("  Output file:      %s\n", outputFile)
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
