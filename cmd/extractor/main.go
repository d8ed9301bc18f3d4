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

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aluiziolira/go-ebooks-catalog/catalog"
	"github.com/aluiziolira/go-ebooks-catalog/config"
	"github.com/aluiziolira/go-ebooks-catalog/models"
	"github.com/aluiziolira/go-ebooks-catalog/parser"
	"github.com/aluiziolira/go-ebooks-catalog/pipeline"
	"github.com/aluiziolira/go-ebooks-catalog/scraper"
)

func main() {
	// Optional .env; absence is fine.
	_ = godotenv.Load()

	defaultCfg := config.DefaultConfig()
	outputDefault := defaultCfg.OutputFile
	if value, ok := config.EnvString("EBOOKS_OUTPUT"); ok {
		outputDefault = value
	}
	metricsDefault := defaultCfg.MetricsAddr
	if value, ok := config.EnvString("EBOOKS_METRICS_ADDR"); ok {
		metricsDefault = value
	}
	subjectDefault := 0
	if value, ok, err := config.EnvInt("EBOOKS_SUBJECT_ID"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid EBOOKS_SUBJECT_ID: %v\n", err)
		os.Exit(1)
	} else if ok {
		subjectDefault = value
	}
	topicDefault := 0
	if value, ok, err := config.EnvInt("EBOOKS_TOPIC_ID"); err != nil {
		fmt.Fprintf(os.Stderr, "invalid EBOOKS_TOPIC_ID: %v\n", err)
		os.Exit(1)
	} else if ok {
		topicDefault = value
	}

	configFile := flag.String("config", "", "Optional YAML config file")
	baseURL := flag.String("base-url", defaultCfg.BaseURL, "Catalog site root")
	country := flag.String("country", defaultCfg.CountryCode, "Country code sent with every request")
	subjectID := flag.Int("subject-id", subjectDefault, "Subject id to collect")
	topicID := flag.Int("topic-id", topicDefault, "Topic id to collect (defaults to the subject when it has no topics)")
	listSubjects := flag.Bool("list", false, "List category groups and their subjects, then exit")
	listTopics := flag.Bool("list-topics", false, "List topics of -subject-id, then exit")
	outputFile := flag.String("output", outputDefault, "Output file path")
	outputFormat := flag.String("format", defaultCfg.OutputFormat, "Output format: csv, json, or dual")
	outputColumns := flag.String("columns", defaultCfg.OutputColumns, "Export columns: full or compact")
	timeoutSec := flag.Int("timeout", int(defaultCfg.Timeout/time.Second), "Per-request timeout (seconds)")
	delayMs := flag.Int("delay", int(defaultCfg.PageDelay/time.Millisecond), "Delay between page fetches (milliseconds)")
	randomDelayMs := flag.Int("random-delay", 0, "Random jitter added to delay (milliseconds)")
	maxRetries := flag.Int("max-retries", defaultCfg.MaxRetries, "Maximum retry attempts per request")
	retryBackoffMs := flag.Int("retry-backoff", int(defaultCfg.RetryBackoff/time.Millisecond), "Initial retry backoff (milliseconds)")
	retryBackoffMaxMs := flag.Int("retry-backoff-max", int(defaultCfg.RetryBackoffMax/time.Millisecond), "Maximum retry backoff (milliseconds)")
	metricsAddr := flag.String("metrics-addr", metricsDefault, "Prometheus metrics listen address (e.g. :9090)")
	verbose := flag.Bool("v", false, "Enable verbose logging")

	flag.Parse()

	cfg, err := buildConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "configuration: %v\n", err)
		os.Exit(1)
	}
	// Precedence: config file < environment < explicit flags.
	if value, ok := config.EnvString("EBOOKS_OUTPUT"); ok {
		cfg.OutputFile = value
	}
	if value, ok := config.EnvString("EBOOKS_METRICS_ADDR"); ok {
		cfg.MetricsAddr = value
	}
	flag.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "base-url":
			cfg.BaseURL = *baseURL
		case "country":
			cfg.CountryCode = *country
		case "output":
			cfg.OutputFile = *outputFile
		case "format":
			cfg.OutputFormat = strings.ToLower(*outputFormat)
		case "columns":
			cfg.OutputColumns = strings.ToLower(*outputColumns)
		case "timeout":
			cfg.Timeout = time.Duration(*timeoutSec) * time.Second
		case "delay":
			cfg.PageDelay = time.Duration(*delayMs) * time.Millisecond
		case "random-delay":
			cfg.RandomDelay = time.Duration(*randomDelayMs) * time.Millisecond
		case "max-retries":
			cfg.MaxRetries = *maxRetries
		case "retry-backoff":
			cfg.RetryBackoff = time.Duration(*retryBackoffMs) * time.Millisecond
		case "retry-backoff-max":
			cfg.RetryBackoffMax = time.Duration(*retryBackoffMaxMs) * time.Millisecond
		case "metrics-addr":
			cfg.MetricsAddr = *metricsAddr
		case "v":
			cfg.Verbose = *verbose
		}
	})
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid configuration: %v\n", err)
		os.Exit(1)
	}

	logger, level := newLogger(cfg.Verbose)
	slog.SetDefault(logger)
	slog.SetLogLoggerLevel(level.Level())

	metrics := catalog.NewMetrics()
	client, err := catalog.NewClient(cfg, nil, metrics)
	if err != nil {
		slog.Error("initialising client", slog.Any("error", err))
		os.Exit(1)
	}
	resolver, err := catalog.NewResolver(client, cfg)
	if err != nil {
		slog.Error("initialising resolver", slog.Any("error", err))
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received, finishing current page")
	}()

	if *listSubjects {
		if err := printCategoryGroups(ctx, resolver); err != nil {
			slog.Error("listing subjects", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}
	if *listTopics {
		if *subjectID <= 0 {
			fmt.Fprintln(os.Stderr, "-list-topics requires -subject-id")
			os.Exit(1)
		}
		if err := printTopics(ctx, resolver, *subjectID); err != nil {
			slog.Error("listing topics", slog.Any("error", err))
			os.Exit(1)
		}
		return
	}

	selection, err := resolveSelection(ctx, resolver, *subjectID, *topicID)
	if err != nil {
		slog.Error("resolving selection", slog.Any("error", err))
		os.Exit(1)
	}

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

	normalizer, err := parser.NewNormalizer(cfg.BaseURL)
	if err != nil {
		slog.Error("initialising normalizer", slog.Any("error", err))
		os.Exit(1)
	}

	s := scraper.New(cfg, client, normalizer, metrics)
	showBar := isTerminal(os.Stderr)
	s.OnProgress(func(collected, expected int, fraction float64) {
		pct := int(fraction * 100)
		if showBar {
			fmt.Fprintf(os.Stderr, "\rBooks collected: %d out of %d | %d%%", collected, expected, pct)
			return
		}
		slog.Info("collection progress",
			slog.Int("collected", collected),
			slog.Int("expected", expected),
			slog.Int("percent", pct),
		)
	})

	result, err := s.Collect(ctx, selection)
	if showBar {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		slog.Error("collection failed", slog.Any("error", err))
		os.Exit(1)
	}

	if result.Empty() {
		fmt.Println("No books available to collect")
		shutdownMetrics(metricsServer)
		return
	}

	writer, err := createWriter(cfg)
	if err != nil {
		slog.Error("creating writer", slog.Any("error", err))
		os.Exit(1)
	}

	exporter := pipeline.NewExporter(writer, cfg.BatchSize)
	if err := exporter.Export(result.Books); err != nil {
		writer.Close()
		slog.Error("export failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Validate(); err != nil {
		writer.Close()
		slog.Error("output validation failed", slog.Any("error", err))
		os.Exit(1)
	}
	if err := writer.Close(); err != nil {
		slog.Error("close writer", slog.Any("error", err))
		os.Exit(1)
	}

	shutdownMetrics(metricsServer)
	printSummary(result, exporter, cfg.OutputFile)
}

func buildConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.DefaultConfig(), nil
	}
	return config.LoadFile(path)
}

// resolveSelection applies the topic fallback: a subject with no sub-topics
// is a taxonomy leaf, so its own id is the selection id.
func resolveSelection(ctx context.Context, resolver *catalog.Resolver, subjectID, topicID int) (int, error) {
	if topicID > 0 {
		return topicID, nil
	}
	if subjectID <= 0 {
		return 0, fmt.Errorf("either -topic-id or -subject-id is required")
	}

	topics, err := resolver.Topics(ctx, subjectID)
	if err != nil {
		return 0, fmt.Errorf("fetch topics of subject %d: %w", subjectID, err)
	}
	if topics.Empty() {
		return subjectID, nil
	}
	return 0, fmt.Errorf("subject %d has %d topics; pick one with -topic-id (see -list-topics)", subjectID, topics.Len())
}

func printCategoryGroups(ctx context.Context, resolver *catalog.Resolver) error {
	groups, err := resolver.CategoryGroups(ctx)
	if err != nil {
		return err
	}

	for i, name := range models.CategoryNames() {
		set, _ := groups.Group(i)
		fmt.Printf("%s\n", name)
		for _, subject := range set.Names() {
			id, _ := set.ID(subject)
			fmt.Printf("  %6d  %s\n", id, subject)
		}
	}
	return nil
}

func printTopics(ctx context.Context, resolver *catalog.Resolver, subjectID int) error {
	topics, err := resolver.Topics(ctx, subjectID)
	if err != nil {
		return err
	}
	if topics.Empty() {
		fmt.Printf("Subject %d has no topics; use it directly as the selection id.\n", subjectID)
		return nil
	}
	for _, topic := range topics.Names() {
		id, _ := topics.ID(topic)
		fmt.Printf("  %6d  %s\n", id, topic)
	}
	return nil
}

func createWriter(cfg *config.Config) (pipeline.OutputWriter, error) {
	columns := models.ColumnsByName(cfg.OutputColumns)
	switch cfg.OutputFormat {
	case "json":
		return pipeline.NewJSONWriter(cfg.OutputFile)
	case "csv":
		return pipeline.NewCSVWriter(cfg.OutputFile, columns)
	case "dual":
		jsonFilename := strings.TrimSuffix(cfg.OutputFile, ".csv") + ".json"
		return pipeline.NewDualWriter(cfg.OutputFile, jsonFilename, columns)
	default:
		return nil, fmt.Errorf("unsupported format: %s", cfg.OutputFormat)
	}
}

func printSummary(result *models.CollectResult, exporter *pipeline.Exporter, outputFile string) {
	separator := "--------------------------------------------------"
	fmt.Println("\n" + separator)
	fmt.Println("Collection complete")

	duration := result.EndTime.Sub(result.StartTime)
	itemsPerSec := 0.0
	if duration.Seconds() > 0 {
		itemsPerSec = float64(len(result.Books)) / duration.Seconds()
	}

	fmt.Printf("  Books collected: %d\n", len(result.Books))
	fmt.Printf("  Reported total:  %d\n", result.ExpectedTotal)
	if result.TotalMismatch {
		fmt.Printf("  Note:            collected count disagrees with the reported total\n")
	}
	fmt.Printf("  Pages fetched:   %d\n", result.PageCount)
	fmt.Printf("  Rows exported:   %d\n", exporter.Processed())
	if counts := exporter.ValidationCounts(); len(counts) > 0 {
		fmt.Printf("  Validation:      %v\n", counts)
	}
	fmt.Printf("  Duration:        %v\n", duration)
	fmt.Printf("  Items/sec:       %.2f\n", itemsPerSec)
	fmt.Printf("  Output file:     %s\n", outputFile)
	fmt.Println(separator)
}

func shutdownMetrics(server *http.Server) {
	if server == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		slog.Error("metrics server shutdown failed", slog.Any("error", err))
	}
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
