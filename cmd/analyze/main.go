package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"marketswimmer/internal/config"
	"marketswimmer/internal/earnings"
	"marketswimmer/internal/infrastructure"
	"marketswimmer/internal/pipeline"
	"marketswimmer/internal/validation"
)

func main() {
	tickers := flag.String("ticker", "", "ticker symbol(s) to analyze, comma separated (e.g. BRK.B,AAPL)")
	workbook := flag.String("file", "", "workbook path; with multiple tickers each workbook is discovered in the downloads directory")
	cadence := flag.String("cadence", "", "reporting cadence: Annual or Quarterly (overrides config)")
	sector := flag.String("sector", "", "sector classification: non_financial or financial_institution; must agree with known-institution tickers")
	outDir := flag.String("out", "", "results directory (overrides config)")
	flag.Parse()

	if strings.TrimSpace(*tickers) == "" {
		fmt.Fprintln(os.Stderr, "usage: analyze -ticker SYMBOL[,SYMBOL...] [-file workbook.xlsx] [-cadence Annual|Quarterly] [-sector non_financial|financial_institution]")
		os.Exit(2)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load config", "error", err)
		os.Exit(1)
	}
	if *cadence != "" {
		cfg.Analysis.Cadence = *cadence
	}
	if *outDir != "" {
		cfg.Paths.ResultsDir = *outDir
	}
	if err := cfg.Validate(); err != nil {
		slog.Error("Invalid configuration", "error", err)
		os.Exit(1)
	}

	paths, err := config.NewPaths(cfg.Paths)
	if err != nil {
		slog.Error("Failed to initialize paths", "error", err)
		os.Exit(1)
	}
	if err := paths.EnsureDirectories(); err != nil {
		slog.Error("Failed to create required directories", "error", err)
		os.Exit(1)
	}

	logger, err := infrastructure.InitializeLogger(cfg.Logging)
	if err != nil {
		slog.Warn("Failed to initialize logger, using default", "error", err)
		logger = slog.Default()
	}
	defer infrastructure.CloseLogFile()

	logger.Info("Starting owner earnings analysis",
		slog.String("tickers", *tickers),
		slog.String("cadence", cfg.Analysis.Cadence),
		slog.String("default_sector", cfg.Analysis.Sector),
		slog.String("results_dir", paths.ResultsDir))

	validator := validation.NewFileValidator(logger)
	if err := validator.ValidateOutputDirectory(paths.ResultsDir); err != nil {
		logger.Error("Results directory is unusable", slog.String("error", err.Error()))
		os.Exit(1)
	}

	p, err := pipeline.New(cfg, paths, logger)
	if err != nil {
		logger.Error("Failed to build pipeline", slog.String("error", err.Error()))
		os.Exit(1)
	}

	if *workbook == "" {
		if err := validator.ValidateInputDirectory(paths.DownloadsDir); err != nil {
			logger.Error("Downloads directory is unusable", slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	defaultSector, err := earnings.ParseSector(cfg.Analysis.Sector)
	if err != nil {
		logger.Error("Invalid sector configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}

	specs, err := buildSpecs(*tickers, *workbook, *sector, defaultSector, paths)
	if err != nil {
		logger.Error("Failed to resolve workbooks", slog.String("error", err.Error()))
		os.Exit(1)
	}
	for _, spec := range specs {
		if err := validator.ValidateWorkbookFile(spec.WorkbookPath); err != nil {
			logger.Error("Workbook validation failed",
				slog.String("ticker", spec.Ticker),
				slog.String("error", err.Error()))
			os.Exit(1)
		}
	}

	outcomes := p.RunAll(context.Background(), specs)

	failures := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			failures++
			logger.Error("Ticker analysis failed",
				slog.String("ticker", outcome.Spec.Ticker),
				slog.String("error", outcome.Err.Error()))
			continue
		}
		printSummary(outcome.Report)
	}

	if failures == len(outcomes) {
		os.Exit(1)
	}
}

// buildSpecs resolves one workbook and one sector classification per
// ticker. An explicit -file is only honored for a single-ticker run;
// otherwise each ticker's newest export is discovered in the downloads
// directory. An explicit -sector that conflicts with a ticker's known
// classification is an error, not a silent override.
func buildSpecs(tickerList, workbook, sectorFlag string, defaultSector earnings.Sector, paths *config.Paths) ([]pipeline.Spec, error) {
	var specs []pipeline.Spec
	names := strings.Split(tickerList, ",")

	if workbook != "" && len(names) > 1 {
		return nil, fmt.Errorf("-file applies to a single ticker, got %d", len(names))
	}

	for _, name := range names {
		ticker := strings.TrimSpace(name)
		if ticker == "" {
			continue
		}
		sector, err := earnings.ClassifySector(sectorFlag, defaultSector, ticker)
		if err != nil {
			return nil, fmt.Errorf("sector classification for %s: %w", ticker, err)
		}
		path := workbook
		if path == "" {
			discovered, err := pipeline.DiscoverWorkbook(paths.DownloadsDir, ticker)
			if err != nil {
				return nil, err
			}
			path = discovered
		}
		specs = append(specs, pipeline.Spec{Ticker: ticker, WorkbookPath: path, Sector: sector})
	}

	if len(specs) == 0 {
		return nil, fmt.Errorf("no tickers to analyze")
	}
	return specs, nil
}

// printSummary prints the per-method fair values for one completed run.
func printSummary(report *pipeline.RunReport) {
	fmt.Printf("\n%s (%s, %s)\n", report.Ticker, report.Cadence, report.Sector)
	fmt.Println(strings.Repeat("-", 45))

	if report.ValuationErr != nil {
		fmt.Printf("  fair value unavailable: %v\n", report.ValuationErr)
	} else {
		for _, method := range earnings.AllMethods() {
			result, ok := report.FairValue.Results[method]
			if !ok {
				continue
			}
			fmt.Printf("  %-22s $%10.2f", method, result.FairValuePerShare)
			if result.PctDiffVsTraditional != nil {
				fmt.Printf("  (%+.1f%%)", *result.PctDiffVsTraditional)
			}
			fmt.Println()
		}
		fmt.Printf("  report: %s\n", report.ReportPath)
	}

	if len(report.EarningsSkips) > 0 {
		fmt.Printf("  skipped %d (period, method) pairs; see report for details\n", len(report.EarningsSkips))
	}
	fmt.Printf("  earnings table: %s\n", report.EarningsCSVPath)
	if report.SecondaryEarningsCSVPath != "" {
		fmt.Printf("  %s table: %s\n", strings.ToLower(report.SecondaryCadence.String()), report.SecondaryEarningsCSVPath)
	}
}
