package pipeline

import (
	"context"
	"fmt"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"marketswimmer/internal/config"
	"marketswimmer/internal/earnings"
	apperrors "marketswimmer/internal/errors"
	"marketswimmer/internal/exporter"
	"marketswimmer/internal/fairvalue"
	"marketswimmer/internal/series"
	"marketswimmer/internal/statements"
)

// Spec identifies one ticker's analysis run. Sector, when set, is the
// ticker's resolved classification and overrides the run default.
type Spec struct {
	Ticker       string
	WorkbookPath string
	Sector       earnings.Sector
}

// RunReport is the complete, read-only artifact of one pipeline run. A
// fresh run over the same workbook produces an identical report; nothing
// is mutated in place.
type RunReport struct {
	Ticker  string
	Cadence statements.Cadence
	Sector  earnings.Sector

	Records           []statements.PeriodRecord
	MissingStatements []statements.StatementType

	Earnings      []earnings.PeriodResults
	EarningsSkips []earnings.Skip

	// The other cadence's earnings table is persisted alongside the primary
	// one when the workbook carries it; valuation runs only on the primary
	// cadence. SecondaryEarningsCSVPath is empty when the workbook lacks
	// the secondary cadence.
	SecondaryCadence         statements.Cadence
	SecondaryEarnings        []earnings.PeriodResults
	SecondaryEarningsCSVPath string

	Estimates map[earnings.Method]series.AggregatedEstimate

	// FairValue is nil when the valuation step failed as a whole; the
	// cause is then recorded in ValuationErr and the run still completes.
	FairValue    *fairvalue.Output
	ValuationErr error

	EarningsCSVPath string
	ReportPath      string
}

// Outcome pairs a ticker spec with its run result. A failed ticker carries
// its error here and never affects any other ticker's run.
type Outcome struct {
	Spec   Spec
	Report *RunReport
	Err    error
}

// Pipeline runs the four analysis stages for one workbook snapshot:
// normalize, compute owner earnings, aggregate, value. Each stage is a
// pure function of the previous stage's full output; the stages are
// strictly sequential within one ticker.
type Pipeline struct {
	cadence   statements.Cadence
	sector    earnings.Sector
	maxWindow int
	fv        *fairvalue.Engine
	paths     *config.Paths
	csv       *exporter.CSVWriter
	report    *exporter.ReportWriter
	logger    *slog.Logger
}

// New builds a pipeline from configuration.
func New(cfg *config.Config, paths *config.Paths, logger *slog.Logger) (*Pipeline, error) {
	if logger == nil {
		logger = slog.Default()
	}

	cadence, err := statements.ParseCadence(cfg.Analysis.Cadence)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid cadence", err)
	}

	sector, err := earnings.ParseSector(cfg.Analysis.Sector)
	if err != nil {
		return nil, apperrors.NewConfigError("invalid sector", err)
	}

	fv, err := fairvalue.NewEngine(cfg.Analysis.CapitalizationMultiple, logger)
	if err != nil {
		return nil, err
	}

	return &Pipeline{
		cadence:   cadence,
		sector:    sector,
		maxWindow: cfg.Analysis.MaxWindow,
		fv:        fv,
		paths:     paths,
		csv:       exporter.NewCSVWriter(logger),
		report:    exporter.NewReportWriter(logger),
		logger:    logger,
	}, nil
}

// Run executes the full pipeline for one ticker. A fatal normalization
// error aborts the run before any later stage executes. A valuation
// failure (for example zero shares outstanding) is recorded on the report
// and the run still completes with its earnings tables written.
func (p *Pipeline) Run(ctx context.Context, spec Spec) (*RunReport, error) {
	sector := p.sector
	if spec.Sector != "" {
		sector = spec.Sector
	}

	logger := p.logger.With(slog.String("ticker", spec.Ticker))
	logger.InfoContext(ctx, "starting analysis run",
		slog.String("workbook", spec.WorkbookPath),
		slog.String("cadence", p.cadence.String()),
		slog.String("sector", sector.String()))

	wb, err := statements.LoadWorkbook(spec.WorkbookPath, logger)
	if err != nil {
		return nil, err
	}

	normalized, err := statements.Normalize(wb, p.cadence, logger)
	if err != nil {
		return nil, err
	}
	if len(normalized.Records) == 0 {
		return nil, apperrors.NewParseError(
			fmt.Sprintf("workbook contains no %s periods", p.cadence), nil).
			WithContext("path", spec.WorkbookPath)
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	engine := earnings.NewEngine(sector, logger)
	results, skips := engine.Compute(normalized.Records)

	estimates := series.Aggregate(results, p.maxWindow, logger)

	report := &RunReport{
		Ticker:            spec.Ticker,
		Cadence:           p.cadence,
		Sector:            sector,
		Records:           normalized.Records,
		MissingStatements: normalized.Missing,
		Earnings:          results,
		EarningsSkips:     skips,
		Estimates:         estimates,
		EarningsCSVPath:   p.paths.EarningsCSVPath(spec.Ticker, p.cadence.String()),
		SecondaryCadence:  p.cadence.Other(),
	}

	if err := p.csv.WriteEarningsCSV(report.EarningsCSVPath, spec.Ticker, p.cadence, results); err != nil {
		return nil, apperrors.NewStorageError("failed to write owner earnings table", err)
	}

	if err := p.exportSecondaryCadence(wb, spec, engine, report, logger); err != nil {
		return nil, err
	}

	snap := fairvalue.SnapshotFromRecords(normalized.Records)
	output, err := p.fv.Compute(estimates, snap)
	if err != nil {
		// The earnings series is still a valid, reportable outcome.
		logger.WarnContext(ctx, "fair value step failed, run completes without valuation",
			slog.String("error", err.Error()))
		report.ValuationErr = err
		return report, nil
	}
	report.FairValue = output
	report.ReportPath = p.paths.FairValueReportPath(spec.Ticker)

	if err := p.report.WriteFairValueReport(
		report.ReportPath, spec.Ticker, p.cadence, estimates, output, skips); err != nil {
		return nil, apperrors.NewStorageError("failed to write fair value report", err)
	}

	logger.InfoContext(ctx, "analysis run complete",
		slog.Int("periods", len(normalized.Records)),
		slog.Int("valued_methods", len(output.Results)))

	return report, nil
}

// exportSecondaryCadence persists the other cadence's earnings table when
// the workbook carries that cadence. Its absence is diagnosed, never fatal:
// the primary run stands on its own.
func (p *Pipeline) exportSecondaryCadence(wb *statements.Workbook, spec Spec, engine *earnings.Engine, report *RunReport, logger *slog.Logger) error {
	secondary := report.SecondaryCadence

	normalized, err := statements.Normalize(wb, secondary, logger)
	if err != nil || len(normalized.Records) == 0 {
		logger.Info("workbook lacks secondary cadence, table not written",
			slog.String("cadence", secondary.String()))
		return nil
	}

	results, _ := engine.Compute(normalized.Records)
	report.SecondaryEarnings = results
	report.SecondaryEarningsCSVPath = p.paths.EarningsCSVPath(spec.Ticker, secondary.String())

	if err := p.csv.WriteEarningsCSV(report.SecondaryEarningsCSVPath, spec.Ticker, secondary, results); err != nil {
		return apperrors.NewStorageError("failed to write secondary owner earnings table", err)
	}
	return nil
}

// RunAll fans out one independent pipeline run per ticker. Ticker runs
// share no mutable state; one ticker's failure is captured in its outcome
// and never cancels or affects any other run.
func (p *Pipeline) RunAll(ctx context.Context, specs []Spec) []Outcome {
	outcomes := make([]Outcome, len(specs))

	var g errgroup.Group
	g.SetLimit(4)

	for i, spec := range specs {
		i, spec := i, spec
		g.Go(func() error {
			report, err := p.Run(ctx, spec)
			outcomes[i] = Outcome{Spec: spec, Report: report, Err: err}
			return nil
		})
	}

	// Goroutines never return errors; failures live in the outcomes.
	_ = g.Wait()

	return outcomes
}
