package exporter

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"marketswimmer/internal/earnings"
	"marketswimmer/internal/fairvalue"
	"marketswimmer/internal/series"
	"marketswimmer/internal/statements"
)

// ReportWriter persists the detailed fair value report.
type ReportWriter struct {
	logger *slog.Logger
}

// NewReportWriter creates a report writer.
func NewReportWriter(logger *slog.Logger) *ReportWriter {
	if logger == nil {
		logger = slog.Default()
	}
	return &ReportWriter{logger: logger}
}

// WriteFairValueReport writes the per-method fair value report to path.
// The report is assembled in memory and written through a temp file plus
// rename, so a re-run replaces the prior report atomically and a crash
// never leaves a partially written file behind.
func (w *ReportWriter) WriteFairValueReport(
	path, ticker string,
	cadence statements.Cadence,
	estimates map[earnings.Method]series.AggregatedEstimate,
	output *fairvalue.Output,
	earningsSkips []earnings.Skip,
) error {
	var b strings.Builder

	fmt.Fprintf(&b, "FAIR VALUE REPORT\n")
	fmt.Fprintf(&b, "Ticker:  %s\n", ticker)
	fmt.Fprintf(&b, "Cadence: %s\n", cadence)
	fmt.Fprintf(&b, "%s\n\n", strings.Repeat("=", 50))

	fmt.Fprintf(&b, "FAIR VALUE PER SHARE BY METHOD\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 50))
	for _, method := range earnings.AllMethods() {
		result, ok := output.Results[method]
		if !ok {
			continue
		}
		fmt.Fprintf(&b, "%-22s $%12.2f", method, result.FairValuePerShare)
		if result.PctDiffVsTraditional != nil {
			fmt.Fprintf(&b, "  (%+.1f%% vs traditional)", *result.PctDiffVsTraditional)
		}
		fmt.Fprintf(&b, "\n")
	}

	fmt.Fprintf(&b, "\nVALUATION INPUTS\n")
	fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 50))
	for _, method := range earnings.AllMethods() {
		result, ok := output.Results[method]
		if !ok {
			continue
		}
		est := estimates[method]
		fmt.Fprintf(&b, "%s:\n", method)
		fmt.Fprintf(&b, "  earnings basis (trailing avg): %.2f over %d periods\n",
			result.EarningsBasis, result.PeriodsUsed)
		if est.GrowthRate != nil {
			fmt.Fprintf(&b, "  growth rate:                   %+.2f%%\n", *est.GrowthRate*100)
		} else {
			fmt.Fprintf(&b, "  growth rate:                   n/a\n")
		}
		if est.Volatility != nil {
			fmt.Fprintf(&b, "  volatility (CV):               %.3f\n", *est.Volatility)
		} else {
			fmt.Fprintf(&b, "  volatility (CV):               n/a\n")
		}
		fmt.Fprintf(&b, "  equity value:                  %.2f\n", result.EquityValue)
		fmt.Fprintf(&b, "  cash: %.2f  total debt: %.2f  shares: %.2f\n",
			result.Cash, result.TotalDebt, result.SharesOutstanding)
	}

	if len(output.Skips) > 0 {
		fmt.Fprintf(&b, "\nMETHODS OMITTED FROM VALUATION\n")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 50))
		for _, skip := range output.Skips {
			fmt.Fprintf(&b, "%-22s %s\n", skip.Method, skip.Reason)
		}
	}

	if len(earningsSkips) > 0 {
		fmt.Fprintf(&b, "\nPERIODS SKIPPED DURING EARNINGS CALCULATION\n")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 50))
		for _, skip := range earningsSkips {
			fields := make([]string, len(skip.Missing))
			for i, f := range skip.Missing {
				fields[i] = string(f)
			}
			fmt.Fprintf(&b, "%-12s %-22s missing: %s\n",
				skip.Period.Label, skip.Method, strings.Join(fields, ", "))
		}
	}

	if len(output.Notes) > 0 {
		fmt.Fprintf(&b, "\nNOTES\n")
		fmt.Fprintf(&b, "%s\n", strings.Repeat("-", 50))
		for _, note := range output.Notes {
			fmt.Fprintf(&b, "- %s\n", note)
		}
	}

	return w.writeAtomic(path, []byte(b.String()))
}

// writeAtomic writes content through a temp file in the target directory
// and renames it into place.
func (w *ReportWriter) writeAtomic(path string, content []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(path)+".tmp*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(content); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write report: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close report: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to finalize report: %w", err)
	}

	w.logger.Info("wrote fair value report", slog.String("path", path))
	return nil
}
