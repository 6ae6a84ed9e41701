package pipeline

import (
	"bytes"
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"marketswimmer/internal/config"
	"marketswimmer/internal/earnings"
	apperrors "marketswimmer/internal/errors"
	"marketswimmer/internal/statements"
)

// writeAnalysisWorkbook builds a two-year annual export for one company,
// optionally with two quarterly periods alongside. Capital expenditures are
// written positive; normalization flips the sign.
func writeAnalysisWorkbook(t *testing.T, dir, name string, withShares, withQuarterly bool) string {
	t.Helper()

	balanceRows := [][]interface{}{
		{"", "2022", "2023"},
		{"Cash and Short Term Investments", 90, 100},
		{"Total Debt", 60, 50},
	}
	if withShares {
		balanceRows = append(balanceRows, []interface{}{"Shares Outstanding", 40, 40})
	}

	sheets := map[string][][]interface{}{
		"Income Statement, A": {
			{"", "2022", "2023"},
			{"Net Income", 200, 220},
		},
		"Balance Sheet, A": balanceRows,
		"Cash Flow, A": {
			{"", "2022", "2023"},
			{"Depreciation & Amortization", 30, 32},
			{"Capital Expenditures", 40, 45},
			{"Change in Working Capital", -10, 5},
			{"Cash from Operations", 220, 249},
			{"Free Cash Flow", 180, 204},
		},
	}
	if withQuarterly {
		sheets["Income Statement, Q"] = [][]interface{}{
			{"", "Q1 2023", "Q2 2023"},
			{"Net Income", 50, 55},
		}
		sheets["Cash Flow, Q"] = [][]interface{}{
			{"", "Q1 2023", "Q2 2023"},
			{"Depreciation & Amortization", 8, 8},
			{"Capital Expenditures", 10, 12},
			{"Change in Working Capital", -2, 1},
			{"Cash from Operations", 60, 70},
			{"Free Cash Flow", 50, 58},
		}
	}

	f := excelize.NewFile()
	defer f.Close()

	first := true
	for sheet, rows := range sheets {
		if first {
			require.NoError(t, f.SetSheetName("Sheet1", sheet))
			first = false
		} else {
			_, err := f.NewSheet(sheet)
			require.NoError(t, err)
		}
		for i, row := range rows {
			cell, err := excelize.CoordinatesToCellName(1, i+1)
			require.NoError(t, err)
			require.NoError(t, f.SetSheetRow(sheet, cell, &row))
		}
	}

	path := filepath.Join(dir, name)
	require.NoError(t, f.SaveAs(path))
	return path
}

func newTestPipeline(t *testing.T) (*Pipeline, *config.Paths) {
	t.Helper()

	base := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		BaseDir:      base,
		DownloadsDir: "downloaded_files",
		ResultsDir:   "analysis_output",
		LogsDir:      "logs",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	cfg := &config.Config{
		Analysis: config.AnalysisConfig{
			Cadence:                "Annual",
			Sector:                 "non_financial",
			MaxWindow:              10,
			CapitalizationMultiple: 10,
		},
	}

	p, err := New(cfg, paths, nil)
	require.NoError(t, err)
	return p, paths
}

func TestPipeline_Run_EndToEnd(t *testing.T) {
	p, paths := newTestPipeline(t)
	wb := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", true, true)

	report, err := p.Run(context.Background(), Spec{Ticker: "ACME", WorkbookPath: wb})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, "ACME", report.Ticker)
	assert.Equal(t, statements.CadenceAnnual, report.Cadence)
	assert.Empty(t, report.MissingStatements)
	require.Len(t, report.Records, 2)
	require.Len(t, report.Earnings, 2)
	assert.Empty(t, report.EarningsSkips)

	// Traditional: 200+30-40-10 = 180 and 220+32-45+5 = 212.
	assert.Equal(t, 180.0, report.Earnings[0].Values[earnings.MethodTraditional])
	assert.Equal(t, 212.0, report.Earnings[1].Values[earnings.MethodTraditional])

	trad := report.Estimates[earnings.MethodTraditional]
	assert.Equal(t, 196.0, trad.TrailingAverage)
	assert.Equal(t, 2, trad.PeriodsUsed)

	// Equity: 196*10 + 100 - 50 = 2010 over 40 shares.
	require.NotNil(t, report.FairValue)
	require.NoError(t, report.ValuationErr)
	tradFV := report.FairValue.Results[earnings.MethodTraditional]
	assert.Equal(t, 2010.0, tradFV.EquityValue)
	assert.Equal(t, 50.25, tradFV.FairValuePerShare)

	// OCF basis: (220-40 + 249-45)/2 = 192, per share 49.25.
	ocfFV := report.FairValue.Results[earnings.MethodOperatingCashFlow]
	assert.Equal(t, 49.25, ocfFV.FairValuePerShare)
	require.NotNil(t, ocfFV.PctDiffVsTraditional)
	assert.InDelta(t, -1.99, *ocfFV.PctDiffVsTraditional, 0.01)

	// Both artifacts land under the results directory.
	assert.Equal(t, filepath.Join(paths.ResultsDir, "owner_earnings_ACME_annual.csv"), report.EarningsCSVPath)
	assert.Equal(t, filepath.Join(paths.ResultsDir, "fair_value_ACME.txt"), report.ReportPath)

	data, err := os.ReadFile(report.EarningsCSVPath)
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))
	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"ACME", "Annual", "2022", "180", "180", "180"}, rows[1])
	assert.Equal(t, []string{"ACME", "Annual", "2023", "212", "204", "204"}, rows[2])

	// The quarterly sheets in the same workbook yield a second table.
	assert.Equal(t, statements.CadenceQuarterly, report.SecondaryCadence)
	require.Len(t, report.SecondaryEarnings, 2)
	assert.Equal(t, filepath.Join(paths.ResultsDir, "owner_earnings_ACME_quarterly.csv"), report.SecondaryEarningsCSVPath)

	qData, err := os.ReadFile(report.SecondaryEarningsCSVPath)
	require.NoError(t, err)
	qRows, err := csv.NewReader(bytes.NewReader(qData[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, qRows, 3)
	// Traditional: 50+8-10-2 = 46 and 55+8-12+1 = 52.
	assert.Equal(t, "Q1 2023", qRows[1][2])
	assert.Equal(t, "46", qRows[1][3])
	assert.Equal(t, "Q2 2023", qRows[2][2])
	assert.Equal(t, "52", qRows[2][3])

	reportText, err := os.ReadFile(report.ReportPath)
	require.NoError(t, err)
	assert.Contains(t, string(reportText), "50.25")
}

func TestPipeline_Run_AnnualOnlySkipsSecondaryTable(t *testing.T) {
	p, paths := newTestPipeline(t)
	wb := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", true, false)

	report, err := p.Run(context.Background(), Spec{Ticker: "ACME", WorkbookPath: wb})
	require.NoError(t, err, "a workbook without quarterly sheets still analyzes the annual cadence")
	require.NotNil(t, report)

	assert.NotEmpty(t, report.EarningsCSVPath)
	assert.Empty(t, report.SecondaryEarnings)
	assert.Empty(t, report.SecondaryEarningsCSVPath)
	_, err = os.Stat(filepath.Join(paths.ResultsDir, "owner_earnings_ACME_quarterly.csv"))
	assert.True(t, os.IsNotExist(err))
}

func TestPipeline_Run_SpecSectorOverride(t *testing.T) {
	p, paths := newTestPipeline(t)
	wb := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", true, false)

	report, err := p.Run(context.Background(), Spec{
		Ticker:       "ACME",
		WorkbookPath: wb,
		Sector:       earnings.SectorFinancialInstitution,
	})
	require.NoError(t, err)
	require.NotNil(t, report)

	assert.Equal(t, earnings.SectorFinancialInstitution, report.Sector)
	// Working capital stays out of the traditional method for financials:
	// 200+30-40 = 190 and 220+32-45 = 207.
	require.Len(t, report.Earnings, 2)
	assert.Equal(t, 190.0, report.Earnings[0].Values[earnings.MethodTraditional])
	assert.Equal(t, 207.0, report.Earnings[1].Values[earnings.MethodTraditional])
}

func TestPipeline_Run_RerunsProduceIdenticalArtifacts(t *testing.T) {
	p, paths := newTestPipeline(t)
	wb := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", true, true)
	spec := Spec{Ticker: "ACME", WorkbookPath: wb}

	report, err := p.Run(context.Background(), spec)
	require.NoError(t, err)
	csvFirst, err := os.ReadFile(report.EarningsCSVPath)
	require.NoError(t, err)
	reportFirst, err := os.ReadFile(report.ReportPath)
	require.NoError(t, err)

	report2, err := p.Run(context.Background(), spec)
	require.NoError(t, err)
	csvSecond, err := os.ReadFile(report2.EarningsCSVPath)
	require.NoError(t, err)
	reportSecond, err := os.ReadFile(report2.ReportPath)
	require.NoError(t, err)

	assert.Equal(t, csvFirst, csvSecond)
	assert.Equal(t, reportFirst, reportSecond)
}

func TestPipeline_Run_MissingCadenceFails(t *testing.T) {
	base := t.TempDir()
	paths, err := config.NewPaths(config.PathsConfig{
		BaseDir: base, DownloadsDir: "downloaded_files", ResultsDir: "analysis_output", LogsDir: "logs",
	})
	require.NoError(t, err)
	require.NoError(t, paths.EnsureDirectories())

	cfg := &config.Config{
		Analysis: config.AnalysisConfig{
			Cadence:                "Quarterly",
			Sector:                 "non_financial",
			MaxWindow:              10,
			CapitalizationMultiple: 10,
		},
	}
	p, err := New(cfg, paths, nil)
	require.NoError(t, err)

	// The workbook only carries annual sheets.
	wb := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", true, false)

	report, err := p.Run(context.Background(), Spec{Ticker: "ACME", WorkbookPath: wb})
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParse))
}

func TestPipeline_Run_ValuationFailureStillWritesEarnings(t *testing.T) {
	p, paths := newTestPipeline(t)
	wb := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", false, false)

	report, err := p.Run(context.Background(), Spec{Ticker: "ACME", WorkbookPath: wb})
	require.NoError(t, err, "a valuation failure does not fail the run")
	require.NotNil(t, report)

	require.Error(t, report.ValuationErr)
	assert.True(t, apperrors.IsType(report.ValuationErr, apperrors.ErrTypeValuation))
	assert.Nil(t, report.FairValue)
	assert.Empty(t, report.ReportPath)

	// The earnings table was written before the valuation step.
	_, err = os.Stat(report.EarningsCSVPath)
	assert.NoError(t, err)
}

func TestPipeline_Run_InvalidConfig(t *testing.T) {
	paths, err := config.NewPaths(config.PathsConfig{
		BaseDir: t.TempDir(), DownloadsDir: "d", ResultsDir: "r", LogsDir: "l",
	})
	require.NoError(t, err)

	cfg := &config.Config{
		Analysis: config.AnalysisConfig{
			Cadence: "Monthly", Sector: "non_financial", MaxWindow: 10, CapitalizationMultiple: 10,
		},
	}
	_, err = New(cfg, paths, nil)
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeConfig))
}

func TestPipeline_RunAll_IsolatesFailures(t *testing.T) {
	p, paths := newTestPipeline(t)
	good := writeAnalysisWorkbook(t, paths.DownloadsDir, "financials_export_acme.xlsx", true, false)

	specs := []Spec{
		{Ticker: "ACME", WorkbookPath: good},
		{Ticker: "GHOST", WorkbookPath: filepath.Join(paths.DownloadsDir, "missing.xlsx")},
	}

	outcomes := p.RunAll(context.Background(), specs)
	require.Len(t, outcomes, 2)

	// Outcomes keep spec order regardless of completion order.
	assert.Equal(t, "ACME", outcomes[0].Spec.Ticker)
	require.NoError(t, outcomes[0].Err)
	require.NotNil(t, outcomes[0].Report)

	assert.Equal(t, "GHOST", outcomes[1].Spec.Ticker)
	require.Error(t, outcomes[1].Err)
	assert.Nil(t, outcomes[1].Report)
}

func TestDiscoverWorkbook(t *testing.T) {
	dir := t.TempDir()

	write := func(name string, mod time.Time) {
		path := filepath.Join(dir, name)
		require.NoError(t, os.WriteFile(path, []byte("x"), 0644))
		require.NoError(t, os.Chtimes(path, mod, mod))
	}

	now := time.Now()
	write("financials_export_acme_2022.xlsx", now.Add(-2*time.Hour))
	write("financials_export_acme_2023.xlsx", now.Add(-1*time.Hour))
	write("~$financials_export_acme_2023.xlsx", now)
	write("financials_export_other.xlsx", now)
	write("notes_acme.txt", now)

	path, err := DiscoverWorkbook(dir, "acme")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "financials_export_acme_2023.xlsx"), path)
}

func TestDiscoverWorkbook_DottedTicker(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "financials_export_brk.b_2023.xlsx")
	require.NoError(t, os.WriteFile(path, []byte("x"), 0644))

	found, err := DiscoverWorkbook(dir, "BRK.B")
	require.NoError(t, err)
	assert.Equal(t, path, found)
}

func TestDiscoverWorkbook_NoMatch(t *testing.T) {
	dir := t.TempDir()

	_, err := DiscoverWorkbook(dir, "acme")
	require.Error(t, err)
	assert.True(t, apperrors.IsType(err, apperrors.ErrTypeParse))
}
