package statements

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	apperrors "marketswimmer/internal/errors"
)

// StatementType identifies one of the three financial statement tables.
type StatementType string

const (
	StatementIncome   StatementType = "income_statement"
	StatementBalance  StatementType = "balance_sheet"
	StatementCashFlow StatementType = "cash_flow"
)

// AllStatementTypes lists the statement sheets expected per cadence.
var AllStatementTypes = []StatementType{StatementIncome, StatementBalance, StatementCashFlow}

// LineItems maps a raw line-item label to its per-period values.
type LineItems map[string]map[string]float64

// RawStatements holds the raw tabular data for the three statement types.
type RawStatements map[StatementType]LineItems

// Workbook is the raw multi-sheet export for one company, keyed by cadence.
type Workbook struct {
	Path       string
	Statements map[Cadence]RawStatements
}

// LoadWorkbook opens an exported financial-statement workbook and extracts
// the raw statement tables for both cadences. Sheets are classified by
// name; sheets that match no statement type are skipped.
//
// Expected sheet shape: first non-empty row holds period labels from the
// second column on, every following row holds a line-item label and its
// per-period values. Blank cells are treated as not reported.
func LoadWorkbook(path string, logger *slog.Logger) (*Workbook, error) {
	if logger == nil {
		logger = slog.Default()
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, apperrors.NewParseError("failed to open workbook", err).WithContext("path", path)
	}
	defer f.Close()

	wb := &Workbook{
		Path:       path,
		Statements: make(map[Cadence]RawStatements),
	}

	for _, sheetName := range f.GetSheetList() {
		stype, cadence, ok := classifySheet(sheetName)
		if !ok {
			logger.Debug("skipping unrecognized sheet", slog.String("sheet", sheetName))
			continue
		}

		rows, err := f.GetRows(sheetName)
		if err != nil {
			return nil, apperrors.NewParseError(
				fmt.Sprintf("failed to read sheet %q", sheetName), err).
				WithContext("statement", string(stype)).
				WithContext("cadence", cadence.String())
		}

		items, periods := parseStatementRows(rows)
		if len(items) == 0 {
			logger.Warn("statement sheet contains no parseable line items",
				slog.String("sheet", sheetName),
				slog.String("statement", string(stype)))
			continue
		}

		if wb.Statements[cadence] == nil {
			wb.Statements[cadence] = make(RawStatements)
		}
		mergeLineItems(wb.Statements[cadence], stype, items)

		logger.Info("parsed statement sheet",
			slog.String("sheet", sheetName),
			slog.String("statement", string(stype)),
			slog.String("cadence", cadence.String()),
			slog.Int("line_items", len(items)),
			slog.Int("periods", periods))
	}

	return wb, nil
}

// classifySheet determines the statement type and cadence from a sheet name.
// Cadence defaults to Annual when the name carries no quarterly marker,
// matching how exports label their annual tabs inconsistently.
func classifySheet(name string) (StatementType, Cadence, bool) {
	lower := strings.ToLower(strings.TrimSpace(name))

	var stype StatementType
	switch {
	case strings.Contains(lower, "income") || strings.Contains(lower, "profit and loss") || strings.Contains(lower, "p&l"):
		stype = StatementIncome
	case strings.Contains(lower, "balance"):
		stype = StatementBalance
	case strings.Contains(lower, "cash flow") || strings.Contains(lower, "cashflow") || strings.Contains(lower, "cash_flow"):
		stype = StatementCashFlow
	default:
		return "", "", false
	}

	cadence := CadenceAnnual
	if strings.Contains(lower, "quarter") ||
		strings.HasSuffix(lower, ", q") || strings.HasSuffix(lower, "(q)") || strings.HasSuffix(lower, " q") {
		cadence = CadenceQuarterly
	}

	return stype, cadence, true
}

// parseStatementRows converts raw sheet rows into line items. Returns the
// items and the number of period columns found in the header.
func parseStatementRows(rows [][]string) (LineItems, int) {
	items := make(LineItems)

	// Find the header row: the first row with any non-empty cell past the
	// label column. Single-period exports carry exactly one period column,
	// so one populated cell is enough.
	headerRow := -1
	var periodLabels []string
	for i, row := range rows {
		if len(row) < 2 {
			continue
		}
		nonEmpty := 0
		for _, cell := range row[1:] {
			if strings.TrimSpace(cell) != "" {
				nonEmpty++
			}
		}
		if nonEmpty >= 1 {
			headerRow = i
			periodLabels = row[1:]
			break
		}
	}
	if headerRow == -1 {
		return items, 0
	}

	for _, row := range rows[headerRow+1:] {
		if len(row) < 2 {
			continue
		}
		label := strings.TrimSpace(row[0])
		if label == "" {
			continue
		}
		for j, cell := range row[1:] {
			if j >= len(periodLabels) {
				break
			}
			periodLabel := strings.TrimSpace(periodLabels[j])
			if periodLabel == "" {
				continue
			}
			value, ok := parseCell(cell)
			if !ok {
				continue
			}
			if items[label] == nil {
				items[label] = make(map[string]float64)
			}
			items[label][periodLabel] = value
		}
	}

	return items, len(periodLabels)
}

// parseCell parses a numeric cell, tolerating thousands separators and
// accounting-style negatives like "(1,234.5)". Blank or non-numeric cells
// report ok=false so absence is never coerced to zero.
func parseCell(cell string) (float64, bool) {
	s := strings.TrimSpace(cell)
	if s == "" || s == "-" || strings.EqualFold(s, "n/a") {
		return 0, false
	}

	negative := false
	if strings.HasPrefix(s, "(") && strings.HasSuffix(s, ")") {
		negative = true
		s = s[1 : len(s)-1]
	}
	s = strings.ReplaceAll(s, ",", "")
	s = strings.TrimPrefix(s, "$")

	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, false
	}
	if negative {
		v = -v
	}
	return v, true
}

// mergeLineItems folds a parsed sheet into the cadence's statements,
// keeping earlier values when a workbook repeats a sheet.
func mergeLineItems(dst RawStatements, stype StatementType, items LineItems) {
	if dst[stype] == nil {
		dst[stype] = items
		return
	}
	existing := dst[stype]
	for label, byPeriod := range items {
		if existing[label] == nil {
			existing[label] = byPeriod
			continue
		}
		for period, value := range byPeriod {
			if _, ok := existing[label][period]; !ok {
				existing[label][period] = value
			}
		}
	}
}
