package statements

import (
	"fmt"
	"log/slog"
	"sort"

	apperrors "marketswimmer/internal/errors"
)

// NormalizedData is the output of one normalization pass: every period of
// the requested cadence with whatever fields the source reported, plus the
// statement sheets that were missing entirely.
type NormalizedData struct {
	Cadence Cadence
	// Records is ordered chronologically, most recent last.
	Records []PeriodRecord
	// Missing lists statement types with no sheet for this cadence. A
	// missing sheet is diagnosed, not fatal; its fields stay nil.
	Missing []StatementType
}

// Normalize aligns the three raw statement tables of the requested cadence
// into one record per period. Line-item labels are canonicalized through
// the synonym table; unmatched labels are ignored. A period present in
// only one statement yields a record with the other fields absent.
//
// A workbook with no statement sheet at all for the cadence returns a
// StatementParseError naming the missing sheets; the caller must detect it
// before running any downstream stage. The requested cadence is never
// silently substituted with the other one.
func Normalize(wb *Workbook, cadence Cadence, logger *slog.Logger) (*NormalizedData, error) {
	if logger == nil {
		logger = slog.Default()
	}

	raw := wb.Statements[cadence]

	var missing []StatementType
	for _, stype := range AllStatementTypes {
		if len(raw[stype]) == 0 {
			missing = append(missing, stype)
		}
	}

	if len(missing) == len(AllStatementTypes) {
		err := apperrors.NewParseError(
			fmt.Sprintf("workbook has no %s statement sheets", cadence), nil).
			WithContext("path", wb.Path).
			WithContext("cadence", cadence.String())
		for _, stype := range missing {
			err = err.WithContext(string(stype), "missing")
		}
		return nil, err
	}

	for _, stype := range missing {
		logger.Warn("statement sheet missing for cadence, fields left absent",
			slog.String("statement", string(stype)),
			slog.String("cadence", cadence.String()))
	}

	// Union of period labels across the three statements.
	periodSet := make(map[string]struct{})
	for _, items := range raw {
		for _, byPeriod := range items {
			for periodLabel := range byPeriod {
				periodSet[periodLabel] = struct{}{}
			}
		}
	}

	periodLabels := make([]string, 0, len(periodSet))
	for label := range periodSet {
		periodLabels = append(periodLabels, label)
	}
	sort.Slice(periodLabels, func(i, j int) bool {
		return lessByPeriod(periodLabels[i], periodLabels[j])
	})

	records := make([]PeriodRecord, 0, len(periodLabels))
	for _, periodLabel := range periodLabels {
		rec := Record{}
		for _, stype := range AllStatementTypes {
			applyStatement(&rec, raw[stype], periodLabel)
		}
		normalizeSigns(&rec)
		records = append(records, PeriodRecord{
			Period: Period{Cadence: cadence, Label: periodLabel},
			Record: rec,
		})
	}

	logger.Info("normalized statement records",
		slog.String("cadence", cadence.String()),
		slog.Int("periods", len(records)),
		slog.Int("missing_statements", len(missing)))

	return &NormalizedData{Cadence: cadence, Records: records, Missing: missing}, nil
}

// applyStatement folds one raw statement table into the record for the
// given period. Labels are visited in sorted order so repeated synonyms
// resolve deterministically; the first match per field wins.
func applyStatement(rec *Record, items LineItems, periodLabel string) {
	if len(items) == 0 {
		return
	}

	labels := make([]string, 0, len(items))
	for label := range items {
		labels = append(labels, label)
	}
	sort.Strings(labels)

	for _, label := range labels {
		field, ok := Canonicalize(label)
		if !ok {
			continue
		}
		value, ok := items[label][periodLabel]
		if !ok {
			continue
		}
		rec.set(field, value)
	}
}

// normalizeSigns enforces the record's sign invariants. Sources disagree on
// whether capital expenditures are reported as a positive spend or a
// negative cash flow; the record always stores the non-positive outflow.
func normalizeSigns(rec *Record) {
	if rec.CapitalExpenditures != nil && *rec.CapitalExpenditures > 0 {
		v := -*rec.CapitalExpenditures
		rec.CapitalExpenditures = &v
	}
}
