package exporter

import (
	"strconv"

	"marketswimmer/internal/earnings"
	"marketswimmer/internal/statements"
)

// WriteEarningsCSV persists the owner earnings time series as one flat
// table: a row per period carrying company, period label, and every
// method's value. Methods a period could not support are written as blank
// cells, never zero, so downstream consumers can tell absence from a zero
// result.
func (w *CSVWriter) WriteEarningsCSV(path, ticker string, cadence statements.Cadence, results []earnings.PeriodResults) error {
	methods := earnings.AllMethods()

	headers := []string{"Ticker", "Cadence", "Period"}
	for _, m := range methods {
		headers = append(headers, m.String())
	}

	records := make([][]string, 0, len(results))
	for _, pr := range results {
		row := []string{ticker, cadence.String(), pr.Period.Label}
		for _, m := range methods {
			if v, ok := pr.Values[m]; ok {
				row = append(row, formatValue(v))
			} else {
				row = append(row, "")
			}
		}
		records = append(records, row)
	}

	return w.WriteSimpleCSV(path, headers, records)
}

// formatValue renders a monetary value with the shortest exact decimal
// representation, keeping re-runs byte-identical.
func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
