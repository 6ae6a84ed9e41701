package exporter

import (
	"bytes"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"marketswimmer/internal/earnings"
	"marketswimmer/internal/statements"
)

func TestWriteEarningsCSV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owner_earnings_ACME_annual.csv")

	results := []earnings.PeriodResults{
		{
			Period: statements.Period{Cadence: statements.CadenceAnnual, Label: "2022"},
			Values: map[earnings.Method]float64{
				earnings.MethodTraditional:       85,
				earnings.MethodOperatingCashFlow: 85,
				earnings.MethodFreeCashFlow:      80.5,
			},
		},
		{
			Period: statements.Period{Cadence: statements.CadenceAnnual, Label: "2023"},
			Values: map[earnings.Method]float64{
				earnings.MethodTraditional: 90,
				// free cash flow not computable for this period
			},
		},
	}

	writer := NewCSVWriter(nil)
	require.NoError(t, writer.WriteEarningsCSV(path, "ACME", statements.CadenceAnnual, results))

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	// UTF-8 BOM for Excel.
	require.True(t, bytes.HasPrefix(data, []byte{0xEF, 0xBB, 0xBF}))

	rows, err := csv.NewReader(bytes.NewReader(data[3:])).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)

	assert.Equal(t, []string{"Ticker", "Cadence", "Period", "traditional", "operating_cash_flow", "free_cash_flow"}, rows[0])
	assert.Equal(t, []string{"ACME", "Annual", "2022", "85", "85", "80.5"}, rows[1])

	// Absent methods are blank cells, never zero.
	assert.Equal(t, []string{"ACME", "Annual", "2023", "90", "", ""}, rows[2])
}

func TestWriteEarningsCSV_RerunsAreByteIdentical(t *testing.T) {
	path := filepath.Join(t.TempDir(), "owner_earnings_ACME_annual.csv")

	results := []earnings.PeriodResults{
		{
			Period: statements.Period{Cadence: statements.CadenceAnnual, Label: "2023"},
			Values: map[earnings.Method]float64{earnings.MethodTraditional: 123.456},
		},
	}

	writer := NewCSVWriter(nil)
	require.NoError(t, writer.WriteEarningsCSV(path, "ACME", statements.CadenceAnnual, results))
	first, err := os.ReadFile(path)
	require.NoError(t, err)

	require.NoError(t, writer.WriteEarningsCSV(path, "ACME", statements.CadenceAnnual, results))
	second, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestFormatValue(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{85, "85"},
		{-30.5, "-30.5"},
		{0, "0"},
		{1234567.89, "1234567.89"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, formatValue(tt.in))
	}
}
