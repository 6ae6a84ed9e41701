package statements

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Cadence is the reporting frequency of a statement period.
type Cadence string

const (
	CadenceAnnual    Cadence = "Annual"
	CadenceQuarterly Cadence = "Quarterly"
)

// String returns the string representation of the cadence
func (c Cadence) String() string {
	return string(c)
}

// Other returns the opposite cadence.
func (c Cadence) Other() Cadence {
	if c == CadenceAnnual {
		return CadenceQuarterly
	}
	return CadenceAnnual
}

// ParseCadence converts a string to a Cadence.
func ParseCadence(s string) (Cadence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "annual", "a", "yearly":
		return CadenceAnnual, nil
	case "quarterly", "q":
		return CadenceQuarterly, nil
	default:
		return "", fmt.Errorf("unknown cadence: %q", s)
	}
}

// Period identifies one reporting interval: a cadence plus the period label
// as it appears in the source workbook (e.g. "2023", "Q2 2023", "2023-06-30").
type Period struct {
	Cadence Cadence `json:"cadence"`
	Label   string  `json:"label"`
}

// String returns the period label
func (p Period) String() string {
	return p.Label
}

// Field identifies one canonical statement field.
type Field string

const (
	FieldNetIncome                   Field = "net_income"
	FieldDepreciationAmortization    Field = "depreciation_amortization"
	FieldCapitalExpenditures         Field = "capital_expenditures"
	FieldWorkingCapitalChange        Field = "working_capital_change"
	FieldOperatingCashFlow           Field = "operating_cash_flow"
	FieldFreeCashFlow                Field = "free_cash_flow"
	FieldCashAndShortTermInvestments Field = "cash_and_short_term_investments"
	FieldTotalDebt                   Field = "total_debt"
	FieldSharesOutstanding           Field = "shares_outstanding"
)

// Record holds the normalized statement fields for one period. A nil field
// means the source did not report it; absence is preserved here and any
// zero-coercion happens explicitly downstream.
//
// All monetary fields share one implicit currency and scale per record.
// CapitalExpenditures is stored as a non-positive value (cash outflow).
// WorkingCapitalChange is stored as the signed cash impact: a decrease in
// working capital is a positive inflow.
type Record struct {
	NetIncome                   *float64 `json:"net_income,omitempty"`
	DepreciationAmortization    *float64 `json:"depreciation_amortization,omitempty"`
	CapitalExpenditures         *float64 `json:"capital_expenditures,omitempty"`
	WorkingCapitalChange        *float64 `json:"working_capital_change,omitempty"`
	OperatingCashFlow           *float64 `json:"operating_cash_flow,omitempty"`
	FreeCashFlow                *float64 `json:"free_cash_flow,omitempty"`
	CashAndShortTermInvestments *float64 `json:"cash_and_short_term_investments,omitempty"`
	TotalDebt                   *float64 `json:"total_debt,omitempty"`
	SharesOutstanding           *float64 `json:"shares_outstanding,omitempty"`
}

// Value returns a pointer to the named field, nil when not reported.
func (r *Record) Value(f Field) *float64 {
	switch f {
	case FieldNetIncome:
		return r.NetIncome
	case FieldDepreciationAmortization:
		return r.DepreciationAmortization
	case FieldCapitalExpenditures:
		return r.CapitalExpenditures
	case FieldWorkingCapitalChange:
		return r.WorkingCapitalChange
	case FieldOperatingCashFlow:
		return r.OperatingCashFlow
	case FieldFreeCashFlow:
		return r.FreeCashFlow
	case FieldCashAndShortTermInvestments:
		return r.CashAndShortTermInvestments
	case FieldTotalDebt:
		return r.TotalDebt
	case FieldSharesOutstanding:
		return r.SharesOutstanding
	default:
		return nil
	}
}

// set assigns the named field unless it already holds a value. The first
// matched line item per period wins; later synonyms never overwrite it.
func (r *Record) set(f Field, v float64) {
	assign := func(dst **float64) {
		if *dst == nil {
			val := v
			*dst = &val
		}
	}
	switch f {
	case FieldNetIncome:
		assign(&r.NetIncome)
	case FieldDepreciationAmortization:
		assign(&r.DepreciationAmortization)
	case FieldCapitalExpenditures:
		assign(&r.CapitalExpenditures)
	case FieldWorkingCapitalChange:
		assign(&r.WorkingCapitalChange)
	case FieldOperatingCashFlow:
		assign(&r.OperatingCashFlow)
	case FieldFreeCashFlow:
		assign(&r.FreeCashFlow)
	case FieldCashAndShortTermInvestments:
		assign(&r.CashAndShortTermInvestments)
	case FieldTotalDebt:
		assign(&r.TotalDebt)
	case FieldSharesOutstanding:
		assign(&r.SharesOutstanding)
	}
}

// PeriodRecord pairs a period with its normalized statement record.
type PeriodRecord struct {
	Period Period `json:"period"`
	Record Record `json:"record"`
}

var quarterLabelRe = regexp.MustCompile(`(?i)^(?:q([1-4])\s+(\d{4})|(\d{4})\s+q([1-4]))$`)

// periodSortKey derives a chronological ordering key from a period label.
// Recognized shapes: "2023", "Q2 2023", "2023 Q2", "2023-06", "2023-06-30",
// and common date formats. Unrecognized labels sort lexicographically after
// all recognized ones.
func periodSortKey(label string) (year, sub int, ok bool) {
	s := strings.TrimSpace(label)

	if m := quarterLabelRe.FindStringSubmatch(s); m != nil {
		if m[1] != "" {
			q, _ := strconv.Atoi(m[1])
			y, _ := strconv.Atoi(m[2])
			return y, q * 3, true
		}
		y, _ := strconv.Atoi(m[3])
		q, _ := strconv.Atoi(m[4])
		return y, q * 3, true
	}

	if y, err := strconv.Atoi(s); err == nil && y >= 1000 && y <= 9999 {
		return y, 0, true
	}

	for _, layout := range []string{"2006-01-02", "2006-01", "01/02/2006", "1/2/2006", "Jan 2006", "January 2006", "2006/01/02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Year(), int(t.Month()), true
		}
	}

	return 0, 0, false
}

// lessByPeriod orders period labels chronologically, oldest first.
func lessByPeriod(a, b string) bool {
	ay, as, aok := periodSortKey(a)
	by, bs, bok := periodSortKey(b)
	if aok && bok {
		if ay != by {
			return ay < by
		}
		if as != bs {
			return as < bs
		}
		return a < b
	}
	if aok != bok {
		return aok // recognized labels sort before unrecognized ones
	}
	return a < b
}
