package fairvalue

import (
	"fmt"
	"log/slog"

	"marketswimmer/internal/earnings"
	apperrors "marketswimmer/internal/errors"
	"marketswimmer/internal/series"
	"marketswimmer/internal/statements"
)

// BalanceSnapshot holds the balance-sheet inputs for the valuation step.
// Nil fields were not reported by the source.
type BalanceSnapshot struct {
	Cash              *float64 `json:"cash,omitempty"`
	TotalDebt         *float64 `json:"total_debt,omitempty"`
	SharesOutstanding *float64 `json:"shares_outstanding,omitempty"`
}

// SnapshotFromRecords extracts the most recent reported value for each
// balance-sheet field, walking back from the latest period. Companies that
// stop reporting a line item in the final period still get their latest
// known figure rather than no valuation at all.
func SnapshotFromRecords(records []statements.PeriodRecord) BalanceSnapshot {
	var snap BalanceSnapshot
	for i := len(records) - 1; i >= 0; i-- {
		rec := &records[i].Record
		if snap.Cash == nil && rec.CashAndShortTermInvestments != nil {
			snap.Cash = rec.CashAndShortTermInvestments
		}
		if snap.TotalDebt == nil && rec.TotalDebt != nil {
			snap.TotalDebt = rec.TotalDebt
		}
		if snap.SharesOutstanding == nil && rec.SharesOutstanding != nil {
			snap.SharesOutstanding = rec.SharesOutstanding
		}
	}
	return snap
}

// Result is the fair value estimate derived from one method's aggregated
// earnings, together with every input that produced it.
type Result struct {
	Method            earnings.Method `json:"method"`
	FairValuePerShare float64         `json:"fair_value_per_share"`
	EquityValue       float64         `json:"equity_value"`
	// EarningsBasis is the trailing average the valuation capitalized.
	EarningsBasis float64 `json:"earnings_basis"`
	PeriodsUsed   int     `json:"periods_used"`
	// Balance-sheet adjustments consumed by the valuation.
	Cash              float64 `json:"cash"`
	TotalDebt         float64 `json:"total_debt"`
	SharesOutstanding float64 `json:"shares_outstanding"`
	// PctDiffVsTraditional is nil for the traditional method itself and
	// whenever the traditional baseline is zero or absent.
	PctDiffVsTraditional *float64 `json:"pct_diff_vs_traditional,omitempty"`
}

// MethodSkip records a method omitted from the fair value report and why.
type MethodSkip struct {
	Method earnings.Method `json:"method"`
	Reason string          `json:"reason"`
}

// Output is one complete fair value computation: per-method results, the
// methods that were omitted, and the explicit input policies applied.
type Output struct {
	Results map[earnings.Method]Result `json:"results"`
	Skips   []MethodSkip               `json:"skips,omitempty"`
	// Notes records explicit policy decisions, such as coercing an
	// unreported cash or debt figure to zero.
	Notes []string `json:"notes,omitempty"`
}

// Engine turns aggregated earnings estimates into per-share fair values.
// The capitalization multiple is the one documented, consistently-applied
// assumption: EquityValue = TrailingAverage x Multiple + Cash - TotalDebt.
type Engine struct {
	multiple float64
	logger   *slog.Logger
}

// NewEngine creates a fair value engine with the given capitalization
// multiple.
func NewEngine(multiple float64, logger *slog.Logger) (*Engine, error) {
	if multiple <= 0 {
		return nil, apperrors.NewConfigError(
			fmt.Sprintf("capitalization multiple must be positive, got %v", multiple), nil)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{multiple: multiple, logger: logger}, nil
}

// Compute produces a fair value per share for every method with a valid
// aggregated estimate. Zero or negative shares outstanding is a
// ValuationError: no division happens and no default is substituted. A
// method without an estimate is omitted from the report, never fabricated
// as a zero valuation.
func (e *Engine) Compute(estimates map[earnings.Method]series.AggregatedEstimate, snap BalanceSnapshot) (*Output, error) {
	if snap.SharesOutstanding == nil {
		return nil, apperrors.NewValuationError("shares outstanding not reported")
	}
	shares := *snap.SharesOutstanding
	if shares <= 0 {
		return nil, apperrors.NewValuationError(
			fmt.Sprintf("shares outstanding must be positive, got %v", shares))
	}

	out := &Output{Results: make(map[earnings.Method]Result)}

	cash := 0.0
	if snap.Cash != nil {
		cash = *snap.Cash
	} else {
		out.Notes = append(out.Notes, "cash and short-term investments not reported; treated as 0")
	}
	debt := 0.0
	if snap.TotalDebt != nil {
		debt = *snap.TotalDebt
	} else {
		out.Notes = append(out.Notes, "total debt not reported; treated as 0")
	}

	for _, method := range earnings.AllMethods() {
		est, ok := estimates[method]
		if !ok {
			out.Skips = append(out.Skips, MethodSkip{
				Method: method,
				Reason: "no aggregated earnings estimate available",
			})
			continue
		}

		equity := est.TrailingAverage*e.multiple + cash - debt
		out.Results[method] = Result{
			Method:            method,
			FairValuePerShare: equity / shares,
			EquityValue:       equity,
			EarningsBasis:     est.TrailingAverage,
			PeriodsUsed:       est.PeriodsUsed,
			Cash:              cash,
			TotalDebt:         debt,
			SharesOutstanding: shares,
		}
	}

	e.applyTraditionalComparison(out)

	e.logger.Info("fair value computed",
		slog.Float64("capitalization_multiple", e.multiple),
		slog.Int("methods", len(out.Results)),
		slog.Int("skipped", len(out.Skips)))

	return out, nil
}

// applyTraditionalComparison fills the percentage-difference column against
// the traditional baseline. With a zero or absent baseline the comparison
// is omitted rather than divided by zero.
func (e *Engine) applyTraditionalComparison(out *Output) {
	trad, ok := out.Results[earnings.MethodTraditional]
	if !ok || trad.FairValuePerShare == 0 {
		return
	}

	for method, result := range out.Results {
		if method == earnings.MethodTraditional {
			continue
		}
		diff := (result.FairValuePerShare - trad.FairValuePerShare) /
			abs(trad.FairValuePerShare) * 100
		result.PctDiffVsTraditional = &diff
		out.Results[method] = result
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
