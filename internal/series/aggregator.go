package series

import (
	"log/slog"
	"math"

	"marketswimmer/internal/earnings"
)

// AggregatedEstimate condenses one method's owner earnings series into a
// stable estimate over the trailing window. GrowthRate and Volatility are
// nil, never zero, when fewer than two values exist to support them.
type AggregatedEstimate struct {
	Method earnings.Method `json:"method"`
	// TrailingAverage is the mean of the most recent window values.
	TrailingAverage float64 `json:"trailing_average"`
	// PeriodsUsed counts the values behind the average. Periods missing
	// the method are excluded from both the sum and the count.
	PeriodsUsed int `json:"periods_used"`
	// WindowCap is the configured maximum window length.
	WindowCap int `json:"window_cap"`
	// GrowthRate is the compound period-over-period growth between the
	// earliest and latest values inside the window.
	GrowthRate *float64 `json:"growth_rate,omitempty"`
	// Volatility is the coefficient of variation across the window,
	// comparable across methods regardless of scale.
	Volatility *float64 `json:"volatility,omitempty"`
}

// Aggregate reduces per-period, per-method results to one estimate per
// method. results must be ordered chronologically, most recent last; the
// same window cap and recency policy is applied to every method so the
// estimates stay directly comparable. A method with no values at all is
// absent from the output.
func Aggregate(results []earnings.PeriodResults, maxWindow int, logger *slog.Logger) map[earnings.Method]AggregatedEstimate {
	if logger == nil {
		logger = slog.Default()
	}
	if maxWindow <= 0 {
		maxWindow = len(results)
	}

	estimates := make(map[earnings.Method]AggregatedEstimate)

	for _, method := range earnings.AllMethods() {
		// Collect the method's available values in chronological order.
		var values []float64
		for _, pr := range results {
			if v, ok := pr.Values[method]; ok {
				values = append(values, v)
			}
		}
		if len(values) == 0 {
			continue
		}

		// Trailing window: the most recent values that exist for this
		// method. The window adapts to availability; a missing period is
		// never counted as zero.
		if len(values) > maxWindow {
			values = values[len(values)-maxWindow:]
		}

		est := AggregatedEstimate{
			Method:          method,
			TrailingAverage: mean(values),
			PeriodsUsed:     len(values),
			WindowCap:       maxWindow,
		}
		est.GrowthRate = compoundGrowth(values)
		est.Volatility = coefficientOfVariation(values)

		estimates[method] = est

		logger.Debug("aggregated method series",
			slog.String("method", method.String()),
			slog.Int("periods_used", est.PeriodsUsed),
			slog.Float64("trailing_average", est.TrailingAverage))
	}

	return estimates
}

func mean(values []float64) float64 {
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// compoundGrowth computes the compound period-over-period growth rate
// between the earliest and latest values of the window. Undefined (nil)
// with fewer than two values, or when either endpoint is non-positive,
// since a fractional exponent of a negative base has no real meaning.
func compoundGrowth(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	first, last := values[0], values[len(values)-1]
	if first <= 0 || last <= 0 {
		return nil
	}
	periods := float64(len(values) - 1)
	g := math.Pow(last/first, 1/periods) - 1
	return &g
}

// coefficientOfVariation computes sample standard deviation over the
// absolute mean. Undefined (nil) with fewer than two values or a zero mean.
func coefficientOfVariation(values []float64) *float64 {
	if len(values) < 2 {
		return nil
	}
	m := mean(values)
	if m == 0 {
		return nil
	}
	var ss float64
	for _, v := range values {
		d := v - m
		ss += d * d
	}
	sd := math.Sqrt(ss / float64(len(values)-1))
	cv := sd / math.Abs(m)
	return &cv
}
