package earnings

import (
	"log/slog"

	"marketswimmer/internal/statements"
)

// Result is one computed owner earnings value. Results are immutable:
// recomputation on changed inputs produces fresh results, never an in-place
// update of prior ones.
type Result struct {
	Period statements.Period `json:"period"`
	Method Method            `json:"method"`
	Value  float64           `json:"value"`
}

// Skip records a (period, method) pair that could not be computed and why.
// Skips are surfaced in the output so a consumer can distinguish "zero
// earnings" from "could not compute".
type Skip struct {
	Period  statements.Period  `json:"period"`
	Method  Method             `json:"method"`
	Missing []statements.Field `json:"missing_fields"`
}

// PeriodResults holds every method's value for one period. Methods a period
// could not support are absent from the map, not zero.
type PeriodResults struct {
	Period statements.Period  `json:"period"`
	Values map[Method]float64 `json:"values"`
}

// Engine computes owner earnings per period under every registered method.
// The sector classification is fixed at construction and applied uniformly
// to all periods.
type Engine struct {
	sector  Sector
	methods []MethodSpec
	logger  *slog.Logger
}

// NewEngine creates an engine for one company's run.
func NewEngine(sector Sector, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{
		sector:  sector,
		methods: Registry(),
		logger:  logger,
	}
}

// Sector returns the classification the engine applies to every period.
func (e *Engine) Sector() Sector {
	return e.sector
}

// Compute evaluates every method for every period. A method missing a
// required field for a period is omitted for that period and recorded as a
// skip; the rest of the series is unaffected. Partial results are a valid,
// reportable outcome.
func (e *Engine) Compute(records []statements.PeriodRecord) ([]PeriodResults, []Skip) {
	results := make([]PeriodResults, 0, len(records))
	var skips []Skip

	for i := range records {
		period := records[i].Period
		rec := &records[i].Record

		pr := PeriodResults{Period: period, Values: make(map[Method]float64, len(e.methods))}
		for _, spec := range e.methods {
			if missing := missingFields(rec, spec.Required(e.sector)); len(missing) > 0 {
				skips = append(skips, Skip{Period: period, Method: spec.Name, Missing: missing})
				e.logger.Debug("method skipped for period",
					slog.String("period", period.Label),
					slog.String("method", spec.Name.String()),
					slog.Int("missing_fields", len(missing)))
				continue
			}
			pr.Values[spec.Name] = spec.Compute(rec, e.sector)
		}
		results = append(results, pr)
	}

	e.logger.Info("owner earnings computed",
		slog.String("sector", e.sector.String()),
		slog.Int("periods", len(results)),
		slog.Int("skips", len(skips)))

	return results, skips
}

// missingFields returns the required fields the record does not report.
func missingFields(rec *statements.Record, required []statements.Field) []statements.Field {
	var missing []statements.Field
	for _, f := range required {
		if rec.Value(f) == nil {
			missing = append(missing, f)
		}
	}
	return missing
}
