package earnings

import (
	"marketswimmer/internal/statements"
)

// Method identifies one owner earnings calculation method.
type Method string

const (
	// MethodTraditional is the primary formula: net income plus non-cash
	// charges plus capital expenditures (a non-positive outflow), plus the
	// working-capital change for non-financial companies.
	MethodTraditional Method = "traditional"
	// MethodOperatingCashFlow approximates owner earnings from reported
	// operating cash flow less capital expenditures.
	MethodOperatingCashFlow Method = "operating_cash_flow"
	// MethodFreeCashFlow uses the reported free cash flow figure directly.
	MethodFreeCashFlow Method = "free_cash_flow"
)

// String returns the string representation of the method
func (m Method) String() string {
	return string(m)
}

// MethodSpec describes one calculation method: which normalized fields it
// needs and how it combines them. Each method declares its own required
// fields so the omit-if-missing policy is enforced uniformly by the engine,
// never per method.
type MethodSpec struct {
	Name     Method
	Required func(Sector) []statements.Field
	Compute  func(rec *statements.Record, sector Sector) float64
}

// Registry returns the method specs in report order. Adding a method is a
// new entry here, not a change to the engine.
func Registry() []MethodSpec {
	return []MethodSpec{
		{
			Name: MethodTraditional,
			Required: func(sector Sector) []statements.Field {
				fields := []statements.Field{
					statements.FieldNetIncome,
					statements.FieldDepreciationAmortization,
					statements.FieldCapitalExpenditures,
				}
				if sector == SectorNonFinancial {
					fields = append(fields, statements.FieldWorkingCapitalChange)
				}
				return fields
			},
			Compute: func(rec *statements.Record, sector Sector) float64 {
				v := *rec.NetIncome + *rec.DepreciationAmortization + *rec.CapitalExpenditures
				if sector == SectorNonFinancial {
					v += *rec.WorkingCapitalChange
				}
				return v
			},
		},
		{
			Name: MethodOperatingCashFlow,
			Required: func(Sector) []statements.Field {
				return []statements.Field{
					statements.FieldOperatingCashFlow,
					statements.FieldCapitalExpenditures,
				}
			},
			Compute: func(rec *statements.Record, _ Sector) float64 {
				return *rec.OperatingCashFlow + *rec.CapitalExpenditures
			},
		},
		{
			Name: MethodFreeCashFlow,
			Required: func(Sector) []statements.Field {
				return []statements.Field{statements.FieldFreeCashFlow}
			},
			Compute: func(rec *statements.Record, _ Sector) float64 {
				return *rec.FreeCashFlow
			},
		},
	}
}

// AllMethods returns the method identifiers in report order.
func AllMethods() []Method {
	specs := Registry()
	methods := make([]Method, len(specs))
	for i, spec := range specs {
		methods[i] = spec.Name
	}
	return methods
}
