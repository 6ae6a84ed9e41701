package statements

import "strings"

// canonicalLabels maps normalized line-item labels to canonical fields.
// Statement exports disagree on labeling across companies and sectors, so
// the mapping lives in data: supporting a new source label is one more
// table entry, not another conditional.
var canonicalLabels = map[string]Field{
	// Net income
	"net income":                              FieldNetIncome,
	"net income loss":                         FieldNetIncome,
	"net income common stockholders":          FieldNetIncome,
	"net income to company":                   FieldNetIncome,
	"net income applicable to common shares":  FieldNetIncome,
	"net income attributable to parent":       FieldNetIncome,
	"consolidated net income":                 FieldNetIncome,
	"net earnings":                            FieldNetIncome,
	"profit attributable to shareholders":     FieldNetIncome,

	// Depreciation and amortization
	"depreciation and amortization":           FieldDepreciationAmortization,
	"depreciation amortization":               FieldDepreciationAmortization,
	"depreciation and amortisation":           FieldDepreciationAmortization,
	"depreciation depletion and amortization": FieldDepreciationAmortization,
	"depreciation":                            FieldDepreciationAmortization,
	"d and a":                                 FieldDepreciationAmortization,

	// Capital expenditures
	"capital expenditures":                       FieldCapitalExpenditures,
	"capital expenditure":                        FieldCapitalExpenditures,
	"capex":                                      FieldCapitalExpenditures,
	"purchases of property and equipment":        FieldCapitalExpenditures,
	"purchase of property plant and equipment":   FieldCapitalExpenditures,
	"purchases of property plant and equipment":  FieldCapitalExpenditures,
	"payments for property plant and equipment":  FieldCapitalExpenditures,
	"investments in property plant and equipment": FieldCapitalExpenditures,
	"additions to property plant and equipment":  FieldCapitalExpenditures,

	// Working capital change
	"working capital change":                  FieldWorkingCapitalChange,
	"working capital changes":                 FieldWorkingCapitalChange,
	"change in working capital":               FieldWorkingCapitalChange,
	"changes in working capital":              FieldWorkingCapitalChange,
	"change in net working capital":           FieldWorkingCapitalChange,
	"increase decrease in working capital":    FieldWorkingCapitalChange,

	// Operating cash flow
	"operating cash flow":                       FieldOperatingCashFlow,
	"cash from operations":                      FieldOperatingCashFlow,
	"cash flow from operating activities":       FieldOperatingCashFlow,
	"cash flow from operations":                 FieldOperatingCashFlow,
	"net cash provided by operating activities": FieldOperatingCashFlow,
	"net cash from operating activities":        FieldOperatingCashFlow,
	"cash generated from operations":            FieldOperatingCashFlow,

	// Free cash flow
	"free cash flow":         FieldFreeCashFlow,
	"fcf":                    FieldFreeCashFlow,
	"levered free cash flow": FieldFreeCashFlow,

	// Cash and short-term investments
	"cash and short term investments":              FieldCashAndShortTermInvestments,
	"cash and equivalents":                         FieldCashAndShortTermInvestments,
	"cash and cash equivalents":                    FieldCashAndShortTermInvestments,
	"cash cash equivalents and short term investments": FieldCashAndShortTermInvestments,
	"total cash":                                   FieldCashAndShortTermInvestments,

	// Total debt
	"total debt":                              FieldTotalDebt,
	"total debt and capital lease obligation": FieldTotalDebt,
	"short and long term debt":                FieldTotalDebt,
	"total borrowings":                        FieldTotalDebt,

	// Shares outstanding
	"shares outstanding":                   FieldSharesOutstanding,
	"common shares outstanding":            FieldSharesOutstanding,
	"shares diluted weighted":              FieldSharesOutstanding,
	"weighted average shares outstanding":  FieldSharesOutstanding,
	"diluted shares outstanding":           FieldSharesOutstanding,
	"total common shares outstanding":      FieldSharesOutstanding,
}

var labelReplacer = strings.NewReplacer(
	"&", " and ",
	",", " ",
	".", " ",
	"(", " ",
	")", " ",
	"'", "",
	":", " ",
	"-", " ",
	"/", " ",
	"_", " ",
)

// normalizeLabel reduces a raw line-item label to its lookup form:
// lowercase, punctuation folded to spaces, whitespace collapsed.
func normalizeLabel(label string) string {
	s := strings.ToLower(strings.TrimSpace(label))
	s = labelReplacer.Replace(s)
	return strings.Join(strings.Fields(s), " ")
}

// Canonicalize maps a raw line-item label to its canonical field.
// Unknown labels return ok=false and are ignored by the normalizer.
func Canonicalize(label string) (Field, bool) {
	f, ok := canonicalLabels[normalizeLabel(label)]
	return f, ok
}
