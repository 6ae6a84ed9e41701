package earnings

import (
	"fmt"
	"strings"

	apperrors "marketswimmer/internal/errors"
)

// Sector selects which owner earnings formula variant applies. Financial
// institutions exclude working-capital changes: a bank's working-capital
// swings reflect deposit and loan flows, not operating earnings.
type Sector string

const (
	SectorNonFinancial         Sector = "non_financial"
	SectorFinancialInstitution Sector = "financial_institution"
)

// String returns the string representation of the sector
func (s Sector) String() string {
	return string(s)
}

// ParseSector converts a string to a Sector.
func ParseSector(s string) (Sector, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "non_financial", "non-financial", "nonfinancial":
		return SectorNonFinancial, nil
	case "financial_institution", "financial", "bank":
		return SectorFinancialInstitution, nil
	default:
		return "", fmt.Errorf("unknown sector: %q", s)
	}
}

// knownFinancialInstitutions lists tickers whose statements must be treated
// with the financial-institution formula variant. Kept as data so adding an
// institution is one more entry, not a code change.
var knownFinancialInstitutions = map[string]struct{}{
	"JPM":   {},
	"BAC":   {},
	"WFC":   {},
	"C":     {},
	"GS":    {},
	"MS":    {},
	"USB":   {},
	"PNC":   {},
	"TFC":   {},
	"ZION":  {},
	"SCHW":  {},
	"BRK.A": {},
	"BRK.B": {},
}

// KnownSector reports the classification for tickers with a known sector.
// Unknown tickers return ok=false and fall back to the caller's default.
func KnownSector(ticker string) (Sector, bool) {
	key := strings.ToUpper(strings.TrimSpace(ticker))
	if _, ok := knownFinancialInstitutions[key]; ok {
		return SectorFinancialInstitution, true
	}
	return "", false
}

// ClassifySector determines the single classification for one ticker's run.
// An explicit classification and the known-institutions table are both
// consulted; when both apply they must agree, resolved through
// ResolveSector so a conflict fails loudly instead of silently preferring
// one source. With neither, the run default applies.
func ClassifySector(explicit string, fallback Sector, ticker string) (Sector, error) {
	var classifications []Sector

	if strings.TrimSpace(explicit) != "" {
		s, err := ParseSector(explicit)
		if err != nil {
			return "", err
		}
		classifications = append(classifications, s)
	}
	if s, ok := KnownSector(ticker); ok {
		classifications = append(classifications, s)
	}

	if len(classifications) == 0 {
		return fallback, nil
	}
	return ResolveSector(classifications...)
}

// ResolveSector collapses per-source sector classifications into the single
// classification applied to every period of a company. Mixed classifications
// are an internal invariant violation and fail loudly rather than silently
// picking one.
func ResolveSector(classifications ...Sector) (Sector, error) {
	if len(classifications) == 0 {
		return "", apperrors.NewSectorMismatchError("no sector classification provided")
	}
	first := classifications[0]
	for _, s := range classifications[1:] {
		if s != first {
			return "", apperrors.NewSectorMismatchError(
				fmt.Sprintf("conflicting sector classifications: %s vs %s", first, s))
		}
	}
	return first, nil
}
