package model

import "github.com/shopspring/decimal"

// Exclusion reasons attached to cost lines that do not contribute to the
// total.
const (
	ExclusionNotFound       = "directory_not_found"
	ExclusionNotSubmittable = "directory_not_accepting_submissions"
	ExclusionBadTier        = "tier_unresolvable"
	ExclusionBadPricing     = "unknown_pricing_model"
)

// CostLine prices one directory inside a breakdown. Amount and Currency are
// the directory's native price; Converted is that price in the settlement
// currency. Excluded lines keep their reason and contribute nothing.
type CostLine struct {
	DirectoryID     string          `json:"directory_id"`
	DirectoryName   string          `json:"directory_name,omitempty"`
	PricingModel    string          `json:"pricing_model,omitempty"`
	Tier            string          `json:"tier,omitempty"`
	Amount          decimal.Decimal `json:"amount"`
	Currency        string          `json:"currency,omitempty"`
	Converted       decimal.Decimal `json:"converted"`
	Excluded        bool            `json:"excluded,omitempty"`
	ExclusionReason string          `json:"exclusion_reason,omitempty"`
}

// CostBreakdown is the priced view of one prospective submission: a single
// settlement-currency total plus one line per requested directory, included
// or excluded. CryptoSupported holds only when every included directory
// accepts crypto.
type CostBreakdown struct {
	Currency        string          `json:"currency"`
	Total           decimal.Decimal `json:"total"`
	CryptoSupported bool            `json:"crypto_supported"`
	Lines           []CostLine      `json:"lines"`
}

// IncludedLines returns the lines that contribute to the total.
func (b *CostBreakdown) IncludedLines() []CostLine {
	included := make([]CostLine, 0, len(b.Lines))
	for _, line := range b.Lines {
		if !line.Excluded {
			included = append(included, line)
		}
	}
	return included
}

// FeeFor returns the converted fee for a directory, or zero when the
// directory is not an included line of the breakdown.
func (b *CostBreakdown) FeeFor(directoryID string) (decimal.Decimal, string) {
	for _, line := range b.Lines {
		if line.DirectoryID == directoryID && !line.Excluded {
			return line.Converted, b.Currency
		}
	}
	return decimal.Zero, ""
}
