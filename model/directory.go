package model

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Pricing models a directory can charge under.
const (
	PricingFree   = "free"
	PricingFlat   = "flat"
	PricingTiered = "tiered"
)

// Directory lifecycle statuses. Only active directories are discoverable and
// accept new submissions; maintenance directories are still priced so an
// existing breakdown stays reproducible.
const (
	DirectoryStatusActive      = "active"
	DirectoryStatusMaintenance = "maintenance"
	DirectoryStatusRetired     = "retired"
)

// FeeTier is one named price point of a tiered directory, for example a basic
// listing versus a featured placement.
type FeeTier struct {
	Name        string          `json:"name"`
	Amount      decimal.Decimal `json:"amount"`
	Description string          `json:"description,omitempty"`
}

// FeeSchedule describes how a directory charges for a submission. Amount and
// Currency apply to flat pricing; Tiers applies to tiered pricing. Free
// directories carry neither.
type FeeSchedule struct {
	Model    string          `json:"model"`
	Amount   decimal.Decimal `json:"amount,omitempty"`
	Currency string          `json:"currency,omitempty"`
	Tiers    []FeeTier       `json:"tiers,omitempty"`
}

// Requirements captures the acceptance rules a directory enforces on incoming
// launches before it will list them.
type Requirements struct {
	MinDescriptionLength int  `json:"min_description_length"`
	RequiresURL          bool `json:"requires_url"`
	RequiresModeration   bool `json:"requires_moderation"`
}

type Directory struct {
	DirectoryID     string                 `json:"directory_id"`
	Name            string                 `json:"name"`
	Category        string                 `json:"category"`
	Status          string                 `json:"status"`
	FeeSchedule     FeeSchedule            `json:"fee_schedule"`
	AcceptsCrypto   bool                   `json:"accepts_crypto"`
	Requirements    Requirements           `json:"requirements"`
	SubmissionCount int64                  `json:"submission_count"`
	SubmitURL       string                 `json:"submit_url"`
	InstanceID      string                 `json:"instance_id,omitempty"`
	CreatedAt       time.Time              `json:"created_at"`
	MetaData        map[string]interface{} `json:"meta_data,omitempty"`
}

// IsSubmittable reports whether the directory currently accepts submissions.
func (d *Directory) IsSubmittable() bool {
	return d.Status == DirectoryStatusActive
}

// Fee resolves the directory's charge for one submission. For tiered pricing
// an empty tier name selects the cheapest tier. The returned currency is empty
// for free directories.
func (d *Directory) Fee(tier string) (decimal.Decimal, string, error) {
	switch d.FeeSchedule.Model {
	case PricingFree:
		return decimal.Zero, "", nil
	case PricingFlat:
		return d.FeeSchedule.Amount, d.FeeSchedule.Currency, nil
	case PricingTiered:
		selected, err := d.FeeSchedule.ResolveTier(tier)
		if err != nil {
			return decimal.Zero, "", err
		}
		return selected.Amount, d.FeeSchedule.Currency, nil
	default:
		return decimal.Zero, "", fmt.Errorf("unknown pricing model %q", d.FeeSchedule.Model)
	}
}

// ResolveTier returns the tier matching name, or the cheapest tier when name
// is empty. An unmatched name or an empty tier list is an error.
func (s *FeeSchedule) ResolveTier(name string) (*FeeTier, error) {
	if len(s.Tiers) == 0 {
		return nil, errors.New("tiered fee schedule has no tiers")
	}
	if name == "" {
		cheapest := &s.Tiers[0]
		for i := 1; i < len(s.Tiers); i++ {
			if s.Tiers[i].Amount.LessThan(cheapest.Amount) {
				cheapest = &s.Tiers[i]
			}
		}
		return cheapest, nil
	}
	for i := range s.Tiers {
		if s.Tiers[i].Name == name {
			return &s.Tiers[i], nil
		}
	}
	return nil, fmt.Errorf("tier %q not found", name)
}
