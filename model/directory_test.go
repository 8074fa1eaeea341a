package model

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDirectoryFeeFree(t *testing.T) {
	dir := Directory{FeeSchedule: FeeSchedule{Model: PricingFree}}
	amount, currency, err := dir.Fee("")
	require.NoError(t, err)
	assert.True(t, amount.IsZero())
	assert.Empty(t, currency)
}

func TestDirectoryFeeFlat(t *testing.T) {
	dir := Directory{FeeSchedule: FeeSchedule{
		Model:    PricingFlat,
		Amount:   decimal.NewFromFloat(29.99),
		Currency: "USD",
	}}
	amount, currency, err := dir.Fee("")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromFloat(29.99)))
	assert.Equal(t, "USD", currency)
}

func TestDirectoryFeeTieredDefaultsToCheapest(t *testing.T) {
	dir := Directory{FeeSchedule: FeeSchedule{
		Model:    PricingTiered,
		Currency: "EUR",
		Tiers: []FeeTier{
			{Name: "featured", Amount: decimal.NewFromInt(99)},
			{Name: "basic", Amount: decimal.NewFromInt(10)},
			{Name: "premium", Amount: decimal.NewFromInt(49)},
		},
	}}

	amount, currency, err := dir.Fee("")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(10)), "expected cheapest tier, got %s", amount)
	assert.Equal(t, "EUR", currency)

	amount, _, err = dir.Fee("featured")
	require.NoError(t, err)
	assert.True(t, amount.Equal(decimal.NewFromInt(99)))
}

func TestDirectoryFeeTieredUnknownTier(t *testing.T) {
	dir := Directory{FeeSchedule: FeeSchedule{
		Model: PricingTiered,
		Tiers: []FeeTier{{Name: "basic", Amount: decimal.NewFromInt(10)}},
	}}
	_, _, err := dir.Fee("platinum")
	assert.Error(t, err)
}

func TestDirectoryFeeTieredNoTiers(t *testing.T) {
	dir := Directory{FeeSchedule: FeeSchedule{Model: PricingTiered}}
	_, _, err := dir.Fee("")
	assert.Error(t, err)
}

func TestDirectoryFeeUnknownModel(t *testing.T) {
	dir := Directory{FeeSchedule: FeeSchedule{Model: "auction"}}
	_, _, err := dir.Fee("")
	assert.Error(t, err)
}

func TestIsSubmittable(t *testing.T) {
	assert.True(t, (&Directory{Status: DirectoryStatusActive}).IsSubmittable())
	assert.False(t, (&Directory{Status: DirectoryStatusMaintenance}).IsSubmittable())
	assert.False(t, (&Directory{Status: DirectoryStatusRetired}).IsSubmittable())
}

func TestHasCapability(t *testing.T) {
	instance := FederationInstance{Capabilities: []string{"submissions", "webhooks"}}
	assert.True(t, instance.HasCapability("webhooks"))
	assert.False(t, instance.HasCapability("search"))
}

func TestCostBreakdownHelpers(t *testing.T) {
	breakdown := CostBreakdown{
		Currency: "USD",
		Total:    decimal.NewFromInt(40),
		Lines: []CostLine{
			{DirectoryID: "dir_a", Converted: decimal.NewFromInt(10)},
			{DirectoryID: "dir_b", Converted: decimal.NewFromInt(30)},
			{DirectoryID: "dir_c", Excluded: true, ExclusionReason: ExclusionNotFound},
		},
	}

	assert.Len(t, breakdown.IncludedLines(), 2)

	fee, currency := breakdown.FeeFor("dir_b")
	assert.True(t, fee.Equal(decimal.NewFromInt(30)))
	assert.Equal(t, "USD", currency)

	fee, currency = breakdown.FeeFor("dir_c")
	assert.True(t, fee.IsZero())
	assert.Empty(t, currency)

	fee, _ = breakdown.FeeFor("dir_missing")
	assert.True(t, fee.IsZero())
}
