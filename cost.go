/*
Copyright 2025 Fedsub Authors.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package fedsub

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/model"
)

// CalculateSubmissionCost prices one prospective launch across the chosen
// directories. Every requested directory gets a line: included lines carry the
// fee converted into the settlement currency and contribute to the total;
// directories that cannot be priced or submitted to come back excluded with a
// reason instead of failing the whole estimate. The tier name selects a price
// point on tiered directories, the cheapest tier standing in when it is empty.
func (l *Fedsub) CalculateSubmissionCost(ctx context.Context, directoryIDs []string, tier string) (*model.CostBreakdown, error) {
	ctx, span := tracer.Start(ctx, "Calculating submission cost")
	defer span.End()

	if len(directoryIDs) == 0 {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "At least one directory is required to calculate cost", nil)
	}

	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}
	settlement := conf.Settlement.Currency

	directories, err := l.datasource.GetDirectories(ctx, directoryIDs)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*model.Directory, len(directories))
	for _, directory := range directories {
		byID[directory.DirectoryID] = directory
	}

	breakdown := &model.CostBreakdown{
		Currency:        settlement,
		Total:           decimal.Zero,
		CryptoSupported: true,
		Lines:           make([]model.CostLine, 0, len(directoryIDs)),
	}

	for _, id := range directoryIDs {
		directory, ok := byID[id]
		if !ok {
			breakdown.Lines = append(breakdown.Lines, model.CostLine{
				DirectoryID:     id,
				Excluded:        true,
				ExclusionReason: model.ExclusionNotFound,
			})
			continue
		}

		line := model.CostLine{
			DirectoryID:   directory.DirectoryID,
			DirectoryName: directory.Name,
			PricingModel:  directory.FeeSchedule.Model,
		}

		if directory.Status == model.DirectoryStatusRetired {
			line.Excluded = true
			line.ExclusionReason = model.ExclusionNotSubmittable
			breakdown.Lines = append(breakdown.Lines, line)
			continue
		}

		amount, currency, reason := resolveLineFee(directory, tier, &line)
		if reason != "" {
			line.Excluded = true
			line.ExclusionReason = reason
			breakdown.Lines = append(breakdown.Lines, line)
			continue
		}

		line.Amount = amount
		line.Currency = currency

		converted := amount
		if currency != "" && currency != settlement && !amount.IsZero() {
			converted, err = l.rates.Convert(ctx, amount, currency, settlement)
			if err != nil {
				span.RecordError(err)
				return nil, apierror.NewAPIError(apierror.ErrInternalServer, "Failed to convert fee into settlement currency", err)
			}
		}
		line.Converted = converted

		breakdown.Total = breakdown.Total.Add(converted)
		if !directory.AcceptsCrypto {
			breakdown.CryptoSupported = false
		}
		breakdown.Lines = append(breakdown.Lines, line)
	}

	return breakdown, nil
}

// resolveLineFee resolves a directory's native fee for the requested tier.
// A non-empty reason means the line must be excluded.
func resolveLineFee(directory *model.Directory, tier string, line *model.CostLine) (decimal.Decimal, string, string) {
	switch directory.FeeSchedule.Model {
	case model.PricingFree:
		return decimal.Zero, "", ""
	case model.PricingFlat:
		return directory.FeeSchedule.Amount, directory.FeeSchedule.Currency, ""
	case model.PricingTiered:
		selected, err := directory.FeeSchedule.ResolveTier(tier)
		if err != nil {
			return decimal.Zero, "", model.ExclusionBadTier
		}
		line.Tier = selected.Name
		return selected.Amount, directory.FeeSchedule.Currency, ""
	default:
		return decimal.Zero, "", model.ExclusionBadPricing
	}
}
