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
	"fmt"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/fedsubhq/fedsub/internal/apierror"
	redlock "github.com/fedsubhq/fedsub/internal/lock"
	"github.com/fedsubhq/fedsub/internal/notification"
	"github.com/fedsubhq/fedsub/internal/search"
	"github.com/fedsubhq/fedsub/model"
)

func (l *Fedsub) postDirectoryActions(_ context.Context, directory *model.Directory) {
	go func() {
		err := l.queue.queueIndexData(directory.DirectoryID, search.CollectionDirectories, directory)
		if err != nil {
			notification.NotifyError(err)
		}
		err = SendWebhook(NewWebhook{
			Event:   "directory.created",
			Payload: directory,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

func (l *Fedsub) postInstanceActions(_ context.Context, instance *model.FederationInstance) {
	go func() {
		err := l.queue.queueIndexData(instance.InstanceID, search.CollectionInstances, instance)
		if err != nil {
			notification.NotifyError(err)
		}
		err = SendWebhook(NewWebhook{
			Event:   "instance.registered",
			Payload: instance,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}

// CreateDirectory registers a new local directory after checking its fee
// schedule is coherent and its submit endpoint is a usable URL.
func (l *Fedsub) CreateDirectory(ctx context.Context, directory *model.Directory) (*model.Directory, error) {
	if err := validateFeeSchedule(&directory.FeeSchedule); err != nil {
		return nil, err
	}
	if err := validateAbsoluteURL(directory.SubmitURL, "submit_url"); err != nil {
		return nil, err
	}
	if directory.InstanceID != "" {
		if _, err := l.datasource.GetInstance(ctx, directory.InstanceID); err != nil {
			return nil, err
		}
	}

	created, err := l.datasource.CreateDirectory(ctx, directory)
	if err != nil {
		return nil, err
	}
	l.postDirectoryActions(ctx, created)
	return created, nil
}

// GetDirectory retrieves a single directory by ID.
func (l *Fedsub) GetDirectory(ctx context.Context, id string) (*model.Directory, error) {
	return l.datasource.GetDirectory(ctx, id)
}

// DiscoverDirectories lists the active directories a launch can be submitted
// to, optionally narrowed by category and pricing model, ordered by historical
// submission volume. Retired and maintenance directories never appear.
func (l *Fedsub) DiscoverDirectories(ctx context.Context, category, pricing string, limit, offset int) ([]*model.Directory, error) {
	if pricing != "" && pricing != model.PricingFree && pricing != model.PricingFlat && pricing != model.PricingTiered {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unknown pricing model '%s'", pricing), nil)
	}
	return l.datasource.DiscoverDirectories(ctx, category, pricing, limit, offset)
}

// UpdateDirectoryStatus moves a directory through its lifecycle and refreshes
// the search index so discovery stops offering it as soon as it leaves active.
func (l *Fedsub) UpdateDirectoryStatus(ctx context.Context, id, status string) error {
	switch status {
	case model.DirectoryStatusActive, model.DirectoryStatusMaintenance, model.DirectoryStatusRetired:
	default:
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unknown directory status '%s'", status), nil)
	}

	if err := l.datasource.UpdateDirectoryStatus(ctx, id, status); err != nil {
		return err
	}

	directory, err := l.datasource.GetDirectory(ctx, id)
	if err != nil {
		return err
	}
	go func() {
		if err := l.queue.queueIndexData(directory.DirectoryID, search.CollectionDirectories, directory); err != nil {
			notification.NotifyError(err)
		}
	}()
	return nil
}

// RegisterInstance admits a remote federation peer to the registry. The base
// URL must be absolute, and only one instance may claim it; a redis lock on
// the URL serializes concurrent registrations so the precheck and the insert
// act as one step.
func (l *Fedsub) RegisterInstance(ctx context.Context, instance *model.FederationInstance) (*model.FederationInstance, error) {
	if instance.Name == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Instance name is required", nil)
	}
	if err := validateAbsoluteURL(instance.BaseURL, "base_url"); err != nil {
		return nil, err
	}

	locker := redlock.NewLocker(l.redis, instance.BaseURL, model.GenerateUUIDWithSuffix("loc"))
	err := locker.Lock(ctx, time.Minute)
	if err != nil {
		return nil, err
	}
	defer func(locker *redlock.Locker, ctx context.Context) {
		err := locker.Unlock(ctx)
		if err != nil {
			logrus.Error("lock error", err)
		}
	}(locker, ctx)

	existing, err := l.datasource.GetInstanceByBaseURL(ctx, instance.BaseURL)
	if err == nil && existing != nil {
		return nil, apierror.NewAPIError(apierror.ErrConflict, fmt.Sprintf("Instance with base URL '%s' already registered", instance.BaseURL), nil)
	}
	if err != nil {
		if apiErr, ok := err.(apierror.APIError); !ok || apiErr.Code != apierror.ErrNotFound {
			return nil, err
		}
	}

	registered, err := l.datasource.RegisterInstance(ctx, instance)
	if err != nil {
		return nil, err
	}
	l.postInstanceActions(ctx, registered)
	return registered, nil
}

// GetInstance retrieves a single federation instance by ID.
func (l *Fedsub) GetInstance(ctx context.Context, id string) (*model.FederationInstance, error) {
	return l.datasource.GetInstance(ctx, id)
}

// DiscoverInstances lists federation peers, most trusted first, optionally
// filtered by status or a name/URL search term.
func (l *Fedsub) DiscoverInstances(ctx context.Context, status, searchTerm string, limit, offset int) ([]*model.FederationInstance, error) {
	return l.datasource.DiscoverInstances(ctx, status, searchTerm, limit, offset)
}

// UpdateInstanceStatus records the outcome of an external health probe and
// refreshes the instance in the search index.
func (l *Fedsub) UpdateInstanceStatus(ctx context.Context, id, status string) error {
	switch status {
	case model.InstanceStatusActive, model.InstanceStatusInactive, model.InstanceStatusError, model.InstanceStatusMaintenance:
	default:
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unknown instance status '%s'", status), nil)
	}

	if err := l.datasource.UpdateInstanceStatus(ctx, id, status); err != nil {
		return err
	}

	instance, err := l.datasource.GetInstance(ctx, id)
	if err != nil {
		return err
	}
	go func() {
		if err := l.queue.queueIndexData(instance.InstanceID, search.CollectionInstances, instance); err != nil {
			notification.NotifyError(err)
		}
	}()
	return nil
}

// validateAbsoluteURL rejects anything that is not an absolute http or https
// URL. Relative URLs and bare hosts cannot be dispatched to.
func validateAbsoluteURL(raw, field string) error {
	if raw == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("%s is required", field), nil)
	}
	parsed, err := url.Parse(raw)
	if err != nil || !parsed.IsAbs() || parsed.Host == "" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("%s must be an absolute URL", field), err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("%s must use http or https", field), nil)
	}
	return nil
}

// validateFeeSchedule checks the schedule carries what its pricing model
// needs: flat pricing a non-negative amount and a currency, tiered pricing at
// least one tier priced the same way. Free schedules carry nothing.
func validateFeeSchedule(schedule *model.FeeSchedule) error {
	switch schedule.Model {
	case model.PricingFree:
		return nil
	case model.PricingFlat:
		if schedule.Amount.IsNegative() {
			return apierror.NewAPIError(apierror.ErrInvalidInput, "Flat fee cannot be negative", nil)
		}
		if schedule.Currency == "" {
			return apierror.NewAPIError(apierror.ErrInvalidInput, "Flat fee requires a currency", nil)
		}
		return nil
	case model.PricingTiered:
		if len(schedule.Tiers) == 0 {
			return apierror.NewAPIError(apierror.ErrInvalidInput, "Tiered pricing requires at least one tier", nil)
		}
		if schedule.Currency == "" {
			return apierror.NewAPIError(apierror.ErrInvalidInput, "Tiered pricing requires a currency", nil)
		}
		seen := map[string]bool{}
		for _, tier := range schedule.Tiers {
			if tier.Name == "" {
				return apierror.NewAPIError(apierror.ErrInvalidInput, "Tier names cannot be empty", nil)
			}
			if seen[tier.Name] {
				return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Duplicate tier name '%s'", tier.Name), nil)
			}
			seen[tier.Name] = true
			if tier.Amount.IsNegative() {
				return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Tier '%s' cannot have a negative amount", tier.Name), nil)
			}
		}
		return nil
	default:
		return apierror.NewAPIError(apierror.ErrInvalidInput, fmt.Sprintf("Unknown pricing model '%s'", schedule.Model), nil)
	}
}
