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
	"net/http"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/database"
	"github.com/fedsubhq/fedsub/internal/apierror"
	"github.com/fedsubhq/fedsub/internal/notification"
	"github.com/fedsubhq/fedsub/internal/request"
	"github.com/fedsubhq/fedsub/internal/search"
	"github.com/fedsubhq/fedsub/model"
)

// PaymentVerifier answers whether a submission has cleared its payment gate.
// Capture itself happens outside this service; the verifier only confirms it.
type PaymentVerifier interface {
	IsPaymentCompleted(ctx context.Context, submission *model.FederatedSubmission) (bool, error)
}

// PersistedPaymentVerifier trusts the payment status the capture system wrote
// through MarkSubmissionPaid. Zero-cost submissions always pass.
type PersistedPaymentVerifier struct {
	datasource database.IDataSource
}

func (v *PersistedPaymentVerifier) IsPaymentCompleted(_ context.Context, submission *model.FederatedSubmission) (bool, error) {
	if submission.TotalCost.IsZero() {
		return true, nil
	}
	return submission.Paid(), nil
}

// HTTPPaymentVerifier confirms capture against an external processor before
// opening the gate. The processor's answer wins over the persisted status.
type HTTPPaymentVerifier struct{}

type paymentVerificationRequest struct {
	SubmissionID string          `json:"submission_id"`
	PaymentRef   string          `json:"payment_ref,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Currency     string          `json:"currency"`
}

type paymentVerificationResponse struct {
	Completed bool `json:"completed"`
}

func (v *HTTPPaymentVerifier) IsPaymentCompleted(ctx context.Context, submission *model.FederatedSubmission) (bool, error) {
	if submission.TotalCost.IsZero() {
		return true, nil
	}

	conf, err := config.Fetch()
	if err != nil {
		return false, err
	}

	payload, err := request.ToJsonReq(&paymentVerificationRequest{
		SubmissionID: submission.SubmissionID,
		PaymentRef:   submission.PaymentRef,
		Amount:       submission.TotalCost,
		Currency:     submission.Currency,
	})
	if err != nil {
		return false, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.Payment.VerificationUrl, payload)
	if err != nil {
		return false, err
	}
	if conf.Payment.Headers.Authorization != "" {
		req.Header.Set("Authorization", conf.Payment.Headers.Authorization)
	}

	var response paymentVerificationResponse
	resp, err := request.Call(req, &response)
	if err != nil {
		return false, err
	}
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("payment verification returned status %d", resp.StatusCode)
	}
	return response.Completed, nil
}

// NewPaymentVerifier picks the verifier for this deployment: the external
// processor when a verification URL is configured, the persisted payment
// status otherwise.
func NewPaymentVerifier(conf *config.Configuration, db database.IDataSource) PaymentVerifier {
	if conf.Payment.VerificationUrl != "" {
		return &HTTPPaymentVerifier{}
	}
	return &PersistedPaymentVerifier{datasource: db}
}

// RateConverter converts an amount between currencies. The cost calculator
// requests converted amounts; it never fetches raw rates itself.
type RateConverter interface {
	Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error)
}

// FixedRateConverter converts through a fixed table keyed "FROM:TO". It backs
// deployments without a rate service and doubles as the test converter.
type FixedRateConverter struct {
	rates map[string]float64
}

func NewFixedRateConverter(rates map[string]float64) *FixedRateConverter {
	return &FixedRateConverter{rates: rates}
}

func (c *FixedRateConverter) Convert(_ context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to || amount.IsZero() {
		return amount, nil
	}
	rate, ok := c.rates[fmt.Sprintf("%s:%s", from, to)]
	if !ok {
		return decimal.Zero, fmt.Errorf("no exchange rate configured from %s to %s", from, to)
	}
	return amount.Mul(decimal.NewFromFloat(rate)), nil
}

// HTTPRateService converts through the configured exchange-rate endpoint, the
// same mechanism payment capture uses, so estimates and charges agree.
type HTTPRateService struct{}

type rateConversionRequest struct {
	Amount decimal.Decimal `json:"amount"`
	From   string          `json:"from"`
	To     string          `json:"to"`
}

type rateConversionResponse struct {
	Converted decimal.Decimal `json:"converted"`
}

func (c *HTTPRateService) Convert(ctx context.Context, amount decimal.Decimal, from, to string) (decimal.Decimal, error) {
	if from == to || amount.IsZero() {
		return amount, nil
	}

	conf, err := config.Fetch()
	if err != nil {
		return decimal.Zero, err
	}

	payload, err := request.ToJsonReq(&rateConversionRequest{Amount: amount, From: from, To: to})
	if err != nil {
		return decimal.Zero, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, conf.ExchangeRates.HttpService.Url, payload)
	if err != nil {
		return decimal.Zero, err
	}
	if conf.ExchangeRates.HttpService.Headers.Authorization != "" {
		req.Header.Set("Authorization", conf.ExchangeRates.HttpService.Headers.Authorization)
	}

	var response rateConversionResponse
	resp, err := request.Call(req, &response)
	if err != nil {
		return decimal.Zero, err
	}
	if resp.StatusCode != http.StatusOK {
		return decimal.Zero, fmt.Errorf("rate service returned status %d", resp.StatusCode)
	}
	return response.Converted, nil
}

// NewRateConverter picks the converter for this deployment: the HTTP rate
// service when enabled, the static table otherwise.
func NewRateConverter(conf *config.Configuration) RateConverter {
	if conf.ExchangeRates.EnableHttpService && conf.ExchangeRates.HttpService.Url != "" {
		return &HTTPRateService{}
	}
	return NewFixedRateConverter(conf.ExchangeRates.Static)
}

// MarkSubmissionPaid records a confirmed capture against a submission. The
// guarded update refuses replays and captures against waived or already
// completed submissions, so a payment lands exactly once.
func (l *Fedsub) MarkSubmissionPaid(ctx context.Context, submissionID, paymentRef string) (*model.FederatedSubmission, error) {
	if paymentRef == "" {
		return nil, apierror.NewAPIError(apierror.ErrInvalidInput, "Payment reference is required", nil)
	}

	if err := l.datasource.MarkSubmissionPaid(ctx, submissionID, paymentRef); err != nil {
		return nil, err
	}

	submission, err := l.datasource.GetSubmission(ctx, submissionID)
	if err != nil {
		return nil, err
	}
	logrus.Infof("submission %s marked paid with reference %s", submissionID, paymentRef)

	go func() {
		if err := l.queue.queueIndexData(submission.SubmissionID, search.CollectionSubmissions, submission); err != nil {
			notification.NotifyError(err)
		}
	}()
	return submission, nil
}
