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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/mitchellh/mapstructure"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/model"
)

// DeliveryError is a failed delivery attempt classified for the retry policy.
// Transient failures may be retried, validation failures mean the launch
// itself was rejected, and permanent failures mean the directory refused the
// request for reasons a retry will not change.
type DeliveryError struct {
	Class  string
	Status int
	Detail string
}

func (e *DeliveryError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("delivery failed with status %d: %s", e.Status, e.Detail)
	}
	return fmt.Sprintf("delivery failed: %s", e.Detail)
}

// Deliverer submits one launch to one directory's remote endpoint and returns
// the directory's acknowledgment ID.
type Deliverer interface {
	Deliver(ctx context.Context, directory *model.Directory, submission *model.FederatedSubmission, target *model.SubmissionTarget) (string, error)
}

// DirectoryClient is the HTTP deliverer. Each call gets its own timeout, and
// transient failures earn exponential-backoff retries inside the configured
// attempt budget. Anything the remote rejects outright stops immediately.
type DirectoryClient struct {
	client      *http.Client
	timeout     time.Duration
	maxAttempts int
}

func NewDirectoryClient(conf *config.Configuration) *DirectoryClient {
	timeout := time.Duration(conf.Dispatch.RequestTimeoutSec) * time.Second
	return &DirectoryClient{
		client:      &http.Client{Timeout: timeout},
		timeout:     timeout,
		maxAttempts: conf.Dispatch.MaxAttempts,
	}
}

// launchPayload is the wire format a directory endpoint receives. The payload
// hash lets directories deduplicate replayed deliveries of the same launch.
type launchPayload struct {
	SubmissionID string       `json:"submission_id"`
	TargetID     string       `json:"target_id"`
	PayloadHash  string       `json:"payload_hash"`
	Launch       launchDetail `json:"launch"`
}

type launchDetail struct {
	URL         string `json:"url"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Category    string `json:"category"`
}

func (c *DirectoryClient) Deliver(ctx context.Context, directory *model.Directory, submission *model.FederatedSubmission, target *model.SubmissionTarget) (string, error) {
	body, err := json.Marshal(launchPayload{
		SubmissionID: submission.SubmissionID,
		TargetID:     target.TargetID,
		PayloadHash:  submission.HashPayload(),
		Launch: launchDetail{
			URL:         submission.LaunchURL,
			Name:        submission.LaunchName,
			Description: submission.Description,
			Category:    submission.Category,
		},
	})
	if err != nil {
		return "", errors.Wrap(err, "failed to encode launch payload")
	}

	var ackID string
	operation := func() error {
		callCtx, cancel := context.WithTimeout(ctx, c.timeout)
		defer cancel()

		req, err := http.NewRequestWithContext(callCtx, http.MethodPost, directory.SubmitURL, bytes.NewReader(body))
		if err != nil {
			return backoff.Permanent(&DeliveryError{Class: model.ErrorClassPermanent, Detail: err.Error()})
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := c.client.Do(req)
		if err != nil {
			// Timeouts and connection failures may clear on a later attempt.
			return &DeliveryError{Class: model.ErrorClassTransient, Detail: err.Error()}
		}
		defer func(Body io.ReadCloser) {
			if err := Body.Close(); err != nil {
				logrus.Error(err)
			}
		}(resp.Body)

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			ack, err := parseAck(resp.Body)
			if err != nil {
				return backoff.Permanent(&DeliveryError{Class: model.ErrorClassPermanent, Status: resp.StatusCode, Detail: err.Error()})
			}
			ackID = ack
			return nil
		}

		deliveryErr := classifyStatus(resp.StatusCode, remoteErrorDetail(resp.StatusCode, resp.Body))
		if deliveryErr.Class == model.ErrorClassTransient {
			return deliveryErr
		}
		return backoff.Permanent(deliveryErr)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = 500 * time.Millisecond
	bo.MaxInterval = 5 * time.Second
	err = backoff.Retry(operation, backoff.WithMaxRetries(backoff.WithContext(bo, ctx), uint64(c.maxAttempts-1)))
	if err != nil {
		return "", err
	}
	return ackID, nil
}

// classifyStatus buckets a remote HTTP status into an error class. Server
// errors and throttling are worth retrying; 400 and 422 mean the launch
// payload itself was rejected; every other 4xx is a refusal that retries
// cannot change.
func classifyStatus(status int, detail string) *DeliveryError {
	class := model.ErrorClassPermanent
	switch {
	case status >= 500 || status == http.StatusTooManyRequests:
		class = model.ErrorClassTransient
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		class = model.ErrorClassValidation
	}
	return &DeliveryError{Class: class, Status: status, Detail: detail}
}

// remoteAck is the acknowledgment shape directories answer with. Directories
// run software from many federation members, so the decode is deliberately
// forgiving about types.
type remoteAck struct {
	AckID string `mapstructure:"ack_id"`
	Error string `mapstructure:"error"`
}

func parseAck(body io.Reader) (string, error) {
	var raw map[string]interface{}
	if err := json.NewDecoder(body).Decode(&raw); err != nil {
		return "", errors.Wrap(err, "directory returned a malformed acknowledgment")
	}

	var ack remoteAck
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{Result: &ack, WeaklyTypedInput: true})
	if err != nil {
		return "", err
	}
	if err := decoder.Decode(raw); err != nil {
		return "", errors.Wrap(err, "directory returned an unreadable acknowledgment")
	}
	if ack.AckID == "" {
		return "", errors.New("directory acknowledged without an ack_id")
	}
	return ack.AckID, nil
}

// remoteErrorDetail pulls the error message out of a failure response, falling
// back to the status text when the body is not the documented {error} shape.
func remoteErrorDetail(status int, body io.Reader) string {
	var raw map[string]interface{}
	if err := json.NewDecoder(body).Decode(&raw); err == nil {
		if msg, ok := raw["error"].(string); ok && msg != "" {
			return msg
		}
	}
	return http.StatusText(status)
}

// classifyDeliveryError maps any error out of a Deliverer into the class and
// detail recorded on the failed target. Unclassified errors count as
// transient so an unexplained failure stays retryable.
func classifyDeliveryError(err error) (string, string) {
	var deliveryErr *DeliveryError
	if errors.As(err, &deliveryErr) {
		return deliveryErr.Class, deliveryErr.Detail
	}
	return model.ErrorClassTransient, err.Error()
}
