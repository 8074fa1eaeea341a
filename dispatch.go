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
	"sync"
	"time"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/fedsubhq/fedsub/config"
	"github.com/fedsubhq/fedsub/internal/apierror"
	redlock "github.com/fedsubhq/fedsub/internal/lock"
	"github.com/fedsubhq/fedsub/internal/notification"
	"github.com/fedsubhq/fedsub/internal/search"
	"github.com/fedsubhq/fedsub/model"
)

var (
	tracer = otel.Tracer("Dispatch submission")
)

func logAndRecordError(span trace.Span, msg string, err error) error {
	span.RecordError(err)
	logrus.Error(msg, err)
	return err
}

// acquireDispatchLock serializes whole dispatch and retry runs over one
// submission. The lock only prevents redundant runs; correctness against
// duplicate deliveries rests on the per-target claim alone.
func (l *Fedsub) acquireDispatchLock(ctx context.Context, submissionID string) (*redlock.Locker, error) {
	locker := redlock.NewLocker(l.redis, submissionID, model.GenerateUUIDWithSuffix("loc"))
	err := locker.Lock(ctx, time.Minute*30)
	if err != nil {
		return nil, err
	}
	return locker, nil
}

// checkPaymentGate rejects dispatch of unpaid submissions. Waived and
// zero-cost submissions pass without a verifier round trip.
func (l *Fedsub) checkPaymentGate(ctx context.Context, submission *model.FederatedSubmission) error {
	completed, err := l.payments.IsPaymentCompleted(ctx, submission)
	if err != nil {
		return err
	}
	if !completed {
		return apierror.NewAPIError(apierror.ErrPaymentRequired, "Submission fees must be paid before dispatch", nil)
	}
	return nil
}

// SubmitToFederatedDirectories fans one submission out to every directory it
// was created against. Pending targets are claimed and delivered concurrently;
// targets that already settled are left alone, so replaying the call never
// duplicates a delivery. The returned result reports every leg, and a partial
// outcome is a result, not an error.
func (l *Fedsub) SubmitToFederatedDirectories(ctx context.Context, submissionID, callerID string) (*model.DispatchResult, error) {
	cxt, span := tracer.Start(ctx, "Dispatching submission to directories")
	defer span.End()

	submission, err := l.fetchOwnedSubmission(cxt, submissionID, callerID)
	if err != nil {
		return nil, err
	}
	if err := l.checkPaymentGate(cxt, submission); err != nil {
		return nil, err
	}

	locker, err := l.acquireDispatchLock(cxt, submission.SubmissionID)
	if err != nil {
		return nil, logAndRecordError(span, "acquire lock error", err)
	}

	defer func(locker *redlock.Locker, ctx context.Context) {
		err := locker.Unlock(ctx)
		if err != nil {
			logrus.Error("lock error", err)
		}
	}(locker, cxt)

	targets, err := l.ensureTargets(cxt, submission)
	if err != nil {
		return nil, logAndRecordError(span, "ensuring submission targets error", err)
	}

	pending := make([]*model.SubmissionTarget, 0, len(targets))
	for _, target := range targets {
		if target.State == model.StatusPending {
			pending = append(pending, target)
		}
	}

	if err := l.Hooks.ExecutePreHooks(cxt, submission.SubmissionID, submission); err != nil {
		logrus.Warnf("pre-dispatch hooks error for submission %s: %v", submission.SubmissionID, err)
	}

	results, err := l.dispatchTargets(cxt, submission, pending)
	if err != nil {
		return nil, logAndRecordError(span, "dispatching targets error", err)
	}

	return l.settleDispatch(cxt, submission, results)
}

// RetryFailedSubmissions returns every failed leg of a submission to the pool
// and dispatches just that subset. Submitted legs are never touched, so a
// retry cannot re-deliver or re-charge. Nothing to reset is a successful
// no-op, not an error.
func (l *Fedsub) RetryFailedSubmissions(ctx context.Context, submissionID, callerID string) (*model.RetryResult, error) {
	cxt, span := tracer.Start(ctx, "Retrying failed submission targets")
	defer span.End()

	submission, err := l.fetchOwnedSubmission(cxt, submissionID, callerID)
	if err != nil {
		return nil, err
	}
	if err := l.checkPaymentGate(cxt, submission); err != nil {
		return nil, err
	}

	locker, err := l.acquireDispatchLock(cxt, submission.SubmissionID)
	if err != nil {
		return nil, logAndRecordError(span, "acquire lock error", err)
	}

	defer func(locker *redlock.Locker, ctx context.Context) {
		err := locker.Unlock(ctx)
		if err != nil {
			logrus.Error("lock error", err)
		}
	}(locker, cxt)

	reset, err := l.datasource.ResetFailedTargets(cxt, submission.SubmissionID)
	if err != nil {
		return nil, logAndRecordError(span, "resetting failed targets error", err)
	}

	retry := &model.RetryResult{SubmissionID: submission.SubmissionID, ResetCount: len(reset)}
	if len(reset) == 0 {
		overall, err := l.currentOverallStatus(cxt, submission.SubmissionID)
		if err != nil {
			return nil, err
		}
		retry.Success = overall == model.OverallAllSubmitted
		logrus.Infof("Retry of submission %s reset nothing, overall status is %s", submission.SubmissionID, overall)
		return retry, nil
	}

	if err := l.Hooks.ExecutePreHooks(cxt, submission.SubmissionID, submission); err != nil {
		logrus.Warnf("pre-dispatch hooks error for submission %s: %v", submission.SubmissionID, err)
	}

	results, err := l.dispatchTargets(cxt, submission, reset)
	if err != nil {
		return nil, logAndRecordError(span, "dispatching targets error", err)
	}

	dispatch, err := l.settleDispatch(cxt, submission, results)
	if err != nil {
		return nil, err
	}
	retry.Dispatch = dispatch
	retry.Success = dispatch.Success
	return retry, nil
}

// ensureTargets replays target creation before a dispatch pass. The insert is
// idempotent, so the normal outcome is a plain read-back; the insert only
// matters for a submission that crashed between being recorded and getting
// its targets.
func (l *Fedsub) ensureTargets(ctx context.Context, submission *model.FederatedSubmission) ([]*model.SubmissionTarget, error) {
	candidates := make([]*model.SubmissionTarget, 0, len(submission.DirectoryIDs))
	for _, directoryID := range submission.DirectoryIDs {
		candidates = append(candidates, &model.SubmissionTarget{
			SubmissionID: submission.SubmissionID,
			DirectoryID:  directoryID,
			State:        model.StatusPending,
		})
	}
	return l.datasource.CreateTargets(ctx, submission.SubmissionID, candidates)
}

// dispatchTargets runs the bounded fan-out over a set of targets. One leg's
// failure never cancels its siblings.
func (l *Fedsub) dispatchTargets(ctx context.Context, submission *model.FederatedSubmission, targets []*model.SubmissionTarget) ([]model.TargetResult, error) {
	conf, err := config.Fetch()
	if err != nil {
		return nil, err
	}

	resultChan := make(chan model.TargetResult, len(targets))
	semaphore := make(chan struct{}, conf.Dispatch.MaxConcurrency)

	var wg sync.WaitGroup

	for _, target := range targets {
		wg.Add(1)
		go func(target *model.SubmissionTarget) {
			defer wg.Done()

			semaphore <- struct{}{}
			defer func() { <-semaphore }()

			resultChan <- l.dispatchTarget(ctx, submission, target)
		}(target)
	}

	go func() {
		wg.Wait()
		close(resultChan)
	}()

	results := make([]model.TargetResult, 0, len(targets))
	for result := range resultChan {
		results = append(results, result)
	}

	return results, nil
}

// dispatchTarget runs one leg: claim, deliver, mark. Losing the claim means
// another worker owns the target and the leg is reported as skipped.
func (l *Fedsub) dispatchTarget(ctx context.Context, submission *model.FederatedSubmission, target *model.SubmissionTarget) model.TargetResult {
	result := model.TargetResult{TargetID: target.TargetID, DirectoryID: target.DirectoryID}

	claimed, err := l.datasource.ClaimTarget(ctx, target.TargetID)
	if err != nil {
		result.State = model.StatusPending
		result.ErrorClass = model.ErrorClassTransient
		result.ErrorDetail = err.Error()
		return result
	}
	if !claimed {
		result.State = model.StatusInFlight
		result.Skipped = true
		return result
	}

	directory, err := l.datasource.GetDirectory(ctx, target.DirectoryID)
	if err != nil {
		return l.failTarget(ctx, result, target, model.ErrorClassTransient, err.Error())
	}
	if !directory.IsSubmittable() {
		class := model.ErrorClassPermanent
		if directory.Status == model.DirectoryStatusMaintenance {
			class = model.ErrorClassTransient
		}
		return l.failTarget(ctx, result, target, class, fmt.Sprintf("directory '%s' is %s and not accepting submissions", directory.DirectoryID, directory.Status))
	}

	ackID, err := l.deliverer.Deliver(ctx, directory, submission, target)
	if err != nil {
		class, detail := classifyDeliveryError(err)
		return l.failTarget(ctx, result, target, class, detail)
	}

	if err := l.datasource.MarkTargetSubmitted(ctx, target.TargetID, ackID); err != nil {
		// The remote accepted the launch. Failing the leg here would invite a
		// duplicate delivery on retry, so the target stays in_flight for an
		// operator to inspect.
		logrus.Errorf("target %s delivered with ack %s but could not be marked submitted: %v", target.TargetID, ackID, err)
		result.State = model.StatusInFlight
		result.RemoteAckID = ackID
		result.ErrorClass = model.ErrorClassTransient
		result.ErrorDetail = err.Error()
		return result
	}

	result.State = model.StatusSubmitted
	result.RemoteAckID = ackID
	l.recordDeliverySuccess(ctx, directory)
	return result
}

// recordDeliverySuccess bumps the directory's popularity counter and, for
// directories hosted by a registered instance, refreshes the instance's
// last-seen timestamp. Both are bookkeeping; failures are logged and dropped.
func (l *Fedsub) recordDeliverySuccess(ctx context.Context, directory *model.Directory) {
	if err := l.datasource.IncrementSubmissionCount(ctx, directory.DirectoryID); err != nil {
		logrus.Error("increment submission count error", err)
	}
	if directory.InstanceID != "" {
		if err := l.datasource.TouchInstance(ctx, directory.InstanceID); err != nil {
			logrus.Error("touch instance error", err)
		}
	}
}

func (l *Fedsub) failTarget(ctx context.Context, result model.TargetResult, target *model.SubmissionTarget, class, detail string) model.TargetResult {
	if err := l.datasource.MarkTargetFailed(ctx, target.TargetID, class, detail); err != nil {
		logrus.Error("marking target failed error", err)
	}
	result.State = model.StatusFailed
	result.ErrorClass = class
	result.ErrorDetail = detail
	return result
}

// settleDispatch reads back the authoritative target states, derives the
// overall status and emits the settlement webhook. The per-leg results of
// this pass ride along so the caller can render a Multi-Status view.
func (l *Fedsub) settleDispatch(ctx context.Context, submission *model.FederatedSubmission, results []model.TargetResult) (*model.DispatchResult, error) {
	overall, err := l.currentOverallStatus(ctx, submission.SubmissionID)
	if err != nil {
		return nil, err
	}

	dispatch := &model.DispatchResult{
		SubmissionID:  submission.SubmissionID,
		Success:       overall == model.OverallAllSubmitted,
		OverallStatus: overall,
		Targets:       results,
		CompletedAt:   time.Now(),
	}
	for _, result := range results {
		switch {
		case result.Skipped:
			dispatch.Skipped++
		case result.State == model.StatusSubmitted:
			dispatch.Submitted++
		case result.State == model.StatusFailed:
			dispatch.Failed++
		}
	}

	logrus.Infof("Dispatch of submission %s settled as %s: %d submitted, %d failed, %d skipped",
		submission.SubmissionID, overall, dispatch.Submitted, dispatch.Failed, dispatch.Skipped)
	l.postDispatchActions(ctx, submission, dispatch)
	return dispatch, nil
}

func (l *Fedsub) currentOverallStatus(ctx context.Context, submissionID string) (string, error) {
	targets, err := l.datasource.GetTargetsBySubmission(ctx, submissionID)
	if err != nil {
		return "", err
	}
	targetValues := make([]model.SubmissionTarget, len(targets))
	for i, target := range targets {
		targetValues[i] = *target
	}
	return model.DeriveOverallStatus(targetValues), nil
}

func (l *Fedsub) postDispatchActions(_ context.Context, submission *model.FederatedSubmission, dispatch *model.DispatchResult) {
	go func() {
		if err := l.Hooks.ExecutePostHooks(context.Background(), submission.SubmissionID, dispatch); err != nil {
			logrus.Warnf("post-dispatch hooks error for submission %s: %v", submission.SubmissionID, err)
		}
		err := l.queue.queueIndexData(submission.SubmissionID, search.CollectionSubmissions, submission)
		if err != nil {
			notification.NotifyError(err)
		}
		err = SendWebhook(NewWebhook{
			Event:   getEventFromOverallStatus(dispatch.OverallStatus),
			Payload: dispatch,
		})
		if err != nil {
			notification.NotifyError(err)
		}
	}()
}
