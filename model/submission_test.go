package model

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	allowed := [][2]string{
		{StatusPending, StatusInFlight},
		{StatusInFlight, StatusSubmitted},
		{StatusInFlight, StatusFailed},
		{StatusFailed, StatusPending},
	}
	for _, pair := range allowed {
		assert.True(t, CanTransition(pair[0], pair[1]), "%s -> %s should be allowed", pair[0], pair[1])
	}

	denied := [][2]string{
		{StatusPending, StatusSubmitted},
		{StatusPending, StatusFailed},
		{StatusSubmitted, StatusPending},
		{StatusSubmitted, StatusInFlight},
		{StatusSubmitted, StatusFailed},
		{StatusFailed, StatusInFlight},
		{StatusFailed, StatusSubmitted},
		{StatusInFlight, StatusPending},
	}
	for _, pair := range denied {
		assert.False(t, CanTransition(pair[0], pair[1]), "%s -> %s should be denied", pair[0], pair[1])
	}
}

func TestSubmittedIsTerminal(t *testing.T) {
	assert.True(t, Terminal(StatusSubmitted))
	assert.False(t, Terminal(StatusFailed))
	assert.False(t, Terminal(StatusPending))
	assert.False(t, Terminal(StatusInFlight))
}

func TestDeriveOverallStatus(t *testing.T) {
	mk := func(states ...string) []SubmissionTarget {
		targets := make([]SubmissionTarget, len(states))
		for i, s := range states {
			targets[i] = SubmissionTarget{TargetID: GenerateUUIDWithSuffix("tgt"), State: s}
		}
		return targets
	}

	tests := []struct {
		name    string
		targets []SubmissionTarget
		want    string
	}{
		{"no targets yet", nil, OverallInProgress},
		{"all submitted", mk(StatusSubmitted, StatusSubmitted), OverallAllSubmitted},
		{"all failed", mk(StatusFailed, StatusFailed, StatusFailed), OverallFailed},
		{"mixed outcome", mk(StatusSubmitted, StatusFailed), OverallPartial},
		{"pending leg keeps it in progress", mk(StatusSubmitted, StatusPending), OverallInProgress},
		{"in flight leg keeps it in progress", mk(StatusFailed, StatusInFlight), OverallInProgress},
		{"single submitted", mk(StatusSubmitted), OverallAllSubmitted},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveOverallStatus(tt.targets))
		})
	}
}

func TestSubmissionPaid(t *testing.T) {
	sub := FederatedSubmission{PaymentStatus: PaymentPending}
	assert.False(t, sub.Paid())

	sub.PaymentStatus = PaymentCompleted
	assert.True(t, sub.Paid())

	sub.PaymentStatus = PaymentWaived
	assert.True(t, sub.Paid())
}

func TestHashPayloadIsStable(t *testing.T) {
	sub := &FederatedSubmission{
		SubmissionID: "sub_1",
		LaunchURL:    "https://example.dev",
		LaunchName:   "Example",
		Category:     "devtools",
	}
	first := sub.HashPayload()
	second := sub.HashPayload()
	assert.Equal(t, first, second)
	assert.Len(t, first, 64)

	other := &FederatedSubmission{
		SubmissionID: "sub_2",
		LaunchURL:    "https://example.dev",
		LaunchName:   "Example",
		Category:     "devtools",
	}
	assert.NotEqual(t, first, other.HashPayload())
}
