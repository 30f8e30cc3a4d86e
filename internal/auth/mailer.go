// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package auth

import "context"

// Mailer delivers HTML email. Delivery is best effort.
type Mailer interface {
	Send(ctx context.Context, to, htmlBody string) error
}

// MetricsRecorder counts auth operation outcomes.
type MetricsRecorder interface {
	RecordAuthOutcome(operation, outcome string)
}

// Operation outcomes reported to MetricsRecorder.
const (
	OutcomeSuccess    = "success"
	OutcomeFieldError = "field_error"
	OutcomeFailure    = "failure"
)

type noopMetrics struct{}

func (noopMetrics) RecordAuthOutcome(string, string) {}
