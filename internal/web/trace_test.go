// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package web_test

import (
	"context"

	"go.opentelemetry.io/otel/trace"
)

func traceIDFrom(ctx context.Context) string {
	sc := trace.SpanContextFromContext(ctx)
	if !sc.HasTraceID() {
		return ""
	}
	return sc.TraceID().String()
}
