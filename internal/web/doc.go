// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package web exposes the auth operations as a JSON API over HTTP.
//
// Routes live under /auth. The session travels in an HttpOnly cookie; the
// handlers translate between that cookie and the opaque session ids the
// auth service deals in. Each request is tagged with a ULID request id and
// an OpenTelemetry span before it reaches a handler.
package web
