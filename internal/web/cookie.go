// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

package web

import (
	"net/http"
	"time"
)

// CookieConfig describes the session cookie.
type CookieConfig struct {
	Name   string
	MaxAge time.Duration
	Secure bool
}

func (c CookieConfig) session(value string) *http.Cookie {
	return &http.Cookie{
		Name:     c.Name,
		Value:    value,
		Path:     "/",
		MaxAge:   int(c.MaxAge / time.Second),
		HttpOnly: true,
		Secure:   c.Secure,
		SameSite: http.SameSiteLaxMode,
	}
}

// expired returns a cookie that makes the client drop the session.
func (c CookieConfig) expired() *http.Cookie {
	cookie := c.session("")
	cookie.MaxAge = -1
	return cookie
}

// sessionID returns the session cookie value, or "" for anonymous requests.
func (c CookieConfig) sessionID(r *http.Request) string {
	cookie, err := r.Cookie(c.Name)
	if err != nil {
		return ""
	}
	return cookie.Value
}
