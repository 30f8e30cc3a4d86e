// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package auth provides account registration, credential verification,
// cookie sessions and password resets for Threadboard.
//
// # Domain Types
//
// User is a plain record; persistence lives behind the UserRepository
// interface. Sessions and reset tokens are opaque strings managed by
// SessionStore and ResetTokenStore, whose implementations own expiry.
//
// # Services
//
// Service composes the repositories, the password hasher and the mailer:
//   - Register, Login - validate input and open a session
//   - Logout, WhoAmI - destroy and resolve sessions
//   - ForgotPassword, ChangePassword - single-use reset token flow
//
// Expected failures (bad input, duplicate accounts, wrong credentials,
// spent tokens) come back as FieldError values. Unexpected storage failures
// are logged and produce an empty UserResponse.
package auth
