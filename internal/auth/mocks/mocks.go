// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Threadboard Contributors

// Package mocks provides testify mocks for the auth interfaces.
package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"

	"github.com/threadboard/threadboard/internal/auth"
)

type testingT interface {
	mock.TestingT
	Cleanup(func())
}

// MockUserRepository is a mock implementation of auth.UserRepository.
type MockUserRepository struct {
	mock.Mock
}

// NewMockUserRepository creates a MockUserRepository whose expectations are
// asserted when the test ends.
func NewMockUserRepository(t testingT) *MockUserRepository {
	m := &MockUserRepository{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockUserRepository) Create(ctx context.Context, username, email, passwordHash string) (*auth.User, error) {
	ret := m.Called(ctx, username, email, passwordHash)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	ret := m.Called(ctx, id)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) GetByUsername(ctx context.Context, username string) (*auth.User, error) {
	ret := m.Called(ctx, username)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	ret := m.Called(ctx, email)
	user, _ := ret.Get(0).(*auth.User)
	return user, ret.Error(1)
}

func (m *MockUserRepository) UpdatePassword(ctx context.Context, id int64, passwordHash string) error {
	ret := m.Called(ctx, id, passwordHash)
	return ret.Error(0)
}

// MockSessionStore is a mock implementation of auth.SessionStore.
type MockSessionStore struct {
	mock.Mock
}

// NewMockSessionStore creates a MockSessionStore whose expectations are
// asserted when the test ends.
func NewMockSessionStore(t testingT) *MockSessionStore {
	m := &MockSessionStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockSessionStore) Create(ctx context.Context, userID int64) (string, error) {
	ret := m.Called(ctx, userID)
	return ret.String(0), ret.Error(1)
}

func (m *MockSessionStore) Get(ctx context.Context, sessionID string) (int64, error) {
	ret := m.Called(ctx, sessionID)
	id, _ := ret.Get(0).(int64)
	return id, ret.Error(1)
}

func (m *MockSessionStore) Destroy(ctx context.Context, sessionID string) error {
	ret := m.Called(ctx, sessionID)
	return ret.Error(0)
}

// MockResetTokenStore is a mock implementation of auth.ResetTokenStore.
type MockResetTokenStore struct {
	mock.Mock
}

// NewMockResetTokenStore creates a MockResetTokenStore whose expectations are
// asserted when the test ends.
func NewMockResetTokenStore(t testingT) *MockResetTokenStore {
	m := &MockResetTokenStore{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockResetTokenStore) Issue(ctx context.Context, userID int64) (string, error) {
	ret := m.Called(ctx, userID)
	return ret.String(0), ret.Error(1)
}

func (m *MockResetTokenStore) Consume(ctx context.Context, token string) (int64, error) {
	ret := m.Called(ctx, token)
	id, _ := ret.Get(0).(int64)
	return id, ret.Error(1)
}

// MockPasswordHasher is a mock implementation of auth.PasswordHasher.
type MockPasswordHasher struct {
	mock.Mock
}

// NewMockPasswordHasher creates a MockPasswordHasher whose expectations are
// asserted when the test ends.
func NewMockPasswordHasher(t testingT) *MockPasswordHasher {
	m := &MockPasswordHasher{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockPasswordHasher) Hash(password string) (string, error) {
	ret := m.Called(password)
	return ret.String(0), ret.Error(1)
}

func (m *MockPasswordHasher) Verify(password, hash string) bool {
	ret := m.Called(password, hash)
	return ret.Bool(0)
}

// MockMailer is a mock implementation of auth.Mailer.
type MockMailer struct {
	mock.Mock
}

// NewMockMailer creates a MockMailer whose expectations are asserted when the
// test ends.
func NewMockMailer(t testingT) *MockMailer {
	m := &MockMailer{}
	m.Mock.Test(t)
	t.Cleanup(func() { m.AssertExpectations(t) })
	return m
}

func (m *MockMailer) Send(ctx context.Context, to, htmlBody string) error {
	ret := m.Called(ctx, to, htmlBody)
	return ret.Error(0)
}

var (
	_ auth.UserRepository  = (*MockUserRepository)(nil)
	_ auth.SessionStore    = (*MockSessionStore)(nil)
	_ auth.ResetTokenStore = (*MockResetTokenStore)(nil)
	_ auth.PasswordHasher  = (*MockPasswordHasher)(nil)
	_ auth.Mailer          = (*MockMailer)(nil)
)
