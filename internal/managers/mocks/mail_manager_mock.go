package mocks

import "github.com/stretchr/testify/mock"

// MockMailManager records every notification instead of sending it.
type MockMailManager struct {
	mock.Mock
}

func (m *MockMailManager) SendVerificationMail(email, name, link string) error {
	args := m.Called(email, name, link)
	return args.Error(0)
}

func (m *MockMailManager) SendPasswordResetMail(email, name, link string) error {
	args := m.Called(email, name, link)
	return args.Error(0)
}

func (m *MockMailManager) SendEmailChangeMail(email, name, link string) error {
	args := m.Called(email, name, link)
	return args.Error(0)
}

func (m *MockMailManager) SendPasswordChangedMail(email, name string) error {
	args := m.Called(email, name)
	return args.Error(0)
}

// NewPermissiveMailManager returns a mock that accepts every mail.
func NewPermissiveMailManager() *MockMailManager {
	m := &MockMailManager{}
	m.On("SendVerificationMail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("SendPasswordResetMail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("SendEmailChangeMail", mock.Anything, mock.Anything, mock.Anything).Return(nil)
	m.On("SendPasswordChangedMail", mock.Anything, mock.Anything).Return(nil)
	return m
}
