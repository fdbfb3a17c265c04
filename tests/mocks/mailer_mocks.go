package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"github.com/veltamail/veltamail-backend/internal/mailer"
)

// MockMailer implements mailer.Mailer
type MockMailer struct {
	mock.Mock
}

// Send submits an outbound message
func (m *MockMailer) Send(ctx context.Context, msg *mailer.Message) (*mailer.Receipt, error) {
	args := m.Called(ctx, msg)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*mailer.Receipt), args.Error(1)
}

// Close terminates the relay connection
func (m *MockMailer) Close() error {
	args := m.Called()
	return args.Error(0)
}
