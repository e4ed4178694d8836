package mocks

import (
	"context"

	"github.com/stretchr/testify/mock"
	"server-identity/internal/interfaces"
)

// MockDatabaseManager is a testify mock of managers.DatabaseMgr.
type MockDatabaseManager struct {
	mock.Mock
}

func (m *MockDatabaseManager) GetPool() interfaces.PgxPoolIface {
	args := m.Called()
	return args.Get(0).(interfaces.PgxPoolIface)
}

func (m *MockDatabaseManager) Healthy(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}
