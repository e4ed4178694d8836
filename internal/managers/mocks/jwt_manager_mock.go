package mocks

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/mock"
	"server-identity/internal/managers"
)

// MockJwtManager is a mock of the JWTManager, used to simulate signing failures in tests.
type MockJwtManager struct {
	mock.Mock
}

// GenerateJWT returns a mock JWT string and an optional error.
func (m *MockJwtManager) GenerateJWT(subject managers.BearerSubject, isRefreshToken bool) (string, error) {
	args := m.Called(subject, isRefreshToken)
	return args.String(0), args.Error(1)
}

// ValidateJWT returns mock JWT claims and an optional error.
func (m *MockJwtManager) ValidateJWT(tokenString string) (jwt.MapClaims, error) {
	args := m.Called(tokenString)
	claims, _ := args.Get(0).(jwt.MapClaims)
	return claims, args.Error(1)
}
