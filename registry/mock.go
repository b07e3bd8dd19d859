package registry

import (
	"context"

	"github.com/ruteri/audit-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRegistry mocks the interfaces.RecordRegistry interface
type MockRegistry struct {
	mock.Mock
}

// CreateRecord mocks the CreateRecord method
func (m *MockRegistry) CreateRecord(ctx context.Context, caller interfaces.OwnerID, version uint64) (*interfaces.Record, error) {
	args := m.Called(ctx, caller, version)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Record), args.Error(1)
}

// UpdateRecord mocks the UpdateRecord method
func (m *MockRegistry) UpdateRecord(ctx context.Context, caller interfaces.OwnerID, payload interfaces.MetadataInput) error {
	args := m.Called(ctx, caller, payload)
	return args.Error(0)
}

// UpdateRecordOf mocks the UpdateRecordOf method
func (m *MockRegistry) UpdateRecordOf(ctx context.Context, caller, owner interfaces.OwnerID, payload interfaces.MetadataInput) error {
	args := m.Called(ctx, caller, owner, payload)
	return args.Error(0)
}

// GetRecord mocks the GetRecord method
func (m *MockRegistry) GetRecord(ctx context.Context, owner interfaces.OwnerID) (*interfaces.Record, error) {
	args := m.Called(ctx, owner)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Record), args.Error(1)
}

// DeriveAddress mocks the DeriveAddress method
func (m *MockRegistry) DeriveAddress(owner interfaces.OwnerID) (interfaces.RecordAddress, uint8, error) {
	args := m.Called(owner)
	return args.Get(0).(interfaces.RecordAddress), args.Get(1).(uint8), args.Error(2)
}
