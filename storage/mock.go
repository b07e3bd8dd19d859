package storage

import (
	"context"

	"github.com/ruteri/audit-registry/interfaces"
	"github.com/stretchr/testify/mock"
)

// MockRecordStore mocks the interfaces.RecordStore interface
type MockRecordStore struct {
	mock.Mock
	StoreName string
}

// Get mocks the Get method
func (m *MockRecordStore) Get(ctx context.Context, addr interfaces.RecordAddress) (*interfaces.Record, error) {
	args := m.Called(ctx, addr)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*interfaces.Record), args.Error(1)
}

// Create mocks the Create method
func (m *MockRecordStore) Create(ctx context.Context, rec *interfaces.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// Put mocks the Put method
func (m *MockRecordStore) Put(ctx context.Context, rec *interfaces.Record) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

// Available mocks the Available method
func (m *MockRecordStore) Available(ctx context.Context) bool {
	args := m.Called(ctx)
	return args.Bool(0)
}

func (m *MockRecordStore) Name() string {
	return m.StoreName
}

func (m *MockRecordStore) LocationURI() string {
	return "mock://" + m.StoreName
}
