// Package mocks holds testify mocks for the repository interfaces.
package mocks

import (
	"context"

	"collabcore/internal/collab/model"

	"github.com/stretchr/testify/mock"
)

// MockEventSource is a shared mock implementation of repository.EventSource.
type MockEventSource struct {
	mock.Mock
}

func (m *MockEventSource) QueryAuditRecords(ctx context.Context, filter model.SourceFilter, limit int) ([]*model.AuditRecord, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.AuditRecord), args.Error(1)
}

func (m *MockEventSource) QueryRooms(ctx context.Context, filter model.SourceFilter, limit int) ([]*model.Room, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Room), args.Error(1)
}

func (m *MockEventSource) QueryMessages(ctx context.Context, filter model.SourceFilter, limit int) ([]*model.Message, error) {
	args := m.Called(ctx, filter, limit)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*model.Message), args.Error(1)
}

func (m *MockEventSource) FindAuditRecord(ctx context.Context, recordID string) (*model.AuditRecord, error) {
	args := m.Called(ctx, recordID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.AuditRecord), args.Error(1)
}

func (m *MockEventSource) FindRoom(ctx context.Context, roomID string) (*model.Room, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *MockEventSource) FindMessage(ctx context.Context, messageID string) (*model.Message, error) {
	args := m.Called(ctx, messageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Message), args.Error(1)
}

// MockAuditSink is a shared mock implementation of repository.AuditSink.
type MockAuditSink struct {
	mock.Mock
}

func (m *MockAuditSink) Append(ctx context.Context, record *model.AuditRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}
