package mocks

import (
	"context"
	"reflect"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/golang/mock/gomock"
)

// MockEntityRecordRepository is a mock of EntityRecordRepository interface
type MockEntityRecordRepository struct {
	ctrl     *gomock.Controller
	recorder *MockEntityRecordRepositoryMockRecorder
}

// MockEntityRecordRepositoryMockRecorder is the mock recorder for MockEntityRecordRepository
type MockEntityRecordRepositoryMockRecorder struct {
	mock *MockEntityRecordRepository
}

// NewMockEntityRecordRepository creates a new mock instance
func NewMockEntityRecordRepository(ctrl *gomock.Controller) *MockEntityRecordRepository {
	mock := &MockEntityRecordRepository{ctrl: ctrl}
	mock.recorder = &MockEntityRecordRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockEntityRecordRepository) EXPECT() *MockEntityRecordRepositoryMockRecorder {
	return m.recorder
}

// Get mocks base method
func (m *MockEntityRecordRepository) Get(ctx context.Context, entity *domain.EntityMetadata, id interface{}) (*domain.Record, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx, entity, id)
	ret0, _ := ret[0].(*domain.Record)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get
func (mr *MockEntityRecordRepositoryMockRecorder) Get(ctx, entity, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockEntityRecordRepository)(nil).Get), ctx, entity, id)
}

// Insert mocks base method
func (m *MockEntityRecordRepository) Insert(ctx context.Context, entity *domain.EntityMetadata, record *domain.Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Insert", ctx, entity, record)
	ret0, _ := ret[0].(error)
	return ret0
}

// Insert indicates an expected call of Insert
func (mr *MockEntityRecordRepositoryMockRecorder) Insert(ctx, entity, record interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Insert", reflect.TypeOf((*MockEntityRecordRepository)(nil).Insert), ctx, entity, record)
}

// Update mocks base method
func (m *MockEntityRecordRepository) Update(ctx context.Context, entity *domain.EntityMetadata, record *domain.Record) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Update", ctx, entity, record)
	ret0, _ := ret[0].(error)
	return ret0
}

// Update indicates an expected call of Update
func (mr *MockEntityRecordRepositoryMockRecorder) Update(ctx, entity, record interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Update", reflect.TypeOf((*MockEntityRecordRepository)(nil).Update), ctx, entity, record)
}
