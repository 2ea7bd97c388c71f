package mocks

import (
	"context"
	"database/sql"
	"reflect"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/golang/mock/gomock"
)

// MockColumnRepository is a mock of ColumnRepository interface
type MockColumnRepository struct {
	ctrl     *gomock.Controller
	recorder *MockColumnRepositoryMockRecorder
}

// MockColumnRepositoryMockRecorder is the mock recorder for MockColumnRepository
type MockColumnRepositoryMockRecorder struct {
	mock *MockColumnRepository
}

// NewMockColumnRepository creates a new mock instance
func NewMockColumnRepository(ctrl *gomock.Controller) *MockColumnRepository {
	mock := &MockColumnRepository{ctrl: ctrl}
	mock.recorder = &MockColumnRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockColumnRepository) EXPECT() *MockColumnRepositoryMockRecorder {
	return m.recorder
}

// AddColumnTx mocks base method
func (m *MockColumnRepository) AddColumnTx(ctx context.Context, tx *sql.Tx, entity domain.EntityType, column string, columnType string) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "AddColumnTx", ctx, tx, entity, column, columnType)
	ret0, _ := ret[0].(error)
	return ret0
}

// AddColumnTx indicates an expected call of AddColumnTx
func (mr *MockColumnRepositoryMockRecorder) AddColumnTx(ctx, tx, entity, column, columnType interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "AddColumnTx", reflect.TypeOf((*MockColumnRepository)(nil).AddColumnTx), ctx, tx, entity, column, columnType)
}

// ListColumns mocks base method
func (m *MockColumnRepository) ListColumns(ctx context.Context, entity domain.EntityType) ([]domain.PhysicalColumn, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListColumns", ctx, entity)
	ret0, _ := ret[0].([]domain.PhysicalColumn)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListColumns indicates an expected call of ListColumns
func (mr *MockColumnRepositoryMockRecorder) ListColumns(ctx, entity interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListColumns", reflect.TypeOf((*MockColumnRepository)(nil).ListColumns), ctx, entity)
}
