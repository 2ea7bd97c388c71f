package mocks

import (
	"context"
	"database/sql"
	"reflect"
	"time"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/golang/mock/gomock"
)

// MockCustomFieldRepository is a mock of CustomFieldRepository interface
type MockCustomFieldRepository struct {
	ctrl     *gomock.Controller
	recorder *MockCustomFieldRepositoryMockRecorder
}

// MockCustomFieldRepositoryMockRecorder is the mock recorder for MockCustomFieldRepository
type MockCustomFieldRepositoryMockRecorder struct {
	mock *MockCustomFieldRepository
}

// NewMockCustomFieldRepository creates a new mock instance
func NewMockCustomFieldRepository(ctrl *gomock.Controller) *MockCustomFieldRepository {
	mock := &MockCustomFieldRepository{ctrl: ctrl}
	mock.recorder = &MockCustomFieldRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockCustomFieldRepository) EXPECT() *MockCustomFieldRepositoryMockRecorder {
	return m.recorder
}

// WithTransaction mocks base method
func (m *MockCustomFieldRepository) WithTransaction(ctx context.Context, fn func(*sql.Tx) error) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "WithTransaction", ctx, fn)
	ret0, _ := ret[0].(error)
	return ret0
}

// WithTransaction indicates an expected call of WithTransaction
func (mr *MockCustomFieldRepositoryMockRecorder) WithTransaction(ctx, fn interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "WithTransaction", reflect.TypeOf((*MockCustomFieldRepository)(nil).WithTransaction), ctx, fn)
}

// CreateTx mocks base method
func (m *MockCustomFieldRepository) CreateTx(ctx context.Context, tx *sql.Tx, field *domain.FieldDefinition) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CreateTx", ctx, tx, field)
	ret0, _ := ret[0].(error)
	return ret0
}

// CreateTx indicates an expected call of CreateTx
func (mr *MockCustomFieldRepositoryMockRecorder) CreateTx(ctx, tx, field interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CreateTx", reflect.TypeOf((*MockCustomFieldRepository)(nil).CreateTx), ctx, tx, field)
}

// GetActiveByIDTx mocks base method
func (m *MockCustomFieldRepository) GetActiveByIDTx(ctx context.Context, tx *sql.Tx, id string) (*domain.FieldDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetActiveByIDTx", ctx, tx, id)
	ret0, _ := ret[0].(*domain.FieldDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetActiveByIDTx indicates an expected call of GetActiveByIDTx
func (mr *MockCustomFieldRepositoryMockRecorder) GetActiveByIDTx(ctx, tx, id interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetActiveByIDTx", reflect.TypeOf((*MockCustomFieldRepository)(nil).GetActiveByIDTx), ctx, tx, id)
}

// SoftDeleteTx mocks base method
func (m *MockCustomFieldRepository) SoftDeleteTx(ctx context.Context, tx *sql.Tx, id string, deletedAt time.Time) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SoftDeleteTx", ctx, tx, id, deletedAt)
	ret0, _ := ret[0].(error)
	return ret0
}

// SoftDeleteTx indicates an expected call of SoftDeleteTx
func (mr *MockCustomFieldRepositoryMockRecorder) SoftDeleteTx(ctx, tx, id, deletedAt interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SoftDeleteTx", reflect.TypeOf((*MockCustomFieldRepository)(nil).SoftDeleteTx), ctx, tx, id, deletedAt)
}

// FindByColumn mocks base method
func (m *MockCustomFieldRepository) FindByColumn(ctx context.Context, entityType string, columnName string) ([]*domain.FieldDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "FindByColumn", ctx, entityType, columnName)
	ret0, _ := ret[0].([]*domain.FieldDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// FindByColumn indicates an expected call of FindByColumn
func (mr *MockCustomFieldRepositoryMockRecorder) FindByColumn(ctx, entityType, columnName interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "FindByColumn", reflect.TypeOf((*MockCustomFieldRepository)(nil).FindByColumn), ctx, entityType, columnName)
}

// List mocks base method
func (m *MockCustomFieldRepository) List(ctx context.Context, entityType string, includeDeleted bool) ([]*domain.FieldDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "List", ctx, entityType, includeDeleted)
	ret0, _ := ret[0].([]*domain.FieldDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// List indicates an expected call of List
func (mr *MockCustomFieldRepositoryMockRecorder) List(ctx, entityType, includeDeleted interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "List", reflect.TypeOf((*MockCustomFieldRepository)(nil).List), ctx, entityType, includeDeleted)
}

// ListAll mocks base method
func (m *MockCustomFieldRepository) ListAll(ctx context.Context, includeDeleted bool) ([]*domain.FieldDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "ListAll", ctx, includeDeleted)
	ret0, _ := ret[0].([]*domain.FieldDefinition)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// ListAll indicates an expected call of ListAll
func (mr *MockCustomFieldRepositoryMockRecorder) ListAll(ctx, includeDeleted interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "ListAll", reflect.TypeOf((*MockCustomFieldRepository)(nil).ListAll), ctx, includeDeleted)
}

// Snapshot mocks base method
func (m *MockCustomFieldRepository) Snapshot(ctx context.Context) (int64, []*domain.FieldDefinition, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Snapshot", ctx)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].([]*domain.FieldDefinition)
	ret2, _ := ret[2].(error)
	return ret0, ret1, ret2
}

// Snapshot indicates an expected call of Snapshot
func (mr *MockCustomFieldRepositoryMockRecorder) Snapshot(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Snapshot", reflect.TypeOf((*MockCustomFieldRepository)(nil).Snapshot), ctx)
}
