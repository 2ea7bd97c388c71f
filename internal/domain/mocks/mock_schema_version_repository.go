package mocks

import (
	"context"
	"database/sql"
	"reflect"
	"time"

	"github.com/Notifuse/extfields/internal/domain"
	"github.com/golang/mock/gomock"
)

// MockSchemaVersionRepository is a mock of SchemaVersionRepository interface
type MockSchemaVersionRepository struct {
	ctrl     *gomock.Controller
	recorder *MockSchemaVersionRepositoryMockRecorder
}

// MockSchemaVersionRepositoryMockRecorder is the mock recorder for MockSchemaVersionRepository
type MockSchemaVersionRepositoryMockRecorder struct {
	mock *MockSchemaVersionRepository
}

// NewMockSchemaVersionRepository creates a new mock instance
func NewMockSchemaVersionRepository(ctrl *gomock.Controller) *MockSchemaVersionRepository {
	mock := &MockSchemaVersionRepository{ctrl: ctrl}
	mock.recorder = &MockSchemaVersionRepositoryMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use
func (m *MockSchemaVersionRepository) EXPECT() *MockSchemaVersionRepositoryMockRecorder {
	return m.recorder
}

// GetVersion mocks base method
func (m *MockSchemaVersionRepository) GetVersion(ctx context.Context) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "GetVersion", ctx)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// GetVersion indicates an expected call of GetVersion
func (mr *MockSchemaVersionRepositoryMockRecorder) GetVersion(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "GetVersion", reflect.TypeOf((*MockSchemaVersionRepository)(nil).GetVersion), ctx)
}

// Get mocks base method
func (m *MockSchemaVersionRepository) Get(ctx context.Context) (*domain.SchemaVersion, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Get", ctx)
	ret0, _ := ret[0].(*domain.SchemaVersion)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Get indicates an expected call of Get
func (mr *MockSchemaVersionRepositoryMockRecorder) Get(ctx interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Get", reflect.TypeOf((*MockSchemaVersionRepository)(nil).Get), ctx)
}

// IncrementTx mocks base method
func (m *MockSchemaVersionRepository) IncrementTx(ctx context.Context, tx *sql.Tx, modifiedBy string, modifiedAt time.Time) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IncrementTx", ctx, tx, modifiedBy, modifiedAt)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// IncrementTx indicates an expected call of IncrementTx
func (mr *MockSchemaVersionRepositoryMockRecorder) IncrementTx(ctx, tx, modifiedBy, modifiedAt interface{}) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IncrementTx", reflect.TypeOf((*MockSchemaVersionRepository)(nil).IncrementTx), ctx, tx, modifiedBy, modifiedAt)
}
