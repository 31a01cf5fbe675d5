// Copyright (c) 2024 Fantom Foundation
//
// Use of this software is governed by the Business Source License included
// in the LICENSE file and at fantom.foundation/bsl11.
//
// Change Date: 2028-4-16
//
// On the date above, in accordance with the Business Source License, use of
// this software will be governed by the GNU Lesser General Public License v3.

// Package kakarot is a generated GoMock package.
package kakarot

import (
	reflect "reflect"

	gomock "go.uber.org/mock/gomock"
)

// MockNativeLedger is a mock of NativeLedger interface.
type MockNativeLedger struct {
	ctrl     *gomock.Controller
	recorder *MockNativeLedgerMockRecorder
}

// MockNativeLedgerMockRecorder is the mock recorder for MockNativeLedger.
type MockNativeLedgerMockRecorder struct {
	mock *MockNativeLedger
}

// NewMockNativeLedger creates a new mock instance.
func NewMockNativeLedger(ctrl *gomock.Controller) *MockNativeLedger {
	mock := &MockNativeLedger{ctrl: ctrl}
	mock.recorder = &MockNativeLedgerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockNativeLedger) EXPECT() *MockNativeLedgerMockRecorder {
	return m.recorder
}

// Call mocks base method.
func (m *MockNativeLedger) Call(arg0 NativeCall) ([]Felt, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Call", arg0)
	ret0, _ := ret[0].([]Felt)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Call indicates an expected call of Call.
func (mr *MockNativeLedgerMockRecorder) Call(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Call", reflect.TypeOf((*MockNativeLedger)(nil).Call), arg0)
}

// Commit mocks base method.
func (m *MockNativeLedger) Commit(arg0 NativeSnapshot) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Commit", arg0)
}

// Commit indicates an expected call of Commit.
func (mr *MockNativeLedgerMockRecorder) Commit(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Commit", reflect.TypeOf((*MockNativeLedger)(nil).Commit), arg0)
}

// DeployAccount mocks base method.
func (m *MockNativeLedger) DeployAccount(arg0 Address, arg1 NativeAddress) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "DeployAccount", arg0, arg1)
	ret0, _ := ret[0].(error)
	return ret0
}

// DeployAccount indicates an expected call of DeployAccount.
func (mr *MockNativeLedgerMockRecorder) DeployAccount(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "DeployAccount", reflect.TypeOf((*MockNativeLedger)(nil).DeployAccount), arg0, arg1)
}

// IsDeployed mocks base method.
func (m *MockNativeLedger) IsDeployed(arg0 NativeAddress) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsDeployed", arg0)
	ret0, _ := ret[0].(bool)
	return ret0
}

// IsDeployed indicates an expected call of IsDeployed.
func (mr *MockNativeLedgerMockRecorder) IsDeployed(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsDeployed", reflect.TypeOf((*MockNativeLedger)(nil).IsDeployed), arg0)
}

// Rollback mocks base method.
func (m *MockNativeLedger) Rollback(arg0 NativeSnapshot) {
	m.ctrl.T.Helper()
	m.ctrl.Call(m, "Rollback", arg0)
}

// Rollback indicates an expected call of Rollback.
func (mr *MockNativeLedgerMockRecorder) Rollback(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Rollback", reflect.TypeOf((*MockNativeLedger)(nil).Rollback), arg0)
}

// SendMessageToL1 mocks base method.
func (m *MockNativeLedger) SendMessageToL1(arg0 Address, arg1 Felt, arg2 []Felt) error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "SendMessageToL1", arg0, arg1, arg2)
	ret0, _ := ret[0].(error)
	return ret0
}

// SendMessageToL1 indicates an expected call of SendMessageToL1.
func (mr *MockNativeLedgerMockRecorder) SendMessageToL1(arg0, arg1, arg2 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "SendMessageToL1", reflect.TypeOf((*MockNativeLedger)(nil).SendMessageToL1), arg0, arg1, arg2)
}

// Snapshot mocks base method.
func (m *MockNativeLedger) Snapshot() NativeSnapshot {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Snapshot")
	ret0, _ := ret[0].(NativeSnapshot)
	return ret0
}

// Snapshot indicates an expected call of Snapshot.
func (mr *MockNativeLedgerMockRecorder) Snapshot() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Snapshot", reflect.TypeOf((*MockNativeLedger)(nil).Snapshot))
}

// MockGuestCaller is a mock of GuestCaller interface.
type MockGuestCaller struct {
	ctrl     *gomock.Controller
	recorder *MockGuestCallerMockRecorder
}

// MockGuestCallerMockRecorder is the mock recorder for MockGuestCaller.
type MockGuestCallerMockRecorder struct {
	mock *MockGuestCaller
}

// NewMockGuestCaller creates a new mock instance.
func NewMockGuestCaller(ctrl *gomock.Controller) *MockGuestCaller {
	mock := &MockGuestCaller{ctrl: ctrl}
	mock.recorder = &MockGuestCallerMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockGuestCaller) EXPECT() *MockGuestCallerMockRecorder {
	return m.recorder
}

// CallGuest mocks base method.
func (m *MockGuestCaller) CallGuest(arg0 CallKind, arg1 CallParameters) (CallResult, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "CallGuest", arg0, arg1)
	ret0, _ := ret[0].(CallResult)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// CallGuest indicates an expected call of CallGuest.
func (mr *MockGuestCallerMockRecorder) CallGuest(arg0, arg1 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "CallGuest", reflect.TypeOf((*MockGuestCaller)(nil).CallGuest), arg0, arg1)
}

// MockAddressMapper is a mock of AddressMapper interface.
type MockAddressMapper struct {
	ctrl     *gomock.Controller
	recorder *MockAddressMapperMockRecorder
}

// MockAddressMapperMockRecorder is the mock recorder for MockAddressMapper.
type MockAddressMapperMockRecorder struct {
	mock *MockAddressMapper
}

// NewMockAddressMapper creates a new mock instance.
func NewMockAddressMapper(ctrl *gomock.Controller) *MockAddressMapper {
	mock := &MockAddressMapper{ctrl: ctrl}
	mock.recorder = &MockAddressMapperMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAddressMapper) EXPECT() *MockAddressMapperMockRecorder {
	return m.recorder
}

// NativeAddressOf mocks base method.
func (m *MockAddressMapper) NativeAddressOf(arg0 Address) NativeAddress {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "NativeAddressOf", arg0)
	ret0, _ := ret[0].(NativeAddress)
	return ret0
}

// NativeAddressOf indicates an expected call of NativeAddressOf.
func (mr *MockAddressMapperMockRecorder) NativeAddressOf(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "NativeAddressOf", reflect.TypeOf((*MockAddressMapper)(nil).NativeAddressOf), arg0)
}

// MockAuthorizedCallers is a mock of AuthorizedCallers interface.
type MockAuthorizedCallers struct {
	ctrl     *gomock.Controller
	recorder *MockAuthorizedCallersMockRecorder
}

// MockAuthorizedCallersMockRecorder is the mock recorder for MockAuthorizedCallers.
type MockAuthorizedCallersMockRecorder struct {
	mock *MockAuthorizedCallers
}

// NewMockAuthorizedCallers creates a new mock instance.
func NewMockAuthorizedCallers(ctrl *gomock.Controller) *MockAuthorizedCallers {
	mock := &MockAuthorizedCallers{ctrl: ctrl}
	mock.recorder = &MockAuthorizedCallersMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockAuthorizedCallers) EXPECT() *MockAuthorizedCallersMockRecorder {
	return m.recorder
}

// IsAuthorized mocks base method.
func (m *MockAuthorizedCallers) IsAuthorized(arg0 Address) bool {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "IsAuthorized", arg0)
	ret0, _ := ret[0].(bool)
	return ret0
}

// IsAuthorized indicates an expected call of IsAuthorized.
func (mr *MockAuthorizedCallersMockRecorder) IsAuthorized(arg0 any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "IsAuthorized", reflect.TypeOf((*MockAuthorizedCallers)(nil).IsAuthorized), arg0)
}
