// Copyright 2025 Sonic Labs
// This file is part of Owl GPU Leakage Analyzer
//
// Owl is free software: you can redistribute it and/or modify
// it under the terms of the GNU Lesser General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
//
// Owl is distributed in the hope that it will be useful,
// but WITHOUT ANY WARRANTY; without even the implied warranty of
// MERCHANTABILITY or FITNESS FOR A PARTICULAR PURPOSE. See the
// GNU Lesser General Public License for more details.
//
// You should have received a copy of the GNU Lesser General Public License
// along with Owl. If not, see <http://www.gnu.org/licenses/>.

// Package leakdb is a generated GoMock package.
package leakdb

import (
	reflect "reflect"

	report "github.com/0xsoniclabs/owl/report"
	gomock "go.uber.org/mock/gomock"
)

// MockLeakDB is a mock of LeakDB interface.
type MockLeakDB struct {
	ctrl     *gomock.Controller
	recorder *MockLeakDBMockRecorder
	isgomock struct{}
}

// MockLeakDBMockRecorder is the mock recorder for MockLeakDB.
type MockLeakDBMockRecorder struct {
	mock *MockLeakDB
}

// NewMockLeakDB creates a new mock instance.
func NewMockLeakDB(ctrl *gomock.Controller) *MockLeakDB {
	mock := &MockLeakDB{ctrl: ctrl}
	mock.recorder = &MockLeakDBMockRecorder{mock}
	return mock
}

// EXPECT returns an object that allows the caller to indicate expected use.
func (m *MockLeakDB) EXPECT() *MockLeakDBMockRecorder {
	return m.recorder
}

// Close mocks base method.
func (m *MockLeakDB) Close() error {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Close")
	ret0, _ := ret[0].(error)
	return ret0
}

// Close indicates an expected call of Close.
func (mr *MockLeakDBMockRecorder) Close() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Close", reflect.TypeOf((*MockLeakDB)(nil).Close))
}

// Load mocks base method.
func (m *MockLeakDB) Load(id int64) (*report.Report, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Load", id)
	ret0, _ := ret[0].(*report.Report)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Load indicates an expected call of Load.
func (mr *MockLeakDBMockRecorder) Load(id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Load", reflect.TypeOf((*MockLeakDB)(nil).Load), id)
}

// Run mocks base method.
func (m *MockLeakDB) Run(id int64) (Run, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Run", id)
	ret0, _ := ret[0].(Run)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Run indicates an expected call of Run.
func (mr *MockLeakDBMockRecorder) Run(id any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Run", reflect.TypeOf((*MockLeakDB)(nil).Run), id)
}

// Runs mocks base method.
func (m *MockLeakDB) Runs() ([]Run, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Runs")
	ret0, _ := ret[0].([]Run)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Runs indicates an expected call of Runs.
func (mr *MockLeakDBMockRecorder) Runs() *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Runs", reflect.TypeOf((*MockLeakDB)(nil).Runs))
}

// Save mocks base method.
func (m *MockLeakDB) Save(run Run, r *report.Report) (int64, error) {
	m.ctrl.T.Helper()
	ret := m.ctrl.Call(m, "Save", run, r)
	ret0, _ := ret[0].(int64)
	ret1, _ := ret[1].(error)
	return ret0, ret1
}

// Save indicates an expected call of Save.
func (mr *MockLeakDBMockRecorder) Save(run, r any) *gomock.Call {
	mr.mock.ctrl.T.Helper()
	return mr.mock.ctrl.RecordCallWithMethodType(mr.mock, "Save", reflect.TypeOf((*MockLeakDB)(nil).Save), run, r)
}
