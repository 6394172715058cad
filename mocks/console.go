// Package mocks provides testify mocks for the tool-facing bridge
// surface.
package mocks

import (
	"github.com/octofhir/console-lsp/editor"
	"github.com/octofhir/console-lsp/mcpserver/tools"

	"github.com/stretchr/testify/mock"
)

// MockConsole mocks tools.ConsoleBridge.
type MockConsole struct {
	mock.Mock
}

func (m *MockConsole) Status() tools.Status {
	args := m.Called()
	return args.Get(0).(tools.Status)
}

func (m *MockConsole) OpenDocument(language, name, text string) (string, error) {
	args := m.Called(language, name, text)
	return args.String(0), args.Error(1)
}

func (m *MockConsole) UpdateDocument(uri, text string) error {
	args := m.Called(uri, text)
	return args.Error(0)
}

func (m *MockConsole) CloseDocument(uri string) error {
	args := m.Called(uri)
	return args.Error(0)
}

func (m *MockConsole) Completion(uri string, line, character uint32, trigger string) (editor.CompletionList, error) {
	args := m.Called(uri, line, character, trigger)
	return args.Get(0).(editor.CompletionList), args.Error(1)
}

func (m *MockConsole) Hover(uri string, line, character uint32) (*editor.Hover, error) {
	args := m.Called(uri, line, character)
	var h *editor.Hover
	if v := args.Get(0); v != nil {
		h = v.(*editor.Hover)
	}
	return h, args.Error(1)
}

func (m *MockConsole) FormatDocument(uri string, tabSize uint32, insertSpaces bool) ([]editor.TextEdit, error) {
	args := m.Called(uri, tabSize, insertSpaces)
	var edits []editor.TextEdit
	if v := args.Get(0); v != nil {
		edits = v.([]editor.TextEdit)
	}
	return edits, args.Error(1)
}

func (m *MockConsole) Diagnostics(uri string) ([]editor.Marker, error) {
	args := m.Called(uri)
	var markers []editor.Marker
	if v := args.Get(0); v != nil {
		markers = v.([]editor.Marker)
	}
	return markers, args.Error(1)
}

var _ tools.ConsoleBridge = (*MockConsole)(nil)
