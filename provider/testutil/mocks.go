package testutil

import (
	"context"
	"sync"

	"pixie/model"
)

// MockProvider implements model.Provider for testing. Every call is recorded
// so tests can assert on the exact request that reached the provider.
type MockProvider struct {
	// Configurable responses
	GenerateFunc func(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error)
	PingFunc     func(ctx context.Context) error

	// State
	currentModel string
	name         string

	mu    sync.Mutex
	calls []model.GenerateRequest
}

// NewMockProvider creates a mock provider that answers "Mock response".
func NewMockProvider(modelName string) *MockProvider {
	mock := &MockProvider{
		currentModel: modelName,
		name:         "mock",
	}
	mock.GenerateFunc = mock.defaultGenerate
	mock.PingFunc = mock.defaultPing
	return mock
}

// NewScriptedProvider returns a mock that answers successive calls with the
// given responses in order, repeating the last one once exhausted.
func NewScriptedProvider(responses ...Response) *MockProvider {
	mock := NewMockProvider("mock-model")
	var (
		mu sync.Mutex
		i  int
	)
	mock.GenerateFunc = func(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
		mu.Lock()
		defer mu.Unlock()
		if len(responses) == 0 {
			return "", model.Usage{}, nil
		}
		r := responses[min(i, len(responses)-1)]
		i++
		return r.Text, r.Usage, r.Err
	}
	return mock
}

// Response is one scripted provider answer.
type Response struct {
	Text  string
	Usage model.Usage
	Err   error
}

func (m *MockProvider) defaultGenerate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	return "Mock response", model.Usage{InputTokens: 10, OutputTokens: 2, FinishReason: model.FinishStop}, nil
}

func (m *MockProvider) defaultPing(ctx context.Context) error {
	return nil
}

func (m *MockProvider) Generate(ctx context.Context, req model.GenerateRequest) (string, model.Usage, error) {
	m.mu.Lock()
	m.calls = append(m.calls, req)
	m.mu.Unlock()
	return m.GenerateFunc(ctx, req)
}

// Calls returns a copy of every request received so far.
func (m *MockProvider) Calls() []model.GenerateRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.GenerateRequest(nil), m.calls...)
}

// LastCall returns the most recent request. It panics when there was none.
func (m *MockProvider) LastCall() model.GenerateRequest {
	calls := m.Calls()
	return calls[len(calls)-1]
}

func (m *MockProvider) GetModel() string {
	return m.currentModel
}

func (m *MockProvider) Name() string {
	return m.name
}

// WithName sets the value returned by Name.
func (m *MockProvider) WithName(name string) *MockProvider {
	m.name = name
	return m
}

func (m *MockProvider) Ping(ctx context.Context) error {
	return m.PingFunc(ctx)
}
