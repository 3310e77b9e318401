package sheets

import (
	"context"
	"sync"
)

// MockValues is a scripted ValuesGetter for tests. Each call consumes the
// next entry of Errors, then returns Values.
type MockValues struct {
	Values [][]any
	Errors []error
	Calls  []string
	mu     sync.Mutex
}

// GetValues implements ValuesGetter.
func (m *MockValues) GetValues(_ context.Context, spreadsheetID, readRange string) ([][]any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.Calls = append(m.Calls, spreadsheetID+"!"+readRange)
	if len(m.Errors) > 0 {
		err := m.Errors[0]
		m.Errors = m.Errors[1:]
		if err != nil {
			return nil, err
		}
	}
	return m.Values, nil
}

// CallCount returns how many times GetValues ran.
func (m *MockValues) CallCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.Calls)
}
