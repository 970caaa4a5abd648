package embedding

import "context"

// MockClient is a configurable embedding client for testing.
type MockClient struct {
	Response []float32
	Err      error

	// Call tracking for assertions
	Calls []string
}

func (m *MockClient) Embed(ctx context.Context, text string) ([]float32, error) {
	m.Calls = append(m.Calls, text)
	if m.Err != nil {
		return nil, m.Err
	}
	return m.Response, nil
}
