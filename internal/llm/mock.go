package llm

import (
	"context"

	"github.com/mrctran/mnemo/internal/domain"
)

// MockClient is a configurable extractor for testing.
// Set the response fields to control what Extract returns.
type MockClient struct {
	ExtractResponse *domain.Extraction
	ExtractError    error

	// Call tracking for assertions
	ExtractCalls []struct {
		Conversation string
		Slots        domain.CurrentState
	}
}

func NewMockClient() *MockClient {
	return &MockClient{ExtractResponse: emptyExtraction()}
}

func (m *MockClient) Extract(ctx context.Context, conversation string, currentSlots domain.CurrentState) (*domain.Extraction, error) {
	m.ExtractCalls = append(m.ExtractCalls, struct {
		Conversation string
		Slots        domain.CurrentState
	}{conversation, currentSlots})
	if m.ExtractError != nil {
		return nil, m.ExtractError
	}
	if m.ExtractResponse == nil {
		return emptyExtraction(), nil
	}
	return m.ExtractResponse, nil
}
