package gmail

import (
	"context"

	"replypilot/internal/model"
)

// MockClient is a mock implementation of the mail gateway for testing
type MockClient struct {
	ListMessagesFunc func(ctx context.Context, page int) ([]*model.Message, error)
	GetMessageFunc   func(ctx context.Context, id string) (*model.Message, error)
	CreateDraftFunc  func(ctx context.Context, threadID, body, to, subject string) (string, error)
	UpdateDraftFunc  func(ctx context.Context, draftID, body, to, subject string) error
	DeleteDraftFunc  func(ctx context.Context, draftID string) error
	SendDraftFunc    func(ctx context.Context, draftID, threadID, body, to, subject string) error
	MarkAsReadFunc   func(ctx context.Context, messageID string) error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) ListMessages(ctx context.Context, page int) ([]*model.Message, error) {
	if m.ListMessagesFunc != nil {
		return m.ListMessagesFunc(ctx, page)
	}

	// Default mock behavior: empty page
	return []*model.Message{}, nil
}

func (m *MockClient) GetMessage(ctx context.Context, id string) (*model.Message, error) {
	if m.GetMessageFunc != nil {
		return m.GetMessageFunc(ctx, id)
	}

	return &model.Message{ID: id}, nil
}

func (m *MockClient) CreateDraft(ctx context.Context, threadID, body, to, subject string) (string, error) {
	if m.CreateDraftFunc != nil {
		return m.CreateDraftFunc(ctx, threadID, body, to, subject)
	}

	// Default mock behavior: a fixed draft id
	return "draft-1", nil
}

func (m *MockClient) UpdateDraft(ctx context.Context, draftID, body, to, subject string) error {
	if m.UpdateDraftFunc != nil {
		return m.UpdateDraftFunc(ctx, draftID, body, to, subject)
	}

	return nil
}

func (m *MockClient) DeleteDraft(ctx context.Context, draftID string) error {
	if m.DeleteDraftFunc != nil {
		return m.DeleteDraftFunc(ctx, draftID)
	}

	return nil
}

func (m *MockClient) SendDraft(ctx context.Context, draftID, threadID, body, to, subject string) error {
	if m.SendDraftFunc != nil {
		return m.SendDraftFunc(ctx, draftID, threadID, body, to, subject)
	}

	return nil
}

func (m *MockClient) MarkAsRead(ctx context.Context, messageID string) error {
	if m.MarkAsReadFunc != nil {
		return m.MarkAsReadFunc(ctx, messageID)
	}

	return nil
}
