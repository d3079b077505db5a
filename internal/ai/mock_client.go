package ai

import (
	"context"

	"replypilot/internal/model"
)

// MockClient is a mock implementation of the AI client for testing
type MockClient struct {
	SuggestReplyFunc   func(ctx context.Context, emailBody, threadID string, status model.MeetingStatus, meeting *model.Meeting) (string, error)
	ExtractMeetingFunc func(ctx context.Context, subject, emailBody string) (*model.Meeting, error)
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) SuggestReply(ctx context.Context, emailBody, threadID string, status model.MeetingStatus, meeting *model.Meeting) (string, error) {
	if m.SuggestReplyFunc != nil {
		return m.SuggestReplyFunc(ctx, emailBody, threadID, status, meeting)
	}

	// Default mock behavior: a canned reply
	return "Thanks for your email, I will get back to you shortly.", nil
}

func (m *MockClient) ExtractMeeting(ctx context.Context, subject, emailBody string) (*model.Meeting, error) {
	if m.ExtractMeetingFunc != nil {
		return m.ExtractMeetingFunc(ctx, subject, emailBody)
	}

	// Default mock behavior: no meeting detected
	return nil, nil
}
