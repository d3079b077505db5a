package calendar

import (
	"context"

	"replypilot/internal/model"
)

// MockClient is a mock implementation of the calendar client for testing
type MockClient struct {
	CheckMeetingFunc func(ctx context.Context, meeting *model.Meeting) (model.MeetingFlags, error)
	CreateEventFunc  func(ctx context.Context, meeting *model.Meeting, subject string) error
}

func NewMockClient() *MockClient {
	return &MockClient{}
}

func (m *MockClient) CheckMeeting(ctx context.Context, meeting *model.Meeting) (model.MeetingFlags, error) {
	if m.CheckMeetingFunc != nil {
		return m.CheckMeetingFunc(ctx, meeting)
	}

	// Default mock behavior: free slot, nothing recorded yet
	return model.MeetingFlags{}, nil
}

func (m *MockClient) CreateEvent(ctx context.Context, meeting *model.Meeting, subject string) error {
	if m.CreateEventFunc != nil {
		return m.CreateEventFunc(ctx, meeting, subject)
	}

	return nil
}
