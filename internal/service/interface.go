package service

import (
	"context"
	"time"

	"replypilot/internal/model"
)

type AuthService interface {
	GetOrCreateUser(ctx context.Context, googleID, email, name, accessToken, refreshToken string, tokenExpiry time.Time) (*model.User, error)
	GetUser(ctx context.Context, userID string) (*model.User, error)
}

// MailGateway is the remote mail service: message listing and the full draft
// lifecycle. SendDraft with an empty draftID creates and sends in one step.
type MailGateway interface {
	ListMessages(ctx context.Context, page int) ([]*model.Message, error)
	GetMessage(ctx context.Context, id string) (*model.Message, error)
	CreateDraft(ctx context.Context, threadID, body, to, subject string) (string, error)
	UpdateDraft(ctx context.Context, draftID, body, to, subject string) error
	DeleteDraft(ctx context.Context, draftID string) error
	SendDraft(ctx context.Context, draftID, threadID, body, to, subject string) error
	MarkAsRead(ctx context.Context, messageID string) error
}

// AIClient produces reply suggestions and extracts meeting proposals from
// message content.
type AIClient interface {
	SuggestReply(ctx context.Context, emailBody, threadID string, status model.MeetingStatus, meeting *model.Meeting) (string, error)
	ExtractMeeting(ctx context.Context, subject, emailBody string) (*model.Meeting, error)
}

// CalendarClient checks a detected meeting against the user's calendar and
// creates events from it.
type CalendarClient interface {
	CheckMeeting(ctx context.Context, meeting *model.Meeting) (model.MeetingFlags, error)
	CreateEvent(ctx context.Context, meeting *model.Meeting, subject string) error
}

// Notifier pushes view lifecycle events to the client so it does not have to
// poll while background fetches are in flight.
type Notifier interface {
	Publish(userID, event string, data interface{})
}
