package service

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"replypilot/internal/ai"
	"replypilot/internal/calendar"
	"replypilot/internal/gmail"
	"replypilot/internal/logger"
	"replypilot/internal/model"

	"github.com/stretchr/testify/assert"
)

// eventRecorder collects notify events so tests can assert on the pushed
// lifecycle without an SSE connection.
type eventRecorder struct {
	mu     sync.Mutex
	events []string
}

func (r *eventRecorder) notify(event string, data interface{}) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *eventRecorder) recorded() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.events...)
}

func testMeeting() *model.Meeting {
	return &model.Meeting{
		Title:     "Project kickoff",
		StartTime: "2026-09-02T10:00:00Z",
		EndTime:   "2026-09-02T11:00:00Z",
		Location:  "Room 2",
	}
}

func TestMeetingAnalysisRefreshesSuggestion(t *testing.T) {
	// Setup: the message proposes a meeting and the slot is free
	var statuses []model.MeetingStatus
	var statusesMu sync.Mutex

	aiClient := ai.NewMockClient()
	aiClient.SuggestReplyFunc = func(ctx context.Context, emailBody, threadID string, status model.MeetingStatus, meeting *model.Meeting) (string, error) {
		statusesMu.Lock()
		statuses = append(statuses, status)
		statusesMu.Unlock()
		if status == model.MeetingStatusAvailable {
			return "That time works, see you there.", nil
		}
		return "Thanks, let me check.", nil
	}
	aiClient.ExtractMeetingFunc = func(ctx context.Context, subject, emailBody string) (*model.Meeting, error) {
		return testMeeting(), nil
	}

	rec := &eventRecorder{}
	c := NewDetailCoordinator(testMessage(), gmail.NewMockClient(), aiClient, calendar.NewMockClient(), logger.New(), rec.notify, nil)
	c.waitPending()

	// The analysis lands and the suggestion is refetched with meeting context
	view := c.View()
	assert.Equal(t, model.MeetingStatusAvailable, view.Meeting.Status)
	assert.Equal(t, "Project kickoff", view.Meeting.Meeting.Title)
	assert.False(t, view.Analyzing)
	assert.Equal(t, "That time works, see you there.", view.Suggestion.Text)

	statusesMu.Lock()
	assert.Contains(t, statuses, model.MeetingStatusNone)
	assert.Contains(t, statuses, model.MeetingStatusAvailable)
	statusesMu.Unlock()

	assert.Contains(t, rec.recorded(), "meeting_analyzed")
	assert.Contains(t, rec.recorded(), "suggestion_ready")
}

func TestConflictingMeetingStatus(t *testing.T) {
	aiClient := ai.NewMockClient()
	aiClient.ExtractMeetingFunc = func(ctx context.Context, subject, emailBody string) (*model.Meeting, error) {
		return testMeeting(), nil
	}
	calClient := calendar.NewMockClient()
	calClient.CheckMeetingFunc = func(ctx context.Context, meeting *model.Meeting) (model.MeetingFlags, error) {
		return model.MeetingFlags{HasConflict: true}, nil
	}

	c := NewDetailCoordinator(testMessage(), gmail.NewMockClient(), aiClient, calClient, logger.New(), nil, nil)
	c.waitPending()

	assert.Equal(t, model.MeetingStatusConflict, c.View().Meeting.Status)
}

func TestUnreadMessageMarkedReadOnMount(t *testing.T) {
	var marked []string
	var markedMu sync.Mutex
	mailClient := gmail.NewMockClient()
	mailClient.MarkAsReadFunc = func(ctx context.Context, messageID string) error {
		markedMu.Lock()
		marked = append(marked, messageID)
		markedMu.Unlock()
		return nil
	}

	msg := testMessage()
	msg.IsRead = false
	c := NewDetailCoordinator(msg, mailClient, ai.NewMockClient(), calendar.NewMockClient(), logger.New(), nil, nil)
	c.waitPending()

	markedMu.Lock()
	assert.Equal(t, []string{"msg-1"}, marked)
	markedMu.Unlock()
}

func TestAddToCalendarSingleFlight(t *testing.T) {
	aiClient := ai.NewMockClient()
	aiClient.ExtractMeetingFunc = func(ctx context.Context, subject, emailBody string) (*model.Meeting, error) {
		return testMeeting(), nil
	}

	started := make(chan struct{})
	release := make(chan struct{})
	var creates int32
	calClient := calendar.NewMockClient()
	calClient.CreateEventFunc = func(ctx context.Context, meeting *model.Meeting, subject string) error {
		if atomic.AddInt32(&creates, 1) == 1 {
			close(started)
			<-release
		}
		return nil
	}

	c := NewDetailCoordinator(testMessage(), gmail.NewMockClient(), aiClient, calClient, logger.New(), nil, nil)
	c.waitPending()

	done := make(chan error, 1)
	go func() { done <- c.AddToCalendar(context.Background()) }()
	<-started

	// A second press while the first creation is in flight is a no-op
	assert.NoError(t, c.AddToCalendar(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&creates))

	close(release)
	assert.NoError(t, <-done)

	view := c.View()
	assert.True(t, view.EventAdded)
	assert.Equal(t, model.MeetingStatusAvailable, view.Meeting.Status)

	// The event is created once per session; another press changes nothing
	assert.NoError(t, c.AddToCalendar(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&creates))
}

func TestAddToCalendarSkipsDuplicates(t *testing.T) {
	aiClient := ai.NewMockClient()
	aiClient.ExtractMeetingFunc = func(ctx context.Context, subject, emailBody string) (*model.Meeting, error) {
		return testMeeting(), nil
	}
	var creates int32
	calClient := calendar.NewMockClient()
	calClient.CheckMeetingFunc = func(ctx context.Context, meeting *model.Meeting) (model.MeetingFlags, error) {
		return model.MeetingFlags{IsDuplicate: true}, nil
	}
	calClient.CreateEventFunc = func(ctx context.Context, meeting *model.Meeting, subject string) error {
		atomic.AddInt32(&creates, 1)
		return nil
	}

	c := NewDetailCoordinator(testMessage(), gmail.NewMockClient(), aiClient, calClient, logger.New(), nil, nil)
	c.waitPending()

	assert.NoError(t, c.AddToCalendar(context.Background()))
	assert.Equal(t, int32(0), atomic.LoadInt32(&creates))
	assert.False(t, c.View().EventAdded)
}

func TestBackSavesEditBeforeClosing(t *testing.T) {
	var order []string
	var orderMu sync.Mutex
	mailClient := gmail.NewMockClient()
	mailClient.CreateDraftFunc = func(ctx context.Context, threadID, body, to, subject string) (string, error) {
		orderMu.Lock()
		order = append(order, "save")
		orderMu.Unlock()
		assert.Equal(t, "My edited reply", body)
		return "draft-7", nil
	}
	onClose := func() {
		orderMu.Lock()
		order = append(order, "close")
		orderMu.Unlock()
	}

	c := NewDetailCoordinator(testMessage(), mailClient, ai.NewMockClient(), calendar.NewMockClient(), logger.New(), nil, onClose)
	c.waitPending()

	c.Edit("My edited reply")
	assert.NoError(t, c.Back(context.Background()))

	// The close callback only fires after the edit has been persisted
	orderMu.Lock()
	assert.Equal(t, []string{"save", "close"}, order)
	orderMu.Unlock()
}

func TestBackKeepsViewOpenOnSaveFailure(t *testing.T) {
	mailClient := gmail.NewMockClient()
	mailClient.CreateDraftFunc = func(ctx context.Context, threadID, body, to, subject string) (string, error) {
		return "", errors.New("gateway down")
	}
	var closed int32
	onClose := func() { atomic.AddInt32(&closed, 1) }

	c := NewDetailCoordinator(testMessage(), mailClient, ai.NewMockClient(), calendar.NewMockClient(), logger.New(), nil, onClose)
	c.waitPending()

	c.Edit("reply that must not be lost")
	err := c.Back(context.Background())

	assert.Error(t, err)
	assert.Equal(t, int32(0), atomic.LoadInt32(&closed))

	// The view is still live; a retry after recovery closes it
	mailClient.CreateDraftFunc = nil
	assert.NoError(t, c.Back(context.Background()))
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))
}

func TestDraftEditorSeededFromStoredBody(t *testing.T) {
	msg := &model.Message{
		ID:       "msg-d",
		ThreadID: "thread-d",
		Subject:  "Re: Quick question",
		From:     "me@example.com",
		To:       "Bob <bob@example.com>",
		Body:     "<p>First line</p><p>Second line</p>",
		IsDraft:  true,
		DraftID:  "draft-5",
		IsRead:   true,
	}

	var fetches int32
	aiClient := ai.NewMockClient()
	aiClient.SuggestReplyFunc = func(ctx context.Context, emailBody, threadID string, status model.MeetingStatus, meeting *model.Meeting) (string, error) {
		atomic.AddInt32(&fetches, 1)
		return "", nil
	}

	c := NewDetailCoordinator(msg, gmail.NewMockClient(), aiClient, calendar.NewMockClient(), logger.New(), nil, nil)
	c.waitPending()

	// Drafts get an editor seeded from the stored body, never a suggestion
	view := c.View()
	assert.Equal(t, "First line\nSecond line", view.DraftContent)
	assert.Nil(t, view.Suggestion)
	assert.Equal(t, int32(0), atomic.LoadInt32(&fetches))
}

func TestDraftDelete(t *testing.T) {
	var deleted []string
	var updates, sends int32
	mailClient := gmail.NewMockClient()
	mailClient.DeleteDraftFunc = func(ctx context.Context, draftID string) error {
		deleted = append(deleted, draftID)
		return nil
	}
	mailClient.UpdateDraftFunc = func(ctx context.Context, draftID, body, to, subject string) error {
		atomic.AddInt32(&updates, 1)
		return nil
	}
	mailClient.SendDraftFunc = func(ctx context.Context, draftID, threadID, body, to, subject string) error {
		atomic.AddInt32(&sends, 1)
		return nil
	}

	msg := &model.Message{ID: "msg-d", Subject: "Re: x", To: "bob@example.com", Body: "text", IsDraft: true, DraftID: "draft-5", IsRead: true}
	var closed int32
	c := NewDetailCoordinator(msg, mailClient, ai.NewMockClient(), calendar.NewMockClient(), logger.New(), nil, func() { atomic.AddInt32(&closed, 1) })

	// Deleting discards even freshly typed text without saving or sending it
	c.Edit("typed but discarded")
	assert.NoError(t, c.Delete(context.Background()))

	assert.Equal(t, []string{"draft-5"}, deleted)
	assert.Equal(t, int32(0), atomic.LoadInt32(&updates))
	assert.Equal(t, int32(0), atomic.LoadInt32(&sends))
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))
}

func TestDraftSend(t *testing.T) {
	var sentDraftID, sentBody string
	mailClient := gmail.NewMockClient()
	mailClient.SendDraftFunc = func(ctx context.Context, draftID, threadID, body, to, subject string) error {
		sentDraftID = draftID
		sentBody = body
		return nil
	}

	msg := &model.Message{ID: "msg-d", ThreadID: "thread-d", Subject: "Re: x", To: "bob@example.com", Body: "stored body", IsDraft: true, DraftID: "draft-5", IsRead: true}
	var closed int32
	c := NewDetailCoordinator(msg, mailClient, ai.NewMockClient(), calendar.NewMockClient(), logger.New(), nil, func() { atomic.AddInt32(&closed, 1) })

	c.Edit("final text")
	assert.NoError(t, c.Send(context.Background()))

	assert.Equal(t, "draft-5", sentDraftID)
	assert.Equal(t, "final text", sentBody)
	assert.Equal(t, int32(1), atomic.LoadInt32(&closed))
}
