package service

import (
	"context"
	"fmt"
	"sync"

	"replypilot/internal/logger"
	"replypilot/internal/mailtext"
	"replypilot/internal/model"
)

// Action names for the single in-flight view action.
const (
	actionBack   = "back"
	actionSend   = "send"
	actionDelete = "delete"
)

// DetailCoordinator owns the view state of one open message: plain message
// versus editable draft, meeting analysis, calendar event creation, and the
// child SuggestionController for non-draft messages. It decides when
// navigation-triggered saves happen; the close callback fires only after a
// pending edit has been flushed to the mail gateway.
type DetailCoordinator struct {
	mu sync.Mutex

	msg  *model.Message
	from string
	to   string

	// Draft-mode editor state. Seeded once at mount from the stored body and
	// never re-seeded while the view lives.
	draftContent string
	draftID      string
	edited       bool

	// Only one of back/send/delete may be in flight at a time.
	loadingAction string

	meetingStatus  model.MeetingStatus
	meeting        *model.Meeting
	meetingFlags   model.MeetingFlags
	loadingMeeting bool
	addingEvent    bool
	eventAdded     bool

	// lastRefreshKey makes the suggestion refresh fire exactly once per
	// (status, meeting) change.
	lastRefreshKey string

	suggestion *SuggestionController

	closed  bool
	onClose func()
	pending sync.WaitGroup

	mail     MailGateway
	ai       AIClient
	calendar CalendarClient
	logger   *logger.Logger
	notify   func(event string, data interface{})
}

// DetailView is the coordinator state handed to the presentation layer.
type DetailView struct {
	Message       *model.Message        `json:"message"`
	From          string                `json:"from"`
	To            string                `json:"to"`
	DraftContent  string                `json:"draftContent,omitempty"`
	Edited        bool                  `json:"edited"`
	LoadingAction string                `json:"loadingAction,omitempty"`
	Meeting       model.MeetingAnalysis `json:"meetingAnalysis"`
	Analyzing     bool                  `json:"analyzingMeeting"`
	AddingEvent   bool                  `json:"addingEvent"`
	EventAdded    bool                  `json:"eventAdded"`
	Suggestion    *SuggestionView       `json:"suggestion,omitempty"`
}

// NewDetailCoordinator mounts the detail view for msg. Draft messages get an
// editor seeded from the stored body; other messages get a suggestion
// controller (when AI suggestions apply) and a concurrent meeting analysis.
// The suggestion fetch and the analysis race; neither waits for the other.
func NewDetailCoordinator(msg *model.Message, mail MailGateway, ai AIClient, cal CalendarClient, log *logger.Logger, notify func(string, interface{}), onClose func()) *DetailCoordinator {
	if notify == nil {
		notify = func(string, interface{}) {}
	}
	c := &DetailCoordinator{
		msg:           msg,
		from:          mailtext.ExtractAddress(msg.From),
		to:            mailtext.ExtractAddress(msg.To),
		meetingStatus: model.MeetingStatusNone,
		onClose:       onClose,
		mail:          mail,
		ai:            ai,
		calendar:      cal,
		logger:        log,
		notify:        notify,
	}

	if msg.IsDraft {
		c.draftContent = mailtext.HTMLToText(msg.Body)
		c.draftID = msg.DraftID
		return c
	}

	if msg.AISuggestionApplicable {
		c.suggestion = NewSuggestionController(msg, "", mail, ai, log, notify)
	}

	if msg.Subject != "" && msg.Body != "" {
		c.pending.Add(1)
		go func() {
			defer c.pending.Done()
			c.analyzeMeeting()
		}()
	}

	if !msg.IsRead {
		c.pending.Add(1)
		go func() {
			defer c.pending.Done()
			if err := c.mail.MarkAsRead(context.Background(), msg.ID); err != nil {
				c.logger.Error("Failed to mark message as read:", err)
			}
		}()
	}

	return c
}

func (c *DetailCoordinator) analyzeMeeting() {
	ctx := context.Background()

	c.mu.Lock()
	c.loadingMeeting = true
	c.mu.Unlock()

	meeting, err := c.ai.ExtractMeeting(ctx, c.msg.Subject, c.msg.Body)
	var flags model.MeetingFlags
	if err == nil && meeting != nil {
		flags, err = c.calendar.CheckMeeting(ctx, meeting)
	}

	c.mu.Lock()
	c.loadingMeeting = false
	if c.closed {
		c.mu.Unlock()
		return
	}
	if err != nil {
		c.mu.Unlock()
		c.logger.Error("Meeting analysis failed:", err)
		return
	}
	if meeting == nil {
		c.mu.Unlock()
		return
	}
	c.meeting = meeting
	c.meetingFlags = flags
	if flags.HasConflict {
		c.meetingStatus = model.MeetingStatusConflict
	} else {
		c.meetingStatus = model.MeetingStatusAvailable
	}
	analysis := model.MeetingAnalysis{Status: c.meetingStatus, Meeting: meeting, Flags: flags}
	c.mu.Unlock()

	c.notify("meeting_analyzed", analysis)
	c.refreshSuggestionForMeeting()
}

// refreshSuggestionForMeeting regenerates the suggestion with the current
// meeting context, at most once per (status, meeting) change.
func (c *DetailCoordinator) refreshSuggestionForMeeting() {
	c.mu.Lock()
	if c.closed || c.suggestion == nil || c.meeting == nil || c.meetingStatus == model.MeetingStatusNone {
		c.mu.Unlock()
		return
	}
	key := string(c.meetingStatus) + "|" + c.meeting.Title + "|" + c.meeting.StartTime
	if key == c.lastRefreshKey {
		c.mu.Unlock()
		return
	}
	c.lastRefreshKey = key
	status := c.meetingStatus
	meeting := c.meeting
	sc := c.suggestion
	c.mu.Unlock()

	sc.RefreshSuggestions(status, meeting)
}

// AddToCalendar creates a calendar event from the detected meeting. It is a
// guarded no-op when there is no meeting, a creation is already in flight,
// the meeting is flagged duplicate, or an event was already added this
// session. A successful add is terminal for the session and optimistically
// clears any prior conflict.
func (c *DetailCoordinator) AddToCalendar(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.meeting == nil || c.addingEvent || c.meetingFlags.IsDuplicate || c.eventAdded {
		c.mu.Unlock()
		return nil
	}
	c.addingEvent = true
	meeting := c.meeting
	subject := c.msg.Subject
	c.mu.Unlock()

	err := c.calendar.CreateEvent(ctx, meeting, subject)

	c.mu.Lock()
	c.addingEvent = false
	if err != nil {
		c.mu.Unlock()
		return fmt.Errorf("failed to add event to calendar: %w", err)
	}
	c.eventAdded = true
	c.meetingStatus = model.MeetingStatusAvailable
	c.mu.Unlock()

	c.notify("event_added", nil)
	c.refreshSuggestionForMeeting()
	return nil
}

// Edit updates the reply text: the draft editor in draft mode, the child
// suggestion otherwise.
func (c *DetailCoordinator) Edit(text string) {
	c.mu.Lock()
	if c.msg.IsDraft {
		c.draftContent = text
		c.edited = true
		c.mu.Unlock()
		return
	}
	sc := c.suggestion
	c.mu.Unlock()
	if sc != nil {
		sc.Edit(text)
	}
}

// Focus marks the reply surface user-owned.
func (c *DetailCoordinator) Focus() {
	c.mu.Lock()
	if c.msg.IsDraft {
		c.mu.Unlock()
		return
	}
	sc := c.suggestion
	c.mu.Unlock()
	if sc != nil {
		sc.Focus()
	}
}

// Back flushes any unsaved edit to the mail gateway and then closes the
// view. The close callback fires only after the save completed, so
// navigating away never drops an edited, unsent reply. On a save failure the
// view stays open.
func (c *DetailCoordinator) Back(ctx context.Context) error {
	if !c.beginAction(actionBack) {
		return nil
	}
	defer c.endAction()

	if c.msg.IsDraft {
		c.mu.Lock()
		needSave := c.edited && c.draftID != ""
		body := c.draftContent
		draftID := c.draftID
		to := c.to
		subject := c.msg.Subject
		c.mu.Unlock()

		if needSave {
			if err := c.mail.UpdateDraft(ctx, draftID, body, to, subject); err != nil {
				return fmt.Errorf("failed to save draft: %w", err)
			}
			c.mu.Lock()
			c.edited = false
			c.mu.Unlock()
		}
	} else if c.suggestion != nil {
		if err := c.suggestion.SaveDraftIfNeeded(ctx); err != nil {
			return err
		}
	}

	c.close()
	return nil
}

// Send sends the open reply: in draft mode the stored draft, otherwise the
// suggestion. The view closes on success.
func (c *DetailCoordinator) Send(ctx context.Context) error {
	if !c.msg.IsDraft {
		c.mu.Lock()
		sc := c.suggestion
		c.mu.Unlock()
		if sc == nil {
			return nil
		}
		if err := sc.Send(ctx); err != nil {
			return err
		}
		c.close()
		return nil
	}

	c.mu.Lock()
	if c.draftID == "" {
		c.mu.Unlock()
		return nil
	}
	c.mu.Unlock()
	if !c.beginAction(actionSend) {
		return nil
	}
	defer c.endAction()

	c.mu.Lock()
	draftID := c.draftID
	body := c.draftContent
	to := c.to
	subject := c.msg.Subject
	c.mu.Unlock()

	if err := c.mail.SendDraft(ctx, draftID, c.msg.ThreadID, body, to, subject); err != nil {
		return fmt.Errorf("failed to send draft: %w", err)
	}

	c.mu.Lock()
	c.draftID = ""
	c.draftContent = ""
	c.edited = false
	c.mu.Unlock()

	c.close()
	return nil
}

// Delete deletes the open draft and closes the view. No-op outside draft
// mode.
func (c *DetailCoordinator) Delete(ctx context.Context) error {
	c.mu.Lock()
	if !c.msg.IsDraft || c.draftID == "" {
		c.mu.Unlock()
		return nil
	}
	draftID := c.draftID
	c.mu.Unlock()
	if !c.beginAction(actionDelete) {
		return nil
	}
	defer c.endAction()

	if err := c.mail.DeleteDraft(ctx, draftID); err != nil {
		return fmt.Errorf("failed to delete draft: %w", err)
	}

	c.mu.Lock()
	c.draftID = ""
	c.draftContent = ""
	c.edited = false
	c.mu.Unlock()

	c.close()
	return nil
}

// Suggestion exposes the child controller; nil in draft mode or when AI
// suggestions do not apply to this message.
func (c *DetailCoordinator) Suggestion() *SuggestionController {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.suggestion
}

// View returns a snapshot for the presentation layer.
func (c *DetailCoordinator) View() DetailView {
	c.mu.Lock()
	defer c.mu.Unlock()
	v := DetailView{
		Message:       c.msg,
		From:          c.from,
		To:            c.to,
		DraftContent:  c.draftContent,
		Edited:        c.edited,
		LoadingAction: c.loadingAction,
		Meeting: model.MeetingAnalysis{
			Status:  c.meetingStatus,
			Meeting: c.meeting,
			Flags:   c.meetingFlags,
		},
		Analyzing:   c.loadingMeeting,
		AddingEvent: c.addingEvent,
		EventAdded:  c.eventAdded,
	}
	if c.suggestion != nil {
		sv := c.suggestion.View()
		v.Suggestion = &sv
	}
	return v
}

func (c *DetailCoordinator) beginAction(action string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || c.loadingAction != "" {
		return false
	}
	c.loadingAction = action
	return true
}

func (c *DetailCoordinator) endAction() {
	c.mu.Lock()
	c.loadingAction = ""
	c.mu.Unlock()
}

func (c *DetailCoordinator) close() {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return
	}
	c.closed = true
	if c.suggestion != nil {
		c.suggestion.markClosed()
	}
	cb := c.onClose
	c.mu.Unlock()

	if cb != nil {
		cb()
	}
}

// markClosed flips the stale guard without firing the close callback; used
// when the shell replaces this view with a newer one.
func (c *DetailCoordinator) markClosed() {
	c.mu.Lock()
	c.closed = true
	if c.suggestion != nil {
		c.suggestion.markClosed()
	}
	c.mu.Unlock()
}

func (c *DetailCoordinator) waitPending() {
	c.pending.Wait()
	c.mu.Lock()
	sc := c.suggestion
	c.mu.Unlock()
	if sc != nil {
		sc.waitPending()
	}
}
