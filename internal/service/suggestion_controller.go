package service

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"replypilot/internal/logger"
	"replypilot/internal/mailtext"
	"replypilot/internal/model"
)

// SuggestionController owns the AI-suggested reply for one open message: the
// suggestion text, whether the user has taken ownership of it, and the draft
// identity it has been persisted under. The parent coordinator drives it only
// through the exported methods; in particular SaveDraftIfNeeded is awaited
// just before the view closes so an edited reply is never silently dropped.
type SuggestionController struct {
	mu sync.Mutex

	msg       *model.Message
	recipient string

	text    string
	draftID string
	edited  bool
	focused bool

	loading bool
	sending bool
	closed  bool

	// fetchGen invalidates in-flight suggestion fetches: a result is applied
	// only if no newer fetch started and the view is still open.
	fetchGen int
	pending  sync.WaitGroup

	mail   MailGateway
	ai     AIClient
	logger *logger.Logger
	notify func(event string, data interface{})
}

// SuggestionView is the controller state handed to the presentation layer.
type SuggestionView struct {
	Text    string `json:"text"`
	DraftID string `json:"draftId,omitempty"`
	Edited  bool   `json:"edited"`
	Focused bool   `json:"focused"`
	Loading bool   `json:"loading"`
	Sending bool   `json:"sending"`
}

// NewSuggestionController mounts a controller for msg. When the message
// already carries a draft id no suggestion is fetched: draftBody (sourced by
// the caller) is the starting text. Otherwise an asynchronous fetch replaces
// the empty text once the gateway responds.
func NewSuggestionController(msg *model.Message, draftBody string, mail MailGateway, ai AIClient, log *logger.Logger, notify func(string, interface{})) *SuggestionController {
	if notify == nil {
		notify = func(string, interface{}) {}
	}
	c := &SuggestionController{
		msg:       msg,
		recipient: mailtext.ExtractAddress(msg.To),
		draftID:   msg.DraftID,
		mail:      mail,
		ai:        ai,
		logger:    log,
		notify:    notify,
	}

	if c.draftID != "" {
		c.text = draftBody
		return c
	}

	c.mu.Lock()
	c.startFetch(model.MeetingStatusNone, nil)
	c.mu.Unlock()
	return c
}

// startFetch must be called with c.mu held.
func (c *SuggestionController) startFetch(status model.MeetingStatus, meeting *model.Meeting) {
	c.fetchGen++
	gen := c.fetchGen
	c.loading = true
	c.pending.Add(1)
	go func() {
		defer c.pending.Done()
		c.fetchSuggestion(gen, status, meeting)
	}()
}

func (c *SuggestionController) fetchSuggestion(gen int, status model.MeetingStatus, meeting *model.Meeting) {
	suggestion, err := c.ai.SuggestReply(context.Background(), c.msg.Body, c.msg.ThreadID, status, meeting)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed || gen != c.fetchGen {
		// Stale result: the view moved on while this fetch was in flight.
		return
	}
	c.loading = false
	if err != nil {
		c.logger.Error("Failed to load AI suggestion:", err)
		c.notify("suggestion_error", nil)
		return
	}
	c.text = suggestion
	c.edited = false
	c.notify("suggestion_ready", SuggestionView{Text: c.text, DraftID: c.draftID})
}

// Edit replaces the suggestion text and marks the content user-owned.
func (c *SuggestionController) Edit(text string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.text = text
	c.edited = true
}

// Focus marks the content user-owned before any keystroke. Sending an
// unedited-but-reviewed suggestion is allowed; a completely untouched one is
// not.
func (c *SuggestionController) Focus() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.focused = true
	c.edited = true
}

// SaveDraftIfNeeded persists the reply exactly once per meaningful edit. It
// is a no-op unless the user edited the text and the text is non-empty; on
// success the edited flag clears, so calling it again without further edits
// makes no gateway call. Callers await it before closing the view.
func (c *SuggestionController) SaveDraftIfNeeded(ctx context.Context) error {
	c.mu.Lock()
	if !c.edited || strings.TrimSpace(c.text) == "" {
		c.mu.Unlock()
		return nil
	}
	text := c.text
	draftID := c.draftID
	to := c.recipient
	subject := c.msg.Subject
	threadID := c.msg.ThreadID
	c.mu.Unlock()

	if draftID == "" {
		id, err := c.mail.CreateDraft(ctx, threadID, text, to, subject)
		if err != nil {
			return fmt.Errorf("failed to create draft: %w", err)
		}
		c.mu.Lock()
		c.draftID = id
	} else {
		if err := c.mail.UpdateDraft(ctx, draftID, text, to, subject); err != nil {
			return fmt.Errorf("failed to update draft: %w", err)
		}
		c.mu.Lock()
	}
	c.edited = false
	c.mu.Unlock()

	c.logger.Info("Saved reply draft for message:", c.msg.ID)
	return nil
}

// Send sends the reply through the mail gateway. Untouched suggestions and
// empty text are rejected with a ValidationError before any gateway call. On
// success the controller resets for the next reply cycle; on failure the
// draft is left intact so the user can retry.
func (c *SuggestionController) Send(ctx context.Context) error {
	c.mu.Lock()
	if c.closed || c.sending {
		c.mu.Unlock()
		return nil
	}
	if !c.edited && !c.focused {
		c.mu.Unlock()
		return ErrUnreviewedSuggestion
	}
	if strings.TrimSpace(c.text) == "" {
		c.mu.Unlock()
		return ErrEmptyReply
	}
	c.sending = true
	text := c.text
	draftID := c.draftID
	to := c.recipient
	subject := c.msg.Subject
	threadID := c.msg.ThreadID
	c.mu.Unlock()

	err := c.mail.SendDraft(ctx, draftID, threadID, text, to, subject)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.sending = false
	if err != nil {
		return fmt.Errorf("failed to send reply: %w", err)
	}

	// Draft consumed; reinitialize for a fresh reply.
	c.text = ""
	c.draftID = ""
	c.edited = false
	c.focused = false
	return nil
}

// RefreshSuggestions refetches the suggestion with meeting context. The new
// text overwrites whatever is in the editor, including unsaved edits, and the
// edited flag resets.
func (c *SuggestionController) RefreshSuggestions(status model.MeetingStatus, meeting *model.Meeting) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return
	}
	c.startFetch(status, meeting)
}

// View returns a snapshot for the presentation layer.
func (c *SuggestionController) View() SuggestionView {
	c.mu.Lock()
	defer c.mu.Unlock()
	return SuggestionView{
		Text:    c.text,
		DraftID: c.draftID,
		Edited:  c.edited,
		Focused: c.focused,
		Loading: c.loading,
		Sending: c.sending,
	}
}

// markClosed flips the stale guard; results of outstanding fetches are
// discarded from here on.
func (c *SuggestionController) markClosed() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
}

func (c *SuggestionController) waitPending() {
	c.pending.Wait()
}
