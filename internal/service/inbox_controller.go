package service

import (
	"context"
	"fmt"
	"sync"

	"replypilot/internal/logger"
	"replypilot/internal/model"
)

// InboxShell holds one user's paginated message list and the currently open
// message. Closing a detail view always refetches the whole page: detail
// edits such as read markers or draft changes are not applied incrementally.
type InboxShell struct {
	mu sync.Mutex

	userID  string
	emails  []*model.Message
	page    int
	loading bool

	detail *DetailCoordinator

	mail     MailGateway
	ai       AIClient
	calendar CalendarClient
	logger   *logger.Logger
	notifier Notifier
}

// InboxView is the shell state handed to the presentation layer.
type InboxView struct {
	Emails  []*model.Message `json:"emails"`
	Page    int              `json:"page"`
	Loading bool             `json:"loading"`
}

func NewInboxShell(userID string, mail MailGateway, ai AIClient, cal CalendarClient, log *logger.Logger, notifier Notifier) *InboxShell {
	return &InboxShell{
		userID:   userID,
		page:     1,
		mail:     mail,
		ai:       ai,
		calendar: cal,
		logger:   log,
		notifier: notifier,
	}
}

// Refresh refetches the current page from the mail gateway.
func (s *InboxShell) Refresh(ctx context.Context) error {
	s.mu.Lock()
	page := s.page
	s.loading = true
	s.mu.Unlock()

	emails, err := s.mail.ListMessages(ctx, page)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.loading = false
	if err != nil {
		return fmt.Errorf("failed to list messages: %w", err)
	}
	s.emails = emails
	return nil
}

// NextPage advances one page. No total count is known, so forward paging is
// always allowed.
func (s *InboxShell) NextPage(ctx context.Context) error {
	s.mu.Lock()
	s.page++
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// PrevPage goes back one page with a floor of page 1.
func (s *InboxShell) PrevPage(ctx context.Context) error {
	s.mu.Lock()
	if s.page > 1 {
		s.page--
	}
	s.mu.Unlock()
	return s.Refresh(ctx)
}

// Open fetches the full message and mounts a detail coordinator for it. An
// already-open view is superseded: its outstanding fetch results will be
// discarded, never applied to the new message's state.
func (s *InboxShell) Open(ctx context.Context, id string) (*DetailCoordinator, error) {
	msg, err := s.mail.GetMessage(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch message detail: %w", err)
	}

	s.mu.Lock()
	if s.detail != nil {
		s.detail.markClosed()
	}
	d := NewDetailCoordinator(msg, s.mail, s.ai, s.calendar, s.logger, s.publish, s.closeDetail)
	s.detail = d
	s.mu.Unlock()

	return d, nil
}

// Detail returns the open coordinator, or nil when the list is showing.
func (s *InboxShell) Detail() *DetailCoordinator {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.detail
}

// View returns a snapshot for the presentation layer.
func (s *InboxShell) View() InboxView {
	s.mu.Lock()
	defer s.mu.Unlock()
	return InboxView{Emails: s.emails, Page: s.page, Loading: s.loading}
}

func (s *InboxShell) publish(event string, data interface{}) {
	if s.notifier != nil {
		s.notifier.Publish(s.userID, event, data)
	}
}

// closeDetail runs as the coordinator's close callback: clear the open view
// and refetch the list so server-side changes become visible.
func (s *InboxShell) closeDetail() {
	s.mu.Lock()
	s.detail = nil
	s.mu.Unlock()

	if err := s.Refresh(context.Background()); err != nil {
		s.logger.Error("Failed to refresh inbox after closing detail:", err)
	}
	s.publish("list_changed", nil)
}
