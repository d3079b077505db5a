package handler

import (
	"context"
	"fmt"
	"net/http"
	"sync"

	"replypilot/internal/model"
	"replypilot/internal/service"
	"replypilot/internal/sse"

	"github.com/labstack/echo/v4"
)

// ShellFactory builds the per-user inbox shell with gateway clients bound to
// that user's access token.
type ShellFactory func(user *model.User, notifier service.Notifier) (*service.InboxShell, error)

// InboxHandler routes the view operations onto each user's inbox shell and
// its open detail coordinator.
type InboxHandler struct {
	authHandler *AuthHandler
	sseManager  *sse.Manager
	newShell    ShellFactory
	logger      echo.Logger

	mu     sync.Mutex
	shells map[string]*service.InboxShell
}

func NewInboxHandler(authHandler *AuthHandler, sseManager *sse.Manager, newShell ShellFactory, logger echo.Logger) *InboxHandler {
	return &InboxHandler{
		authHandler: authHandler,
		sseManager:  sseManager,
		newShell:    newShell,
		logger:      logger,
		shells:      make(map[string]*service.InboxShell),
	}
}

func (h *InboxHandler) shellFor(c echo.Context) (*service.InboxShell, error) {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return nil, err
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	if shell, ok := h.shells[user.ID]; ok {
		return shell, nil
	}

	shell, err := h.newShell(user, h.sseManager)
	if err != nil {
		return nil, fmt.Errorf("failed to create inbox session: %w", err)
	}
	h.shells[user.ID] = shell
	return shell, nil
}

// GetInbox refetches and returns the current page of the list.
func (h *InboxHandler) GetInbox(c echo.Context) error {
	shell, err := h.shellFor(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}

	if err := shell.Refresh(c.Request().Context()); err != nil {
		h.logger.Error("Failed to fetch inbox:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "inbox fetched", shell.View())
}

// NextPage advances the list one page; PrevPage goes back with a floor of 1.
func (h *InboxHandler) NextPage(c echo.Context) error {
	return h.turnPage(c, (*service.InboxShell).NextPage)
}

func (h *InboxHandler) PrevPage(c echo.Context) error {
	return h.turnPage(c, (*service.InboxShell).PrevPage)
}

func (h *InboxHandler) turnPage(c echo.Context, turn func(*service.InboxShell, context.Context) error) error {
	shell, err := h.shellFor(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}

	if err := turn(shell, c.Request().Context()); err != nil {
		h.logger.Error("Failed to turn inbox page:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "inbox fetched", shell.View())
}

// OpenMessage fetches the full message and mounts its detail view.
func (h *InboxHandler) OpenMessage(c echo.Context) error {
	shell, err := h.shellFor(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := c.Bind(&req); err != nil || req.ID == "" {
		return respondError(c, http.StatusBadRequest, "message id is required")
	}

	detail, err := shell.Open(c.Request().Context(), req.ID)
	if err != nil {
		h.logger.Error("Failed to open message:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "message opened", detail.View())
}

// GetView returns the open detail view's current state.
func (h *InboxHandler) GetView(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}
	return respond(c, http.StatusOK, "view state", detail.View())
}

// EditReply replaces the reply text and marks it user-owned.
func (h *InboxHandler) EditReply(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}

	var req struct {
		Text string `json:"text"`
	}
	if err := c.Bind(&req); err != nil {
		return respondError(c, http.StatusBadRequest, "invalid request body")
	}

	detail.Edit(req.Text)
	return respond(c, http.StatusOK, "reply updated", detail.View())
}

// FocusReply marks the reply surface user-owned before any keystroke.
func (h *InboxHandler) FocusReply(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}

	detail.Focus()
	return respond(c, http.StatusOK, "reply focused", detail.View())
}

// SendReply sends the open reply or draft and closes the view.
func (h *InboxHandler) SendReply(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}

	if err := detail.Send(c.Request().Context()); err != nil {
		h.logger.Error("Failed to send reply:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "reply sent", nil)
}

// Back flushes any unsaved edit and closes the view; the list refetches.
func (h *InboxHandler) Back(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}

	if err := detail.Back(c.Request().Context()); err != nil {
		h.logger.Error("Failed to close detail view:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "view closed", nil)
}

// DeleteDraft deletes the open draft and closes the view.
func (h *InboxHandler) DeleteDraft(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}

	if err := detail.Delete(c.Request().Context()); err != nil {
		h.logger.Error("Failed to delete draft:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "draft deleted", nil)
}

// AddToCalendar creates a calendar event from the detected meeting.
func (h *InboxHandler) AddToCalendar(c echo.Context) error {
	detail, err := h.openDetail(c)
	if detail == nil {
		return err
	}

	if err := detail.AddToCalendar(c.Request().Context()); err != nil {
		h.logger.Error("Failed to add event to calendar:", err)
		return respondActionError(c, err)
	}
	return respond(c, http.StatusOK, "calendar updated", detail.View())
}

func (h *InboxHandler) openDetail(c echo.Context) (*service.DetailCoordinator, error) {
	shell, err := h.shellFor(c)
	if err != nil {
		return nil, respondError(c, http.StatusUnauthorized, "unauthorized")
	}

	detail := shell.Detail()
	if detail == nil {
		return nil, respondError(c, http.StatusNotFound, "no message is open")
	}
	return detail, nil
}

// ViewEvents streams view lifecycle events over Server-Sent Events.
func (h *InboxHandler) ViewEvents(c echo.Context) error {
	user, err := h.authHandler.GetCurrentUser(c)
	if err != nil {
		return respondError(c, http.StatusUnauthorized, "unauthorized")
	}

	c.Response().Header().Set("Content-Type", "text/event-stream")
	c.Response().Header().Set("Cache-Control", "no-cache")
	c.Response().Header().Set("Connection", "keep-alive")

	clientChannel := h.sseManager.AddClient(user.ID)
	defer h.sseManager.RemoveClient(user.ID, clientChannel)

	fmt.Fprintf(c.Response(), "data: {\"type\":\"connected\"}\n\n")
	c.Response().Flush()

	for {
		select {
		case eventData, ok := <-clientChannel:
			if !ok {
				return nil
			}
			fmt.Fprintf(c.Response(), "data: %s\n\n", eventData)
			c.Response().Flush()
		case <-h.sseManager.Done():
			return nil
		case <-c.Request().Context().Done():
			return nil
		}
	}
}
