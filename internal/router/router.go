package router

import (
	"net/http"

	"replypilot/internal/handler"
	"replypilot/internal/middleware"

	"github.com/labstack/echo/v4"
)

func SetupRoutes(
	e *echo.Echo,
	authHandler *handler.AuthHandler,
	inboxHandler *handler.InboxHandler,
) {
	// Apply session middleware globally
	e.Use(middleware.SessionMiddleware())

	// Public routes
	e.GET("/auth/:provider", authHandler.BeginAuthHandler)
	e.GET("/auth/:provider/callback", authHandler.CallbackHandler)
	e.GET("/auth/logout", authHandler.LogoutHandler)
	e.GET("/auth/status", authHandler.StatusHandler)

	e.GET("/health", func(c echo.Context) error {
		return c.String(http.StatusOK, "OK")
	})

	// Protected API routes
	protected := e.Group("/api")
	protected.Use(middleware.AuthMiddleware(authHandler))

	// Inbox list routes
	protected.GET("/inbox", inboxHandler.GetInbox)
	protected.POST("/inbox/next", inboxHandler.NextPage)
	protected.POST("/inbox/prev", inboxHandler.PrevPage)
	protected.POST("/inbox/open", inboxHandler.OpenMessage)

	// Open detail view routes
	protected.GET("/inbox/view", inboxHandler.GetView)
	protected.POST("/inbox/view/edit", inboxHandler.EditReply)
	protected.POST("/inbox/view/focus", inboxHandler.FocusReply)
	protected.POST("/inbox/view/send", inboxHandler.SendReply)
	protected.POST("/inbox/view/back", inboxHandler.Back)
	protected.POST("/inbox/view/delete", inboxHandler.DeleteDraft)
	protected.POST("/inbox/view/calendar", inboxHandler.AddToCalendar)

	// Real-time view updates via Server-Sent Events (SSE)
	protected.GET("/sse", inboxHandler.ViewEvents)
}
