package notification

import (
	"errors"
	"net/http"
	"strconv"

	"PlannerEdu/internal/auth"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

// NotificationHandler handles HTTP requests for notifications.
type NotificationHandler struct {
	service    *NotificationService
	dispatcher QueueProcessor
	planner    ReminderPlanner
	log        *zap.Logger
}

// NewNotificationHandler creates a new NotificationHandler.
func NewNotificationHandler(service *NotificationService, dispatcher QueueProcessor, planner ReminderPlanner, log *zap.Logger) *NotificationHandler {
	return &NotificationHandler{service: service, dispatcher: dispatcher, planner: planner, log: log.Named("http")}
}

func currentUser(c echo.Context) (*auth.JWTClaims, bool) {
	claims, ok := c.Get("user").(*auth.JWTClaims)
	return claims, ok && claims != nil
}

// List returns the caller's visible notifications.
func (h *NotificationHandler) List(c echo.Context) error {
	claims, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
	}

	unreadOnly := false
	if raw := c.QueryParam("unread_only"); raw != "" {
		var err error
		unreadOnly, err = strconv.ParseBool(raw)
		if err != nil {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "unread_only must be a boolean"})
		}
	}

	notifications, err := h.service.GetUserNotifications(c.Request().Context(), claims.UserID, unreadOnly)
	if err != nil {
		h.log.Error("failed to list notifications", zap.String("user_id", claims.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Error fetching notifications"})
	}
	return c.JSON(http.StatusOK, map[string]any{"notifications": notifications})
}

// MarkAsRead marks one of the caller's notifications as read.
func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	claims, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
	}

	found, err := h.service.MarkAsRead(c.Request().Context(), claims.UserID, c.Param("id"))
	if err != nil {
		h.log.Error("failed to mark notification as read", zap.String("id", c.Param("id")), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update notification"})
	}
	if !found {
		return c.JSON(http.StatusNotFound, map[string]string{"error": "Notification not found"})
	}
	return c.JSON(http.StatusOK, map[string]string{"message": "Notification marked as read"})
}

// MarkAllAsRead marks every visible notification of the caller as read.
func (h *NotificationHandler) MarkAllAsRead(c echo.Context) error {
	claims, ok := currentUser(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, map[string]string{"error": "Invalid or missing token"})
	}

	n, err := h.service.MarkAllAsRead(c.Request().Context(), claims.UserID)
	if err != nil {
		h.log.Error("failed to mark all notifications as read", zap.String("user_id", claims.UserID), zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to update notifications"})
	}
	return c.JSON(http.StatusOK, map[string]any{"message": "Notifications marked as read", "updated": n})
}

// Create lets a professor send a notification to a user.
func (h *NotificationHandler) Create(c echo.Context) error {
	var req CreateInput
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	if err := c.Validate(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
	}
	req.DedupKey = ""

	id, err := h.service.Create(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrInvalidType) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("failed to create notification", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save notification"})
	}
	return c.JSON(http.StatusCreated, map[string]string{"id": id, "message": "Notification created"})
}

func (h *NotificationHandler) GetSettings(c echo.Context) error {
	settings, err := h.service.Settings(c.Request().Context())
	if err != nil {
		h.log.Error("failed to load settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to load settings"})
	}
	return c.JSON(http.StatusOK, settings)
}

func (h *NotificationHandler) UpdateSettings(c echo.Context) error {
	var req Settings
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "Invalid request"})
	}
	settings, err := h.service.UpdateSettings(c.Request().Context(), req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": err.Error()})
		}
		h.log.Error("failed to update settings", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to save settings"})
	}
	return c.JSON(http.StatusOK, settings)
}

// Dispatch runs an email queue pass now.
func (h *NotificationHandler) Dispatch(c echo.Context) error {
	report, err := h.dispatcher.ProcessQueue(c.Request().Context())
	if err != nil {
		h.log.Error("manual dispatch failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]string{"error": "Failed to process email queue"})
	}
	return c.JSON(http.StatusOK, report)
}

// PlanReminders runs a reminder planning pass now.
func (h *NotificationHandler) PlanReminders(c echo.Context) error {
	report, err := h.planner.PlanReminders(c.Request().Context())
	if err != nil {
		h.log.Error("manual reminder planning failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, map[string]any{"error": "Failed to plan some reminders", "report": report})
	}
	return c.JSON(http.StatusOK, report)
}
