package rest

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type NotificationHandler struct {
	svcMgr *services.ServiceManager
}

func NewNotificationHandler(svcMgr *services.ServiceManager) *NotificationHandler {
	return &NotificationHandler{svcMgr: svcMgr}
}

// GetNotifications handles GET /api/notifications
func (h *NotificationHandler) GetNotifications(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "notifications", func() (interface{}, error) {
		return h.svcMgr.Notifications.List(c.Request.Context(), user,
			c.Query("unread") == "true", QueryInt(c, "limit", 50))
	})
}

// GetUnreadCount handles GET /api/notifications/unread-count
func (h *NotificationHandler) GetUnreadCount(c *gin.Context) {
	user := GetUserFromContext(c)

	count, err := h.svcMgr.Notifications.CountUnread(c.Request.Context(), user)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"count": count})
}

// MarkAsRead handles POST /api/notifications/:id/read
func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Notification marked as read", func() error {
		return h.svcMgr.Notifications.MarkRead(c.Request.Context(), user, c.Param("id"))
	})
}

// MarkAllAsRead handles POST /api/notifications/read-all
func (h *NotificationHandler) MarkAllAsRead(c *gin.Context) {
	user := GetUserFromContext(c)

	updated, err := h.svcMgr.Notifications.MarkAllRead(c.Request.Context(), user)
	if err != nil {
		RespondAppError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": updated})
}
