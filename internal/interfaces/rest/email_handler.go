package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
	"github.com/relaycrm/backend/pkg/errors"
)

type EmailHandler struct {
	svcMgr *services.ServiceManager
}

func NewEmailHandler(svcMgr *services.ServiceManager) *EmailHandler {
	return &EmailHandler{svcMgr: svcMgr}
}

// GetHistory handles GET /api/emails?related_type=&related_id=
func (h *EmailHandler) GetHistory(c *gin.Context) {
	user := GetUserFromContext(c)

	relatedType := c.Query("related_type")
	relatedID := c.Query("related_id")
	if relatedType == "" || relatedID == "" {
		RespondAppError(c, errors.NewValidationError("related", "related_type and related_id are required"))
		return
	}

	HandleGetEnvelope(c, "emails", func() (interface{}, error) {
		return h.svcMgr.Emails.History(c.Request.Context(), user, relatedType, relatedID)
	})
}
