package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type ContactHandler struct {
	svcMgr *services.ServiceManager
}

func NewContactHandler(svcMgr *services.ServiceManager) *ContactHandler {
	return &ContactHandler{svcMgr: svcMgr}
}

// CreateContact handles POST /api/contacts
func (h *ContactHandler) CreateContact(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		AccountID *string `json:"account_id"`
		FirstName string  `json:"first_name"`
		LastName  string  `json:"last_name"`
		Email     string  `json:"email"`
		Phone     string  `json:"phone"`
		Title     string  `json:"title"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "contact", "Contact created", func() (interface{}, error) {
		return h.svcMgr.Contacts.Create(c.Request.Context(), user, services.ContactInput{
			AccountID: req.AccountID,
			FirstName: req.FirstName,
			LastName:  req.LastName,
			Email:     req.Email,
			Phone:     req.Phone,
			Title:     req.Title,
		})
	})
}

// GetContact handles GET /api/contacts/:id
func (h *ContactHandler) GetContact(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "contact", func() (interface{}, error) {
		return h.svcMgr.Contacts.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetContacts handles GET /api/contacts
func (h *ContactHandler) GetContacts(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "contacts", func() (interface{}, error) {
		return h.svcMgr.Contacts.List(c.Request.Context(), user,
			c.Query("account_id"), QueryInt(c, "limit", 50), QueryInt(c, "offset", 0))
	})
}

// UpdateContact handles PUT /api/contacts/:id
func (h *ContactHandler) UpdateContact(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "contact", "Contact updated", func() (interface{}, error) {
		return h.svcMgr.Contacts.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// DeleteContact handles DELETE /api/contacts/:id
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Contact deleted", func() error {
		return h.svcMgr.Contacts.Delete(c.Request.Context(), user, c.Param("id"))
	})
}
