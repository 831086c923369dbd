package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type ApprovalHandler struct {
	svcMgr *services.ServiceManager
}

func NewApprovalHandler(svcMgr *services.ServiceManager) *ApprovalHandler {
	return &ApprovalHandler{svcMgr: svcMgr}
}

// CreateProcess handles POST /api/approvals/processes (admin only)
func (h *ApprovalHandler) CreateProcess(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name           string  `json:"name"`
		ObjectType     string  `json:"object_type"`
		EntryCondition string  `json:"entry_condition"`
		ApproverType   string  `json:"approver_type"`
		ApproverID     *string `json:"approver_id"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "process", "Approval process created", func() (interface{}, error) {
		return h.svcMgr.Approvals.CreateProcess(c.Request.Context(), user, services.ProcessInput{
			Name:           req.Name,
			ObjectType:     req.ObjectType,
			EntryCondition: req.EntryCondition,
			ApproverType:   req.ApproverType,
			ApproverID:     req.ApproverID,
		})
	})
}

// GetProcesses handles GET /api/approvals/processes
func (h *ApprovalHandler) GetProcesses(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "processes", func() (interface{}, error) {
		return h.svcMgr.Approvals.ListProcesses(c.Request.Context(), user, c.Query("object_type"))
	})
}

// GetInbox handles GET /api/approvals/inbox
func (h *ApprovalHandler) GetInbox(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "items", func() (interface{}, error) {
		return h.svcMgr.Approvals.Inbox(c.Request.Context(), user)
	})
}

// GetHistory handles GET /api/approvals/history?object_type=&record_id=
func (h *ApprovalHandler) GetHistory(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "items", func() (interface{}, error) {
		return h.svcMgr.Approvals.History(c.Request.Context(), user,
			c.Query("object_type"), c.Query("record_id"))
	})
}

// GetWorkItem handles GET /api/approvals/items/:id
func (h *ApprovalHandler) GetWorkItem(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "item", func() (interface{}, error) {
		return h.svcMgr.Approvals.GetWorkItem(c.Request.Context(), user, c.Param("id"))
	})
}

// Decide handles POST /api/approvals/items/:id/decide
func (h *ApprovalHandler) Decide(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Approved bool   `json:"approved"`
		Comments string `json:"comments"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleUpdateEnvelope(c, "item", "Decision recorded", func() (interface{}, error) {
		return h.svcMgr.Approvals.Decide(c.Request.Context(), user, c.Param("id"),
			req.Approved, req.Comments)
	})
}

// Recall handles POST /api/approvals/items/:id/recall
func (h *ApprovalHandler) Recall(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "item", "Submission recalled", func() (interface{}, error) {
		return h.svcMgr.Approvals.Recall(c.Request.Context(), user, c.Param("id"))
	})
}
