package rest

import (
	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type WorkflowHandler struct {
	svcMgr *services.ServiceManager
}

func NewWorkflowHandler(svcMgr *services.ServiceManager) *WorkflowHandler {
	return &WorkflowHandler{svcMgr: svcMgr}
}

// CreateWorkflow handles POST /api/workflows (admin only)
func (h *WorkflowHandler) CreateWorkflow(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		Name         string  `json:"name"`
		ObjectType   string  `json:"object_type"`
		TriggerType  string  `json:"trigger_type"`
		Condition    string  `json:"condition_expr"`
		ActionType   string  `json:"action_type"`
		ActionConfig string  `json:"action_config"`
		Schedule     *string `json:"schedule"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "workflow", "Workflow created", func() (interface{}, error) {
		return h.svcMgr.Workflows.Create(c.Request.Context(), user, services.WorkflowInput{
			Name:         req.Name,
			ObjectType:   req.ObjectType,
			TriggerType:  req.TriggerType,
			Condition:    req.Condition,
			ActionType:   req.ActionType,
			ActionConfig: req.ActionConfig,
			Schedule:     req.Schedule,
		})
	})
}

// GetWorkflow handles GET /api/workflows/:id
func (h *WorkflowHandler) GetWorkflow(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "workflow", func() (interface{}, error) {
		return h.svcMgr.Workflows.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetWorkflows handles GET /api/workflows
func (h *WorkflowHandler) GetWorkflows(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "workflows", func() (interface{}, error) {
		return h.svcMgr.Workflows.List(c.Request.Context(), user)
	})
}

// UpdateWorkflow handles PUT /api/workflows/:id (admin only)
func (h *WorkflowHandler) UpdateWorkflow(c *gin.Context) {
	user := GetUserFromContext(c)

	var updates map[string]interface{}
	if !BindJSON(c, &updates) {
		return
	}

	HandleUpdateEnvelope(c, "workflow", "Workflow updated", func() (interface{}, error) {
		return h.svcMgr.Workflows.Update(c.Request.Context(), user, c.Param("id"), updates)
	})
}

// DeleteWorkflow handles DELETE /api/workflows/:id (admin only)
func (h *WorkflowHandler) DeleteWorkflow(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleDeleteEnvelope(c, "Workflow deleted", func() error {
		return h.svcMgr.Workflows.Delete(c.Request.Context(), user, c.Param("id"))
	})
}
