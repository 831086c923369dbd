package rest

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/relaycrm/backend/internal/application/services"
)

type TaskHandler struct {
	svcMgr *services.ServiceManager
}

func NewTaskHandler(svcMgr *services.ServiceManager) *TaskHandler {
	return &TaskHandler{svcMgr: svcMgr}
}

// CreateTask handles POST /api/tasks
func (h *TaskHandler) CreateTask(c *gin.Context) {
	user := GetUserFromContext(c)

	var req struct {
		OwnerID     string     `json:"owner_id"`
		Subject     string     `json:"subject"`
		DueDate     *time.Time `json:"due_date"`
		RelatedType string     `json:"related_type"`
		RelatedID   string     `json:"related_id"`
	}
	if !BindJSON(c, &req) {
		return
	}

	HandleCreateEnvelope(c, "task", "Task created", func() (interface{}, error) {
		return h.svcMgr.Tasks.Create(c.Request.Context(), user, services.TaskInput{
			OwnerID:     req.OwnerID,
			Subject:     req.Subject,
			DueDate:     req.DueDate,
			RelatedType: req.RelatedType,
			RelatedID:   req.RelatedID,
		})
	})
}

// GetTask handles GET /api/tasks/:id
func (h *TaskHandler) GetTask(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "task", func() (interface{}, error) {
		return h.svcMgr.Tasks.Get(c.Request.Context(), user, c.Param("id"))
	})
}

// GetTasks handles GET /api/tasks
func (h *TaskHandler) GetTasks(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleGetEnvelope(c, "tasks", func() (interface{}, error) {
		return h.svcMgr.Tasks.List(c.Request.Context(), user,
			c.Query("status"), QueryInt(c, "limit", 50))
	})
}

// CompleteTask handles POST /api/tasks/:id/complete
func (h *TaskHandler) CompleteTask(c *gin.Context) {
	user := GetUserFromContext(c)

	HandleUpdateEnvelope(c, "task", "Task completed", func() (interface{}, error) {
		return h.svcMgr.Tasks.Complete(c.Request.Context(), user, c.Param("id"))
	})
}
