package ai

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/rankforge/core/internal/modules/content/render"
	"github.com/rankforge/core/internal/pkg/pagination"
	"github.com/rankforge/core/internal/pkg/response"
	"github.com/rankforge/core/internal/pkg/taskqueue"
)

type Handler struct{ svc *Service }

func NewHandler(svc *Service) *Handler { return &Handler{svc: svc} }

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup, authMW gin.HandlerFunc) {
	rg.GET("/generation/records/:id/html", h.recordHTML)

	g := rg.Group("/generation", authMW)
	g.POST("/personas", h.generatePersonas)
	g.POST("/titles", h.generateTitles)
	g.POST("/keywords", h.generateKeywords)
	g.POST("/blog/tasks", h.createBlogTask)
	g.GET("/blog/stream", h.streamBlog)
	g.GET("/records", h.listRecords)
	g.GET("/records/:id", h.getRecord)
	g.GET("/tasks", h.listTasks)
	g.GET("/tasks/:id", h.getTask)
	g.POST("/tasks/:id/cancel", h.cancelTask)
	g.POST("/tasks/:id/retry", h.retryTask)
	g.DELETE("/tasks/:id", h.deleteTask)
	g.DELETE("/tasks", h.batchDeleteTasks)
}

func (h *Handler) writeGenerationError(c *gin.Context, err error) {
	var exhausted *EngineExhaustedError
	switch {
	case errors.Is(err, errGenerationDisabled):
		response.ServiceUnavailable(c, errGenerationDisabled.Error())
	case errors.Is(err, errProductNotFound):
		response.NotFoundMsg(c, "one or more products were not found")
	case errors.Is(err, errKeywordRequired):
		response.BadRequest(c, errKeywordRequired.Error())
	case errors.As(err, &exhausted):
		response.ServiceUnavailable(c, "all generation providers failed")
	default:
		response.InternalError(c, err)
	}
}

// POST /generation/personas  [auth]
func (h *Handler) generatePersonas(c *gin.Context) {
	var dto generateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	record, err := h.svc.GeneratePersonas(c.Request.Context(), dto)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	response.Created(c, record)
}

// POST /generation/titles  [auth]
func (h *Handler) generateTitles(c *gin.Context) {
	var dto generateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	record, err := h.svc.GenerateTitles(c.Request.Context(), dto)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	response.Created(c, record)
}

// POST /generation/keywords  [auth]
func (h *Handler) generateKeywords(c *gin.Context) {
	var dto generateDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	record, err := h.svc.GenerateKeywords(c.Request.Context(), dto)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	response.Created(c, record)
}

// POST /generation/blog/tasks  [auth]
func (h *Handler) createBlogTask(c *gin.Context) {
	var dto blogTaskDTO
	if err := c.ShouldBindJSON(&dto); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	task, err := h.svc.EnqueueBlog(c.Request.Context(), dto)
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	response.Created(c, task)
}

// GET /generation/blog/stream?product_id=&keyword=&persona=  [auth]
func (h *Handler) streamBlog(c *gin.Context) {
	h.svc.StreamBlog(c, c.Query("product_id"), c.Query("keyword"), c.Query("persona"))
}

// GET /generation/records  [auth]
func (h *Handler) listRecords(c *gin.Context) {
	q := pagination.FromContext(c)
	rows, p, err := h.svc.ListRecords(q, c.Query("kind"), c.Query("product_id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	response.Paged(c, rows, p)
}

// GET /generation/records/:id  [auth]
func (h *Handler) getRecord(c *gin.Context) {
	record, err := h.svc.GetRecord(c.Param("id"))
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	response.OK(c, record)
}

// GET /generation/records/:id/html renders a stored blog post as a standalone page (public).
func (h *Handler) recordHTML(c *gin.Context) {
	record, err := h.svc.GetRecord(c.Param("id"))
	if err != nil {
		if errors.Is(err, errRecordNotFound) {
			response.NotFound(c)
			return
		}
		response.InternalError(c, err)
		return
	}
	if record.Kind != KindBlog {
		response.BadRequest(c, "record is not a blog post")
		return
	}

	title := record.Title
	if strings.TrimSpace(title) == "" {
		title = record.Keyword
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.String(200, render.Document(title, record.Content))
}

// GET /generation/tasks  [auth]
func (h *Handler) listTasks(c *gin.Context) {
	q := pagination.FromContext(c)

	taskType := strings.TrimSpace(c.Query("type"))
	if taskType == "" {
		taskType = TaskTypeBlog
	}
	var statusPtr *taskqueue.TaskStatus
	if statusStr := strings.TrimSpace(c.Query("status")); statusStr != "" {
		s := taskqueue.TaskStatus(statusStr)
		statusPtr = &s
	}

	tasks, total, err := h.svc.taskSvc.List(c.Request.Context(), q.Page, q.Size, &taskType, statusPtr)
	if err != nil {
		response.InternalError(c, err)
		return
	}

	totalPages := int((total + int64(q.Size) - 1) / int64(q.Size))
	response.Paged(c, tasks, response.Pagination{
		Total:       total,
		CurrentPage: q.Page,
		TotalPage:   totalPages,
		Size:        q.Size,
		HasNextPage: q.Page < totalPages,
	})
}

// GET /generation/tasks/:id  [auth]
func (h *Handler) getTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	response.OK(c, task)
}

// POST /generation/tasks/:id/cancel  [auth]
func (h *Handler) cancelTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.InternalError(c, err)
		return
	}
	if task == nil {
		response.NotFound(c)
		return
	}
	if task.Status == taskqueue.TaskCompleted ||
		task.Status == taskqueue.TaskFailed ||
		task.Status == taskqueue.TaskCancelled {
		response.BadRequest(c, "task already finished")
		return
	}
	if task.Status == taskqueue.TaskRunning {
		if err := h.svc.taskSvc.UpdateStatus(c.Request.Context(), task.ID, taskqueue.TaskCancelled, nil, "cancelled by user"); err != nil {
			response.InternalError(c, err)
			return
		}
		response.NoContent(c)
		return
	}
	if err := h.svc.taskSvc.Cancel(c.Request.Context(), task.ID); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// POST /generation/tasks/:id/retry  [auth]
func (h *Handler) retryTask(c *gin.Context) {
	task, err := h.svc.taskSvc.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil || task == nil {
		response.NotFound(c)
		return
	}
	if task.Status != taskqueue.TaskFailed && task.Status != taskqueue.TaskCancelled {
		response.BadRequest(c, "only failed or cancelled tasks can be retried")
		return
	}

	var payload BlogTaskPayload
	if err := json.Unmarshal(task.Payload, &payload); err != nil {
		response.BadRequest(c, "invalid task payload")
		return
	}

	newTask, err := h.svc.EnqueueBlog(c.Request.Context(), blogTaskDTO{
		ProductID: payload.ProductID,
		Keyword:   payload.Keyword,
		Persona:   payload.Persona,
	})
	if err != nil {
		h.writeGenerationError(c, err)
		return
	}
	response.Created(c, newTask)
}

// DELETE /generation/tasks/:id  [auth]
func (h *Handler) deleteTask(c *gin.Context) {
	if err := h.svc.taskSvc.DeleteByID(c.Request.Context(), c.Param("id")); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	response.NoContent(c)
}

// DELETE /generation/tasks?before=<unix_ms>  [auth]
func (h *Handler) batchDeleteTasks(c *gin.Context) {
	var before int64
	if beforeStr := c.Query("before"); beforeStr != "" {
		if v, err := strconv.ParseInt(beforeStr, 10, 64); err == nil {
			before = v
		}
	}
	if err := h.svc.taskSvc.DeleteCompleted(c.Request.Context(), before); err != nil {
		response.InternalError(c, err)
		return
	}
	response.NoContent(c)
}
