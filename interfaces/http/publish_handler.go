package http

import (
	"bytes"
	"io"
	"strconv"

	"github.com/gin-gonic/gin"

	"social-ops/domain/dto"
	"social-ops/domain/repository"
	"social-ops/infrastructure/logger"
	"social-ops/infrastructure/realtime"
	"social-ops/usecase"
)

type IPublishHandler interface {
	Create(c *gin.Context)
	List(c *gin.Context)
	Get(c *gin.Context)
	Update(c *gin.Context)
	Delete(c *gin.Context)
	UpsertContent(c *gin.Context)
	ListContents(c *gin.Context)
	Trigger(c *gin.Context)
	CancelSchedule(c *gin.Context)
	Callback(c *gin.Context)
	Records(c *gin.Context)
	Executions(c *gin.Context)
	Stream(c *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
	hub            *realtime.Hub
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase, hub *realtime.Hub) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase, hub: hub}
}

func (h *PublishHandler) Create(c *gin.Context) {
	var req dto.CreateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	task, err := h.publishUsecase.CreateTask(c.Request.Context(), c.GetString("user_id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, task)
}

func (h *PublishHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	tasks, err := h.publishUsecase.ListTasks(c.Request.Context(), c.GetString("user_id"), limit, offset)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, tasks)
}

func (h *PublishHandler) Get(c *gin.Context) {
	task, err := h.publishUsecase.GetTask(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, task)
}

func (h *PublishHandler) Update(c *gin.Context) {
	var req dto.UpdateTaskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	task, err := h.publishUsecase.UpdateTask(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, task)
}

func (h *PublishHandler) Delete(c *gin.Context) {
	if err := h.publishUsecase.DeleteTask(c.Request.Context(), c.GetString("user_id"), c.Param("taskId")); err != nil {
		fail(c, err)
		return
	}
	ok(c, nil)
}

func (h *PublishHandler) UpsertContent(c *gin.Context) {
	var req dto.PlatformContentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	content, err := h.publishUsecase.UpsertPlatformContent(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, content)
}

func (h *PublishHandler) ListContents(c *gin.Context) {
	contents, err := h.publishUsecase.ListPlatformContents(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, contents)
}

func (h *PublishHandler) Trigger(c *gin.Context) {
	var req dto.TriggerRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
			badRequest(c, err.Error())
			return
		}
	}
	task, err := h.publishUsecase.Trigger(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, task)
}

func (h *PublishHandler) CancelSchedule(c *gin.Context) {
	task, err := h.publishUsecase.CancelSchedule(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, task)
}

// Callback handles POST /publish/callback from the workflow engine. The raw
// body is kept for the audit archive.
func (h *PublishHandler) Callback(c *gin.Context) {
	raw, err := io.ReadAll(c.Request.Body)
	if err != nil {
		badRequest(c, err.Error())
		return
	}
	c.Request.Body = io.NopCloser(bytes.NewReader(raw))

	var req dto.CallbackRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.GetLogger().WithField("error", err).Error(ErrorUnmarshal)
		badRequest(c, err.Error())
		return
	}
	task, err := h.publishUsecase.HandleCallback(c.Request.Context(), req, raw)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, gin.H{"task_id": task.ID, "status": task.Status})
}

func (h *PublishHandler) Records(c *gin.Context) {
	records, err := h.publishUsecase.ListRecords(c.Request.Context(), c.GetString("user_id"), c.Param("taskId"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, records)
}

func (h *PublishHandler) Executions(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "0"))
	opts := repository.ExecutionListOptions{
		WorkflowID: c.Query("workflowId"),
		Status:     c.Query("status"),
		Limit:      limit,
	}
	executions, err := h.publishUsecase.ListExecutions(c.Request.Context(), opts)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, executions)
}

// Stream handles GET /api/publish/stream as a server-sent event feed.
func (h *PublishHandler) Stream(c *gin.Context) {
	h.hub.Serve(c)
}
