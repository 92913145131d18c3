package v1

import (
	"net/http"

	"github.com/freelanceops/billing/internal/api/dto"
	ierr "github.com/freelanceops/billing/internal/errors"
	"github.com/freelanceops/billing/internal/logger"
	"github.com/freelanceops/billing/internal/service"
	"github.com/freelanceops/billing/internal/types"
	"github.com/gin-gonic/gin"
)

type TaskHandler struct {
	taskService         service.TaskService
	notificationService service.NotificationService
	logger              *logger.Logger
}

func NewTaskHandler(
	taskService service.TaskService,
	notificationService service.NotificationService,
	logger *logger.Logger,
) *TaskHandler {
	return &TaskHandler{
		taskService:         taskService,
		notificationService: notificationService,
		logger:              logger,
	}
}

// ListTasks godoc
// @Summary List tasks
// @Tags Tasks
// @Produce json
// @Param filter query types.TaskFilter false "Filter"
// @Success 200 {object} dto.ListTasksResponse
// @Router /tasks [get]
func (h *TaskHandler) ListTasks(c *gin.Context) {
	filter := types.NewTaskFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.taskService.ListTasks(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// GetTask godoc
// @Summary Get a task
// @Tags Tasks
// @Produce json
// @Param id path string true "Task ID"
// @Success 200 {object} dto.TaskResponse
// @Router /tasks/{id} [get]
func (h *TaskHandler) GetTask(c *gin.Context) {
	resp, err := h.taskService.GetTask(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// UpdateTaskStatus godoc
// @Summary Move a task to a new status
// @Tags Tasks
// @Accept json
// @Produce json
// @Param id path string true "Task ID"
// @Param request body dto.UpdateTaskStatusRequest true "Status"
// @Success 200 {object} dto.TaskResponse
// @Router /tasks/{id}/status [put]
func (h *TaskHandler) UpdateTaskStatus(c *gin.Context) {
	var req dto.UpdateTaskStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid request").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.taskService.UpdateTaskStatus(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// ListNotifications godoc
// @Summary List in-app notifications
// @Tags Notifications
// @Produce json
// @Param filter query types.NotificationFilter false "Filter"
// @Success 200 {object} dto.ListNotificationsResponse
// @Router /notifications [get]
func (h *TaskHandler) ListNotifications(c *gin.Context) {
	filter := types.NewNotificationFilter()
	if err := c.ShouldBindQuery(filter); err != nil {
		c.Error(ierr.WithError(err).WithHint("invalid query parameters").Mark(ierr.ErrValidation))
		return
	}

	resp, err := h.notificationService.ListNotifications(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}

// MarkNotificationRead godoc
// @Summary Mark a notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification ID"
// @Success 200 {object} dto.NotificationResponse
// @Router /notifications/{id}/read [post]
func (h *TaskHandler) MarkNotificationRead(c *gin.Context) {
	resp, err := h.notificationService.MarkRead(c.Request.Context(), c.Param("id"))
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, resp)
}
