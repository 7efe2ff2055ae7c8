package ledger

import (
	"net/http"
	"strconv"
	"time"

	"hrm-server/internal/shared/apperror"
	"hrm-server/internal/shared/response"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service Service
	logger  *zap.Logger
}

func NewHandler(service Service, logger ...*zap.Logger) *Handler {
	l := zap.L().Named("ledger.handler")
	if len(logger) > 0 && logger[0] != nil {
		l = logger[0].Named("ledger.handler")
	}
	return &Handler{service: service, logger: l}
}

func getActorID(c *gin.Context) string {
	actorID := c.GetString("employee_id")
	if actorID == "" {
		actorID = c.GetString("user_id_validated")
	}
	return actorID
}

// canReadEmployee lets employees read their own ledger and HR/admin read any.
func canReadEmployee(c *gin.Context, employeeID string) bool {
	switch c.GetString("role") {
	case "hr", "admin":
		return true
	}
	return employeeID == getActorID(c)
}

func (h *Handler) writeServiceError(c *gin.Context, err error) {
	httpErr := apperror.ToHTTP(err)
	if httpErr.Status >= http.StatusInternalServerError {
		h.logger.Error("ledger request failed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Error(err),
		)
	} else {
		h.logger.Warn("ledger request rejected",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", httpErr.Status),
			zap.String("code", httpErr.Code),
			zap.String("message", httpErr.Message),
		)
	}
	response.Error(c, httpErr.Status, httpErr.Code, httpErr.Message, httpErr.Details)
}

func (h *Handler) writeBindError(c *gin.Context, err error) {
	appErr := apperror.ToHTTP(apperror.MapValidationError(err))
	response.Error(c, http.StatusBadRequest, apperror.CodeValidation, appErr.Message, appErr.Details)
}

func yearQuery(c *gin.Context) int {
	year, err := strconv.Atoi(c.DefaultQuery("year", ""))
	if err != nil {
		return time.Now().UTC().Year()
	}
	return year
}

func (h *Handler) GetBalance(c *gin.Context) {
	employeeID := c.Param("employee_id")
	if !canReadEmployee(c, employeeID) {
		h.writeServiceError(c, apperror.ErrForbidden)
		return
	}
	leaveType := c.Query("leave_type")
	if leaveType == "" {
		response.Error(c, http.StatusBadRequest, apperror.CodeValidation, "Leave Type is required", nil)
		return
	}

	resp, err := h.service.GetBalance(c.Request.Context(), employeeID, leaveType, yearQuery(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}

func (h *Handler) ListEntries(c *gin.Context) {
	employeeID := c.Param("employee_id")
	if !canReadEmployee(c, employeeID) {
		h.writeServiceError(c, apperror.ErrForbidden)
		return
	}
	leaveType := c.Query("leave_type")
	if leaveType == "" {
		response.Error(c, http.StatusBadRequest, apperror.CodeValidation, "Leave Type is required", nil)
		return
	}

	resp, err := h.service.ListEntries(c.Request.Context(), employeeID, leaveType, yearQuery(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	meta := response.NewPaginationMeta(int64(len(resp)), 1, len(resp))
	response.Success(c, http.StatusOK, resp, &meta)
}

func (h *Handler) PostEntry(c *gin.Context) {
	var req PostEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.PostEntry(c.Request.Context(), getActorID(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) CarryForward(c *gin.Context) {
	var req CarryForwardRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.CarryForward(c.Request.Context(), c.GetString("org_id"), getActorID(c), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Reverse(c *gin.Context) {
	var req ReverseEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.writeBindError(c, err)
		return
	}

	resp, err := h.service.Reverse(c.Request.Context(), getActorID(c), c.Param("entry_id"), req)
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusCreated, resp, nil)
}

func (h *Handler) Recompute(c *gin.Context) {
	leaveType := c.Query("leave_type")
	if leaveType == "" {
		response.Error(c, http.StatusBadRequest, apperror.CodeValidation, "Leave Type is required", nil)
		return
	}

	resp, err := h.service.Recompute(c.Request.Context(), c.Param("employee_id"), leaveType, yearQuery(c))
	if err != nil {
		h.writeServiceError(c, err)
		return
	}
	response.Success(c, http.StatusOK, resp, nil)
}
