package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killthisworld/vybrix/internal/model"
	"github.com/killthisworld/vybrix/internal/service"
	"github.com/killthisworld/vybrix/pkg/response"
)

type runMatchRequest struct {
	// PoolDay 缺省为当前 UTC 池日
	PoolDay string `json:"pool_day" binding:"omitempty,pool_day"`
}

// RunMatch 手动触发一轮匹配（cron 调用入口）
// @Summary 对指定池日执行一轮匹配
// @Tags 匹配
// @Accept json
// @Produce json
// @Param request body runMatchRequest false "池日（YYYY-MM-DD）"
// @Success 200 {object} response.Response{data=service.CycleReport}
// @Failure 400 {object} response.Response
// @Failure 409 {object} response.Response
// @Router /api/v1/internal/match/run [post]
func (h *Handler) RunMatch(c *gin.Context) {
	var req runMatchRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.BadRequest(c, err.Error())
			return
		}
	}

	now := time.Now().UTC()
	poolDay := req.PoolDay
	if poolDay == "" {
		poolDay = model.PoolDayOf(now)
	}

	report, err := h.matchSvc.RunCycle(c.Request.Context(), poolDay, now)
	switch {
	case errors.Is(err, service.ErrInvalidPoolDay):
		response.BadRequest(c, err.Error())
	case errors.Is(err, service.ErrCycleInFlight):
		response.Conflict(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, report)
	}
}
