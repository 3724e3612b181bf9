package handler

import (
	"errors"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/killthisworld/vybrix/internal/service"
	"github.com/killthisworld/vybrix/pkg/response"
)

type sendRequest struct {
	Content string `json:"content" binding:"required,max=2000"`
	Token   string `json:"token"`
	Email   string `json:"email" binding:"omitempty,email"`
}

// Send 投递今天的匿名消息
// @Summary 发送匿名消息（每人每天一条）
// @Tags 消息
// @Accept json
// @Produce json
// @Param request body sendRequest true "消息内容"
// @Success 200 {object} response.Response
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Failure 429 {object} response.Response
// @Router /api/v1/messages [post]
func (h *Handler) Send(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	res, err := h.msgSvc.Send(c.Request.Context(), req.Content, req.Token, req.Email)
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, err.Error())
	case errors.Is(err, service.ErrDailyLimit):
		response.TooManyRequests(c, err.Error())
	case errors.Is(err, service.ErrEmptyContent):
		response.BadRequest(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, res)
	}
}

// Receive 查询今天这条消息的投递状态
// @Summary 轮询匹配结果
// @Tags 消息
// @Produce json
// @Param token query string true "匿名 token"
// @Success 200 {object} response.Response{data=service.ReceiveResult}
// @Failure 400 {object} response.Response
// @Failure 401 {object} response.Response
// @Router /api/v1/messages/today [get]
func (h *Handler) Receive(c *gin.Context) {
	token := c.Query("token")
	if token == "" {
		response.BadRequest(c, "token is required")
		return
	}
	res, err := h.msgSvc.Receive(c.Request.Context(), token, time.Now().UTC())
	switch {
	case errors.Is(err, service.ErrInvalidToken):
		response.Unauthorized(c, err.Error())
	case err != nil:
		response.InternalError(c, err)
	default:
		response.Success(c, res)
	}
}
