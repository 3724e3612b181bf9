package handler

import (
	"github.com/killthisworld/vybrix/internal/service"
)

// Handler 聚合 HTTP 处理器依赖
type Handler struct {
	msgSvc   service.MessageService
	matchSvc *service.MatchService
}

func New(msgSvc service.MessageService, matchSvc *service.MatchService) *Handler {
	return &Handler{msgSvc: msgSvc, matchSvc: matchSvc}
}
