// Package handler gin 请求处理器，通过构造函数注入 Service
package handler

import (
	"chat_fanout_server/internal/config"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/service"
)

// Handlers 聚合所有 Handler 实例，Router 层通过此结构访问
type Handlers struct {
	Chat    *ChatHandler
	Message *MessageHandler
	Contact *ContactHandler
	Ws      *WsHandler
}

// NewHandlers 组装所有处理器
func NewHandlers(svc *service.Services, hub *broadcast.Hub, cfg *config.Config) *Handlers {
	return &Handlers{
		Chat:    NewChatHandler(svc.Chat),
		Message: NewMessageHandler(svc.Message),
		Contact: NewContactHandler(svc.Contact),
		Ws:      NewWsHandler(hub, svc.Chat, svc.Message, cfg.BroadcastConfig.SendBuffer),
	}
}
