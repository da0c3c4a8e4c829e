package handler

import (
	"context"

	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// WsHandler websocket 接入，鉴权由 JWT 中间件完成（浏览器通过 ?token= 传入）
type WsHandler struct {
	hub        *broadcast.Hub
	client     broadcast.ClientHandler
	sendBuffer int
}

// NewWsHandler sendBuffer 为每条连接的发送缓冲
func NewWsHandler(hub *broadcast.Hub, chats service.ChatService, messages service.MessageService, sendBuffer int) *WsHandler {
	return &WsHandler{
		hub:        hub,
		client:     &wsClient{chats: chats, messages: messages},
		sendBuffer: sendBuffer,
	}
}

// Connect GET /ws
func (h *WsHandler) Connect(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	// Upgrade 失败时已经写过响应
	if err := broadcast.Serve(h.hub, h.client, c.Writer, c.Request, userID, h.sendBuffer); err != nil {
		zap.L().Warn("ws upgrade failed", zap.Int64("userId", userID), zap.Error(err))
	}
}

// wsClient 把客户端上行动作映射到业务服务
type wsClient struct {
	chats    service.ChatService
	messages service.MessageService
}

// InitialChats 连接建立后自动订阅用户所有的会话
func (w *wsClient) InitialChats(ctx context.Context, userID int64) ([]int64, error) {
	items, err := w.chats.GetUserChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(items))
	for _, it := range items {
		ids = append(ids, it.Chat.ID)
	}
	return ids, nil
}

// AuthorizeJoin 只有 Active 成员才能订阅会话
func (w *wsClient) AuthorizeJoin(ctx context.Context, userID, chatID int64) error {
	_, err := w.chats.GetMember(ctx, chatID, userID)
	return err
}

// Typing 转发正在输入的状态
func (w *wsClient) Typing(ctx context.Context, userID, chatID int64) error {
	return w.messages.UserTyping(ctx, chatID, userID)
}
