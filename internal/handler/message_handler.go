package handler

import (
	"chat_fanout_server/internal/dto/request"
	"chat_fanout_server/internal/service"
	"chat_fanout_server/internal/service/message"
	"chat_fanout_server/pkg/pagination"

	"github.com/gin-gonic/gin"
)

// MessageHandler 消息收发
type MessageHandler struct {
	svc service.MessageService
}

// NewMessageHandler 创建消息处理器
func NewMessageHandler(svc service.MessageService) *MessageHandler {
	return &MessageHandler{svc: svc}
}

// SendMessage 写入消息后由服务端推送给会话成员
// POST /message/sendMessage
func (h *MessageHandler) SendMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.SendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	view, err := h.svc.InsertMessage(c.Request.Context(), message.SendMessageInput{
		ChatID:   req.ChatId,
		SenderID: userID,
		Content:  req.Content,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, view)
}

// UpdateLastSeen POST /message/updateLastSeen
func (h *MessageHandler) UpdateLastSeen(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.UpdateLastSeenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	m, err := h.svc.UpdateLastSeenMessage(c.Request.Context(), req.ChatId, userID, req.MessageId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, m)
}

// UpdateMessage 仅发送者可编辑
// POST /message/updateMessage
func (h *MessageHandler) UpdateMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.UpdateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	view, err := h.svc.UpdateMessage(c.Request.Context(), req.MessageId, userID, req.Content)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, view)
}

// DeleteMessage POST /message/deleteMessage
func (h *MessageHandler) DeleteMessage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.MessageIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.DeleteMessage(c.Request.Context(), req.MessageId, userID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// GetMessagePage GET /message/getMessagePage?chatId=&page=&pageSize=
func (h *MessageHandler) GetMessagePage(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.MessagePageRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	page, err := h.svc.GetMessagePage(c.Request.Context(), req.ChatId, userID, pagination.Params{
		Page:     req.Page,
		PageSize: req.PageSize,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, page)
}

// Typing 没有 websocket 的客户端走这里
// POST /message/typing
func (h *MessageHandler) Typing(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.UserTyping(c.Request.Context(), req.ChatId, userID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
