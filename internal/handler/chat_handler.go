package handler

import (
	"chat_fanout_server/internal/dto/request"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/internal/service"
	"chat_fanout_server/internal/service/chat"

	"github.com/gin-gonic/gin"
)

// ChatHandler 会话与成员管理
type ChatHandler struct {
	svc service.ChatService
}

// NewChatHandler 创建会话处理器
func NewChatHandler(svc service.ChatService) *ChatHandler {
	return &ChatHandler{svc: svc}
}

// CreateChat 创建单聊或群聊，单聊已存在时返回已有会话
// POST /chat/createChat
func (h *ChatHandler) CreateChat(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.CreateChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ch, err := h.svc.CreateChat(c.Request.Context(), chat.CreateChatInput{
		Type:      model.ChatType(req.Type),
		CreatorID: userID,
		MemberIDs: req.MemberIds,
		Name:      req.Name,
		Picture:   req.Picture,
	})
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, ch)
}

// GetChat GET /chat/getChat?chatId=
func (h *ChatHandler) GetChat(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatIdRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ctx := c.Request.Context()
	// 非成员看不到会话
	if _, err := h.svc.GetMember(ctx, req.ChatId, userID); err != nil {
		HandleError(c, err)
		return
	}
	ch, err := h.svc.GetChat(ctx, req.ChatId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, ch)
}

// GetUserChats 当前用户的会话列表
// GET /chat/getUserChats
func (h *ChatHandler) GetUserChats(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	items, err := h.svc.GetUserChats(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, items)
}

// GetMembers GET /chat/getMembers?chatId=
func (h *ChatHandler) GetMembers(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatIdRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ctx := c.Request.Context()
	if _, err := h.svc.GetMember(ctx, req.ChatId, userID); err != nil {
		HandleError(c, err)
		return
	}
	members, err := h.svc.GetActiveMembers(ctx, req.ChatId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, members)
}

// AddMember POST /chat/addMember
func (h *ChatHandler) AddMember(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	m, err := h.svc.AddMember(c.Request.Context(), req.ChatId, userID, req.UserId)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, m)
}

// SetAdmin POST /chat/setAdmin
func (h *ChatHandler) SetAdmin(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.SetAdminRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	m, err := h.svc.SetAdmin(c.Request.Context(), req.ChatId, userID, req.UserId, *req.IsAdmin)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, m)
}

// RemoveMember 管理员移除成员
// POST /chat/removeMember
func (h *ChatHandler) RemoveMember(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatMemberRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.RemoveMember(c.Request.Context(), req.ChatId, userID, req.UserId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// Leave POST /chat/leave
func (h *ChatHandler) Leave(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.Leave(c.Request.Context(), req.ChatId, userID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// UpdateChatInfo POST /chat/updateChatInfo
func (h *ChatHandler) UpdateChatInfo(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.UpdateChatInfoRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	ch, err := h.svc.UpdateChatInfo(c.Request.Context(), req.ChatId, userID, req.Name, req.Picture)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, ch)
}

// DeleteChat POST /chat/deleteChat
func (h *ChatHandler) DeleteChat(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ChatIdRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.DeleteChat(c.Request.Context(), req.ChatId, userID); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
