package handler

import (
	"chat_fanout_server/internal/dto/request"
	"chat_fanout_server/internal/service"

	"github.com/gin-gonic/gin"
)

// ContactHandler 联系人接口
type ContactHandler struct {
	svc service.ContactService
}

// NewContactHandler 创建联系人处理器
func NewContactHandler(svc service.ContactService) *ContactHandler {
	return &ContactHandler{svc: svc}
}

// ListContacts GET /contact/list
func (h *ContactHandler) ListContacts(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	contacts, err := h.svc.ListContacts(c.Request.Context(), userID)
	if err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, contacts)
}

// ApproveContact 通过对方的联系人请求
// POST /contact/approve
func (h *ContactHandler) ApproveContact(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.ApproveContact(c.Request.Context(), userID, req.ContactId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}

// DeleteContact POST /contact/delete
func (h *ContactHandler) DeleteContact(c *gin.Context) {
	userID, ok := mustUserID(c)
	if !ok {
		return
	}
	var req request.ContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		HandleParamError(c, err)
		return
	}
	if err := h.svc.DeleteContact(c.Request.Context(), userID, req.ContactId); err != nil {
		HandleError(c, err)
		return
	}
	HandleSuccess(c, nil)
}
