// Package router 路由注册入口
package router

import (
	"net/http"

	"chat_fanout_server/internal/handler"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Router 持有 Handler 聚合和鉴权、限流中间件
type Router struct {
	handlers  *handler.Handlers
	auth      gin.HandlerFunc
	rateLimit gin.HandlerFunc
}

// NewRouter auth 与 rateLimit 由调用方注入，便于测试替换
func NewRouter(handlers *handler.Handlers, auth, rateLimit gin.HandlerFunc) *Router {
	return &Router{handlers: handlers, auth: auth, rateLimit: rateLimit}
}

// RegisterRoutes 注册所有路由
func (rt *Router) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// websocket 只鉴权不限流，长连接一次握手
	r.GET("/ws", rt.auth, rt.handlers.Ws.Connect)

	api := r.Group("/", rt.auth, rt.rateLimit)
	rt.RegisterChatRoutes(api.Group("/chat"))
	rt.RegisterMessageRoutes(api.Group("/message"))
	rt.RegisterContactRoutes(api.Group("/contact"))
}

// RegisterChatRoutes 会话与成员管理
func (rt *Router) RegisterChatRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Chat
	rg.POST("/createChat", h.CreateChat)
	rg.GET("/getChat", h.GetChat)
	rg.GET("/getUserChats", h.GetUserChats)
	rg.GET("/getMembers", h.GetMembers)
	rg.POST("/addMember", h.AddMember)
	rg.POST("/setAdmin", h.SetAdmin)
	rg.POST("/removeMember", h.RemoveMember)
	rg.POST("/leave", h.Leave)
	rg.POST("/updateChatInfo", h.UpdateChatInfo)
	rg.POST("/deleteChat", h.DeleteChat)
}

// RegisterMessageRoutes 消息收发与已读
func (rt *Router) RegisterMessageRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Message
	rg.POST("/sendMessage", h.SendMessage)
	rg.POST("/updateLastSeen", h.UpdateLastSeen)
	rg.POST("/updateMessage", h.UpdateMessage)
	rg.POST("/deleteMessage", h.DeleteMessage)
	rg.GET("/getMessagePage", h.GetMessagePage)
	rg.POST("/typing", h.Typing)
}

// RegisterContactRoutes 联系人
func (rt *Router) RegisterContactRoutes(rg *gin.RouterGroup) {
	h := rt.handlers.Contact
	rg.GET("/list", h.ListContacts)
	rg.POST("/approve", h.ApproveContact)
	rg.POST("/delete", h.DeleteContact)
}
