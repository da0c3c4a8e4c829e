package service

import (
	"time"

	"chat_fanout_server/internal/dao/repository"
	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/service/chat"
	"chat_fanout_server/internal/service/contact"
	"chat_fanout_server/internal/service/message"
)

// Services 聚合所有 Service 实例，作为 Handler 层的依赖
type Services struct {
	Chat    ChatService
	Message MessageService
	Contact ContactService
}

// NewServices 创建并注入所有 Service 实例
//  1. 会话服务依赖 Repository、缓存和推送
//  2. 消息服务通过会话服务的缓存读路径校验成员
//  3. 会话服务的系统通知回写到消息服务
func NewServices(repos *repository.Repositories, cache myredis.CacheService, pub broadcast.Publisher, ttl time.Duration) *Services {
	chatSvc := chat.NewChatService(repos, cache, pub, ttl)
	messageSvc := message.NewMessageService(repos, cache, chatSvc, pub)
	chatSvc.SetNotifier(messageSvc)

	return &Services{
		Chat:    chatSvc,
		Message: messageSvc,
		Contact: contact.NewContactService(repos),
	}
}
