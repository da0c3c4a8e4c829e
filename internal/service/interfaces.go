// Package service 定义业务层接口，供 Handler 层调用
package service

import (
	"context"

	"chat_fanout_server/internal/model"
	"chat_fanout_server/internal/service/chat"
	"chat_fanout_server/internal/service/message"
	"chat_fanout_server/pkg/pagination"
)

// ChatService 会话与成员管理
type ChatService interface {
	// CreateChat 单聊同一对用户只会有一个 Active 会话，已存在时直接返回
	CreateChat(ctx context.Context, in chat.CreateChatInput) (*model.Chat, error)
	AddMember(ctx context.Context, chatID, requesterID, newUserID int64) (*model.ChatMember, error)
	SetAdmin(ctx context.Context, chatID, requesterID, targetID int64, isAdmin bool) (*model.ChatMember, error)
	RemoveMember(ctx context.Context, chatID, requesterID, targetID int64) error
	Leave(ctx context.Context, chatID, userID int64) error
	GetActiveMembers(ctx context.Context, chatID int64) ([]model.ChatMember, error)
	GetMember(ctx context.Context, chatID, userID int64) (*model.ChatMember, error)
	GetChat(ctx context.Context, chatID int64) (*model.Chat, error)
	UpdateChatInfo(ctx context.Context, chatID, requesterID int64, name, picture string) (*model.Chat, error)
	GetUserChats(ctx context.Context, userID int64) ([]model.ChatListItem, error)
	DeleteChat(ctx context.Context, chatID, requesterID int64) error
}

// MessageService 消息写入、已读与历史
type MessageService interface {
	InsertMessage(ctx context.Context, in message.SendMessageInput) (*model.MessageView, error)
	InsertNotification(ctx context.Context, chatID, actorID int64, content string) (*model.MessageView, error)
	UpdateLastSeenMessage(ctx context.Context, chatID, userID, messageID int64) (*model.ChatMember, error)
	UpdateMessage(ctx context.Context, messageID, requesterID int64, content string) (*model.MessageView, error)
	DeleteMessage(ctx context.Context, messageID, requesterID int64) error
	GetMessagePage(ctx context.Context, chatID, requesterID int64, p pagination.Params) (*pagination.Page[model.MessageView], error)
	UserTyping(ctx context.Context, chatID, userID int64) error
}

// ContactService 联系人
type ContactService interface {
	ListContacts(ctx context.Context, userID int64) ([]model.Contact, error)
	ApproveContact(ctx context.Context, userID, contactID int64) error
	DeleteContact(ctx context.Context, userID, contactID int64) error
}
