// Package repository 关系库访问层。
// 读接口在记录不存在时返回 nil 而不是错误，写接口返回影响行数，
// 由调用方把 0 行解释为业务错误。
package repository

import (
	"context"

	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/pagination"

	"gorm.io/gorm"
)

// ChatRepository 会话
type ChatRepository interface {
	CreateChat(ctx context.Context, chat *model.Chat) error
	GetChat(ctx context.Context, chatID int64) (*model.Chat, error)
	// GetP2PChatByUserPair 只返回 Active 的单聊，参数顺序无关
	GetP2PChatByUserPair(ctx context.Context, u1, u2 int64) (*model.Chat, error)
	UpdateChatInfo(ctx context.Context, chatID int64, name, picture string) (int64, error)
	// SetChatStatus 置为 Deleted 时同时清空 pair_key
	SetChatStatus(ctx context.Context, chatID int64, status model.ChatStatus) (int64, error)
	// GetUserChats 用户所在的 Active 会话
	GetUserChats(ctx context.Context, userID int64) ([]model.Chat, error)
}

// ChatMemberRepository 会话成员
type ChatMemberRepository interface {
	// InsertMembers 批量插入，adminIDs 中的用户为管理员；已存在的 (chat_id,user_id) 跳过，只返回本次写入的行
	InsertMembers(ctx context.Context, chatID int64, userIDs, adminIDs []int64) ([]model.ChatMember, error)
	GetActiveMembers(ctx context.Context, chatID int64) ([]model.ChatMember, error)
	// GetMember 任意状态
	GetMember(ctx context.Context, chatID, userID int64) (*model.ChatMember, error)
	SetAdmin(ctx context.Context, chatID, userID int64, isAdmin bool) (int64, error)
	SetMemberStatus(ctx context.Context, chatID, userID int64, status model.MemberStatus) (int64, error)
	// ReactivateMember Deleted -> Active，并清除管理员标记
	ReactivateMember(ctx context.Context, chatID, userID int64) (int64, error)
	// UpdateLastSeen 仅在新值更大时更新，返回更新后的行
	UpdateLastSeen(ctx context.Context, chatID, userID, messageID int64) (*model.ChatMember, error)
}

// MessageRepository 消息
type MessageRepository interface {
	// InsertMessage 写入并返回带发送者信息的视图
	InsertMessage(ctx context.Context, msg *model.Message) (*model.MessageView, error)
	GetMessage(ctx context.Context, messageID int64) (*model.Message, error)
	GetMessageView(ctx context.Context, messageID int64) (*model.MessageView, error)
	UpdateMessageContent(ctx context.Context, messageID int64, content string) (int64, error)
	SetMessageStatus(ctx context.Context, messageID int64, status model.MessageStatus) (int64, error)
	GetLastMessage(ctx context.Context, chatID int64) (*model.MessageView, error)
	// GetMessagePage 第 1 页为最新的一段，页内按 id 升序
	GetMessagePage(ctx context.Context, chatID int64, p pagination.Params) ([]model.MessageView, int64, error)
}

// ContactRepository 联系人
type ContactRepository interface {
	GetContacts(ctx context.Context, edges []model.ContactEdge) ([]model.Contact, error)
	// InsertContacts 已存在的行保持不变，返回实际插入行数
	InsertContacts(ctx context.Context, contacts []model.Contact) (int64, error)
	ListContacts(ctx context.Context, userID int64) ([]model.Contact, error)
	SetContactStatus(ctx context.Context, userID, contactID int64, status model.ContactStatus) (int64, error)
}

// UserRepository 用户资料只读
type UserRepository interface {
	GetUser(ctx context.Context, userID int64) (*model.UserInfo, error)
	GetUsers(ctx context.Context, userIDs []int64) ([]model.UserInfo, error)
}

// Repositories 聚合所有 Repository，作为服务层的依赖
type Repositories struct {
	db      *gorm.DB
	Chat    ChatRepository
	Member  ChatMemberRepository
	Message MessageRepository
	Contact ContactRepository
	User    UserRepository
}

// NewRepositories 共用同一个 *gorm.DB
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		db:      db,
		Chat:    NewChatRepository(db),
		Member:  NewChatMemberRepository(db),
		Message: NewMessageRepository(db),
		Contact: NewContactRepository(db),
		User:    NewUserRepository(db),
	}
}

// Transaction 在事务中执行 fn。没有底层 db（内存实现）时直接执行
func (r *Repositories) Transaction(ctx context.Context, fn func(txRepos *Repositories) error) error {
	if r.db == nil {
		return fn(r)
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepositories(tx))
	})
}
