package chat

import (
	"context"

	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/model"

	"go.uber.org/zap"
)

// GetChat 缓存 chat:{chatId}；不存在或已删除返回 NotFound
func (s *chatService) GetChat(ctx context.Context, chatID int64) (*model.Chat, error) {
	chat, err := s.chats.Get(ctx, myredis.ChatKey(chatID), func(ctx context.Context) (model.Chat, error) {
		c, err := s.repos.Chat.GetChat(ctx, chatID)
		if err != nil {
			return model.Chat{}, err
		}
		if !c.IsActive() {
			return model.Chat{}, ErrChatNotFound
		}
		return *c, nil
	})
	if err != nil {
		return nil, err
	}
	return &chat, nil
}

// GetMember 缓存 chatMember:{userId}:{chatId}；不存在或已退出返回 NotFound
func (s *chatService) GetMember(ctx context.Context, chatID, userID int64) (*model.ChatMember, error) {
	m, err := s.members.Get(ctx, myredis.MemberKey(userID, chatID), func(ctx context.Context) (model.ChatMember, error) {
		m, err := s.repos.Member.GetMember(ctx, chatID, userID)
		if err != nil {
			return model.ChatMember{}, err
		}
		if !m.IsActive() {
			return model.ChatMember{}, ErrMemberNotFound
		}
		return *m, nil
	})
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// GetActiveMembers 缓存 chat:{chatId}:activeMembers，按 user id 升序
func (s *chatService) GetActiveMembers(ctx context.Context, chatID int64) ([]model.ChatMember, error) {
	return s.rosters.Get(ctx, myredis.ActiveMembersKey(chatID), func(ctx context.Context) ([]model.ChatMember, error) {
		members, err := s.repos.Member.GetActiveMembers(ctx, chatID)
		if err != nil {
			return nil, err
		}
		if members == nil {
			members = []model.ChatMember{}
		}
		return members, nil
	})
}

// GetUserChats 会话列表，附带最后一条消息
func (s *chatService) GetUserChats(ctx context.Context, userID int64) ([]model.ChatListItem, error) {
	chats, err := s.repos.Chat.GetUserChats(ctx, userID)
	if err != nil {
		return nil, err
	}
	items := make([]model.ChatListItem, 0, len(chats))
	for _, c := range chats {
		last, err := s.repos.Message.GetLastMessage(ctx, c.ID)
		if err != nil {
			return nil, err
		}
		items = append(items, model.ChatListItem{Chat: c, LastMessage: last})
	}
	return items, nil
}

// UpdateChatInfo 群管理员修改群名称和头像
func (s *chatService) UpdateChatInfo(ctx context.Context, chatID, requesterID int64, name, picture string) (*model.Chat, error) {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if chat.Type != model.ChatTypeGroup {
		return nil, ErrNotGroup
	}
	if err := s.requireAdmin(ctx, chatID, requesterID); err != nil {
		return nil, err
	}

	if _, err := s.repos.Chat.UpdateChatInfo(ctx, chatID, name, picture); err != nil {
		return nil, err
	}
	myredis.Invalidate(ctx, s.cache, myredis.ChatKey(chatID))

	updated, err := s.repos.Chat.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !updated.IsActive() {
		return nil, ErrChatNotFound
	}
	s.pub.PublishToGroup(broadcast.GroupName(chatID), broadcast.EventChatInfoUpdated, updated)
	zap.L().Info("chat info updated", zap.Int64("chatId", chatID), zap.Int64("by", requesterID))
	return updated, nil
}

// requireAdmin 权限判断直接读库，不走缓存
func (s *chatService) requireAdmin(ctx context.Context, chatID, userID int64) error {
	m, err := s.repos.Member.GetMember(ctx, chatID, userID)
	if err != nil {
		return err
	}
	if !m.IsActiveAdmin() {
		return ErrNotAdmin
	}
	return nil
}
