package chat

import (
	"context"
	"fmt"

	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"

	"go.uber.org/zap"
)

// AddMember 群管理员拉人；已退出的成员重新激活
func (s *chatService) AddMember(ctx context.Context, chatID, requesterID, newUserID int64) (*model.ChatMember, error) {
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
	users, err := s.repos.User.GetUsers(ctx, []int64{requesterID, newUserID})
	if err != nil {
		return nil, err
	}
	if findUser(users, newUserID) == nil {
		return nil, ErrUserNotFound
	}

	existing, err := s.repos.Member.GetMember(ctx, chatID, newUserID)
	if err != nil {
		return nil, err
	}
	if existing.IsActive() {
		return existing, nil
	}

	if existing != nil {
		if _, err := s.repos.Member.ReactivateMember(ctx, chatID, newUserID); err != nil {
			return nil, err
		}
	} else {
		inserted, err := s.repos.Member.InsertMembers(ctx, chatID, []int64{newUserID}, nil)
		if err != nil {
			return nil, err
		}
		if len(inserted) == 0 {
			// 并发的添加已经写入，通知由那一方负责
			return s.concurrentlyAdded(ctx, chatID, newUserID)
		}
	}
	member, err := s.repos.Member.GetMember(ctx, chatID, newUserID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, errorx.New(errorx.CodeInvariantViolation, "member not active after add")
	}
	myredis.Invalidate(ctx, s.cache, myredis.ActiveMembersKey(chatID), myredis.MemberKey(newUserID, chatID))

	s.notify(ctx, chatID, requesterID, fmt.Sprintf("%s added %s to the chat.",
		displayName(users, requesterID), displayName(users, newUserID)))

	envs := []broadcast.Envelope{broadcast.ToUser(newUserID, broadcast.EventNewChatCreated, chat)}
	if env, ok := s.membersChanged(ctx, chatID); ok {
		envs = append(envs, env)
	}
	s.pub.Dispatch(envs...)
	zap.L().Info("chat member added", zap.Int64("chatId", chatID), zap.Int64("userId", newUserID), zap.Int64("by", requesterID))
	return member, nil
}

func (s *chatService) concurrentlyAdded(ctx context.Context, chatID, userID int64) (*model.ChatMember, error) {
	member, err := s.repos.Member.GetMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, errorx.New(errorx.CodeInvariantViolation, "member not active after add")
	}
	zap.L().Info("chat member already added concurrently", zap.Int64("chatId", chatID), zap.Int64("userId", userID))
	return member, nil
}

// SetAdmin 不做最后一个管理员的保护，由 Leave 负责
func (s *chatService) SetAdmin(ctx context.Context, chatID, requesterID, targetID int64, isAdmin bool) (*model.ChatMember, error) {
	if _, err := s.GetChat(ctx, chatID); err != nil {
		return nil, err
	}
	if err := s.requireAdmin(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	target, err := s.repos.Member.GetMember(ctx, chatID, targetID)
	if err != nil {
		return nil, err
	}
	if !target.IsActive() {
		return nil, ErrMemberNotFound
	}

	rows, err := s.repos.Member.SetAdmin(ctx, chatID, targetID, isAdmin)
	if err != nil {
		return nil, err
	}
	// 0 行可能是值未变化（mysql），也可能成员已不存在，重读区分
	member, err := s.repos.Member.GetMember(ctx, chatID, targetID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, ErrMemberNotFound
	}
	if rows == 0 && member.IsAdmin == isAdmin && target.IsAdmin == isAdmin {
		return member, nil
	}

	myredis.Invalidate(ctx, s.cache, myredis.MemberKey(targetID, chatID), myredis.ActiveMembersKey(chatID))
	if env, ok := s.membersChanged(ctx, chatID); ok {
		s.pub.Dispatch(env)
	}
	zap.L().Info("chat admin changed",
		zap.Int64("chatId", chatID),
		zap.Int64("userId", targetID),
		zap.Bool("isAdmin", isAdmin),
		zap.Int64("by", requesterID),
	)
	return member, nil
}

// RemoveMember 管理员移除成员；移除自己等同于 Leave
func (s *chatService) RemoveMember(ctx context.Context, chatID, requesterID, targetID int64) error {
	if requesterID == targetID {
		return s.Leave(ctx, chatID, requesterID)
	}
	return s.removeMember(ctx, chatID, requesterID, targetID)
}

// Leave 成员主动退出，群里还有其他人时唯一的管理员不能退出
func (s *chatService) Leave(ctx context.Context, chatID, userID int64) error {
	return s.removeMember(ctx, chatID, userID, userID)
}

func (s *chatService) removeMember(ctx context.Context, chatID, actorID, targetID int64) error {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	if chat.Type == model.ChatTypeP2P {
		return ErrP2PLeave
	}

	// 名册直接读库，管理员计数不能依赖缓存
	roster, err := s.repos.Member.GetActiveMembers(ctx, chatID)
	if err != nil {
		return err
	}
	if actorID != targetID && !model.FindMember(roster, actorID).IsActiveAdmin() {
		return ErrNotAdmin
	}
	target := model.FindMember(roster, targetID)
	if target == nil {
		return ErrMemberNotFound
	}
	if target.IsAdmin && model.CountAdmins(roster) == 1 && len(roster) > 1 {
		return ErrLastAdmin
	}

	rows, err := s.repos.Member.SetMemberStatus(ctx, chatID, targetID, model.MemberStatusDeleted)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMemberNotFound
	}
	myredis.Invalidate(ctx, s.cache, myredis.ActiveMembersKey(chatID), myredis.MemberKey(targetID, chatID))

	users, err := s.repos.User.GetUsers(ctx, []int64{actorID, targetID})
	if err != nil {
		zap.L().Error("load users for notification", zap.Error(err))
	}
	if actorID == targetID {
		s.notify(ctx, chatID, actorID, fmt.Sprintf("%s left the Chat.", displayName(users, targetID)))
	} else {
		s.notify(ctx, chatID, actorID, fmt.Sprintf("%s removed %s from the Chat.",
			displayName(users, actorID), displayName(users, targetID)))
	}

	group := broadcast.GroupName(chatID)
	var envs []broadcast.Envelope
	if env, ok := s.membersChanged(ctx, chatID); ok {
		envs = append(envs, env)
	}
	envs = append(envs,
		broadcast.ToUser(targetID, broadcast.EventChatlistDeleteChat, broadcast.ChatRef{ChatID: chatID}),
		broadcast.Envelope{Event: broadcast.EventUnsubscribe, Group: group, UserID: targetID},
	)
	s.pub.Dispatch(envs...)

	zap.L().Info("chat member removed", zap.Int64("chatId", chatID), zap.Int64("userId", targetID), zap.Int64("by", actorID))
	return nil
}

// DeleteChat 群聊需管理员，单聊任一成员即可
func (s *chatService) DeleteChat(ctx context.Context, chatID, requesterID int64) error {
	chat, err := s.GetChat(ctx, chatID)
	if err != nil {
		return err
	}
	roster, err := s.repos.Member.GetActiveMembers(ctx, chatID)
	if err != nil {
		return err
	}
	requester := model.FindMember(roster, requesterID)
	if requester == nil {
		return ErrNotMember
	}
	if chat.Type == model.ChatTypeGroup && !requester.IsAdmin {
		return ErrNotAdmin
	}

	rows, err := s.repos.Chat.SetChatStatus(ctx, chatID, model.ChatStatusDeleted)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrChatNotFound
	}
	memberIDs := model.MemberIDs(roster)
	myredis.Invalidate(ctx, s.cache, myredis.ChatKeys(chatID, memberIDs...)...)

	group := broadcast.GroupName(chatID)
	envs := make([]broadcast.Envelope, 0, len(memberIDs)+2)
	envs = append(envs, broadcast.ToGroup(group, broadcast.EventDeleteChat, broadcast.ChatRef{ChatID: chatID}))
	for _, uid := range memberIDs {
		envs = append(envs, broadcast.ToUser(uid, broadcast.EventChatlistDeleteChat, broadcast.ChatRef{ChatID: chatID}))
	}
	envs = append(envs, broadcast.Envelope{Event: broadcast.EventCloseGroup, Group: group})
	s.pub.Dispatch(envs...)

	zap.L().Info("chat deleted", zap.Int64("chatId", chatID), zap.Int64("by", requesterID))
	return nil
}

// membersChanged 读取最新名册（同时回填缓存）
func (s *chatService) membersChanged(ctx context.Context, chatID int64) (broadcast.Envelope, bool) {
	roster, err := s.GetActiveMembers(ctx, chatID)
	if err != nil {
		zap.L().Error("load roster for broadcast", zap.Int64("chatId", chatID), zap.Error(err))
		return broadcast.Envelope{}, false
	}
	return broadcast.ToGroup(broadcast.GroupName(chatID), broadcast.EventChatMembersChanged,
		broadcast.MembersChanged{ChatID: chatID, Members: roster}), true
}

func findUser(users []model.UserInfo, id int64) *model.UserInfo {
	for i := range users {
		if users[i].ID == id {
			return &users[i]
		}
	}
	return nil
}
