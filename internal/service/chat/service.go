// Package chat 会话与成员管理：创建会话、名册维护、管理员、退出与解散
package chat

import (
	"context"
	"fmt"
	"time"

	"chat_fanout_server/internal/dao/repository"
	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/metrics"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"

	"go.uber.org/zap"
)

// Notifier 写入系统通知消息，由消息服务实现
type Notifier interface {
	InsertNotification(ctx context.Context, chatID, actorID int64, content string) (*model.MessageView, error)
}

// CreateChatInput MemberIDs 可以不含创建者
type CreateChatInput struct {
	Type      model.ChatType
	CreatorID int64
	MemberIDs []int64
	Name      string
	Picture   string
}

// chatService 会话业务实现，依赖通过构造函数注入
type chatService struct {
	repos    *repository.Repositories
	cache    myredis.CacheService
	pub      broadcast.Publisher
	notifier Notifier

	chats   *myredis.Aside[model.Chat]
	members *myredis.Aside[model.ChatMember]
	rosters *myredis.Aside[[]model.ChatMember]
}

// NewChatService ttl<=0 时使用 myredis.DefaultTTL
func NewChatService(repos *repository.Repositories, cache myredis.CacheService, pub broadcast.Publisher, ttl time.Duration) *chatService {
	return &chatService{
		repos:   repos,
		cache:   cache,
		pub:     pub,
		chats:   myredis.NewAside[model.Chat](cache, "chat", ttl),
		members: myredis.NewAside[model.ChatMember](cache, "member", ttl),
		rosters: myredis.NewAside[[]model.ChatMember](cache, "roster", ttl),
	}
}

// SetNotifier 消息服务依赖本服务，构造完成后再注入
func (s *chatService) SetNotifier(n Notifier) {
	s.notifier = n
}

// CreateChat 按步骤执行：写会话、批量写成员、校验行数、群聊通知、推送。
// 第 2、3 步失败时软删除会话作为补偿
func (s *chatService) CreateChat(ctx context.Context, in CreateChatInput) (*model.Chat, error) {
	if !in.Type.Valid() || in.CreatorID <= 0 {
		return nil, errorx.ErrInvalidParam
	}
	memberIDs := normalizeMembers(in.CreatorID, in.MemberIDs)

	switch in.Type {
	case model.ChatTypeP2P:
		if len(memberIDs) != 2 {
			return nil, errorx.New(errorx.CodeInvalidParam, "p2p chat needs exactly two distinct users")
		}
		existing, err := s.repos.Chat.GetP2PChatByUserPair(ctx, memberIDs[0], memberIDs[1])
		if err != nil {
			return nil, err
		}
		if existing != nil {
			return existing, nil
		}
	case model.ChatTypeGroup:
		if len(memberIDs) < 2 {
			return nil, errorx.New(errorx.CodeInvalidParam, "group chat needs at least one member besides the creator")
		}
	}

	users, err := s.repos.User.GetUsers(ctx, memberIDs)
	if err != nil {
		return nil, err
	}
	if len(users) != len(memberIDs) {
		return nil, ErrUserNotFound
	}

	chat := &model.Chat{Type: in.Type, Name: in.Name, Picture: in.Picture, Status: model.ChatStatusActive}
	var admins []int64
	if in.Type == model.ChatTypeP2P {
		key := model.P2PPairKey(memberIDs[0], memberIDs[1])
		chat.PairKey = &key
		chat.Name = ""
	} else {
		admins = []int64{in.CreatorID}
	}

	// 1. 会话
	if err := s.repos.Chat.CreateChat(ctx, chat); err != nil {
		if in.Type == model.ChatTypeP2P && errorx.GetCode(err) == errorx.CodeDuplicate {
			return s.p2pRaceWinner(ctx, memberIDs[0], memberIDs[1])
		}
		return nil, err
	}

	// 2. 成员
	members, err := s.repos.Member.InsertMembers(ctx, chat.ID, memberIDs, admins)
	if err != nil {
		s.compensateCreate(ctx, chat, err)
		return nil, err
	}
	// 3. 行数校验
	if len(members) != len(memberIDs) {
		err := errorx.Newf(errorx.CodeInvariantViolation, "chat members inserted %d of %d", len(members), len(memberIDs))
		s.compensateCreate(ctx, chat, err)
		return nil, err
	}
	metrics.ChatsCreated.WithLabelValues(chat.Type.String()).Inc()

	// 4. 群聊通知，失败不影响创建结果
	if chat.Type == model.ChatTypeGroup {
		s.notify(ctx, chat.ID, in.CreatorID, fmt.Sprintf("%s created the chat.", displayName(users, in.CreatorID)))
	}

	// 5. 推送
	envs := make([]broadcast.Envelope, 0, len(members))
	for _, m := range members {
		envs = append(envs, broadcast.ToUser(m.UserID, broadcast.EventNewChatCreated, chat))
	}
	s.pub.Dispatch(envs...)

	zap.L().Info("chat created",
		zap.Int64("chatId", chat.ID),
		zap.String("type", chat.Type.String()),
		zap.Int("members", len(members)),
	)
	return chat, nil
}

// p2pRaceWinner 并发创建同一对用户的单聊时，唯一索引冲突的一方读回胜出的会话
func (s *chatService) p2pRaceWinner(ctx context.Context, u1, u2 int64) (*model.Chat, error) {
	winner, err := s.repos.Chat.GetP2PChatByUserPair(ctx, u1, u2)
	if err != nil {
		return nil, err
	}
	if winner == nil {
		return nil, errorx.New(errorx.CodeInvariantViolation, "p2p chat exists but could not be read back")
	}
	return winner, nil
}

// compensateCreate 请求被取消也要执行
func (s *chatService) compensateCreate(ctx context.Context, chat *model.Chat, cause error) {
	ctx = context.WithoutCancel(ctx)
	if _, err := s.repos.Chat.SetChatStatus(ctx, chat.ID, model.ChatStatusDeleted); err != nil {
		zap.L().Error("compensate chat create failed, orphan chat row left",
			zap.Int64("chatId", chat.ID),
			zap.NamedError("cause", cause),
			zap.Error(err),
		)
		return
	}
	chat.Status = model.ChatStatusDeleted
	chat.PairKey = nil
	zap.L().Warn("chat create rolled back", zap.Int64("chatId", chat.ID), zap.Error(cause))
}

func (s *chatService) notify(ctx context.Context, chatID, actorID int64, content string) {
	if s.notifier == nil {
		return
	}
	if _, err := s.notifier.InsertNotification(ctx, chatID, actorID, content); err != nil {
		zap.L().Error("insert notification", zap.Int64("chatId", chatID), zap.String("content", content), zap.Error(err))
	}
}

// normalizeMembers 创建者在首位，去重并丢弃非法 id
func normalizeMembers(creatorID int64, ids []int64) []int64 {
	out := make([]int64, 0, len(ids)+1)
	seen := map[int64]struct{}{creatorID: {}}
	out = append(out, creatorID)
	for _, id := range ids {
		if id <= 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}

func displayName(users []model.UserInfo, id int64) string {
	for _, u := range users {
		if u.ID == id {
			return u.DisplayName
		}
	}
	return fmt.Sprintf("user %d", id)
}
