// Package message 消息写入与扇出：持久化后按会话分组推送，维护已读水位
package message

import (
	"context"
	"strings"

	"chat_fanout_server/internal/dao/repository"
	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/metrics"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"
	"chat_fanout_server/pkg/pagination"

	"go.uber.org/zap"
)

var (
	ErrMessageNotFound = errorx.New(errorx.CodeNotFound, "message not found")
	ErrNotMember       = errorx.New(errorx.CodeForbidden, "user is not a member of the chat")
	ErrNotSender       = errorx.New(errorx.CodeForbidden, "only the sender can modify the message")
	ErrNotEditable     = errorx.New(errorx.CodeForbidden, "notifications are not editable")
	ErrEmptyContent    = errorx.New(errorx.CodeInvalidParam, "message content is empty")
)

// ChatReader 会话读路径（带缓存），由会话服务实现
type ChatReader interface {
	GetChat(ctx context.Context, chatID int64) (*model.Chat, error)
	GetMember(ctx context.Context, chatID, userID int64) (*model.ChatMember, error)
	GetActiveMembers(ctx context.Context, chatID int64) ([]model.ChatMember, error)
}

// SendMessageInput 发送消息的参数
type SendMessageInput struct {
	ChatID   int64
	SenderID int64
	Content  string
}

// messageService 消息业务实现
type messageService struct {
	repos *repository.Repositories
	cache myredis.CacheService
	chats ChatReader
	pub   broadcast.Publisher
}

// NewMessageService chats 用于成员校验和名册读取
func NewMessageService(repos *repository.Repositories, cache myredis.CacheService, chats ChatReader, pub broadcast.Publisher) *messageService {
	return &messageService{repos: repos, cache: cache, chats: chats, pub: pub}
}

// InsertMessage 普通消息：校验成员、写库、单聊首条消息补联系人、推送
func (s *messageService) InsertMessage(ctx context.Context, in SendMessageInput) (*model.MessageView, error) {
	if strings.TrimSpace(in.Content) == "" {
		return nil, ErrEmptyContent
	}
	chat, err := s.chats.GetChat(ctx, in.ChatID)
	if err != nil {
		return nil, err
	}
	if _, err := s.chats.GetMember(ctx, in.ChatID, in.SenderID); err != nil {
		if errorx.IsNotFound(err) {
			return nil, ErrNotMember
		}
		return nil, err
	}
	return s.insert(ctx, chat, in.SenderID, in.Content, model.MessageTypeNormal)
}

// InsertNotification 系统通知，不校验成员身份（操作者可能刚退出）
func (s *messageService) InsertNotification(ctx context.Context, chatID, actorID int64, content string) (*model.MessageView, error) {
	chat, err := s.chats.GetChat(ctx, chatID)
	if err != nil {
		return nil, err
	}
	return s.insert(ctx, chat, actorID, content, model.MessageTypeNotification)
}

func (s *messageService) insert(ctx context.Context, chat *model.Chat, senderID int64, content string, typ model.MessageType) (*model.MessageView, error) {
	// 1. 写库
	view, err := s.repos.Message.InsertMessage(ctx, &model.Message{
		ChatID:   chat.ID,
		SenderID: senderID,
		Type:     typ,
		Content:  content,
		Status:   model.MessageStatusActive,
	})
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, errorx.New(errorx.CodeInvariantViolation, "message not created")
	}
	metrics.MessagesInserted.WithLabelValues(typ.String()).Inc()

	// 2. 名册
	roster, err := s.chats.GetActiveMembers(ctx, chat.ID)
	if err != nil {
		return nil, err
	}

	// 3. 单聊补齐双向联系人
	if typ == model.MessageTypeNormal && chat.Type == model.ChatTypeP2P {
		if err := s.ensureContacts(ctx, chat.ID, senderID, roster); err != nil {
			return nil, err
		}
	}

	// 4. 推送，同一会话的帧按写库顺序入队
	envs := make([]broadcast.Envelope, 0, len(roster)+1)
	envs = append(envs, broadcast.ToGroup(broadcast.GroupName(chat.ID), broadcast.EventReceiveMessage, view))
	item := model.ChatListItem{Chat: *chat, LastMessage: view}
	for _, m := range roster {
		envs = append(envs, broadcast.ToUser(m.UserID, broadcast.EventChatlistNewMessage, item))
	}
	s.pub.Dispatch(envs...)
	return view, nil
}

// ensureContacts 单聊每条普通消息都检查双向联系人，只补缺失的边，已有的边（包括已删除的）保持不动
// 首条消息写库后失败的情况由后续消息补齐
func (s *messageService) ensureContacts(ctx context.Context, chatID, senderID int64, roster []model.ChatMember) error {
	var otherID int64
	for _, m := range roster {
		if m.UserID != senderID {
			otherID = m.UserID
			break
		}
	}
	if otherID == 0 {
		return nil
	}

	edges := []model.ContactEdge{
		{UserID: senderID, ContactID: otherID},
		{UserID: otherID, ContactID: senderID},
	}
	missing, err := s.missingEdges(ctx, edges)
	if err != nil {
		return err
	}
	if len(missing) == 0 {
		return nil
	}
	rows := make([]model.Contact, 0, len(missing))
	for _, e := range missing {
		rows = append(rows, model.Contact{UserID: e.UserID, ContactID: e.ContactID, Status: model.ContactStatusActive})
	}
	inserted, err := s.repos.Contact.InsertContacts(ctx, rows)
	if err != nil {
		return err
	}
	if inserted != int64(len(rows)) {
		// 对方的并发消息可能已经插入，重新读一次
		still, err := s.missingEdges(ctx, edges)
		if err != nil {
			return err
		}
		if len(still) > 0 {
			return errorx.Newf(errorx.CodeInvariantViolation, "contacts inserted %d of %d", inserted, len(rows))
		}
	}
	zap.L().Info("contacts created from p2p message", zap.Int64("chatId", chatID), zap.Int64("senderId", senderID), zap.Int64("rows", inserted))
	return nil
}

func (s *messageService) missingEdges(ctx context.Context, edges []model.ContactEdge) ([]model.ContactEdge, error) {
	existing, err := s.repos.Contact.GetContacts(ctx, edges)
	if err != nil {
		return nil, err
	}
	have := make(map[model.ContactEdge]bool, len(existing))
	for _, c := range existing {
		have[model.ContactEdge{UserID: c.UserID, ContactID: c.ContactID}] = true
	}
	var missing []model.ContactEdge
	for _, e := range edges {
		if !have[e] {
			missing = append(missing, e)
		}
	}
	return missing, nil
}

// UpdateLastSeenMessage 已读水位只前进；候选值不大于当前水位时原样返回且不推送
func (s *messageService) UpdateLastSeenMessage(ctx context.Context, chatID, userID, messageID int64) (*model.ChatMember, error) {
	member, err := s.repos.Member.GetMember(ctx, chatID, userID)
	if err != nil {
		return nil, err
	}
	if !member.IsActive() {
		return nil, ErrNotMember
	}
	if messageID <= member.LastSeenMessageID {
		return member, nil
	}
	msg, err := s.repos.Message.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.ChatID != chatID {
		return nil, ErrMessageNotFound
	}

	updated, err := s.repos.Member.UpdateLastSeen(ctx, chatID, userID, messageID)
	if err != nil {
		return nil, err
	}
	if !updated.IsActive() {
		return nil, ErrNotMember
	}
	myredis.Invalidate(ctx, s.cache, myredis.ActiveMembersKey(chatID), myredis.MemberKey(userID, chatID))

	s.pub.PublishToGroup(broadcast.GroupName(chatID), broadcast.EventNotifyMessageSeen, broadcast.MessageSeen{
		ChatID:    chatID,
		UserID:    userID,
		MessageID: updated.LastSeenMessageID,
	})
	return updated, nil
}

// UpdateMessage 仅发送者可编辑普通消息
func (s *messageService) UpdateMessage(ctx context.Context, messageID, requesterID int64, content string) (*model.MessageView, error) {
	if strings.TrimSpace(content) == "" {
		return nil, ErrEmptyContent
	}
	msg, err := s.editableMessage(ctx, messageID, requesterID)
	if err != nil {
		return nil, err
	}
	rows, err := s.repos.Message.UpdateMessageContent(ctx, messageID, content)
	if err != nil {
		return nil, err
	}
	if rows == 0 {
		return nil, ErrMessageNotFound
	}
	view, err := s.repos.Message.GetMessageView(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrMessageNotFound
	}
	s.pub.PublishToGroup(broadcast.GroupName(msg.ChatID), broadcast.EventMessageUpdated, view)
	return view, nil
}

// DeleteMessage 软删除
func (s *messageService) DeleteMessage(ctx context.Context, messageID, requesterID int64) error {
	msg, err := s.editableMessage(ctx, messageID, requesterID)
	if err != nil {
		return err
	}
	rows, err := s.repos.Message.SetMessageStatus(ctx, messageID, model.MessageStatusDeleted)
	if err != nil {
		return err
	}
	if rows == 0 {
		return ErrMessageNotFound
	}
	s.pub.PublishToGroup(broadcast.GroupName(msg.ChatID), broadcast.EventMessageDeleted, broadcast.MessageRef{
		ChatID:    msg.ChatID,
		MessageID: messageID,
	})
	return nil
}

func (s *messageService) editableMessage(ctx context.Context, messageID, requesterID int64) (*model.Message, error) {
	msg, err := s.repos.Message.GetMessage(ctx, messageID)
	if err != nil {
		return nil, err
	}
	if msg == nil || msg.Status != model.MessageStatusActive {
		return nil, ErrMessageNotFound
	}
	if msg.Type == model.MessageTypeNotification {
		return nil, ErrNotEditable
	}
	if msg.SenderID != requesterID {
		return nil, ErrNotSender
	}
	return msg, nil
}

// GetMessagePage 第 1 页为最新消息，页内按 id 升序
func (s *messageService) GetMessagePage(ctx context.Context, chatID, requesterID int64, p pagination.Params) (*pagination.Page[model.MessageView], error) {
	if err := s.requireMember(ctx, chatID, requesterID); err != nil {
		return nil, err
	}
	p = p.Normalize()
	items, total, err := s.repos.Message.GetMessagePage(ctx, chatID, p)
	if err != nil {
		return nil, err
	}
	if items == nil {
		items = []model.MessageView{}
	}
	return pagination.NewPage(items, total, p), nil
}

// UserTyping 正在输入，只推送不落库
func (s *messageService) UserTyping(ctx context.Context, chatID, userID int64) error {
	if err := s.requireMember(ctx, chatID, userID); err != nil {
		return err
	}
	s.pub.PublishToGroup(broadcast.GroupName(chatID), broadcast.EventUserTyping, broadcast.Typing{ChatID: chatID, UserID: userID})
	return nil
}

func (s *messageService) requireMember(ctx context.Context, chatID, userID int64) error {
	if _, err := s.chats.GetChat(ctx, chatID); err != nil {
		return err
	}
	if _, err := s.chats.GetMember(ctx, chatID, userID); err != nil {
		if errorx.IsNotFound(err) {
			return ErrNotMember
		}
		return err
	}
	return nil
}
