package repository

import (
	"context"

	"chat_fanout_server/internal/model"

	"gorm.io/gorm"
)

type chatRepository struct {
	db *gorm.DB
}

// NewChatRepository 会话表仓储
func NewChatRepository(db *gorm.DB) ChatRepository {
	return &chatRepository{db: db}
}

func (r *chatRepository) CreateChat(ctx context.Context, chat *model.Chat) error {
	if err := r.db.WithContext(ctx).Create(chat).Error; err != nil {
		return wrapDBError(err, "create chat")
	}
	return nil
}

func (r *chatRepository) GetChat(ctx context.Context, chatID int64) (*model.Chat, error) {
	return takeOrNil[model.Chat](r.db.WithContext(ctx).Where("id = ?", chatID), "get chat")
}

func (r *chatRepository) GetP2PChatByUserPair(ctx context.Context, u1, u2 int64) (*model.Chat, error) {
	q := r.db.WithContext(ctx).
		Where("pair_key = ? AND type = ? AND status = ?", model.P2PPairKey(u1, u2), model.ChatTypeP2P, model.ChatStatusActive)
	return takeOrNil[model.Chat](q, "get p2p chat by pair")
}

func (r *chatRepository) UpdateChatInfo(ctx context.Context, chatID int64, name, picture string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Chat{}).
		Where("id = ? AND status = ?", chatID, model.ChatStatusActive).
		Updates(map[string]any{"name": name, "picture": picture})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "update chat info id=%d", chatID)
	}
	return res.RowsAffected, nil
}

func (r *chatRepository) SetChatStatus(ctx context.Context, chatID int64, status model.ChatStatus) (int64, error) {
	updates := map[string]any{"status": status}
	if status == model.ChatStatusDeleted {
		updates["pair_key"] = nil
	}
	res := r.db.WithContext(ctx).Model(&model.Chat{}).Where("id = ?", chatID).Updates(updates)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "set chat status id=%d", chatID)
	}
	return res.RowsAffected, nil
}

func (r *chatRepository) GetUserChats(ctx context.Context, userID int64) ([]model.Chat, error) {
	var chats []model.Chat
	err := r.db.WithContext(ctx).Model(&model.Chat{}).
		Select("chat.*").
		Joins("JOIN chat_member ON chat_member.chat_id = chat.id").
		Where("chat_member.user_id = ? AND chat_member.status IN ? AND chat.status = ?",
			userID, activeMemberStatuses, model.ChatStatusActive).
		Order("chat.id DESC").
		Find(&chats).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "get user chats user=%d", userID)
	}
	return chats, nil
}
