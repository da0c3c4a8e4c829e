package repository

import (
	"context"
	"time"

	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/pagination"

	"gorm.io/gorm"
)

type messageRepository struct {
	db *gorm.DB
}

// NewMessageRepository 消息表仓储
func NewMessageRepository(db *gorm.DB) MessageRepository {
	return &messageRepository{db: db}
}

// viewQuery 关联用户表取发送者昵称和头像
func (r *messageRepository) viewQuery(ctx context.Context) *gorm.DB {
	return r.db.WithContext(ctx).Table("message AS m").
		Select("m.*, u.display_name AS sender_name, u.picture AS sender_picture").
		Joins("LEFT JOIN user_info AS u ON u.id = m.sender_id")
}

func (r *messageRepository) InsertMessage(ctx context.Context, msg *model.Message) (*model.MessageView, error) {
	if err := r.db.WithContext(ctx).Create(msg).Error; err != nil {
		return nil, wrapDBErrorf(err, "insert message chat=%d", msg.ChatID)
	}
	return r.GetMessageView(ctx, msg.ID)
}

func (r *messageRepository) GetMessage(ctx context.Context, messageID int64) (*model.Message, error) {
	return takeOrNil[model.Message](r.db.WithContext(ctx).Where("id = ?", messageID), "get message")
}

func (r *messageRepository) GetMessageView(ctx context.Context, messageID int64) (*model.MessageView, error) {
	var views []model.MessageView
	if err := r.viewQuery(ctx).Where("m.id = ?", messageID).Limit(1).Scan(&views).Error; err != nil {
		return nil, wrapDBErrorf(err, "get message view id=%d", messageID)
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

func (r *messageRepository) UpdateMessageContent(ctx context.Context, messageID int64, content string) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ? AND status = ?", messageID, model.MessageStatusActive).
		Updates(map[string]any{"content": content, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "update message id=%d", messageID)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) SetMessageStatus(ctx context.Context, messageID int64, status model.MessageStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("id = ?", messageID).
		Updates(map[string]any{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "set message status id=%d", messageID)
	}
	return res.RowsAffected, nil
}

func (r *messageRepository) GetLastMessage(ctx context.Context, chatID int64) (*model.MessageView, error) {
	var views []model.MessageView
	err := r.viewQuery(ctx).
		Where("m.chat_id = ? AND m.status = ?", chatID, model.MessageStatusActive).
		Order("m.id DESC").Limit(1).
		Scan(&views).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "get last message chat=%d", chatID)
	}
	if len(views) == 0 {
		return nil, nil
	}
	return &views[0], nil
}

func (r *messageRepository) GetMessagePage(ctx context.Context, chatID int64, p pagination.Params) ([]model.MessageView, int64, error) {
	var total int64
	if err := r.db.WithContext(ctx).Model(&model.Message{}).
		Where("chat_id = ? AND status = ?", chatID, model.MessageStatusActive).
		Count(&total).Error; err != nil {
		return nil, 0, wrapDBErrorf(err, "count messages chat=%d", chatID)
	}

	var views []model.MessageView
	if err := r.viewQuery(ctx).
		Where("m.chat_id = ? AND m.status = ?", chatID, model.MessageStatusActive).
		Order("m.id DESC").
		Scopes(pagination.Paginate(p)).
		Scan(&views).Error; err != nil {
		return nil, 0, wrapDBErrorf(err, "page messages chat=%d", chatID)
	}
	// 页内按 id 升序返回
	for i, j := 0, len(views)-1; i < j; i, j = i+1, j-1 {
		views[i], views[j] = views[j], views[i]
	}
	return views, total, nil
}
