package repository

import (
	"context"

	"chat_fanout_server/internal/model"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type chatMemberRepository struct {
	db *gorm.DB
}

// NewChatMemberRepository 成员表仓储
func NewChatMemberRepository(db *gorm.DB) ChatMemberRepository {
	return &chatMemberRepository{db: db}
}

// InsertMembers ON CONFLICT DO NOTHING，已存在（任意状态）的用户跳过，只返回本次真正写入的行
func (r *chatMemberRepository) InsertMembers(ctx context.Context, chatID int64, userIDs, adminIDs []int64) ([]model.ChatMember, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}

	var inserted []model.ChatMember
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var present []int64
		if err := tx.Model(&model.ChatMember{}).
			Where("chat_id = ? AND user_id IN ?", chatID, userIDs).
			Pluck("user_id", &present).Error; err != nil {
			return wrapDBErrorf(err, "read existing members chat=%d", chatID)
		}
		skip := make(map[int64]bool, len(present))
		for _, id := range present {
			skip[id] = true
		}

		rows := make([]model.ChatMember, 0, len(userIDs))
		fresh := make([]int64, 0, len(userIDs))
		for _, uid := range userIDs {
			if skip[uid] {
				continue
			}
			skip[uid] = true
			fresh = append(fresh, uid)
			rows = append(rows, model.ChatMember{
				ChatID:  chatID,
				UserID:  uid,
				IsAdmin: admins[uid],
				Status:  model.MemberStatusActive,
			})
		}
		if len(rows) == 0 {
			return nil
		}
		res := tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&rows)
		if res.Error != nil {
			return wrapDBErrorf(res.Error, "insert members chat=%d", chatID)
		}
		if res.RowsAffected == 0 {
			return nil
		}
		if err := tx.Where("chat_id = ? AND user_id IN ?", chatID, fresh).Order("user_id").Find(&inserted).Error; err != nil {
			return wrapDBErrorf(err, "read back members chat=%d", chatID)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return inserted, nil
}

func (r *chatMemberRepository) GetActiveMembers(ctx context.Context, chatID int64) ([]model.ChatMember, error) {
	var members []model.ChatMember
	err := r.db.WithContext(ctx).
		Where("chat_id = ? AND status IN ?", chatID, activeMemberStatuses).
		Order("user_id").
		Find(&members).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "get active members chat=%d", chatID)
	}
	return members, nil
}

func (r *chatMemberRepository) GetMember(ctx context.Context, chatID, userID int64) (*model.ChatMember, error) {
	q := r.db.WithContext(ctx).Where("chat_id = ? AND user_id = ?", chatID, userID)
	return takeOrNil[model.ChatMember](q, "get member")
}

func (r *chatMemberRepository) SetAdmin(ctx context.Context, chatID, userID int64, isAdmin bool) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ChatMember{}).
		Where("chat_id = ? AND user_id = ? AND status IN ?", chatID, userID, activeMemberStatuses).
		Update("is_admin", isAdmin)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "set admin chat=%d user=%d", chatID, userID)
	}
	return res.RowsAffected, nil
}

func (r *chatMemberRepository) SetMemberStatus(ctx context.Context, chatID, userID int64, status model.MemberStatus) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ChatMember{}).
		Where("chat_id = ? AND user_id = ?", chatID, userID).
		Update("status", status)
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "set member status chat=%d user=%d", chatID, userID)
	}
	return res.RowsAffected, nil
}

func (r *chatMemberRepository) ReactivateMember(ctx context.Context, chatID, userID int64) (int64, error) {
	res := r.db.WithContext(ctx).Model(&model.ChatMember{}).
		Where("chat_id = ? AND user_id = ? AND status = ?", chatID, userID, model.MemberStatusDeleted).
		Updates(map[string]any{"status": model.MemberStatusActive, "is_admin": false})
	if res.Error != nil {
		return 0, wrapDBErrorf(res.Error, "reactivate member chat=%d user=%d", chatID, userID)
	}
	return res.RowsAffected, nil
}

// UpdateLastSeen 条件更新保证水位单调，并发下较小的值不会覆盖较大的值
func (r *chatMemberRepository) UpdateLastSeen(ctx context.Context, chatID, userID, messageID int64) (*model.ChatMember, error) {
	db := r.db.WithContext(ctx)
	err := db.Model(&model.ChatMember{}).
		Where("chat_id = ? AND user_id = ? AND last_seen_message_id < ?", chatID, userID, messageID).
		Update("last_seen_message_id", messageID).Error
	if err != nil {
		return nil, wrapDBErrorf(err, "update last seen chat=%d user=%d", chatID, userID)
	}
	return r.GetMember(ctx, chatID, userID)
}
