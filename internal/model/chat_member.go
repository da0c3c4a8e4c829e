package model

import "time"

// ChatMember 会话成员，主键 (chat_id, user_id)；退出只改状态
type ChatMember struct {
	ChatID            int64        `gorm:"column:chat_id;primaryKey;autoIncrement:false" json:"chatId"`
	UserID            int64        `gorm:"column:user_id;primaryKey;autoIncrement:false;index" json:"userId"`
	IsAdmin           bool         `gorm:"column:is_admin;not null;default:false" json:"isAdmin"`
	LastSeenMessageID int64        `gorm:"column:last_seen_message_id;not null;default:0;comment:已读水位" json:"lastSeenMessageId"`
	Status            MemberStatus `gorm:"column:status;not null;default:0;comment:0正常 1通过 2删除" json:"status"`
	CreatedAt         time.Time    `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt         time.Time    `gorm:"column:updated_at" json:"updatedAt"`
}

func (ChatMember) TableName() string {
	return "chat_member"
}

// IsActive 名册意义上的在群
func (m *ChatMember) IsActive() bool {
	return m != nil && (m.Status == MemberStatusActive || m.Status == MemberStatusApproved)
}

// IsActiveAdmin 在群且为管理员
func (m *ChatMember) IsActiveAdmin() bool {
	return m.IsActive() && m.IsAdmin
}

// CountAdmins 统计名册中的管理员
func CountAdmins(members []ChatMember) int {
	n := 0
	for i := range members {
		if members[i].IsAdmin {
			n++
		}
	}
	return n
}

// FindMember 在名册中查找用户
func FindMember(members []ChatMember, userID int64) *ChatMember {
	for i := range members {
		if members[i].UserID == userID {
			return &members[i]
		}
	}
	return nil
}

// MemberIDs 名册用户 id 列表
func MemberIDs(members []ChatMember) []int64 {
	ids := make([]int64, len(members))
	for i := range members {
		ids[i] = members[i].UserID
	}
	return ids
}
