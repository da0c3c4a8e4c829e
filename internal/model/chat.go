package model

import (
	"strconv"
	"time"
)

// Chat 会话表，只做软删除
type Chat struct {
	ID      int64      `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Type    ChatType   `gorm:"column:type;not null;comment:0单聊 1群聊" json:"type"`
	Name    string     `gorm:"column:name;type:varchar(64);comment:群名称" json:"name"`
	Picture string     `gorm:"column:picture;type:varchar(255);comment:群头像" json:"picture"`
	Status  ChatStatus `gorm:"column:status;not null;default:0;comment:0正常 1删除" json:"status"`
	// PairKey 单聊用户对 "小id:大id"，唯一索引；删除后置空
	PairKey   *string   `gorm:"column:pair_key;type:varchar(64);uniqueIndex" json:"-"`
	CreatedAt time.Time `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time `gorm:"column:updated_at" json:"updatedAt"`
}

func (Chat) TableName() string {
	return "chat"
}

func (c *Chat) IsActive() bool {
	return c != nil && c.Status == ChatStatusActive
}

// P2PPairKey 与顺序无关的用户对标识
func P2PPairKey(u1, u2 int64) string {
	if u1 > u2 {
		u1, u2 = u2, u1
	}
	return strconv.FormatInt(u1, 10) + ":" + strconv.FormatInt(u2, 10)
}

// ChatListItem 会话列表项：会话元数据 + 最后一条消息预览
type ChatListItem struct {
	Chat        Chat         `json:"chat"`
	LastMessage *MessageView `json:"lastMessage,omitempty"`
}
