package model

import "time"

// Message 消息表，id 由库自增，会话内按 id 排序
type Message struct {
	ID        int64         `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	ChatID    int64         `gorm:"column:chat_id;not null;index:idx_message_chat_id" json:"chatId"`
	SenderID  int64         `gorm:"column:sender_id;not null;index" json:"senderId"`
	Type      MessageType   `gorm:"column:type;not null;default:0;comment:0普通 1通知" json:"type"`
	Content   string        `gorm:"column:content;type:text;comment:消息内容" json:"content"`
	Status    MessageStatus `gorm:"column:status;not null;default:0;comment:0正常 1删除" json:"status"`
	SentAt    time.Time     `gorm:"column:sent_at;autoCreateTime" json:"sentAt"`
	UpdatedAt time.Time     `gorm:"column:updated_at" json:"updatedAt"`
}

func (Message) TableName() string {
	return "message"
}

// MessageView 带发送者昵称和头像的消息
type MessageView struct {
	Message
	SenderName    string `gorm:"column:sender_name" json:"senderName"`
	SenderPicture string `gorm:"column:sender_picture" json:"senderPicture"`
}
