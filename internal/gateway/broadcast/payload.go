package broadcast

import "chat_fanout_server/internal/model"

// ChatRef DeleteChat / ChatlistDeleteChat
type ChatRef struct {
	ChatID int64 `json:"chatId"`
}

// MembersChanged 名册变更后的完整名册
type MembersChanged struct {
	ChatID  int64              `json:"chatId"`
	Members []model.ChatMember `json:"members"`
}

// MessageSeen 已读水位前移
type MessageSeen struct {
	ChatID    int64 `json:"chatId"`
	UserID    int64 `json:"userId"`
	MessageID int64 `json:"messageId"`
}

type Typing struct {
	ChatID int64 `json:"chatId"`
	UserID int64 `json:"userId"`
}

// MessageRef MessageDeleted
type MessageRef struct {
	ChatID    int64 `json:"chatId"`
	MessageID int64 `json:"messageId"`
}
