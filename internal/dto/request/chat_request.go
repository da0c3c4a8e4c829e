package request

// CreateChatRequest type: 0 单聊 1 群聊；memberIds 不必包含自己
type CreateChatRequest struct {
	Type      int8    `json:"type" binding:"oneof=0 1"`
	MemberIds []int64 `json:"memberIds" binding:"required,min=1,dive,gt=0"`
	Name      string  `json:"name" binding:"max=64"`
	Picture   string  `json:"picture" binding:"max=255"`
}

type ChatIdRequest struct {
	ChatId int64 `json:"chatId" form:"chatId" binding:"required,gt=0"`
}

// ChatMemberRequest 添加 / 移除成员
type ChatMemberRequest struct {
	ChatId int64 `json:"chatId" binding:"required,gt=0"`
	UserId int64 `json:"userId" binding:"required,gt=0"`
}

type SetAdminRequest struct {
	ChatId  int64 `json:"chatId" binding:"required,gt=0"`
	UserId  int64 `json:"userId" binding:"required,gt=0"`
	IsAdmin *bool `json:"isAdmin" binding:"required"`
}

type UpdateChatInfoRequest struct {
	ChatId  int64  `json:"chatId" binding:"required,gt=0"`
	Name    string `json:"name" binding:"required,max=64"`
	Picture string `json:"picture" binding:"max=255"`
}
