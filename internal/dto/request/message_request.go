package request

type SendMessageRequest struct {
	ChatId  int64  `json:"chatId" binding:"required,gt=0"`
	Content string `json:"content" binding:"required,max=4096"`
}

// UpdateLastSeenRequest 已读到 messageId
type UpdateLastSeenRequest struct {
	ChatId    int64 `json:"chatId" binding:"required,gt=0"`
	MessageId int64 `json:"messageId" binding:"required,gt=0"`
}

type UpdateMessageRequest struct {
	MessageId int64  `json:"messageId" binding:"required,gt=0"`
	Content   string `json:"content" binding:"required,max=4096"`
}

type MessageIdRequest struct {
	MessageId int64 `json:"messageId" binding:"required,gt=0"`
}

// MessagePageRequest page 从 1 开始，第 1 页为最新消息
type MessagePageRequest struct {
	ChatId   int64 `form:"chatId" binding:"required,gt=0"`
	Page     int   `form:"page" binding:"omitempty,gte=1"`
	PageSize int   `form:"pageSize" binding:"omitempty,gte=1,lte=100"`
}
