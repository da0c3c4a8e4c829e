package model

import "time"

// UserInfo 用户资料，由身份服务维护，这里只读
type UserInfo struct {
	ID          int64     `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	DisplayName string    `gorm:"column:display_name;type:varchar(64);not null;comment:昵称" json:"displayName"`
	Picture     string    `gorm:"column:picture;type:varchar(255);comment:头像" json:"picture"`
	CreatedAt   time.Time `gorm:"column:created_at" json:"createdAt"`
}

func (UserInfo) TableName() string {
	return "user_info"
}

// AllModels AutoMigrate 使用
func AllModels() []any {
	return []any{&UserInfo{}, &Chat{}, &ChatMember{}, &Message{}, &Contact{}}
}
