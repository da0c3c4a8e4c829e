package model

import "time"

// Contact 有向联系人关系，互为好友是两行
type Contact struct {
	UserID    int64         `gorm:"column:user_id;primaryKey;autoIncrement:false" json:"userId"`
	ContactID int64         `gorm:"column:contact_id;primaryKey;autoIncrement:false" json:"contactId"`
	Status    ContactStatus `gorm:"column:status;not null;default:0;comment:0请求 1通过 2删除" json:"status"`
	CreatedAt time.Time     `gorm:"column:created_at" json:"createdAt"`
	UpdatedAt time.Time     `gorm:"column:updated_at" json:"updatedAt"`
}

func (Contact) TableName() string {
	return "contact"
}

// ContactEdge 有向边 user -> contact
type ContactEdge struct {
	UserID    int64
	ContactID int64
}
