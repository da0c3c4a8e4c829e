package model

// 各实体的状态各自独立定义，数值相同也不混用

// ChatType 会话类型
type ChatType int8

const (
	ChatTypeP2P   ChatType = 0
	ChatTypeGroup ChatType = 1
)

func (t ChatType) String() string {
	if t == ChatTypeGroup {
		return "group"
	}
	return "p2p"
}

func (t ChatType) Valid() bool {
	return t == ChatTypeP2P || t == ChatTypeGroup
}

// ChatStatus 会话状态
type ChatStatus int8

const (
	ChatStatusActive  ChatStatus = 0
	ChatStatusDeleted ChatStatus = 1
)

// MemberStatus 成员状态。Approved 目前不用于成员
type MemberStatus int8

const (
	MemberStatusActive   MemberStatus = 0
	MemberStatusApproved MemberStatus = 1
	MemberStatusDeleted  MemberStatus = 2
)

// MessageType 消息类型
type MessageType int8

const (
	MessageTypeNormal       MessageType = 0
	MessageTypeNotification MessageType = 1
)

func (t MessageType) String() string {
	if t == MessageTypeNotification {
		return "notification"
	}
	return "normal"
}

// MessageStatus 消息状态
type MessageStatus int8

const (
	MessageStatusActive  MessageStatus = 0
	MessageStatusDeleted MessageStatus = 1
)

// ContactStatus 联系人状态，Active 表示待通过的请求
type ContactStatus int8

const (
	ContactStatusActive   ContactStatus = 0
	ContactStatusApproved ContactStatus = 1
	ContactStatusDeleted  ContactStatus = 2
)
