// Package broadcast 负责把服务层产生的状态变更推送给在线客户端
//
// 服务层只依赖 Publisher；Gateway 按会话分片排队，由 Broker 跨节点分发，
// 每个节点的 Hub 再写入本地 websocket 连接
package broadcast

import (
	"encoding/json"
	"strconv"
	"strings"
)

// 推送给客户端的事件名
const (
	EventNewChatCreated     = "NewChatCreated"
	EventReceiveMessage     = "ReceiveMessage"
	EventChatlistNewMessage = "ChatlistNewMessage"
	EventNotifyMessageSeen  = "NotifyMessageSeen"
	EventUserTyping         = "UserTyping"
	EventDeleteChat         = "DeleteChat"
	EventChatlistDeleteChat = "ChatlistDeleteChat"
	EventChatMembersChanged = "ChatMembersChanged"
	EventChatInfoUpdated    = "ChatInfoUpdated"
	EventMessageUpdated     = "MessageUpdated"
	EventMessageDeleted     = "MessageDeleted"
	EventError              = "Error"
)

// 内部控制事件，经 broker 广播到所有节点，由 Hub 执行，不下发给客户端
const (
	EventUnsubscribe = "__unsubscribe" // Group + UserID：把该用户的连接移出分组
	EventCloseGroup  = "__closeGroup"  // Group：解散分组
)

const groupPrefix = "chat-"

// GroupName 会话对应的分组名
func GroupName(chatID int64) string {
	return groupPrefix + strconv.FormatInt(chatID, 10)
}

// ChatIDFromGroup GroupName 的逆操作
func ChatIDFromGroup(group string) (int64, bool) {
	if !strings.HasPrefix(group, groupPrefix) {
		return 0, false
	}
	id, err := strconv.ParseInt(strings.TrimPrefix(group, groupPrefix), 10, 64)
	if err != nil {
		return 0, false
	}
	return id, true
}

// Envelope 服务层提交的一次推送，Group 与 UserID 二选一
type Envelope struct {
	ID      int64
	Event   string
	Group   string
	UserID  int64
	Payload any
}

// ToGroup 发往分组的推送
func ToGroup(group, event string, payload any) Envelope {
	return Envelope{Event: event, Group: group, Payload: payload}
}

// ToUser 发往单个用户所有连接的推送
func ToUser(userID int64, event string, payload any) Envelope {
	return Envelope{Event: event, UserID: userID, Payload: payload}
}

// shardKey 同一会话的推送落在同一分片，保证先进先出
func (e Envelope) shardKey() string {
	if e.Group != "" {
		return e.Group
	}
	return "user-" + strconv.FormatInt(e.UserID, 10)
}

func (e Envelope) frame() (Frame, error) {
	f := Frame{ID: e.ID, Event: e.Event, Group: e.Group, UserID: e.UserID}
	if e.Payload == nil {
		return f, nil
	}
	raw, err := json.Marshal(e.Payload)
	if err != nil {
		return Frame{}, err
	}
	f.Payload = raw
	return f, nil
}

// Frame 经 broker 传输、最终写给客户端的帧
type Frame struct {
	ID      int64           `json:"id,string"`
	Event   string          `json:"event"`
	Group   string          `json:"group,omitempty"`
	UserID  int64           `json:"userId,omitempty"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

func (f Frame) isControl() bool {
	return strings.HasPrefix(f.Event, "__")
}

// Publisher 服务层依赖的推送接口，调用不阻塞、不返回错误
// payload 在调用返回前完成编码，调用方之后可以继续修改
type Publisher interface {
	PublishToGroup(group, event string, payload any)
	PublishToUser(userID int64, event string, payload any)
	Dispatch(envs ...Envelope)
}
