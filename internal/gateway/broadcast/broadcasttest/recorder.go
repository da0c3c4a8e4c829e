// Package broadcasttest 记录推送的 Publisher，供服务层测试断言
package broadcasttest

import (
	"sync"

	"chat_fanout_server/internal/gateway/broadcast"
)

type Recorder struct {
	mu   sync.Mutex
	envs []broadcast.Envelope
}

var _ broadcast.Publisher = (*Recorder)(nil)

func New() *Recorder {
	return &Recorder{}
}

func (r *Recorder) PublishToGroup(group, event string, payload any) {
	r.Dispatch(broadcast.ToGroup(group, event, payload))
}

func (r *Recorder) PublishToUser(userID int64, event string, payload any) {
	r.Dispatch(broadcast.ToUser(userID, event, payload))
}

func (r *Recorder) Dispatch(envs ...broadcast.Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, envs...)
}

// Envelopes 按提交顺序返回全部推送
func (r *Recorder) Envelopes() []broadcast.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]broadcast.Envelope(nil), r.envs...)
}

// Events 指定事件的推送
func (r *Recorder) Events(event string) []broadcast.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []broadcast.Envelope
	for _, e := range r.envs {
		if e.Event == event {
			out = append(out, e)
		}
	}
	return out
}

// Users 指定事件的定向用户
func (r *Recorder) Users(event string) []int64 {
	var out []int64
	for _, e := range r.Events(event) {
		if e.UserID != 0 && e.Group == "" {
			out = append(out, e.UserID)
		}
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = nil
}
