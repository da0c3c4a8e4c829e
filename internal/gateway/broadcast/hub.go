package broadcast

import (
	"encoding/json"
	"sync"

	"chat_fanout_server/internal/metrics"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Conn 一条客户端连接在 Hub 中的登记，send 由写协程消费
type Conn struct {
	ID     string
	UserID int64

	send   chan []byte
	groups map[string]struct{} // 受 Hub.mu 保护
	closed bool                // 受 Hub.mu 保护
}

// NewConn buffer 为发送缓冲的帧数，至少为 1
func NewConn(userID int64, buffer int) *Conn {
	if buffer <= 0 {
		buffer = 1
	}
	return &Conn{
		ID:     uuid.NewString(),
		UserID: userID,
		send:   make(chan []byte, buffer),
		groups: make(map[string]struct{}),
	}
}

// Send 待写出的帧，连接注销后关闭
func (c *Conn) Send() <-chan []byte {
	return c.send
}

// enqueue 调用方需持有 Hub 读锁
func (c *Conn) enqueue(b []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- b:
		return true
	default:
		return false
	}
}

// Hub 本节点的连接索引：用户 -> 连接，分组 -> 连接
type Hub struct {
	mu     sync.RWMutex
	users  map[int64]map[string]*Conn
	groups map[string]map[string]*Conn
}

// NewHub 每个进程一个
func NewHub() *Hub {
	return &Hub{
		users:  make(map[int64]map[string]*Conn),
		groups: make(map[string]map[string]*Conn),
	}
}

// Register 登记连接，此时还未加入任何分组
func (h *Hub) Register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	set, ok := h.users[c.UserID]
	if !ok {
		set = make(map[string]*Conn)
		h.users[c.UserID] = set
	}
	set[c.ID] = c
	metrics.ConnectionsActive.Inc()
}

// Unregister 移出所有分组并关闭发送通道，可重复调用
func (h *Hub) Unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	for group := range c.groups {
		h.removeFromGroup(group, c)
	}
	if set, ok := h.users[c.UserID]; ok {
		delete(set, c.ID)
		if len(set) == 0 {
			delete(h.users, c.UserID)
		}
	}
	c.closed = true
	close(c.send)
	metrics.ConnectionsActive.Dec()
}

// Join 把连接加入分组，已注销的连接忽略
func (h *Hub) Join(c *Conn, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.closed {
		return
	}
	set, ok := h.groups[group]
	if !ok {
		set = make(map[string]*Conn)
		h.groups[group] = set
	}
	set[c.ID] = c
	c.groups[group] = struct{}{}
}

// Leave 把单个连接移出分组
func (h *Hub) Leave(c *Conn, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeFromGroup(group, c)
}

// LeaveUser 把该用户在本节点的所有连接移出分组
func (h *Hub) LeaveUser(userID int64, group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.users[userID] {
		h.removeFromGroup(group, c)
	}
}

// CloseGroup 移除分组及其所有连接的订阅，连接本身保留
func (h *Hub) CloseGroup(group string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, c := range h.groups[group] {
		delete(c.groups, group)
	}
	delete(h.groups, group)
}

func (h *Hub) removeFromGroup(group string, c *Conn) {
	delete(c.groups, group)
	set, ok := h.groups[group]
	if !ok {
		return
	}
	delete(set, c.ID)
	if len(set) == 0 {
		delete(h.groups, group)
	}
}

// Members 分组内在线用户，测试与排查使用
func (h *Hub) Members(group string) []int64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	seen := make(map[int64]struct{})
	var out []int64
	for _, c := range h.groups[group] {
		if _, ok := seen[c.UserID]; ok {
			continue
		}
		seen[c.UserID] = struct{}{}
		out = append(out, c.UserID)
	}
	return out
}

// Online 用户在本节点是否有连接
func (h *Hub) Online(userID int64) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.users[userID]) > 0
}

// Deliver 写入所有匹配的本地连接，返回成功写入的连接数
// 发送缓冲满的连接直接丢弃该帧
func (h *Hub) Deliver(f Frame) int {
	switch f.Event {
	case EventUnsubscribe:
		h.LeaveUser(f.UserID, f.Group)
		return 0
	case EventCloseGroup:
		h.CloseGroup(f.Group)
		return 0
	}
	if f.isControl() {
		return 0
	}

	b, err := json.Marshal(f)
	if err != nil {
		zap.L().Error("marshal frame", zap.String("event", f.Event), zap.Error(err))
		return 0
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	var targets map[string]*Conn
	if f.Group != "" {
		targets = h.groups[f.Group]
	} else {
		targets = h.users[f.UserID]
	}
	delivered := 0
	for _, c := range targets {
		if c.enqueue(b) {
			delivered++
			continue
		}
		zap.L().Warn("connection send buffer full, frame dropped",
			zap.String("connId", c.ID),
			zap.Int64("userId", c.UserID),
			zap.String("event", f.Event),
		)
	}
	metrics.FramesDelivered.Add(float64(delivered))
	return delivered
}
