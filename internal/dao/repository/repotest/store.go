// Package repotest 提供 repository 各接口的内存实现，供服务层和 handler 测试使用
package repotest

import (
	"context"
	"sort"
	"sync"
	"time"

	"chat_fanout_server/internal/dao/repository"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/pkg/errorx"
	"chat_fanout_server/pkg/pagination"
)

type memberKey struct {
	chatID, userID int64
}

// Store 线程安全的内存存储。FailOn 可对指定操作注入错误，
// DropMemberRows / DropContactRows 用于模拟插入行数不一致
type Store struct {
	mu         sync.Mutex
	nextChatID int64
	nextMsgID  int64
	users      map[int64]model.UserInfo
	chats      map[int64]*model.Chat
	members    map[memberKey]*model.ChatMember
	messages   []*model.Message
	contacts   map[model.ContactEdge]*model.Contact
	failures   map[string]error
	calls      map[string]int

	DropMemberRows  int
	DropContactRows int
	// OnCreateChat 在唯一性检查前调用，可用来制造并发创建
	OnCreateChat func(chat *model.Chat)
	// OnInsertMembers 在加锁前调用一次，可用来模拟并发添加同一成员
	OnInsertMembers func()
	// OnInsertContacts 在加锁前调用一次，可用来模拟对方并发写入同一批边
	OnInsertContacts func()
}

func New() *Store {
	return &Store{
		users:    make(map[int64]model.UserInfo),
		chats:    make(map[int64]*model.Chat),
		members:  make(map[memberKey]*model.ChatMember),
		contacts: make(map[model.ContactEdge]*model.Contact),
		failures: make(map[string]error),
		calls:    make(map[string]int),
	}
}

// Repositories 以同一个 Store 实现全部接口
func (s *Store) Repositories() *repository.Repositories {
	return &repository.Repositories{Chat: s, Member: s, Message: s, Contact: s, User: s}
}

// AddUser 预置用户资料
func (s *Store) AddUser(id int64, name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.users[id] = model.UserInfo{ID: id, DisplayName: name, Picture: name + ".png"}
}

// FailOn 之后每次调用 op 都返回 err，err 为 nil 时清除
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err == nil {
		delete(s.failures, op)
		return
	}
	s.failures[op] = err
}

// Calls 返回 op 被调用的次数
func (s *Store) Calls(op string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls[op]
}

// enter 记录调用并返回注入的错误，调用方需持有锁
func (s *Store) enter(op string) error {
	s.calls[op]++
	return s.failures[op]
}

// Chats 全部会话快照
func (s *Store) Chats() []model.Chat {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Chat, 0, len(s.chats))
	for _, c := range s.chats {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// Messages 某会话全部消息（含已删除）快照
func (s *Store) Messages(chatID int64) []model.Message {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []model.Message
	for _, m := range s.messages {
		if m.ChatID == chatID {
			out = append(out, *m)
		}
	}
	return out
}

// Contacts 全部联系人快照
func (s *Store) Contacts() []model.Contact {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]model.Contact, 0, len(s.contacts))
	for _, c := range s.contacts {
		out = append(out, *c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UserID != out[j].UserID {
			return out[i].UserID < out[j].UserID
		}
		return out[i].ContactID < out[j].ContactID
	})
	return out
}

// ==================== ChatRepository ====================

func (s *Store) CreateChat(_ context.Context, chat *model.Chat) error {
	if s.OnCreateChat != nil {
		s.OnCreateChat(chat)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("CreateChat"); err != nil {
		return err
	}
	if chat.PairKey != nil {
		for _, c := range s.chats {
			if c.PairKey != nil && *c.PairKey == *chat.PairKey {
				return errorx.New(errorx.CodeDuplicate, "create chat: duplicate pair_key")
			}
		}
	}
	s.nextChatID++
	now := time.Now()
	chat.ID = s.nextChatID
	chat.CreatedAt, chat.UpdatedAt = now, now
	c := *chat
	if chat.PairKey != nil {
		k := *chat.PairKey
		c.PairKey = &k
	}
	s.chats[c.ID] = &c
	return nil
}

func (s *Store) GetChat(_ context.Context, chatID int64) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetChat"); err != nil {
		return nil, err
	}
	c, ok := s.chats[chatID]
	if !ok {
		return nil, nil
	}
	cp := *c
	return &cp, nil
}

func (s *Store) GetP2PChatByUserPair(_ context.Context, u1, u2 int64) (*model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetP2PChatByUserPair"); err != nil {
		return nil, err
	}
	key := model.P2PPairKey(u1, u2)
	for _, c := range s.chats {
		if c.Type == model.ChatTypeP2P && c.Status == model.ChatStatusActive && c.PairKey != nil && *c.PairKey == key {
			cp := *c
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *Store) UpdateChatInfo(_ context.Context, chatID int64, name, picture string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateChatInfo"); err != nil {
		return 0, err
	}
	c, ok := s.chats[chatID]
	if !ok || c.Status != model.ChatStatusActive {
		return 0, nil
	}
	c.Name, c.Picture, c.UpdatedAt = name, picture, time.Now()
	return 1, nil
}

func (s *Store) SetChatStatus(_ context.Context, chatID int64, status model.ChatStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetChatStatus"); err != nil {
		return 0, err
	}
	c, ok := s.chats[chatID]
	if !ok {
		return 0, nil
	}
	c.Status = status
	if status == model.ChatStatusDeleted {
		c.PairKey = nil
	}
	return 1, nil
}

func (s *Store) GetUserChats(_ context.Context, userID int64) ([]model.Chat, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUserChats"); err != nil {
		return nil, err
	}
	var out []model.Chat
	for k, m := range s.members {
		if k.userID != userID || !m.IsActive() {
			continue
		}
		if c, ok := s.chats[k.chatID]; ok && c.Status == model.ChatStatusActive {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out, nil
}

// ==================== ChatMemberRepository ====================

func (s *Store) InsertMembers(_ context.Context, chatID int64, userIDs, adminIDs []int64) ([]model.ChatMember, error) {
	if hook := s.OnInsertMembers; hook != nil {
		s.OnInsertMembers = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertMembers"); err != nil {
		return nil, err
	}
	admins := make(map[int64]bool, len(adminIDs))
	for _, id := range adminIDs {
		admins[id] = true
	}
	now := time.Now()
	var inserted []model.ChatMember
	for i, uid := range userIDs {
		if i >= len(userIDs)-s.DropMemberRows {
			break
		}
		if _, ok := s.members[memberKey{chatID, uid}]; ok {
			continue
		}
		m := &model.ChatMember{ChatID: chatID, UserID: uid, IsAdmin: admins[uid], CreatedAt: now, UpdatedAt: now}
		s.members[memberKey{chatID, uid}] = m
		inserted = append(inserted, *m)
	}
	sort.Slice(inserted, func(i, j int) bool { return inserted[i].UserID < inserted[j].UserID })
	return inserted, nil
}

func (s *Store) GetActiveMembers(_ context.Context, chatID int64) ([]model.ChatMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetActiveMembers"); err != nil {
		return nil, err
	}
	out := []model.ChatMember{}
	for k, m := range s.members {
		if k.chatID == chatID && m.IsActive() {
			out = append(out, *m)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UserID < out[j].UserID })
	return out, nil
}

func (s *Store) GetMember(_ context.Context, chatID, userID int64) (*model.ChatMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetMember"); err != nil {
		return nil, err
	}
	m, ok := s.members[memberKey{chatID, userID}]
	if !ok {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) SetAdmin(_ context.Context, chatID, userID int64, isAdmin bool) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetAdmin"); err != nil {
		return 0, err
	}
	m, ok := s.members[memberKey{chatID, userID}]
	if !ok || !m.IsActive() || m.IsAdmin == isAdmin {
		// 与 MySQL 一致：值未变化时影响行数为 0
		return 0, nil
	}
	m.IsAdmin = isAdmin
	m.UpdatedAt = time.Now()
	return 1, nil
}

func (s *Store) SetMemberStatus(_ context.Context, chatID, userID int64, status model.MemberStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetMemberStatus"); err != nil {
		return 0, err
	}
	m, ok := s.members[memberKey{chatID, userID}]
	if !ok {
		return 0, nil
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	return 1, nil
}

func (s *Store) ReactivateMember(_ context.Context, chatID, userID int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ReactivateMember"); err != nil {
		return 0, err
	}
	m, ok := s.members[memberKey{chatID, userID}]
	if !ok || m.Status != model.MemberStatusDeleted {
		return 0, nil
	}
	m.Status = model.MemberStatusActive
	m.IsAdmin = false
	m.UpdatedAt = time.Now()
	return 1, nil
}

func (s *Store) UpdateLastSeen(_ context.Context, chatID, userID, messageID int64) (*model.ChatMember, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateLastSeen"); err != nil {
		return nil, err
	}
	m, ok := s.members[memberKey{chatID, userID}]
	if !ok {
		return nil, nil
	}
	if m.LastSeenMessageID < messageID {
		m.LastSeenMessageID = messageID
	}
	cp := *m
	return &cp, nil
}

// ==================== MessageRepository ====================

func (s *Store) view(m *model.Message) *model.MessageView {
	u := s.users[m.SenderID]
	return &model.MessageView{Message: *m, SenderName: u.DisplayName, SenderPicture: u.Picture}
}

func (s *Store) findMessage(id int64) *model.Message {
	for _, m := range s.messages {
		if m.ID == id {
			return m
		}
	}
	return nil
}

func (s *Store) InsertMessage(_ context.Context, msg *model.Message) (*model.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertMessage"); err != nil {
		return nil, err
	}
	s.nextMsgID++
	now := time.Now()
	msg.ID = s.nextMsgID
	msg.SentAt, msg.UpdatedAt = now, now
	m := *msg
	s.messages = append(s.messages, &m)
	if s.failures["InsertMessage.readBack"] != nil {
		return nil, nil
	}
	return s.view(&m), nil
}

func (s *Store) GetMessage(_ context.Context, messageID int64) (*model.Message, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetMessage"); err != nil {
		return nil, err
	}
	m := s.findMessage(messageID)
	if m == nil {
		return nil, nil
	}
	cp := *m
	return &cp, nil
}

func (s *Store) GetMessageView(_ context.Context, messageID int64) (*model.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetMessageView"); err != nil {
		return nil, err
	}
	m := s.findMessage(messageID)
	if m == nil {
		return nil, nil
	}
	return s.view(m), nil
}

func (s *Store) UpdateMessageContent(_ context.Context, messageID int64, content string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("UpdateMessageContent"); err != nil {
		return 0, err
	}
	m := s.findMessage(messageID)
	if m == nil || m.Status != model.MessageStatusActive {
		return 0, nil
	}
	m.Content = content
	m.UpdatedAt = time.Now()
	return 1, nil
}

func (s *Store) SetMessageStatus(_ context.Context, messageID int64, status model.MessageStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetMessageStatus"); err != nil {
		return 0, err
	}
	m := s.findMessage(messageID)
	if m == nil {
		return 0, nil
	}
	m.Status = status
	m.UpdatedAt = time.Now()
	return 1, nil
}

func (s *Store) activeMessages(chatID int64) []*model.Message {
	var out []*model.Message
	for _, m := range s.messages {
		if m.ChatID == chatID && m.Status == model.MessageStatusActive {
			out = append(out, m)
		}
	}
	return out
}

func (s *Store) GetLastMessage(_ context.Context, chatID int64) (*model.MessageView, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetLastMessage"); err != nil {
		return nil, err
	}
	msgs := s.activeMessages(chatID)
	if len(msgs) == 0 {
		return nil, nil
	}
	return s.view(msgs[len(msgs)-1]), nil
}

func (s *Store) GetMessagePage(_ context.Context, chatID int64, p pagination.Params) ([]model.MessageView, int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetMessagePage"); err != nil {
		return nil, 0, err
	}
	msgs := s.activeMessages(chatID)
	// 倒序取窗口，再把窗口翻回升序
	desc := make([]model.MessageView, 0, len(msgs))
	for i := len(msgs) - 1; i >= 0; i-- {
		desc = append(desc, *s.view(msgs[i]))
	}
	page := pagination.Window(desc, p)
	items := page.Items
	for i, j := 0, len(items)-1; i < j; i, j = i+1, j-1 {
		items[i], items[j] = items[j], items[i]
	}
	return items, page.Total, nil
}

// ==================== ContactRepository ====================

func (s *Store) GetContacts(_ context.Context, edges []model.ContactEdge) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetContacts"); err != nil {
		return nil, err
	}
	var out []model.Contact
	for _, e := range edges {
		if c, ok := s.contacts[e]; ok {
			out = append(out, *c)
		}
	}
	return out, nil
}

func (s *Store) InsertContacts(_ context.Context, contacts []model.Contact) (int64, error) {
	if hook := s.OnInsertContacts; hook != nil {
		s.OnInsertContacts = nil
		hook()
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("InsertContacts"); err != nil {
		return 0, err
	}
	var n int64
	for i, c := range contacts {
		if i >= len(contacts)-s.DropContactRows {
			break
		}
		e := model.ContactEdge{UserID: c.UserID, ContactID: c.ContactID}
		if _, ok := s.contacts[e]; ok {
			continue
		}
		cp := c
		cp.CreatedAt, cp.UpdatedAt = time.Now(), time.Now()
		s.contacts[e] = &cp
		n++
	}
	return n, nil
}

func (s *Store) ListContacts(_ context.Context, userID int64) ([]model.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("ListContacts"); err != nil {
		return nil, err
	}
	var out []model.Contact
	for e, c := range s.contacts {
		if e.UserID == userID && c.Status != model.ContactStatusDeleted {
			out = append(out, *c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ContactID < out[j].ContactID })
	return out, nil
}

func (s *Store) SetContactStatus(_ context.Context, userID, contactID int64, status model.ContactStatus) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("SetContactStatus"); err != nil {
		return 0, err
	}
	c, ok := s.contacts[model.ContactEdge{UserID: userID, ContactID: contactID}]
	if !ok {
		return 0, nil
	}
	c.Status = status
	c.UpdatedAt = time.Now()
	return 1, nil
}

// ==================== UserRepository ====================

func (s *Store) GetUser(_ context.Context, userID int64) (*model.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUser"); err != nil {
		return nil, err
	}
	u, ok := s.users[userID]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *Store) GetUsers(_ context.Context, userIDs []int64) ([]model.UserInfo, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.enter("GetUsers"); err != nil {
		return nil, err
	}
	var out []model.UserInfo
	for _, id := range userIDs {
		if u, ok := s.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

var (
	_ repository.ChatRepository       = (*Store)(nil)
	_ repository.ChatMemberRepository = (*Store)(nil)
	_ repository.MessageRepository    = (*Store)(nil)
	_ repository.ContactRepository    = (*Store)(nil)
	_ repository.UserRepository       = (*Store)(nil)
)
