package message_test

import (
	"context"
	"errors"
	"testing"
	"time"

	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/dao/repository/repotest"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/gateway/broadcast/broadcasttest"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/internal/service"
	"chat_fanout_server/internal/service/chat"
	"chat_fanout_server/internal/service/message"
	"chat_fanout_server/pkg/errorx"
	"chat_fanout_server/pkg/pagination"
)

const (
	userA int64 = 1
	userB int64 = 2
	userC int64 = 3
)

type fixture struct {
	ctx   context.Context
	store *repotest.Store
	pub   *broadcasttest.Recorder
	svc   *service.Services
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := repotest.New()
	store.AddUser(userA, "A")
	store.AddUser(userB, "B")
	store.AddUser(userC, "C")
	pub := broadcasttest.New()
	return &fixture{
		ctx:   context.Background(),
		store: store,
		pub:   pub,
		svc:   service.NewServices(store.Repositories(), myredis.NewMemoryCache(), pub, time.Minute),
	}
}

func (f *fixture) create(t *testing.T, typ model.ChatType, creator int64, members ...int64) *model.Chat {
	t.Helper()
	c, err := f.svc.Chat.CreateChat(f.ctx, chat.CreateChatInput{Type: typ, CreatorID: creator, MemberIDs: members})
	if err != nil {
		t.Fatalf("create chat: %v", err)
	}
	return c
}

func (f *fixture) send(t *testing.T, chatID, sender int64, content string) *model.MessageView {
	t.Helper()
	v, err := f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: chatID, SenderID: sender, Content: content})
	if err != nil {
		t.Fatalf("send %q: %v", content, err)
	}
	return v
}

func TestInsertMessageHydratesAndFansOut(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)
	f.pub.Reset()

	v := f.send(t, c.ID, userB, "hello")
	if v.SenderName != "B" || v.SenderPicture != "B.png" || v.Type != model.MessageTypeNormal {
		t.Fatalf("view = %+v", v)
	}

	received := f.pub.Events(broadcast.EventReceiveMessage)
	if len(received) != 1 || received[0].Group != broadcast.GroupName(c.ID) {
		t.Fatalf("ReceiveMessage = %+v", received)
	}
	previews := f.pub.Events(broadcast.EventChatlistNewMessage)
	if len(previews) != 2 {
		t.Fatalf("ChatlistNewMessage = %d, want 2", len(previews))
	}
	item := previews[0].Payload.(model.ChatListItem)
	if item.Chat.ID != c.ID || item.LastMessage.ID != v.ID {
		t.Fatalf("preview = %+v", item)
	}
	// 群聊不建联系人
	if n := len(f.store.Contacts()); n != 0 {
		t.Fatalf("contacts = %d", n)
	}
}

func TestInsertMessageRejectsNonMember(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)

	_, err := f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: c.ID, SenderID: userC, Content: "hi"})
	if !errors.Is(err, message.ErrNotMember) {
		t.Fatalf("err = %v", err)
	}
	_, err = f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: 404, SenderID: userA, Content: "hi"})
	if !errorx.IsNotFound(err) {
		t.Fatalf("unknown chat: err = %v", err)
	}
	_, err = f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: c.ID, SenderID: userA, Content: "  "})
	if errorx.GetCode(err) != errorx.CodeInvalidParam {
		t.Fatalf("empty content: err = %v", err)
	}
}

func TestFirstP2PMessageCreatesContacts(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeP2P, userA, userB)

	f.send(t, c.ID, userA, "hi")
	contacts := f.store.Contacts()
	if len(contacts) != 2 {
		t.Fatalf("contacts = %+v", contacts)
	}
	for _, ct := range contacts {
		if ct.Status != model.ContactStatusActive {
			t.Fatalf("new contact should be pending: %+v", ct)
		}
	}

	// 已有的边保持原状态
	if err := f.svc.Contact.ApproveContact(f.ctx, userB, userA); err != nil {
		t.Fatal(err)
	}
	f.send(t, c.ID, userB, "hey")
	f.send(t, c.ID, userA, "again")
	contacts = f.store.Contacts()
	if len(contacts) != 2 {
		t.Fatalf("contacts = %+v", contacts)
	}
	for _, ct := range contacts {
		if ct.Status != model.ContactStatusApproved {
			t.Fatalf("approved contact overwritten: %+v", ct)
		}
	}
}

func TestContactInsertMismatchIsInvariantViolation(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeP2P, userA, userB)
	f.store.DropContactRows = 1

	_, err := f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: c.ID, SenderID: userA, Content: "hi"})
	if !errorx.IsInvariant(err) {
		t.Fatalf("err = %v, want invariant violation", err)
	}
}

func TestFailedFirstSendContactsBackfilled(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeP2P, userA, userB)
	f.pub.Reset()

	f.store.FailOn("GetContacts", errors.New("db down"))
	if _, err := f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: c.ID, SenderID: userA, Content: "first"}); err == nil {
		t.Fatal("expected contact lookup failure")
	}
	if n := len(f.store.Messages(c.ID)); n != 1 {
		t.Fatalf("first message should stay persisted, got %d", n)
	}
	if n := len(f.pub.Events(broadcast.EventReceiveMessage)); n != 0 {
		t.Fatalf("failed send broadcast %d frames", n)
	}

	f.store.FailOn("GetContacts", nil)
	f.send(t, c.ID, userA, "second")
	if n := len(f.store.Contacts()); n != 2 {
		t.Fatalf("contacts after retry = %d, want 2", n)
	}
}

func TestConcurrentContactUpsertIsAbsorbed(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeP2P, userA, userB)
	f.pub.Reset()

	// 对方的首条消息抢先写入了两条边
	f.store.OnInsertContacts = func() {
		_, _ = f.store.InsertContacts(f.ctx, []model.Contact{
			{UserID: userA, ContactID: userB, Status: model.ContactStatusActive},
			{UserID: userB, ContactID: userA, Status: model.ContactStatusActive},
		})
	}
	f.send(t, c.ID, userA, "hi")

	if n := len(f.store.Contacts()); n != 2 {
		t.Fatalf("contacts = %d", n)
	}
	if n := len(f.pub.Events(broadcast.EventReceiveMessage)); n != 1 {
		t.Fatalf("ReceiveMessage frames = %d, want 1", n)
	}
}

func TestInsertMessageNilResult(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)
	f.store.FailOn("InsertMessage.readBack", errors.New("row vanished"))
	f.pub.Reset()

	_, err := f.svc.Message.InsertMessage(f.ctx, message.SendMessageInput{ChatID: c.ID, SenderID: userA, Content: "hi"})
	if !errorx.IsInvariant(err) {
		t.Fatalf("err = %v, want invariant violation", err)
	}
	if n := len(f.pub.Envelopes()); n != 0 {
		t.Fatalf("broadcast %d envelopes for a failed insert", n)
	}
}

func TestInsertNotificationSkipsMembership(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)

	v, err := f.svc.Message.InsertNotification(f.ctx, c.ID, userC, "C did something.")
	if err != nil {
		t.Fatal(err)
	}
	if v.Type != model.MessageTypeNotification {
		t.Fatalf("type = %v", v.Type)
	}
}

func TestLastSeenIsMonotonic(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)
	m1 := f.send(t, c.ID, userA, "1")
	m2 := f.send(t, c.ID, userA, "2")
	m3 := f.send(t, c.ID, userA, "3")
	f.pub.Reset()

	got, err := f.svc.Message.UpdateLastSeenMessage(f.ctx, c.ID, userB, m3.ID)
	if err != nil || got.LastSeenMessageID != m3.ID {
		t.Fatalf("advance = %+v, %v", got, err)
	}
	got, err = f.svc.Message.UpdateLastSeenMessage(f.ctx, c.ID, userB, m2.ID)
	if err != nil || got.LastSeenMessageID != m3.ID {
		t.Fatalf("regress = %+v, %v", got, err)
	}
	got, err = f.svc.Message.UpdateLastSeenMessage(f.ctx, c.ID, userB, m1.ID)
	if err != nil || got.LastSeenMessageID != m3.ID {
		t.Fatalf("regress = %+v, %v", got, err)
	}

	seen := f.pub.Events(broadcast.EventNotifyMessageSeen)
	if len(seen) != 1 {
		t.Fatalf("NotifyMessageSeen = %d, want 1", len(seen))
	}
	if p := seen[0].Payload.(broadcast.MessageSeen); p.MessageID != m3.ID || p.UserID != userB {
		t.Fatalf("payload = %+v", p)
	}

	// 缓存中的成员与名册同步前移
	m, err := f.svc.Chat.GetMember(f.ctx, c.ID, userB)
	if err != nil || m.LastSeenMessageID != m3.ID {
		t.Fatalf("cached member = %+v, %v", m, err)
	}
}

func TestLastSeenRejectsForeignMessage(t *testing.T) {
	f := newFixture(t)
	c1 := f.create(t, model.ChatTypeGroup, userA, userB)
	c2 := f.create(t, model.ChatTypeGroup, userA, userC)
	other := f.send(t, c2.ID, userA, "elsewhere")

	if _, err := f.svc.Message.UpdateLastSeenMessage(f.ctx, c1.ID, userB, other.ID); !errorx.IsNotFound(err) {
		t.Fatalf("foreign message: err = %v", err)
	}
	if _, err := f.svc.Message.UpdateLastSeenMessage(f.ctx, c1.ID, userB, 9999); !errorx.IsNotFound(err) {
		t.Fatalf("missing message: err = %v", err)
	}
	if _, err := f.svc.Message.UpdateLastSeenMessage(f.ctx, c1.ID, userC, other.ID); !errorx.IsForbidden(err) {
		t.Fatalf("non-member: err = %v", err)
	}
}

func TestMessageOrderingThroughGateway(t *testing.T) {
	store := repotest.New()
	store.AddUser(userA, "A")
	store.AddUser(userB, "B")

	hub := broadcast.NewHub()
	conn := broadcast.NewConn(userB, 64)
	hub.Register(conn)

	gw := broadcast.NewGateway(broadcast.NewLocalBroker(hub), nil, 4, 64)
	gw.Start()
	svc := service.NewServices(store.Repositories(), myredis.NewMemoryCache(), gw, time.Minute)
	ctx := context.Background()

	c, err := svc.Chat.CreateChat(ctx, chat.CreateChatInput{Type: model.ChatTypeGroup, CreatorID: userA, MemberIDs: []int64{userB}})
	if err != nil {
		t.Fatal(err)
	}
	hub.Join(conn, broadcast.GroupName(c.ID))

	var sent []int64
	for _, text := range []string{"a", "b", "c", "d", "e"} {
		v, err := svc.Message.InsertMessage(ctx, message.SendMessageInput{ChatID: c.ID, SenderID: userA, Content: text})
		if err != nil {
			t.Fatal(err)
		}
		sent = append(sent, v.ID)
	}
	gw.Close()

	var received []int64
	for {
		select {
		case raw := <-conn.Send():
			f, v := decodeMessageFrame(t, raw)
			if f.Event == broadcast.EventReceiveMessage && v.Type == model.MessageTypeNormal {
				received = append(received, v.ID)
			}
			continue
		default:
		}
		break
	}
	if len(received) != len(sent) {
		t.Fatalf("received %v, sent %v", received, sent)
	}
	for i := range sent {
		if received[i] != sent[i] {
			t.Fatalf("out of order: received %v, sent %v", received, sent)
		}
	}
}

func TestUpdateAndDeleteMessage(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)
	v := f.send(t, c.ID, userA, "draft")

	if _, err := f.svc.Message.UpdateMessage(f.ctx, v.ID, userB, "hijack"); !errors.Is(err, message.ErrNotSender) {
		t.Fatalf("non-sender edit: err = %v", err)
	}
	notification := f.store.Messages(c.ID)[0]
	if _, err := f.svc.Message.UpdateMessage(f.ctx, notification.ID, userA, "x"); !errors.Is(err, message.ErrNotEditable) {
		t.Fatalf("edit notification: err = %v", err)
	}

	updated, err := f.svc.Message.UpdateMessage(f.ctx, v.ID, userA, "final")
	if err != nil || updated.Content != "final" {
		t.Fatalf("update = %+v, %v", updated, err)
	}
	if n := len(f.pub.Events(broadcast.EventMessageUpdated)); n != 1 {
		t.Fatalf("MessageUpdated = %d", n)
	}

	if err := f.svc.Message.DeleteMessage(f.ctx, v.ID, userB); !errorx.IsForbidden(err) {
		t.Fatalf("non-sender delete: err = %v", err)
	}
	if err := f.svc.Message.DeleteMessage(f.ctx, v.ID, userA); err != nil {
		t.Fatal(err)
	}
	if err := f.svc.Message.DeleteMessage(f.ctx, v.ID, userA); !errorx.IsNotFound(err) {
		t.Fatalf("double delete: err = %v", err)
	}
	if _, err := f.svc.Message.UpdateMessage(f.ctx, v.ID, userA, "zombie"); !errorx.IsNotFound(err) {
		t.Fatalf("edit deleted: err = %v", err)
	}

	page, err := f.svc.Message.GetMessagePage(f.ctx, c.ID, userA, pagination.Params{})
	if err != nil {
		t.Fatal(err)
	}
	for _, m := range page.Items {
		if m.ID == v.ID {
			t.Fatal("deleted message listed")
		}
	}
}

func TestGetMessagePage(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)
	for i := 0; i < 24; i++ {
		f.send(t, c.ID, userA, "m")
	}
	all := f.store.Messages(c.ID) // 25 条，含创建通知

	page, err := f.svc.Message.GetMessagePage(f.ctx, c.ID, userB, pagination.Params{Page: 1, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if page.Total != 25 || len(page.Items) != 10 || !page.HasNext() {
		t.Fatalf("page 1 = total %d items %d", page.Total, len(page.Items))
	}
	if page.Items[0].ID != all[15].ID || page.Items[9].ID != all[24].ID {
		t.Fatalf("page 1 window = %d..%d", page.Items[0].ID, page.Items[9].ID)
	}

	last, err := f.svc.Message.GetMessagePage(f.ctx, c.ID, userB, pagination.Params{Page: 3, PageSize: 10})
	if err != nil {
		t.Fatal(err)
	}
	if len(last.Items) != 5 || last.Items[0].ID != all[0].ID || last.HasNext() {
		t.Fatalf("page 3 = %+v", last)
	}

	if _, err := f.svc.Message.GetMessagePage(f.ctx, c.ID, userC, pagination.Params{}); !errorx.IsForbidden(err) {
		t.Fatalf("non-member: err = %v", err)
	}
}

func TestUserTyping(t *testing.T) {
	f := newFixture(t)
	c := f.create(t, model.ChatTypeGroup, userA, userB)
	f.pub.Reset()

	if err := f.svc.Message.UserTyping(f.ctx, c.ID, userB); err != nil {
		t.Fatal(err)
	}
	typing := f.pub.Events(broadcast.EventUserTyping)
	if len(typing) != 1 || typing[0].Group != broadcast.GroupName(c.ID) {
		t.Fatalf("UserTyping = %+v", typing)
	}
	if err := f.svc.Message.UserTyping(f.ctx, c.ID, userC); !errorx.IsForbidden(err) {
		t.Fatalf("non-member: err = %v", err)
	}
}
