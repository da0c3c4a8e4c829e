package service

import (
	"context"
	"testing"
	"time"

	myredis "chat_fanout_server/internal/dao/redis"
	"chat_fanout_server/internal/dao/repository/repotest"
	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/gateway/broadcast/broadcasttest"
	"chat_fanout_server/internal/model"
	"chat_fanout_server/internal/service/chat"
	"chat_fanout_server/internal/service/message"
	"chat_fanout_server/pkg/pagination"
)

// A 建群 Trip 拉 B、C，把 B 设为管理员后退出
func TestTripScenario(t *testing.T) {
	ctx := context.Background()
	store := repotest.New()
	store.AddUser(1, "A")
	store.AddUser(2, "B")
	store.AddUser(3, "C")
	pub := broadcasttest.New()
	svcs := NewServices(store.Repositories(), myredis.NewMemoryCache(), pub, time.Minute)

	trip, err := svcs.Chat.CreateChat(ctx, chat.CreateChatInput{
		Type: model.ChatTypeGroup, CreatorID: 1, MemberIDs: []int64{2, 3}, Name: "Trip",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	hello, err := svcs.Message.InsertMessage(ctx, message.SendMessageInput{ChatID: trip.ID, SenderID: 1, Content: "Where to?"})
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if _, err := svcs.Message.UpdateLastSeenMessage(ctx, trip.ID, 2, hello.ID); err != nil {
		t.Fatalf("seen: %v", err)
	}
	if _, err := svcs.Chat.SetAdmin(ctx, trip.ID, 1, 2, true); err != nil {
		t.Fatalf("promote B: %v", err)
	}
	if err := svcs.Chat.Leave(ctx, trip.ID, 1); err != nil {
		t.Fatalf("A leave: %v", err)
	}

	roster, err := svcs.Chat.GetActiveMembers(ctx, trip.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(roster) != 2 || roster[0].UserID != 2 || !roster[0].IsAdmin || roster[1].UserID != 3 || roster[1].IsAdmin {
		t.Fatalf("roster = %+v", roster)
	}
	if roster[0].LastSeenMessageID != hello.ID {
		t.Fatalf("B watermark = %d", roster[0].LastSeenMessageID)
	}

	a, err := store.GetMember(ctx, trip.ID, 1)
	if err != nil || a == nil || a.Status != model.MemberStatusDeleted {
		t.Fatalf("A membership = %+v, %v", a, err)
	}

	page, err := svcs.Message.GetMessagePage(ctx, trip.ID, 2, pagination.Params{})
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"A created the chat.", "Where to?", "A left the Chat."}
	if len(page.Items) != len(want) {
		t.Fatalf("history = %+v", page.Items)
	}
	for i, w := range want {
		if page.Items[i].Content != w {
			t.Fatalf("history[%d] = %q, want %q", i, page.Items[i].Content, w)
		}
	}
	if page.Items[2].Type != model.MessageTypeNotification || page.Items[2].SenderName != "A" {
		t.Fatalf("leave notification = %+v", page.Items[2])
	}

	// A 不再能发言
	if _, err := svcs.Message.InsertMessage(ctx, message.SendMessageInput{ChatID: trip.ID, SenderID: 1, Content: "wait"}); err == nil {
		t.Fatal("A should no longer be able to post")
	}
	if got := pub.Users(broadcast.EventChatlistDeleteChat); len(got) != 1 || got[0] != 1 {
		t.Fatalf("ChatlistDeleteChat to %v", got)
	}
}
