package broadcast

import (
	"encoding/json"
	"testing"
)

func recv(t *testing.T, c *Conn) Frame {
	t.Helper()
	select {
	case b, ok := <-c.Send():
		if !ok {
			t.Fatal("send channel closed")
		}
		var f Frame
		if err := json.Unmarshal(b, &f); err != nil {
			t.Fatalf("decode frame: %v", err)
		}
		return f
	default:
		t.Fatal("no frame buffered")
	}
	return Frame{}
}

func assertEmpty(t *testing.T, c *Conn) {
	t.Helper()
	select {
	case b := <-c.Send():
		t.Fatalf("unexpected frame %s", b)
	default:
	}
}

func TestHubDeliverToGroupAndUser(t *testing.T) {
	hub := NewHub()
	a, b, a2 := NewConn(1, 4), NewConn(2, 4), NewConn(1, 4)
	for _, c := range []*Conn{a, b, a2} {
		hub.Register(c)
	}
	hub.Join(a, GroupName(7))
	hub.Join(b, GroupName(7))

	if n := hub.Deliver(Frame{ID: 1, Event: EventReceiveMessage, Group: GroupName(7), Payload: json.RawMessage(`{"x":1}`)}); n != 2 {
		t.Fatalf("group delivered to %d conns, want 2", n)
	}
	if f := recv(t, a); f.Event != EventReceiveMessage || string(f.Payload) != `{"x":1}` {
		t.Fatalf("unexpected frame %+v", f)
	}
	recv(t, b)
	assertEmpty(t, a2)

	// 用户定向推送覆盖该用户的所有连接
	if n := hub.Deliver(Frame{Event: EventChatlistNewMessage, UserID: 1}); n != 2 {
		t.Fatalf("user delivered to %d conns, want 2", n)
	}
	recv(t, a)
	recv(t, a2)
	assertEmpty(t, b)
}

func TestHubUnsubscribeControl(t *testing.T) {
	hub := NewHub()
	a, b := NewConn(1, 4), NewConn(2, 4)
	hub.Register(a)
	hub.Register(b)
	group := GroupName(3)
	hub.Join(a, group)
	hub.Join(b, group)

	hub.Deliver(Frame{Event: EventUnsubscribe, Group: group, UserID: 1})
	assertEmpty(t, a)

	hub.Deliver(Frame{Event: EventReceiveMessage, Group: group})
	assertEmpty(t, a)
	recv(t, b)

	if got := hub.Members(group); len(got) != 1 || got[0] != 2 {
		t.Fatalf("members = %v, want [2]", got)
	}
}

func TestHubCloseGroupControl(t *testing.T) {
	hub := NewHub()
	a := NewConn(1, 4)
	hub.Register(a)
	hub.Join(a, GroupName(3))
	hub.Join(a, GroupName(4))

	hub.Deliver(Frame{Event: EventCloseGroup, Group: GroupName(3)})
	if n := hub.Deliver(Frame{Event: EventReceiveMessage, Group: GroupName(3)}); n != 0 {
		t.Fatalf("closed group delivered to %d conns", n)
	}
	if n := hub.Deliver(Frame{Event: EventReceiveMessage, Group: GroupName(4)}); n != 1 {
		t.Fatalf("other group delivered to %d conns, want 1", n)
	}
}

func TestHubFullBufferDrops(t *testing.T) {
	hub := NewHub()
	c := NewConn(1, 1)
	hub.Register(c)
	if n := hub.Deliver(Frame{Event: EventUserTyping, UserID: 1}); n != 1 {
		t.Fatalf("first frame delivered to %d", n)
	}
	if n := hub.Deliver(Frame{Event: EventUserTyping, UserID: 1}); n != 0 {
		t.Fatalf("second frame should be dropped, delivered to %d", n)
	}
}

func TestHubUnregister(t *testing.T) {
	hub := NewHub()
	c := NewConn(1, 4)
	hub.Register(c)
	hub.Join(c, GroupName(1))
	hub.Unregister(c)
	hub.Unregister(c)

	if hub.Online(1) {
		t.Fatal("user should be offline")
	}
	if _, ok := <-c.Send(); ok {
		t.Fatal("send channel should be closed")
	}
	if n := hub.Deliver(Frame{Event: EventReceiveMessage, Group: GroupName(1)}); n != 0 {
		t.Fatalf("delivered to %d conns after unregister", n)
	}
	hub.Join(c, GroupName(2))
	if got := hub.Members(GroupName(2)); len(got) != 0 {
		t.Fatalf("closed conn joined group: %v", got)
	}
}

func TestChatIDFromGroup(t *testing.T) {
	if id, ok := ChatIDFromGroup(GroupName(42)); !ok || id != 42 {
		t.Fatalf("got %d %v", id, ok)
	}
	for _, g := range []string{"chat-", "room-1", "chat-x"} {
		if _, ok := ChatIDFromGroup(g); ok {
			t.Errorf("%q should not parse", g)
		}
	}
}
