package broadcast

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
)

type chanBroker struct {
	frames chan Frame
	err    error
}

func newChanBroker(n int) *chanBroker {
	return &chanBroker{frames: make(chan Frame, n)}
}

func (b *chanBroker) Publish(_ context.Context, f Frame) error {
	if b.err != nil {
		return b.err
	}
	b.frames <- f
	return nil
}

func (b *chanBroker) Run(ctx context.Context) error { <-ctx.Done(); return nil }
func (b *chanBroker) Close() error                  { return nil }

func (b *chanBroker) next(t *testing.T) Frame {
	t.Helper()
	select {
	case f := <-b.frames:
		return f
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for frame")
	}
	return Frame{}
}

func newNode(t *testing.T) *snowflake.Node {
	t.Helper()
	node, err := snowflake.NewNode(1)
	if err != nil {
		t.Fatal(err)
	}
	return node
}

func TestGatewayKeepsPerGroupOrder(t *testing.T) {
	broker := newChanBroker(200)
	g := NewGateway(broker, newNode(t), 4, 128)
	g.Start()
	defer g.Close()

	const n = 50
	for i := 0; i < n; i++ {
		g.PublishToGroup(GroupName(9), EventReceiveMessage, map[string]int{"seq": i})
	}

	var lastID int64
	for i := 0; i < n; i++ {
		f := broker.next(t)
		var p map[string]int
		if err := json.Unmarshal(f.Payload, &p); err != nil {
			t.Fatal(err)
		}
		if p["seq"] != i {
			t.Fatalf("frame %d carries seq %d", i, p["seq"])
		}
		if f.ID <= lastID {
			t.Fatalf("ids not increasing: %d after %d", f.ID, lastID)
		}
		lastID = f.ID
	}
}

func TestGatewayDropsWhenShardFull(t *testing.T) {
	broker := newChanBroker(10)
	g := NewGateway(broker, newNode(t), 1, 1)

	// worker 未启动，第二个推送必然因分片满被丢弃
	g.PublishToUser(1, EventUserTyping, nil)
	g.PublishToUser(1, EventUserTyping, nil)
	g.Start()
	broker.next(t)
	g.Close()

	select {
	case f := <-broker.frames:
		t.Fatalf("unexpected frame %+v", f)
	default:
	}
}

func TestGatewayClosedDrops(t *testing.T) {
	broker := newChanBroker(10)
	g := NewGateway(broker, newNode(t), 2, 4)
	g.Start()
	g.Close()
	g.Close()

	g.Dispatch(ToGroup(GroupName(1), EventDeleteChat, nil))
	select {
	case f := <-broker.frames:
		t.Fatalf("closed gateway published %+v", f)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestGatewayPublishErrorDoesNotStopWorker(t *testing.T) {
	broker := newChanBroker(10)
	broker.err = errors.New("boom")
	g := NewGateway(broker, newNode(t), 1, 4)
	g.Start()
	g.PublishToUser(1, EventUserTyping, nil)
	g.Close() // 等待 worker 处理完，失败只记录

	broker.err = nil
	g2 := NewGateway(broker, newNode(t), 1, 4)
	g2.Start()
	defer g2.Close()
	g2.PublishToUser(1, EventUserTyping, nil)
	broker.next(t)
}

func TestGatewayUnencodablePayload(t *testing.T) {
	broker := newChanBroker(10)
	g := NewGateway(broker, newNode(t), 1, 4)
	g.Start()
	defer g.Close()

	g.PublishToUser(1, EventUserTyping, make(chan int))
	g.PublishToUser(1, EventUserTyping, "ok")
	if f := broker.next(t); string(f.Payload) != `"ok"` {
		t.Fatalf("payload = %s", f.Payload)
	}
}

func TestGatewayEncodesPayloadAtDispatch(t *testing.T) {
	broker := newChanBroker(10)
	g := NewGateway(broker, newNode(t), 1, 4)

	type chatInfo struct {
		Name string `json:"name"`
	}
	info := &chatInfo{Name: "before"}
	// worker 未启动，帧仍在队列中时修改原对象
	g.PublishToGroup(GroupName(3), EventChatInfoUpdated, info)
	info.Name = "after"
	g.Start()
	defer g.Close()

	var got chatInfo
	if err := json.Unmarshal(broker.next(t).Payload, &got); err != nil {
		t.Fatal(err)
	}
	if got.Name != "before" {
		t.Fatalf("name = %q, want the value at dispatch time", got.Name)
	}
}

func TestGatewayWithLocalBroker(t *testing.T) {
	hub := NewHub()
	c := NewConn(5, 8)
	hub.Register(c)
	hub.Join(c, GroupName(2))

	g := NewGateway(NewLocalBroker(hub), newNode(t), 2, 8)
	g.Start()
	g.Dispatch(
		ToGroup(GroupName(2), EventReceiveMessage, "m1"),
		ToUser(5, EventChatlistNewMessage, "preview"),
	)
	g.Close()

	got := map[string]bool{}
	for i := 0; i < 2; i++ {
		got[recv(t, c).Event] = true
	}
	if !got[EventReceiveMessage] || !got[EventChatlistNewMessage] {
		t.Fatalf("events = %v", got)
	}
}
