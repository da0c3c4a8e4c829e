package message_test

import (
	"encoding/json"
	"testing"

	"chat_fanout_server/internal/gateway/broadcast"
	"chat_fanout_server/internal/model"
)

func decodeMessageFrame(t *testing.T, raw []byte) (broadcast.Frame, model.MessageView) {
	t.Helper()
	var f broadcast.Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		t.Fatalf("decode frame: %v", err)
	}
	var v model.MessageView
	if f.Event == broadcast.EventReceiveMessage {
		if err := json.Unmarshal(f.Payload, &v); err != nil {
			t.Fatalf("decode message: %v", err)
		}
	}
	return f, v
}
