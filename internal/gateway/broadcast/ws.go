package broadcast

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"chat_fanout_server/pkg/constants"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// ClientHandler 处理客户端上行帧的业务逻辑
type ClientHandler interface {
	// InitialChats 连接建立时自动加入的会话
	InitialChats(ctx context.Context, userID int64) ([]int64, error)
	// AuthorizeJoin 非 nil 表示拒绝加入
	AuthorizeJoin(ctx context.Context, userID, chatID int64) error
	Typing(ctx context.Context, userID, chatID int64) error
}

// 客户端上行动作
const (
	ActionJoin   = "join"
	ActionLeave  = "leave"
	ActionTyping = "typing"
)

type clientFrame struct {
	Action string `json:"action"`
	ChatID int64  `json:"chatId"`
}

type errorPayload struct {
	Action string `json:"action"`
	ChatID int64  `json:"chatId"`
	Msg    string `json:"msg"`
}

// 前后端分离部署时跨域握手由上层中间件控制，这里放行
var upgrader = websocket.Upgrader{
	ReadBufferSize:  2048,
	WriteBufferSize: 2048,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// Serve 升级连接、登记到 Hub 并启动读写协程，userID 由上层鉴权得到
func Serve(hub *Hub, handler ClientHandler, w http.ResponseWriter, r *http.Request, userID int64, sendBuffer int) error {
	ws, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		return err
	}
	c := NewConn(userID, sendBuffer)
	hub.Register(c)

	// 请求返回后 r.Context() 会被取消，连接生命周期内用独立的 ctx
	ctx, cancel := context.WithTimeout(context.Background(), constants.PUBLISH_TIMEOUT)
	chatIDs, err := handler.InitialChats(ctx, userID)
	cancel()
	if err != nil {
		zap.L().Error("load initial chats", zap.Int64("userId", userID), zap.Error(err))
	}
	for _, id := range chatIDs {
		hub.Join(c, GroupName(id))
	}

	go writePump(ws, c)
	go readPump(ws, c, hub, handler)
	zap.L().Info("ws connected", zap.Int64("userId", userID), zap.String("connId", c.ID), zap.Int("chats", len(chatIDs)))
	return nil
}

func readPump(ws *websocket.Conn, c *Conn, hub *Hub, handler ClientHandler) {
	defer func() {
		hub.Unregister(c)
		_ = ws.Close()
		zap.L().Info("ws disconnected", zap.Int64("userId", c.UserID), zap.String("connId", c.ID))
	}()

	ws.SetReadLimit(constants.WS_MAX_MESSAGE_SIZE)
	_ = ws.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	ws.SetPongHandler(func(string) error {
		return ws.SetReadDeadline(time.Now().Add(constants.WS_PONG_WAIT))
	})

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				zap.L().Warn("ws read", zap.Int64("userId", c.UserID), zap.Error(err))
			}
			return
		}
		var in clientFrame
		if err := json.Unmarshal(data, &in); err != nil {
			replyError(hub, c, clientFrame{}, "malformed frame")
			continue
		}
		handleClientFrame(hub, handler, c, in)
	}
}

func handleClientFrame(hub *Hub, handler ClientHandler, c *Conn, in clientFrame) {
	ctx, cancel := context.WithTimeout(context.Background(), constants.PUBLISH_TIMEOUT)
	defer cancel()

	switch in.Action {
	case ActionJoin:
		if err := handler.AuthorizeJoin(ctx, c.UserID, in.ChatID); err != nil {
			replyError(hub, c, in, err.Error())
			return
		}
		hub.Join(c, GroupName(in.ChatID))
	case ActionLeave:
		hub.Leave(c, GroupName(in.ChatID))
	case ActionTyping:
		if err := handler.Typing(ctx, c.UserID, in.ChatID); err != nil {
			replyError(hub, c, in, err.Error())
		}
	default:
		replyError(hub, c, in, "unknown action")
	}
}

func replyError(hub *Hub, c *Conn, in clientFrame, msg string) {
	payload, _ := json.Marshal(errorPayload{Action: in.Action, ChatID: in.ChatID, Msg: msg})
	b, err := json.Marshal(Frame{Event: EventError, UserID: c.UserID, Payload: payload})
	if err != nil {
		return
	}
	hub.mu.RLock()
	defer hub.mu.RUnlock()
	c.enqueue(b)
}

func writePump(ws *websocket.Conn, c *Conn) {
	ticker := time.NewTicker(constants.WS_PING_PERIOD)
	defer func() {
		ticker.Stop()
		_ = ws.Close()
	}()
	for {
		select {
		case msg, ok := <-c.Send():
			_ = ws.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if !ok {
				_ = ws.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				zap.L().Warn("ws write", zap.Int64("userId", c.UserID), zap.Error(err))
				return
			}
		case <-ticker.C:
			_ = ws.SetWriteDeadline(time.Now().Add(constants.WS_WRITE_WAIT))
			if err := ws.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
