package constants

import "time"

const (
	CHANNEL_SIZE        = 256              // websocket 发送缓冲默认大小
	PUBLISH_TIMEOUT     = 3 * time.Second  // 单个广播帧投递 broker 的超时
	WS_WRITE_WAIT       = 10 * time.Second // 单次写超时
	WS_PONG_WAIT        = 60 * time.Second // 读超时，收到 pong 后续期
	WS_PING_PERIOD      = (WS_PONG_WAIT * 9) / 10
	WS_MAX_MESSAGE_SIZE = 4096 // 客户端帧上限，只承载 join/leave/typing

	CTX_USER_ID = "user_id" // gin.Context 中鉴权后的用户 id (int64)
)
