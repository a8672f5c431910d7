package websocket

import (
	"net/http"
	"time"

	"traitor-be/internal/service/game"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var upgrader = websocket.Upgrader{
	// 客户端是游戏本体而不是浏览器页面，不校验来源
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
}

const (
	// 心跳间隔
	HEARTBEAT_INTERVAL = 30 * time.Second
	// 心跳超时时间
	HEARTBEAT_TIMEOUT = 45 * time.Second
	// 等待状态机确认加入或退出的时间
	ACK_TIMEOUT = 3 * time.Second
)

var heartbeatHandler = func(conn *websocket.Conn) func(string) error {
	return func(string) error {
		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		return nil
	}
}

func pushLocal(localCh chan game.ResponseWrapper, resp game.ResponseWrapper) {
	select {
	case localCh <- resp:
	default:
	}
}

// sendExit 通知状态机玩家离开，并等待其关闭响应通道
func sendExit(reqCh chan game.RequestWrapper, actorID int, respCh chan game.ResponseWrapper) {
	exitWrapper := game.RequestWrapper{
		ReqType:       game.REQ_EXIT_GAME,
		SenderActorID: actorID,
		NativeData:    &game.ExitGameRequest{RespCh: respCh},
	}

	select {
	case reqCh <- exitWrapper:
	default:
		zap.L().Warn(
			"发送退出请求失败：请求通道已满",
			zap.Int("actor_id", actorID),
		)
		return
	}

	timeout := time.After(ACK_TIMEOUT)
	for {
		select {
		case _, ok := <-respCh:
			if !ok {
				return
			}
		case <-timeout:
			// 连接已被重连顶替时通道早已关闭，这里只会在状态机繁忙时发生
			zap.L().Warn(
				"等待退出确认超时",
				zap.Int("actor_id", actorID),
			)
			return
		}
	}
}
