package websocket

import (
	"encoding/json"
	"time"

	"traitor-be/internal/service/game"
	"traitor-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

// JoinGame 处理 /ws/join：第一条消息必须是 JoinGame 请求，
// 之后的请求全部以该连接分配到的参与者编号转发给状态机。
// 查询参数 codec=msgpack 时响应以二进制帧发送。
func JoinGame(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		codec := ctx.URLParamDefault("codec", CODEC_JSON)
		if codec != CODEC_JSON && codec != CODEC_MSGPACK {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "不支持的编码: " + codec,
			})
			return
		}
		writeFrame := newFrameWriter(codec)

		conn, err := upgrader.Upgrade(
			ctx.ResponseWriter(),
			ctx.Request(),
			nil,
		)
		if err != nil {
			zap.L().Error("升级到WebSocket失败", zap.Error(err))
			ctx.StatusCode(iris.StatusBadRequest)
			return
		}

		defer conn.Close()

		clientIP := ctx.RemoteAddr()

		conn.SetReadDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))
		conn.SetPongHandler(heartbeatHandler(conn))

		// 读取首次请求，获取玩家名称
		_, msg, err := conn.ReadMessage()
		if err != nil {
			zap.L().Error(
				"读取首次请求失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		var wrapper game.RequestWrapper

		if err := json.Unmarshal(msg, &wrapper); err != nil {
			zap.L().Error(
				"解析首次请求失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			return
		}

		req := game.TryUnwrapJoinGameRequest(wrapper)
		if req == nil {
			zap.L().Error(
				"首次请求不是JoinGame类型",
				zap.String("client_ip", clientIP),
				zap.String("request_type", wrapper.ReqType),
			)
			writeFrame(conn, game.WrapErrResponse("首次请求必须是 JoinGame"))
			return
		}

		// 由状态机在玩家退出或被重连顶替时关闭
		respCh := make(chan game.ResponseWrapper, 256)

		actorID, reqCh, err := appState.MatchSvc.Join(req.JoinerName, respCh)
		if err != nil {
			zap.L().Error(
				"加入对局失败",
				zap.String("client_ip", clientIP),
				zap.Error(err),
			)
			writeFrame(conn, game.WrapErrResponse(err.Error()))
			return
		}

		// 等待加入确认，第一条响应就是自己的加入广播
		select {
		case joinResp, ok := <-respCh:
			if !ok || joinResp.RespType != game.RESP_JOIN_GAME {
				zap.L().Error("未收到加入确认", zap.String("client_ip", clientIP))
				return
			}

			if err := writeFrame(conn, joinResp); err != nil {
				zap.L().Error("发送加入确认失败", zap.Error(err))
				sendExit(reqCh, actorID, respCh)
				return
			}

		case <-time.After(ACK_TIMEOUT):
			zap.L().Error("等待加入响应超时", zap.String("client_ip", clientIP))
			sendExit(reqCh, actorID, respCh)
			return
		}

		zap.L().Info(
			"玩家成功加入对局",
			zap.String("client_ip", clientIP),
			zap.Int("actor_id", actorID),
			zap.String("player_name", req.JoinerName),
			zap.String("codec", codec),
		)

		// 读协程产生的错误提示，不能直接写入 respCh（可能已被状态机关闭）
		localCh := make(chan game.ResponseWrapper, 16)

		writeDoneCh := make(chan struct{})
		writerExitedCh := make(chan struct{})

		// 写入协程
		go func() {
			defer close(writerExitedCh)

			ticker := time.NewTicker(HEARTBEAT_INTERVAL)
			defer ticker.Stop()

			write := func(resp game.ResponseWrapper) bool {
				conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

				if err := writeFrame(conn, resp); err != nil {
					zap.L().Error(
						"发送消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
					return false
				}

				return true
			}

			for {
				select {
				case <-writeDoneCh:
					return

				case <-ticker.C:
					conn.SetWriteDeadline(time.Now().Add(HEARTBEAT_TIMEOUT))

					if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
						zap.L().Error(
							"发送心跳失败",
							zap.String("client_ip", clientIP),
							zap.Error(err),
						)
						return
					}

				case resp := <-localCh:
					if !write(resp) {
						return
					}

				case resp, ok := <-respCh:
					// 玩家退出或被重连顶替时状态机关闭了通道
					if !ok {
						zap.L().Info(
							"响应通道已关闭，退出写协程",
							zap.String("client_ip", clientIP),
						)
						conn.WriteControl(
							websocket.CloseMessage,
							websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
							time.Now().Add(time.Second),
						)
						return
					}

					if !write(resp) {
						return
					}
				}
			}
		}()

		// 读取循环（主协程）
		for {
			_, msg, err := conn.ReadMessage()
			if err != nil {
				if websocket.IsUnexpectedCloseError(
					err,
					websocket.CloseGoingAway,
					websocket.CloseNormalClosure,
					websocket.CloseAbnormalClosure,
				) {
					zap.L().Error(
						"读取消息失败",
						zap.String("client_ip", clientIP),
						zap.Error(err),
					)
				}
				break
			}

			var wrapper game.RequestWrapper

			if err := json.Unmarshal(msg, &wrapper); err != nil {
				pushLocal(localCh, game.WrapErrResponse("无效的请求格式"))
				continue
			}

			if wrapper.ReqType == game.REQ_JOIN_GAME {
				pushLocal(localCh, game.WrapErrResponse("已经加入对局"))
				continue
			}

			// 发送者编号由连接决定，客户端无法伪造
			wrapper.SenderActorID = actorID
			wrapper.NativeData = nil

			select {
			case reqCh <- wrapper:
				zap.L().Debug(
					"发送请求到状态机",
					zap.Int("actor_id", actorID),
					zap.String("request_type", wrapper.ReqType),
				)
			default:
				zap.L().Warn(
					"发送请求到状态机失败：请求通道已满",
					zap.Int("actor_id", actorID),
				)
				pushLocal(localCh, game.WrapErrResponse("对局繁忙，请稍后再试"))
			}
		}

		// 客户端断开连接：先停止写协程，再通知状态机清理玩家
		close(writeDoneCh)
		<-writerExitedCh

		zap.L().Info(
			"客户端连接断开，发送退出请求",
			zap.String("client_ip", clientIP),
			zap.Int("actor_id", actorID),
		)

		sendExit(reqCh, actorID, respCh)
	}
}
