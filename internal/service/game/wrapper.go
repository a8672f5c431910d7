package game

import (
	"encoding/json"

	"go.uber.org/zap"
)

// 请求类型
const (
	REQ_JOIN_GAME = "JoinGame"
	REQ_SET_READY = "SetReady"
	REQ_HIT       = "Hit"
	REQ_HEAL      = "Heal"
	REQ_COMMAND   = "Command"
	REQ_EXIT_GAME = "ExitGame"
)

// 宿主控制台的发送者编号，视为权威发送者
const HOST_ACTOR_ID = 0

type RequestWrapper struct {
	ReqType string          `json:"request_type"`
	Data    json.RawMessage `json:"data"`

	// 由传输层根据连接填写，客户端无法伪造
	SenderActorID int `json:"-"`
	// 进程内请求直接携带结构体（包含通道等无法序列化的字段）
	NativeData any `json:"-"`
}

func tryUnwrap[T any](wrapper RequestWrapper, reqType string) *T {
	if wrapper.ReqType != reqType {
		return nil
	}

	if native, ok := wrapper.NativeData.(*T); ok {
		return native
	}

	var req T

	if err := json.Unmarshal(wrapper.Data, &req); err != nil {
		zap.L().Error(
			"解析请求失败",
			zap.String("request_type", reqType),
			zap.Error(err),
		)
		return nil
	}

	return &req
}

func TryUnwrapJoinGameRequest(wrapper RequestWrapper) *JoinGameRequest {
	return tryUnwrap[JoinGameRequest](wrapper, REQ_JOIN_GAME)
}

func TryUnwrapSetReadyRequest(wrapper RequestWrapper) *SetReadyRequest {
	return tryUnwrap[SetReadyRequest](wrapper, REQ_SET_READY)
}

func TryUnwrapHitRequest(wrapper RequestWrapper) *HitRequest {
	return tryUnwrap[HitRequest](wrapper, REQ_HIT)
}

func TryUnwrapHealRequest(wrapper RequestWrapper) *HealRequest {
	return tryUnwrap[HealRequest](wrapper, REQ_HEAL)
}

func TryUnwrapCommandRequest(wrapper RequestWrapper) *CommandRequest {
	return tryUnwrap[CommandRequest](wrapper, REQ_COMMAND)
}

func TryUnwrapExitGameRequest(wrapper RequestWrapper) *ExitGameRequest {
	return tryUnwrap[ExitGameRequest](wrapper, REQ_EXIT_GAME)
}

// 响应类型
const (
	RESP_ERROR = "Error"

	RESP_JOIN_GAME      = "JoinGame"
	RESP_EXIT_GAME      = "ExitGame"
	RESP_ROUND_EVENT    = "RoundEvent"
	RESP_CHARACTER_DIED = "CharacterDied"
	RESP_ROLE_ASSIGNED  = "RoleAssigned"
	RESP_SNAPSHOT       = "Snapshot"
	RESP_ALERT          = "Alert"
	RESP_CUE            = "Cue"
	RESP_LOG            = "Log"
	RESP_COMMAND_RESULT = "CommandResult"
)

type ResponseWrapper struct {
	RespType string `json:"response_type" msgpack:"response_type"`
	Data     any    `json:"data" msgpack:"data"`
	ErrMsg   string `json:"error_message,omitempty" msgpack:"error_message,omitempty"`
}

func WrapResponse(respType string, data any) ResponseWrapper {
	return ResponseWrapper{
		RespType: respType,
		Data:     data,
	}
}

func WrapErrResponse(errMsg string) ResponseWrapper {
	return ResponseWrapper{
		RespType: RESP_ERROR,
		ErrMsg:   errMsg,
	}
}
