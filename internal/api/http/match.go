package http

import (
	"crypto/subtle"
	"errors"
	"strings"

	"traitor-be/internal/service"
	"traitor-be/internal/service/dto"
	"traitor-be/internal/service/game"
	"traitor-be/internal/state"

	"github.com/kataras/iris/v12"
	"go.uber.org/zap"
)

const (
	defaultHistoryLimit = 20
	maxHistoryLimit     = 200
)

func GetMatchState(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		ctx.JSON(appState.MatchSvc.State())
	}
}

func GetMatchHistory(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		limit := ctx.URLParamIntDefault("limit", defaultHistoryLimit)
		if limit <= 0 || limit > maxHistoryLimit {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "limit 必须在 1 到 200 之间",
			})
			return
		}

		resp, err := appState.MatchSvc.History(ctx.Request().Context(), limit)
		if err != nil {
			zap.L().Error("查询对局历史失败", zap.Error(err))

			ctx.StatusCode(iris.StatusInternalServerError)
			ctx.JSON(iris.Map{
				"error": "查询对局历史失败",
			})
			return
		}

		ctx.JSON(resp)
	}
}

// ExecCommand 以宿主身份执行控制台指令，需要在 X-Admin-Token 头中携带管理令牌
func ExecCommand(appState *state.AppState) iris.Handler {
	return func(ctx iris.Context) {
		token := appState.Cfg.AdminToken
		if token == "" {
			ctx.StatusCode(iris.StatusForbidden)
			ctx.JSON(iris.Map{
				"error": "服务器未开启控制台",
			})
			return
		}

		given := ctx.GetHeader("X-Admin-Token")
		if subtle.ConstantTimeCompare([]byte(given), []byte(token)) != 1 {
			ctx.StatusCode(iris.StatusUnauthorized)
			ctx.JSON(iris.Map{
				"error": "管理令牌无效",
			})
			return
		}

		var req dto.CommandRequest

		if err := ctx.ReadJSON(&req); err != nil || strings.TrimSpace(req.Line) == "" {
			ctx.StatusCode(iris.StatusBadRequest)
			ctx.JSON(iris.Map{
				"error": "请求参数无效",
			})
			return
		}

		cmd := strings.ToUpper(strings.Fields(req.Line)[0])

		err := appState.MatchSvc.ExecCommand(ctx.Request().Context(), req.Line)
		if err != nil {
			ctx.StatusCode(commandStatus(err))
			ctx.JSON(dto.CommandResponse{
				Command: cmd,
				OK:      false,
				Message: err.Error(),
			})
			return
		}

		ctx.JSON(dto.CommandResponse{
			Command: cmd,
			OK:      true,
		})
	}
}

func commandStatus(err error) int {
	switch {
	case errors.Is(err, service.ErrMatchClosed):
		return iris.StatusServiceUnavailable
	case errors.Is(err, game.ErrLookupMiss),
		errors.Is(err, game.ErrProtocolViolation):
		return iris.StatusBadRequest
	default:
		return iris.StatusInternalServerError
	}
}
