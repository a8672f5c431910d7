package http

import (
	"fmt"

	"traitor-be/internal/api/http/websocket"
	"traitor-be/internal/state"

	"github.com/kataras/iris/v12"
)

func NewApp(appState *state.AppState) *iris.Application {
	app := iris.Default()

	api := app.Party("/api/v1")

	api.Get("/match/state", GetMatchState(appState))
	api.Get("/match/history", GetMatchHistory(appState))
	api.Post("/match/command", ExecCommand(appState))

	api.Get("/ws/join", websocket.JoinGame(appState))

	return app
}

func RunServer(appState *state.AppState) error {
	app := NewApp(appState)

	addr := fmt.Sprintf(
		"%s:%d",
		appState.Cfg.Host,
		appState.Cfg.Port,
	)

	return app.Listen(addr)
}
