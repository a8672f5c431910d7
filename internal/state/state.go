package state

import (
	"traitor-be/internal/config"
	"traitor-be/internal/service"
)

type AppState struct {
	Cfg      *config.AppConfig
	MatchSvc *service.MatchService
}

func NewAppState(
	cfg *config.AppConfig,
	matchSvc *service.MatchService,
) *AppState {
	return &AppState{
		Cfg:      cfg,
		MatchSvc: matchSvc,
	}
}
