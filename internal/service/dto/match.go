package dto

import (
	"time"

	"traitor-be/internal/service/game"
)

// 对局状态，供 HUD 轮询
type MatchStateResponse struct {
	MatchID   string             `json:"match_id"`
	CreatedAt time.Time          `json:"created_at"`
	Snapshot  game.RoundSnapshot `json:"snapshot"`
}

type KillHistory struct {
	VictimID int       `json:"victim_id"`
	KillerID int       `json:"killer_id"`
	Cause    string    `json:"cause"`
	At       time.Time `json:"at"`
}

type RoundHistory struct {
	MatchID   string        `json:"match_id"`
	Round     int           `json:"round"`
	Outcome   string        `json:"outcome"`
	StartedAt time.Time     `json:"started_at"`
	EndedAt   time.Time     `json:"ended_at"`
	Kills     []KillHistory `json:"kills"`
}

type HistoryResponse struct {
	Rounds []RoundHistory `json:"rounds"`
}

type CommandRequest struct {
	Line string `json:"line"`
}

type CommandResponse struct {
	Command string `json:"command"`
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
}
