package storage

import (
	"context"
	"time"
)

// RoundRecord 是一个已结束回合的记录
type RoundRecord struct {
	MatchID   string
	RoundNo   int
	Outcome   string
	StartedAt time.Time
	EndedAt   time.Time
	Kills     []KillRecord
}

type KillRecord struct {
	MatchID  string
	RoundNo  int
	VictimID int
	KillerID int
	Cause    string
	At       time.Time
}

// HistoryStore 持久化对局历史
type HistoryStore interface {
	RecordRound(ctx context.Context, round RoundRecord) error
	RecordKill(ctx context.Context, kill KillRecord) error
	// ListRounds 按结束时间倒序返回最近的回合及其击杀
	ListRounds(ctx context.Context, limit int) ([]RoundRecord, error)
	Close() error
}
