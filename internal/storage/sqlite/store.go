package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"traitor-be/internal/storage"
	"traitor-be/internal/storage/sqlite/migrations"

	_ "modernc.org/sqlite"
)

var errNotConfigured = errors.New("历史存储未配置")

// Store 基于 SQLite 记录回合结果与击杀
type Store struct {
	sqlDB *sql.DB
}

// Open 打开数据库并执行迁移
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("数据库路径不能为空")
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=5000&_synchronous=NORMAL"

	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("打开数据库失败: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("连接数据库失败: %w", err)
	}

	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("执行迁移失败: %w", err)
	}

	return &Store{sqlDB: sqlDB}, nil
}

func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}

	return s.sqlDB.Close()
}

func (s *Store) RecordRound(ctx context.Context, round storage.RoundRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errNotConfigured
	}

	round.MatchID = strings.TrimSpace(round.MatchID)
	if round.MatchID == "" {
		return errors.New("回合记录缺少 match_id")
	}
	if round.Outcome == "" {
		return errors.New("回合记录缺少结果")
	}
	if round.EndedAt.IsZero() {
		round.EndedAt = time.Now().UTC()
	}
	if round.StartedAt.IsZero() {
		round.StartedAt = round.EndedAt
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO rounds (match_id, round_no, outcome, started_at, ended_at)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT (match_id, round_no) DO UPDATE SET
	outcome = excluded.outcome,
	ended_at = excluded.ended_at
`,
		round.MatchID,
		round.RoundNo,
		round.Outcome,
		round.StartedAt.UTC().UnixMilli(),
		round.EndedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("记录回合失败: %w", err)
	}

	return nil
}

func (s *Store) RecordKill(ctx context.Context, kill storage.KillRecord) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.sqlDB == nil {
		return errNotConfigured
	}

	if strings.TrimSpace(kill.MatchID) == "" {
		return errors.New("击杀记录缺少 match_id")
	}
	if kill.At.IsZero() {
		kill.At = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(ctx, `
INSERT INTO kills (match_id, round_no, victim_id, killer_id, cause, at)
VALUES (?, ?, ?, ?, ?, ?)
`,
		kill.MatchID,
		kill.RoundNo,
		kill.VictimID,
		kill.KillerID,
		kill.Cause,
		kill.At.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("记录击杀失败: %w", err)
	}

	return nil
}

func (s *Store) ListRounds(ctx context.Context, limit int) ([]storage.RoundRecord, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.sqlDB == nil {
		return nil, errNotConfigured
	}
	if limit <= 0 {
		return nil, errors.New("limit 必须大于 0")
	}

	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT match_id, round_no, outcome, started_at, ended_at
FROM rounds
ORDER BY ended_at DESC, id DESC
LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询回合失败: %w", err)
	}
	defer rows.Close()

	rounds := make([]storage.RoundRecord, 0, limit)
	for rows.Next() {
		var (
			r                  storage.RoundRecord
			startedAt, endedAt int64
		)
		if err := rows.Scan(&r.MatchID, &r.RoundNo, &r.Outcome, &startedAt, &endedAt); err != nil {
			return nil, fmt.Errorf("读取回合失败: %w", err)
		}
		r.StartedAt = time.UnixMilli(startedAt).UTC()
		r.EndedAt = time.UnixMilli(endedAt).UTC()
		rounds = append(rounds, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历回合失败: %w", err)
	}

	for i := range rounds {
		kills, err := s.listKills(ctx, rounds[i].MatchID, rounds[i].RoundNo)
		if err != nil {
			return nil, err
		}
		rounds[i].Kills = kills
	}

	return rounds, nil
}

func (s *Store) listKills(ctx context.Context, matchID string, roundNo int) ([]storage.KillRecord, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT victim_id, killer_id, cause, at
FROM kills
WHERE match_id = ? AND round_no = ?
ORDER BY at ASC, id ASC
`, matchID, roundNo)
	if err != nil {
		return nil, fmt.Errorf("查询击杀失败: %w", err)
	}
	defer rows.Close()

	var kills []storage.KillRecord
	for rows.Next() {
		k := storage.KillRecord{MatchID: matchID, RoundNo: roundNo}

		var at int64
		if err := rows.Scan(&k.VictimID, &k.KillerID, &k.Cause, &at); err != nil {
			return nil, fmt.Errorf("读取击杀失败: %w", err)
		}
		k.At = time.UnixMilli(at).UTC()
		kills = append(kills, k)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历击杀失败: %w", err)
	}

	return kills, nil
}

var _ storage.HistoryStore = (*Store)(nil)
