package service

import (
	"context"
	"time"

	"traitor-be/internal/service/dto"
	"traitor-be/internal/service/game"
	"traitor-be/internal/storage"

	"go.uber.org/zap"
)

// 单条历史记录的写入超时
const recordTimeout = 5 * time.Second

type recordJob func(ctx context.Context, store storage.HistoryStore) error

// subscribeEvents 把核心事件转发给客户端并生成历史记录任务。
// 回调在状态机协程中执行，不能阻塞。
func subscribeEvents(s *matchServiceState) {
	ctx := s.gm.Context()
	matchID := s.gm.MatchID()

	ctx.Events.SubscribeRound(func(ev game.RoundEvent) {
		ctx.BroadcastResp(game.WrapResponse(game.RESP_ROUND_EVENT, ev))

		switch ev.Kind {
		case game.EVENT_ROUND_START:
			s.roundStartedAt = time.Now().UTC()
			s.roundOpen = true

		case game.EVENT_TRAITOR_WIN, game.EVENT_INNOCENT_WIN, game.EVENT_DRAW, game.EVENT_RESTART:
			// 只记录进行中的回合，准备阶段或结算阶段的重启不产生记录
			if !s.roundOpen {
				return
			}
			s.roundOpen = false

			record := storage.RoundRecord{
				MatchID:   matchID,
				RoundNo:   ev.Round,
				Outcome:   ev.Kind,
				StartedAt: s.roundStartedAt,
				EndedAt:   time.Now().UTC(),
			}

			enqueueRecord(s, func(ctx context.Context, store storage.HistoryStore) error {
				return store.RecordRound(ctx, record)
			})
		}
	})

	ctx.Events.SubscribeDeath(func(ev game.CharacterDied) {
		ctx.BroadcastResp(game.WrapResponse(game.RESP_CHARACTER_DIED, ev))

		if !s.roundOpen {
			return
		}

		kill := storage.KillRecord{
			MatchID:  matchID,
			RoundNo:  ctx.Round,
			VictimID: ev.VictimID,
			KillerID: ev.KillerID,
			Cause:    ev.Cause,
			At:       time.Now().UTC(),
		}

		enqueueRecord(s, func(ctx context.Context, store storage.HistoryStore) error {
			return store.RecordKill(ctx, kill)
		})
	})

	ctx.Events.SubscribeLog(func(l game.LogLine) {
		ctx.BroadcastResp(game.WrapResponse(game.RESP_LOG, l))
	})
}

func enqueueRecord(s *matchServiceState, job recordJob) {
	if s.history == nil {
		return
	}

	select {
	case s.recordCh <- job:
	default:
		zap.L().Warn("历史记录队列已满，丢弃一条记录")
	}
}

// recordLoop 顺序执行记录任务，直到通道关闭
func recordLoop(store storage.HistoryStore, recordCh <-chan recordJob) {
	for job := range recordCh {
		if store == nil {
			continue
		}

		ctx, cancel := context.WithTimeout(context.Background(), recordTimeout)
		if err := job(ctx, store); err != nil {
			zap.L().Error("写入对局历史失败", zap.Error(err))
		}
		cancel()
	}
}

func toHistoryResponse(rounds []storage.RoundRecord) dto.HistoryResponse {
	resp := dto.HistoryResponse{Rounds: make([]dto.RoundHistory, 0, len(rounds))}

	for _, r := range rounds {
		round := dto.RoundHistory{
			MatchID:   r.MatchID,
			Round:     r.RoundNo,
			Outcome:   r.Outcome,
			StartedAt: r.StartedAt,
			EndedAt:   r.EndedAt,
			Kills:     make([]dto.KillHistory, 0, len(r.Kills)),
		}

		for _, k := range r.Kills {
			round.Kills = append(round.Kills, dto.KillHistory{
				VictimID: k.VictimID,
				KillerID: k.KillerID,
				Cause:    k.Cause,
				At:       k.At,
			})
		}

		resp.Rounds = append(resp.Rounds, round)
	}

	return resp
}
