package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"traitor-be/internal/config"
	"traitor-be/internal/service/dto"
	"traitor-be/internal/service/game"
	"traitor-be/internal/storage"

	"go.uber.org/zap"
)

var ErrMatchClosed = errors.New("对局已关闭")

// 控制台指令等待执行结果的超时时间
const commandTimeout = 3 * time.Second

// MatchService 持有服务器上唯一的一局对局：状态机协程、历史记录协程，
// 以及为每个连接分配的参与者编号
type MatchService struct {
	state *matchServiceState
}

type matchServiceState struct {
	gm    *game.GameMachine
	scene *Scene

	tickHz        int
	snapshotEvery int

	// 参与者编号从 1 开始，0 保留给宿主
	nextActorID atomic.Int64

	history  storage.HistoryStore
	recordCh chan recordJob
	// 当前回合的开始时间，只在状态机协程中读写
	roundStartedAt time.Time
	roundOpen      bool

	doneCh    chan struct{}
	runWg     sync.WaitGroup
	recordWg  sync.WaitGroup
	closeOnce sync.Once
	closed    atomic.Bool
}

// NewMatchService 组装对局但不启动，history 可以为 nil
func NewMatchService(cfg *config.AppConfig, scene *Scene, history storage.HistoryStore) (*MatchService, error) {
	var rng *rand.Rand
	if cfg.Seed != 0 {
		rng = rand.New(rand.NewPCG(cfg.Seed, cfg.Seed))
	}

	ctx := game.NewGameContext(
		cfg.GameSettings(),
		scene,
		rng,
		zap.L().Named("game"),
	)
	if err := ctx.Validate(); err != nil {
		return nil, fmt.Errorf("对局配置无效: %w", err)
	}

	scene.Bind(ctx)

	doneCh := make(chan struct{})

	state := &matchServiceState{
		gm:            game.NewGameMachine(ctx, game.NewMatchID(), doneCh),
		scene:         scene,
		tickHz:        cfg.TickHz,
		snapshotEvery: cfg.SnapshotEvery(),
		history:       history,
		recordCh:      make(chan recordJob, 128),
		doneCh:        doneCh,
	}

	subscribeEvents(state)

	return &MatchService{state: state}, nil
}

// Start 启动状态机协程与历史记录协程
func (ms *MatchService) Start() {
	s := ms.state

	s.runWg.Add(1)
	go func() {
		defer s.runWg.Done()
		s.gm.Run(s.tickHz, s.snapshotEvery)
	}()

	s.recordWg.Add(1)
	go func() {
		defer s.recordWg.Done()
		recordLoop(s.history, s.recordCh)
	}()

	zap.L().Info(
		"对局已启动",
		zap.String("match_id", s.gm.MatchID()),
		zap.Int("tick_hz", s.tickHz),
	)
}

// Close 停止状态机，等待尚未写入的历史记录落盘
func (ms *MatchService) Close() {
	s := ms.state

	s.closeOnce.Do(func() {
		s.closed.Store(true)

		close(s.doneCh)
		s.runWg.Wait()

		// 状态机协程退出后不会再有新的记录任务
		close(s.recordCh)
		s.recordWg.Wait()

		if s.history != nil {
			if err := s.history.Close(); err != nil {
				zap.L().Error("关闭历史存储失败", zap.Error(err))
			}
		}

		zap.L().Info("对局已关闭", zap.String("match_id", s.gm.MatchID()))
	})
}

func (ms *MatchService) MatchID() string {
	return ms.state.gm.MatchID()
}

// Join 为新连接分配参与者编号并提交加入请求，返回状态机的请求通道
func (ms *MatchService) Join(name string, respCh chan game.ResponseWrapper) (int, chan game.RequestWrapper, error) {
	if ms.state.closed.Load() {
		return 0, nil, ErrMatchClosed
	}

	name = strings.TrimSpace(name)
	if name == "" {
		return 0, nil, errors.New("玩家名称不能为空")
	}

	actorID := int(ms.state.nextActorID.Add(1))

	reqCh := ms.state.gm.GetReqCh()

	req := game.RequestWrapper{
		ReqType:       game.REQ_JOIN_GAME,
		SenderActorID: actorID,
		NativeData: &game.JoinGameRequest{
			JoinerName: name,
			ActorID:    actorID,
			RespCh:     respCh,
		},
	}

	select {
	case reqCh <- req:
	default:
		return 0, nil, errors.New("对局繁忙，请稍后再试")
	}

	return actorID, reqCh, nil
}

// ExecCommand 以宿主身份执行控制台指令并等待结果
func (ms *MatchService) ExecCommand(ctx context.Context, line string) error {
	if ms.state.closed.Load() {
		return ErrMatchClosed
	}

	replyCh := make(chan error, 1)

	req := game.RequestWrapper{
		ReqType:       game.REQ_COMMAND,
		SenderActorID: game.HOST_ACTOR_ID,
		NativeData: &game.CommandRequest{
			Line:    line,
			ReplyCh: replyCh,
		},
	}

	ctx, cancel := context.WithTimeout(ctx, commandTimeout)
	defer cancel()

	select {
	case ms.state.gm.GetReqCh() <- req:
	case <-ctx.Done():
		return ctx.Err()
	}

	select {
	case err := <-replyCh:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}

// State 返回最近一次发布的快照，可以在任意协程中调用
func (ms *MatchService) State() dto.MatchStateResponse {
	gm := ms.state.gm

	return dto.MatchStateResponse{
		MatchID:   gm.MatchID(),
		CreatedAt: gm.CreatedAt(),
		Snapshot:  gm.LatestSnapshot(),
	}
}

func (ms *MatchService) History(ctx context.Context, limit int) (dto.HistoryResponse, error) {
	if ms.state.history == nil {
		return dto.HistoryResponse{Rounds: []dto.RoundHistory{}}, nil
	}

	rounds, err := ms.state.history.ListRounds(ctx, limit)
	if err != nil {
		return dto.HistoryResponse{}, err
	}

	return toHistoryResponse(rounds), nil
}
