package game

import (
	"errors"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// GameMachine 是回合状态机，负责推进阶段、处理请求以及发布快照。
// 所有方法（除 LatestSnapshot 外）只能在同一个协程中调用。
type GameMachine struct {
	ctx     *GameContext
	handler StageHandler
	// 这是所有玩家请求汇总的通道
	reqCh chan RequestWrapper
	// 结束通道，用于通知状态机退出事件循环
	doneCh chan struct{}

	matchID string
	tick    uint64
	started bool

	// 玩家名 -> 稳定 ID，断线重连后保持不变
	stableIDs    map[string]int
	nextStableID int

	latest atomic.Pointer[RoundSnapshot]

	createdAt time.Time
}

func NewGameMachine(ctx *GameContext, matchID string, doneCh chan struct{}) *GameMachine {
	gm := &GameMachine{
		ctx:       ctx,
		reqCh:     make(chan RequestWrapper, 256),
		doneCh:    doneCh,
		matchID:   matchID,
		stableIDs: make(map[string]int),
		createdAt: time.Now(),
	}

	gm.handler = gm.newHandler(ctx.GameState)
	if gm.handler == nil {
		ctx.GameState = STATE_PRE_ROUND
		gm.handler = gm.newHandler(STATE_PRE_ROUND)
	}

	gm.publish()

	return gm
}

func (gm *GameMachine) GetReqCh() chan RequestWrapper {
	return gm.reqCh
}

func (gm *GameMachine) Context() *GameContext {
	return gm.ctx
}

func (gm *GameMachine) MatchID() string {
	return gm.matchID
}

func (gm *GameMachine) CreatedAt() time.Time {
	return gm.createdAt
}

func (gm *GameMachine) CurrentState() string {
	return gm.ctx.GameState
}

// Start 执行初始阶段的 OnEnter，只在权威实例上生效，重复调用无效
func (gm *GameMachine) Start() {
	if gm.started || !gm.ctx.Authoritative {
		return
	}
	gm.started = true

	gm.handler.OnEnter(gm.ctx)
	gm.publish()
}

// Tick 推进一次模拟：清理失效实体、角色生命流失、阶段逻辑，最后检查阶段切换
func (gm *GameMachine) Tick(dt float64) {
	if !gm.ctx.Authoritative {
		return
	}
	if !gm.started {
		gm.Start()
	}

	gm.tick++

	gm.ctx.Players.RemoveStale()
	gm.ctx.Characters.RemoveStale()

	for _, c := range gm.ctx.Characters.All() {
		c.Tick(dt)
	}

	gm.handler.OnTick(gm.ctx, dt)
	gm.applySwitch()

	gm.publish()
}

// ForcePostRound 由 ROUNDRESTART 指令触发，直接进入结算阶段并缩短倒计时
func (gm *GameMachine) ForcePostRound(remaining float64) {
	if !gm.ctx.Authoritative {
		return
	}

	gm.ctx.LastOutcome = EVENT_RESTART

	if gm.ctx.GameState != STATE_POST_ROUND {
		gm.ctx.GameState = STATE_POST_ROUND
		gm.applySwitch()
	} else {
		gm.ctx.Events.PublishRound(RoundEvent{
			Kind:  EVENT_RESTART,
			State: STATE_POST_ROUND,
			Round: gm.ctx.Round,
		})
	}

	gm.ctx.PostRoundRemaining = remaining
	gm.publish()
}

// Run 是宿主的事件循环：固定频率 tick，每 snapshotEvery 个 tick 广播一次快照
func (gm *GameMachine) Run(tickHz, snapshotEvery int) {
	if tickHz <= 0 {
		tickHz = 30
	}
	if snapshotEvery <= 0 {
		snapshotEvery = 1
	}

	gm.Start()

	ticker := time.NewTicker(time.Second / time.Duration(tickHz))
	defer ticker.Stop()

	last := time.Now()

	for {
		select {
		case req := <-gm.reqCh:
			if err := gm.Handle(req); err != nil {
				gm.ctx.Log.Debug(
					"处理请求失败",
					zap.Error(err),
					zap.String("stage", gm.handler.Stage()),
					zap.String("request_type", req.ReqType),
				)

				gm.replyError(req.SenderActorID, err)
			}

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			gm.Tick(dt)

			if gm.tick%uint64(snapshotEvery) == 0 {
				gm.ctx.BroadcastResp(WrapResponse(RESP_SNAPSHOT, *gm.latest.Load()))
			}

		case <-gm.doneCh:
			gm.ctx.Log.Info(
				"收到退出信号，结束回合状态机",
				zap.String("match_id", gm.matchID),
			)
			return
		}
	}
}

func (gm *GameMachine) replyError(actorID int, err error) {
	p, ok := gm.ctx.Players.FindByActorNumber(actorID)
	if !ok {
		return
	}

	msg := err.Error()
	switch {
	case errors.Is(err, ErrUnauthorized):
		msg = "该指令只能由服务器执行"
	case errors.Is(err, ErrUnknownCommand):
		msg = "未知指令"
	}

	gm.ctx.UnicastResp(p.StableID, WrapErrResponse(msg))
}

func (gm *GameMachine) applySwitch() {
	if gm.ctx.GameState == gm.handler.Stage() {
		return
	}

	next := gm.newHandler(gm.ctx.GameState)
	if next == nil {
		gm.ctx.Log.Error(
			"未知的回合阶段",
			zap.String("stage", gm.ctx.GameState),
		)
		gm.ctx.GameState = gm.handler.Stage()
		return
	}

	gm.ctx.Log.Info(
		"回合阶段切换",
		zap.String("from", gm.handler.Stage()),
		zap.String("to", next.Stage()),
		zap.Int("round", gm.ctx.Round),
	)

	gm.handler.OnExit(gm.ctx)
	gm.handler = next
	gm.handler.OnEnter(gm.ctx)
}

func (gm *GameMachine) newHandler(stage string) StageHandler {
	var h StageHandler

	switch stage {
	case STATE_PRE_ROUND:
		h = NewPreRoundHandler()
	case STATE_ACTIVE:
		h = NewActiveHandler()
	case STATE_POST_ROUND:
		h = NewPostRoundHandler()
	default:
		return nil
	}

	h.SetOnSwitch(func(nextStage string) {
		gm.ctx.GameState = nextStage
	})

	return h
}

// Snapshot 构建当前完整状态
func (gm *GameMachine) Snapshot() RoundSnapshot {
	chars := gm.ctx.Characters.All()

	snap := RoundSnapshot{
		Tick:               gm.tick,
		State:              gm.ctx.GameState,
		Round:              gm.ctx.Round,
		PreRoundRemaining:  gm.ctx.PreRoundRemaining,
		PostRoundRemaining: gm.ctx.PostRoundRemaining,
		ReadyPlayers:       len(gm.ctx.ReadyPlayers()),
		Players:            gm.ctx.Players.Len(),
		Characters:         make([]CharacterSnapshot, 0, len(chars)),
	}

	for _, c := range chars {
		snap.Characters = append(snap.Characters, c.snapshot())
	}

	return snap
}

// LatestSnapshot 返回最近一次发布的快照，可以在任意协程中调用
func (gm *GameMachine) LatestSnapshot() RoundSnapshot {
	if s := gm.latest.Load(); s != nil {
		return *s
	}

	return RoundSnapshot{}
}

func (gm *GameMachine) publish() {
	snap := gm.Snapshot()
	gm.latest.Store(&snap)
}

// ApplySnapshot 是非权威实例唯一的状态入口：逐字段覆盖，不触发任何阶段逻辑
func (gm *GameMachine) ApplySnapshot(s RoundSnapshot) error {
	if gm.ctx.Authoritative {
		return errors.New("权威实例不接受快照")
	}

	ctx := gm.ctx
	ctx.GameState = s.State
	ctx.Round = s.Round
	ctx.PreRoundRemaining = s.PreRoundRemaining
	ctx.PostRoundRemaining = s.PostRoundRemaining
	gm.tick = s.Tick

	if gm.handler.Stage() != s.State {
		if h := gm.newHandler(s.State); h != nil {
			gm.handler = h
		}
	}

	present := make(map[int]struct{}, len(s.Characters))

	var firstErr error
	for _, cs := range s.Characters {
		present[cs.ID] = struct{}{}

		c, ok := ctx.Characters.FindByID(cs.ID)
		if !ok {
			c = NewCharacter(ctx, cs.ID, cs.OwnerID, cs.IsBot)
			c.MaxHealth = cs.MaxHealth
			if err := ctx.Characters.Add(c); err != nil {
				return err
			}
		}

		if err := c.applyReplica(cs); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	for _, c := range ctx.Characters.All() {
		if _, ok := present[c.ID]; !ok {
			c.Destroy()
		}
	}
	ctx.Characters.RemoveStale()

	gm.publish()

	return firstErr
}
