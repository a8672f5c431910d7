package game

import (
	"go.uber.org/zap"
)

// 一局对局在三个阶段之间循环：
// 1. 准备阶段（PreRound）：等待足够多的玩家准备，倒计时结束后开始
// 2. 进行阶段（Active）：分配身份，每个 tick 检查胜负
// 3. 结算阶段（PostRound）：宣布结果，倒计时结束后回到准备阶段
type StageHandler interface {
	Stage() string

	OnEnter(ctx *GameContext)
	OnTick(ctx *GameContext, dt float64)
	OnExit(ctx *GameContext)

	SetOnSwitch(func(nextStage string))
}

// 浮点倒计时累减的误差容忍
const countdownEpsilon = 1e-9

// 准备阶段是整局最初始的阶段
type preRoundHandler struct {
	onSwitch func(string)
}

func NewPreRoundHandler() *preRoundHandler {
	return &preRoundHandler{}
}

func (h *preRoundHandler) Stage() string {
	return STATE_PRE_ROUND
}

func (h *preRoundHandler) OnEnter(ctx *GameContext) {
	ctx.GameState = STATE_PRE_ROUND
	ctx.PreRoundRemaining = ctx.Settings.PreRoundTime

	ctx.Env.RespawnItems()

	// 所有角色回到出生点，身份清空
	for _, c := range ctx.Characters.All() {
		c.Reset(true)
	}

	ctx.Env.PlayCue("pre_round")
	ctx.Events.PublishRound(RoundEvent{
		Kind:  EVENT_PRE_ROUND,
		State: STATE_PRE_ROUND,
		Round: ctx.Round,
	})

	ctx.logLine("round", "等待玩家准备", false)
}

func (h *preRoundHandler) OnTick(ctx *GameContext, dt float64) {
	// 准备人数不足时倒计时保持不动，不会重置
	if len(ctx.ReadyPlayers()) < ctx.Settings.MinPlayers {
		return
	}

	ctx.PreRoundRemaining -= dt
	if ctx.PreRoundRemaining <= countdownEpsilon {
		h.onSwitch(STATE_ACTIVE)
	}
}

func (h *preRoundHandler) OnExit(ctx *GameContext) {
	ctx.PreRoundRemaining = ctx.Settings.PreRoundTime
}

func (h *preRoundHandler) SetOnSwitch(onSwitch func(string)) {
	h.onSwitch = onSwitch
}

// 进行阶段处理器
type activeHandler struct {
	onSwitch func(string)
}

func NewActiveHandler() *activeHandler {
	return &activeHandler{}
}

func (h *activeHandler) Stage() string {
	return STATE_ACTIVE
}

func (h *activeHandler) OnEnter(ctx *GameContext) {
	ctx.GameState = STATE_ACTIVE
	ctx.Round++
	ctx.LastOutcome = ""

	assignRoles(ctx)

	ctx.Env.PlayCue("round_start")
	ctx.Events.PublishRound(RoundEvent{
		Kind:  EVENT_ROUND_START,
		State: STATE_ACTIVE,
		Round: ctx.Round,
	})

	ctx.logLine("round", "回合开始", false)
}

func (h *activeHandler) OnTick(ctx *GameContext, dt float64) {
	traitors, innocents := countLiving(ctx)

	var outcome string
	switch {
	case traitors == 0 && innocents == 0:
		outcome = EVENT_DRAW
	case innocents == 0:
		outcome = EVENT_TRAITOR_WIN
	case traitors == 0:
		outcome = EVENT_INNOCENT_WIN
	default:
		return
	}

	ctx.Log.Info(
		"回合胜负已分",
		zap.Int("round", ctx.Round),
		zap.String("outcome", outcome),
		zap.Int("living_traitors", traitors),
		zap.Int("living_innocents", innocents),
	)

	ctx.LastOutcome = outcome
	h.onSwitch(STATE_POST_ROUND)
}

func (h *activeHandler) OnExit(ctx *GameContext) {
}

func (h *activeHandler) SetOnSwitch(onSwitch func(string)) {
	h.onSwitch = onSwitch
}

// countLiving 统计存活的叛徒和无辜者，死亡角色不计入
func countLiving(ctx *GameContext) (traitors, innocents int) {
	for _, c := range ctx.Characters.All() {
		if !c.Alive() || c.Stale() {
			continue
		}

		switch c.Role {
		case ROLE_TRAITOR:
			traitors++
		case ROLE_INNOCENT:
			innocents++
		}
	}

	return traitors, innocents
}

// 结算阶段处理器
type postRoundHandler struct {
	onSwitch func(string)
}

func NewPostRoundHandler() *postRoundHandler {
	return &postRoundHandler{}
}

func (h *postRoundHandler) Stage() string {
	return STATE_POST_ROUND
}

func (h *postRoundHandler) OnEnter(ctx *GameContext) {
	ctx.GameState = STATE_POST_ROUND
	ctx.PostRoundRemaining = ctx.Settings.PostRoundTime

	ctx.Env.ClearScene()

	outcome := ctx.LastOutcome
	if outcome == "" {
		outcome = EVENT_DRAW
	}

	ctx.Env.PlayCue(outcome)
	ctx.Events.PublishRound(RoundEvent{
		Kind:  outcome,
		State: STATE_POST_ROUND,
		Round: ctx.Round,
	})

	ctx.logLine("round", "回合结束："+outcome, false)
}

func (h *postRoundHandler) OnTick(ctx *GameContext, dt float64) {
	ctx.PostRoundRemaining -= dt
	if ctx.PostRoundRemaining <= countdownEpsilon {
		h.onSwitch(STATE_PRE_ROUND)
	}
}

func (h *postRoundHandler) OnExit(ctx *GameContext) {
	ctx.PostRoundRemaining = ctx.Settings.PostRoundTime
}

func (h *postRoundHandler) SetOnSwitch(onSwitch func(string)) {
	h.onSwitch = onSwitch
}
