package game

import (
	"fmt"
	"math/rand/v2"
	"strings"

	"go.uber.org/zap"
)

// Environment 是核心之外的引擎层：出生点、场景物品、音效和界面提示。
// 所有调用都是即发即忘，不应阻塞状态机。
type Environment interface {
	SpawnLocation() Transform
	SpawnItem(key string) error
	RespawnItems()
	ClearScene()
	PlayCue(cue string)
	Alert(actorID int, msg string)
}

// NopEnvironment 什么也不做，用于副本实例和测试
type NopEnvironment struct{}

func (NopEnvironment) SpawnLocation() Transform { return Transform{} }
func (NopEnvironment) SpawnItem(string) error   { return nil }
func (NopEnvironment) RespawnItems()            {}
func (NopEnvironment) ClearScene()              {}
func (NopEnvironment) PlayCue(string)           {}
func (NopEnvironment) Alert(int, string)        {}

type Settings struct {
	MinPlayers           int
	PreRoundTime         float64
	PostRoundTime        float64
	RestartPostRoundTime float64
	MaxHealth            int
	DecayInterval        float64
	BodyParts            []string
}

func DefaultSettings() Settings {
	return Settings{
		MinPlayers:           2,
		PreRoundTime:         15,
		PostRoundTime:        10,
		RestartPostRoundTime: 3,
		MaxHealth:            100,
		DecayInterval:        1,
		BodyParts:            []string{"head", "torso", "left_arm", "right_arm", "left_leg", "right_leg"},
	}
}

// GameContext 持有一局对局的全部共享状态，由宿主进程或测试构造并注入各组件
type GameContext struct {
	Settings Settings

	Players    *PlayerRegistry
	Characters *CharacterRegistry
	Events     *EventBroadcast
	Env        Environment
	Rand       *rand.Rand
	Log        *zap.Logger

	// 只有权威实例会推进状态机、结算伤害
	Authoritative bool
	// 本实例所代表的玩家，宿主为 0
	LocalActorID int

	GameState          string
	Round              int
	PreRoundRemaining  float64
	PostRoundRemaining float64
	// 上一回合的结果事件，进入结算阶段时广播
	LastOutcome string

	nextCharacterID int
}

func NewGameContext(settings Settings, env Environment, rng *rand.Rand, log *zap.Logger) *GameContext {
	if env == nil {
		env = NopEnvironment{}
	}
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if log == nil {
		log = zap.L()
	}

	return &GameContext{
		Settings:      settings,
		Players:       NewRegistry[*Player]("player", log),
		Characters:    NewRegistry[*Character]("character", log),
		Events:        NewEventBroadcast(),
		Env:           env,
		Rand:          rng,
		Log:           log,
		Authoritative: true,
		GameState:     STATE_PRE_ROUND,
	}
}

// Validate 检查必需配置，缺失时子系统应停用而不是崩溃
func (gc *GameContext) Validate() error {
	if len(gc.Settings.BodyParts) == 0 {
		return fmt.Errorf("%w: no body parts configured", ErrConfigurationMissing)
	}

	seen := make(map[string]struct{}, len(gc.Settings.BodyParts))
	for _, name := range gc.Settings.BodyParts {
		if name == "" || strings.ContainsAny(name, tokenFieldSep+tokenPartSep) {
			return fmt.Errorf("%w: invalid body part name %q", ErrConfigurationMissing, name)
		}
		if _, dup := seen[name]; dup {
			return fmt.Errorf("%w: duplicate body part %q", ErrConfigurationMissing, name)
		}
		seen[name] = struct{}{}
	}

	if gc.Settings.MaxHealth <= 0 {
		return fmt.Errorf("%w: max health must be positive", ErrConfigurationMissing)
	}
	if gc.Settings.MinPlayers <= 0 {
		return fmt.Errorf("%w: min players must be positive", ErrConfigurationMissing)
	}
	if gc.Settings.DecayInterval <= 0 {
		return fmt.Errorf("%w: decay interval must be positive", ErrConfigurationMissing)
	}

	return nil
}

// SpawnCharacter 创建角色并放到出生点。ownerActorID 为 0 表示无人控制（机器人）。
func (gc *GameContext) SpawnCharacter(ownerActorID int, isBot bool) *Character {
	gc.nextCharacterID++

	c := NewCharacter(gc, gc.nextCharacterID, ownerActorID, isBot)
	c.Reset(true)

	if err := gc.Characters.Add(c); err != nil {
		// 角色 ID 单调递增，不会重复
		gc.Log.Error("注册角色失败", zap.Error(err))
	}

	return c
}

func (gc *GameContext) CharacterOf(p *Player) *Character {
	if p == nil || p.CharacterID == nil {
		return nil
	}

	c, ok := gc.Characters.FindByID(*p.CharacterID)
	if !ok {
		return nil
	}

	return c
}

func (gc *GameContext) ReadyPlayers() []*Player {
	ready := make([]*Player, 0, gc.Players.Len())
	for _, p := range gc.Players.All() {
		if p.Ready && !p.Disconnected {
			ready = append(ready, p)
		}
	}

	return ready
}

func (gc *GameContext) GetAdmin() *Player {
	for _, p := range gc.Players.All() {
		if p.Admin && !p.Disconnected {
			return p
		}
	}

	return nil
}

func (gc *GameContext) logLine(source, msg string, isError bool) {
	if isError {
		gc.Log.Warn(msg, zap.String("source", source))
	} else {
		gc.Log.Info(msg, zap.String("source", source))
	}

	gc.Events.PublishLog(LogLine{Source: source, Message: msg, IsError: isError})
}

func (gc *GameContext) BroadcastResp(resp ResponseWrapper) {
	for _, p := range gc.Players.All() {
		if p.RespCh == nil || p.Disconnected {
			continue
		}

		select {
		case p.RespCh <- resp:
		default:
			gc.Log.Warn(
				"发送广播响应失败：玩家响应通道已满",
				zap.Int("stable_id", p.StableID),
				zap.String("response_type", resp.RespType),
			)
		}
	}
}

func (gc *GameContext) UnicastResp(stableID int, resp ResponseWrapper) {
	player, ok := gc.Players.FindByID(stableID)
	if !ok {
		gc.Log.Warn(
			"无法找到玩家进行单播响应",
			zap.Int("stable_id", stableID),
		)
		return
	}

	if player.RespCh == nil || player.Disconnected {
		return
	}

	select {
	case player.RespCh <- resp:
	default:
		gc.Log.Warn(
			"发送单播响应失败：玩家响应通道已满",
			zap.Int("stable_id", stableID),
			zap.String("response_type", resp.RespType),
		)
	}
}
