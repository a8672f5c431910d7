package game

import (
	"fmt"

	"go.uber.org/zap"
)

const (
	CAUSE_DAMAGE  = "Damage"
	CAUSE_SUICIDE = "Suicide"
	CAUSE_UNKNOWN = "Unknown"
)

// Character 是场景中的可战斗角色。
// 伤害是持续的流失速率：每个衰减周期从生命值中扣除当前累计伤害；
// 如果一次命中后累计伤害已经超过剩余生命，立即死亡。
type Character struct {
	ID           int
	OwnerActorID int
	IsBot        bool

	Health    int
	MaxHealth int
	Role      RoleID
	Position  Transform

	// 死亡是锁存的，只有 Reset 能恢复
	alive bool
	// Die 已经结算过
	deathHandled bool

	instantKiller *int
	killCause     string

	decayAcc float64

	parts     []*BodyPart
	partIndex map[string]*BodyPart

	destroyed bool

	gc *GameContext
}

func NewCharacter(gc *GameContext, id, ownerActorID int, isBot bool) *Character {
	c := &Character{
		ID:           id,
		OwnerActorID: ownerActorID,
		IsBot:        isBot,
		Health:       gc.Settings.MaxHealth,
		MaxHealth:    gc.Settings.MaxHealth,
		Role:         ROLE_SPECTATOR,
		alive:        true,
		partIndex:    make(map[string]*BodyPart, len(gc.Settings.BodyParts)),
		gc:           gc,
	}

	for _, name := range gc.Settings.BodyParts {
		bp := NewBodyPart(name, gc.Log)
		bp.owner = c
		c.parts = append(c.parts, bp)
		c.partIndex[name] = bp
	}

	return c
}

func (c *Character) EntityID() int { return c.ID }

func (c *Character) ActorNumber() int {
	if c.IsBot {
		return -1
	}

	return c.OwnerActorID
}

func (c *Character) Stale() bool { return c.destroyed }

// Destroy 标记角色已被移出场景，下一次 tick 时从注册表中清除
func (c *Character) Destroy() {
	c.destroyed = true
}

func (c *Character) Alive() bool {
	return c.alive
}

func (c *Character) Part(name string) (*BodyPart, bool) {
	bp, ok := c.partIndex[name]
	return bp, ok
}

func (c *Character) Parts() []*BodyPart {
	out := make([]*BodyPart, len(c.parts))
	copy(out, c.parts)

	return out
}

func (c *Character) TotalDamage() int {
	total := 0
	for _, bp := range c.parts {
		total += bp.Total()
	}

	return total
}

func (c *Character) TakeDamage(bodyPart string, amount, sourceID int) error {
	bp, ok := c.partIndex[bodyPart]
	if !ok {
		c.gc.Log.Warn(
			"命中了不存在的部位",
			zap.Int("character_id", c.ID),
			zap.String("body_part", bodyPart),
		)
		return fmt.Errorf("%w: body part %q on character %d", ErrLookupMiss, bodyPart, c.ID)
	}

	if !c.alive {
		return nil
	}

	bp.AddDamage(sourceID, amount)

	c.gc.Log.Debug(
		"角色受到伤害",
		zap.Int("character_id", c.ID),
		zap.String("body_part", bodyPart),
		zap.Int("source_id", sourceID),
		zap.Int("amount", amount),
		zap.Int("total_damage", c.TotalDamage()),
		zap.Int("health", c.Health),
	)

	if c.gc.Authoritative && c.TotalDamage() > c.Health {
		c.Health = 0
		c.alive = false
		c.Die()
	}

	return nil
}

// Heal 逐点治疗第一个仍有伤害的部位，返回实际治疗的点数
func (c *Character) Heal(amount int) int {
	applied := 0

	for applied < amount {
		var target *BodyPart
		for _, bp := range c.parts {
			if bp.Total() > 0 {
				target = bp
				break
			}
		}

		if target == nil {
			break
		}

		applied += target.RemoveDamage(1)
	}

	if applied > 0 {
		c.gc.Env.PlayCue("heal")
	}

	return applied
}

// Kill 是即死指令，绕过衰减直接死亡并锁存击杀者
func (c *Character) Kill(sourceID int, cause string) {
	if !c.alive {
		return
	}

	src := sourceID
	c.instantKiller = &src
	c.killCause = cause
	c.Health = 0
	c.alive = false
	c.Die()
}

// Die 在角色从存活变为死亡时调用，重复调用无副作用
func (c *Character) Die() {
	if c.alive || c.deathHandled {
		return
	}
	c.deathHandled = true

	killer, cause := c.resolveKiller()

	c.gc.Log.Info(
		"角色死亡",
		zap.Int("victim_id", c.ID),
		zap.Int("killer_id", killer),
		zap.String("cause", cause),
	)

	if c.OwnerActorID != 0 && c.OwnerActorID == c.gc.LocalActorID {
		c.gc.Env.PlayCue("death")
	}

	c.gc.Events.PublishDeath(CharacterDied{
		VictimID: c.ID,
		KillerID: killer,
		Cause:    cause,
	})
}

// resolveKiller 优先使用即死来源；否则按来源合并所有部位的伤害，取总量最大者，
// 平局时取最先出现的来源
func (c *Character) resolveKiller() (int, string) {
	if c.instantKiller != nil {
		cause := c.killCause
		if cause == "" {
			cause = CAUSE_DAMAGE
		}
		return *c.instantKiller, cause
	}

	sums := make(map[int]int)
	var order []int

	for _, bp := range c.parts {
		for _, e := range bp.entries {
			if _, seen := sums[e.SourceID]; !seen {
				order = append(order, e.SourceID)
			}
			sums[e.SourceID] += e.Amount
		}
	}

	if len(order) == 0 {
		c.gc.Log.Warn("无法归因击杀：没有任何伤害记录", zap.Int("victim_id", c.ID))
		return UnknownKiller, CAUSE_UNKNOWN
	}

	best := order[0]
	for _, src := range order[1:] {
		if sums[src] > sums[best] {
			best = src
		}
	}

	return best, CAUSE_DAMAGE
}

func (c *Character) Reset(forceRespawn bool) {
	if !c.alive || forceRespawn {
		c.Position = c.gc.Env.SpawnLocation()
	}

	c.Health = c.MaxHealth
	for _, bp := range c.parts {
		bp.Reset()
	}

	c.Role = ROLE_SPECTATOR
	c.instantKiller = nil
	c.killCause = ""
	c.decayAcc = 0
	c.alive = true
	c.deathHandled = false
}

// Tick 只在权威实例上推进生命流失
func (c *Character) Tick(dt float64) {
	if !c.gc.Authoritative || !c.alive {
		return
	}

	interval := c.gc.Settings.DecayInterval
	c.decayAcc += dt

	for c.decayAcc >= interval && c.alive {
		c.decayAcc -= interval

		c.Health -= c.TotalDamage()
		if c.Health <= 0 {
			c.Health = 0
			c.alive = false
			c.Die()
		}
	}
}

// Snapshot 把所有部位的伤害令牌用 "/" 连接
func (c *Character) Snapshot() string {
	tokens := make([]string, 0, len(c.parts))
	for _, bp := range c.parts {
		tokens = append(tokens, bp.Serialize())
	}

	return joinPartTokens(tokens)
}

// ApplySnapshot 把多部位快照分发给各部位；未知部位跳过，返回第一个错误
func (c *Character) ApplySnapshot(snapshot string) error {
	var firstErr error

	for _, token := range splitPartTokens(snapshot) {
		name := partTokenName(token)

		bp, ok := c.partIndex[name]
		if !ok {
			c.gc.Log.Warn(
				"快照中包含未知部位",
				zap.Int("character_id", c.ID),
				zap.String("body_part", name),
			)
			if firstErr == nil {
				firstErr = fmt.Errorf("%w: unknown body part %q", ErrProtocolViolation, name)
			}
			continue
		}

		if err := bp.Deserialize(token); err != nil && firstErr == nil {
			firstErr = err
		}
	}

	return firstErr
}

func (c *Character) snapshot() CharacterSnapshot {
	return CharacterSnapshot{
		ID:        c.ID,
		OwnerID:   c.OwnerActorID,
		IsBot:     c.IsBot,
		Alive:     c.alive,
		Health:    c.Health,
		MaxHealth: c.MaxHealth,
		Position:  c.Position,
		Damage:    c.Snapshot(),
	}
}

// applyReplica 在非权威实例上应用权威推送的角色状态
func (c *Character) applyReplica(s CharacterSnapshot) error {
	c.Health = s.Health
	c.Position = s.Position

	if c.alive && !s.Alive {
		c.alive = false
		c.deathHandled = true
	} else if !c.alive && s.Alive {
		c.alive = true
		c.deathHandled = false
	}

	return c.ApplySnapshot(s.Damage)
}
