package game

import (
	"fmt"

	"go.uber.org/zap"
)

// DamageEntry 记录某个伤害来源在一个部位上累计造成的伤害
type DamageEntry struct {
	SourceID int `json:"source_id" msgpack:"source_id"`
	Amount   int `json:"amount" msgpack:"amount"`
}

// BodyPart 是角色身上可被命中的部位，持有自己的伤害账本。
// 只有角色的权威实例可以调用 AddDamage / RemoveDamage，其他实例只能通过 Deserialize 同步。
type BodyPart struct {
	Name string

	entries []DamageEntry
	total   int

	// 最近一次成功应用的同步令牌
	lastToken  string
	recomputes int

	owner *Character
	log   *zap.Logger
}

func NewBodyPart(name string, log *zap.Logger) *BodyPart {
	if log == nil {
		log = zap.L()
	}

	return &BodyPart{
		Name: name,
		log:  log,
	}
}

// TakeDamage 把命中转发给所属角色，由角色判定是否死亡
func (bp *BodyPart) TakeDamage(amount, sourceID int) error {
	if bp.owner == nil {
		return fmt.Errorf("%w: body part %q has no owner", ErrConfigurationMissing, bp.Name)
	}

	return bp.owner.TakeDamage(bp.Name, amount, sourceID)
}

func (bp *BodyPart) AddDamage(sourceID, amount int) {
	if amount <= 0 {
		return
	}

	merged := false
	for i := range bp.entries {
		if bp.entries[i].SourceID == sourceID {
			bp.entries[i].Amount += amount
			merged = true
			break
		}
	}

	if !merged {
		bp.entries = append(bp.entries, DamageEntry{SourceID: sourceID, Amount: amount})
	}

	bp.lastToken = ""
	bp.recompute()
}

// RemoveDamage 逐点治疗：每一点都从第一个仍有伤害的条目扣除，清零的条目会被移除。
// 返回实际移除的点数。
func (bp *BodyPart) RemoveDamage(amount int) int {
	removed := 0

	for removed < amount {
		idx := -1
		for i, e := range bp.entries {
			if e.Amount > 0 {
				idx = i
				break
			}
		}

		if idx < 0 {
			break
		}

		bp.entries[idx].Amount--
		if bp.entries[idx].Amount == 0 {
			bp.entries = append(bp.entries[:idx], bp.entries[idx+1:]...)
		}

		removed++
		bp.recompute()
	}

	if removed > 0 {
		bp.lastToken = ""
	}

	return removed
}

func (bp *BodyPart) Reset() {
	bp.entries = nil
	bp.lastToken = ""
	bp.recompute()
}

// Total 返回该部位的累计伤害
func (bp *BodyPart) Total() int {
	return bp.total
}

// Entries 返回伤害条目的副本
func (bp *BodyPart) Entries() []DamageEntry {
	out := make([]DamageEntry, len(bp.entries))
	copy(out, bp.entries)

	return out
}

// Recomputes 返回累计重算次数，供测试观察 Deserialize 是否短路
func (bp *BodyPart) Recomputes() int {
	return bp.recomputes
}

func (bp *BodyPart) Serialize() string {
	return encodePartToken(bp.Name, bp.entries)
}

// Deserialize 应用来自权威实例的同步令牌。
// 与上次应用的令牌完全相同时直接返回；解析失败时账本保持不变。
func (bp *BodyPart) Deserialize(token string) error {
	if token == bp.lastToken && token != "" {
		return nil
	}

	name, entries, err := decodePartToken(token)
	if err != nil {
		bp.log.Warn(
			"解析部位伤害令牌失败",
			zap.String("body_part", bp.Name),
			zap.String("token", token),
			zap.Error(err),
		)
		return err
	}

	if name != bp.Name {
		bp.log.Warn(
			"部位伤害令牌名称不匹配",
			zap.String("body_part", bp.Name),
			zap.String("token_name", name),
		)
		return fmt.Errorf("%w: token for %q applied to %q", ErrProtocolViolation, name, bp.Name)
	}

	bp.entries = entries
	bp.lastToken = token
	bp.recompute()

	return nil
}

func (bp *BodyPart) recompute() {
	sum := 0
	for _, e := range bp.entries {
		sum += e.Amount
	}

	bp.total = sum
	bp.recomputes++
}
