package game

import (
	"math/rand/v2"

	"go.uber.org/zap"
)

// AssignRandom 从准备好的玩家中均匀随机抽取一名叛徒，其余为无辜者。
// 返回 稳定 ID -> 身份，未准备的玩家不在结果中。
func AssignRandom(readyPlayers []*Player, rng *rand.Rand) map[int]RoleID {
	roles := make(map[int]RoleID, len(readyPlayers))
	if len(readyPlayers) == 0 {
		return roles
	}

	traitorIdx := rng.IntN(len(readyPlayers))

	for i, p := range readyPlayers {
		if i == traitorIdx {
			roles[p.StableID] = ROLE_TRAITOR
		} else {
			roles[p.StableID] = ROLE_INNOCENT
		}
	}

	return roles
}

type RoleAssignedResponse struct {
	CharacterID int  `json:"character_id"`
	Role        Role `json:"role"`
}

// assignRoles 在进入 Active 阶段时执行一次：为准备好的玩家分配身份并写入其角色，
// 机器人一律为无辜者，身份只单播给本人
func assignRoles(ctx *GameContext) {
	// 准备阶段死亡（例如 KILL）的角色在开局时复活
	for _, c := range ctx.Characters.All() {
		if !c.Alive() && !c.Stale() {
			c.Reset(false)
		}
	}

	ready := ctx.ReadyPlayers()
	roles := AssignRandom(ready, ctx.Rand)

	for _, p := range ready {
		role := roles[p.StableID]

		c := ctx.CharacterOf(p)
		if c == nil {
			ctx.Log.Warn(
				"准备好的玩家没有控制角色，跳过身份分配",
				zap.Int("stable_id", p.StableID),
			)
			continue
		}

		c.Role = role

		ctx.UnicastResp(p.StableID, WrapResponse(
			RESP_ROLE_ASSIGNED,
			RoleAssignedResponse{
				CharacterID: c.ID,
				Role:        LookupRole(role),
			},
		))
	}

	for _, c := range ctx.Characters.All() {
		if c.IsBot {
			c.Role = ROLE_INNOCENT
		}
	}

	ctx.Log.Info(
		"身份分配完成",
		zap.Int("round", ctx.Round),
		zap.Int("ready_players", len(ready)),
	)
}
