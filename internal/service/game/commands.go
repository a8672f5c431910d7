package game

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"
)

// 控制台指令
const (
	CMD_SPAWN         = "SPAWN"
	CMD_KILL          = "KILL"
	CMD_ROUND_RESTART = "ROUNDRESTART"
	CMD_BOT           = "BOT"
)

// 一次 BOT 指令最多生成的机器人数量
const maxBotsPerCommand = 16

// Handle 处理一条来自任意参与者的请求。非权威实例不处理任何请求。
func (gm *GameMachine) Handle(req RequestWrapper) error {
	if !gm.ctx.Authoritative {
		return fmt.Errorf("%w: not the authoritative instance", ErrProtocolViolation)
	}

	defer gm.publish()

	if r := TryUnwrapJoinGameRequest(req); r != nil {
		return gm.onPlayerJoin(r)
	}

	if r := TryUnwrapExitGameRequest(req); r != nil {
		return gm.onPlayerExit(req.SenderActorID, r.RespCh)
	}

	if r := TryUnwrapSetReadyRequest(req); r != nil {
		p, ok := gm.ctx.Players.FindByActorNumber(req.SenderActorID)
		if !ok {
			return fmt.Errorf("%w: player with actor %d", ErrLookupMiss, req.SenderActorID)
		}

		p.Ready = r.Ready

		gm.ctx.Log.Debug(
			"玩家准备状态变化",
			zap.Int("stable_id", p.StableID),
			zap.Bool("ready", p.Ready),
		)

		return nil
	}

	if r := TryUnwrapHitRequest(req); r != nil {
		return gm.onHit(req.SenderActorID, r)
	}

	if r := TryUnwrapHealRequest(req); r != nil {
		c, err := gm.senderCharacter(req.SenderActorID)
		if err != nil {
			return err
		}

		if !c.Alive() {
			return fmt.Errorf("%w: dead character %d requested heal", ErrProtocolViolation, c.ID)
		}
		if r.Amount <= 0 {
			return fmt.Errorf("%w: heal amount %d", ErrProtocolViolation, r.Amount)
		}

		c.Heal(min(r.Amount, c.MaxHealth))

		return nil
	}

	if r := TryUnwrapCommandRequest(req); r != nil {
		err := gm.ExecCommand(req.SenderActorID, r.Line)
		if r.ReplyCh != nil {
			select {
			case r.ReplyCh <- err:
			default:
			}
		}
		return err
	}

	return fmt.Errorf("%w: unsupported request %q", ErrProtocolViolation, req.ReqType)
}

func (gm *GameMachine) stableIDFor(name string) int {
	if id, ok := gm.stableIDs[name]; ok {
		return id
	}

	gm.nextStableID++
	gm.stableIDs[name] = gm.nextStableID

	return gm.nextStableID
}

func (gm *GameMachine) onPlayerJoin(req *JoinGameRequest) error {
	ctx := gm.ctx

	name := strings.TrimSpace(req.JoinerName)
	if name == "" {
		return errors.New("无法加入：玩家名称不能为空")
	}
	if req.ActorID == HOST_ACTOR_ID {
		return fmt.Errorf("%w: actor number %d is reserved", ErrProtocolViolation, HOST_ACTOR_ID)
	}

	stableID := gm.stableIDFor(name)

	// 同名玩家视为断线重连：保留稳定 ID 和角色，替换连接
	if existing, ok := ctx.Players.FindByID(stableID); ok {
		if existing.RespCh != nil && existing.RespCh != req.RespCh && !existing.Disconnected {
			close(existing.RespCh)
		}

		existing.ActorID = req.ActorID
		existing.RespCh = req.RespCh
		existing.Disconnected = false

		if c := ctx.CharacterOf(existing); c == nil || c.Stale() {
			gm.spawnFor(existing)
		} else {
			c.OwnerActorID = req.ActorID
		}

		if ctx.GetAdmin() == nil {
			existing.Admin = true
		}

		ctx.Log.Info(
			"玩家断线重连",
			zap.Int("stable_id", stableID),
			zap.String("name", name),
			zap.Int("actor_id", req.ActorID),
		)

		gm.announceJoin(existing, true)

		return nil
	}

	player := &Player{
		ActorID:  req.ActorID,
		StableID: stableID,
		Name:     name,
		RespCh:   req.RespCh,
	}

	// 第一个在线玩家成为管理员
	if ctx.GetAdmin() == nil {
		player.Admin = true
	}

	if err := ctx.Players.Add(player); err != nil {
		return err
	}

	gm.spawnFor(player)

	ctx.Log.Info(
		"玩家加入对局",
		zap.Int("stable_id", stableID),
		zap.String("name", name),
		zap.Int("actor_id", req.ActorID),
		zap.Bool("admin", player.Admin),
	)

	gm.announceJoin(player, false)

	return nil
}

func (gm *GameMachine) spawnFor(p *Player) {
	c := gm.ctx.SpawnCharacter(p.ActorID, false)
	id := c.ID
	p.CharacterID = &id
}

func (gm *GameMachine) announceJoin(p *Player, reconnected bool) {
	resp := WrapResponse(
		RESP_JOIN_GAME,
		JoinGameResponse{
			MatchID:     gm.matchID,
			State:       gm.ctx.GameState,
			Joiner:      *p,
			Reconnected: reconnected,
		},
	)

	gm.ctx.BroadcastResp(resp)

	// 重连者需要重新拿到自己的身份
	if c := gm.ctx.CharacterOf(p); reconnected && c != nil && c.Role != ROLE_SPECTATOR {
		gm.ctx.UnicastResp(p.StableID, WrapResponse(
			RESP_ROLE_ASSIGNED,
			RoleAssignedResponse{CharacterID: c.ID, Role: LookupRole(c.Role)},
		))
	}
}

func (gm *GameMachine) onPlayerExit(actorID int, respCh chan ResponseWrapper) error {
	ctx := gm.ctx

	player, ok := ctx.Players.FindByActorNumber(actorID)
	if !ok || player.Disconnected {
		return fmt.Errorf("%w: player with actor %d", ErrLookupMiss, actorID)
	}

	// 连接已经被重连顶替，旧通道在重连时已关闭
	if respCh != nil && player.RespCh != respCh {
		return nil
	}

	exitResp := WrapResponse(
		RESP_EXIT_GAME,
		ExitGameResponse{
			LeftStableID: player.StableID,
			LeftName:     player.Name,
		},
	)

	ctx.UnicastResp(player.StableID, exitResp)

	player.Disconnected = true
	player.Ready = false
	if player.RespCh != nil {
		close(player.RespCh)
		player.RespCh = nil
	}

	if c := ctx.CharacterOf(player); c != nil {
		c.Destroy()
	}

	if player.Admin {
		player.Admin = false
		for _, p := range ctx.Players.All() {
			if !p.Disconnected {
				p.Admin = true
				break
			}
		}
	}

	ctx.Log.Info(
		"玩家离开对局",
		zap.Int("stable_id", player.StableID),
		zap.String("name", player.Name),
	)

	ctx.BroadcastResp(exitResp)

	return nil
}

func (gm *GameMachine) senderCharacter(actorID int) (*Character, error) {
	p, ok := gm.ctx.Players.FindByActorNumber(actorID)
	if !ok || p.Disconnected {
		return nil, fmt.Errorf("%w: player with actor %d", ErrLookupMiss, actorID)
	}

	c := gm.ctx.CharacterOf(p)
	if c == nil {
		return nil, fmt.Errorf("%w: player %d controls no character", ErrLookupMiss, p.StableID)
	}

	return c, nil
}

func (gm *GameMachine) onHit(actorID int, r *HitRequest) error {
	shooter, err := gm.senderCharacter(actorID)
	if err != nil {
		return err
	}

	if !shooter.Alive() {
		return fmt.Errorf("%w: dead character %d reported a hit", ErrProtocolViolation, shooter.ID)
	}

	target, ok := gm.ctx.Characters.FindByID(r.TargetCharacterID)
	if !ok || target.Stale() {
		return fmt.Errorf("%w: character %d", ErrLookupMiss, r.TargetCharacterID)
	}

	return target.TakeDamage(r.BodyPart, r.Amount, shooter.ID)
}

// ExecCommand 执行控制台指令。SPAWN / ROUNDRESTART / BOT 只允许宿主或管理员执行，
// KILL 只作用于发送者自己的角色。
func (gm *GameMachine) ExecCommand(senderActorID int, line string) error {
	ctx := gm.ctx

	fields := strings.Fields(line)
	if len(fields) == 0 {
		return fmt.Errorf("%w: empty command", ErrUnknownCommand)
	}

	cmd := strings.ToUpper(fields[0])
	args := fields[1:]

	var sender *Player
	if p, ok := ctx.Players.FindByActorNumber(senderActorID); ok && !p.Disconnected {
		sender = p
	}

	authorized := senderActorID == HOST_ACTOR_ID || (sender != nil && sender.Admin)

	var (
		result string
		err    error
	)

	switch cmd {
	case CMD_SPAWN:
		if !authorized {
			err = ErrUnauthorized
			break
		}
		if len(args) == 0 {
			err = fmt.Errorf("%w: SPAWN requires an item key", ErrProtocolViolation)
			break
		}

		if spawnErr := ctx.Env.SpawnItem(args[0]); spawnErr != nil {
			ctx.Env.Alert(senderActorID, "无法在此处放置物品")
			err = spawnErr
			break
		}
		result = "已生成 " + args[0]

	case CMD_KILL:
		if sender == nil {
			err = fmt.Errorf("%w: KILL needs a player sender", ErrLookupMiss)
			break
		}

		c := ctx.CharacterOf(sender)
		if c == nil {
			err = fmt.Errorf("%w: player %d controls no character", ErrLookupMiss, sender.StableID)
			break
		}

		c.Kill(c.ID, CAUSE_SUICIDE)
		result = "角色已死亡"

	case CMD_ROUND_RESTART:
		if !authorized {
			err = ErrUnauthorized
			break
		}

		gm.ForcePostRound(ctx.Settings.RestartPostRoundTime)
		result = "回合重启"

	case CMD_BOT:
		if !authorized {
			err = ErrUnauthorized
			break
		}

		count := 1
		if len(args) > 0 {
			n, convErr := strconv.Atoi(args[0])
			if convErr != nil || n <= 0 {
				err = fmt.Errorf("%w: bad bot count %q", ErrProtocolViolation, args[0])
				break
			}
			count = min(n, maxBotsPerCommand)
		}

		for range count {
			ctx.SpawnCharacter(0, true)
		}
		result = fmt.Sprintf("已生成 %d 个机器人", count)

	default:
		err = fmt.Errorf("%w: %q", ErrUnknownCommand, cmd)
	}

	if err != nil {
		ctx.Log.Warn(
			"控制台指令被拒绝",
			zap.String("command", cmd),
			zap.Int("sender_actor_id", senderActorID),
			zap.Error(err),
		)
		ctx.Events.PublishLog(LogLine{Source: "console", Message: cmd + ": " + err.Error(), IsError: true})
		return err
	}

	ctx.logLine("console", cmd+": "+result, false)

	if sender != nil {
		ctx.UnicastResp(sender.StableID, WrapResponse(
			RESP_COMMAND_RESULT,
			CommandResultResponse{Command: cmd, Message: result},
		))
	}

	return nil
}
