package service

import (
	"fmt"
	"slices"

	"traitor-be/internal/catalog"
	"traitor-be/internal/service/game"

	"go.uber.org/zap"
)

// Scene 是基于场景目录的引擎层实现：出生点轮换、物品放置，
// 音效与提示转发给客户端。只在状态机协程中调用。
type Scene struct {
	catalog *catalog.Catalog
	ctx     *game.GameContext
	log     *zap.Logger

	nextSpawn int
	placed    []string
}

func NewScene(c *catalog.Catalog, log *zap.Logger) *Scene {
	return &Scene{
		catalog: c,
		log:     log,
	}
}

// Bind 关联对局上下文，之后的音效和提示才能发给玩家
func (s *Scene) Bind(ctx *game.GameContext) {
	s.ctx = ctx
}

func (s *Scene) SpawnLocation() game.Transform {
	points := s.catalog.SpawnPoints
	if len(points) == 0 {
		return game.Transform{}
	}

	p := points[s.nextSpawn%len(points)]
	s.nextSpawn++

	return game.Transform{X: p.X, Y: p.Y, Z: p.Z, Yaw: p.Yaw}
}

func (s *Scene) SpawnItem(key string) error {
	item, ok := s.catalog.Item(key)
	if !ok {
		return fmt.Errorf("%w: item %q", game.ErrLookupMiss, key)
	}

	s.placed = append(s.placed, item.Key)

	s.log.Debug("放置物品", zap.String("item", item.Key))

	return nil
}

func (s *Scene) RespawnItems() {
	for _, item := range s.catalog.RespawnItems() {
		if !slices.Contains(s.placed, item.Key) {
			s.placed = append(s.placed, item.Key)
		}
	}
}

func (s *Scene) ClearScene() {
	s.placed = nil
}

// Items 返回当前场景中的物品
func (s *Scene) Items() []string {
	return slices.Clone(s.placed)
}

func (s *Scene) PlayCue(cue string) {
	if s.ctx == nil {
		return
	}

	s.ctx.BroadcastResp(game.WrapResponse(game.RESP_CUE, game.CueResponse{Cue: cue}))
}

func (s *Scene) Alert(actorID int, msg string) {
	if s.ctx == nil || actorID == game.HOST_ACTOR_ID {
		s.log.Warn("控制台提示", zap.String("message", msg))
		return
	}

	p, ok := s.ctx.Players.FindByActorNumber(actorID)
	if !ok {
		return
	}

	s.ctx.UnicastResp(p.StableID, game.WrapResponse(game.RESP_ALERT, game.AlertResponse{Message: msg}))
}

var _ game.Environment = (*Scene)(nil)
