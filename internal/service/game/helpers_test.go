package game

import (
	"encoding/json"
	"errors"
	"math/rand/v2"
	"testing"

	"go.uber.org/zap"
)

// recordingEnv 记录状态机对引擎层的调用
type recordingEnv struct {
	cues      []string
	alerts    []string
	spawned   []string
	respawns  int
	clears    int
	locations int
	known     map[string]bool
}

func newRecordingEnv() *recordingEnv {
	return &recordingEnv{known: map[string]bool{"medkit": true}}
}

func (e *recordingEnv) SpawnLocation() Transform {
	e.locations++
	return Transform{X: float64(e.locations)}
}

func (e *recordingEnv) SpawnItem(key string) error {
	if !e.known[key] {
		return errors.New("unknown item")
	}
	e.spawned = append(e.spawned, key)
	return nil
}

func (e *recordingEnv) RespawnItems()                { e.respawns++ }
func (e *recordingEnv) ClearScene()                  { e.clears++ }
func (e *recordingEnv) PlayCue(cue string)           { e.cues = append(e.cues, cue) }
func (e *recordingEnv) Alert(actorID int, msg string) { e.alerts = append(e.alerts, msg) }

func newTestContext(t *testing.T, seed uint64) (*GameContext, *recordingEnv) {
	t.Helper()

	env := newRecordingEnv()
	settings := DefaultSettings()
	settings.BodyParts = []string{"head", "torso"}

	ctx := NewGameContext(settings, env, rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)), zap.NewNop())
	if err := ctx.Validate(); err != nil {
		t.Fatalf("test context invalid: %v", err)
	}

	return ctx, env
}

func newTestMachine(t *testing.T, seed uint64) (*GameMachine, *recordingEnv) {
	t.Helper()

	ctx, env := newTestContext(t, seed)
	gm := NewGameMachine(ctx, "test-match", make(chan struct{}))
	gm.Start()

	return gm, env
}

func joinPlayer(t *testing.T, gm *GameMachine, name string, actorID int) *Player {
	t.Helper()

	req := RequestWrapper{
		ReqType:       REQ_JOIN_GAME,
		SenderActorID: actorID,
		NativeData: &JoinGameRequest{
			JoinerName: name,
			ActorID:    actorID,
			RespCh:     make(chan ResponseWrapper, 512),
		},
	}

	if err := gm.Handle(req); err != nil {
		t.Fatalf("join %s: %v", name, err)
	}

	p, ok := gm.Context().Players.FindByActorNumber(actorID)
	if !ok {
		t.Fatalf("player %s not registered", name)
	}

	return p
}

func setReady(t *testing.T, gm *GameMachine, actorID int, ready bool) {
	t.Helper()

	req := RequestWrapper{
		ReqType:       REQ_SET_READY,
		SenderActorID: actorID,
		Data:          mustMarshal(SetReadyRequest{Ready: ready}),
	}

	if err := gm.Handle(req); err != nil {
		t.Fatalf("set ready for actor %d: %v", actorID, err)
	}
}

func tickFor(gm *GameMachine, dt float64, n int) {
	for range n {
		gm.Tick(dt)
	}
}

func recordRoundEvents(ctx *GameContext) *[]string {
	kinds := &[]string{}
	ctx.Events.SubscribeRound(func(ev RoundEvent) {
		*kinds = append(*kinds, ev.Kind)
	})

	return kinds
}

func mustMarshal(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}

	return data
}
