package game

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestRegistry_RejectsDuplicateStableID(t *testing.T) {
	reg := NewRegistry[*Player]("player", zap.NewNop())

	if err := reg.Add(&Player{StableID: 1, ActorID: 10}); err != nil {
		t.Fatalf("first add: %v", err)
	}

	err := reg.Add(&Player{StableID: 1, ActorID: 11})
	if !errors.Is(err, ErrDuplicateEntity) {
		t.Fatalf("err = %v, want duplicate entity", err)
	}

	if reg.Len() != 1 {
		t.Fatalf("len = %d, want 1", reg.Len())
	}
}

func TestRegistry_FindByIDAndActorNumber(t *testing.T) {
	reg := NewRegistry[*Player]("player", zap.NewNop())
	reg.Add(&Player{StableID: 1, ActorID: 10, Name: "alice"})
	reg.Add(&Player{StableID: 2, ActorID: 20, Name: "bob"})

	if p, ok := reg.FindByID(2); !ok || p.Name != "bob" {
		t.Fatalf("FindByID(2) = %v, %v", p, ok)
	}

	if p, ok := reg.FindByActorNumber(10); !ok || p.Name != "alice" {
		t.Fatalf("FindByActorNumber(10) = %v, %v", p, ok)
	}

	if _, ok := reg.FindByID(3); ok {
		t.Fatal("FindByID(3) should miss")
	}
	if _, ok := reg.FindByActorNumber(30); ok {
		t.Fatal("FindByActorNumber(30) should miss")
	}
}

func TestRegistry_RemoveStalePreservesOrder(t *testing.T) {
	reg := NewRegistry[*Player]("player", zap.NewNop())
	reg.Add(&Player{StableID: 1})
	reg.Add(&Player{StableID: 2, Disconnected: true})
	reg.Add(&Player{StableID: 3})

	removed := reg.RemoveStale()
	if len(removed) != 1 || removed[0].StableID != 2 {
		t.Fatalf("removed = %v", removed)
	}

	all := reg.All()
	if len(all) != 2 || all[0].StableID != 1 || all[1].StableID != 3 {
		t.Fatalf("remaining = %v", all)
	}
}

func TestRegistry_BotsHaveNoActorNumber(t *testing.T) {
	ctx, _ := newTestContext(t, 1)
	bot := ctx.SpawnCharacter(0, true)

	if _, ok := ctx.Characters.FindByActorNumber(0); ok {
		t.Fatalf("bot %d matched actor number 0", bot.ID)
	}

	if c, ok := ctx.Characters.FindByID(bot.ID); !ok || !c.IsBot {
		t.Fatal("bot not registered")
	}
}
