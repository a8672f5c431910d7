package game

import (
	"errors"
	"testing"

	"go.uber.org/zap"
)

func TestBodyPart_TotalEqualsSumOfAddedDamage(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())

	hits := []struct{ src, amount int }{
		{1, 5}, {2, 7}, {1, 3}, {3, 1}, {2, 10},
	}

	sum := 0
	for _, h := range hits {
		bp.AddDamage(h.src, h.amount)
		sum += h.amount

		if bp.Total() != sum {
			t.Fatalf("total = %d, want %d", bp.Total(), sum)
		}
	}

	// 同一来源合并为一个条目
	if got := len(bp.Entries()); got != 3 {
		t.Fatalf("entries = %d, want 3", got)
	}
}

func TestBodyPart_AddDamageIgnoresNonPositive(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())

	bp.AddDamage(1, 0)
	bp.AddDamage(1, -4)

	if bp.Total() != 0 || len(bp.Entries()) != 0 {
		t.Fatalf("non-positive damage mutated ledger: total=%d entries=%v", bp.Total(), bp.Entries())
	}
}

func TestBodyPart_RemoveDamageHealsFirstEntryFirst(t *testing.T) {
	bp := NewBodyPart("torso", zap.NewNop())
	bp.AddDamage(1, 2)
	bp.AddDamage(2, 5)

	if removed := bp.RemoveDamage(3); removed != 3 {
		t.Fatalf("removed = %d, want 3", removed)
	}

	entries := bp.Entries()
	if len(entries) != 1 || entries[0].SourceID != 2 || entries[0].Amount != 4 {
		t.Fatalf("unexpected entries after heal: %v", entries)
	}

	if removed := bp.RemoveDamage(100); removed != 4 {
		t.Fatalf("removed = %d, want 4", removed)
	}

	if bp.Total() != 0 {
		t.Fatalf("total = %d, want 0", bp.Total())
	}
}

func TestBodyPart_SerializeRoundTrip(t *testing.T) {
	bp := NewBodyPart("left_arm", zap.NewNop())
	bp.AddDamage(4, 12)
	bp.AddDamage(9, 3)

	token := bp.Serialize()
	if token != "left_arm:4:12:9:3" {
		t.Fatalf("token = %q", token)
	}

	replica := NewBodyPart("left_arm", zap.NewNop())
	if err := replica.Deserialize(token); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if got := replica.Serialize(); got != token {
		t.Fatalf("round trip = %q, want %q", got, token)
	}

	if replica.Total() != 15 {
		t.Fatalf("replica total = %d, want 15", replica.Total())
	}
}

func TestBodyPart_EmptyLedgerRoundTrip(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())

	replica := NewBodyPart("head", zap.NewNop())
	replica.AddDamage(1, 5)

	if err := replica.Deserialize(bp.Serialize()); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if replica.Total() != 0 || replica.Serialize() != "head" {
		t.Fatalf("empty token not applied: total=%d token=%q", replica.Total(), replica.Serialize())
	}
}

func TestBodyPart_DeserializeSameTokenIsNoop(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())
	token := "head:1:20:2:5"

	if err := bp.Deserialize(token); err != nil {
		t.Fatalf("first deserialize: %v", err)
	}

	after := bp.Recomputes()

	if err := bp.Deserialize(token); err != nil {
		t.Fatalf("second deserialize: %v", err)
	}

	if bp.Recomputes() != after {
		t.Fatalf("identical token recomputed: %d -> %d", after, bp.Recomputes())
	}

	if bp.Total() != 25 {
		t.Fatalf("total = %d, want 25", bp.Total())
	}

	// 一个新令牌必须重新计算
	if err := bp.Deserialize("head:1:20"); err != nil {
		t.Fatalf("third deserialize: %v", err)
	}

	if bp.Recomputes() != after+1 || bp.Total() != 20 {
		t.Fatalf("changed token not applied: recomputes=%d total=%d", bp.Recomputes(), bp.Total())
	}
}

func TestBodyPart_DeserializeRejectsBadTokens(t *testing.T) {
	cases := map[string]string{
		"wrong name":      "torso:1:5",
		"unpaired":        "head:1:5:2",
		"bad source":      "head:x:5",
		"bad amount":      "head:1:y",
		"negative amount": "head:1:-3",
		"empty":           "",
		"empty name":      ":1:5",
	}

	for name, token := range cases {
		t.Run(name, func(t *testing.T) {
			bp := NewBodyPart("head", zap.NewNop())
			bp.AddDamage(7, 7)

			err := bp.Deserialize(token)
			if !errors.Is(err, ErrProtocolViolation) {
				t.Fatalf("err = %v, want protocol violation", err)
			}

			if bp.Total() != 7 || bp.Serialize() != "head:7:7" {
				t.Fatalf("ledger mutated by bad token: %q", bp.Serialize())
			}
		})
	}
}

func TestBodyPart_AcceptsRepeatedSourcesFromWire(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())

	if err := bp.Deserialize("head:1:5:1:6"); err != nil {
		t.Fatalf("deserialize: %v", err)
	}

	if bp.Total() != 11 || len(bp.Entries()) != 2 {
		t.Fatalf("total=%d entries=%v", bp.Total(), bp.Entries())
	}
}

func TestBodyPart_Reset(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())
	bp.AddDamage(1, 30)
	bp.Reset()

	if bp.Total() != 0 || len(bp.Entries()) != 0 {
		t.Fatalf("reset left damage: %v", bp.Entries())
	}
}

func TestBodyPart_TakeDamageWithoutOwner(t *testing.T) {
	bp := NewBodyPart("head", zap.NewNop())

	if err := bp.TakeDamage(5, 1); !errors.Is(err, ErrConfigurationMissing) {
		t.Fatalf("err = %v, want configuration missing", err)
	}
}

func TestGameContext_RejectsUnencodableBodyParts(t *testing.T) {
	for _, parts := range [][]string{
		{"left:arm"},
		{"head", "left/arm"},
		{"head", ""},
		{"head", "head"},
	} {
		settings := DefaultSettings()
		settings.BodyParts = parts

		ctx := NewGameContext(settings, newRecordingEnv(), nil, zap.NewNop())
		if err := ctx.Validate(); !errors.Is(err, ErrConfigurationMissing) {
			t.Fatalf("parts %q: err = %v, want configuration missing", parts, err)
		}
	}
}
