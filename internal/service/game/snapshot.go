package game

import (
	"fmt"
	"strconv"
	"strings"
)

// 部位伤害令牌格式：name:sourceId:amount:sourceId:amount...
// 一个角色的多个部位令牌用 "/" 连接。
const (
	tokenFieldSep = ":"
	tokenPartSep  = "/"
)

func encodePartToken(name string, entries []DamageEntry) string {
	var sb strings.Builder

	sb.WriteString(name)
	for _, e := range entries {
		sb.WriteString(tokenFieldSep)
		sb.WriteString(strconv.Itoa(e.SourceID))
		sb.WriteString(tokenFieldSep)
		sb.WriteString(strconv.Itoa(e.Amount))
	}

	return sb.String()
}

func decodePartToken(token string) (string, []DamageEntry, error) {
	fields := strings.Split(token, tokenFieldSep)

	name := fields[0]
	if name == "" || strings.Contains(name, tokenPartSep) {
		return "", nil, fmt.Errorf("%w: invalid body part name in %q", ErrProtocolViolation, token)
	}

	rest := fields[1:]
	if len(rest)%2 != 0 {
		return "", nil, fmt.Errorf("%w: unpaired damage entry in %q", ErrProtocolViolation, token)
	}

	entries := make([]DamageEntry, 0, len(rest)/2)
	for i := 0; i < len(rest); i += 2 {
		src, err := strconv.Atoi(rest[i])
		if err != nil {
			return "", nil, fmt.Errorf("%w: bad source id %q", ErrProtocolViolation, rest[i])
		}

		amount, err := strconv.Atoi(rest[i+1])
		if err != nil || amount < 0 {
			return "", nil, fmt.Errorf("%w: bad amount %q", ErrProtocolViolation, rest[i+1])
		}

		entries = append(entries, DamageEntry{SourceID: src, Amount: amount})
	}

	return name, entries, nil
}

func joinPartTokens(tokens []string) string {
	return strings.Join(tokens, tokenPartSep)
}

func splitPartTokens(snapshot string) []string {
	if snapshot == "" {
		return nil
	}

	return strings.Split(snapshot, tokenPartSep)
}

// 部位令牌的名称前缀，用于把多部位快照分发到对应部位
func partTokenName(token string) string {
	name, _, _ := strings.Cut(token, tokenFieldSep)
	return name
}

type CharacterSnapshot struct {
	ID        int       `json:"id" msgpack:"id"`
	OwnerID   int       `json:"owner_actor_id" msgpack:"owner_actor_id"`
	IsBot     bool      `json:"is_bot" msgpack:"is_bot"`
	Alive     bool      `json:"alive" msgpack:"alive"`
	Health    int       `json:"health" msgpack:"health"`
	MaxHealth int       `json:"max_health" msgpack:"max_health"`
	Position  Transform `json:"position" msgpack:"position"`
	Damage    string    `json:"damage" msgpack:"damage"`
}

// RoundSnapshot 是权威实例周期性推送的完整状态，身份不在其中（单独单播）
type RoundSnapshot struct {
	Tick               uint64              `json:"tick" msgpack:"tick"`
	State              string              `json:"state" msgpack:"state"`
	Round              int                 `json:"round" msgpack:"round"`
	PreRoundRemaining  float64             `json:"pre_round_remaining" msgpack:"pre_round_remaining"`
	PostRoundRemaining float64             `json:"post_round_remaining" msgpack:"post_round_remaining"`
	ReadyPlayers       int                 `json:"ready_players" msgpack:"ready_players"`
	Players            int                 `json:"players" msgpack:"players"`
	Characters         []CharacterSnapshot `json:"characters" msgpack:"characters"`
}
