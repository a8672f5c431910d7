package game

// 回合事件类型
const (
	EVENT_PRE_ROUND    = "PreRound"
	EVENT_ROUND_START  = "RoundStart"
	EVENT_TRAITOR_WIN  = "TraitorWin"
	EVENT_INNOCENT_WIN = "InnocentWin"
	EVENT_DRAW         = "Draw"
	EVENT_RESTART      = "Restart"
)

type RoundEvent struct {
	Kind  string `json:"kind" msgpack:"kind"`
	State string `json:"state" msgpack:"state"`
	Round int    `json:"round" msgpack:"round"`
}

// 无法归因的击杀使用的来源 ID
const UnknownKiller = -1

type CharacterDied struct {
	VictimID int    `json:"victim_id" msgpack:"victim_id"`
	KillerID int    `json:"killer_id" msgpack:"killer_id"`
	Cause    string `json:"cause" msgpack:"cause"`
}

type LogLine struct {
	Source  string `json:"source" msgpack:"source"`
	Message string `json:"message" msgpack:"message"`
	IsError bool   `json:"is_error" msgpack:"is_error"`
}

// EventBroadcast 是权威实例向所有订阅者同步扇出的事件总线。
// 只在状态机所在的协程内使用，不加锁。
type EventBroadcast struct {
	nextID int

	roundSubs map[int]func(RoundEvent)
	deathSubs map[int]func(CharacterDied)
	logSubs   map[int]func(LogLine)

	// 保证按订阅顺序回调
	order []int
}

func NewEventBroadcast() *EventBroadcast {
	return &EventBroadcast{
		roundSubs: make(map[int]func(RoundEvent)),
		deathSubs: make(map[int]func(CharacterDied)),
		logSubs:   make(map[int]func(LogLine)),
	}
}

func (eb *EventBroadcast) subscribe() int {
	eb.nextID++
	eb.order = append(eb.order, eb.nextID)

	return eb.nextID
}

func (eb *EventBroadcast) unsubscribe(id int) {
	delete(eb.roundSubs, id)
	delete(eb.deathSubs, id)
	delete(eb.logSubs, id)

	for i, v := range eb.order {
		if v == id {
			eb.order = append(eb.order[:i], eb.order[i+1:]...)
			break
		}
	}
}

func (eb *EventBroadcast) SubscribeRound(fn func(RoundEvent)) (unsubscribe func()) {
	id := eb.subscribe()
	eb.roundSubs[id] = fn

	return func() { eb.unsubscribe(id) }
}

func (eb *EventBroadcast) SubscribeDeath(fn func(CharacterDied)) (unsubscribe func()) {
	id := eb.subscribe()
	eb.deathSubs[id] = fn

	return func() { eb.unsubscribe(id) }
}

func (eb *EventBroadcast) SubscribeLog(fn func(LogLine)) (unsubscribe func()) {
	id := eb.subscribe()
	eb.logSubs[id] = fn

	return func() { eb.unsubscribe(id) }
}

func (eb *EventBroadcast) PublishRound(ev RoundEvent) {
	for _, id := range eb.snapshotOrder() {
		if fn, ok := eb.roundSubs[id]; ok {
			fn(ev)
		}
	}
}

func (eb *EventBroadcast) PublishDeath(ev CharacterDied) {
	for _, id := range eb.snapshotOrder() {
		if fn, ok := eb.deathSubs[id]; ok {
			fn(ev)
		}
	}
}

func (eb *EventBroadcast) PublishLog(line LogLine) {
	for _, id := range eb.snapshotOrder() {
		if fn, ok := eb.logSubs[id]; ok {
			fn(line)
		}
	}
}

// 回调里可能取消订阅，遍历副本
func (eb *EventBroadcast) snapshotOrder() []int {
	out := make([]int, len(eb.order))
	copy(out, eb.order)

	return out
}
