package game

// 玩家身份
type RoleID int

const (
	ROLE_SPECTATOR RoleID = 0
	ROLE_INNOCENT  RoleID = 1
	ROLE_TRAITOR   RoleID = 2
)

type RGB struct {
	R uint8 `json:"r" msgpack:"r"`
	G uint8 `json:"g" msgpack:"g"`
	B uint8 `json:"b" msgpack:"b"`
}

type Role struct {
	ID    RoleID `json:"id" msgpack:"id"`
	Name  string `json:"name" msgpack:"name"`
	Color RGB    `json:"color" msgpack:"color"`
}

var roleTable = [...]Role{
	ROLE_SPECTATOR: {ID: ROLE_SPECTATOR, Name: "Spectator", Color: RGB{R: 160, G: 160, B: 160}},
	ROLE_INNOCENT:  {ID: ROLE_INNOCENT, Name: "Innocent", Color: RGB{R: 60, G: 200, B: 90}},
	ROLE_TRAITOR:   {ID: ROLE_TRAITOR, Name: "Traitor", Color: RGB{R: 220, G: 40, B: 40}},
}

// LookupRole 返回身份的展示信息，未知 ID 退化为观察者
func LookupRole(id RoleID) Role {
	if id < 0 || int(id) >= len(roleTable) {
		return roleTable[ROLE_SPECTATOR]
	}

	return roleTable[id]
}

func (id RoleID) String() string {
	return LookupRole(id).Name
}

// 回合阶段
const (
	STATE_PRE_ROUND  = "PreRound"
	STATE_ACTIVE     = "Active"
	STATE_POST_ROUND = "PostRound"
)

type Player struct {
	ActorID     int    `json:"actor_id"`
	StableID    int    `json:"stable_id"`
	Name        string `json:"name"`
	CharacterID *int   `json:"character_id,omitempty"`
	Ready       bool   `json:"ready"`
	// 第一个加入的玩家，可以执行服务器指令
	Admin bool `json:"admin"`

	Disconnected bool `json:"-"`

	RespCh chan ResponseWrapper `json:"-"`
}

func (p *Player) EntityID() int    { return p.StableID }
func (p *Player) ActorNumber() int { return p.ActorID }
func (p *Player) Stale() bool      { return p.Disconnected }

// Transform 是出生点提供的位置和朝向
type Transform struct {
	X   float64 `json:"x" msgpack:"x"`
	Y   float64 `json:"y" msgpack:"y"`
	Z   float64 `json:"z" msgpack:"z"`
	Yaw float64 `json:"yaw" msgpack:"yaw"`
}
