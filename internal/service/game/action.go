package game

type JoinGameRequest struct {
	JoinerName string               `json:"joiner_name"`
	ActorID    int                  `json:"-"`
	RespCh     chan ResponseWrapper `json:"-"`
}

type JoinGameResponse struct {
	MatchID     string `json:"match_id"`
	State       string `json:"state"`
	Joiner      Player `json:"joiner"`
	Reconnected bool   `json:"reconnected"`
}

type SetReadyRequest struct {
	Ready bool `json:"ready"`
}

// HitRequest 由开枪者所在的客户端上报命中
type HitRequest struct {
	TargetCharacterID int    `json:"target_character_id"`
	BodyPart          string `json:"body_part"`
	Amount            int    `json:"amount"`
}

type HealRequest struct {
	Amount int `json:"amount"`
}

// CommandRequest 是控制台指令，例如 "SPAWN medkit"、"KILL"、"ROUNDRESTART"、"BOT 2"
type CommandRequest struct {
	Line string `json:"line"`
	// 进程内调用者（例如 HTTP 控制台）通过它拿到执行结果，需要带缓冲
	ReplyCh chan error `json:"-"`
}

type CommandResultResponse struct {
	Command string `json:"command"`
	Message string `json:"message"`
}

type ExitGameRequest struct {
	RespCh chan ResponseWrapper `json:"-"`
}

type ExitGameResponse struct {
	LeftStableID int    `json:"left_stable_id"`
	LeftName     string `json:"left_name"`
}

type AlertResponse struct {
	Message string `json:"message"`
}

type CueResponse struct {
	Cue string `json:"cue"`
}
