package http

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"traitor-be/internal/catalog"
	"traitor-be/internal/config"
	"traitor-be/internal/service"
	"traitor-be/internal/service/dto"
	"traitor-be/internal/service/game"
	"traitor-be/internal/state"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
	"go.uber.org/zap"
)

const testToken = "letmein"

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	cfg := &config.AppConfig{
		TickHz:               100,
		SnapshotHz:           10,
		MinPlayers:           2,
		PreRoundTime:         15,
		PostRoundTime:        10,
		RestartPostRoundTime: 3,
		MaxHealth:            100,
		DecayInterval:        1,
		BodyParts:            []string{"head", "torso"},
		AdminToken:           testToken,
		Seed:                 1,
	}

	c, err := catalog.Parse([]byte("items:\n  - key: medkit\nspawn_points:\n  - {x: 0}\n"))
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}

	matchSvc, err := service.NewMatchService(cfg, service.NewScene(c, zap.NewNop()), nil)
	if err != nil {
		t.Fatalf("match service: %v", err)
	}
	matchSvc.Start()
	t.Cleanup(matchSvc.Close)

	app := NewApp(state.NewAppState(cfg, matchSvc))
	if err := app.Build(); err != nil {
		t.Fatalf("build app: %v", err)
	}

	srv := httptest.NewServer(app)
	t.Cleanup(srv.Close)

	return srv
}

func postCommand(t *testing.T, srv *httptest.Server, token, line string) (*http.Response, dto.CommandResponse) {
	t.Helper()

	body, _ := json.Marshal(dto.CommandRequest{Line: line})

	req, err := http.NewRequest(http.MethodPost, srv.URL+"/api/v1/match/command", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("X-Admin-Token", token)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("post command: %v", err)
	}
	defer resp.Body.Close()

	var out dto.CommandResponse
	json.NewDecoder(resp.Body).Decode(&out)

	return resp, out
}

func TestCommandEndpoint(t *testing.T) {
	srv := newTestServer(t)

	if resp, _ := postCommand(t, srv, "", "BOT"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("missing token status = %d", resp.StatusCode)
	}
	if resp, _ := postCommand(t, srv, "wrong", "BOT"); resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("wrong token status = %d", resp.StatusCode)
	}

	resp, out := postCommand(t, srv, testToken, "bot 2")
	if resp.StatusCode != http.StatusOK || !out.OK || out.Command != game.CMD_BOT {
		t.Fatalf("bot: status=%d body=%+v", resp.StatusCode, out)
	}

	resp, out = postCommand(t, srv, testToken, "SPAWN anvil")
	if resp.StatusCode != http.StatusBadRequest || out.OK {
		t.Fatalf("spawn anvil: status=%d body=%+v", resp.StatusCode, out)
	}

	if resp, _ := postCommand(t, srv, testToken, "   "); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("blank command status = %d", resp.StatusCode)
	}
}

func TestStateAndHistoryEndpoints(t *testing.T) {
	srv := newTestServer(t)

	resp, err := http.Get(srv.URL + "/api/v1/match/state")
	if err != nil {
		t.Fatalf("get state: %v", err)
	}
	defer resp.Body.Close()

	var st dto.MatchStateResponse
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		t.Fatalf("decode state: %v", err)
	}
	if st.MatchID == "" || st.Snapshot.State != game.STATE_PRE_ROUND {
		t.Fatalf("state = %+v", st)
	}

	hist, err := http.Get(srv.URL + "/api/v1/match/history?limit=5")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	defer hist.Body.Close()

	var h dto.HistoryResponse
	if err := json.NewDecoder(hist.Body).Decode(&h); err != nil {
		t.Fatalf("decode history: %v", err)
	}
	if hist.StatusCode != http.StatusOK || h.Rounds == nil || len(h.Rounds) != 0 {
		t.Fatalf("history status=%d body=%+v", hist.StatusCode, h)
	}

	bad, err := http.Get(srv.URL + "/api/v1/match/history?limit=0")
	if err != nil {
		t.Fatalf("get history: %v", err)
	}
	bad.Body.Close()
	if bad.StatusCode != http.StatusBadRequest {
		t.Fatalf("limit=0 status = %d", bad.StatusCode)
	}
}

func dialWS(t *testing.T, srv *httptest.Server, query string) *websocket.Conn {
	t.Helper()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws/join" + query

	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))

	return conn
}

func sendJSON(t *testing.T, conn *websocket.Conn, reqType string, data any) {
	t.Helper()

	raw, _ := json.Marshal(data)
	if err := conn.WriteJSON(game.RequestWrapper{ReqType: reqType, Data: raw}); err != nil {
		t.Fatalf("write: %v", err)
	}
}

type jsonFrame struct {
	RespType string          `json:"response_type"`
	Data     json.RawMessage `json:"data"`
	ErrMsg   string          `json:"error_message"`
}

func readUntil(t *testing.T, conn *websocket.Conn, respType string) jsonFrame {
	t.Helper()

	for {
		var f jsonFrame
		if err := conn.ReadJSON(&f); err != nil {
			t.Fatalf("read waiting for %s: %v", respType, err)
		}
		if f.RespType == respType {
			return f
		}
	}
}

func TestWebSocketJoinAndCommand(t *testing.T) {
	srv := newTestServer(t)

	alice := dialWS(t, srv, "")
	sendJSON(t, alice, game.REQ_JOIN_GAME, game.JoinGameRequest{JoinerName: "alice"})

	var join game.JoinGameResponse
	if err := json.Unmarshal(readUntil(t, alice, game.RESP_JOIN_GAME).Data, &join); err != nil {
		t.Fatalf("decode join: %v", err)
	}
	if join.Joiner.Name != "alice" || !join.Joiner.Admin || join.Joiner.ActorID == game.HOST_ACTOR_ID {
		t.Fatalf("join = %+v", join)
	}

	// 管理员可以执行 BOT
	sendJSON(t, alice, game.REQ_COMMAND, game.CommandRequest{Line: "BOT"})

	var result game.CommandResultResponse
	if err := json.Unmarshal(readUntil(t, alice, game.RESP_COMMAND_RESULT).Data, &result); err != nil {
		t.Fatalf("decode result: %v", err)
	}
	if result.Command != game.CMD_BOT {
		t.Fatalf("result = %+v", result)
	}

	// 无效请求得到错误响应，连接保持
	if err := alice.WriteMessage(websocket.TextMessage, []byte("{not json")); err != nil {
		t.Fatalf("write: %v", err)
	}
	if f := readUntil(t, alice, game.RESP_ERROR); f.ErrMsg == "" {
		t.Fatal("error frame without message")
	}

	// 第二个玩家不是管理员，ROUNDRESTART 被拒绝
	bob := dialWS(t, srv, "")
	sendJSON(t, bob, game.REQ_JOIN_GAME, game.JoinGameRequest{JoinerName: "bob"})
	readUntil(t, bob, game.RESP_JOIN_GAME)

	sendJSON(t, bob, game.REQ_COMMAND, game.CommandRequest{Line: "ROUNDRESTART"})
	if f := readUntil(t, bob, game.RESP_ERROR); f.ErrMsg == "" {
		t.Fatal("unauthorized command without message")
	}
}

func TestWebSocketFirstMessageMustJoin(t *testing.T) {
	srv := newTestServer(t)

	conn := dialWS(t, srv, "")
	sendJSON(t, conn, game.REQ_SET_READY, game.SetReadyRequest{Ready: true})

	if f := readUntil(t, conn, game.RESP_ERROR); f.ErrMsg == "" {
		t.Fatal("expected error frame")
	}
}

func TestWebSocketMsgpackCodec(t *testing.T) {
	srv := newTestServer(t)

	conn := dialWS(t, srv, "?codec=msgpack")
	sendJSON(t, conn, game.REQ_JOIN_GAME, game.JoinGameRequest{JoinerName: "carol"})

	msgType, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if msgType != websocket.BinaryMessage {
		t.Fatalf("message type = %d, want binary", msgType)
	}

	var frame map[string]any
	if err := msgpack.Unmarshal(data, &frame); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if frame["response_type"] != game.RESP_JOIN_GAME {
		t.Fatalf("frame = %#v", frame)
	}

	resp, err := http.Get(srv.URL + "/api/v1/ws/join?codec=xml")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("unknown codec status = %d", resp.StatusCode)
	}
}
