package websocket

import (
	"bytes"

	"traitor-be/internal/service/game"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

const (
	CODEC_JSON    = "json"
	CODEC_MSGPACK = "msgpack"
)

// frameWriter 把响应编码为一帧，JSON 用文本帧，msgpack 用二进制帧
type frameWriter func(conn *websocket.Conn, resp game.ResponseWrapper) error

func newFrameWriter(codec string) frameWriter {
	if codec == CODEC_MSGPACK {
		return writeMsgpack
	}

	return writeJSON
}

func writeJSON(conn *websocket.Conn, resp game.ResponseWrapper) error {
	return conn.WriteJSON(resp)
}

func writeMsgpack(conn *websocket.Conn, resp game.ResponseWrapper) error {
	data, err := encodeMsgpack(resp)
	if err != nil {
		return err
	}

	return conn.WriteMessage(websocket.BinaryMessage, data)
}

// 没有 msgpack 标签的字段沿用 json 标签，json:"-" 的字段（例如响应通道）不会被编码
func encodeMsgpack(resp game.ResponseWrapper) ([]byte, error) {
	var buf bytes.Buffer

	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")

	if err := enc.Encode(resp); err != nil {
		return nil, err
	}

	return buf.Bytes(), nil
}
