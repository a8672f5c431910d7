package game

import (
	"github.com/google/uuid"
)

// NewMatchID 对局 ID 使用 UUIDv7，按创建时间有序，历史记录按此排序也不会乱
func NewMatchID() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("生成对局 ID 失败: " + err.Error())
	}

	return id.String()
}
