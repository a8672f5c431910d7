package game

import (
	"errors"
	"fmt"
)

// 核心错误分类：全部在本地恢复（记录日志并放弃当前操作），不会终止对局
var (
	// 必需的依赖或资源没有注入，子系统应当自行停用
	ErrConfigurationMissing = errors.New("configuration missing")
	// 未知指令、未授权的发送者、损坏的快照令牌
	ErrProtocolViolation = errors.New("protocol violation")
	// 按 ID 查找实体失败
	ErrLookupMiss = errors.New("lookup miss")
	// 注册表中已存在相同稳定 ID 的实体
	ErrDuplicateEntity = errors.New("duplicate entity")

	ErrUnauthorized   = fmt.Errorf("%w: unauthorized sender", ErrProtocolViolation)
	ErrUnknownCommand = fmt.Errorf("%w: unknown command", ErrProtocolViolation)
)
