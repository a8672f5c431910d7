package game

import (
	"fmt"

	"go.uber.org/zap"
)

// Entity 是可以放入注册表的对象：稳定 ID、会话内的网络 actor 编号，以及底层对象是否已失效
type Entity interface {
	EntityID() int
	ActorNumber() int
	Stale() bool
}

// Registry 按加入顺序保存实体，查找均为线性扫描
type Registry[T Entity] struct {
	kind  string
	items []T
	log   *zap.Logger
}

type PlayerRegistry = Registry[*Player]
type CharacterRegistry = Registry[*Character]

func NewRegistry[T Entity](kind string, log *zap.Logger) *Registry[T] {
	if log == nil {
		log = zap.L()
	}

	return &Registry[T]{
		kind: kind,
		log:  log,
	}
}

func (r *Registry[T]) Add(e T) error {
	if _, ok := r.FindByID(e.EntityID()); ok {
		r.log.Warn(
			"实体已存在，忽略重复注册",
			zap.String("kind", r.kind),
			zap.Int("id", e.EntityID()),
		)
		return fmt.Errorf("%w: %s %d", ErrDuplicateEntity, r.kind, e.EntityID())
	}

	r.items = append(r.items, e)

	return nil
}

// RemoveStale 移除底层对象已不存在的实体（断线、被销毁），返回被移除的实体
func (r *Registry[T]) RemoveStale() []T {
	var removed []T

	kept := r.items[:0]
	for _, e := range r.items {
		if e.Stale() {
			removed = append(removed, e)
			continue
		}
		kept = append(kept, e)
	}

	// 清掉尾部残留的引用
	var zero T
	for i := len(kept); i < len(r.items); i++ {
		r.items[i] = zero
	}
	r.items = kept

	for _, e := range removed {
		r.log.Debug(
			"移除失效实体",
			zap.String("kind", r.kind),
			zap.Int("id", e.EntityID()),
		)
	}

	return removed
}

func (r *Registry[T]) FindByID(id int) (T, bool) {
	for _, e := range r.items {
		if e.EntityID() == id {
			return e, true
		}
	}

	var zero T
	return zero, false
}

func (r *Registry[T]) FindByActorNumber(actorID int) (T, bool) {
	for _, e := range r.items {
		if e.ActorNumber() == actorID {
			return e, true
		}
	}

	var zero T
	return zero, false
}

// All 返回按加入顺序排列的副本
func (r *Registry[T]) All() []T {
	out := make([]T, len(r.items))
	copy(out, r.items)

	return out
}

func (r *Registry[T]) Len() int {
	return len(r.items)
}
