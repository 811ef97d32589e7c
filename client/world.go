package client

import "sync"

// World 共享世界状态的本地镜像：玩家表 + 精灵集表。
// 只做被动存取，不产生网络或渲染副作用；写入方仅有会话（单写多读）。
type World struct {
	mu      sync.RWMutex
	players map[string]Player
	avatars map[string]*Avatar
}

// NewWorld 创建空的世界镜像
func NewWorld() *World {
	return &World{
		players: make(map[string]Player),
		avatars: make(map[string]*Avatar),
	}
}

// Reset 用入场快照整体替换两张表（非合并）
func (w *World) Reset(players map[string]Player, avatars map[string]*Avatar) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.players = make(map[string]Player, len(players))
	for id, p := range players {
		w.players[id] = p
	}
	w.avatars = make(map[string]*Avatar, len(avatars))
	for name, a := range avatars {
		w.avatars[name] = a
	}
}

// UpsertPlayer 插入或整体覆盖一名玩家（后写覆盖）
func (w *World) UpsertPlayer(p Player) {
	w.mu.Lock()
	w.players[p.ID] = p
	w.mu.Unlock()
}

// RemovePlayer 移除玩家；不存在时静默返回
func (w *World) RemovePlayer(id string) {
	w.mu.Lock()
	delete(w.players, id)
	w.mu.Unlock()
}

// MergePlayers 应用增量：提到的键整条替换，未提到的保持原样。
// 增量里缺席不代表删除，删除只经 player_left。
func (w *World) MergePlayers(delta map[string]Player) {
	if len(delta) == 0 {
		return
	}
	w.mu.Lock()
	for id, p := range delta {
		w.players[id] = p
	}
	w.mu.Unlock()
}

// UpsertAvatar 引入精灵集；定义一经出现即不可变，重复引入保留首版
func (w *World) UpsertAvatar(a *Avatar) {
	if a == nil || a.Name == "" {
		return
	}
	w.mu.Lock()
	if _, ok := w.avatars[a.Name]; !ok {
		w.avatars[a.Name] = a
	}
	w.mu.Unlock()
}

// Get 按 id 查询玩家
func (w *World) Get(id string) (Player, bool) {
	w.mu.RLock()
	p, ok := w.players[id]
	w.mu.RUnlock()
	return p, ok
}

// Avatar 按名字查询精灵集
func (w *World) Avatar(name string) (*Avatar, bool) {
	w.mu.RLock()
	a, ok := w.avatars[name]
	w.mu.RUnlock()
	return a, ok
}

// All 返回当前玩家快照副本；遍历顺序不做任何保证
func (w *World) All() []Player {
	w.mu.RLock()
	defer w.mu.RUnlock()
	out := make([]Player, 0, len(w.players))
	for _, p := range w.players {
		out = append(out, p)
	}
	return out
}

// PlayerCount 当前玩家数（诊断接口用）
func (w *World) PlayerCount() int {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return len(w.players)
}
