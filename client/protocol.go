package client

import (
	"encoding/json"
	"fmt"
)

// 协议动作常量（WebSocket 文本帧里的 action 判别字段）
const (
	// 客户端 -> 服务器
	ActionJoinGame = "join_game" // 入场请求
	ActionMove     = "move"      // 移动意图
	ActionStop     = "stop"      // 停止意图

	// 服务器 -> 客户端（join_game 同名复用为应答）
	ActionPlayerJoined = "player_joined" // 新玩家加入
	ActionPlayersMoved = "players_moved" // 玩家状态增量
	ActionPlayerLeft   = "player_left"   // 玩家离开
)

// wirePlayer 玩家记录的线缆形态；animationFrame 缺省时显式回退为 0
type wirePlayer struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Facing   string  `json:"facing"`
	Avatar   string  `json:"avatar"`
	Frame    *int    `json:"animationFrame,omitempty"`
}

// wireAvatar 精灵集定义的线缆形态
type wireAvatar struct {
	Name   string              `json:"name"`
	Frames map[string][]string `json:"frames"`
}

// toPlayer 把线缆记录转为本地实体；id 以内嵌字段优先，否则取映射键
func (w wirePlayer) toPlayer(key string) Player {
	id := w.ID
	if id == "" {
		id = key
	}
	frame := 0
	if w.Frame != nil {
		frame = *w.Frame
	}
	return Player{
		ID:     id,
		Name:   w.Username,
		X:      w.X,
		Y:      w.Y,
		Facing: Facing(w.Facing),
		Avatar: w.Avatar,
		Frame:  frame,
	}
}

// toAvatar 把线缆精灵集转为本地不可变定义
func (w wireAvatar) toAvatar(key string) *Avatar {
	name := w.Name
	if name == "" {
		name = key
	}
	frames := make(map[Facing][]string, len(w.Frames))
	for dir, srcs := range w.Frames {
		frames[Facing(dir)] = srcs
	}
	return &Avatar{Name: name, Frames: frames}
}

// Inbound 入站消息的标签联合：每个 action 一个变体，网络边界处完成校验
type Inbound interface{ isInbound() }

// JoinAck join_game 应答：成功时携带完整快照，失败时携带错误描述
type JoinAck struct {
	Success  bool
	PlayerID string
	Players  map[string]Player
	Avatars  map[string]*Avatar
	Error    string
}

// PlayerJoined 单个新玩家及其精灵集
type PlayerJoined struct {
	Player Player
	Avatar *Avatar
}

// PlayersMoved 部分玩家的整体替换增量；未提及的玩家不受影响
type PlayersMoved struct {
	Players map[string]Player
}

// PlayerLeft 玩家离开
type PlayerLeft struct {
	PlayerID string
}

// UnknownMessage 无法识别的 action，按前向兼容当作空操作
type UnknownMessage struct {
	Action string
}

func (JoinAck) isInbound()        {}
func (PlayerJoined) isInbound()   {}
func (PlayersMoved) isInbound()   {}
func (PlayerLeft) isInbound()     {}
func (UnknownMessage) isInbound() {}

// DecodeInbound 解析一条入站文本帧。JSON 损坏返回 error；
// action 未知不算错误，返回 UnknownMessage 由上层忽略。
func DecodeInbound(data []byte) (Inbound, error) {
	var head struct {
		Action string `json:"action"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decode action: %w", err)
	}

	switch head.Action {
	case ActionJoinGame:
		var m struct {
			Success  bool                  `json:"success"`
			PlayerID string                `json:"playerId"`
			Players  map[string]wirePlayer `json:"players"`
			Avatars  map[string]wireAvatar `json:"avatars"`
			Error    string                `json:"error"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode join_game: %w", err)
		}
		ack := JoinAck{
			Success:  m.Success,
			PlayerID: m.PlayerID,
			Players:  make(map[string]Player, len(m.Players)),
			Avatars:  make(map[string]*Avatar, len(m.Avatars)),
			Error:    m.Error,
		}
		for id, wp := range m.Players {
			p := wp.toPlayer(id)
			ack.Players[p.ID] = p
		}
		for name, wa := range m.Avatars {
			a := wa.toAvatar(name)
			ack.Avatars[a.Name] = a
		}
		return ack, nil

	case ActionPlayerJoined:
		var m struct {
			Player wirePlayer `json:"player"`
			Avatar wireAvatar `json:"avatar"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode player_joined: %w", err)
		}
		return PlayerJoined{
			Player: m.Player.toPlayer(m.Player.ID),
			Avatar: m.Avatar.toAvatar(m.Avatar.Name),
		}, nil

	case ActionPlayersMoved:
		var m struct {
			Players map[string]wirePlayer `json:"players"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode players_moved: %w", err)
		}
		moved := PlayersMoved{Players: make(map[string]Player, len(m.Players))}
		for id, wp := range m.Players {
			p := wp.toPlayer(id)
			moved.Players[p.ID] = p
		}
		return moved, nil

	case ActionPlayerLeft:
		var m struct {
			PlayerID string `json:"playerId"`
		}
		if err := json.Unmarshal(data, &m); err != nil {
			return nil, fmt.Errorf("decode player_left: %w", err)
		}
		return PlayerLeft{PlayerID: m.PlayerID}, nil

	default:
		return UnknownMessage{Action: head.Action}, nil
	}
}

// EncodeJoin 组装入场请求
func EncodeJoin(username string) ([]byte, error) {
	return json.Marshal(struct {
		Action   string `json:"action"`
		Username string `json:"username"`
	}{Action: ActionJoinGame, Username: username})
}

// EncodeMove 组装移动意图
func EncodeMove(dir MoveDirection) ([]byte, error) {
	return json.Marshal(struct {
		Action    string `json:"action"`
		Direction string `json:"direction"`
	}{Action: ActionMove, Direction: string(dir)})
}

// EncodeStop 组装停止意图
func EncodeStop() ([]byte, error) {
	return json.Marshal(struct {
		Action string `json:"action"`
	}{Action: ActionStop})
}
