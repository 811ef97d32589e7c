package client

// Facing 玩家朝向（由服务端下发，客户端仅用于选取精灵帧）
type Facing string

const (
	FacingNorth Facing = "north"
	FacingSouth Facing = "south"
	FacingEast  Facing = "east"
	FacingWest  Facing = "west"
)

// MoveDirection 客户端上报的移动"意图"方向，服务端权威解释
type MoveDirection string

const (
	MoveUp    MoveDirection = "up"
	MoveDown  MoveDirection = "down"
	MoveLeft  MoveDirection = "left"
	MoveRight MoveDirection = "right"
)

// Player 本地镜像的玩家状态，整条记录随服务端增量整体替换
type Player struct {
	ID     string
	Name   string
	X      float64
	Y      float64
	Facing Facing
	Avatar string // Avatar 表的键
	Frame  int    // 动画帧下标，服务端未给时取 0
}

// Avatar 精灵集定义：朝向 -> 帧图片源（data URI 或 http URL）。
// 一经引入即不可变，west 不单独存帧，渲染时复用 east 并水平镜像。
type Avatar struct {
	Name   string
	Frames map[Facing][]string
}

// FrameCount 返回某朝向的帧数（未定义该朝向时为 0）
func (a *Avatar) FrameCount(f Facing) int {
	if a == nil {
		return 0
	}
	return len(a.Frames[f])
}
