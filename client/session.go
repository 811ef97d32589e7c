package client

import (
	"sync"
	"sync/atomic"
	"time"
)

// ConnState 连接状态机的状态
type ConnState int32

const (
	StateDisconnected     ConnState = iota // 未连接（初始或终态）
	StateConnecting                        // 正在拨号
	StateAwaitingJoin                      // 已连上，等待 join_game 应答
	StateSynchronized                      // 已同步，正常收发
	StateReconnectPending                  // 等待重连定时器
)

func (s ConnState) String() string {
	switch s {
	case StateDisconnected:
		return "disconnected"
	case StateConnecting:
		return "connecting"
	case StateAwaitingJoin:
		return "awaiting_join"
	case StateSynchronized:
		return "synchronized"
	case StateReconnectPending:
		return "reconnect_pending"
	default:
		return "unknown"
	}
}

// connEventKind 会话事件类型
type connEventKind int

const (
	evOpened     connEventKind = iota // 拨号成功
	evDialFailed                      // 拨号失败
	evFrame                           // 收到一帧服务器消息
	evClosed                          // 连接断开
	evRetry                           // 重连定时器到期
)

// connEvent 投递给会话的单个事件。网络协程与定时器只生产事件，
// 状态与实体表只在消费协程（游戏 Update）里改动，天然免锁。
type connEvent struct {
	kind    connEventKind
	conn    *ServerConn // 产生事件的连接，用于过滤旧连接残留
	payload []byte
	err     error
	attempt int
}

// Session 连接会话：持有状态机、实体表与镜头的写入权
type Session struct {
	cfg      *Config
	world    *World
	viewport *Viewport
	sprites  *SpriteCache
	metrics  *ClientMetrics

	events chan connEvent
	done   chan struct{}
	once   sync.Once

	state   int32 // ConnState，渲染与调试接口并发读取
	attempt int32 // 已失败的连接周期数，成功打开后清零

	mu      sync.Mutex
	localID string

	conn *ServerConn // 仅消费协程访问
}

// NewSession 组装会话，依赖全部显式注入
func NewSession(cfg *Config, world *World, viewport *Viewport, sprites *SpriteCache, metrics *ClientMetrics) *Session {
	return &Session{
		cfg:      cfg,
		world:    world,
		viewport: viewport,
		sprites:  sprites,
		metrics:  metrics,
		events:   make(chan connEvent, 256),
		done:     make(chan struct{}),
	}
}

// State 当前状态（并发安全）
func (s *Session) State() ConnState {
	return ConnState(atomic.LoadInt32(&s.state))
}

func (s *Session) setState(st ConnState) {
	atomic.StoreInt32(&s.state, int32(st))
}

// Attempt 当前重连尝试序号（并发安全）
func (s *Session) Attempt() int {
	return int(atomic.LoadInt32(&s.attempt))
}

// LocalID 服务器分配的本地玩家 ID，未入场时为空串
func (s *Session) LocalID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.localID
}

func (s *Session) setLocalID(id string) {
	s.mu.Lock()
	s.localID = id
	s.mu.Unlock()
}

// Connect 发起首次连接，仅在未连接状态下有效
func (s *Session) Connect() {
	if s.State() != StateDisconnected {
		Log.Warnf("connect ignored in state %s", s.State())
		return
	}
	s.setState(StateConnecting)
	Log.Infof("connecting to %s", s.cfg.Server.URL)
	go s.dial()
}

// dial 拨号协程，结果一律走事件队列回到消费协程
func (s *Session) dial() {
	conn, err := DialServer(s.cfg.Server.URL, s.cfg.Server.HandshakeTimeout())
	ev := connEvent{kind: evOpened, conn: conn}
	if err != nil {
		ev = connEvent{kind: evDialFailed, err: err}
	}
	select {
	case s.events <- ev:
	case <-s.done:
		if conn != nil {
			conn.Close()
		}
	}
}

// Pump 排空事件队列，必须且只能在游戏 Update 协程调用
func (s *Session) Pump() {
	for {
		select {
		case ev := <-s.events:
			s.handle(ev)
		default:
			return
		}
	}
}

// handle 处理单个事件，所有状态迁移集中在这里
func (s *Session) handle(ev connEvent) {
	switch ev.kind {
	case evOpened:
		if s.State() != StateConnecting {
			// 拨号期间会话已关闭或转入终态，丢弃这条连接
			ev.conn.Close()
			return
		}
		s.conn = ev.conn
		atomic.StoreInt32(&s.attempt, 0)
		go s.conn.writePump()
		go s.conn.readPump(s.events, s.done)
		s.sendJoin()

	case evDialFailed:
		if s.State() != StateConnecting {
			return
		}
		s.scheduleReconnect(ev.err)

	case evFrame:
		if ev.conn != s.conn {
			return
		}
		if s.metrics != nil {
			s.metrics.IncMessage(len(ev.payload))
		}
		s.handleFrame(ev.payload)

	case evClosed:
		if ev.conn != s.conn {
			return
		}
		ev.conn.Close()
		s.conn = nil
		switch s.State() {
		case StateAwaitingJoin, StateSynchronized:
			s.scheduleReconnect(ev.err)
		default:
			// 终态下的断开不再处理
		}

	case evRetry:
		if s.State() != StateReconnectPending {
			// 定时器到期前状态已变（例如已同步），忽略
			return
		}
		Log.Infof("reconnect attempt %d/%d", ev.attempt, s.cfg.Backoff.MaxAttempts)
		s.setState(StateConnecting)
		go s.dial()
	}
}

// sendJoin 连接建立后立刻请求入场
func (s *Session) sendJoin() {
	msg, err := EncodeJoin(s.cfg.Username)
	if err != nil {
		Log.Errorf("encode join: %v", err)
		return
	}
	s.conn.Enqueue(msg)
	s.setState(StateAwaitingJoin)
	Log.Infof("transport open, joining as %q", s.cfg.Username)
}

// handleFrame 解码并应用一帧服务器消息
func (s *Session) handleFrame(payload []byte) {
	msg, err := DecodeInbound(payload)
	if err != nil {
		if s.metrics != nil {
			s.metrics.IncDecodeError()
		}
		Log.Warnf("drop malformed frame: %v", err)
		return
	}

	switch m := msg.(type) {
	case JoinAck:
		s.handleJoinAck(m)

	case PlayerJoined:
		s.world.UpsertPlayer(m.Player)
		if m.Avatar != nil {
			s.world.UpsertAvatar(m.Avatar)
			s.sprites.EnsureAvatar(m.Avatar)
		}
		Log.Infof("player joined: %s (%s)", m.Player.Name, m.Player.ID)

	case PlayersMoved:
		s.world.MergePlayers(m.Players)
		// 仅当本帧增量确实包含本地玩家时才重定位镜头
		if local, ok := m.Players[s.LocalID()]; ok {
			s.viewport.RecenterOn(local.X, local.Y)
		}

	case PlayerLeft:
		s.world.RemovePlayer(m.PlayerID)
		Log.Infof("player left: %s", m.PlayerID)

	case UnknownMessage:
		if s.metrics != nil {
			s.metrics.IncUnknownAction()
		}
		Log.Debugf("ignore unknown action %q", m.Action)
	}
}

// handleJoinAck 入场应答：成功则整表替换并进入同步态；
// 拒绝属于应用层否决，不走重连，直接进入终态。
func (s *Session) handleJoinAck(m JoinAck) {
	if s.State() != StateAwaitingJoin {
		Log.Warnf("ignore join ack in state %s", s.State())
		return
	}
	if !m.Success {
		Log.Errorf("join rejected: %s", m.Error)
		s.conn.Close()
		s.conn = nil
		s.setState(StateDisconnected)
		return
	}

	s.setLocalID(m.PlayerID)
	s.world.Reset(m.Players, m.Avatars)
	for _, a := range m.Avatars {
		s.sprites.EnsureAvatar(a)
	}
	if local, ok := m.Players[m.PlayerID]; ok {
		s.viewport.RecenterOn(local.X, local.Y)
	}
	s.setState(StateSynchronized)
	Log.Infof("joined as %s, %d players online", m.PlayerID, len(m.Players))
}

// reconnectDelay 线性退避：第 n 次重试等待 base*n
func reconnectDelay(base time.Duration, attempt int) time.Duration {
	return base * time.Duration(attempt)
}

// scheduleReconnect 失败后调度下一次重连；超过上限即放弃
func (s *Session) scheduleReconnect(reason error) {
	next := int(atomic.AddInt32(&s.attempt, 1))
	if next > s.cfg.Backoff.MaxAttempts {
		s.setState(StateDisconnected)
		Log.Errorf("giving up after %d attempts, last error: %v", s.cfg.Backoff.MaxAttempts, reason)
		return
	}
	s.setState(StateReconnectPending)
	if s.metrics != nil {
		s.metrics.IncReconnect()
	}
	delay := reconnectDelay(s.cfg.Backoff.BaseDelay(), next)
	Log.Warnf("connection lost (%v), retry %d/%d in %s", reason, next, s.cfg.Backoff.MaxAttempts, delay)
	time.AfterFunc(delay, func() {
		select {
		case s.events <- connEvent{kind: evRetry, attempt: next}:
		case <-s.done:
		}
	})
}

// Move 发送移动意图；通道未打开时静默丢弃，不做缓冲
func (s *Session) Move(dir MoveDirection) {
	if s.conn == nil {
		if s.metrics != nil {
			s.metrics.IncIntentDropped()
		}
		return
	}
	msg, err := EncodeMove(dir)
	if err != nil {
		Log.Errorf("encode move: %v", err)
		return
	}
	s.trackSend(s.conn.Enqueue(msg))
}

// Stop 发送停止意图；规则与 Move 相同
func (s *Session) Stop() {
	if s.conn == nil {
		if s.metrics != nil {
			s.metrics.IncIntentDropped()
		}
		return
	}
	msg, err := EncodeStop()
	if err != nil {
		Log.Errorf("encode stop: %v", err)
		return
	}
	s.trackSend(s.conn.Enqueue(msg))
}

func (s *Session) trackSend(ok bool) {
	if s.metrics == nil {
		return
	}
	if ok {
		s.metrics.IncIntentSent()
	} else {
		s.metrics.IncIntentDropped()
	}
}

// Close 结束会话，幂等
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			s.conn.Close()
			s.conn = nil
		}
		s.setState(StateDisconnected)
	})
}
