package client

import (
	"sync/atomic"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/hako/durafmt"
)

// ClientMetrics 记录客户端运行期的关键指标（用于监控与调试）
type ClientMetrics struct {
	startedAt time.Time

	MessagesReceived int64 // 收到并成功解码的消息数
	BytesReceived    int64 // 收到的原始字节数
	DecodeErrors     int64 // 解码失败的消息数
	UnknownActions   int64 // 未知 action 被忽略的消息数
	IntentsSent      int64 // 已发出的输入意图数
	IntentsDropped   int64 // 连接未就绪被丢弃的意图数
	Reconnects       int64 // 发起过的重连次数
	SpritesDecoded   int64 // 解码成功的贴图帧数
	SpriteFailures   int64 // 解码失败（永久负缓存）的贴图帧数
	FramesDrawn      int64 // 已渲染的帧数
	SpritesCulled    int64 // 因视口外被剔除的精灵绘制数
}

// NewClientMetrics 创建指标并记录启动时刻
func NewClientMetrics() *ClientMetrics {
	return &ClientMetrics{startedAt: time.Now()}
}

func (m *ClientMetrics) IncMessage(bytes int) {
	atomic.AddInt64(&m.MessagesReceived, 1)
	atomic.AddInt64(&m.BytesReceived, int64(bytes))
}
func (m *ClientMetrics) IncDecodeError()   { atomic.AddInt64(&m.DecodeErrors, 1) }
func (m *ClientMetrics) IncUnknownAction() { atomic.AddInt64(&m.UnknownActions, 1) }
func (m *ClientMetrics) IncIntentSent()    { atomic.AddInt64(&m.IntentsSent, 1) }
func (m *ClientMetrics) IncIntentDropped() { atomic.AddInt64(&m.IntentsDropped, 1) }
func (m *ClientMetrics) IncReconnect()     { atomic.AddInt64(&m.Reconnects, 1) }
func (m *ClientMetrics) IncSpriteDecoded() { atomic.AddInt64(&m.SpritesDecoded, 1) }
func (m *ClientMetrics) IncSpriteFailure() { atomic.AddInt64(&m.SpriteFailures, 1) }
func (m *ClientMetrics) IncFrameDrawn()    { atomic.AddInt64(&m.FramesDrawn, 1) }
func (m *ClientMetrics) AddSpritesCulled(n int64) {
	atomic.AddInt64(&m.SpritesCulled, n)
}

// Uptime 自客户端启动以来的运行时长
func (m *ClientMetrics) Uptime() time.Duration {
	return time.Since(m.startedAt)
}

// Snapshot 返回只读副本，便于 HTTP 输出
func (m *ClientMetrics) Snapshot() map[string]any {
	return map[string]any{
		"uptime_seconds":    int64(m.Uptime().Seconds()),
		"messages_received": atomic.LoadInt64(&m.MessagesReceived),
		"bytes_received":    atomic.LoadInt64(&m.BytesReceived),
		"decode_errors":     atomic.LoadInt64(&m.DecodeErrors),
		"unknown_actions":   atomic.LoadInt64(&m.UnknownActions),
		"intents_sent":      atomic.LoadInt64(&m.IntentsSent),
		"intents_dropped":   atomic.LoadInt64(&m.IntentsDropped),
		"reconnects":        atomic.LoadInt64(&m.Reconnects),
		"sprites_decoded":   atomic.LoadInt64(&m.SpritesDecoded),
		"sprite_failures":   atomic.LoadInt64(&m.SpriteFailures),
		"frames_drawn":      atomic.LoadInt64(&m.FramesDrawn),
		"sprites_culled":    atomic.LoadInt64(&m.SpritesCulled),
	}
}

// LogSummary 周期性输出一行运行摘要
func (m *ClientMetrics) LogSummary(players int) {
	up := durafmt.Parse(m.Uptime().Round(time.Second)).LimitFirstN(2)
	Log.Infof("stats: uptime=%s players=%d msgs=%s rx=%s intents=%d reconnects=%d frames=%d",
		up,
		players,
		humanize.Comma(atomic.LoadInt64(&m.MessagesReceived)),
		humanize.Bytes(uint64(atomic.LoadInt64(&m.BytesReceived))),
		atomic.LoadInt64(&m.IntentsSent),
		atomic.LoadInt64(&m.Reconnects),
		atomic.LoadInt64(&m.FramesDrawn))
}
