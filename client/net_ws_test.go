package client

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

func TestEnqueueDropsWhenQueueFull(t *testing.T) {
	c := &ServerConn{send: make(chan []byte, 2)}
	if !c.Enqueue([]byte("a")) || !c.Enqueue([]byte("b")) {
		t.Fatalf("expected first two enqueues to succeed")
	}
	if c.Enqueue([]byte("c")) {
		t.Fatalf("expected drop when queue full")
	}
	if got := len(c.send); got != 2 {
		t.Fatalf("expected 2 queued, got %d", got)
	}
}

func TestServerConnCloseIsIdempotent(t *testing.T) {
	c := &ServerConn{send: make(chan []byte, 1)}
	c.Close()
	c.Close()
}

// pumpUntil 反复排空事件队列直到条件满足或超时
func pumpUntil(t *testing.T, s *Session, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		s.Pump()
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s (state=%s)", what, s.State())
}

func TestSessionJoinsOverRealWebSocket(t *testing.T) {
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ws, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer ws.Close()

		// 等客户端的入场请求
		_, payload, err := ws.ReadMessage()
		if err != nil {
			return
		}
		var join struct {
			Action   string `json:"action"`
			Username string `json:"username"`
		}
		if json.Unmarshal(payload, &join) != nil || join.Action != "join_game" {
			return
		}

		ack := `{"action":"join_game","success":true,"playerId":"p1",
			"players":{"p1":{"id":"p1","username":"` + join.Username + `","x":100,"y":100,"facing":"south","avatar":"a"}},
			"avatars":{"a":{"name":"a","frames":{"south":["img0"]}}}}`
		if ws.WriteMessage(websocket.TextMessage, []byte(ack)) != nil {
			return
		}

		// 增量等客户端的移动意图再发，快照内容才有观察窗口
		for {
			_, payload, err := ws.ReadMessage()
			if err != nil {
				return
			}
			var intent struct {
				Action string `json:"action"`
			}
			if json.Unmarshal(payload, &intent) == nil && intent.Action == "move" {
				break
			}
		}
		moved := `{"action":"players_moved","players":{"p1":{"id":"p1","x":300,"y":400,"facing":"east","avatar":"a"}}}`
		if ws.WriteMessage(websocket.TextMessage, []byte(moved)) != nil {
			return
		}

		// 保持连接直到客户端退出
		for {
			if _, _, err := ws.ReadMessage(); err != nil {
				return
			}
		}
	}))
	defer srv.Close()

	cfg := &Config{
		Server:   ServerConfig{URL: "ws" + strings.TrimPrefix(srv.URL, "http"), HandshakeTimeoutMs: 2000},
		Backoff:  ReconnectRules{BaseDelayMs: 10, MaxAttempts: 5},
		Username: "it-tester",
	}
	metrics := NewClientMetrics()
	world := NewWorld()
	viewport := NewViewport(400, 300, 2048, 2048)
	s := NewSession(cfg, world, viewport, NewSpriteCache(metrics), metrics)
	defer s.Close()

	s.Connect()
	pumpUntil(t, s, "synchronized", func() bool { return s.State() == StateSynchronized })

	if id := s.LocalID(); id != "p1" {
		t.Fatalf("expected local id p1, got %q", id)
	}
	p, ok := world.Get("p1")
	if !ok || p.Name != "it-tester" {
		t.Fatalf("expected joined player from snapshot, got %+v ok=%v", p, ok)
	}

	// 上报一次移动，服务器收到后才广播增量
	s.Move(MoveRight)
	pumpUntil(t, s, "moved delta applied", func() bool {
		p, ok := world.Get("p1")
		return ok && p.X == 300 && p.Y == 400
	})
	// 增量按 ID 整条替换：没带 username 的记录把旧名字一并换掉
	if p, _ := world.Get("p1"); p.Name != "" {
		t.Fatalf("expected wholesale replace to drop username, got %q", p.Name)
	}
	// 本地玩家出现在增量里，镜头应已同步重定位
	camX, camY := viewport.Camera()
	if camX != 300-200 || camY != 400-150 {
		t.Fatalf("expected camera (100,250), got (%v,%v)", camX, camY)
	}

	// 服务器关闭：转入重连等待
	srv.CloseClientConnections()
	pumpUntil(t, s, "reconnect scheduled", func() bool { return s.State() == StateReconnectPending || s.State() == StateConnecting })
	if got := s.Attempt(); got < 1 {
		t.Fatalf("expected at least one reconnect attempt, got %d", got)
	}
}
