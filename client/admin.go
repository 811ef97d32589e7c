package client

import (
	"encoding/json"
	"net/http"
	"sync/atomic"
)

// RuntimeOptions 运行期可热改的开关，渲染协程每帧读取
type RuntimeOptions struct {
	ShowLabels atomic.Bool // 是否绘制玩家名牌
	ShowStatus atomic.Bool // 是否绘制左上角状态行
	Debug      atomic.Bool // 是否输出 debug 日志
}

// NewRuntimeOptions 默认开启名牌与状态行
func NewRuntimeOptions(debug bool) *RuntimeOptions {
	o := &RuntimeOptions{}
	o.ShowLabels.Store(true)
	o.ShowStatus.Store(true)
	o.Debug.Store(debug)
	return o
}

// newDebugMux 组装调试接口的路由
// GET  /healthz  存活探针
// GET  /metrics  运行指标快照
// GET  /config   当前运行期开关
// POST /config   以 JSON 载荷更新部分开关
func newDebugMux(session *Session, world *World, viewport *Viewport, metrics *ClientMetrics, opts *RuntimeOptions) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("ok"))
	})

	mux.HandleFunc("/metrics", func(w http.ResponseWriter, r *http.Request) {
		worldW, worldH := viewport.WorldSize()
		payload := map[string]any{
			"state":    session.State().String(),
			"local_id": session.LocalID(),
			"players":  world.PlayerCount(),
			"world":    map[string]int{"w": worldW, "h": worldH},
			"metrics":  metrics.Snapshot(),
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(payload)
	})

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		type cfg struct {
			ShowLabels *bool `json:"showLabels,omitempty"`
			ShowStatus *bool `json:"showStatus,omitempty"`
			Debug      *bool `json:"debug,omitempty"`
		}

		switch r.Method {
		case http.MethodGet:
			labels, status, debug := opts.ShowLabels.Load(), opts.ShowStatus.Load(), opts.Debug.Load()
			cur := cfg{ShowLabels: &labels, ShowStatus: &status, Debug: &debug}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(cur)
		case http.MethodPost:
			var body cfg
			if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
				http.Error(w, "invalid json", http.StatusBadRequest)
				return
			}
			if body.ShowLabels != nil {
				opts.ShowLabels.Store(*body.ShowLabels)
			}
			if body.ShowStatus != nil {
				opts.ShowStatus.Store(*body.ShowStatus)
			}
			if body.Debug != nil {
				opts.Debug.Store(*body.Debug)
				SetDebugLogging(*body.Debug)
			}
			w.Header().Set("Content-Type", "application/json")
			_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
			Log.Infof("options updated: labels=%v status=%v debug=%v",
				opts.ShowLabels.Load(), opts.ShowStatus.Load(), opts.Debug.Load())
		default:
			http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		}
	})

	return mux
}

// StartDebugServer 启动本机调试接口（addr 为空则不启动）
func StartDebugServer(addr string, session *Session, world *World, viewport *Viewport, metrics *ClientMetrics, opts *RuntimeOptions) *http.Server {
	srv := &http.Server{Addr: addr, Handler: newDebugMux(session, world, viewport, metrics, opts)}
	go func() {
		Log.Infof("debug server listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			Log.Errorf("debug server: %v", err)
		}
	}()
	return srv
}
