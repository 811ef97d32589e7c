package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/hajimehoshi/ebiten/v2"

	"miniworld/client"
)

// MiniWorld 入口：连接世界服务器并打开渲染窗口
func main() {
	var (
		cfgPath  string
		server   string
		username string
		debug    bool
	)
	flag.StringVar(&cfgPath, "config", "", "config file path (default: ./miniworld.yaml)")
	flag.StringVar(&server, "server", "", "server websocket url, e.g. ws://localhost:8080/ws")
	flag.StringVar(&username, "name", "", "display name sent in join request")
	flag.BoolVar(&debug, "debug", false, "verbose/debug logging")
	flag.Parse()

	cfg, err := client.LoadConfig(cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config: %v\n", err)
		os.Exit(1)
	}
	// 命令行优先于配置文件
	if server != "" {
		cfg.Server.URL = server
	}
	if username != "" {
		cfg.Username = username
	}
	if cfg.Username == "" {
		cfg.Username = "guest-" + uuid.New().String()[:8]
	}

	// 使用第三方 zap 日志库写入滚动日志文件
	if err := client.InitLogger(cfg.LogFile, debug || cfg.Debug.Verbose); err != nil {
		panic(err)
	}
	defer client.SyncLogger()
	client.Log.Infof("MiniWorld starting, session=%s server=%s user=%q",
		uuid.New().String(), cfg.Server.URL, cfg.Username)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	metrics := client.NewClientMetrics()
	world := client.NewWorld()
	viewport := client.NewViewport(cfg.Window.Width, cfg.Window.Height, cfg.World.Width, cfg.World.Height)
	sprites := client.NewSpriteCache(metrics)
	session := client.NewSession(cfg, world, viewport, sprites, metrics)
	opts := client.NewRuntimeOptions(debug || cfg.Debug.Verbose)
	renderer := client.NewRenderer(world, viewport, sprites, session, metrics, opts)
	input := client.NewInputController(session)

	bgCh := client.FetchBackground(cfg.Server.URL, cfg.World.Image)

	if cfg.Debug.Addr != "" {
		client.StartDebugServer(cfg.Debug.Addr, session, world, viewport, metrics, opts)
	}

	// 周期性输出一行运行摘要
	go func() {
		ticker := time.NewTicker(time.Minute)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				metrics.LogSummary(world.PlayerCount())
			case <-ctx.Done():
				return
			}
		}
	}()

	session.Connect()

	game := client.NewGame(ctx, session, renderer, input, viewport, bgCh)
	ebiten.SetWindowSize(cfg.Window.Width, cfg.Window.Height)
	ebiten.SetWindowTitle(fmt.Sprintf("MiniWorld - %s @ %s", cfg.Username, cfg.Server.URL))
	if err := ebiten.RunGame(game); err != nil {
		client.Log.Errorf("ebiten: %v", err)
	}

	session.Close()
	client.Log.Info("Shutting down...")
}
