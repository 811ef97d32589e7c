package client

import (
	"context"
	"image"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"
)

// arrowKeys 方向键到移动方向的映射，其余按键一律忽略
var arrowKeys = [4]struct {
	key ebiten.Key
	dir MoveDirection
}{
	{ebiten.KeyArrowUp, MoveUp},
	{ebiten.KeyArrowDown, MoveDown},
	{ebiten.KeyArrowLeft, MoveLeft},
	{ebiten.KeyArrowRight, MoveRight},
}

// Game 把会话、输入与渲染接到 ebiten 的 Update/Draw 骨架上。
// Update 是唯一消费网络事件的协程，状态改动全部串行于此。
type Game struct {
	ctx      context.Context
	session  *Session
	renderer *Renderer
	input    *InputController
	viewport *Viewport
	bgCh     <-chan image.Image
}

// NewGame 组装游戏循环
func NewGame(ctx context.Context, session *Session, renderer *Renderer, input *InputController, viewport *Viewport, bgCh <-chan image.Image) *Game {
	return &Game{
		ctx:      ctx,
		session:  session,
		renderer: renderer,
		input:    input,
		viewport: viewport,
		bgCh:     bgCh,
	}
}

// Update 每逻辑帧：排空网络事件、安装底图、轮询方向键
func (g *Game) Update() error {
	select {
	case <-g.ctx.Done():
		return ebiten.Termination
	default:
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}

	g.session.Pump()

	select {
	case img := <-g.bgCh:
		if img != nil {
			g.renderer.SetBackground(img)
		}
	default:
	}

	for _, k := range arrowKeys {
		if inpututil.IsKeyJustPressed(k.key) {
			g.input.KeyDown(k.dir)
		}
		if inpututil.IsKeyJustReleased(k.key) {
			g.input.KeyUp(k.dir)
		}
	}
	return nil
}

// Draw 渲染交给 Renderer，这里不做任何状态改动
func (g *Game) Draw(screen *ebiten.Image) {
	g.renderer.Draw(screen)
}

// Layout 逻辑分辨率固定为视口尺寸
func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return g.viewport.ViewSize()
}
