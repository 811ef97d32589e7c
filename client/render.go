package client

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"sort"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/text/v2"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/time/rate"
)

const (
	// spriteDisplayHeight 精灵统一缩放到的显示高度（世界单位），宽度按原始比例
	spriteDisplayHeight = 128.0
	// cullMargin 视口外的剔除余量，避免精灵在边缘突然消失
	cullMargin = 50.0
	// labelOffset 名牌底边到精灵顶边的间距
	labelOffset = 4.0
	labelSize   = 14.0
)

// Renderer 每帧把实体表快照画到输出窗口
type Renderer struct {
	world    *World
	viewport *Viewport
	sprites  *SpriteCache
	session  *Session
	metrics  *ClientMetrics
	opts     *RuntimeOptions

	face        *text.GoTextFace
	bg          *ebiten.Image
	missingWarn *rate.Limiter
}

// NewRenderer 组装渲染器并准备名牌字体
func NewRenderer(world *World, viewport *Viewport, sprites *SpriteCache, session *Session, metrics *ClientMetrics, opts *RuntimeOptions) *Renderer {
	r := &Renderer{
		world:       world,
		viewport:    viewport,
		sprites:     sprites,
		session:     session,
		metrics:     metrics,
		opts:        opts,
		missingWarn: rate.NewLimiter(rate.Every(5*time.Second), 1),
	}
	if src, err := text.NewGoTextFaceSource(bytes.NewReader(goregular.TTF)); err == nil {
		r.face = &text.GoTextFace{Source: src, Size: labelSize}
	} else {
		Log.Errorf("load label font: %v", err)
	}
	return r
}

// SetBackground 底图就绪后安装纹理，世界边界以图片实际尺寸为准。
// 只能在游戏 Update 协程调用。
func (r *Renderer) SetBackground(img image.Image) {
	r.bg = ebiten.NewImageFromImage(img)
	b := img.Bounds()
	r.viewport.SetWorldSize(b.Dx(), b.Dy())
	Log.Infof("background ready: %dx%d", b.Dx(), b.Dy())
}

// Draw 渲染一帧。任何缺失数据只跳过对应绘制，绝不中断
func (r *Renderer) Draw(screen *ebiten.Image) {
	screen.Fill(color.Black)
	r.drawBackground(screen)

	viewW, viewH := r.viewport.ViewSize()
	players := r.world.All()
	// 固定绘制顺序，避免同位置精灵在帧间交替遮挡
	sort.Slice(players, func(i, j int) bool { return players[i].ID < players[j].ID })

	var culled int64
	for _, p := range players {
		sx, sy := r.viewport.WorldToScreen(p.X, p.Y)
		if !cullVisible(sx, sy, viewW, viewH) {
			culled++
			continue
		}
		r.drawPlayer(screen, p, sx, sy)
	}
	if culled > 0 && r.metrics != nil {
		r.metrics.AddSpritesCulled(culled)
	}

	if r.opts == nil || r.opts.ShowStatus.Load() {
		r.drawStatus(screen)
	}
	if r.metrics != nil {
		r.metrics.IncFrameDrawn()
	}
}

// drawBackground 按镜头裁剪底图后原比例贴到窗口（不缩放）
func (r *Renderer) drawBackground(screen *ebiten.Image) {
	if r.bg == nil {
		return
	}
	camX, camY := r.viewport.Camera()
	viewW, viewH := r.viewport.ViewSize()
	src := image.Rect(int(camX), int(camY), int(camX)+viewW, int(camY)+viewH)
	src = src.Intersect(r.bg.Bounds())
	if src.Empty() {
		return
	}
	op := &ebiten.DrawImageOptions{}
	op.GeoM.Translate(float64(src.Min.X)-camX, float64(src.Min.Y)-camY)
	screen.DrawImage(r.bg.SubImage(src).(*ebiten.Image), op)
}

// drawPlayer 画一个玩家的精灵与名牌
func (r *Renderer) drawPlayer(screen *ebiten.Image, p Player, sx, sy float64) {
	avatar, ok := r.world.Avatar(p.Avatar)
	if !ok {
		if r.missingWarn.Allow() {
			Log.Warnf("player %s references unknown avatar %q", p.ID, p.Avatar)
		}
		return
	}

	dir, mirror := frameDirection(p.Facing)
	count := avatar.FrameCount(dir)
	if count == 0 {
		// 该朝向没有帧序列，这一帧整个跳过
		return
	}
	frame := clampFrame(p.Frame, count)

	top := sy - spriteDisplayHeight/2
	if sprite, ok := r.sprites.Lookup(p.Avatar, dir, frame); ok {
		scale, left := spriteGeom(sprite.W, sprite.H, sx)
		op := &ebiten.DrawImageOptions{}
		if mirror {
			op.GeoM.Scale(-1, 1)
			op.GeoM.Translate(float64(sprite.W), 0)
		}
		op.GeoM.Scale(scale, scale)
		op.GeoM.Translate(left, top)
		screen.DrawImage(sprite.Texture(), op)
	}

	if r.opts == nil || r.opts.ShowLabels.Load() {
		r.drawLabel(screen, playerLabel(p.Name, p.ID), sx, top-labelOffset)
	}
}

// drawLabel 名牌：先四向偏移描黑边，再居中填白字
func (r *Renderer) drawLabel(screen *ebiten.Image, s string, cx, bottom float64) {
	if r.face == nil {
		return
	}
	w, h := text.Measure(s, r.face, 0)
	x := cx - w/2
	y := bottom - h
	for _, d := range [4][2]float64{{-1, 0}, {1, 0}, {0, -1}, {0, 1}} {
		op := &text.DrawOptions{}
		op.GeoM.Translate(x+d[0], y+d[1])
		op.ColorScale.ScaleWithColor(color.Black)
		text.Draw(screen, s, r.face, op)
	}
	op := &text.DrawOptions{}
	op.GeoM.Translate(x, y)
	op.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, s, r.face, op)
}

// drawStatus 左上角状态行：连接状态、重连进度、在线人数、帧率
func (r *Renderer) drawStatus(screen *ebiten.Image) {
	if r.face == nil || r.session == nil {
		return
	}
	label := statusLine(r.session.State(), r.session.Attempt(), r.session.cfg.Backoff.MaxAttempts)
	line := fmt.Sprintf("%s  players:%d  fps:%.0f", label, r.world.PlayerCount(), ebiten.ActualFPS())
	op := &text.DrawOptions{}
	op.GeoM.Translate(6, 4)
	op.ColorScale.ScaleWithColor(color.White)
	text.Draw(screen, line, r.face, op)
}

// statusLine 左上角状态文案。attempt 为 0 是首次拨号，不标注重试序号；
// 重试耗尽后的终态固定显示 connection lost。
func statusLine(st ConnState, attempt, maxAttempts int) string {
	switch {
	case (st == StateConnecting || st == StateReconnectPending) && attempt > 0:
		return fmt.Sprintf("%s (attempt %d/%d)", st, attempt, maxAttempts)
	case st == StateDisconnected && attempt > 0:
		return "connection lost"
	}
	return st.String()
}

// frameDirection 取某朝向实际使用的帧方向。
// 西向复用东向帧并在绘制时水平镜像，第二个返回值表示需要镜像。
func frameDirection(f Facing) (Facing, bool) {
	if f == FacingWest {
		return FacingEast, true
	}
	return f, false
}

// clampFrame 把帧序号夹到 [0, count-1]，越界不视为错误
func clampFrame(idx, count int) int {
	if idx < 0 {
		return 0
	}
	if idx >= count {
		return count - 1
	}
	return idx
}

// spriteGeom 按固定显示高度求等比缩放系数，以及水平居中于 sx 的左边界
func spriteGeom(natW, natH int, sx float64) (scale, left float64) {
	scale = spriteDisplayHeight / float64(natH)
	left = sx - float64(natW)*scale/2
	return scale, left
}

// cullVisible 屏幕坐标是否落在视口加余量的范围内
func cullVisible(sx, sy float64, viewW, viewH int) bool {
	return sx >= -cullMargin && sx <= float64(viewW)+cullMargin &&
		sy >= -cullMargin && sy <= float64(viewH)+cullMargin
}

// playerLabel 名牌文本：显示名加 ID 前四位，便于区分重名
func playerLabel(name, id string) string {
	// 按字符截断，字节截断会把多字节 ID 切出残缺字符
	short := []rune(id)
	if len(short) > 4 {
		short = short[:4]
	}
	if len(short) == 0 {
		return name
	}
	return name + "#" + string(short)
}
