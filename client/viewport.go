package client

import "sync"

// Viewport 镜头：把无界的世界坐标映射到固定大小的输出窗口。
// 不变式：0 ≤ cam ≤ world − view（world ≤ view 时塌缩为 0），
// 每次重定位后立即恢复，绝不带着越界状态进渲染。
type Viewport struct {
	mu     sync.RWMutex
	camX   float64
	camY   float64
	viewW  int
	viewH  int
	worldW int
	worldH int
}

// NewViewport 以输出窗口尺寸与世界底图尺寸创建镜头
func NewViewport(viewW, viewH, worldW, worldH int) *Viewport {
	v := &Viewport{viewW: viewW, viewH: viewH, worldW: worldW, worldH: worldH}
	v.RecenterOn(0, 0)
	return v
}

// clampAxis 单轴裁剪到 [0, world-view]；世界不比窗口大时固定在 0
func clampAxis(cam float64, world, view int) float64 {
	limit := float64(world - view)
	if limit < 0 {
		limit = 0
	}
	if cam < 0 {
		return 0
	}
	if cam > limit {
		return limit
	}
	return cam
}

// RecenterOn 把镜头中心对准世界坐标 (x,y)，随后两轴各自裁剪。
// 计算廉价且幂等，本地玩家每次位移都无条件重算。
func (v *Viewport) RecenterOn(x, y float64) {
	v.mu.Lock()
	v.camX = clampAxis(x-float64(v.viewW)/2, v.worldW, v.viewW)
	v.camY = clampAxis(y-float64(v.viewH)/2, v.worldH, v.viewH)
	v.mu.Unlock()
}

// WorldToScreen 世界坐标转屏幕坐标
func (v *Viewport) WorldToScreen(x, y float64) (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return x - v.camX, y - v.camY
}

// Camera 返回镜头左上角的世界坐标
func (v *Viewport) Camera() (float64, float64) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.camX, v.camY
}

// ViewSize 输出窗口尺寸
func (v *Viewport) ViewSize() (int, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.viewW, v.viewH
}

// WorldSize 世界尺寸
func (v *Viewport) WorldSize() (int, int) {
	v.mu.RLock()
	defer v.mu.RUnlock()
	return v.worldW, v.worldH
}

// SetWorldSize 底图实际尺寸就绪后更新世界边界，并就地重新裁剪镜头
func (v *Viewport) SetWorldSize(w, h int) {
	v.mu.Lock()
	v.worldW, v.worldH = w, h
	v.camX = clampAxis(v.camX, v.worldW, v.viewW)
	v.camY = clampAxis(v.camY, v.worldH, v.viewH)
	v.mu.Unlock()
}
