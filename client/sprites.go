package client

import (
	"bytes"
	"encoding/base64"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/http"
	"runtime"
	"strings"
	"sync"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/remeh/sizedwaitgroup"
)

// spriteKey 贴图缓存键：头像名 + 朝向 + 帧序号
type spriteKey struct {
	Avatar string
	Facing Facing
	Frame  int
}

// Sprite 一帧已解码的贴图。img 与原始尺寸在解码协程写入；
// 纹理在首次绘制时才上传显卡，只允许渲染协程调用 Texture。
type Sprite struct {
	img image.Image
	W   int
	H   int
	tex *ebiten.Image
}

// Texture 返回（必要时先创建）GPU 纹理
func (s *Sprite) Texture() *ebiten.Image {
	if s.tex == nil {
		s.tex = ebiten.NewImageFromImage(s.img)
	}
	return s.tex
}

// SpriteCache 按 (avatar, facing, frame) 缓存解码结果。
// 解码失败写入 nil 哨兵：查询视为缺失，预载视为已处理，永不重试。
type SpriteCache struct {
	mu      sync.Mutex
	entries map[spriteKey]*Sprite
	pending map[spriteKey]bool

	swg     sizedwaitgroup.SizedWaitGroup
	wg      sync.WaitGroup
	metrics *ClientMetrics
}

// NewSpriteCache 创建贴图缓存，解码并发度与 CPU 数一致
func NewSpriteCache(metrics *ClientMetrics) *SpriteCache {
	return &SpriteCache{
		entries: make(map[spriteKey]*Sprite),
		pending: make(map[spriteKey]bool),
		swg:     sizedwaitgroup.New(runtime.NumCPU()),
		metrics: metrics,
	}
}

// EnsureAvatar 为头像的全部 (朝向, 帧) 组合发起异步解码。
// 已缓存、已失败或在途的键直接跳过，重复调用不产生重复解码。
func (c *SpriteCache) EnsureAvatar(a *Avatar) {
	if a == nil {
		return
	}
	c.mu.Lock()
	for facing, frames := range a.Frames {
		for idx, src := range frames {
			key := spriteKey{Avatar: a.Name, Facing: facing, Frame: idx}
			if _, done := c.entries[key]; done {
				continue
			}
			if c.pending[key] {
				continue
			}
			c.pending[key] = true
			c.wg.Add(1)
			go c.load(key, src)
		}
	}
	c.mu.Unlock()
}

// load 单帧解码工作协程，受 swg 限流
func (c *SpriteCache) load(key spriteKey, src string) {
	defer c.wg.Done()
	c.swg.Add()
	defer c.swg.Done()

	img, err := decodeImageSource(src)

	c.mu.Lock()
	delete(c.pending, key)
	if err != nil {
		c.entries[key] = nil
		c.mu.Unlock()
		if c.metrics != nil {
			c.metrics.IncSpriteFailure()
		}
		Log.Warnf("sprite decode failed avatar=%s facing=%s frame=%d: %v", key.Avatar, key.Facing, key.Frame, err)
		return
	}
	b := img.Bounds()
	c.entries[key] = &Sprite{img: img, W: b.Dx(), H: b.Dy()}
	c.mu.Unlock()
	if c.metrics != nil {
		c.metrics.IncSpriteDecoded()
	}
}

// Lookup 查询缓存，不触发加载。未就绪或已失败都返回未命中。
func (c *SpriteCache) Lookup(avatar string, facing Facing, frame int) (*Sprite, bool) {
	c.mu.Lock()
	s, ok := c.entries[spriteKey{Avatar: avatar, Facing: facing, Frame: frame}]
	c.mu.Unlock()
	if !ok || s == nil {
		return nil, false
	}
	return s, true
}

// Len 已入缓存的键数（含失败哨兵）
func (c *SpriteCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// WaitIdle 阻塞到所有在途解码完成
func (c *SpriteCache) WaitIdle() {
	c.wg.Wait()
}

// decodeImageSource 解码一个帧来源：data URI 或 http(s) 地址
func decodeImageSource(src string) (image.Image, error) {
	switch {
	case strings.HasPrefix(src, "data:"):
		_, payload, found := strings.Cut(src, ",")
		if !found {
			return nil, fmt.Errorf("malformed data URI")
		}
		raw, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return nil, fmt.Errorf("base64: %w", err)
		}
		img, _, err := image.Decode(bytes.NewReader(raw))
		return img, err
	case strings.HasPrefix(src, "http://"), strings.HasPrefix(src, "https://"):
		resp, err := http.Get(src)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			return nil, fmt.Errorf("GET %v: %v", src, resp.Status)
		}
		img, _, err := image.Decode(resp.Body)
		return img, err
	default:
		return nil, fmt.Errorf("unsupported image source %q", truncateSource(src))
	}
}

// truncateSource 日志里不要打整段 base64
func truncateSource(src string) string {
	if len(src) > 32 {
		return src[:32] + "..."
	}
	return src
}
