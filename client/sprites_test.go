package client

import (
	"bytes"
	"encoding/base64"
	"image"
	"image/png"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
)

// pngDataURI 生成一张 w×h 的 PNG 并编码成 data URI
func pngDataURI(t *testing.T, w, h int) string {
	t.Helper()
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, w, h))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(buf.Bytes())
}

func TestEnsureAvatarDecodesEachFrameOnce(t *testing.T) {
	metrics := NewClientMetrics()
	c := NewSpriteCache(metrics)
	a := &Avatar{Name: "cat", Frames: map[Facing][]string{
		FacingSouth: {pngDataURI(t, 3, 7), pngDataURI(t, 4, 8)},
	}}

	// 首个解码尚未完成时的重复调用不得产生第二次解码
	var wg sync.WaitGroup
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			c.EnsureAvatar(a)
		}()
	}
	wg.Wait()
	c.EnsureAvatar(a)
	c.WaitIdle()

	if n := metrics.Snapshot()["sprites_decoded"].(int64); n != 2 {
		t.Fatalf("expected exactly 2 decodes, got %d", n)
	}
	s, ok := c.Lookup("cat", FacingSouth, 0)
	if !ok {
		t.Fatalf("expected frame 0 cached")
	}
	if s.W != 3 || s.H != 7 {
		t.Fatalf("expected natural size 3x7, got %dx%d", s.W, s.H)
	}
	if _, ok := c.Lookup("cat", FacingSouth, 1); !ok {
		t.Fatalf("expected frame 1 cached")
	}
}

func TestDecodeFailureIsPermanentlyNegative(t *testing.T) {
	metrics := NewClientMetrics()
	c := NewSpriteCache(metrics)
	a := &Avatar{Name: "bad", Frames: map[Facing][]string{
		FacingSouth: {"data:image/png;base64,%%%%"},
	}}

	c.EnsureAvatar(a)
	c.WaitIdle()

	if _, ok := c.Lookup("bad", FacingSouth, 0); ok {
		t.Fatalf("expected failed frame to stay missing")
	}
	if n := metrics.Snapshot()["sprite_failures"].(int64); n != 1 {
		t.Fatalf("expected 1 failure, got %d", n)
	}

	// 失败是永久负缓存：再次预载不得重试
	c.EnsureAvatar(a)
	c.WaitIdle()
	if n := metrics.Snapshot()["sprite_failures"].(int64); n != 1 {
		t.Fatalf("expected no retry after failure, got %d failures", n)
	}
	if got := c.Len(); got != 1 {
		t.Fatalf("expected 1 cached key (negative), got %d", got)
	}
}

func TestLookupNeverTriggersLoad(t *testing.T) {
	c := NewSpriteCache(nil)
	if _, ok := c.Lookup("nobody", FacingEast, 0); ok {
		t.Fatalf("expected miss on empty cache")
	}
	c.WaitIdle()
	if got := c.Len(); got != 0 {
		t.Fatalf("expected lookup to stay side-effect free, got %d entries", got)
	}
}

func TestEnsureAvatarFetchesHTTPSources(t *testing.T) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 5, 9))); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(buf.Bytes())
	}))
	defer srv.Close()

	c := NewSpriteCache(NewClientMetrics())
	a := &Avatar{Name: "net", Frames: map[Facing][]string{
		FacingEast: {srv.URL + "/frame0.png"},
	}}
	c.EnsureAvatar(a)
	c.WaitIdle()

	s, ok := c.Lookup("net", FacingEast, 0)
	if !ok {
		t.Fatalf("expected http frame cached")
	}
	if s.W != 5 || s.H != 9 {
		t.Fatalf("expected natural size 5x9, got %dx%d", s.W, s.H)
	}
}

func TestDecodeImageSourceRejectsUnknownSchemes(t *testing.T) {
	if _, err := decodeImageSource("img0"); err == nil {
		t.Fatalf("expected error for bare frame name")
	}
	if _, err := decodeImageSource("data:image/png;base64"); err == nil {
		t.Fatalf("expected error for data URI without payload")
	}
}
