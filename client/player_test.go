package client

import "testing"

func TestAvatarFrameCount(t *testing.T) {
	a := &Avatar{Name: "cat", Frames: map[Facing][]string{
		FacingSouth: {"f0", "f1", "f2"},
		FacingEast:  {"f0"},
	}}
	if n := a.FrameCount(FacingSouth); n != 3 {
		t.Fatalf("expected 3 south frames, got %d", n)
	}
	// 未定义的朝向与 nil 接收者都按 0 帧处理
	if n := a.FrameCount(FacingNorth); n != 0 {
		t.Fatalf("expected 0 north frames, got %d", n)
	}
	var missing *Avatar
	if n := missing.FrameCount(FacingSouth); n != 0 {
		t.Fatalf("expected 0 frames on nil avatar, got %d", n)
	}
}
