package client

import (
	"encoding/json"
	"testing"
)

func TestDecodeJoinAckSuccess(t *testing.T) {
	payload := []byte(`{
		"action": "join_game",
		"success": true,
		"playerId": "p1",
		"players": {
			"p1": {"username":"alice","x":100,"y":100,"facing":"south","avatar":"cat"},
			"p2": {"id":"p2","username":"bob","x":5,"y":6,"facing":"east","avatar":"dog","animationFrame":3}
		},
		"avatars": {
			"cat": {"name":"cat","frames":{"south":["img0","img1"]}}
		}
	}`)

	msg, err := DecodeInbound(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ack, ok := msg.(JoinAck)
	if !ok {
		t.Fatalf("expected JoinAck, got %T", msg)
	}
	if !ack.Success || ack.PlayerID != "p1" {
		t.Fatalf("expected success ack for p1, got %+v", ack)
	}

	// 内嵌 id 缺省时回退为映射键
	p1 := ack.Players["p1"]
	if p1.ID != "p1" || p1.Name != "alice" || p1.X != 100 || p1.Y != 100 {
		t.Fatalf("unexpected p1: %+v", p1)
	}
	if p1.Frame != 0 {
		t.Fatalf("expected absent animationFrame to default to 0, got %d", p1.Frame)
	}
	p2 := ack.Players["p2"]
	if p2.Frame != 3 || p2.Facing != FacingEast {
		t.Fatalf("unexpected p2: %+v", p2)
	}
	if a, ok := ack.Avatars["cat"]; !ok || a.FrameCount(FacingSouth) != 2 {
		t.Fatalf("unexpected avatars: %+v", ack.Avatars)
	}
}

func TestDecodeJoinAckFailure(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"action":"join_game","success":false,"error":"room full"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	ack := msg.(JoinAck)
	if ack.Success || ack.Error != "room full" {
		t.Fatalf("expected rejection with reason, got %+v", ack)
	}
}

func TestDecodePlayerJoined(t *testing.T) {
	payload := []byte(`{
		"action": "player_joined",
		"player": {"id":"p9","username":"carol","x":1,"y":2,"facing":"north","avatar":"cat"},
		"avatar": {"name":"cat","frames":{"north":["f0"]}}
	}`)
	msg, err := DecodeInbound(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	pj, ok := msg.(PlayerJoined)
	if !ok {
		t.Fatalf("expected PlayerJoined, got %T", msg)
	}
	if pj.Player.ID != "p9" || pj.Player.Facing != FacingNorth {
		t.Fatalf("unexpected player: %+v", pj.Player)
	}
	if pj.Avatar == nil || pj.Avatar.Name != "cat" {
		t.Fatalf("unexpected avatar: %+v", pj.Avatar)
	}
}

func TestDecodePlayersMoved(t *testing.T) {
	payload := []byte(`{
		"action": "players_moved",
		"players": {"p1": {"id":"p1","x":7,"y":8,"facing":"west","avatar":"cat","animationFrame":1}}
	}`)
	msg, err := DecodeInbound(payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	mv := msg.(PlayersMoved)
	p := mv.Players["p1"]
	if p.X != 7 || p.Y != 8 || p.Facing != FacingWest || p.Frame != 1 {
		t.Fatalf("unexpected delta player: %+v", p)
	}
}

func TestDecodePlayerLeft(t *testing.T) {
	msg, err := DecodeInbound([]byte(`{"action":"player_left","playerId":"p2"}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if pl := msg.(PlayerLeft); pl.PlayerID != "p2" {
		t.Fatalf("unexpected player_left: %+v", pl)
	}
}

func TestDecodeUnknownActionIsNoop(t *testing.T) {
	// 未知 action 是前向兼容的空操作，不是错误
	msg, err := DecodeInbound([]byte(`{"action":"teleport","x":1}`))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	um, ok := msg.(UnknownMessage)
	if !ok || um.Action != "teleport" {
		t.Fatalf("expected UnknownMessage(teleport), got %#v", msg)
	}
}

func TestDecodeMalformedJSONIsError(t *testing.T) {
	if _, err := DecodeInbound([]byte(`{"action":`)); err == nil {
		t.Fatalf("expected error for malformed frame")
	}
}

func TestEncodeOutbound(t *testing.T) {
	join, err := EncodeJoin("alice")
	if err != nil {
		t.Fatalf("encode join: %v", err)
	}
	var j map[string]any
	if err := json.Unmarshal(join, &j); err != nil {
		t.Fatalf("join not valid json: %v", err)
	}
	if j["action"] != "join_game" || j["username"] != "alice" {
		t.Fatalf("unexpected join payload: %s", join)
	}

	move, err := EncodeMove(MoveLeft)
	if err != nil {
		t.Fatalf("encode move: %v", err)
	}
	var m map[string]any
	_ = json.Unmarshal(move, &m)
	if m["action"] != "move" || m["direction"] != "left" {
		t.Fatalf("unexpected move payload: %s", move)
	}

	stop, err := EncodeStop()
	if err != nil {
		t.Fatalf("encode stop: %v", err)
	}
	var st map[string]any
	_ = json.Unmarshal(stop, &st)
	if st["action"] != "stop" || len(st) != 1 {
		t.Fatalf("unexpected stop payload: %s", stop)
	}
}
