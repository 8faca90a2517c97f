package proto

import (
	"encoding/json"
	"testing"
)

func TestPlayerFlattensExtraFields(t *testing.T) {
	p := Player{
		ID:       "c1",
		Name:     "Alice",
		IsHost:   true,
		JoinedAt: 42,
		Extra:    map[string]any{"ready": true, "id": "spoofed"},
	}

	raw, err := json.Marshal(p)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	var flat map[string]any
	if err := json.Unmarshal(raw, &flat); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if flat["id"] != "c1" || flat["ready"] != true || flat["isHost"] != true {
		t.Fatalf("unexpected flattened player: %s", raw)
	}

	var back Player
	if err := json.Unmarshal(raw, &back); err != nil {
		t.Fatalf("unmarshal player: %v", err)
	}
	if back.ID != "c1" || back.JoinedAt != 42 || len(back.Extra) != 1 || back.Extra["ready"] != true {
		t.Fatalf("unexpected decoded player: %+v", back)
	}
}

func TestEnvelopeWithoutPayload(t *testing.T) {
	var env Envelope
	if err := json.Unmarshal([]byte(`{"type":"leave_room"}`), &env); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if env.Type != InboundTypeLeaveRoom || len(env.Payload) != 0 {
		t.Fatalf("unexpected envelope: %+v", env)
	}
}
