package chat

import (
	"encoding/json"
	"testing"
)

func TestParseFrame(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
		check   func(*Frame) bool
	}{
		{"auth", `{"type":"auth","token":"tok"}`, false,
			func(f *Frame) bool { return f.Type == FrameAuth && f.Token == "tok" }},
		{"join", `{"type":"join","channel_id":"ch1"}`, false,
			func(f *Frame) bool { return f.Type == FrameJoin && f.ChannelID == "ch1" }},
		{"send", `{"type":"send","channel_id":"ch1","text":"hi"}`, false,
			func(f *Frame) bool { return f.Text == "hi" }},
		{"missing type", `{"channel_id":"ch1"}`, true, nil},
		{"garbage", `{{{`, true, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f, err := ParseFrame([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Fatal("expected parse error")
				}
				return
			}
			if err != nil {
				t.Fatalf("parse: %v", err)
			}
			if !tt.check(f) {
				t.Fatalf("frame = %+v", f)
			}
		})
	}
}

func TestBuildMessageEventFlags(t *testing.T) {
	m := &Message{ProvisionalID: "p1", ChannelID: "ch1", SenderID: "alice", Text: "hi", CreatedAtMS: 1}

	var out map[string]any
	if err := json.Unmarshal(BuildMessageEvent(m, true, false), &out); err != nil {
		t.Fatal(err)
	}
	if out["is_mine"] != true || out["correction"] != false {
		t.Fatalf("flags = %v", out)
	}
	inner := out["message"].(map[string]any)
	if inner["provisional_id"] != "p1" || inner["sender_id"] != "alice" {
		t.Fatalf("message = %v", inner)
	}
}

func TestBuildPresenceEventNeverNull(t *testing.T) {
	var out map[string]any
	if err := json.Unmarshal(BuildPresenceEvent(nil, nil), &out); err != nil {
		t.Fatal(err)
	}
	if _, ok := out["online"].([]any); !ok {
		t.Fatalf("online must be an array, got %T", out["online"])
	}
	if _, ok := out["offline"].([]any); !ok {
		t.Fatalf("offline must be an array, got %T", out["offline"])
	}
}
