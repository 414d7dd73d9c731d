package chat

import (
	"sort"
	"testing"
)

func TestRoomsJoinIdempotent(t *testing.T) {
	r := NewRooms()
	c := newBoundClient("c1", "alice")

	if !r.Join(c, "ch1") {
		t.Fatal("first join should be new membership")
	}
	if r.Join(c, "ch1") {
		t.Fatal("second join should be a no-op")
	}
	if got := len(r.LiveMembersOf("ch1")); got != 1 {
		t.Fatalf("live members = %d, want 1", got)
	}
}

func TestRoomsLeaveIdempotent(t *testing.T) {
	r := NewRooms()
	c := newBoundClient("c1", "alice")
	r.Join(c, "ch1")

	if !r.Leave("c1", "ch1") {
		t.Fatal("first leave should report removal")
	}
	if r.Leave("c1", "ch1") {
		t.Fatal("second leave should be a no-op")
	}
	if got := r.LiveMembersOf("ch1"); got != nil {
		t.Fatalf("live members after leave = %v, want none", got)
	}
}

func TestRoomsDualIndexAgreement(t *testing.T) {
	r := NewRooms()
	c1 := newBoundClient("c1", "alice")
	c2 := newBoundClient("c2", "bob")
	r.Join(c1, "ch1")
	r.Join(c1, "ch2")
	r.Join(c2, "ch1")

	got := r.JoinedChannels("c1")
	sort.Strings(got)
	if len(got) != 2 || got[0] != "ch1" || got[1] != "ch2" {
		t.Fatalf("joined channels = %v, want [ch1 ch2]", got)
	}

	// every room listing c1 must appear in c1's joined set and vice versa
	for _, ch := range got {
		found := false
		for _, m := range r.LiveMembersOf(ch) {
			if m.ConnID == "c1" {
				found = true
			}
		}
		if !found {
			t.Fatalf("conn c1 missing from room %s", ch)
		}
	}
}

func TestRoomsLeaveAll(t *testing.T) {
	r := NewRooms()
	c := newBoundClient("c1", "alice")
	r.Join(c, "ch1")
	r.Join(c, "ch2")

	channels := r.LeaveAll("c1")
	sort.Strings(channels)
	if len(channels) != 2 {
		t.Fatalf("leave all affected %v, want 2 channels", channels)
	}
	if r.JoinedChannels("c1") != nil {
		t.Fatal("conn still joined after LeaveAll")
	}
	if r.LeaveAll("c1") != nil {
		t.Fatal("second LeaveAll should return nothing")
	}
}

func TestRoomsUserInRoom(t *testing.T) {
	r := NewRooms()
	c1 := newBoundClient("c1", "alice")
	c2 := newBoundClient("c2", "alice") // second device, same user
	r.Join(c1, "ch1")

	if !r.UserInRoom("alice", "ch1") {
		t.Fatal("alice has a connection in ch1")
	}
	if r.UserInRoom("bob", "ch1") {
		t.Fatal("bob is not in ch1")
	}

	// the other device joining and the first leaving keeps the user in-room
	r.Join(c2, "ch1")
	r.Leave("c1", "ch1")
	if !r.UserInRoom("alice", "ch1") {
		t.Fatal("alice still has a live connection in ch1")
	}
}
