package chat

import "testing"

func TestConnManagerBindLifecycle(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestClient("c1")

	if err := m.AddUnbound(c); err != nil {
		t.Fatalf("add unbound: %v", err)
	}
	if err := m.AddUnbound(c); err == nil {
		t.Fatal("duplicate conn id must be rejected")
	}
	if m.IsUserLive("alice") {
		t.Fatal("user live before bind")
	}

	if err := m.Bind("c1", "alice"); err != nil {
		t.Fatalf("bind: %v", err)
	}
	if err := m.Bind("c1", "alice"); err == nil {
		t.Fatal("second bind must fail, session already connected")
	}
	if !m.IsUserLive("alice") {
		t.Fatal("user not live after bind")
	}
	if got := len(m.ListByUser("alice")); got != 1 {
		t.Fatalf("connections for alice = %d, want 1", got)
	}
}

func TestConnManagerRemoveIdempotent(t *testing.T) {
	m := NewConnManager("gw-test")
	c := newTestClient("c1")
	_ = m.AddUnbound(c)
	_ = m.Bind("c1", "alice")

	m.Remove("c1")
	if m.IsUserLive("alice") {
		t.Fatal("user still live after remove")
	}
	m.Remove("c1") // second remove must not panic or resurrect anything
	if _, ok := m.GetByConn("c1"); ok {
		t.Fatal("conn still indexed")
	}
}

func TestConnManagerBroadcastUser(t *testing.T) {
	m := NewConnManager("gw-test")
	c1 := newTestClient("c1")
	c2 := newTestClient("c2")
	_ = m.AddUnbound(c1)
	_ = m.AddUnbound(c2)
	_ = m.Bind("c1", "alice")
	_ = m.Bind("c2", "alice")

	if n := m.BroadcastUser("alice", []byte(`{"x":1}`)); n != 2 {
		t.Fatalf("broadcast accepted by %d conns, want 2", n)
	}
	if n := m.BroadcastUser("bob", []byte(`{}`)); n != 0 {
		t.Fatalf("broadcast to absent user accepted by %d", n)
	}
}
