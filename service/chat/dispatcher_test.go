package chat

import "testing"

type echoHandler struct {
	typ   string
	calls int
}

func (h *echoHandler) Type() string { return h.typ }
func (h *echoHandler) Handle(_ *Context, _ *Frame, _ *Client) error {
	h.calls++
	return nil
}

func TestDispatcherRoutesByType(t *testing.T) {
	d := NewDispatcher()
	h := &echoHandler{typ: "ping"}
	d.Register(h)

	c := newTestClient("c1")
	if err := d.Dispatch(&Context{}, &Frame{Type: "ping"}, c); err != nil {
		t.Fatalf("dispatch: %v", err)
	}
	if h.calls != 1 {
		t.Fatalf("handler called %d times", h.calls)
	}
}

func TestDispatcherUnknownType(t *testing.T) {
	d := NewDispatcher()
	c := newTestClient("c1")
	if err := d.Dispatch(&Context{}, &Frame{Type: "nope"}, c); err == nil {
		t.Fatal("unknown frame type must error")
	}
}
