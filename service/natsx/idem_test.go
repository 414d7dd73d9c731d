package natsx

import (
	"context"
	"testing"
	"time"
)

func TestMemIdemSeenOnce(t *testing.T) {
	store := NewMemIdem(time.Minute)

	seen, err := store.SeenOnce("k1", 0)
	if err != nil || seen {
		t.Fatalf("first sighting = (%v, %v)", seen, err)
	}
	seen, _ = store.SeenOnce("k1", 0)
	if !seen {
		t.Fatal("second sighting not detected")
	}
	seen, _ = store.SeenOnce("k2", 0)
	if seen {
		t.Fatal("different key reported as seen")
	}
}

func TestIdemMiddlewareDropsDuplicates(t *testing.T) {
	store := NewMemIdem(time.Minute)
	calls := 0
	h := NatsxChain(func(_ context.Context, _ NatsxMessage) error {
		calls++
		return nil
	}, NatsxIdemMiddleware(store, time.Minute))

	msg := NatsxMessage{
		Subject: "s",
		Data:    []byte(`{"x":1}`),
		Header:  map[string]string{"Nats-Msg-Id": "m-1"},
	}
	for i := 0; i < 3; i++ {
		if err := h(context.Background(), msg); err != nil {
			t.Fatalf("handler: %v", err)
		}
	}
	if calls != 1 {
		t.Fatalf("handler ran %d times, want 1", calls)
	}

	// a different id passes through
	msg.Header["Nats-Msg-Id"] = "m-2"
	_ = h(context.Background(), msg)
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func TestIdemMiddlewareFallbackKey(t *testing.T) {
	store := NewMemIdem(time.Minute)
	calls := 0
	h := NatsxIdemMiddleware(store, time.Minute)(func(_ context.Context, _ NatsxMessage) error {
		calls++
		return nil
	})

	// no id header: subject+body is the dedup key
	a := NatsxMessage{Subject: "s", Data: []byte(`{"x":1}`)}
	b := NatsxMessage{Subject: "s", Data: []byte(`{"x":2}`)}
	_ = h(context.Background(), a)
	_ = h(context.Background(), a)
	_ = h(context.Background(), b)
	if calls != 2 {
		t.Fatalf("handler ran %d times, want 2", calls)
	}
}

func TestChainOrder(t *testing.T) {
	var order []string
	mk := func(name string) NatsxMiddleware {
		return func(next NatsxHandler) NatsxHandler {
			return func(ctx context.Context, msg NatsxMessage) error {
				order = append(order, name)
				return next(ctx, msg)
			}
		}
	}
	h := NatsxChain(func(_ context.Context, _ NatsxMessage) error {
		order = append(order, "handler")
		return nil
	}, mk("outer"), mk("inner"))

	_ = h(context.Background(), NatsxMessage{})
	if len(order) != 3 || order[0] != "outer" || order[1] != "inner" || order[2] != "handler" {
		t.Fatalf("execution order = %v", order)
	}
}
