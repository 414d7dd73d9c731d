package natsx

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/nats-io/nats.go"
)

func TestPublishOnceLeavesCallerHeaderAlone(t *testing.T) {
	// no connection needed: the route lookup fails before any network I/O,
	// after the header handling under test
	c := &NatsxClient{
		routes: make(map[string]NatsxRoute),
		subs:   make(map[string]*nats.Subscription),
	}

	hdr := map[string]string{"source": "gw-1"}
	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			for j := 0; j < 50; j++ {
				_ = c.PublishOnce(context.Background(), "missing", nil, hdr,
					fmt.Sprintf("m-%d-%d", i, j))
			}
		}(i)
	}
	wg.Wait()

	if len(hdr) != 1 || hdr["source"] != "gw-1" {
		t.Fatalf("caller header changed: %v", hdr)
	}
	if _, ok := hdr["Nats-Msg-Id"]; ok {
		t.Fatal("dedup id written into the caller's map")
	}
}

func TestPublishOnceNilHeader(t *testing.T) {
	c := &NatsxClient{
		routes: make(map[string]NatsxRoute),
		subs:   make(map[string]*nats.Subscription),
	}
	if err := c.PublishOnce(context.Background(), "missing", nil, nil, "m-1"); err == nil {
		t.Fatal("unknown route must error")
	}
}
