package chat

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

// newTestClient builds a client with no socket; tests read its Send queue
// directly. The writer goroutine never runs here.
func newTestClient(connID string) *Client {
	return NewClient(connID, nil, 32)
}

func newBoundClient(connID, userID string) *Client {
	c := newTestClient(connID)
	c.bind(userID)
	return c
}

// recv waits for the next payload on the client's send queue.
func recv(t *testing.T, c *Client) map[string]any {
	t.Helper()
	select {
	case raw := <-c.Send:
		var m map[string]any
		if err := json.Unmarshal(raw, &m); err != nil {
			t.Fatalf("unmarshal payload: %v", err)
		}
		return m
	case <-time.After(2 * time.Second):
		t.Fatalf("no payload on conn %s", c.ConnID)
		return nil
	}
}

// recvSkipPresence is recv ignoring interleaved presence broadcasts, which
// arrive asynchronously relative to direct acks.
func recvSkipPresence(t *testing.T, c *Client) map[string]any {
	t.Helper()
	for i := 0; i < 10; i++ {
		m := recv(t, c)
		if m["type"] != EventPresence {
			return m
		}
	}
	t.Fatal("saw only presence frames")
	return nil
}

func expectNone(t *testing.T, c *Client) {
	t.Helper()
	select {
	case raw := <-c.Send:
		t.Fatalf("unexpected payload on conn %s: %s", c.ConnID, raw)
	case <-time.After(50 * time.Millisecond):
	}
}

type fakePresence struct {
	mu       sync.Mutex
	status   map[string]PresenceStatus
	offlines int
	failNext bool
}

func newFakePresence() *fakePresence {
	return &fakePresence{status: make(map[string]PresenceStatus)}
}

func (f *fakePresence) MarkOnline(_ context.Context, userID, connID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.status[userID] = PresenceStatus{
		UserID: userID, Online: true, ConnID: connID,
		LastSeenMS: time.Now().UnixMilli(),
	}
	return nil
}

func (f *fakePresence) MarkOffline(_ context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.offlines++
	st := f.status[userID]
	st.UserID = userID
	st.Online = false
	st.ConnID = ""
	st.LastSeenMS = time.Now().UnixMilli()
	f.status[userID] = st
	return nil
}

func (f *fakePresence) GetStatus(_ context.Context, userID string) (PresenceStatus, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failNext {
		f.failNext = false
		return PresenceStatus{UserID: userID, Online: false}, errors.New("store down")
	}
	st, ok := f.status[userID]
	if !ok {
		return PresenceStatus{UserID: userID, Online: false}, nil
	}
	return st, nil
}

func (f *fakePresence) OnlineUsers(_ context.Context) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []string
	for _, st := range f.status {
		if st.Online {
			out = append(out, st.UserID)
		}
	}
	return out, nil
}

func (f *fakePresence) offlineCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.offlines
}

type fakeUnread struct {
	mu     sync.Mutex
	counts map[string]int64 // user|channel -> count
	incrs  map[string]int   // user|channel -> Incr call count
}

func newFakeUnread() *fakeUnread {
	return &fakeUnread{counts: make(map[string]int64), incrs: make(map[string]int)}
}

func uckey(user, channel string) string { return user + "|" + channel }

func (f *fakeUnread) Incr(_ context.Context, userID, channelID string) (int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	k := uckey(userID, channelID)
	f.counts[k]++
	f.incrs[k]++
	return f.counts[k], nil
}

func (f *fakeUnread) Reset(_ context.Context, userID, channelID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.counts[uckey(userID, channelID)] = 0
	return nil
}

func (f *fakeUnread) GetAll(_ context.Context, userID string) (map[string]int64, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make(map[string]int64)
	for k, v := range f.counts {
		if len(k) > len(userID) && k[:len(userID)] == userID && k[len(userID)] == '|' {
			out[k[len(userID)+1:]] = v
		}
	}
	return out, nil
}

func (f *fakeUnread) incrCalls(user, channel string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.incrs[uckey(user, channel)]
}

func (f *fakeUnread) count(user, channel string) int64 {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.counts[uckey(user, channel)]
}

type fakeDurable struct {
	mu          sync.Mutex
	members     map[string][]string
	persisted   []*Message
	failPersist bool
	newlyActive bool

	persistDone chan struct{}
}

func newFakeDurable() *fakeDurable {
	return &fakeDurable{
		members:     make(map[string][]string),
		persistDone: make(chan struct{}, 16),
	}
}

func (f *fakeDurable) IsChannelNewlyActive(_ context.Context, _ string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.newlyActive, nil
}

func (f *fakeDurable) Persist(_ context.Context, m *Message) error {
	f.mu.Lock()
	fail := f.failPersist
	f.persisted = append(f.persisted, m)
	f.mu.Unlock()
	f.persistDone <- struct{}{}
	if fail {
		return errors.New("store rejected write")
	}
	return nil
}

func (f *fakeDurable) DurableMembersOf(_ context.Context, channelID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.members[channelID], nil
}

func (f *fakeDurable) waitPersist(t *testing.T) {
	t.Helper()
	select {
	case <-f.persistDone:
	case <-time.After(2 * time.Second):
		t.Fatal("persist was not called")
	}
}

func (f *fakeDurable) persistCalls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.persisted)
}

type fakeIdentity struct {
	users map[string]string // token -> userID
}

func (f *fakeIdentity) Resolve(_ context.Context, token string) (string, error) {
	if u, ok := f.users[token]; ok {
		return u, nil
	}
	return "", errors.New("unknown token")
}
