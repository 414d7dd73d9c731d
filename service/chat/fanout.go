package chat

import "hash/fnv"

// Send is one (connection, payload) pair of a fan-out; payloads differ per
// recipient because is_mine is computed relative to each one.
type Send struct {
	C       *Client
	Payload []byte
}

type fanoutJob struct {
	sends []Send
}

// Fanout is a sharded worker pool. Jobs are routed to a shard by key, so two
// fan-outs for the same channel land on the same shard queue and are written
// to each recipient's send queue in submission order. Enqueueing on a slow
// client drops for that client only; the rest of the set is unaffected.
type Fanout struct {
	shards []chan fanoutJob
}

func NewFanout(shards, queue int) *Fanout {
	if shards <= 0 {
		shards = 1
	}
	f := &Fanout{shards: make([]chan fanoutJob, shards)}
	for i := range f.shards {
		ch := make(chan fanoutJob, queue)
		f.shards[i] = ch
		go func() {
			for job := range ch {
				for _, s := range job.sends {
					// best effort: Enqueue never blocks on a slow client
					s.C.Enqueue(s.Payload)
				}
			}
		}()
	}
	return f
}

func (f *Fanout) shardFor(key string) chan fanoutJob {
	h := fnv.New32a()
	_, _ = h.Write([]byte(key))
	return f.shards[h.Sum32()%uint32(len(f.shards))]
}

// Broadcast submits one fan-out, ordered relative to other broadcasts with
// the same key.
func (f *Fanout) Broadcast(key string, sends []Send) {
	if len(sends) == 0 {
		return
	}
	f.shardFor(key) <- fanoutJob{sends: sends}
}

// BroadcastSame fans a single payload to every connection in the set.
func (f *Fanout) BroadcastSame(key string, conns []*Client, payload []byte) {
	if len(conns) == 0 || len(payload) == 0 {
		return
	}
	sends := make([]Send, 0, len(conns))
	for _, c := range conns {
		sends = append(sends, Send{C: c, Payload: payload})
	}
	f.Broadcast(key, sends)
}

// Close stops the workers after the queued jobs drain.
func (f *Fanout) Close() {
	for _, ch := range f.shards {
		close(ch)
	}
}
