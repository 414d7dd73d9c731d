package natsx

import (
	"context"
	"errors"
	"sync"

	"PulseProject/logger"
)

var errNotStarted = errors.New("natsx not started")

// Package-level singleton. Routes and handlers registered before StartNats
// are cached and replayed once the connection is up, so wiring order in
// main does not matter.

var (
	gMu        sync.Mutex
	gClient    *NatsxClient
	gStartOnce sync.Once

	pendingRoutes   []NatsxRoute
	pendingHandlers map[string]NatsxHandler
	pendingMws      []NatsxMiddleware
)

func init() {
	pendingHandlers = make(map[string]NatsxHandler)
}

// UseGlobalMiddlewares appends middlewares applied to every subscription.
// Call before StartNats.
func UseGlobalMiddlewares(mws ...NatsxMiddleware) {
	gMu.Lock()
	defer gMu.Unlock()
	pendingMws = append(pendingMws, mws...)
}

// RegisterRoute records a route; it takes effect immediately when the
// client is already running.
func RegisterRoute(r NatsxRoute) error {
	gMu.Lock()
	defer gMu.Unlock()
	if gClient != nil {
		return gClient.RegisterRoute(r)
	}
	pendingRoutes = append(pendingRoutes, r)
	return nil
}

// RegisterHandler binds a handler to a biz route.
func RegisterHandler(biz string, h NatsxHandler) error {
	gMu.Lock()
	defer gMu.Unlock()
	if gClient != nil {
		return gClient.Subscribe(biz, h)
	}
	pendingHandlers[biz] = h
	return nil
}

// StartNats connects and replays everything registered so far. Safe to call
// once; later calls are no-ops.
func StartNats(cfg NatsxConfig) error {
	var startErr error
	gStartOnce.Do(func() {
		gMu.Lock()
		defer gMu.Unlock()

		cli, err := NewNatsxClient(cfg, pendingMws...)
		if err != nil {
			startErr = err
			return
		}
		for _, r := range pendingRoutes {
			if err := cli.RegisterRoute(r); err != nil {
				startErr = err
				return
			}
		}
		for biz, h := range pendingHandlers {
			if err := cli.Subscribe(biz, h); err != nil {
				startErr = err
				return
			}
		}
		gClient = cli
		pendingRoutes = nil
		pendingHandlers = make(map[string]NatsxHandler)
		logger.Infof("[natsx] connected servers=%v routes replayed", cfg.Servers)
	})
	return startErr
}

// Publish sends through the global client.
func Publish(ctx context.Context, biz string, data []byte, hdr map[string]string) error {
	gMu.Lock()
	cli := gClient
	gMu.Unlock()
	if cli == nil {
		return errNotStarted
	}
	return cli.Publish(ctx, biz, data, hdr)
}

// PublishOnce sends with a dedup id through the global client.
func PublishOnce(ctx context.Context, biz string, data []byte, hdr map[string]string, msgID string) error {
	gMu.Lock()
	cli := gClient
	gMu.Unlock()
	if cli == nil {
		return errNotStarted
	}
	return cli.PublishOnce(ctx, biz, data, hdr, msgID)
}

// StopNats drains the global client. Nil-safe.
func StopNats() {
	gMu.Lock()
	cli := gClient
	gClient = nil
	gMu.Unlock()
	if cli != nil {
		if err := cli.Close(); err != nil {
			logger.Warnf("[natsx] drain: %v", err)
		}
	}
}
