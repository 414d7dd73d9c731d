package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"PulseProject/global"
	"PulseProject/logger"
	"PulseProject/service/bridge"
	"PulseProject/service/chat"
	"PulseProject/service/chat/handlers"
	"PulseProject/service/natsx"
	"PulseProject/service/storage"
	"PulseProject/tools"
	"PulseProject/tools/security"
)

// jwtIdentity adapts the token verifier to the chat.Identity port.
type jwtIdentity struct {
	opts security.Options
}

func (j jwtIdentity) Resolve(_ context.Context, token string) (string, error) {
	return security.Verify(j.opts, token)
}

// natsOutbound relays per-user events through the broker for gateways that
// hold the target's connections.
type natsOutbound struct {
	hdr map[string]string
}

func (o natsOutbound) PublishUserEvent(ctx context.Context, _, msgID string, payload []byte) error {
	return natsx.PublishOnce(ctx, global.BizOutboundEvents, payload, o.hdr, msgID)
}

func main() {
	global.ConfigIds()

	if err := global.ConfigRedis(); err != nil {
		logger.Fatalf("[main] redis init: %v", err)
	}

	ctx := context.Background()
	durable, err := global.ConfigMongo(ctx)
	if err != nil {
		logger.Fatalf("[main] mongo init: %v", err)
	}

	srv := chat.NewServer(chat.ServerConfig{
		GatewayID:     tools.GetEnv("GATEWAY_ID", "pulse_gw-1"),
		FanoutShards:  tools.GetEnvInt("FANOUT_SHARDS", 8),
		FanoutQueue:   tools.GetEnvInt("FANOUT_QUEUE", 1024),
		SendQueueSize: tools.GetEnvInt("SEND_QUEUE", 256),
	},
		storage.NewRedisPresence(),
		storage.NewRedisUnread(),
		durable,
		jwtIdentity{opts: global.JwtOptions()},
	)

	srv.Disp().Register(handlers.NewAuthHandler())
	srv.Disp().Register(handlers.NewJoinHandler())
	srv.Disp().Register(handlers.NewLeaveHandler())
	srv.Disp().Register(handlers.NewSendHandler())
	srv.Disp().Register(handlers.NewPingHandler())

	// outbound event bridge: broker -> local sessions. Subscription failure at
	// startup is the one fatal path; after that the loop drops and moves on.
	br := bridge.New(srv)
	natsx.UseGlobalMiddlewares(natsx.NatsxIdemMiddleware(natsx.NewMemIdem(5*time.Minute), 0))
	if err := natsx.RegisterRoute(global.OutboundRoute()); err != nil {
		logger.Fatalf("[main] register route: %v", err)
	}
	if err := natsx.RegisterHandler(global.BizOutboundEvents, br.Handler()); err != nil {
		logger.Fatalf("[main] register handler: %v", err)
	}
	if err := natsx.StartNats(global.NatsConfig(srv.ConnMgr().GwID())); err != nil {
		logger.Fatalf("[main] nats start: %v", err)
	}
	if tools.GetEnvBool("OUTBOUND_RELAY", true) {
		srv.Pipeline().SetOutbound(natsOutbound{hdr: tools.ParseHdr(tools.GetEnv("OUTBOUND_HDRS", ""))})
	}

	r := gin.New()
	r.Use(gin.Recovery())
	r.GET("/ws", srv.HandleWS)
	r.GET("/unread", func(c *gin.Context) {
		user := c.Query("user")
		if user == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "user required"})
			return
		}
		counts, err := srv.Unread().GetAll(c.Request.Context(), user)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"user_id": user, "unread": counts})
	})
	r.GET("/presence/:user", func(c *gin.Context) {
		st, err := srv.Presence().GetStatus(c.Request.Context(), c.Param("user"))
		if err != nil {
			// safe offline default still returned alongside the error
			logger.Warnf("[main] presence query user=%s: %v", c.Param("user"), err)
		}
		c.JSON(http.StatusOK, st)
	})

	httpSrv := &http.Server{
		Addr:    tools.GetEnv("LISTEN_ADDR", ":8081"),
		Handler: r,
	}
	go func() {
		logger.Infof("[main] gateway listening addr=%s gw=%s", httpSrv.Addr, srv.ConnMgr().GwID())
		if err := httpSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatalf("[main] http serve: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Infof("[main] shutting down")

	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = httpSrv.Shutdown(sctx)
	natsx.StopNats()
	srv.Close()
}
