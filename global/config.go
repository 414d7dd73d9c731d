package global

import (
	"context"
	"strings"
	"time"

	"PulseProject/service/natsx"
	"PulseProject/service/storage"
	"PulseProject/service/storage/mongoimpl"
	"PulseProject/tools"
	"PulseProject/tools/ids"
	"PulseProject/tools/security"
)

// Biz names of the broker routes this gateway owns.
const (
	BizOutboundEvents = "outbound.events"
)

func ConfigIds() {
	ids.SetNodeID(int64(tools.GetEnvInt("NODE_ID", 100)))
}

// GetJwtSecret reads the HMAC key for identity verification. The default is
// for local development only.
func GetJwtSecret() []byte {
	return []byte(tools.GetEnv("JWT_SECRET", "mN9b1f8zPq+W2xjX/45sKcVd0TfyoG+3Hp5Z8q9Rj1o="))
}

func JwtOptions() security.Options {
	return security.DefaultOptions(GetJwtSecret())
}

func ConfigRedis() error {
	return storage.InitRedis(storage.Config{
		Addr:     tools.GetEnv("REDIS_ADDR", "127.0.0.1:6379"),
		Password: tools.GetEnv("REDIS_PASSWORD", ""),
		DB:       tools.GetEnvInt("REDIS_DB", 0),
	})
}

// ConfigMongo dials the durable store synchronously; the pipeline needs it
// before the first message, not eventually.
func ConfigMongo(ctx context.Context) (*mongoimpl.MongoDurable, error) {
	cctx, cancel := context.WithTimeout(ctx, 15*time.Second)
	defer cancel()

	db, err := mongoimpl.Connect(cctx, &mongoimpl.Config{
		Uri:         tools.GetEnv("MONGO_URI", "mongodb://localhost:27017"),
		Database:    tools.GetEnv("MONGO_DB", "pulse"),
		Username:    tools.GetEnv("MONGO_USER", ""),
		Password:    tools.GetEnv("MONGO_PASSWORD", ""),
		MaxPoolSize: tools.GetEnvInt("MONGO_POOL", 20),
		MaxRetry:    3,
	})
	if err != nil {
		return nil, err
	}
	durable := mongoimpl.NewMongoDurable(db)
	if err := durable.EnsureIndexes(cctx); err != nil {
		return nil, err
	}
	return durable, nil
}

func NatsConfig(gatewayID string) natsx.NatsxConfig {
	return natsx.NatsxConfig{
		Servers: strings.Split(tools.GetEnv("NATS_URLS", "nats://127.0.0.1:4222"), ","),
		Name:    gatewayID,
	}
}

// OutboundRoute is the bridge's subscription. No queue group: every gateway
// node must see every envelope, because the target user may be connected to
// any of them.
func OutboundRoute() natsx.NatsxRoute {
	return natsx.NatsxRoute{
		Biz:     BizOutboundEvents,
		Subject: tools.GetEnv("OUTBOUND_SUBJECT", "pulse.outbound.events"),
		Mode:    natsx.Core,
	}
}
