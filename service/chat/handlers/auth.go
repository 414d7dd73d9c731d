package handlers

import (
	"context"
	"time"

	"PulseProject/logger"
	"PulseProject/service/chat"
)

type AuthHandler struct{}

func NewAuthHandler() chat.Handler  { return &AuthHandler{} }
func (h *AuthHandler) Type() string { return chat.FrameAuth }

// Handle resolves the frame's token through the identity collaborator and
// binds the user to the session. The gateway trusts the resolved identity;
// it never inspects credentials itself.
func (h *AuthHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	rctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	userID, err := ctx.S.Identity().Resolve(rctx, f.Token)
	if err != nil {
		logger.Infof("[auth] resolve failed conn=%s: %v", c.ConnID, err)
		c.Enqueue(chat.BuildAuthAck("", false))
		return nil
	}

	if err := ctx.S.Authorize(rctx, c, userID); err != nil {
		logger.Infof("[auth] bind failed conn=%s user=%s: %v", c.ConnID, userID, err)
		c.Enqueue(chat.BuildAuthAck("", false))
		return nil
	}

	c.Enqueue(chat.BuildAuthAck(userID, true))
	return nil
}
