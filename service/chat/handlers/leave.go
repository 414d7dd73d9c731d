package handlers

import (
	"PulseProject/service/chat"
	"PulseProject/tools/errs"
)

type LeaveHandler struct{}

func NewLeaveHandler() chat.Handler  { return &LeaveHandler{} }
func (h *LeaveHandler) Type() string { return chat.FrameLeave }

func (h *LeaveHandler) Handle(ctx *chat.Context, f *chat.Frame, c *chat.Client) error {
	if f.ChannelID == "" {
		return errs.New("leave frame missing channel_id")
	}
	return ctx.S.LeaveRoom(c, f.ChannelID)
}
