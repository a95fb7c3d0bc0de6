package domain

import "errors"

var (
	ErrUserNotFound     = errors.New("user not found")
	ErrCountersNotFound = errors.New("counters not found")
	ErrSnapshotNotFound = errors.New("game snapshot not found")
	ErrGameNotFound     = errors.New("game library entry not found")
	ErrStreamNotLive    = errors.New("stream is not live")
	ErrChannelNotFound  = errors.New("channel not found")
)
