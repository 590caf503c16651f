// Package channels holds small generic helpers for fanning values out over
// Go channels without letting a slow consumer stall the producer.
package channels

import (
	"errors"
)

var (
	ErrChannelClosed  = errors.New("channel closed")
	ErrChannelTimeout = errors.New("send timeout")
	ErrChannelFull    = errors.New("channel full")
)
