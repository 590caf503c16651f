package channels_test

import (
	"testing"
	"time"

	"github.com/alkime/voiceprompt/pkg/channels"
	"github.com/stretchr/testify/assert"
)

type sender func(ch chan int, v int) error

func nonBlock(ch chan int, v int) error { return channels.SendNonBlock(ch, v) }

func withTimeout(ch chan int, v int) error {
	return channels.SendWithTimeout(ch, v, 5*time.Millisecond)
}

func latest(ch chan int, v int) error { return channels.SendLatest(ch, v) }

// chanOf returns a channel of the given capacity holding vals, closed if asked.
func chanOf(capacity int, closed bool, vals ...int) chan int {
	ch := make(chan int, capacity)
	for _, v := range vals {
		ch <- v
	}
	if closed {
		close(ch)
	}
	return ch
}

func TestSenders(t *testing.T) {
	tests := []struct {
		name    string
		send    sender
		ch      func() chan int
		wantErr error
		// remaining buffer contents after the send
		want []int
	}{
		{"non-block room", nonBlock, func() chan int { return chanOf(2, false) }, nil, []int{7}},
		{"non-block full", nonBlock, func() chan int { return chanOf(1, false, 1) }, channels.ErrChannelFull, []int{1}},
		{"non-block unbuffered", nonBlock, func() chan int { return chanOf(0, false) }, channels.ErrChannelFull, nil},
		{"non-block closed", nonBlock, func() chan int { return chanOf(2, true, 1) }, channels.ErrChannelClosed, []int{1}},

		{"timeout room", withTimeout, func() chan int { return chanOf(2, false) }, nil, []int{7}},
		{"timeout full", withTimeout, func() chan int { return chanOf(1, false, 1) }, channels.ErrChannelTimeout, []int{1}},
		{"timeout unbuffered", withTimeout, func() chan int { return chanOf(0, false) }, channels.ErrChannelTimeout, nil},
		{"timeout closed", withTimeout, func() chan int { return chanOf(2, true, 1) }, channels.ErrChannelClosed, []int{1}},

		{"latest room", latest, func() chan int { return chanOf(2, false) }, nil, []int{7}},
		{"latest evicts oldest", latest, func() chan int { return chanOf(2, false, 1, 2) }, channels.ErrChannelFull, []int{2, 7}},
		{"latest closed", latest, func() chan int { return chanOf(1, true) }, channels.ErrChannelClosed, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ch := tt.ch()

			err := tt.send(ch, 7)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				assert.NoError(t, err)
			}

			assert.Equal(t, tt.want, channels.ReceiveAll(ch, time.Millisecond, 0))
		})
	}
}

func TestSendWithTimeout_Receiver(t *testing.T) {
	ch := make(chan int)
	go func() { <-ch }()

	assert.NoError(t, channels.SendWithTimeout(ch, 42, time.Second))
}

func TestReceiveAll(t *testing.T) {
	t.Run("stops at close", func(t *testing.T) {
		ch := make(chan string, 3)
		ch <- "a"
		ch <- "b"
		close(ch)
		assert.Equal(t, []string{"a", "b"}, channels.ReceiveAll(ch, 10*time.Millisecond, 0))
	})

	t.Run("stops at limit", func(t *testing.T) {
		ch := make(chan string, 3)
		ch <- "a"
		ch <- "b"
		ch <- "c"
		assert.Equal(t, []string{"a", "b"}, channels.ReceiveAll(ch, 10*time.Millisecond, 2))
	})

	t.Run("stops when idle", func(t *testing.T) {
		ch := make(chan string)
		assert.Empty(t, channels.ReceiveAll(ch, time.Millisecond, 0))
	})
}
