package channels

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// deliverFunc hands one message to a subscriber channel.
type deliverFunc[T any] func(msg T) error

type subscriber[T any] struct {
	deliver  deliverFunc[T]
	inactive atomic.Bool
	dropped  atomic.Int32
}

func (s *subscriber[T]) send(msg T) {
	if s.inactive.Load() {
		s.dropped.Add(1)
		return
	}

	err := s.deliver(msg)
	if err == nil {
		return
	}

	s.dropped.Add(1)
	if errors.Is(err, ErrChannelClosed) {
		s.inactive.Store(true)
	}
}

// Broadcaster fans messages from one input channel out to subscribers. A
// subscriber that cannot keep up loses messages rather than stalling the
// others; how it loses them depends on how it subscribed.
//
// The input channel is closed when the context passed to Run ends, after
// which buffered messages are still delivered.
type Broadcaster[T any] struct {
	subscribers []*subscriber[T]
	input       chan T
	started     atomic.Bool
	wg          sync.WaitGroup
}

// NewBroadcaster creates a broadcaster with no subscribers.
func NewBroadcaster[T any]() *Broadcaster[T] {
	return &Broadcaster[T]{}
}

// Subscribe drops messages while ch is full.
// Must be called before Run.
func (f *Broadcaster[T]) Subscribe(ch chan<- T) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	return f.add(func(msg T) error { return SendNonBlock(ch, msg) })
}

// SubscribeWithTimeout waits up to timeout for room in ch before dropping.
// Must be called before Run.
func (f *Broadcaster[T]) SubscribeWithTimeout(ch chan<- T, timeout time.Duration) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	if timeout <= 0 {
		return fmt.Errorf("send timeout must be positive, got %s", timeout)
	}

	return f.add(func(msg T) error { return SendWithTimeout(ch, msg, timeout) })
}

// SubscribeLatest evicts the oldest buffered message when ch is full, so the
// newest message always gets through. Suits consumers that only render
// current state. Must be called before Run.
func (f *Broadcaster[T]) SubscribeLatest(ch chan T) error {
	if ch == nil {
		return errors.New("subscriber channel cannot be nil")
	}

	if cap(ch) == 0 {
		return errors.New("latest-only subscriber needs a buffered channel")
	}

	return f.add(func(msg T) error { return SendLatest(ch, msg) })
}

func (f *Broadcaster[T]) add(deliver deliverFunc[T]) error {
	if f.started.Load() {
		return errors.New("broadcaster already started")
	}

	f.subscribers = append(f.subscribers, &subscriber[T]{deliver: deliver})

	return nil
}

// Run starts fanning out and returns the input channel. The broadcaster owns
// it: it is closed once ctx is done, so senders must stop by then or use
// the Send helpers, which treat a closed channel as an error.
func (f *Broadcaster[T]) Run(ctx context.Context) (chan<- T, error) {
	if len(f.subscribers) == 0 {
		return nil, errors.New("no subscribers available")
	}

	if !f.started.CompareAndSwap(false, true) {
		return nil, errors.New("broadcaster already started")
	}

	f.input = make(chan T, len(f.subscribers)*2)

	f.wg.Go(func() {
		for msg := range f.input {
			for _, sub := range f.subscribers {
				sub.send(msg)
			}
		}
	})

	go func() {
		<-ctx.Done()
		close(f.input)
	}()

	return f.input, nil
}

// Wait blocks until every message sent before shutdown has been delivered.
func (f *Broadcaster[T]) Wait() {
	f.wg.Wait()
}

// SubscriberStats reports delivery health for one subscriber, in subscription
// order.
type SubscriberStats struct {
	Dropped  int
	Inactive bool
}

func (f *Broadcaster[T]) Stats() []SubscriberStats {
	stats := make([]SubscriberStats, 0, len(f.subscribers))
	for _, sub := range f.subscribers {
		stats = append(stats, SubscriberStats{
			Dropped:  int(sub.dropped.Load()),
			Inactive: sub.inactive.Load(),
		})
	}

	return stats
}
