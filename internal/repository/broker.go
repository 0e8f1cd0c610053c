package repository

import (
	"context"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// Notifier propagates "path changed" signals after a committed write.
type Notifier interface {
	Publish(ctx context.Context, path string) error
}

// ReadFunc loads the current snapshot of a path.
type ReadFunc func(ctx context.Context, path string) (Snapshot, error)

// Subscription streams snapshots of one path. C is closed once the
// subscription ends.
type Subscription struct {
	C      <-chan Snapshot
	cancel context.CancelFunc
	done   chan struct{}
	once   sync.Once
}

// Close stops delivery and waits for the stream to drain.
func (s *Subscription) Close() {
	s.once.Do(func() {
		s.cancel()
		<-s.done
	})
}

type subscriber struct {
	path   string
	signal chan struct{}
}

// Broker fans change signals out to in-process subscribers. Each subscriber
// re-reads its path on a signal, so a burst of writes collapses into one
// delivery of the latest value.
type Broker struct {
	mu   sync.Mutex
	subs map[*subscriber]struct{}
	log  *zap.Logger

	relayFailures atomic.Int64
}

func NewBroker(log *zap.Logger) *Broker {
	if log == nil {
		log = zap.NewNop()
	}
	return &Broker{subs: make(map[*subscriber]struct{}), log: log}
}

// Publish implements Notifier for single-instance deployments.
func (b *Broker) Publish(_ context.Context, path string) error {
	b.Notify(path)
	return nil
}

// Notify wakes every subscriber whose path is related to path.
func (b *Broker) Notify(path string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	for s := range b.subs {
		if !Related(s.path, path) {
			continue
		}
		select {
		case s.signal <- struct{}{}:
		default:
		}
	}
}

// Announce wakes local subscribers of path, then forwards the change through
// relay for other instances. A relay failure is logged and counted but not
// returned, since the write it describes has already landed.
func (b *Broker) Announce(ctx context.Context, relay Notifier, path string) {
	b.Notify(path)
	if relay == nil {
		return
	}
	if self, ok := relay.(*Broker); ok && self == b {
		return
	}
	if err := relay.Publish(ctx, path); err != nil {
		b.relayFailures.Add(1)
		b.log.Warn("change relay failed", zap.String("path", path), zap.Error(err))
	}
}

// RelayFailures returns how many change signals could not be relayed.
func (b *Broker) RelayFailures() int64 {
	return b.relayFailures.Load()
}

// Subscribers returns the number of live subscriptions.
func (b *Broker) Subscribers() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.subs)
}

// Subscribe registers interest in path and streams snapshots produced by read.
func (b *Broker) Subscribe(ctx context.Context, path string, read ReadFunc) (*Subscription, error) {
	s := &subscriber{path: path, signal: make(chan struct{}, 1)}
	b.add(s)

	first, err := read(ctx, path)
	if err != nil {
		b.remove(s)
		return nil, err
	}

	ctx, cancel := context.WithCancel(ctx)
	out := make(chan Snapshot, 1)
	out <- first
	done := make(chan struct{})

	go func() {
		defer close(done)
		defer close(out)
		defer b.remove(s)

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.signal:
				snap, err := read(ctx, path)
				if err != nil {
					if ctx.Err() != nil {
						return
					}
					b.log.Warn("subscription re-read failed", zap.String("path", path), zap.Error(err))
					continue
				}
				deliverLatest(out, snap)
			}
		}
	}()

	return &Subscription{C: out, cancel: cancel, done: done}, nil
}

// deliverLatest replaces an undelivered snapshot instead of blocking.
func deliverLatest(out chan Snapshot, snap Snapshot) {
	select {
	case out <- snap:
		return
	default:
	}
	select {
	case <-out:
	default:
	}
	out <- snap
}

func (b *Broker) add(s *subscriber) {
	b.mu.Lock()
	b.subs[s] = struct{}{}
	b.mu.Unlock()
}

func (b *Broker) remove(s *subscriber) {
	b.mu.Lock()
	delete(b.subs, s)
	b.mu.Unlock()
}
