package repository

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterReader(n *atomic.Int32) ReadFunc {
	return func(_ context.Context, path string) (Snapshot, error) {
		v := n.Add(1)
		return Snapshot{Path: path, Value: []byte{byte('0' + v)}}, nil
	}
}

func receive(t *testing.T, sub *Subscription) Snapshot {
	t.Helper()
	select {
	case s, ok := <-sub.C:
		require.True(t, ok, "subscription closed")
		return s
	case <-time.After(time.Second):
		t.Fatal("no snapshot delivered")
		return Snapshot{}
	}
}

func TestBroker_DeliversInitialAndRelatedChanges(t *testing.T) {
	b := NewBroker(nil)
	var reads atomic.Int32

	sub, err := b.Subscribe(context.Background(), "files", counterReader(&reads))
	require.NoError(t, err)
	defer sub.Close()

	assert.Equal(t, "1", string(receive(t, sub).Value))

	b.Notify("files/k1/showOnSite")
	assert.Equal(t, "2", string(receive(t, sub).Value))

	b.Notify("contact_info")
	select {
	case s := <-sub.C:
		t.Fatalf("unexpected delivery %s", s.Value)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestBroker_CloseEndsStream(t *testing.T) {
	b := NewBroker(nil)
	var reads atomic.Int32

	sub, err := b.Subscribe(context.Background(), "files", counterReader(&reads))
	require.NoError(t, err)
	assert.Equal(t, 1, b.Subscribers())

	sub.Close()
	sub.Close()

	for range sub.C {
	}
	assert.Equal(t, 0, b.Subscribers())
}

func TestBroker_ContextCancelEndsStream(t *testing.T) {
	b := NewBroker(nil)
	var reads atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())

	sub, err := b.Subscribe(ctx, "files", counterReader(&reads))
	require.NoError(t, err)
	<-sub.C

	cancel()
	_, ok := <-sub.C
	assert.False(t, ok)
}

func TestBroker_InitialReadError(t *testing.T) {
	b := NewBroker(nil)
	failing := func(context.Context, string) (Snapshot, error) { return Snapshot{}, errors.New("offline") }

	sub, err := b.Subscribe(context.Background(), "files", failing)

	assert.EqualError(t, err, "offline")
	assert.Nil(t, sub)
	assert.Equal(t, 0, b.Subscribers())
}

func TestDeliverLatest_ReplacesPending(t *testing.T) {
	out := make(chan Snapshot, 1)
	deliverLatest(out, Snapshot{Value: []byte("1")})
	deliverLatest(out, Snapshot{Value: []byte("2")})

	assert.Equal(t, "2", string((<-out).Value))
}

type failingRelay struct{ calls atomic.Int32 }

func (f *failingRelay) Publish(context.Context, string) error {
	f.calls.Add(1)
	return errors.New("redis down")
}

func TestBroker_AnnounceWakesLocalSubscribersWhenRelayFails(t *testing.T) {
	b := NewBroker(nil)
	var reads atomic.Int32
	sub, err := b.Subscribe(context.Background(), "site_documents", counterReader(&reads))
	require.NoError(t, err)
	defer sub.Close()
	receive(t, sub)

	relay := &failingRelay{}
	b.Announce(context.Background(), relay, "site_documents/k1")

	assert.Equal(t, "2", string(receive(t, sub).Value))
	assert.Equal(t, int32(1), relay.calls.Load())
	assert.Equal(t, int64(1), b.RelayFailures())
}

func TestBroker_AnnounceWithoutRelay(t *testing.T) {
	b := NewBroker(nil)
	b.Announce(context.Background(), nil, "files")
	b.Announce(context.Background(), b, "files")
	assert.Zero(t, b.RelayFailures())
}
