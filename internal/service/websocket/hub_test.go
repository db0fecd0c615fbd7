package websocket

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"petwatch/internal/logger"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeConn struct {
	mu       sync.Mutex
	messages [][]byte
	failWith error
	closed   bool
}

func (c *fakeConn) WriteMessage(_ int, data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.failWith != nil {
		return c.failWith
	}
	c.messages = append(c.messages, append([]byte(nil), data...))
	return nil
}

func (c *fakeConn) SetWriteDeadline(time.Time) error { return nil }

func (c *fakeConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true
	return nil
}

func (c *fakeConn) received() [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([][]byte(nil), c.messages...)
}

func (c *fakeConn) isClosed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.closed
}

func startHub(t *testing.T) (*HubService, context.CancelFunc, <-chan struct{}) {
	t.Helper()
	hub := NewHubService(logger.NewNop())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		hub.Run(ctx)
		close(done)
	}()
	t.Cleanup(func() {
		cancel()
		<-done
	})
	return hub, cancel, done
}

func TestHub_BroadcastReachesAllClients(t *testing.T) {
	hub, _, _ := startHub(t)
	ctx := context.Background()

	a, b := &fakeConn{}, &fakeConn{}
	require.NoError(t, hub.Register(ctx, a))
	require.NoError(t, hub.Register(ctx, b))
	require.NoError(t, hub.Broadcast(ctx, []byte("hello")))
	// A second round trip through the loop guarantees the first broadcast finished.
	require.NoError(t, hub.Broadcast(ctx, []byte("again")))

	assert.Eventually(t, func() bool { return len(a.received()) == 2 && len(b.received()) == 2 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, []byte("hello"), a.received()[0])
	assert.Equal(t, 2, hub.GetClientCount())
}

func TestHub_FailingClientIsDropped(t *testing.T) {
	hub, _, _ := startHub(t)
	ctx := context.Background()

	good, bad := &fakeConn{}, &fakeConn{failWith: errors.New("broken pipe")}
	require.NoError(t, hub.Register(ctx, good))
	require.NoError(t, hub.Register(ctx, bad))
	require.NoError(t, hub.Broadcast(ctx, []byte("one")))
	require.NoError(t, hub.Broadcast(ctx, []byte("two")))

	assert.Eventually(t, func() bool { return hub.GetClientCount() == 1 }, time.Second, 5*time.Millisecond)
	assert.True(t, bad.isClosed())
	assert.Eventually(t, func() bool { return len(good.received()) == 2 }, time.Second, 5*time.Millisecond)
}

func TestHub_Unregister(t *testing.T) {
	hub, _, _ := startHub(t)
	ctx := context.Background()

	c := &fakeConn{}
	require.NoError(t, hub.Register(ctx, c))
	require.NoError(t, hub.Unregister(ctx, c))

	assert.Eventually(t, func() bool { return hub.GetClientCount() == 0 }, time.Second, 5*time.Millisecond)
	assert.True(t, c.isClosed())
}

func TestHub_StopClosesClientsAndBroadcastHonoursContext(t *testing.T) {
	hub, cancel, done := startHub(t)

	c := &fakeConn{}
	require.NoError(t, hub.Register(context.Background(), c))
	cancel()
	<-done

	assert.True(t, c.isClosed())
	assert.Equal(t, 0, hub.GetClientCount())

	ctx, stop := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer stop()
	assert.ErrorIs(t, hub.Broadcast(ctx, []byte("late")), context.DeadlineExceeded)
}
