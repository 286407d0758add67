package motorsim

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func receive(t *testing.T, ch <-chan string) string {
	t.Helper()
	select {
	case msg, ok := <-ch:
		require.True(t, ok, "channel closed")
		return msg
	case <-time.After(time.Second):
		require.Fail(t, "timeout waiting for message")
		return ""
	}
}

func TestHub_EveryViewerGetsEveryMessageInOrder(t *testing.T) {
	hub := NewHub(16)
	defer hub.Close()

	ctx := context.Background()
	viewers := []<-chan string{hub.Subscribe(ctx), hub.Subscribe(ctx), hub.Subscribe(ctx)}
	require.Equal(t, 3, hub.SubscriberCount())

	for i := 0; i < 10; i++ {
		require.Zero(t, hub.Publish(fmt.Sprintf("m%d", i)))
	}

	for v, ch := range viewers {
		for i := 0; i < 10; i++ {
			require.Equal(t, fmt.Sprintf("m%d", i), receive(t, ch), "viewer %d", v)
		}
	}
}

func TestHub_NoReplayForLateViewers(t *testing.T) {
	hub := NewHub(16)
	defer hub.Close()

	early := hub.Subscribe(context.Background())
	hub.Publish("before")

	late := hub.Subscribe(context.Background())
	hub.Publish("after")

	require.Equal(t, "before", receive(t, early))
	require.Equal(t, "after", receive(t, early))
	require.Equal(t, "after", receive(t, late))

	select {
	case msg := <-late:
		t.Fatalf("unexpected message %q", msg)
	default:
	}
}

func TestHub_LaggingViewerIsDisconnected(t *testing.T) {
	hub := NewHub(2)
	defer hub.Close()

	slow := hub.Subscribe(context.Background())
	fast := hub.Subscribe(context.Background())

	require.Zero(t, hub.Publish("a"))
	require.Equal(t, "a", receive(t, fast))
	require.Zero(t, hub.Publish("b"))
	require.Equal(t, "b", receive(t, fast))

	// slow holds a and b; the third message overflows it
	require.Equal(t, 1, hub.Publish("c"))
	require.Equal(t, "c", receive(t, fast))
	require.Equal(t, 1, hub.SubscriberCount())

	// buffered messages drain, then the channel reports closed
	require.Equal(t, "a", receive(t, slow))
	require.Equal(t, "b", receive(t, slow))
	_, ok := <-slow
	require.False(t, ok)
}

func TestHub_PublishNeverBlocks(t *testing.T) {
	hub := NewHub(1)
	defer hub.Close()

	hub.Subscribe(context.Background()) // never read

	done := make(chan struct{})
	go func() {
		for i := 0; i < 100; i++ {
			hub.Publish("x")
		}
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("publish blocked on a stalled viewer")
	}
}

func TestHub_ContextCancellationUnsubscribes(t *testing.T) {
	hub := NewHub(4)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	ch := hub.Subscribe(ctx)
	require.Equal(t, 1, hub.SubscriberCount())

	cancel()
	require.Eventually(t, func() bool { return hub.SubscriberCount() == 0 }, time.Second, 5*time.Millisecond)

	_, ok := <-ch
	require.False(t, ok)
}

func TestHub_Close(t *testing.T) {
	hub := NewHub(4)
	ch := hub.Subscribe(context.Background())

	hub.Close()
	hub.Close()

	_, ok := <-ch
	require.False(t, ok)
	require.Zero(t, hub.Publish("ignored"))

	late := hub.Subscribe(context.Background())
	_, ok = <-late
	require.False(t, ok)
}

func TestHub_ConcurrentSubscribeAndPublish(t *testing.T) {
	hub := NewHub(64)
	defer hub.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := hub.Subscribe(ctx)
			prev := -1
			for msg := range ch {
				var n int
				_, err := fmt.Sscanf(msg, "m%d", &n)
				if err != nil || n <= prev {
					t.Errorf("out of order: %q after %d", msg, prev)
					return
				}
				prev = n
				if n == 199 {
					return
				}
			}
		}()
	}

	require.Eventually(t, func() bool { return hub.SubscriberCount() == 8 }, time.Second, time.Millisecond)
	for i := 0; i < 200; i++ {
		hub.Publish(fmt.Sprintf("m%d", i))
	}
	wg.Wait()
}
