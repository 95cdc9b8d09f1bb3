package eventbus

import (
	"context"
	"sync"
	"testing"
	"time"

	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestPublish_DeliversToSubscribers(t *testing.T) {
	b := NewWithConfig(2, 10)
	defer b.Close(context.Background())

	var mu sync.Mutex
	var got []string
	var wg sync.WaitGroup
	wg.Add(2)

	record := func(tag string) Handler {
		return func(e Event) {
			defer wg.Done()
			mu.Lock()
			defer mu.Unlock()
			got = append(got, tag+":"+string(e.Type))
		}
	}
	b.Subscribe(EventTypeNight, record("a"))
	b.Subscribe(EventTypeNight, record("b"))
	b.Subscribe(EventTypeDay, func(Event) { t.Error("day handler must not run") })

	b.Publish(Event{Type: EventTypeNight, Data: map[string]interface{}{"level": 10}})
	wg.Wait()

	mu.Lock()
	defer mu.Unlock()
	if len(got) != 2 {
		t.Errorf("got %v, want two deliveries", got)
	}
}

func TestPublish_RecoversFromPanic(t *testing.T) {
	b := NewWithConfig(1, 10)
	defer b.Close(context.Background())

	done := make(chan struct{})
	b.Subscribe(EventTypePresence, func(Event) { panic("boom") })
	b.Subscribe(EventTypePresence, func(Event) { close(done) })

	b.Publish(Event{Type: EventTypePresence})
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker died after a handler panic")
	}
}

func TestPublish_DropsWhenQueueFull(t *testing.T) {
	b := NewWithConfig(1, 1)

	release := make(chan struct{})
	started := make(chan struct{}, 1)
	var mu sync.Mutex
	calls := 0
	b.Subscribe(EventTypeDay, func(Event) {
		mu.Lock()
		calls++
		mu.Unlock()
		select {
		case started <- struct{}{}:
		default:
		}
		<-release
	})

	b.Publish(Event{Type: EventTypeDay})
	<-started
	// The worker is blocked: one event fits the queue, the rest are dropped.
	for i := 0; i < 5; i++ {
		b.Publish(Event{Type: EventTypeDay})
	}
	close(release)
	b.Close(context.Background())

	mu.Lock()
	defer mu.Unlock()
	if calls != 2 {
		t.Errorf("handler ran %d times, want 2", calls)
	}
}

func TestClose_IsIdempotentAndStopsPublishing(t *testing.T) {
	b := New()
	b.Subscribe(EventTypeNight, func(Event) { t.Error("handler ran after Close") })

	b.Close(context.Background())
	b.Close(context.Background())
	b.Publish(Event{Type: EventTypeNight})
}

func TestParseEventType(t *testing.T) {
	for _, et := range EventTypes() {
		got, err := ParseEventType(string(et))
		if err != nil || got != et {
			t.Errorf("ParseEventType(%q) = %q, %v", et, got, err)
		}
	}
	if _, err := ParseEventType("sunrise"); err == nil {
		t.Error("ParseEventType(sunrise) should fail")
	}
}
