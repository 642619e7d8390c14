package events

import (
	"sync"
	"testing"
)

func TestBus_PublishDeliversToTypeSubscriber(t *testing.T) {
	b := NewBus(nil)

	var got []Event
	b.Subscribe("security.file.denied", func(e Event) {
		got = append(got, e)
	})

	b.Publish(New("security.file.denied", "FileValidator", map[string]string{"target": "user://../x"}))
	b.Publish(New("security.url.denied", "URLValidator", nil))

	if len(got) != 1 {
		t.Fatalf("expected 1 delivered event, got %d", len(got))
	}
	if got[0].Data["target"] != "user://../x" {
		t.Errorf("unexpected event data: %v", got[0].Data)
	}
}

func TestBus_WildcardSubscriberSeesEverything(t *testing.T) {
	b := NewBus(nil)

	count := 0
	b.Subscribe("", func(Event) { count++ })

	b.Publish(New("security.file.denied", "FileValidator", nil))
	b.Publish(New("security.process.denied", "ProcessValidator", nil))

	if count != 2 {
		t.Errorf("wildcard subscriber saw %d events, want 2", count)
	}
}

func TestBus_EventHasIDAndTimestamp(t *testing.T) {
	e := New("security.url.denied", "URLValidator", nil)
	if e.ID == "" {
		t.Error("event ID should not be empty")
	}
	if e.Timestamp.IsZero() {
		t.Error("event timestamp should be set")
	}
	other := New("security.url.denied", "URLValidator", nil)
	if e.ID == other.ID {
		t.Error("event IDs should be unique")
	}
}

func TestBus_ConcurrentPublish(t *testing.T) {
	b := NewBus(nil)

	var mu sync.Mutex
	count := 0
	b.Subscribe("tick", func(Event) {
		mu.Lock()
		count++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < 25; j++ {
				b.Publish(New("tick", "test", nil))
			}
		}()
	}
	wg.Wait()

	if count != 400 {
		t.Errorf("delivered %d events, want 400", count)
	}
}
