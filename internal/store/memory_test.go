package store

import (
	"sync"
	"testing"
	"time"
)

func TestNewMemoryStore(t *testing.T) {
	store := NewMemoryStore()
	if store == nil {
		t.Fatal("NewMemoryStore() = nil")
	}

	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items, want 0", len(store.GetAll()))
	}
}

func TestMemoryStore_Update(t *testing.T) {
	store := NewMemoryStore()

	store.Update(TargetStatus{
		ContextID:      "ctx-1",
		StreamerID:     "foo",
		State:          "live",
		Code:           1,
		IntervalMs:     3000,
		ResponseTimeMs: 100,
		CheckedAt:      time.Now(),
	})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].StreamerID != "foo" {
		t.Errorf("GetAll()[0].StreamerID = %v, want %v", all[0].StreamerID, "foo")
	}
	if all[0].State != "live" {
		t.Errorf("GetAll()[0].State = %v, want %v", all[0].State, "live")
	}
}

func TestMemoryStore_UpdateOverwrites(t *testing.T) {
	store := NewMemoryStore()

	store.Update(TargetStatus{ContextID: "ctx-1", State: "live"})
	store.Update(TargetStatus{ContextID: "ctx-1", State: "offline"})

	all := store.GetAll()
	if len(all) != 1 {
		t.Fatalf("GetAll() = %v items, want 1", len(all))
	}
	if all[0].State != "offline" {
		t.Errorf("GetAll()[0].State = %v, want %v", all[0].State, "offline")
	}
}

func TestMemoryStore_GetAllOrdered(t *testing.T) {
	store := NewMemoryStore()

	store.Update(TargetStatus{ContextID: "c", State: "live"})
	store.Update(TargetStatus{ContextID: "a", State: "offline"})
	store.Update(TargetStatus{ContextID: "b", State: "offline"})

	all := store.GetAll()
	if len(all) != 3 {
		t.Fatalf("GetAll() = %v items, want 3", len(all))
	}
	for i, want := range []string{"a", "b", "c"} {
		if all[i].ContextID != want {
			t.Errorf("GetAll()[%d].ContextID = %v, want %v", i, all[i].ContextID, want)
		}
	}
}

func TestMemoryStore_Remove(t *testing.T) {
	store := NewMemoryStore()
	store.Update(TargetStatus{ContextID: "ctx-1", StreamerID: "foo", State: "live"})

	ch := store.Subscribe()
	defer store.Unsubscribe(ch)

	store.Remove("ctx-1")
	store.Remove("unknown") // ignored, no notification

	if len(store.GetAll()) != 0 {
		t.Errorf("GetAll() = %v items after Remove, want 0", len(store.GetAll()))
	}

	select {
	case got := <-ch:
		if !got.Removed || got.ContextID != "ctx-1" || got.StreamerID != "foo" {
			t.Errorf("removal notification = %+v, want Removed ctx-1/foo", got)
		}
	case <-time.After(time.Second):
		t.Fatal("no removal notification")
	}

	select {
	case got := <-ch:
		t.Errorf("unexpected notification for unknown id: %+v", got)
	default:
	}
}

func TestMemoryStore_Get(t *testing.T) {
	store := NewMemoryStore()
	store.Update(TargetStatus{ContextID: "ctx-1", StreamerID: "foo", State: "live"})

	got, ok := store.Get("ctx-1")
	if !ok || got.StreamerID != "foo" || got.State != "live" {
		t.Errorf("Get(ctx-1) = %+v, %v", got, ok)
	}
	if _, ok := store.Get("unknown"); ok {
		t.Error("Get(unknown) reported a status")
	}

	store.Remove("ctx-1")
	if _, ok := store.Get("ctx-1"); ok {
		t.Error("Get(ctx-1) reported a status after Remove")
	}
}

func TestMemoryStore_UpdateClearsRemoved(t *testing.T) {
	store := NewMemoryStore()
	store.Update(TargetStatus{ContextID: "ctx-1", Removed: true})

	if all := store.GetAll(); all[0].Removed {
		t.Error("stored status carries Removed")
	}
}

func TestMemoryStore_Subscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	if ch == nil {
		t.Fatal("Subscribe() = nil")
	}

	go func() {
		store.Update(TargetStatus{ContextID: "ctx-1", State: "live"})
	}()

	select {
	case result := <-ch:
		if result.ContextID != "ctx-1" {
			t.Errorf("received ContextID = %v, want %v", result.ContextID, "ctx-1")
		}
	case <-time.After(1 * time.Second):
		t.Error("Subscribe() channel did not receive update")
	}
}

func TestMemoryStore_MultipleSubscribers(t *testing.T) {
	store := NewMemoryStore()

	ch1 := store.Subscribe()
	ch2 := store.Subscribe()
	ch3 := store.Subscribe()

	go func() {
		store.Update(TargetStatus{ContextID: "ctx-1", State: "live"})
	}()

	received := 0
	timeout := time.After(1 * time.Second)

	for received < 3 {
		select {
		case <-ch1:
			received++
		case <-ch2:
			received++
		case <-ch3:
			received++
		case <-timeout:
			t.Fatalf("Only received %d/3 updates", received)
		}
	}
}

func TestMemoryStore_Unsubscribe(t *testing.T) {
	store := NewMemoryStore()

	ch := store.Subscribe()
	store.Unsubscribe(ch)
	store.Unsubscribe(ch)

	select {
	case _, ok := <-ch:
		if ok {
			t.Error("Unsubscribe() channel should be closed")
		}
	case <-time.After(100 * time.Millisecond):
		t.Error("Unsubscribe() channel should be closed immediately")
	}
}

func TestMemoryStore_SlowSubscriberDoesNotBlock(t *testing.T) {
	store := NewMemoryStore()

	// create a subscriber but don't read from it
	_ = store.Subscribe()

	ch2 := store.Subscribe()

	done := make(chan bool)

	go func() {
		for i := 0; i < 2*subscriberBuffer; i++ {
			store.Update(TargetStatus{ContextID: "ctx-1", State: "live"})
		}
		done <- true
	}()

	go func() {
		for range ch2 {
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Update() blocked on slow subscriber")
	}
}

func TestMemoryStore_ConcurrentAccess(t *testing.T) {
	store := NewMemoryStore()

	var wg sync.WaitGroup
	numGoroutines := 10
	numUpdates := 100

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				store.Update(TargetStatus{ContextID: "ctx-1", State: "live"})
				if j%10 == 0 {
					store.Remove("ctx-1")
				}
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < numUpdates; j++ {
				_ = store.GetAll()
			}
		}()
	}

	for i := 0; i < numGoroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ch := store.Subscribe()
			time.Sleep(10 * time.Millisecond)
			store.Unsubscribe(ch)
		}()
	}

	wg.Wait()
}
