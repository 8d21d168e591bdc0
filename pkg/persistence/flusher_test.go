package persistence

import (
	"testing"
	"time"
)

func TestFlusherScheduleDebounces(t *testing.T) {
	adapter := NewMemoryAdapter()
	f := NewFlusher(adapter, 20*time.Millisecond)

	calls := 0
	snapshotFn := func() (Snapshot, error) {
		calls++
		return Snapshot{KeyField: "id", Autoincrement: int64(calls)}, nil
	}

	f.Schedule("widgets", snapshotFn)
	f.Schedule("widgets", snapshotFn)
	f.Schedule("widgets", snapshotFn)

	time.Sleep(60 * time.Millisecond)

	if calls != 1 {
		t.Fatalf("snapshotFn called %d times, want 1 (debounced)", calls)
	}
	if _, present, _ := adapter.Read("widgets"); !present {
		t.Error("expected a write to have landed after the debounce window")
	}
}

func TestFlusherFlushNowBypassesDebounce(t *testing.T) {
	adapter := NewMemoryAdapter()
	f := NewFlusher(adapter, time.Hour)

	err := f.FlushNow("widgets", func() (Snapshot, error) {
		return Snapshot{KeyField: "id"}, nil
	})
	if err != nil {
		t.Fatalf("FlushNow: %v", err)
	}
	if _, present, _ := adapter.Read("widgets"); !present {
		t.Error("expected FlushNow to write immediately")
	}
}

func TestFlusherStopCancelsPending(t *testing.T) {
	adapter := NewMemoryAdapter()
	f := NewFlusher(adapter, 20*time.Millisecond)

	f.Schedule("widgets", func() (Snapshot, error) {
		return Snapshot{KeyField: "id"}, nil
	})
	f.Stop()

	time.Sleep(40 * time.Millisecond)
	if _, present, _ := adapter.Read("widgets"); present {
		t.Error("expected Stop to cancel the pending write")
	}
}

func TestFlusherDefaultDebounce(t *testing.T) {
	f := NewFlusher(NewMemoryAdapter(), 0)
	if f.debounce != 200*time.Millisecond {
		t.Errorf("debounce = %v, want 200ms default", f.debounce)
	}
}
