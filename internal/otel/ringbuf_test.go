package otel

import (
	"sync"
	"testing"
)

func pushCounts(r *RingBuffer, n int) {
	for i := 0; i < n; i++ {
		r.Push(Event{Kind: KindMsgReceived, Count: i})
	}
}

func TestLastReturnsNewestOldestFirst(t *testing.T) {
	tests := []struct {
		name      string
		size      int
		pushed    int
		n         int
		wantFirst int
		wantLen   int
	}{
		{"partial", 8, 8, 3, 5, 3},
		{"wrapped", 4, 6, 4, 2, 4},
		{"wrapped many times", 4, 23, 2, 21, 2},
		{"more than held", 8, 1, 100, 0, 1},
		{"all held", 4, 10, 4, 6, 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := NewRingBuffer(tt.size)
			pushCounts(r, tt.pushed)

			got := r.Last(tt.n)
			if len(got) != tt.wantLen {
				t.Fatalf("len = %d, want %d", len(got), tt.wantLen)
			}
			for i, e := range got {
				if want := tt.wantFirst + i; e.Count != want {
					t.Errorf("[%d].Count = %d, want %d", i, e.Count, want)
				}
			}
		})
	}
}

func TestLastEmpty(t *testing.T) {
	r := NewRingBuffer(8)
	if r.Last(5) != nil {
		t.Error("empty ring should return nil")
	}
	r.Push(Event{Kind: KindStartup})
	if r.Last(0) != nil {
		t.Error("Last(0) should return nil")
	}
	if r.Last(-1) != nil {
		t.Error("Last(-1) should return nil")
	}
}

func TestRingDefaultSize(t *testing.T) {
	if s := NewRingBuffer(0).Size(); s != DefaultRingSize {
		t.Errorf("Size = %d, want %d", s, DefaultRingSize)
	}
}

func TestLastReturnsCopies(t *testing.T) {
	r := NewRingBuffer(2)
	r.Push(Event{Kind: KindStartup, Msg: "a"})

	r.Last(1)[0].Msg = "changed"
	if got := r.Last(1)[0].Msg; got != "a" {
		t.Errorf("ring record modified through Last: %q", got)
	}
}

func TestPushClonesExtra(t *testing.T) {
	r := NewRingBuffer(2)
	extra := map[string]any{"k": 1}
	r.Push(Event{Kind: KindStartup, Extra: extra})
	extra["k"] = 2

	if got := r.Last(1)[0].Extra["k"]; got != 1 {
		t.Errorf("Extra aliased: got %v", got)
	}
}

func TestTallySumsBatchCounts(t *testing.T) {
	records := []Event{
		{Kind: KindPurge, Count: 3},
		{Kind: KindPurge, Count: 2},
		{Kind: KindDecodeDrop},
		{Kind: KindOpen},
		{Kind: KindOpen, Count: 9},
	}

	tally := Tally(records)
	if tally[KindPurge] != 5 {
		t.Errorf("purge = %d, want 5", tally[KindPurge])
	}
	if tally[KindDecodeDrop] != 1 {
		t.Errorf("decode_drop = %d, want 1", tally[KindDecodeDrop])
	}
	if tally[KindOpen] != 2 {
		t.Errorf("open = %d, want 2 (counted per record)", tally[KindOpen])
	}
	if len(Tally(nil)) != 0 {
		t.Error("Tally(nil) should be empty")
	}
}

func TestTallyOverWrappedRing(t *testing.T) {
	r := NewRingBuffer(3)
	r.Push(Event{Kind: KindPurge, Count: 100}) // evicted below
	r.Push(Event{Kind: KindConnect})
	r.Push(Event{Kind: KindPurge, Count: 4})
	r.Push(Event{Kind: KindOpen})

	tally := Tally(r.Last(r.Size()))
	if tally[KindPurge] != 4 {
		t.Errorf("purge = %d, want 4 (evicted record not counted)", tally[KindPurge])
	}
	if tally[KindConnect] != 1 || tally[KindOpen] != 1 {
		t.Errorf("tally = %v", tally)
	}
}

func TestRingConcurrent(t *testing.T) {
	r := NewRingBuffer(64)
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				r.Push(Event{Kind: KindMsgReceived})
				_ = Tally(r.Last(5))
			}
		}()
	}
	wg.Wait()
	if n := len(r.Last(r.Size())); n != 64 {
		t.Errorf("held = %d, want 64", n)
	}
}
