package chain

import (
	"context"
	"testing"
	"time"
)

func TestWallClock_CountsIntervals(t *testing.T) {
	genesis := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	w, err := NewWallClock(genesis, 12*time.Second)
	if err != nil {
		t.Fatalf("NewWallClock: %v", err)
	}

	w.now = func() time.Time { return genesis.Add(125 * time.Second) }
	h, _ := w.CurrentBlock(context.Background())
	if h != 10 {
		t.Fatalf("height = %d, want 10", h)
	}

	w.now = func() time.Time { return genesis.Add(-time.Minute) }
	h, _ = w.CurrentBlock(context.Background())
	if h != 0 {
		t.Fatalf("height before genesis = %d, want 0", h)
	}
}

func TestWallClock_RejectsZeroInterval(t *testing.T) {
	if _, err := NewWallClock(time.Now(), 0); err == nil {
		t.Fatal("expected error for zero interval")
	}
}

func TestManual_SetAndAdvance(t *testing.T) {
	m := NewManual(5)
	if got := m.Advance(3); got != 8 {
		t.Fatalf("Advance = %d, want 8", got)
	}
	m.Set(100)
	h, err := m.CurrentBlock(context.Background())
	if err != nil || h != 100 {
		t.Fatalf("CurrentBlock = %d, %v", h, err)
	}
}

func TestDialEth_BadURL(t *testing.T) {
	if _, err := DialEth(context.Background(), "unknown-scheme://nowhere"); err == nil {
		t.Fatal("expected dial error for unsupported scheme")
	}
}
