package idle

import (
	"testing"
	"time"
)

func TestFallbackAlwaysAllows(t *testing.T) {
	var m Monitor = Fallback{}
	if m.IdleSeconds() != Unsupported {
		t.Fatalf("IdleSeconds() = %v", m.IdleSeconds())
	}
}

func TestActivity(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	a := NewActivity(func() time.Time { return now })

	now = now.Add(45 * time.Second)
	if got := a.IdleSeconds(); got != 45 {
		t.Fatalf("IdleSeconds() = %v, want 45", got)
	}

	a.Touch()
	if got := a.IdleSeconds(); got != 0 {
		t.Fatalf("after Touch IdleSeconds() = %v", got)
	}

	now = now.Add(-time.Second)
	if got := a.IdleSeconds(); got != 0 {
		t.Fatalf("clock going backwards should clamp to 0, got %v", got)
	}
}
