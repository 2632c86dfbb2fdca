package numerator

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"

	"tradecore/internal/core/apperror"
	corenumerator "tradecore/internal/core/numerator"
)

// Mock objects
type mockRow struct {
	val int64
	err error
}

func (m *mockRow) Scan(dest ...any) error {
	if m.err != nil {
		return m.err
	}
	if len(dest) > 0 {
		if ptr, ok := dest[0].(*int64); ok {
			*ptr = m.val
		}
	}
	return nil
}

type mockQuerier struct {
	mu           sync.Mutex
	currentValue int64 // Simulates DB sequence value
}

func (m *mockQuerier) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.currentValue++
	return &mockRow{val: m.currentValue}
}

type mockRegistry struct {
	mu    sync.Mutex
	taken map[string]bool
}

func newMockRegistry(taken ...string) *mockRegistry {
	r := &mockRegistry{taken: make(map[string]bool)}
	for _, n := range taken {
		r.taken[n] = true
	}
	return r
}

func (m *mockRegistry) Exists(ctx context.Context, prefix, number string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.taken[number] {
		return true, nil
	}
	// Simulate the derived document being persisted with this number,
	// so a second concurrent caller sees it as taken.
	m.taken[number] = true
	return false, nil
}

func period() time.Time {
	return time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
}

func TestGetNextNumber_Sequential(t *testing.T) {
	svc := New(&mockQuerier{}, newMockRegistry())
	ctx := context.Background()
	cfg := corenumerator.DefaultConfig("TEST")

	num, err := svc.GetNextNumber(ctx, cfg, period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-2026-00001" {
		t.Errorf("expected TEST-2026-00001, got %s", num)
	}

	num, err = svc.GetNextNumber(ctx, cfg, period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "TEST-2026-00002" {
		t.Errorf("expected TEST-2026-00002, got %s", num)
	}
}

func TestGetNextNumber_CollisionRetry(t *testing.T) {
	// First two candidates already in use (e.g. imported documents).
	registry := newMockRegistry("INV-2026-00001", "INV-2026-00002")
	svc := New(&mockQuerier{}, registry)
	cfg := corenumerator.DefaultConfig("INV")

	num, err := svc.GetNextNumber(context.Background(), cfg, period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "INV-2026-00003" {
		t.Errorf("expected INV-2026-00003 after two collisions, got %s", num)
	}
}

type alwaysTakenRegistry struct{}

func (alwaysTakenRegistry) Exists(ctx context.Context, prefix, number string) (bool, error) {
	return true, nil
}

func TestGetNextNumber_Exhausted(t *testing.T) {
	svc := New(&mockQuerier{}, alwaysTakenRegistry{})
	cfg := corenumerator.DefaultConfig("LPO")
	cfg.MaxAttempts = 3

	_, err := svc.GetNextNumber(context.Background(), cfg, period())
	if err == nil {
		t.Fatal("expected generation-exhausted error")
	}
	appErr, ok := apperror.AsAppError(err)
	if !ok || appErr.Code != apperror.CodeNumberExhausted {
		t.Errorf("expected %s, got %v", apperror.CodeNumberExhausted, err)
	}
}

func TestGetNextNumber_NoYear(t *testing.T) {
	svc := New(&mockQuerier{}, newMockRegistry())
	cfg := corenumerator.Config{Prefix: "QT", PadWidth: 3, ResetPeriod: "never"}

	num, err := svc.GetNextNumber(context.Background(), cfg, period())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if num != "QT-001" {
		t.Errorf("expected QT-001, got %s", num)
	}
}

func TestGetNextNumber_ConcurrentDistinct(t *testing.T) {
	svc := New(&mockQuerier{}, newMockRegistry())
	cfg := corenumerator.DefaultConfig("INV")

	const n = 50
	var wg sync.WaitGroup
	results := make(chan string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			num, err := svc.GetNextNumber(context.Background(), cfg, period())
			if err != nil {
				t.Errorf("unexpected error: %v", err)
				return
			}
			results <- num
		}()
	}
	wg.Wait()
	close(results)

	seen := make(map[string]bool)
	for num := range results {
		if seen[num] {
			t.Fatalf("duplicate number generated: %s", num)
		}
		seen[num] = true
	}
}

func TestParseNumber(t *testing.T) {
	if got := ParseNumber("INV-2026-00042"); got != 42 {
		t.Errorf("expected 42, got %d", got)
	}
	if got := ParseNumber("QT-007"); got != 7 {
		t.Errorf("expected 7, got %d", got)
	}
	if got := ParseNumber("garbage"); got != -1 {
		t.Errorf("expected -1, got %d", got)
	}
}
