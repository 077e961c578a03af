package generator

import (
	"context"
	"math/rand"
	"sync"
	"testing"
	"time"

	"github.com/kurtskinny/officesim/internal/domain"
	"github.com/kurtskinny/officesim/internal/substrate"
)

func TestPickDepartmentMatchesWeighting(t *testing.T) {
	g := &Generator{rng: rand.New(rand.NewSource(1))}

	counts := make(map[domain.Department]int)
	const trials = 20000
	for i := 0; i < trials; i++ {
		counts[g.pickDepartment()]++
	}

	// §4.6: {SA 60%, SC 10%, KM 10%, ML 10%, PD 10%}. Allow generous slack
	// since this draws from math/rand rather than asserting exact counts.
	if got := counts[domain.DeptSA]; got < trials*50/100 || got > trials*70/100 {
		t.Fatalf("DeptSA share = %d/%d, want roughly 60%%", got, trials)
	}
	for _, d := range []domain.Department{domain.DeptSC, domain.DeptKM, domain.DeptML, domain.DeptPD} {
		if got := counts[d]; got < trials*5/100 || got > trials*15/100 {
			t.Fatalf("%s share = %d/%d, want roughly 10%%", d, got, trials)
		}
	}
}

func TestGeneratorStopsAtMaxCount(t *testing.T) {
	sub := substrate.New(50, [5]int{0, 0, 0, 0, 0}, 1)
	sub.State.SetOpen(true)

	g := New(sub, 0, 0, 3, CountBlockedClients())

	var mu sync.Mutex
	spawnedCount := 0
	spawn := func(run func(context.Context) error) {
		mu.Lock()
		spawnedCount++
		mu.Unlock()
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, spawn) }()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(3 * time.Second):
		t.Fatal("generator did not stop at maxCount")
	}

	mu.Lock()
	defer mu.Unlock()
	if spawnedCount != 3 {
		t.Fatalf("spawnedCount = %d, want 3", spawnedCount)
	}
}

func TestGeneratorPausesWhileOfficeClosed(t *testing.T) {
	sub := substrate.New(50, [5]int{0, 0, 0, 0, 0}, 1)
	sub.State.SetOpen(false) // never opens in this test

	g := New(sub, 0, 0, 0)

	spawn := func(run func(context.Context) error) {
		t.Fatal("generator must not spawn while the office is closed")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, spawn) }()

	time.Sleep(500 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop after context cancel while paused")
	}
}

func TestGeneratorUnboundedRunsUntilCancel(t *testing.T) {
	sub := substrate.New(50, [5]int{0, 0, 0, 0, 0}, 1)
	sub.State.SetOpen(true)

	g := New(sub, 0, 0, 0) // maxCount == 0 means unbounded

	var mu sync.Mutex
	spawnedCount := 0
	spawn := func(run func(context.Context) error) {
		mu.Lock()
		spawnedCount++
		mu.Unlock()
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- g.Run(ctx, spawn) }()

	time.Sleep(200 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run returned error: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("generator did not stop after cancel")
	}

	mu.Lock()
	defer mu.Unlock()
	if spawnedCount == 0 {
		t.Fatal("expected the unbounded generator to have spawned at least one client before cancel")
	}
}
