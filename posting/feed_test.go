package posting

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestFeed_OpenJobsSweepsFiltersAndSorts(t *testing.T) {
	repo := newMemRepo()
	repo.put(Listing{ID: "old", Status: StatusOpen, IsListed: true, CreatedAt: testNow.Add(-3 * time.Hour), ExpiresAt: testNow.Add(time.Hour)})
	repo.put(Listing{ID: "stale", Status: StatusOpen, IsListed: true, CreatedAt: testNow.Add(-8 * 24 * time.Hour), ExpiresAt: testNow.Add(-time.Minute)})
	repo.put(Listing{ID: "hidden", Status: StatusOpen, IsListed: false, CreatedAt: testNow, ExpiresAt: testNow.Add(time.Hour)})
	repo.put(Listing{ID: "filled", Status: StatusFilled, IsListed: false, CreatedAt: testNow, ExpiresAt: testNow.Add(time.Hour)})
	repo.put(Listing{ID: "tie-a", Status: StatusOpen, IsListed: true, CreatedAt: testNow.Add(-time.Hour), ExpiresAt: testNow.Add(time.Hour)})
	repo.put(Listing{ID: "tie-b", Status: StatusOpen, IsListed: true, CreatedAt: testNow.Add(-time.Hour), ExpiresAt: testNow.Add(time.Hour)})
	repo.put(Listing{ID: "edge", Status: StatusOpen, IsListed: true, CreatedAt: testNow.Add(-7 * 24 * time.Hour), ExpiresAt: testNow})

	feed := NewFeed(repo, nil).WithClock(func() time.Time { return testNow })
	items, err := feed.OpenJobs(context.Background())
	if err != nil {
		t.Fatalf("open jobs: %v", err)
	}

	want := []string{"tie-a", "tie-b", "old", "edge"}
	if len(items) != len(want) {
		t.Fatalf("expected %d items, got %d: %+v", len(want), len(items), items)
	}
	for i, id := range want {
		if items[i].ID != id {
			t.Fatalf("position %d: expected %s, got %s", i, id, items[i].ID)
		}
	}

	stale, _ := repo.Get(context.Background(), "stale")
	if stale.Status != StatusExpired {
		t.Fatalf("expected stale posting expired by the sweep, got %s", stale.Status)
	}
	if repo.expireRuns != 1 {
		t.Fatalf("expected one sweep, got %d", repo.expireRuns)
	}
}

func TestFeed_SweepFailureStillServesFreshFeed(t *testing.T) {
	repo := newMemRepo()
	repo.expireErr = errors.New("connection reset")
	repo.put(Listing{ID: "stale", Status: StatusOpen, IsListed: true, ExpiresAt: testNow.Add(-time.Minute)})
	repo.put(Listing{ID: "live", Status: StatusOpen, IsListed: true, ExpiresAt: testNow.Add(time.Minute)})

	feed := NewFeed(repo, nil).WithClock(func() time.Time { return testNow })
	items, err := feed.OpenJobs(context.Background())
	if err != nil {
		t.Fatalf("open jobs: %v", err)
	}
	if len(items) != 1 || items[0].ID != "live" {
		t.Fatalf("expected only the live posting, got %+v", items)
	}
}

func TestSweeper_RunOnceIsIdempotent(t *testing.T) {
	repo := newMemRepo()
	repo.put(Listing{ID: "stale", Status: StatusOpen, IsListed: true, ExpiresAt: testNow.Add(-time.Minute)})

	sweeper := NewSweeper(repo, time.Minute, nil)
	sweeper.now = func() time.Time { return testNow }

	ids, err := sweeper.RunOnce(context.Background())
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(ids) != 1 || ids[0] != "stale" {
		t.Fatalf("expected stale expired, got %v", ids)
	}
	ids, err = sweeper.RunOnce(context.Background())
	if err != nil || len(ids) != 0 {
		t.Fatalf("second sweep should be a no-op, got %v %v", ids, err)
	}
}

func TestSweeper_RunOnceReportsFailure(t *testing.T) {
	repo := newMemRepo()
	repo.expireErr = errors.New("db down")
	sweeper := NewSweeper(repo, time.Minute, nil)

	if _, err := sweeper.RunOnce(context.Background()); err == nil {
		t.Fatal("expected sweep failure to be returned")
	}
}

func TestSweeper_RunStopsOnCancel(t *testing.T) {
	repo := newMemRepo()
	sweeper := NewSweeper(repo, 5*time.Millisecond, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Millisecond)
	defer cancel()

	if err := sweeper.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	repo.mu.Lock()
	runs := repo.expireRuns
	repo.mu.Unlock()
	if runs == 0 {
		t.Fatal("expected at least one tick")
	}
}
