package ledger

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func sampleEpisodes(t0 time.Time) []Episode {
	return []Episode{
		{SessionID: "b", Index: 1, Status: "failure", Steps: 500, Return: -400, StartedAt: t0.Add(2 * time.Second)},
		{SessionID: "a", Index: 1, Status: "success", Steps: 12, Return: 40, StartedAt: t0.Add(time.Second)},
		{SessionID: "a", Index: 0, Status: "failure", Steps: 500, Return: -20, StartedAt: t0, Elapsed: 3 * time.Millisecond},
	}
}

func exerciseLedger(t *testing.T, l Ledger) {
	t.Helper()
	ctx := context.Background()

	if err := l.Record(ctx, Episode{}); err == nil {
		t.Fatal("expected error before Init")
	}
	if err := l.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	t.Cleanup(func() { _ = l.Close() })

	t0 := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, ep := range sampleEpisodes(t0) {
		if err := l.Record(ctx, ep); err != nil {
			t.Fatalf("record: %v", err)
		}
	}

	all, err := l.Episodes(ctx, "")
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	if len(all) != 3 {
		t.Fatalf("expected 3 episodes, got %d", len(all))
	}
	if all[0].SessionID != "a" || all[0].Index != 0 || all[1].Index != 1 || all[2].SessionID != "b" {
		t.Errorf("unexpected order: %+v", all)
	}
	if !all[0].StartedAt.Equal(t0) || all[0].Elapsed != 3*time.Millisecond {
		t.Errorf("timestamps not preserved: %+v", all[0])
	}

	onlyA, err := l.Episodes(ctx, "a")
	if err != nil {
		t.Fatalf("episodes(a): %v", err)
	}
	if len(onlyA) != 2 {
		t.Errorf("expected 2 episodes for session a, got %d", len(onlyA))
	}
}

func TestMemoryLedger(t *testing.T) {
	exerciseLedger(t, NewMemoryLedger())
}

func TestSQLiteLedger(t *testing.T) {
	exerciseLedger(t, NewSQLiteLedger(filepath.Join(t.TempDir(), "episodes.db")))
}

func TestSQLiteLedger_ConcurrentRecord(t *testing.T) {
	ctx := context.Background()
	l := NewSQLiteLedger(filepath.Join(t.TempDir(), "episodes.db"))
	if err := l.Init(ctx); err != nil {
		t.Fatalf("init: %v", err)
	}
	defer l.Close()

	const sessions, perSession = 8, 50
	errs := make(chan error, sessions*perSession)
	var wg sync.WaitGroup
	for s := 0; s < sessions; s++ {
		wg.Add(1)
		go func(s int) {
			defer wg.Done()
			for i := 0; i < perSession; i++ {
				ep := Episode{SessionID: fmt.Sprintf("s%d", s), Index: i, Status: "failure", Steps: 500, StartedAt: time.Now()}
				if err := l.Record(ctx, ep); err != nil {
					errs <- err
				}
			}
		}(s)
	}
	wg.Wait()
	close(errs)

	for err := range errs {
		t.Fatalf("concurrent record: %v", err)
	}
	eps, err := l.Episodes(ctx, "")
	if err != nil {
		t.Fatalf("episodes: %v", err)
	}
	if len(eps) != sessions*perSession {
		t.Errorf("expected %d episodes, got %d", sessions*perSession, len(eps))
	}
}

func TestSQLiteLedger_UpsertsEpisode(t *testing.T) {
	ctx := context.Background()
	l := NewSQLiteLedger(filepath.Join(t.TempDir(), "episodes.db"))
	if err := l.Init(ctx); err != nil {
		t.Fatal(err)
	}
	defer l.Close()

	ep := Episode{SessionID: "s", Index: 0, Status: "running", StartedAt: time.Now()}
	if err := l.Record(ctx, ep); err != nil {
		t.Fatal(err)
	}
	ep.Status = "success"
	if err := l.Record(ctx, ep); err != nil {
		t.Fatal(err)
	}

	eps, err := l.Episodes(ctx, "s")
	if err != nil {
		t.Fatal(err)
	}
	if len(eps) != 1 || eps[0].Status != "success" {
		t.Errorf("expected a single updated episode, got %+v", eps)
	}
}

func TestNewLedger(t *testing.T) {
	if _, err := NewLedger("memory", ""); err != nil {
		t.Errorf("memory: %v", err)
	}
	if _, err := NewLedger("sqlite", "x.db"); err != nil {
		t.Errorf("sqlite: %v", err)
	}
	if _, err := NewLedger("redis", ""); err == nil {
		t.Error("expected error for unknown backend")
	}
}

func TestSummarize(t *testing.T) {
	s := Summarize(sampleEpisodes(time.Now()))
	if s.Episodes != 3 || s.Successes != 1 {
		t.Fatalf("unexpected summary %+v", s)
	}
	if s.MeanReturn != (-400+40-20)/3.0 {
		t.Errorf("mean return %v", s.MeanReturn)
	}
	if s.SuccessRate != 1.0/3 {
		t.Errorf("success rate %v", s.SuccessRate)
	}
	if Summarize(nil).Episodes != 0 {
		t.Error("empty summary should be zero")
	}
}
