package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func waitFor(t *testing.T, timeout time.Duration, cond func() bool) bool {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(20 * time.Millisecond)
	}
	return cond()
}

func TestWatcher_IngestsChangedRecordFiles(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	var ingested []string
	onIngest := func(path string) {
		mu.Lock()
		ingested = append(ingested, path)
		mu.Unlock()
	}

	w := New([]string{dir}, []string{".json"}, onIngest, WithDebounce(50*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	recordPath := filepath.Join(dir, "extra.json")
	if err := os.WriteFile(recordPath, []byte(`[{"text": "x"}]`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("skip"), 0o644); err != nil {
		t.Fatal(err)
	}

	ok := waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(ingested) >= 1
	})
	if !ok {
		t.Fatal("record file was never ingested")
	}
	mu.Lock()
	defer mu.Unlock()
	for _, p := range ingested {
		if filepath.Ext(p) != ".json" {
			t.Errorf("non-record file ingested: %s", p)
		}
	}
}

func TestWatcher_DebounceCollapsesWrites(t *testing.T) {
	dir := t.TempDir()

	var mu sync.Mutex
	count := 0
	onIngest := func(string) {
		mu.Lock()
		count++
		mu.Unlock()
	}

	w := New([]string{dir}, []string{".json"}, onIngest, WithDebounce(150*time.Millisecond))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()

	path := filepath.Join(dir, "burst.json")
	for i := 0; i < 5; i++ {
		if err := os.WriteFile(path, []byte(`[]`), 0o644); err != nil {
			t.Fatal(err)
		}
		time.Sleep(10 * time.Millisecond)
	}

	if !waitFor(t, 2*time.Second, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return count >= 1
	}) {
		t.Fatal("debounced ingest never fired")
	}
	time.Sleep(300 * time.Millisecond)
	mu.Lock()
	defer mu.Unlock()
	if count > 2 {
		t.Errorf("burst of writes produced %d ingests", count)
	}
}

func TestWatcher_CreatesMissingRoot(t *testing.T) {
	root := filepath.Join(t.TempDir(), "knowledge")
	w := New([]string{root}, []string{".json"}, nil)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := w.Start(ctx); err != nil {
		t.Fatal(err)
	}
	defer w.Stop()
	if _, err := os.Stat(root); err != nil {
		t.Errorf("root was not created: %v", err)
	}
}
