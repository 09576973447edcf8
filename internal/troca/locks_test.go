package troca

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestLockTableExclusive(t *testing.T) {
	lt := newLockTable()
	ctx := context.Background()

	release, err := lt.acquire(ctx, itemKey(1), trocaKey(7))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	acquired := make(chan struct{})
	go func() {
		r, err := lt.acquire(ctx, itemKey(2), itemKey(1))
		if err != nil {
			t.Errorf("second acquire: %v", err)
			return
		}
		close(acquired)
		r()
	}()

	select {
	case <-acquired:
		t.Fatal("second caller acquired a held key")
	case <-time.After(20 * time.Millisecond):
	}

	release()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("second caller never acquired the key")
	}
}

func TestLockTableContextCancel(t *testing.T) {
	lt := newLockTable()

	release, err := lt.acquire(context.Background(), itemKey(1))
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()
	if _, err := lt.acquire(ctx, itemKey(3), itemKey(1)); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("got %v, want DeadlineExceeded", err)
	}

	release()
	if n := lt.size(); n != 0 {
		t.Errorf("expected empty table, got %d entries", n)
	}
}

func TestLockTableNoDeadlock(t *testing.T) {
	lt := newLockTable()
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	// Opposite acquisition orders would deadlock without sorting.
	var wg sync.WaitGroup
	for i := range 50 {
		keys := []string{itemKey(1), itemKey(2)}
		if i%2 == 1 {
			keys[0], keys[1] = keys[1], keys[0]
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			release, err := lt.acquire(ctx, keys...)
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			release()
		}()
	}
	wg.Wait()

	if n := lt.size(); n != 0 {
		t.Errorf("expected empty table, got %d entries", n)
	}
}

func TestLockTableDuplicateKeys(t *testing.T) {
	lt := newLockTable()
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	release, err := lt.acquire(ctx, itemKey(5), itemKey(5))
	if err != nil {
		t.Fatalf("acquire with duplicate keys: %v", err)
	}
	release()
}
