package workerpool

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestWorkerPool(t *testing.T) {
	pool := New[int, int](4, 10)
	pool.Start(func(n int) int { return n * n })
	for i := 0; i < 10; i++ {
		pool.Submit(i)
	}
	pool.Close()

	sum := 0
	count := 0
	for r := range pool.Results() {
		sum += r
		count++
	}
	if count != 10 {
		t.Errorf("got %d results, want 10", count)
	}
	if sum != 285 {
		t.Errorf("sum of squares = %d, want 285", sum)
	}
}

func TestMapPreservesOrder(t *testing.T) {
	inputs := []int{5, 1, 4, 2, 3}
	got, err := Map(context.Background(), 3, inputs, func(_ context.Context, i, n int) (int, error) {
		// Later inputs finish first.
		time.Sleep(time.Duration(len(inputs)-i) * time.Millisecond)
		return n * 10, nil
	})
	if err != nil {
		t.Fatalf("Map: %v", err)
	}
	want := []int{50, 10, 40, 20, 30}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("out[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}

func TestMapError(t *testing.T) {
	boom := errors.New("boom")
	_, err := Map(context.Background(), 1, []string{"a", "b", "c"}, func(ctx context.Context, i int, s string) (string, error) {
		if s == "b" {
			return "", boom
		}
		return s, nil
	})
	if !errors.Is(err, boom) {
		t.Fatalf("err = %v, want boom", err)
	}
}

func TestMapEmpty(t *testing.T) {
	got, err := Map(context.Background(), 0, nil, func(context.Context, int, int) (int, error) {
		t.Fatal("fn called for empty input")
		return 0, nil
	})
	if err != nil || len(got) != 0 {
		t.Errorf("Map(nil) = %v, %v", got, err)
	}
}
