package schedule

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestLoopRunsPostedTasksInOrder(t *testing.T) {
	t.Parallel()

	loop := NewLoop(8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	done := make(chan []int, 1)
	var seen []int
	for i := 0; i < 3; i++ {
		i := i
		loop.Post(func() { seen = append(seen, i) })
	}
	loop.Post(func() { done <- seen })

	go func() { _ = loop.Run(ctx) }()

	select {
	case got := <-done:
		if len(got) != 3 || got[0] != 0 || got[1] != 1 || got[2] != 2 {
			t.Fatalf("seen = %v, want [0 1 2]", got)
		}
	case <-ctx.Done():
		t.Fatal("timed out waiting for tasks")
	}
	loop.Close()
}

func TestLoopTimerStoppedOnLoopDoesNotFire(t *testing.T) {
	t.Parallel()

	loop := NewLoop(8)
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	go func() { _ = loop.Run(ctx) }()
	defer loop.Close()

	fired := make(chan struct{}, 1)
	stopped := make(chan bool, 1)
	loop.Post(func() {
		timer := loop.AfterFunc(20*time.Millisecond, func() { fired <- struct{}{} })
		stopped <- timer.Stop()
	})
	if !<-stopped {
		t.Fatal("Stop() = false, want true")
	}

	select {
	case <-fired:
		t.Fatal("stopped timer fired")
	case <-time.After(100 * time.Millisecond):
	}
}

func TestLoopRunReturnsAfterClose(t *testing.T) {
	t.Parallel()

	loop := NewLoop(1)
	loop.Close()
	if err := loop.Run(context.Background()); !errors.Is(err, ErrLoopClosed) {
		t.Fatalf("Run() error = %v, want ErrLoopClosed", err)
	}
	if loop.Post(func() {}) {
		t.Fatal("Post() after Close = true, want false")
	}
}
