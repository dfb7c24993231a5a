package core

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestRunGate_SecondRunRejected(t *testing.T) {
	gate := NewRunGate(100 * time.Millisecond)
	started := time.Date(2024, 3, 1, 6, 0, 0, 0, time.UTC)
	gate.now = func() time.Time { return started }
	ctx := context.Background()

	if err := gate.Enter(ctx, "2024-03-01"); err != nil {
		t.Fatalf("first Enter failed: %v", err)
	}
	status := gate.Status()
	if !status.Running || status.Folder != "2024-03-01" || !status.Since.Equal(started) {
		t.Errorf("Status = %+v, want running 2024-03-01 since %v", status, started)
	}

	start := time.Now()
	err := gate.Enter(ctx, "2024-03-02")
	elapsed := time.Since(start)

	if !errors.Is(err, ErrRunInProgress) {
		t.Errorf("second Enter = %v, want ErrRunInProgress", err)
	}
	if elapsed < 90*time.Millisecond {
		t.Errorf("timeout too fast: %v", elapsed)
	}
	if got := gate.Status().Folder; got != "2024-03-01" {
		t.Errorf("Folder after rejected Enter = %q, want 2024-03-01", got)
	}

	gate.Leave()
	if status := gate.Status(); status.Running || status.Folder != "" || !status.Since.IsZero() {
		t.Errorf("Status after Leave = %+v, want idle", status)
	}
}

func TestRunGate_WaiterEntersAfterLeave(t *testing.T) {
	gate := NewRunGate(time.Second)
	if err := gate.Enter(context.Background(), "2024-03-01"); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	entered := make(chan error, 1)
	go func() {
		entered <- gate.Enter(context.Background(), "2024-03-02")
	}()

	time.Sleep(20 * time.Millisecond)
	gate.Leave()

	select {
	case err := <-entered:
		if err != nil {
			t.Fatalf("waiting Enter = %v, want nil", err)
		}
	case <-time.After(time.Second):
		t.Fatal("waiting Enter did not return after Leave")
	}
	if got := gate.Status().Folder; got != "2024-03-02" {
		t.Errorf("Folder = %q, want 2024-03-02", got)
	}
	gate.Leave()
}

func TestRunGate_LeaveWhenIdle(t *testing.T) {
	gate := NewRunGate(0)
	if gate.maxWait != DefaultMaxWaitTime {
		t.Errorf("maxWait = %v, want %v", gate.maxWait, DefaultMaxWaitTime)
	}
	gate.Leave()
	if err := gate.Enter(context.Background(), "2024-03-01"); err != nil {
		t.Fatalf("Enter after idle Leave = %v", err)
	}
	gate.Leave()
}

func TestRunGate_ContextCancellation(t *testing.T) {
	gate := NewRunGate(5 * time.Second)
	if err := gate.Enter(context.Background(), "2024-03-01"); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}
	defer gate.Leave()

	ctx, cancel := context.WithCancel(context.Background())
	errCh := make(chan error, 1)
	go func() {
		errCh <- gate.Enter(ctx, "2024-03-02")
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-errCh:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("expected context.Canceled, got %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Enter did not return after context cancellation")
	}
}

func TestRunGate_Wait(t *testing.T) {
	gate := NewRunGate(time.Second)
	if err := gate.Enter(context.Background(), "2024-03-01"); err != nil {
		t.Fatalf("Enter failed: %v", err)
	}

	waitDone := make(chan error, 1)
	go func() {
		waitDone <- gate.Wait(context.Background())
	}()

	select {
	case <-waitDone:
		t.Error("Wait returned with an active run")
	case <-time.After(50 * time.Millisecond):
	}

	gate.Leave()

	select {
	case err := <-waitDone:
		if err != nil {
			t.Errorf("Wait returned error: %v", err)
		}
	case <-time.After(time.Second):
		t.Error("Wait did not complete after Leave")
	}
}

func TestRunGate_WaitIdle(t *testing.T) {
	gate := NewRunGate(time.Second)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := gate.Wait(ctx); err != nil {
		t.Errorf("Wait on idle gate = %v, want nil", err)
	}
}
