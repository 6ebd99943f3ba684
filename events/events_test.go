package events

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
)

func TestDecodeInbound(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantErr bool
	}{
		{"valid", `{"group":"g1","user_id":"u1","user_name":"Ana","message":"ramen?"}`, false},
		{"missing user", `{"group":"g1","message":"ramen?"}`, true},
		{"blank user", `{"user_id":"  ","message":"ramen?"}`, true},
		{"not json", `ramen?`, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg, err := DecodeInbound([]byte(tt.raw))
			if tt.wantErr {
				if err == nil {
					t.Errorf("expected error, got %+v", msg)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if msg.Group != "g1" || msg.UserID != "u1" || msg.UserName != "Ana" || msg.Message != "ramen?" {
				t.Errorf("unexpected message %+v", msg)
			}
		})
	}
}

func TestWorkerPoolAcksAndNaks(t *testing.T) {
	var acks, naks atomic.Int32
	var done sync.WaitGroup

	handler := func(_ context.Context, data []byte) error {
		if string(data) == "bad" {
			return errors.New("boom")
		}
		return nil
	}
	pool := NewWorkerPool(context.Background(), 2, 4, handler, nil)

	payloads := []string{"ok", "bad", "ok", "ok", "bad"}
	done.Add(len(payloads))
	for _, p := range payloads {
		ok := pool.enqueue(context.Background(), job{
			data: []byte(p),
			ack:  func() error { acks.Add(1); done.Done(); return nil },
			nak:  func() error { naks.Add(1); done.Done(); return nil },
		})
		if !ok {
			t.Fatalf("expected %q to be accepted", p)
		}
	}

	done.Wait()
	pool.Stop()
	pool.Wait()

	if acks.Load() != 3 {
		t.Errorf("expected 3 acks, got %d", acks.Load())
	}
	if naks.Load() != 2 {
		t.Errorf("expected 2 naks, got %d", naks.Load())
	}
}

func TestWorkerPoolSubmitRespectsContext(t *testing.T) {
	started := make(chan struct{}, 2)
	release := make(chan struct{})

	handler := func(_ context.Context, _ []byte) error {
		started <- struct{}{}
		<-release
		return nil
	}
	pool := NewWorkerPool(context.Background(), 1, 1, handler, nil)

	noop := func() error { return nil }
	newJob := func() job { return job{data: []byte("x"), ack: noop, nak: noop} }

	if !pool.enqueue(context.Background(), newJob()) {
		t.Fatal("expected first job to be accepted")
	}
	<-started
	if !pool.enqueue(context.Background(), newJob()) {
		t.Fatal("expected second job to fit in the queue")
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if pool.enqueue(ctx, newJob()) {
		t.Error("expected a full queue with a cancelled context to reject the job")
	}

	close(release)
	<-started
	pool.Stop()
	pool.Wait()
}
