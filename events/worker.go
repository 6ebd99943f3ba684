package events

import (
	"context"
	"log/slog"
	"sync"

	"github.com/nats-io/nats.go"
)

// Handler processes one message payload. A non-nil error naks the message.
type Handler func(ctx context.Context, data []byte) error

type job struct {
	data []byte
	ack  func() error
	nak  func() error
}

type WorkerPool struct {
	jobs    chan job
	wg      sync.WaitGroup
	ctx     context.Context
	cancel  context.CancelFunc
	handler Handler
	logger  *slog.Logger
}

func NewWorkerPool(ctx context.Context, maxWorkers, queueSize int, handler Handler, logger *slog.Logger) *WorkerPool {
	if maxWorkers < 1 {
		maxWorkers = 1
	}
	if queueSize < 1 {
		queueSize = 100
	}
	if logger == nil {
		logger = slog.Default()
	}

	poolCtx, cancel := context.WithCancel(ctx)

	pool := &WorkerPool{
		jobs:    make(chan job, queueSize),
		ctx:     poolCtx,
		cancel:  cancel,
		handler: handler,
		logger:  logger,
	}

	for i := 0; i < maxWorkers; i++ {
		pool.wg.Add(1)
		go pool.worker()
	}

	return pool
}

func (w *WorkerPool) worker() {
	defer w.wg.Done()

	for {
		select {
		case <-w.ctx.Done():
			return
		case j, ok := <-w.jobs:
			if !ok {
				return
			}
			w.process(j)
		}
	}
}

func (w *WorkerPool) process(j job) {
	if err := w.handler(w.ctx, j.data); err != nil {
		w.logger.Error("failed to handle message", "error", err)
		if err := j.nak(); err != nil {
			w.logger.Error("failed to nak message", "error", err)
		}
		return
	}

	if err := j.ack(); err != nil {
		w.logger.Error("failed to ack message", "error", err)
	}
}

// Submit sends a message to the worker pool. Blocks if the queue is full.
// Returns false if either context is cancelled.
func (w *WorkerPool) Submit(ctx context.Context, msg *nats.Msg) bool {
	return w.enqueue(ctx, job{
		data: msg.Data,
		ack:  func() error { return msg.Ack() },
		nak:  func() error { return msg.Nak() },
	})
}

func (w *WorkerPool) enqueue(ctx context.Context, j job) bool {
	select {
	case w.jobs <- j:
		return true
	case <-ctx.Done():
		return false
	case <-w.ctx.Done():
		return false
	}
}

func (w *WorkerPool) Stop() {
	w.cancel()
	close(w.jobs)
}

func (w *WorkerPool) Wait() {
	w.wg.Wait()
}
