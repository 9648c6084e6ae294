package persistence

import (
	"context"
	"sync"
	"time"

	"github.com/pablasso/parcours/internal/path"
)

const defaultSaveTimeout = 5 * time.Second

// Writer saves snapshots in the background, in the order they were submitted.
// A snapshot submitted while a save is in flight replaces any snapshot still
// waiting, so storage always converges on the newest one. A save that has
// started is never cancelled.
type Writer struct {
	adapter *Adapter
	onError func(error)
	timeout time.Duration

	mu      sync.Mutex
	cond    *sync.Cond
	pending *path.LearningPath
	queued  uint64 // sequence of the newest submitted snapshot
	written uint64 // sequence of the newest attempted save
	lastErr error
	closed  bool

	wake chan struct{}
	done chan struct{}
	wg   sync.WaitGroup
}

// WriterOption configures a Writer.
type WriterOption func(*Writer)

// WithErrorHandler registers a callback for failed saves. It runs on the
// writer goroutine and must not block.
func WithErrorHandler(fn func(error)) WriterOption {
	return func(w *Writer) {
		w.onError = fn
	}
}

// WithSaveTimeout bounds each individual save.
func WithSaveTimeout(d time.Duration) WriterOption {
	return func(w *Writer) {
		w.timeout = d
	}
}

// NewWriter starts a background writer over adapter.
func NewWriter(adapter *Adapter, opts ...WriterOption) *Writer {
	w := &Writer{
		adapter: adapter,
		timeout: defaultSaveTimeout,
		wake:    make(chan struct{}, 1),
		done:    make(chan struct{}),
	}
	w.cond = sync.NewCond(&w.mu)
	for _, opt := range opts {
		opt(w)
	}

	w.wg.Add(1)
	go w.loop()
	return w
}

// Save queues snapshot for writing and returns immediately. Snapshots
// submitted after Close are dropped.
func (w *Writer) Save(snapshot path.LearningPath) {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return
	}
	w.pending = &snapshot
	w.queued++
	w.mu.Unlock()

	select {
	case w.wake <- struct{}{}:
	default:
	}
}

// Flush blocks until every snapshot submitted before the call has been
// written, and returns the result of the most recent save.
func (w *Writer) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	target := w.queued
	for w.written < target {
		w.cond.Wait()
	}
	return w.lastErr
}

// Close writes any pending snapshot and stops the writer.
func (w *Writer) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	w.mu.Unlock()

	close(w.done)
	w.wg.Wait()

	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastErr
}

func (w *Writer) loop() {
	defer w.wg.Done()
	for {
		select {
		case <-w.wake:
			w.writePending()
		case <-w.done:
			w.writePending()
			return
		}
	}
}

func (w *Writer) writePending() {
	w.mu.Lock()
	snapshot, seq := w.pending, w.queued
	w.pending = nil
	w.mu.Unlock()

	if snapshot == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	err := w.adapter.Save(ctx, *snapshot)
	cancel()

	if err != nil {
		w.adapter.logger.Error("failed to save learning path", "error", err)
		if w.onError != nil {
			w.onError(err)
		}
	}

	w.mu.Lock()
	w.written = seq
	w.lastErr = err
	w.cond.Broadcast()
	w.mu.Unlock()
}
