package audit

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fFrancko/beneficios-mvp-web/cmd/identity/ids"
)

const defaultWriteTimeout = 3 * time.Second

// Async runs writes on their own goroutine, detached from the request
// context, and swallows failures after logging them. Record always returns nil.
type Async struct {
	next    Recorder
	log     *slog.Logger
	timeout time.Duration
	onFail  func(error)

	wg sync.WaitGroup
}

// AsyncOption configures Async.
type AsyncOption func(*Async)

// WithWriteTimeout bounds each detached write.
func WithWriteTimeout(d time.Duration) AsyncOption {
	return func(a *Async) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithFailureHook is called after a failed write (metrics).
func WithFailureHook(fn func(error)) AsyncOption {
	return func(a *Async) { a.onFail = fn }
}

// NewAsync wraps next.
func NewAsync(next Recorder, log *slog.Logger, opts ...AsyncOption) *Async {
	if log == nil {
		log = slog.Default()
	}
	if next == nil {
		next = Nop{}
	}
	a := &Async{next: next, log: log, timeout: defaultWriteTimeout}
	for _, opt := range opts {
		if opt != nil {
			opt(a)
		}
	}
	return a
}

// Record schedules the write and returns immediately.
func (a *Async) Record(ctx context.Context, ev Event) error {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	if ev.ID == "" {
		if id, err := ids.NewULID(ev.CreatedAt); err == nil {
			ev.ID = id
		}
	}

	// Values survive, cancellation does not: the request may finish first.
	detached := context.WithoutCancel(ctx)

	a.wg.Add(1)
	go func() {
		defer a.wg.Done()
		defer func() {
			if r := recover(); r != nil {
				a.log.Error("audit.write.panic", "panic", r)
			}
		}()

		wctx, cancel := context.WithTimeout(detached, a.timeout)
		defer cancel()

		if err := a.next.Record(wctx, ev); err != nil {
			a.log.Error("audit.write.fail", "event_id", ev.ID, "result", ev.Result, "err", err)
			if a.onFail != nil {
				a.onFail(err)
			}
		}
	}()
	return nil
}

// Wait blocks until in-flight writes finish or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
