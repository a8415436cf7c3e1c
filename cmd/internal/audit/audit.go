// Package audit records verification attempts.
//
// The log is observability, not correctness: writes are best-effort and a
// failed write never changes a verification answer.
package audit

import (
	"context"
	"errors"
	"time"
)

// ResultValid is the result recorded for a successful verification. Failed
// verifications record their reason code instead.
const ResultValid = "valid"

// Event is one verification attempt.
type Event struct {
	ID        string
	MemberID  *string
	Result    string
	Kind      string
	IP        string
	UserAgent string
	CreatedAt time.Time
}

// Recorder persists or forwards events.
type Recorder interface {
	Record(ctx context.Context, ev Event) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, ev Event) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, ev Event) error { return f(ctx, ev) }

// Nop discards events.
type Nop struct{}

// Record implements Recorder.
func (Nop) Record(context.Context, Event) error { return nil }

// Fanout delivers each event to every recorder and joins their errors.
type Fanout []Recorder

// Record implements Recorder.
func (f Fanout) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
