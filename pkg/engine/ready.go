package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/systemstart/mup/pkg/pipeline"
)

var errProcessExited = errors.New("process exited before becoming ready")

// waitReady polls r.Addr until it accepts a TCP connection, proc exits or
// r.Timeout elapses.
func (e *Engine) waitReady(ctx context.Context, r *pipeline.Readiness, proc Process) error {
	backoff := retry.WithMaxDuration(r.Timeout, retry.NewConstant(e.opts.ProbeInterval))

	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		select {
		case <-proc.Done():
			return errProcessExited
		default:
		}

		dialCtx, cancel := context.WithTimeout(ctx, time.Second)
		defer cancel()
		conn, err := e.opts.Dial(dialCtx, "tcp", r.Addr)
		if err != nil {
			return retry.RetryableError(err)
		}
		return conn.Close()
	})
	if err != nil {
		return fmt.Errorf("waiting for %s: %w", r.Addr, err)
	}
	return nil
}

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
