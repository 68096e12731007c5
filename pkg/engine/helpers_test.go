package engine

import (
	"context"
	"errors"
	"io"
	"net"
	"sync"
	"sync/atomic"
)

type call struct {
	Command
	stdin string
}

// fakeRunner records commands instead of executing them.
type fakeRunner struct {
	mu      sync.Mutex
	calls   []call
	started []*fakeProcess
	// fail decides the result of Run; nil means success.
	fail func(c Command) error
	// exited makes started processes exit immediately.
	exited bool
}

func (r *fakeRunner) Run(_ context.Context, c Command) error {
	r.record(c)
	if r.fail != nil {
		return r.fail(c)
	}
	return nil
}

func (r *fakeRunner) Start(c Command) (Process, error) {
	r.record(c)
	p := &fakeProcess{done: make(chan struct{})}
	if r.exited {
		close(p.done)
	}
	r.mu.Lock()
	r.started = append(r.started, p)
	r.mu.Unlock()
	return p, nil
}

func (r *fakeRunner) record(c Command) {
	var stdin string
	if c.Stdin != nil {
		b, _ := io.ReadAll(c.Stdin)
		stdin = string(b)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, call{Command: c, stdin: stdin})
}

func (r *fakeRunner) labels() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.calls))
	for _, c := range r.calls {
		out = append(out, c.Label)
	}
	return out
}

type fakeProcess struct {
	terminated atomic.Int32
	done       chan struct{}
}

func (p *fakeProcess) Terminate() error {
	p.terminated.Add(1)
	return nil
}

func (p *fakeProcess) Done() <-chan struct{} { return p.done }

func dialOK(context.Context, string, string) (net.Conn, error) {
	client, server := net.Pipe()
	_ = server.Close()
	return client, nil
}

func dialRefused(context.Context, string, string) (net.Conn, error) {
	return nil, errors.New("connection refused")
}

// failOn fails Run for the step with the given label.
func failOn(label string) func(Command) error {
	return func(c Command) error {
		if c.Label == label {
			return errors.New("exit status 1")
		}
		return nil
	}
}
