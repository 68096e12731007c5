package engine

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/exec"
	"strings"
	"sync"
	"syscall"

	"golang.org/x/sync/errgroup"
)

const stderrTailLines = 20

// Command is a process invocation, local or through ssh.
type Command struct {
	Name string
	Args []string
	Dir  string
	// Env is appended to the inherited environment.
	Env   []string
	Stdin io.Reader
	// Stdout receives the process output verbatim. When nil the output is
	// logged line by line.
	Stdout io.Writer
	// Label tags log lines with the step that started the process.
	Label string
}

// Process is a started, not yet awaited, Command.
type Process interface {
	// Terminate asks the process to exit with SIGTERM.
	Terminate() error
	// Done is closed once the process has exited.
	Done() <-chan struct{}
}

// Runner executes commands. The engine only talks to processes through it.
type Runner interface {
	Run(ctx context.Context, cmd Command) error
	Start(cmd Command) (Process, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

func (ExecRunner) Run(ctx context.Context, c Command) error {
	cmd := exec.CommandContext(ctx, c.Name, c.Args...)
	pumps, err := prepare(cmd, c)
	if err != nil {
		return err
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("starting %s: %w", c.Name, err)
	}
	pumpErr := pumps.wait()
	if err := cmd.Wait(); err != nil {
		return commandError(c, err, pumps.stderr.String())
	}
	if pumpErr != nil {
		return fmt.Errorf("reading output of %s: %w", c.Name, pumpErr)
	}
	return nil
}

// Start launches the command without a context: the process outlives the
// step and is only stopped through Terminate.
func (ExecRunner) Start(c Command) (Process, error) {
	cmd := exec.Command(c.Name, c.Args...)
	pumps, err := prepare(cmd, c)
	if err != nil {
		return nil, err
	}

	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s: %w", c.Name, err)
	}

	p := &execProcess{cmd: cmd, done: make(chan struct{})}
	go func() {
		_ = pumps.wait()
		err := cmd.Wait()
		slog.Debug("background process exited", "step", c.Label, "command", c.Name, "error", err)
		close(p.done)
	}()
	return p, nil
}

type execProcess struct {
	cmd  *exec.Cmd
	done chan struct{}
}

func (p *execProcess) Terminate() error {
	err := p.cmd.Process.Signal(syscall.SIGTERM)
	if errors.Is(err, os.ErrProcessDone) {
		return nil
	}
	return err
}

func (p *execProcess) Done() <-chan struct{} { return p.done }

func commandError(c Command, err error, stderr string) error {
	if stderr == "" {
		return fmt.Errorf("%s failed: %w", c.Name, err)
	}
	return fmt.Errorf("%s failed: %w\nstderr: %s", c.Name, err, stderr)
}

type outputPumps struct {
	g      errgroup.Group
	stderr *tailBuffer
}

func (p *outputPumps) wait() error { return p.g.Wait() }

// prepare wires stdin and the output pumps. The pumps must be drained before
// cmd.Wait is called.
func prepare(cmd *exec.Cmd, c Command) (*outputPumps, error) {
	cmd.Dir = c.Dir
	cmd.Stdin = c.Stdin
	if len(c.Env) > 0 {
		cmd.Env = append(os.Environ(), c.Env...)
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("stdout pipe: %w", err)
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return nil, fmt.Errorf("stderr pipe: %w", err)
	}

	p := &outputPumps{stderr: &tailBuffer{max: stderrTailLines}}
	log := slog.With("step", c.Label, "command", c.Name)

	p.g.Go(func() error {
		if c.Stdout != nil {
			_, err := io.Copy(c.Stdout, stdout)
			return err
		}
		return scanLines(stdout, func(line string) {
			log.Debug("stdout", "line", line)
		})
	})
	p.g.Go(func() error {
		return scanLines(stderr, func(line string) {
			p.stderr.add(line)
			log.Debug("stderr", "line", line)
		})
	})
	return p, nil
}

func scanLines(r io.Reader, fn func(string)) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for sc.Scan() {
		fn(sc.Text())
	}
	return sc.Err()
}

// tailBuffer keeps the last max lines written to it.
type tailBuffer struct {
	mu    sync.Mutex
	max   int
	lines []string
}

func (b *tailBuffer) add(line string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.lines = append(b.lines, line)
	if len(b.lines) > b.max {
		b.lines = b.lines[len(b.lines)-b.max:]
	}
}

func (b *tailBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return strings.Join(b.lines, "\n")
}
