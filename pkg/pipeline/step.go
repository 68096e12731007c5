package pipeline

import (
	"maps"
	"slices"
	"time"
)

// Step is one unit of work in a Pipeline. The concrete types are CopyFile,
// RunScript, RunCommand and RunLocal; no other type satisfies Step.
type Step interface {
	Name() string
	step()
}

// Vars are template variables rendered into a copied file or a script.
type Vars map[string]any

// clone copies v along with any nested string maps, so a step handed out by
// Steps cannot be used to rewrite the pipeline's own variables.
func (v Vars) clone() Vars {
	if v == nil {
		return nil
	}
	out := make(Vars, len(v))
	for k, val := range v {
		if m, ok := val.(map[string]string); ok {
			val = maps.Clone(m)
		}
		out[k] = val
	}
	return out
}

// CopyFile renders Src with Vars (when non-nil) and writes it to Dest on the
// remote host.
type CopyFile struct {
	Label string
	Src   string
	Dest  string
	Vars  Vars
}

// RunScript renders Script with Vars and executes it on the remote host.
type RunScript struct {
	Label  string
	Script string
	Vars   Vars
}

// RunCommand executes a shell command on the remote host.
type RunCommand struct {
	Label   string
	Command string
	// Stream forwards remote output to the user instead of the log.
	Stream bool
}

// RunLocal executes a command on the local machine.
type RunLocal struct {
	Label   string
	Command string
	// Args, when set, run Command directly instead of through sh -c.
	Args []string
	Dir  string
	// Env is appended to the environment of the local process.
	Env []string
	// Deferred steps start the process and move on without waiting for it to
	// exit. OnSuccess receives the running process.
	Deferred bool
	// DelayAfter is a fixed pause before the next step begins.
	DelayAfter time.Duration
	// Ready, when set, is polled after DelayAfter before the step succeeds.
	Ready     *Readiness
	OnSuccess func(Handle)
}

// Readiness describes a TCP address that must accept connections within
// Timeout.
type Readiness struct {
	Addr    string
	Timeout time.Duration
}

// Handle is a local process started by a RunLocal step.
type Handle interface {
	Terminate() error
}

func (s CopyFile) Name() string   { return s.Label }
func (s RunScript) Name() string  { return s.Label }
func (s RunCommand) Name() string { return s.Label }
func (s RunLocal) Name() string   { return s.Label }

func (CopyFile) step()   {}
func (RunScript) step()  {}
func (RunCommand) step() {}
func (RunLocal) step()   {}

// Pipeline is a named, ordered list of steps. It is built once and never
// reordered; engines consume it front to back.
type Pipeline struct {
	name  string
	steps []Step
}

func newPipeline(name string, steps ...Step) *Pipeline {
	return &Pipeline{name: name, steps: steps}
}

func (p *Pipeline) Name() string { return p.name }

// Steps returns a deep copy of the step list.
func (p *Pipeline) Steps() []Step {
	out := make([]Step, len(p.steps))
	for i, st := range p.steps {
		out[i] = copyStep(st)
	}
	return out
}

func copyStep(st Step) Step {
	switch s := st.(type) {
	case CopyFile:
		s.Vars = s.Vars.clone()
		return s
	case RunScript:
		s.Vars = s.Vars.clone()
		return s
	case RunLocal:
		s.Args = slices.Clone(s.Args)
		s.Env = slices.Clone(s.Env)
		if s.Ready != nil {
			r := *s.Ready
			s.Ready = &r
		}
		return s
	default:
		return st
	}
}

func (p *Pipeline) Len() int { return len(p.steps) }
