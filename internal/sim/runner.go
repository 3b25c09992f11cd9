package sim

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"
)

var ErrStopped = errors.New("runner stopped")

// Hooks observe the runner from its own goroutine. AfterStep fires after
// every tick or command that changed the state.
type Hooks struct {
	AfterStep func(prev, next State)
}

type op int

const (
	opSnapshot op = iota
	opPlay
	opPause
	opToggle
	opReset
)

type command struct {
	op    op
	reply chan State
}

// Runner owns one scenario's State and a single ticker. Ticks and
// commands are served by the same goroutine, so a command never
// interleaves with a tick.
type Runner struct {
	sc     *Scenario
	clock  Clock
	hooks  Hooks
	logger *log.Logger

	cmds chan command
	done chan struct{}

	state State
}

func NewRunner(sc *Scenario, clock Clock, logger *log.Logger, hooks Hooks) *Runner {
	if clock == nil {
		clock = SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Runner{
		sc:     sc,
		clock:  clock,
		hooks:  hooks,
		logger: logger.With("scenario", sc.Name),
		cmds:   make(chan command),
		done:   make(chan struct{}),
		state:  NewState(sc),
	}
}

func (r *Runner) Scenario() *Scenario {
	return r.sc
}

// Run serves ticks and commands until ctx is cancelled. It must be called
// once.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	var ticker *time.Ticker
	var tick <-chan time.Time
	stopTicker := func() {
		if ticker != nil {
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
	defer stopTicker()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			r.apply(Step(r.sc, r.state, r.clock.Now()))
		case cmd := <-r.cmds:
			r.apply(r.handle(cmd.op))
			cmd.reply <- r.state
		}

		switch {
		case r.state.Playing && ticker == nil:
			ticker = time.NewTicker(r.sc.TickInterval)
			tick = ticker.C
		case !r.state.Playing:
			stopTicker()
		}
	}
}

func (r *Runner) handle(o op) State {
	now := r.clock.Now()
	s := r.state
	switch o {
	case opPlay:
		return r.play(s, now)
	case opPause:
		return Pause(s, now)
	case opToggle:
		if s.Playing {
			return Pause(s, now)
		}
		return r.play(s, now)
	case opReset:
		return Reset(r.sc)
	}
	return s
}

// play restarts a finished run instead of leaving it frozen.
func (r *Runner) play(s State, now time.Time) State {
	if s.Phase == PhaseCompleted {
		s = Reset(r.sc)
	}
	return Start(r.sc, s, now)
}

func (r *Runner) apply(next State) {
	prev := r.state
	r.state = next
	if prev.Phase != next.Phase {
		r.logger.Info("phase transition", "from", prev.Phase, "to", next.Phase, "elapsed_ms", next.ElapsedMs, "run", next.RunID)
	}
	if r.hooks.AfterStep != nil && changed(prev, next) {
		r.hooks.AfterStep(prev, next)
	}
}

func changed(prev, next State) bool {
	return prev.ElapsedMs != next.ElapsedMs ||
		prev.Phase != next.Phase ||
		prev.Playing != next.Playing ||
		prev.RunID != next.RunID ||
		prev.Footprints.Len() != next.Footprints.Len()
}

func (r *Runner) do(ctx context.Context, o op) (State, error) {
	cmd := command{op: o, reply: make(chan State, 1)}
	select {
	case r.cmds <- cmd:
	case <-r.done:
		return State{}, ErrStopped
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
	select {
	case s := <-cmd.reply:
		return s, nil
	case <-ctx.Done():
		return State{}, ctx.Err()
	}
}

func (r *Runner) Play(ctx context.Context) (State, error)   { return r.do(ctx, opPlay) }
func (r *Runner) Pause(ctx context.Context) (State, error)  { return r.do(ctx, opPause) }
func (r *Runner) Toggle(ctx context.Context) (State, error) { return r.do(ctx, opToggle) }
func (r *Runner) Reset(ctx context.Context) (State, error)  { return r.do(ctx, opReset) }

// Snapshot returns the current state without changing it.
func (r *Runner) Snapshot(ctx context.Context) (State, error) { return r.do(ctx, opSnapshot) }
