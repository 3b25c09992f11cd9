package zone

import (
	"context"
	"errors"
	"time"

	"github.com/charmbracelet/log"

	"drone-spoof/internal/sim"
)

var ErrStopped = errors.New("zone controller stopped")

type request struct {
	apply func(Session, time.Time) Session
	reply chan Session
}

// Controller serialises operator moves and animation ticks for one
// session on a single goroutine.
type Controller struct {
	cfg      Config
	clock    sim.Clock
	logger   *log.Logger
	onChange func(prev, next Session)

	requests chan request
	done     chan struct{}
	session  Session
}

func NewController(cfg Config, clock sim.Clock, logger *log.Logger, onChange func(prev, next Session)) *Controller {
	if clock == nil {
		clock = sim.SystemClock{}
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Controller{
		cfg:      cfg,
		clock:    clock,
		logger:   logger.With("component", "zone"),
		onChange: onChange,
		requests: make(chan request),
		done:     make(chan struct{}),
		session:  NewSession(cfg),
	}
}

func (c *Controller) Config() Config {
	return c.cfg
}

// Run drives the session until ctx is done. The animation ticker only runs
// while the drone is spoofed or neutralized.
func (c *Controller) Run(ctx context.Context) error {
	defer close(c.done)

	var ticker *time.Ticker
	var tick <-chan time.Time
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-tick:
			c.set(Tick(c.cfg, c.session, c.clock.Now()))
		case req := <-c.requests:
			c.set(req.apply(c.session, c.clock.Now()))
			req.reply <- c.session
		}

		animating := c.session.Animating()
		switch {
		case animating && ticker == nil:
			ticker = time.NewTicker(c.cfg.TickInterval)
			tick = ticker.C
		case !animating && ticker != nil:
			ticker.Stop()
			ticker, tick = nil, nil
		}
	}
}

func (c *Controller) set(next Session) {
	prev := c.session
	c.session = next
	if prev.Mode != next.Mode {
		c.logger.Info("zone mode", "from", prev.Mode, "to", next.Mode, "x", next.Position.X, "y", next.Position.Y)
	}
	if c.onChange != nil && (prev.Position != next.Position || prev.Mode != next.Mode || prev.Footprints.Len() != next.Footprints.Len()) {
		c.onChange(prev, next)
	}
}

func (c *Controller) do(ctx context.Context, apply func(Session, time.Time) Session) (Session, error) {
	req := request{apply: apply, reply: make(chan Session, 1)}
	select {
	case c.requests <- req:
	case <-c.done:
		return Session{}, ErrStopped
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
	select {
	case s := <-req.reply:
		return s, nil
	case <-ctx.Done():
		return Session{}, ctx.Err()
	}
}

func (c *Controller) Move(ctx context.Context, dx, dy int) (Session, error) {
	return c.do(ctx, func(s Session, now time.Time) Session {
		return Move(c.cfg, s, dx, dy, now)
	})
}

// Key applies an arrow or WASD key press; other keys are ignored.
func (c *Controller) Key(ctx context.Context, key string) (Session, error) {
	dx, dy, ok := DirectionForKey(key)
	if !ok {
		return c.Snapshot(ctx)
	}
	return c.Move(ctx, dx, dy)
}

func (c *Controller) Reset(ctx context.Context) (Session, error) {
	return c.do(ctx, func(Session, time.Time) Session {
		return NewSession(c.cfg)
	})
}

func (c *Controller) Snapshot(ctx context.Context) (Session, error) {
	return c.do(ctx, func(s Session, _ time.Time) Session { return s })
}
