package game

import (
	"context"
	"log/slog"
	"runtime"
	"time"

	"github.com/google/uuid"

	"github.com/comalice/reflex/internal/logger"
)

// Renderer draws one of the fixed messages. value is the best time for
// Greeting and the reaction time for Result; other messages ignore it.
type Renderer interface {
	Render(d Display, value uint16) error
}

// Saver persists the best time.
type Saver interface {
	Save(ctx context.Context, best uint16) error
}

// Recorder receives round statistics. *metrics.Recorder satisfies it.
type Recorder interface {
	RoundStarted()
	Outcome(outcome string, reaction uint16)
	BestTime(ms uint16)
	SaveFailed()
}

// Controller is the cooperative main loop. It is the only place that
// renders, persists, logs or records metrics.
type Controller struct {
	game    *Game
	display Renderer
	store   Saver
	log     *slog.Logger
	rec     Recorder
	backoff time.Duration
	round   string
}

// ControllerOption configures a Controller.
type ControllerOption func(*Controller)

func WithLogger(l *slog.Logger) ControllerOption {
	return func(c *Controller) {
		c.log = l
	}
}

func WithRecorder(r Recorder) ControllerOption {
	return func(c *Controller) {
		c.rec = r
	}
}

// WithIdleBackoff makes idle iterations sleep instead of yielding.
func WithIdleBackoff(d time.Duration) ControllerOption {
	return func(c *Controller) {
		c.backoff = d
	}
}

func NewController(g *Game, display Renderer, store Saver, opts ...ControllerOption) *Controller {
	c := &Controller{
		game:    g,
		display: display,
		store:   store,
		log:     logger.Get(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run loops until ctx is cancelled. On the device this never returns.
func (c *Controller) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if !c.Step(ctx) {
			c.idle()
		}
	}
}

// Step is one loop iteration. It reports whether any flag was serviced.
func (c *Controller) Step(ctx context.Context) bool {
	c.game.Spin()

	worked := false
	if c.game.RestartRequested() {
		c.game.Restart()
		worked = true
	}

	if d, value := c.game.TakeDisplay(); d != None {
		c.show(d, value)
		worked = true
	}

	if best, ok := c.game.TakeSave(); ok {
		c.save(ctx, best)
		worked = true
	}

	return worked
}

// Round returns the id of the current round, empty before the first greeting.
func (c *Controller) Round() string {
	return c.round
}

func (c *Controller) show(d Display, value uint16) {
	log := c.log
	switch d {
	case Greeting:
		c.round = uuid.NewString()
		log = log.With("round", c.round)
		if value == NoBestTime {
			log.Info("round started")
		} else {
			log.Info("round started", "best_ms", value)
		}
		if c.rec != nil {
			c.rec.RoundStarted()
		}
	case Result:
		log = log.With("round", c.round)
		log.Info("round finished", "outcome", "result", "reaction_ms", value)
		c.record("result", value)
	case Cheater:
		log = log.With("round", c.round)
		log.Info("round finished", "outcome", "cheat")
		c.record("cheat", 0)
	case Timeout:
		log = log.With("round", c.round)
		log.Info("round finished", "outcome", "timeout")
		c.record("timeout", 0)
	}

	if err := c.display.Render(d, value); err != nil {
		log.Warn("render failed", "display", d.String(), "error", err)
	}
}

func (c *Controller) record(outcome string, reaction uint16) {
	if c.rec != nil {
		c.rec.Outcome(outcome, reaction)
	}
}

// save never fails the round; the in-memory best stands either way.
func (c *Controller) save(ctx context.Context, best uint16) {
	c.log.Info("new best time", "round", c.round, "best_ms", best)
	if c.rec != nil {
		c.rec.BestTime(best)
	}
	if c.store == nil {
		return
	}
	if err := c.store.Save(ctx, best); err != nil {
		c.log.Warn("best time not saved", "best_ms", best, "error", err)
		if c.rec != nil {
			c.rec.SaveFailed()
		}
	}
}

func (c *Controller) idle() {
	if c.backoff > 0 {
		time.Sleep(c.backoff)
		return
	}
	runtime.Gosched()
}
