package sim

import (
	"context"
	"errors"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/a-bouts/nav-sim/polar"
	"github.com/a-bouts/nav-sim/steering"
	"github.com/a-bouts/nav-sim/wind"
)

// Windows lists the wind sources around a simulated time.
// *wind.Catalog is one.
type Windows interface {
	Window(t time.Time) (wind.Descriptor, []wind.Descriptor, error)
}

// Notifier receives a line of text for every race event.
type Notifier interface {
	Send(message string) error
}

var ErrStopped = errors.New("session stopped")

// Runner drives one session: it loads the wind, then ticks at a fixed rate
// on a single goroutine that also applies the steering commands, so the
// session never sees two writers.
type Runner struct {
	Id       string
	env      Environment
	windows  Windows
	wind     *wind.Interpolator
	rate     time.Duration
	retry    time.Duration
	notifier Notifier

	commands chan func(*Session)
	done     chan struct{}

	lock    sync.RWMutex
	current Session
	err     error
}

// NewRunner prepares a runner. env.Wind is replaced by the runner's
// interpolator.
func NewRunner(id string, env Environment, windows Windows, loader wind.Loader, rate time.Duration, notifier Notifier) *Runner {
	in := wind.NewInterpolator(loader)
	env.Wind = in
	return &Runner{
		Id:       id,
		env:      env,
		windows:  windows,
		wind:     in,
		rate:     rate,
		retry:    wind.DefaultBackoff,
		notifier: notifier,
		commands: make(chan func(*Session)),
		done:     make(chan struct{}),
		current:  NewSession(env.Course),
	}
}

// Session is the state published after the last tick or command.
func (r *Runner) Session() Session {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.current
}

// Err is the reason the runner stopped, nil while running or after a
// finish.
func (r *Runner) Err() error {
	r.lock.RLock()
	defer r.lock.RUnlock()
	return r.err
}

func (r *Runner) Done() <-chan struct{} {
	return r.done
}

func (r *Runner) publish(s Session) {
	r.lock.Lock()
	r.current = s
	r.lock.Unlock()
}

// do hands a steering command to the tick goroutine.
func (r *Runner) do(ctx context.Context, f func(*Session)) error {
	select {
	case r.commands <- f:
		return nil
	case <-r.done:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (r *Runner) Turn(ctx context.Context, dir steering.Direction) error {
	return r.do(ctx, func(s *Session) { s.Turn(dir) })
}

func (r *Runner) StopTurn(ctx context.Context) error {
	return r.do(ctx, func(s *Session) { s.StopTurn() })
}

func (r *Runner) Tack(ctx context.Context) error {
	return r.do(ctx, func(s *Session) { s.Tack() })
}

func (r *Runner) ToggleLock(ctx context.Context) error {
	return r.do(ctx, func(s *Session) { s.ToggleLock() })
}

func (r *Runner) SteerVMG(ctx context.Context, mode polar.Mode) error {
	p := r.env.Polar
	return r.do(ctx, func(s *Session) { s.SteerVMG(p, mode) })
}

// load blocks until the wind around the start time is decoded, retrying
// until ctx is done.
func (r *Runner) load(ctx context.Context, t time.Time) error {
	for {
		current, next, err := r.windows.Window(t)
		if err == nil {
			err = r.wind.Init(ctx, current, next)
		}
		if err == nil {
			return nil
		}

		log.WithError(err).WithField("session", r.Id).Warn("Wind unavailable, retrying")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(r.retry):
		}
	}
}

// sync moves the interpolator to the window of t. Errors keep the
// previous wind in place.
func (r *Runner) sync(ctx context.Context, t time.Time) {
	r.wind.Poll()

	current, next, err := r.windows.Window(t)
	if err != nil {
		return
	}
	if err := r.wind.SetSources(ctx, current, next); err != nil {
		log.WithError(err).WithField("session", r.Id).Warn("Error updating wind")
	}
}

// Run blocks until the boat finishes or ctx is done.
func (r *Runner) Run(ctx context.Context) error {
	defer close(r.done)

	logger := log.WithFields(log.Fields{"session": r.Id, "course": r.env.Course.Id})

	r.wind.Backoff = r.retry

	s := r.Session()
	if err := r.load(ctx, s.Time); err != nil {
		r.stop(err)
		return err
	}
	logger.Info("Session started")

	ticker := time.NewTicker(r.rate)
	defer ticker.Stop()
	last := time.Now()

	for {
		select {
		case <-ctx.Done():
			r.stop(ctx.Err())
			return ctx.Err()

		case f := <-r.commands:
			f(&s)
			r.publish(s)

		case now := <-ticker.C:
			dt := now.Sub(last).Seconds()
			last = now

			r.sync(ctx, s.Time)

			var events []Event
			s, events = Tick(r.env, s, dt)
			r.publish(s)

			for _, e := range events {
				logger.Infof("Session %s", e)
				if r.notifier != nil {
					if err := r.notifier.Send(r.Id + ": " + e.String()); err != nil {
						logger.WithError(err).Warn("Error sending notification")
					}
				}
			}

			if s.Finished() {
				return nil
			}
		}
	}
}

func (r *Runner) stop(err error) {
	r.lock.Lock()
	r.err = err
	r.lock.Unlock()
}
