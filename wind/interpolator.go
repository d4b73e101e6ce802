package wind

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/a-bouts/nav-sim/latlon"
)

type slot struct {
	d Descriptor
	w *Snapshot
}

type loaded struct {
	d   Descriptor
	w   *Snapshot
	err error
}

type prefetch struct {
	d      Descriptor
	cancel context.CancelFunc
	done   chan loaded
	// current is set when the window moved onto d while it was in flight.
	// d then replaces the current snapshot when it lands, and then is
	// prefetched after it.
	current bool
	then    *Descriptor
	ctx     context.Context
}

// DefaultBackoff is how long a descriptor that failed to decode is left
// alone before it is tried again.
const DefaultBackoff = 5 * time.Second

// Interpolator blends a current and a next snapshot by simulated time.
//
// It has a single owner: SetSources, Poll and the queries must be called
// from the same goroutine. Only decoding of the next snapshot runs
// elsewhere; its result is handed back through a channel and picked up by
// Poll, and a result for a descriptor that is no longer wanted is dropped.
type Interpolator struct {
	Backoff time.Duration

	loader  Loader
	current slot
	next    slot
	pending *prefetch

	failed   Descriptor
	failedAt time.Time
	now      func() time.Time
}

func NewInterpolator(loader Loader) *Interpolator {
	return &Interpolator{Backoff: DefaultBackoff, loader: loader, now: time.Now}
}

// Init blocks until both the current and the first next source are
// decoded. It is meant for the initial load only.
func (in *Interpolator) Init(ctx context.Context, current Descriptor, next []Descriptor) error {
	in.cancelPending()

	var c, n *Snapshot
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		w, err := in.loader.Load(gctx, current)
		if err != nil {
			return fmt.Errorf("loading current wind %s: %w", current, err)
		}
		c = w
		return nil
	})
	if len(next) > 0 {
		g.Go(func() error {
			w, err := in.loader.Load(gctx, next[0])
			if err != nil {
				return fmt.Errorf("loading next wind %s: %w", next[0], err)
			}
			n = w
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	in.current = slot{d: current, w: c}
	in.next = slot{}
	if n != nil {
		in.next = slot{d: next[0], w: n}
	}

	return nil
}

// Ready reports whether a current snapshot is in place.
func (in *Interpolator) Ready() bool {
	return in.current.w != nil
}

func (in *Interpolator) Current() (Descriptor, *Snapshot) {
	return in.current.d, in.current.w
}

func (in *Interpolator) Next() (Descriptor, *Snapshot) {
	return in.next.d, in.next.w
}

// SetSources moves the interpolator to a new window. A current source that
// was already prefetched is promoted without decoding it again, and one
// still in flight replaces the current snapshot once Poll collects it; any
// other new current source is decoded synchronously. The first next source
// is prefetched in the background unless it is already loaded or in
// flight. A source that failed to decode is not tried again before Backoff.
//
// On error the previous current snapshot stays in place.
func (in *Interpolator) SetSources(ctx context.Context, current Descriptor, next []Descriptor) error {
	in.Poll()

	if in.pending != nil && !in.pending.d.Equal(current) {
		in.pending.current = false
		in.pending.then = nil
	}

	switch {
	case in.current.w != nil && in.current.d.Equal(current):
	case in.next.w != nil && in.next.d.Equal(current):
		in.current = in.next
		in.next = slot{}
	case in.pending != nil && in.pending.d.Equal(current):
		in.pending.current = true
		in.pending.then = nil
		if len(next) > 0 {
			then := next[0]
			in.pending.then = &then
		}
		in.pending.ctx = ctx
		in.next = slot{}
		return nil
	default:
		if in.backingOff(current) {
			return fmt.Errorf("loading wind %s: failed less than %s ago", current, in.Backoff)
		}
		w, err := in.loader.Load(ctx, current)
		if err != nil {
			if !errors.Is(err, context.Canceled) {
				in.fail(current)
			}
			return fmt.Errorf("loading wind %s: %w", current, err)
		}
		in.current = slot{d: current, w: w}
	}

	if len(next) == 0 {
		in.cancelPending()
		in.next = slot{}
		return nil
	}

	in.prefetchNext(ctx, next[0])
	return nil
}

func (in *Interpolator) prefetchNext(ctx context.Context, want Descriptor) {
	if in.next.w != nil && in.next.d.Equal(want) {
		return
	}
	in.next = slot{}
	if in.pending != nil && in.pending.d.Equal(want) {
		return
	}
	if in.backingOff(want) {
		in.cancelPending()
		return
	}

	in.startPrefetch(ctx, want)
}

func (in *Interpolator) backingOff(d Descriptor) bool {
	return !in.failed.IsZero() && in.failed.Equal(d) && in.now().Sub(in.failedAt) < in.Backoff
}

func (in *Interpolator) fail(d Descriptor) {
	in.failed = d
	in.failedAt = in.now()
}

func (in *Interpolator) startPrefetch(ctx context.Context, d Descriptor) {
	in.cancelPending()

	pctx, cancel := context.WithCancel(ctx)
	p := &prefetch{d: d, cancel: cancel, done: make(chan loaded, 1)}
	in.pending = p

	log.Debugf("Prefetch wind %s", d)

	go func() {
		w, err := in.loader.Load(pctx, d)
		p.done <- loaded{d: d, w: w, err: err}
	}()
}

func (in *Interpolator) cancelPending() {
	if in.pending != nil {
		in.pending.cancel()
		in.pending = nil
	}
}

// Poll collects a finished prefetch without blocking.
func (in *Interpolator) Poll() {
	if in.pending == nil {
		return
	}

	select {
	case r := <-in.pending.done:
		in.accept(r)
	default:
	}
}

// Wait blocks until no prefetch is in flight.
func (in *Interpolator) Wait(ctx context.Context) error {
	for in.pending != nil {
		select {
		case r := <-in.pending.done:
			in.accept(r)
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

func (in *Interpolator) accept(r loaded) {
	p := in.pending
	in.pending = nil
	p.cancel()

	if !r.d.Equal(p.d) {
		log.Debugf("Discard stale wind %s", r.d)
		return
	}
	if r.err != nil {
		if !errors.Is(r.err, context.Canceled) {
			in.fail(r.d)
		}
		log.WithError(r.err).Warnf("Error prefetching wind %s", r.d)
		return
	}

	if !p.current {
		in.next = slot{d: r.d, w: r.w}
		return
	}

	in.current = slot{d: r.d, w: r.w}
	if p.then != nil && p.ctx.Err() == nil {
		in.prefetchNext(p.ctx, *p.then)
	}
}

// FactorAt is the position of t between the current and the next
// snapshot, clamped to [0,1]. It is 0 when there is no next snapshot.
func (in *Interpolator) FactorAt(t time.Time) float64 {
	if in.current.w == nil || in.next.w == nil {
		return 0
	}

	gap := in.next.d.Time.Sub(in.current.d.Time)
	if gap <= 0 {
		return 0
	}

	h := float64(t.Sub(in.current.d.Time)) / float64(gap)
	if h < 0 {
		return 0
	}
	if h > 1 {
		return 1
	}
	return h
}

// VectorAt blends the current and next snapshot by factor.
func (in *Interpolator) VectorAt(pos latlon.LatLon, factor float64) (Vector, bool) {
	if in.current.w == nil {
		return Vector{}, false
	}

	u1, ok := in.current.w.VectorAt(pos.Lon, pos.Lat)
	if !ok {
		return Vector{}, false
	}
	if factor == 0 || in.next.w == nil {
		return u1, true
	}

	u2, ok := in.next.w.VectorAt(pos.Lon, pos.Lat)
	if !ok {
		return Vector{}, false
	}

	return lerp(u1, u2, factor), true
}

// WindAt is the blended wind at a position and time, with the blend factor.
func (in *Interpolator) WindAt(pos latlon.LatLon, t time.Time) (Vector, float64, bool) {
	h := in.FactorAt(t)
	w, ok := in.VectorAt(pos, h)
	return w, h, ok
}
