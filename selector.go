package regionshot

import (
	"context"
	"sync"
	"time"
)

// Selector turns a pointer drag into a Region.
// Near the top or bottom edge of the viewport it keeps scrolling the target,
// so that the selection can grow beyond the fold.
type Selector struct {
	// Margin to the viewport edge that triggers auto-scroll
	Margin float64
	// Speed of auto-scroll in CSS pixels of each Tick
	Speed float64
	// Tick of auto-scroll
	Tick time.Duration

	nav    Navigator
	dpr    float64
	target ScrollTarget
	start  Point
	auto   *autoScroll
}

// NewSelector for a page whose device pixel ratio is dpr
func NewSelector(nav Navigator, dpr float64) *Selector {
	return &Selector{
		Margin: 50,
		Speed:  20,
		Tick:   10 * time.Millisecond,
		nav:    nav,
		dpr:    dpr,
		auto:   &autoScroll{},
	}
}

// Started reports whether the pointer is down
func (s *Selector) Started() bool {
	return s.target != nil
}

// Target resolved by Down
func (s *Selector) Target() ScrollTarget {
	return s.target
}

// Down records the start point and resolves the scroll target under the pointer
func (s *Selector) Down(ctx context.Context, e PointerEvent) error {
	target, err := s.nav.ResolveScrollTarget(ctx, e.Client)
	if err != nil {
		return err
	}

	y, err := documentY(ctx, target, e.Client.Y)
	if err != nil {
		return err
	}

	s.target = target
	s.start = Point{X: e.Client.X, Y: y}
	return nil
}

// Move returns the live rect and restarts the auto-scroll if the pointer is near an edge
func (s *Selector) Move(ctx context.Context, e PointerEvent) (Rect, error) {
	if !s.Started() {
		return Rect{}, nil
	}

	s.auto.stop()

	r, err := s.rect(ctx, e)
	if err != nil {
		return Rect{}, err
	}

	switch {
	case e.Client.Y > e.ViewportHeight-s.Margin:
		s.auto.start(ctx, s.target, s.Speed, s.Tick)
	case e.Client.Y < s.Margin:
		s.auto.start(ctx, s.target, -s.Speed, s.Tick)
	}

	return r, nil
}

// Up stops the auto-scroll and returns the region
func (s *Selector) Up(ctx context.Context, e PointerEvent) (*Region, error) {
	s.Stop()

	if !s.Started() {
		return nil, newErr(ErrSelection, nil, "pointer up without pointer down")
	}

	r, err := s.rect(ctx, e)
	if err != nil {
		return nil, err
	}

	sel := r.Scale(s.dpr)
	if sel.Empty() {
		return nil, newErr(ErrSelection, nil, sel)
	}

	return &Region{Selection: sel, Target: s.target}, nil
}

// Viewport converts the document rect r to the current viewport of the target
func (s *Selector) Viewport(ctx context.Context, r Rect) (Rect, error) {
	if !s.Started() {
		return r, nil
	}

	top, err := s.target.ScrollTop(ctx)
	if err != nil {
		return Rect{}, err
	}

	r.Y -= top
	return r, nil
}

// Stop the auto-scroll
func (s *Selector) Stop() {
	s.auto.stop()
}

// Scrolling reports whether the auto-scroll is running
func (s *Selector) Scrolling() bool {
	return s.auto.running()
}

func (s *Selector) rect(ctx context.Context, e PointerEvent) (Rect, error) {
	y, err := documentY(ctx, s.target, e.Client.Y)
	if err != nil {
		return Rect{}, err
	}
	return RectFromPoints(s.start, Point{X: e.Client.X, Y: y}), nil
}

// autoScroll runs at most one scrolling goroutine at a time
type autoScroll struct {
	lock   sync.Mutex
	cancel func()
	done   chan struct{}
}

func (a *autoScroll) start(ctx context.Context, target ScrollTarget, dy float64, tick time.Duration) {
	a.stop()

	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	a.lock.Lock()
	a.cancel = cancel
	a.done = done
	a.lock.Unlock()

	go func() {
		defer close(done)

		t := time.NewTicker(tick)
		defer t.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-t.C:
				if target.ScrollBy(ctx, dy) != nil {
					return
				}
			}
		}
	}()
}

// stop the running goroutine and wait for it to exit
func (a *autoScroll) stop() {
	a.lock.Lock()
	cancel, done := a.cancel, a.done
	a.cancel, a.done = nil, nil
	a.lock.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
}

func (a *autoScroll) running() bool {
	a.lock.Lock()
	defer a.lock.Unlock()
	return a.done != nil
}
