package regionshot

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/go-rod/regionshot/lib/stitch"
	"github.com/go-rod/regionshot/lib/utils"
)

func (s *Shooter) selectRegion(ss *session) (*Region, error) {
	ctx := ss.ctx

	s.publish(ss, &Event{State: StateSelecting})

	dpr, err := s.doc.DevicePixelRatio(ctx)
	if err != nil {
		return nil, err
	}

	events, stop, err := s.doc.Pointer(ctx)
	if err != nil {
		return nil, err
	}
	ss.hold("pointer", stop)

	remove, err := s.doc.Overlay(ctx, s.instructions)
	if err != nil {
		return nil, err
	}
	removeOverlay := ss.hold("overlay", remove)

	sel := NewSelector(s.doc, dpr)
	sel.Margin, sel.Speed, sel.Tick = s.margin, s.speed, s.tick
	ss.hold("auto-scroll", func(context.Context) error {
		sel.Stop()
		return nil
	})

	drag := make(chan PointerEvent)
	selected := make(chan struct{})
	defer close(selected)
	go watchPointer(ss, events, drag, selected)

	for {
		var e PointerEvent
		select {
		case <-ctx.Done():
			return nil, ss.err()
		case e = <-drag:
		}

		switch e.Type {
		case PointerDown:
			err = sel.Down(ctx, e)

		case PointerMove:
			var r Rect
			r, err = sel.Move(ctx, e)
			if err == nil && sel.Started() {
				r, err = sel.Viewport(ctx, r)
			}
			if err == nil && sel.Started() {
				err = s.doc.DrawSelection(ctx, r)
			}

		case PointerUp:
			region, err := sel.Up(ctx, e)
			if err != nil {
				return nil, err
			}
			return region, removeOverlay()
		}

		if err != nil {
			return nil, s.check(ss, err)
		}
	}
}

// watchPointer cancels the session on Escape and forwards the drag until the selection is done
func watchPointer(ss *session, events <-chan PointerEvent, drag chan<- PointerEvent, selected <-chan struct{}) {
	for e := range events {
		if e.Type == PointerCancel {
			ss.cancel(errUserCanceled)
			continue
		}

		select {
		case drag <- e:
		case <-selected:
		case <-ss.ctx.Done():
		}
	}
}

// capture scrolls the target from the top of the document until the frames cover
// the bottom of the selection. All the positions are CSS pixels, the offsets of
// the frames are device pixels.
func (s *Shooter) capture(ss *session, region *Region) ([]stitch.Frame, error) {
	ctx := ss.ctx

	target := region.Target
	if target == nil {
		target = s.doc.Window()
	}

	dpr, err := s.doc.DevicePixelRatio(ctx)
	if err != nil {
		return nil, s.check(ss, err)
	}

	s.publish(ss, &Event{State: StateHidingOverlays})

	restore, err := s.doc.HideFixed(ctx)
	if err != nil {
		return nil, s.check(ss, err)
	}
	ss.hold("fixed", restore)

	ind, remove, err := s.doc.Indicator(ctx, "Preparing...")
	if err != nil {
		return nil, s.check(ss, err)
	}
	ss.hold("indicator", remove)

	origin, err := target.ScrollTop(ctx)
	if err != nil {
		return nil, s.check(ss, err)
	}
	ss.hold("scroll", func(ctx context.Context) error {
		return target.ScrollTo(ctx, origin)
	})

	height, err := target.ClientHeight(ctx)
	if err != nil {
		return nil, s.check(ss, err)
	}
	if height <= 0 {
		return nil, newErr(ErrCaptureTransport, nil, "empty viewport")
	}

	area := region.Selection.Rect()
	frames := []stitch.Frame{}
	pos, last, covered := 0.0, -1.0, 0

	for n := 1; ; n++ {
		bin, top, err := s.step(ss, ind, target, pos, n)
		if err != nil {
			return nil, s.check(ss, err)
		}

		// the target can't scroll any further, the selection is beyond the content
		if top <= last {
			return nil, newErr(ErrCompositionGap, gapBelow(covered, area), nil)
		}

		size, err := utils.DecodeImgSize(bin)
		if err != nil {
			return nil, newErr(ErrDecode, &stitch.DecodeError{Index: n - 1, Err: err}, nil)
		}

		frame := stitch.Frame{Y: int(math.Round(top * dpr)), Data: bin}
		frames = append(frames, frame)

		s.publish(ss, &Event{State: StateRecording, Frame: n, Data: frame.Data})

		covered = frame.Y + size.Y
		if covered >= area.Max.Y {
			return frames, nil
		}

		last = top
		pos = nextPos(top, height, dpr, covered)
	}
}

// nextPos returns the furthest scroll offset, at most one viewport below top,
// whose frame starts no lower than the covered device row. The offsets and the
// heights of the frames are rounded separately, so at a fractional dpr a full
// viewport step can skip a row.
func nextPos(top, height, dpr float64, covered int) float64 {
	pos := top + height
	for pos > top && int(math.Round(pos*dpr)) > covered {
		pos--
	}
	return pos
}

// gapBelow returns the rows of the area below the covered device row
func gapBelow(covered int, area image.Rectangle) *stitch.GapError {
	first := covered
	if first < area.Min.Y {
		first = area.Min.Y
	}
	return &stitch.GapError{First: first - area.Min.Y, Count: area.Max.Y - first}
}

// step captures one viewport at pos, returns the bitmap and the actual scroll offset
func (s *Shooter) step(ss *session, ind Indicator, target ScrollTarget, pos float64, n int) ([]byte, float64, error) {
	ctx := ss.ctx

	if err := ind.Show(ctx, fmt.Sprintf("Capturing (%d)", n)); err != nil {
		return nil, 0, err
	}

	s.publish(ss, &Event{State: StateScrolling, Frame: n})
	if err := target.ScrollTo(ctx, pos); err != nil {
		return nil, 0, err
	}

	s.publish(ss, &Event{State: StateSettling, Frame: n})
	if err := utils.Sleep(ctx, s.settle); err != nil {
		return nil, 0, err
	}

	// the indicator itself must not be captured
	if err := ind.Hide(ctx); err != nil {
		return nil, 0, err
	}
	if err := utils.Sleep(ctx, s.pause); err != nil {
		return nil, 0, err
	}

	s.publish(ss, &Event{State: StateRequesting, Frame: n})
	bin, err := s.capturer.CaptureVisibleArea(ctx)
	if err != nil {
		if ss.ctx.Err() != nil {
			return nil, 0, err
		}
		return nil, 0, newErr(ErrCaptureTransport, err, fmt.Sprintf("frame %d", n))
	}
	if len(bin) == 0 {
		return nil, 0, newErr(ErrCaptureTransport, nil, fmt.Sprintf("frame %d is empty", n))
	}

	if err := ind.Show(ctx, fmt.Sprintf("Processing (%d)", n)); err != nil {
		return nil, 0, err
	}

	// the browser clamps the position at the end of the content
	top, err := target.ScrollTop(ctx)
	if err != nil {
		return nil, 0, err
	}

	return bin, top, nil
}

// check prefers the cancellation of the session over err
func (s *Shooter) check(ss *session, err error) error {
	if ctxErr := ss.err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
