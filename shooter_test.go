package regionshot_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/fakepage"
	"github.com/go-rod/regionshot/lib/stitch"
)

func (s *S) TestTwoFrames() {
	page := fakepage.New(1, 800, 600, 2000)
	page.SetScrollTop(250)
	store := fakepage.NewStore()

	res, err := shooter(page, store).Capture(cssRegion(page, regionshot.Rect{X: 0, Y: 100, Width: 800, Height: 900}))
	s.Require().NoError(err)

	s.Equal(2, res.Frames)
	s.Equal(2, page.Captures())
	s.checkImage(res.PNG, res.Selection)

	bin, ok := store.Get(res.Name)
	s.True(ok)
	s.Equal(res.PNG, bin)

	s.Equal(250.0, page.GetScrollTop())
	s.True(page.Clean())
	s.Empty(page.Violations())
	s.Equal([]fakepage.Notice{{Text: "Screenshot saved"}}, page.Notices())
}

func (s *S) TestDevicePixelRatios() {
	for _, dpr := range []float64{1, 1.5, 2, 3} {
		s.Run(fmt.Sprint(dpr), func() {
			page := fakepage.New(dpr, 400, 300, 1500)

			res, err := shooter(page, fakepage.NewStore()).Capture(
				cssRegion(page, regionshot.Rect{X: 10, Y: 50, Width: 200, Height: 700}),
			)
			s.Require().NoError(err)

			s.Equal(3, res.Frames)
			s.Equal(regionshot.Selection{X: 10 * dpr, Y: 50 * dpr, Width: 200 * dpr, Height: 700 * dpr}, res.Selection)
			s.checkImage(res.PNG, res.Selection)
		})
	}
}

func (s *S) TestFractionalPixelRatios() {
	// 110% zoom and 125% scaling, the viewport height times dpr is not an integer
	for _, dpr := range []float64{1.1, 1.25, 1.75, 0.9} {
		s.Run(fmt.Sprint(dpr), func() {
			page := fakepage.New(dpr, 400, 301, 5000)

			res, err := shooter(page, fakepage.NewStore()).Capture(
				cssRegion(page, regionshot.Rect{Width: 200, Height: 3000}),
			)
			s.Require().NoError(err)

			s.GreaterOrEqual(res.Frames, 10)
			s.checkImage(res.PNG, res.Selection)
			s.True(page.Clean())
		})
	}
}

func (s *S) TestClampedLastFrame() {
	page := fakepage.New(2, 300, 600, 1000)

	res, err := shooter(page, fakepage.NewStore()).Capture(
		cssRegion(page, regionshot.Rect{X: 0, Y: 500, Width: 300, Height: 500}),
	)
	s.Require().NoError(err)

	s.Equal(2, res.Frames)
	s.checkImage(res.PNG, res.Selection)
}

func (s *S) TestOverlappedFrames() {
	// the viewport is taller than what's left, the second frame is clamped at 120
	page := fakepage.New(1, 100, 300, 420)

	res, err := shooter(page, fakepage.NewStore()).Capture(
		cssRegion(page, regionshot.Rect{X: 0, Y: 0, Width: 100, Height: 420}),
	)
	s.Require().NoError(err)

	s.Equal(2, res.Frames)
	s.checkImage(res.PNG, res.Selection)
}

func (s *S) TestBeyondContent() {
	page := fakepage.New(1, 400, 300, 1000)
	store := fakepage.NewStore()

	_, err := shooter(page, store).Capture(cssRegion(page, regionshot.Rect{Width: 400, Height: 1500}))

	s.True(regionshot.IsError(err, regionshot.ErrCompositionGap))
	gap := &stitch.GapError{}
	s.Require().True(errors.As(err, &gap))
	s.Equal(&stitch.GapError{First: 1000, Count: 500}, gap)

	// stops at the first capture that doesn't scroll any further
	s.Equal(5, page.Captures())
	s.Zero(store.Len())
	s.True(page.Clean())
}

func (s *S) TestProgressTexts() {
	page := fakepage.New(1, 100, 100, 300)

	_, err := shooter(page, fakepage.NewStore()).Capture(
		cssRegion(page, regionshot.Rect{Y: 0, Width: 100, Height: 250}),
	)
	s.Require().NoError(err)

	s.Equal([]string{
		"Preparing...",
		"Capturing (1)", "Processing (1)",
		"Capturing (2)", "Processing (2)",
		"Capturing (3)", "Processing (3)",
	}, page.Texts())
	s.Empty(page.Violations())
}

func (s *S) TestCaptureFailure() {
	page := fakepage.New(1, 400, 300, 1200).FailAt(2)
	page.SetScrollTop(100)
	store := fakepage.NewStore()

	_, err := shooter(page, store).Capture(cssRegion(page, regionshot.Rect{Width: 400, Height: 800}))

	s.True(regionshot.IsError(err, regionshot.ErrCaptureTransport))
	s.True(errors.Is(err, fakepage.ErrCapture))
	s.Equal(2, page.Captures())
	s.Equal(100.0, page.GetScrollTop())
	s.True(page.Clean())
	s.Zero(store.Len())
	s.Equal([]fakepage.Notice{{Text: "Screenshot failed", Failed: true}}, page.Notices())
}

func (s *S) TestSaveFailure() {
	page := fakepage.New(1, 400, 300, 1200)
	store := fakepage.NewStore()
	store.Err = errors.New("disk full")

	_, err := shooter(page, store).Capture(cssRegion(page, regionshot.Rect{Width: 400, Height: 200}))

	s.EqualError(err, "disk full")
	s.True(page.Clean())
	s.Equal([]fakepage.Notice{{Text: "Screenshot failed", Failed: true}}, page.Notices())
}

func (s *S) TestEmptySelection() {
	page := fakepage.New(1, 400, 300, 1200)
	sh := shooter(page, fakepage.NewStore())

	_, err := sh.Capture(nil)
	s.True(regionshot.IsError(err, regionshot.ErrSelection))

	_, err = sh.Capture(cssRegion(page, regionshot.Rect{X: 10, Y: 10, Width: 0, Height: 100}))
	s.True(regionshot.IsError(err, regionshot.ErrSelection))

	_, err = sh.RegionAt(regionshot.Selection{Width: 0.2, Height: 10}, nil)
	s.True(regionshot.IsError(err, regionshot.ErrSelection))

	s.Zero(page.Captures())
	s.False(sh.Active())
}

func (s *S) TestRegionAt() {
	page := fakepage.New(1, 400, 300, 1200)
	page.Pane = true
	sh := shooter(page, fakepage.NewStore())

	sel := regionshot.Selection{Width: 100, Height: 100}

	region := sh.MustRegionAt(sel, nil)
	s.True(region.Target.IsWindow())

	region = sh.MustRegionAt(sel, &regionshot.Point{X: 10, Y: 10})
	s.False(region.Target.IsWindow())
	s.Equal(sel, region.Selection)
}

func (s *S) TestInteractive() {
	page := fakepage.New(2, 800, 600, 2000)
	store := fakepage.NewStore()
	sh := shooter(page, store).Instructions("drag")

	done := start(sh)
	page.Drag(300, 500, 10, 100)
	out := <-done

	s.Require().NoError(out.err)
	s.Equal(regionshot.Selection{X: 20, Y: 200, Width: 580, Height: 800}, out.res.Selection)
	s.Equal(1, out.res.Frames)
	s.checkImage(out.res.PNG, out.res.Selection)

	s.Equal("drag", page.Instructions())
	s.Equal([]regionshot.Rect{{X: 10, Y: 100, Width: 290, Height: 400}}, page.Drawn())
	s.True(page.Clean())
	s.False(sh.Active())
}

func (s *S) TestInteractivePane() {
	page := fakepage.New(1, 800, 600, 2000)
	page.Pane = true
	page.SetScrollTop(200)

	done := start(shooter(page, fakepage.NewStore()))
	page.Drag(0, 100, 200, 500)
	out := <-done

	s.Require().NoError(out.err)
	s.Equal(regionshot.Selection{X: 0, Y: 300, Width: 200, Height: 400}, out.res.Selection)
	// drawn where the pointer is, not where the content is
	s.Equal([]regionshot.Rect{{X: 0, Y: 100, Width: 200, Height: 400}}, page.Drawn())
	s.Equal(2, out.res.Frames)
	s.checkImage(out.res.PNG, out.res.Selection)
	s.Equal(200.0, page.GetScrollTop())
}

func (s *S) TestSelect() {
	page := fakepage.New(1, 800, 600, 2000)
	sh := shooter(page, fakepage.NewStore())

	done := make(chan *regionshot.Region)
	go func() { done <- sh.MustSelect() }()
	page.Drag(0, 0, 100, 100)
	region := <-done

	s.Equal(regionshot.Selection{Width: 100, Height: 100}, region.Selection)
	s.True(page.Clean())
	s.Zero(page.Captures())

	res := sh.MustCapture(region)
	s.checkImage(res.PNG, res.Selection)
}

func (s *S) TestZeroDrag() {
	page := fakepage.New(1, 800, 600, 2000)

	done := start(shooter(page, fakepage.NewStore()))
	page.Drag(10, 100, 10, 100)
	out := <-done

	s.True(regionshot.IsError(out.err, regionshot.ErrSelection))
	s.Zero(page.Captures())
	s.Empty(page.Notices())
	s.True(page.Clean())
}

func (s *S) TestEscape() {
	page := fakepage.New(1, 800, 600, 2000)
	page.SetScrollTop(30)

	done := start(shooter(page, fakepage.NewStore()))
	page.Send(regionshot.PointerDown, 10, 100)
	page.Escape()
	out := <-done

	s.True(regionshot.IsError(out.err, regionshot.ErrCanceled))
	s.Contains(out.err.Error(), "canceled by the user")
	s.Equal([]fakepage.Notice{{Text: "Screenshot canceled", Failed: true}}, page.Notices())
	s.Equal(30.0, page.GetScrollTop())
	s.True(page.Clean())
}

func (s *S) TestCancelWhileCapturing() {
	page := fakepage.New(1, 400, 300, 1200)
	page.SetScrollTop(70)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	page.BeforeCapture = func(_ context.Context, n int) error {
		if n == 2 {
			cancel()
		}
		return nil
	}

	_, err := shooter(page, fakepage.NewStore()).Context(ctx).Capture(
		cssRegion(page, regionshot.Rect{Width: 400, Height: 1000}),
	)

	s.True(regionshot.IsError(err, regionshot.ErrCanceled))
	s.Equal(2, page.Captures())
	s.Equal(70.0, page.GetScrollTop())
	s.True(page.Clean())
}

func (s *S) TestEscapeWhileCapturing() {
	page := fakepage.New(1, 400, 300, 2000)
	page.SetScrollTop(700)
	store := fakepage.NewStore()

	page.BeforeCapture = func(ctx context.Context, n int) error {
		if n == 2 {
			page.Escape()
			<-ctx.Done()
			return ctx.Err()
		}
		return nil
	}

	done := start(shooter(page, store))
	page.Drag(0, 100, 200, 200)
	out := <-done

	s.True(regionshot.IsError(out.err, regionshot.ErrCanceled))
	s.Contains(out.err.Error(), "canceled by the user")
	s.Equal(2, page.Captures())
	s.Equal(700.0, page.GetScrollTop())
	s.True(page.Clean())
	s.Zero(store.Len())
	s.Equal([]fakepage.Notice{{Text: "Screenshot canceled", Failed: true}}, page.Notices())
}

func (s *S) TestTimeout() {
	page := fakepage.New(1, 400, 300, 1200)
	sh := shooter(page, fakepage.NewStore()).Settle(time.Hour).Timeout(10 * time.Millisecond)
	defer sh.CancelTimeout()

	_, err := sh.Capture(cssRegion(page, regionshot.Rect{Width: 400, Height: 100}))

	s.True(regionshot.IsError(err, regionshot.ErrCanceled))
	s.True(errors.Is(err, context.DeadlineExceeded))
	s.True(page.Clean())
}

func (s *S) TestReentrancy() {
	page := fakepage.New(1, 800, 600, 2000)
	sh := shooter(page, fakepage.NewStore())

	done := start(sh)
	s.Eventually(sh.Active, time.Second, time.Millisecond)

	_, err := sh.Capture(cssRegion(page, regionshot.Rect{Width: 10, Height: 10}))
	s.True(regionshot.IsError(err, regionshot.ErrSessionActive))

	// clones share the guard
	_, err = sh.Context(context.Background()).Start()
	s.True(regionshot.IsError(err, regionshot.ErrSessionActive))

	page.Escape()
	<-done

	s.False(sh.Active())
	s.Zero(page.Captures())
}

func (s *S) TestAutoScroll() {
	page := fakepage.New(1, 800, 600, 3000)

	done := start(shooter(page, fakepage.NewStore()))
	page.Send(regionshot.PointerDown, 10, 100)
	page.Send(regionshot.PointerMove, 10, 590)
	s.Eventually(func() bool { return page.GetScrollTop() >= 200 }, 3*time.Second, time.Millisecond)
	page.Send(regionshot.PointerUp, 110, 590)
	out := <-done

	s.Require().NoError(out.err)
	s.Equal(100.0, out.res.Selection.Y)
	s.GreaterOrEqual(out.res.Selection.Height, 690.0)
	s.GreaterOrEqual(out.res.Frames, 2)
	s.checkImage(out.res.PNG, out.res.Selection)
	s.True(page.Clean())
}

func (s *S) TestEvents() {
	page := fakepage.New(1, 400, 300, 1200)
	sh := shooter(page, fakepage.NewStore())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	events := sh.Subscribe(ctx)

	states := make(chan []regionshot.State)
	go func() {
		list := []regionshot.State{}
		for e := range events {
			list = append(list, e.State)
			if e.State == regionshot.StateRecording {
				s.NotEmpty(e.Data)
			}
			if e.State == regionshot.StateDone {
				break
			}
		}
		states <- list
	}()

	_, err := sh.Capture(cssRegion(page, regionshot.Rect{Width: 400, Height: 200}))
	s.Require().NoError(err)

	s.Equal([]regionshot.State{
		regionshot.StateHidingOverlays,
		regionshot.StateScrolling,
		regionshot.StateSettling,
		regionshot.StateRequesting,
		regionshot.StateRecording,
		regionshot.StateRestoring,
		regionshot.StateCompositing,
		regionshot.StateSaving,
		regionshot.StateDone,
	}, <-states)
}

func (s *S) TestScrollPositions() {
	page := fakepage.New(1, 100, 100, 300)

	positions := []float64{}
	page.BeforeCapture = func(context.Context, int) error {
		positions = append(positions, page.GetScrollTop())
		return nil
	}

	res, err := shooter(page, fakepage.NewStore()).Capture(cssRegion(page, regionshot.Rect{Width: 100, Height: 150}))
	s.Require().NoError(err)

	s.Equal([]float64{0, 100}, positions)
	s.Equal(2, res.Frames)
	s.checkImage(res.PNG, res.Selection)
}
