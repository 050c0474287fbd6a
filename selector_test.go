package regionshot_test

import (
	"context"
	"time"

	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/fakepage"
)

func (s *S) TestSelectorReversedDrag() {
	ctx := context.Background()
	page := fakepage.New(1.5, 800, 600, 2000)
	page.SetScrollTop(100)

	sel := regionshot.NewSelector(page, 1.5)
	s.False(sel.Started())

	s.Require().NoError(sel.Down(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 200, Y: 300}, ViewportHeight: 600}))
	s.True(sel.Started())
	s.True(sel.Target().IsWindow())

	r, err := sel.Move(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 100, Y: 200}, ViewportHeight: 600})
	s.Require().NoError(err)
	s.Equal(regionshot.Rect{X: 100, Y: 300, Width: 100, Height: 100}, r)

	region, err := sel.Up(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 100, Y: 200}, ViewportHeight: 600})
	s.Require().NoError(err)
	s.Equal(regionshot.Selection{X: 150, Y: 450, Width: 150, Height: 150}, region.Selection)
}

func (s *S) TestSelectorUpWithoutDown() {
	page := fakepage.New(1, 800, 600, 2000)
	sel := regionshot.NewSelector(page, 1)

	r, err := sel.Move(context.Background(), regionshot.PointerEvent{Client: regionshot.Point{X: 1, Y: 1}})
	s.NoError(err)
	s.Equal(regionshot.Rect{}, r)

	_, err = sel.Up(context.Background(), regionshot.PointerEvent{})
	s.True(regionshot.IsError(err, regionshot.ErrSelection))
}

func (s *S) TestSelectorAutoScrollUp() {
	ctx := context.Background()
	page := fakepage.New(1, 800, 600, 2000)
	page.SetScrollTop(500)

	sel := regionshot.NewSelector(page, 1)
	sel.Tick = time.Millisecond

	s.Require().NoError(sel.Down(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 0, Y: 300}, ViewportHeight: 600}))

	_, err := sel.Move(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 10, Y: 10}, ViewportHeight: 600})
	s.Require().NoError(err)
	s.True(sel.Scrolling())

	s.Eventually(func() bool { return page.GetScrollTop() == 0 }, 3*time.Second, time.Millisecond)

	// moving away from the edge stops it
	_, err = sel.Move(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 10, Y: 300}, ViewportHeight: 600})
	s.Require().NoError(err)
	s.False(sel.Scrolling())

	region, err := sel.Up(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 10, Y: 200}, ViewportHeight: 600})
	s.Require().NoError(err)
	s.Equal(regionshot.Selection{X: 0, Y: 200, Width: 10, Height: 600}, region.Selection)
}

func (s *S) TestSelectorStop() {
	ctx := context.Background()
	page := fakepage.New(1, 800, 600, 2000)

	sel := regionshot.NewSelector(page, 1)
	sel.Tick = time.Millisecond

	s.Require().NoError(sel.Down(ctx, regionshot.PointerEvent{Client: regionshot.Point{Y: 300}, ViewportHeight: 600}))
	_, err := sel.Move(ctx, regionshot.PointerEvent{Client: regionshot.Point{Y: 599}, ViewportHeight: 600})
	s.Require().NoError(err)
	s.True(sel.Scrolling())

	sel.Stop()
	s.False(sel.Scrolling())

	top := page.GetScrollTop()
	time.Sleep(10 * time.Millisecond)
	s.Equal(top, page.GetScrollTop())
}

func (s *S) TestSelectorViewport() {
	ctx := context.Background()
	page := fakepage.New(1, 800, 600, 2000)
	page.Pane = true
	page.SetScrollTop(250)

	sel := regionshot.NewSelector(page, 1)

	r := regionshot.Rect{X: 5, Y: 300, Width: 10, Height: 20}
	same, err := sel.Viewport(ctx, r)
	s.Require().NoError(err)
	s.Equal(r, same)

	s.Require().NoError(sel.Down(ctx, regionshot.PointerEvent{Client: regionshot.Point{X: 5, Y: 50}, ViewportHeight: 600}))

	v, err := sel.Viewport(ctx, r)
	s.Require().NoError(err)
	s.Equal(regionshot.Rect{X: 5, Y: 50, Width: 10, Height: 20}, v)
}
