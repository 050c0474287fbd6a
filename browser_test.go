package regionshot_test

import (
	"context"
	"net/http"
	"time"

	"github.com/go-rod/regionshot"
	"github.com/go-rod/regionshot/lib/fakepage"
	"github.com/go-rod/regionshot/lib/utils"
	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/input"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"
)

const fixture = `<html>
<body style="margin: 0">
	<div id="header" style="position: fixed; top: 0; height: 40px; width: 100%; background: red">header</div>
	<div style="height: 3000px; background: linear-gradient(white, blue)"></div>
	<div id="pane" style="position: fixed; top: 100px; left: 0; width: 200px; height: 200px; overflow: auto">
		<div style="height: 1000px"></div>
	</div>
</body>
</html>`

func (s *S) browserPage() (*rod.Page, func()) {
	bin, has := launcher.LookPath()
	if !has {
		s.T().Skip("no browser found")
	}

	u, mux, closeServer := utils.Serve("")
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Add("Content-Type", "text/html; charset=utf-8")
		utils.E(w.Write([]byte(fixture)))
	})

	l := launcher.New().Bin(bin).Headless(true).Leakless(false)
	browser := rod.New().ControlURL(l.MustLaunch()).MustConnect()

	page := browser.MustPage(u).MustWaitLoad()
	page.MustSetViewport(800, 600, 1, false)

	return page, func() {
		browser.MustClose()
		l.Cleanup()
		closeServer()
	}
}

func (s *S) TestBrowserCapture() {
	page, cleanup := s.browserPage()
	defer cleanup()

	tab := regionshot.NewTab(page)
	sh := regionshot.New(tab, tab, fakepage.NewStore()).
		Logger(utils.LoggerQuiet).
		Settle(50 * time.Millisecond).
		Pause(10 * time.Millisecond)

	page.MustEval(`() => window.scrollTo(0, 120)`)

	res := sh.MustCapture(sh.MustRegionAt(regionshot.Selection{X: 0, Y: 100, Width: 300, Height: 1200}, nil))
	s.Equal(3, res.Frames)

	img, err := utils.DecodeImg(res.PNG)
	s.Require().NoError(err)
	s.Equal(300, img.Bounds().Dx())
	s.Equal(1200, img.Bounds().Dy())

	s.Equal(120, page.MustEval(`() => window.scrollY`).Int())
	s.Equal("", page.MustEval(`() => document.getElementById('header').style.visibility`).Str())
	s.Equal(0, page.MustEval(`() => document.querySelectorAll('[data-regionshot]:not([data-regionshot=notice])').length`).Int())
}

func (s *S) TestBrowserScrollTarget() {
	page, cleanup := s.browserPage()
	defer cleanup()

	ctx := context.Background()
	tab := regionshot.NewTab(page)

	dpr, err := tab.DevicePixelRatio(ctx)
	s.Require().NoError(err)
	s.Equal(1.0, dpr)

	target, err := tab.ResolveScrollTarget(ctx, regionshot.Point{X: 50, Y: 150})
	s.Require().NoError(err)
	s.False(target.IsWindow())

	s.Require().NoError(target.ScrollTo(ctx, 5000))
	top, err := target.ScrollTop(ctx)
	s.Require().NoError(err)
	s.Equal(800.0, top)

	target, err = tab.ResolveScrollTarget(ctx, regionshot.Point{X: 500, Y: 500})
	s.Require().NoError(err)
	s.True(target.IsWindow())

	height, err := target.ClientHeight(ctx)
	s.Require().NoError(err)
	s.Equal(600.0, height)
}

func (s *S) TestBrowserPointer() {
	page, cleanup := s.browserPage()
	defer cleanup()

	tab := regionshot.NewTab(page)
	events, stop, err := tab.Pointer(context.Background())
	s.Require().NoError(err)

	page.Mouse.MustMoveTo(300, 300)
	page.Mouse.MustDown(proto.InputMouseButtonLeft)
	s.Equal(regionshot.PointerEvent{
		Type: regionshot.PointerDown, Client: regionshot.Point{X: 300, Y: 300}, ViewportHeight: 600,
	}, <-events)

	page.Mouse.MustMoveTo(400, 500)
	e := <-events
	s.Equal(regionshot.PointerMove, e.Type)

	page.Mouse.MustUp(proto.InputMouseButtonLeft)
	for e.Type == regionshot.PointerMove {
		e = <-events
	}
	s.Equal(regionshot.PointerUp, e.Type)

	page.Keyboard.MustType(input.Escape)
	s.Equal(regionshot.PointerCancel, (<-events).Type)

	s.Require().NoError(stop(context.Background()))
	_, ok := <-events
	s.False(ok)
}

func (s *S) TestBrowserOverlay() {
	page, cleanup := s.browserPage()
	defer cleanup()

	ctx := context.Background()
	tab := regionshot.NewTab(page)

	remove, err := tab.Overlay(ctx, "drag")
	s.Require().NoError(err)

	s.Equal("overlay", page.MustEval(`() => document.elementFromPoint(50, 150).getAttribute('data-regionshot')`).Str())

	// the pane under the overlay
	target, err := tab.ResolveScrollTarget(ctx, regionshot.Point{X: 50, Y: 150})
	s.Require().NoError(err)
	s.False(target.IsWindow())

	s.Require().NoError(target.ScrollTo(ctx, 300))
	s.Require().NoError(tab.DrawSelection(ctx, regionshot.Rect{X: 10, Y: 120, Width: 100, Height: 50}))
	s.Equal(120, page.MustEval(`() => document.querySelector('[data-regionshot=selection]').getBoundingClientRect().top`).Int())

	s.Require().NoError(remove(ctx))
	s.Equal(0, page.MustEval(`() => document.querySelectorAll('[data-regionshot]').length`).Int())
}
